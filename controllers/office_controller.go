package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_asset_loan/app"
	"Gin_postgres_redis_asset_loan/db"
)

type OfficeController struct{ *Srv }

func NewOfficeController(s *Srv) *OfficeController { return &OfficeController{Srv: s} }

type officeReq struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=150"`
	Address  *string `json:"address" binding:"omitempty,max=255"`
	IsActive *bool   `json:"isActive"`
}

// GET /api/offices?search=&isActive=
func (oc *OfficeController) List(c *gin.Context) {
	active, err := queryBool(c, "isActive")
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	rows, err := oc.Repo.ListOffices(c.Request.Context(), db.OfficeFilter{Search: c.Query("search"), IsActive: active})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"offices": rows})
}

func (oc *OfficeController) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	o, err := oc.Repo.GetOffice(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"office": o})
}

func (oc *OfficeController) Create(c *gin.Context) {
	var in officeReq
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	if in.Name == nil {
		c.JSON(http.StatusBadRequest, app.H{"errors": []fieldError{{Field: "name", Message: "name is required"}}})
		return
	}
	o, err := oc.Repo.CreateOffice(c.Request.Context(), db.OfficeInput{Name: *in.Name, Address: in.Address, IsActive: in.IsActive})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"message": "office created", "office": o})
}

func (oc *OfficeController) Update(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var in officeReq
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	o, err := oc.Repo.UpdateOffice(c.Request.Context(), id, db.OfficePatch{Name: in.Name, Address: in.Address, IsActive: in.IsActive})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"message": "office updated", "office": o})
}

func (oc *OfficeController) Delete(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := oc.Repo.DeleteOffice(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"message": "office deleted"})
}
