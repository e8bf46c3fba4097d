package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_asset_loan/app"
	"Gin_postgres_redis_asset_loan/db"
	"Gin_postgres_redis_asset_loan/models"
)

type CategoryController struct{ *Srv }

func NewCategoryController(s *Srv) *CategoryController { return &CategoryController{Srv: s} }

type categoryReq struct {
	Name         *string              `json:"name" binding:"omitempty,min=1,max=150"`
	Type         *models.CategoryType `json:"type" binding:"omitempty,oneof=VEHICLE ROOM_KEY DEVICE OTHER"`
	Description  *string              `json:"description"`
	IsActive     *bool                `json:"isActive"`
	AllowedRoles *models.RoleSet      `json:"allowedRoles"`
}

// GET /api/categories?search=&type=&isActive=
func (cc *CategoryController) List(c *gin.Context) {
	active, err := queryBool(c, "isActive")
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	rows, err := cc.Repo.ListCategories(c.Request.Context(), db.CategoryFilter{
		Search:   c.Query("search"),
		Type:     models.CategoryType(c.Query("type")),
		IsActive: active,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"categories": rows})
}

func (cc *CategoryController) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	row, err := cc.Repo.GetCategory(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"category": row})
}

func (cc *CategoryController) Create(c *gin.Context) {
	var in categoryReq
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	var missing []fieldError
	if in.Name == nil {
		missing = append(missing, fieldError{Field: "name", Message: "name is required"})
	}
	if in.Type == nil {
		missing = append(missing, fieldError{Field: "type", Message: "type is required"})
	}
	if len(missing) > 0 {
		c.JSON(http.StatusBadRequest, app.H{"errors": missing})
		return
	}
	input := db.CategoryInput{Name: *in.Name, Type: *in.Type, Description: in.Description, IsActive: in.IsActive}
	if in.AllowedRoles != nil {
		input.AllowedRoles = *in.AllowedRoles
	}
	cat, err := cc.Repo.CreateCategory(c.Request.Context(), input)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"message": "category created", "category": cat})
}

func (cc *CategoryController) Update(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var in categoryReq
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	cat, err := cc.Repo.UpdateCategory(c.Request.Context(), id, db.CategoryPatch{
		Name:         in.Name,
		Type:         in.Type,
		Description:  in.Description,
		IsActive:     in.IsActive,
		AllowedRoles: in.AllowedRoles,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"message": "category updated", "category": cat})
}

func (cc *CategoryController) Delete(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := cc.Repo.DeleteCategory(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"message": "category deleted"})
}
