package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_asset_loan/access"
	"Gin_postgres_redis_asset_loan/app"
	"Gin_postgres_redis_asset_loan/db"
)

type AssetController struct{ *Srv }

func NewAssetController(s *Srv) *AssetController { return &AssetController{Srv: s} }

type createAssetReq struct {
	Name        string  `json:"name" binding:"required,max=200"`
	Code        string  `json:"code" binding:"required,max=60"`
	Description *string `json:"description"`
	CategoryID  uint    `json:"categoryId" binding:"required,gt=0"`
	OfficeID    uint    `json:"officeId" binding:"required,gt=0"`
}

type updateAssetReq struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=200"`
	Code        *string `json:"code" binding:"omitempty,min=1,max=60"`
	Description *string `json:"description"`
	CategoryID  *uint   `json:"categoryId" binding:"omitempty,gt=0"`
	OfficeID    *uint   `json:"officeId" binding:"omitempty,gt=0"`
	IsAvailable *bool   `json:"isAvailable"`
	IsActive    *bool   `json:"isActive"`
}

// GET /api/assets?page=&limit=&search=&categoryId=&officeId=&isAvailable=&isActive=
func (ac *AssetController) List(c *gin.Context) {
	var f db.AssetFilter
	office, err := queryUint(c, "officeId")
	if err == nil {
		f.CategoryID, err = queryUint(c, "categoryId")
	}
	if err == nil {
		f.IsAvailable, err = queryBool(c, "isAvailable")
	}
	if err == nil {
		f.IsActive, err = queryBool(c, "isActive")
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	f.Search = c.Query("search")

	cl := caller(c)
	res, err := ac.Repo.ListAssets(c.Request.Context(), access.ScopeFor(cl, office), cl.Role, f, queryPage(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (ac *AssetController) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	cl := caller(c)
	a, err := ac.Repo.GetAsset(c.Request.Context(), access.ScopeFor(cl, nil), cl.Role, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"asset": a})
}

func (ac *AssetController) Create(c *gin.Context) {
	var in createAssetReq
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	a, err := ac.Repo.CreateAsset(c.Request.Context(), db.AssetInput{
		Name:        in.Name,
		Code:        in.Code,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		OfficeID:    in.OfficeID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"message": "asset created", "asset": a})
}

func (ac *AssetController) Update(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var in updateAssetReq
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	a, err := ac.Repo.UpdateAsset(c.Request.Context(), id, db.AssetPatch{
		Name:        in.Name,
		Code:        in.Code,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		OfficeID:    in.OfficeID,
		IsAvailable: in.IsAvailable,
		IsActive:    in.IsActive,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"message": "asset updated", "asset": a})
}

func (ac *AssetController) Delete(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := ac.Repo.DeleteAsset(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"message": "asset deleted"})
}
