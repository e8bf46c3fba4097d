package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"Gin_postgres_redis_asset_loan/app"
	"Gin_postgres_redis_asset_loan/db"
	"Gin_postgres_redis_asset_loan/logging"
	"Gin_postgres_redis_asset_loan/models"
	"Gin_postgres_redis_asset_loan/session"
)

type UserController struct{ *Srv }

func NewUserController(s *Srv) *UserController { return &UserController{Srv: s} }

type createUserReq struct {
	NIK      string      `json:"nik" binding:"required,min=1,max=10"`
	Username string      `json:"username" binding:"required,min=3,max=100"`
	Password string      `json:"password" binding:"required,min=6"`
	FullName string      `json:"fullName" binding:"required,max=150"`
	Role     models.Role `json:"role" binding:"required,oneof=ADMIN SECURITY_GUARD MANAGEMENT"`
	OfficeID nullableID  `json:"officeId"`
	IsActive *bool       `json:"isActive"`
}

type updateUserReq struct {
	NIK      *string      `json:"nik" binding:"omitempty,min=1,max=10"`
	Username *string      `json:"username" binding:"omitempty,min=3,max=100"`
	Password *string      `json:"password" binding:"omitempty,min=6"`
	FullName *string      `json:"fullName" binding:"omitempty,min=1,max=150"`
	Role     *models.Role `json:"role" binding:"omitempty,oneof=ADMIN SECURITY_GUARD MANAGEMENT"`
	OfficeID nullableID   `json:"officeId"`
	IsActive *bool        `json:"isActive"`
}

// GET /api/users?page=&limit=&search=&role=&officeId=
func (uc *UserController) List(c *gin.Context) {
	office, err := queryUint(c, "officeId")
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	res, err := uc.Repo.ListUsers(c.Request.Context(), db.UserFilter{
		Search:   c.Query("search"),
		Role:     models.Role(c.Query("role")),
		OfficeID: office,
	}, queryPage(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/users/profile
func (uc *UserController) Profile(c *gin.Context) {
	u, err := uc.Repo.FindUserByID(c.Request.Context(), caller(c).UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"user": u})
}

func (uc *UserController) Create(c *gin.Context) {
	var in createUserReq
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	hash, err := session.HashPassword(in.Password)
	if err != nil {
		fail(c, err)
		return
	}
	u, err := uc.Repo.CreateUser(c.Request.Context(), db.UserInput{
		NIK:          in.NIK,
		Username:     in.Username,
		PasswordHash: hash,
		FullName:     in.FullName,
		Role:         in.Role,
		OfficeID:     in.OfficeID.Value,
		IsActive:     in.IsActive,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"message": "user created", "user": u})
}

func (uc *UserController) Update(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var in updateUserReq
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	p := db.UserPatch{
		NIK:      in.NIK,
		Username: in.Username,
		FullName: in.FullName,
		Role:     in.Role,
		IsActive: in.IsActive,
	}
	if in.OfficeID.Set {
		p.OfficeID = in.OfficeID.Value
		p.ClearOffice = in.OfficeID.Value == nil
	}
	if in.Password != nil && *in.Password != "" {
		hash, err := session.HashPassword(*in.Password)
		if err != nil {
			fail(c, err)
			return
		}
		p.PasswordHash = &hash
	}

	ctx := c.Request.Context()
	u, revoke, err := uc.Repo.UpdateUser(ctx, id, p)
	if err != nil {
		fail(c, err)
		return
	}
	if revoke {
		if err := uc.AppSess.RevokeAllForUser(ctx, id); err != nil {
			logging.Error("revoke sessions", zap.Uint("user_id", id), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, app.H{"message": "user updated", "user": u})
}

func (uc *UserController) Delete(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := uc.Repo.DeleteUser(ctx, caller(c).UserID, id); err != nil {
		fail(c, err)
		return
	}
	if err := uc.AppSess.RevokeAllForUser(ctx, id); err != nil {
		logging.Error("revoke sessions", zap.Uint("user_id", id), zap.Error(err))
	}
	c.JSON(http.StatusOK, app.H{"message": "user deleted"})
}
