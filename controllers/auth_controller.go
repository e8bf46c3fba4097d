package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"Gin_postgres_redis_asset_loan/app"
	"Gin_postgres_redis_asset_loan/db"
	"Gin_postgres_redis_asset_loan/logging"
	"Gin_postgres_redis_asset_loan/session"
)

type AuthController struct{ *Srv }

func NewAuthController(s *Srv) *AuthController { return &AuthController{Srv: s} }

type loginReq struct {
	Username string `json:"username"` // username or nik
	NIK      string `json:"nik"`
	Password string `json:"password" binding:"required"`
}

// POST /api/auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var in loginReq
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	login := strings.TrimSpace(in.Username)
	if login == "" {
		login = strings.TrimSpace(in.NIK)
	}
	if login == "" {
		c.JSON(http.StatusBadRequest, app.H{"errors": []fieldError{{Field: "username", Message: "username or nik is required"}}})
		return
	}

	ctx := c.Request.Context()
	u, err := ac.Repo.FindUserByLogin(ctx, login)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		fail(c, err)
		return
	}
	if u == nil || !session.CheckPassword(u.Password, in.Password) {
		c.JSON(http.StatusUnauthorized, app.H{"error": "invalid username or password"})
		return
	}
	if !u.IsActive {
		c.JSON(http.StatusUnauthorized, app.H{"error": "account is inactive"})
		return
	}

	sid := session.NewSessionID()
	if err := ac.AppSess.Create(ctx, sid, u.ID, c.ClientIP()); err != nil {
		fail(c, err)
		return
	}
	token, exp, err := ac.Tokens.Issue(u.ID, sid, u.Role)
	if err != nil {
		_ = ac.AppSess.Delete(ctx, sid)
		fail(c, err)
		return
	}
	if err := ac.Repo.TouchUserLogin(ctx, u.ID, c.ClientIP(), c.Request.UserAgent()); err != nil {
		logging.Warn("record login", zap.Uint("user_id", u.ID), zap.Error(err))
	}
	logging.Info("login", zap.Uint("user_id", u.ID), zap.String("role", string(u.Role)))

	c.JSON(http.StatusOK, app.H{
		"message":   "login successful",
		"token":     token,
		"expiresAt": exp,
		"user":      u,
	})
}

// POST /api/auth/logout
func (ac *AuthController) Logout(c *gin.Context) {
	if sid := app.SessionIDFrom(c); sid != "" {
		if err := ac.AppSess.Delete(c.Request.Context(), sid); err != nil {
			fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, app.H{"message": "logged out"})
}
