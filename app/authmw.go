package app

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"Gin_postgres_redis_asset_loan/access"
	"Gin_postgres_redis_asset_loan/db"
	"Gin_postgres_redis_asset_loan/logging"
	"Gin_postgres_redis_asset_loan/models"
	"Gin_postgres_redis_asset_loan/session"
)

const (
	callerKey    = "caller"
	sessionIDKey = "sessionID"
)

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// AuthRequired resolves the bearer token to a live session and an active
// user, then stores the Caller in the context.
func AuthRequired(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "access token required"})
			return
		}
		claims, err := a.tokens.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid or expired token"})
			return
		}

		ctx := c.Request.Context()
		as, err := a.appSess.Get(ctx, claims.SessionID)
		if err != nil {
			if !errors.Is(err, session.ErrSessionNotFound) {
				logging.Error("session lookup", zap.Error(err))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "session expired"})
			return
		}
		if as.UserID != claims.UserID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid session"})
			return
		}

		u, err := a.Repo.FindUserByID(ctx, claims.UserID)
		if err != nil {
			if !errors.Is(err, db.ErrNotFound) {
				logging.Error("load session user", zap.Error(err))
			}
			_ = a.appSess.Delete(ctx, claims.SessionID)
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "user not found"})
			return
		}
		if !u.IsActive {
			_ = a.appSess.Delete(ctx, claims.SessionID)
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "account is inactive"})
			return
		}

		c.Set(callerKey, access.Caller{UserID: u.ID, Role: u.Role, OfficeID: u.OfficeID})
		c.Set(sessionIDKey, claims.SessionID)
		c.Next()
	}
}

// CallerFrom returns the Caller set by AuthRequired.
func CallerFrom(c *gin.Context) (access.Caller, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return access.Caller{}, false
	}
	caller, ok := v.(access.Caller)
	return caller, ok
}

func SessionIDFrom(c *gin.Context) string { return c.GetString(sessionIDKey) }

// RequireRoles lets the request through only for the listed roles.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		for _, r := range roles {
			if caller.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "insufficient permissions"})
	}
}
