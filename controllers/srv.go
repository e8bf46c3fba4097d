// controllers/srv.go
package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"Gin_postgres_redis_asset_loan/access"
	"Gin_postgres_redis_asset_loan/app"
	"Gin_postgres_redis_asset_loan/clock"
	"Gin_postgres_redis_asset_loan/db"
	"Gin_postgres_redis_asset_loan/logging"
	"Gin_postgres_redis_asset_loan/session"
)

type Srv struct {
	Repo    *db.Repo
	AppSess *session.AppSessionStore
	Tokens  *session.Tokens
	Clock   clock.Clock
	Loc     *time.Location
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		Repo:    a.Repo,
		AppSess: a.AppSessions(),
		Tokens:  a.Tokens(),
		Clock:   a.Clock,
		Loc:     a.Repo.Loc,
	}
}

func init() {
	// Report JSON/query names instead of Go field names.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	}
}

// --- helpers ---

func caller(c *gin.Context) access.Caller {
	cl, _ := app.CallerFrom(c)
	return cl
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// bindError answers 400. Validator failures become a field list.
func bindError(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		out := make([]fieldError, 0, len(ve))
		for _, fe := range ve {
			out = append(out, fieldError{Field: fe.Field(), Message: fieldMessage(fe)})
		}
		c.JSON(http.StatusBadRequest, app.H{"errors": out})
		return
	}
	c.JSON(http.StatusBadRequest, app.H{"error": "invalid request: " + err.Error()})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	}
	return fe.Field() + " is invalid"
}

// fail maps repo errors to HTTP. Unknown errors are logged and hidden.
func fail(c *gin.Context, err error) {
	var de *db.Error
	if errors.As(err, &de) {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, db.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, db.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, db.ErrForbidden):
			status = http.StatusForbidden
		case errors.Is(err, db.ErrConflict):
			status = http.StatusConflict
		}
		c.JSON(status, app.H{"error": de.Msg})
		return
	}
	logging.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, app.H{"error": "internal server error"})
}

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func queryUint(c *gin.Context, name string) (*uint, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%s must be a positive integer", name)
	}
	u := uint(v)
	return &u, nil
}

func queryBool(c *gin.Context, name string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be true or false", name)
	}
	return &v, nil
}

func queryPage(c *gin.Context) db.Page {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	return db.Page{Page: page, Limit: limit}
}

// queryDate accepts YYYY-MM-DD (local midnight) or RFC 3339.
func (s *Srv) queryDate(c *gin.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, s.Loc); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be a date (YYYY-MM-DD)", name)
	}
	return &t, nil
}

// nullableID tells an absent field from an explicit null. Null and 0 both
// clear the reference; numeric strings are accepted.
type nullableID struct {
	Set   bool
	Value *uint
}

func (n *nullableID) UnmarshalJSON(b []byte) error {
	n.Set = true
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "null" || s == "" {
		return nil
	}
	var v uint64
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return fmt.Errorf("invalid id %q", s)
	}
	if v == 0 {
		return nil
	}
	u := uint(v)
	n.Value = &u
	return nil
}
