package db

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"Gin_postgres_redis_asset_loan/access"
	"Gin_postgres_redis_asset_loan/clock"
	"Gin_postgres_redis_asset_loan/models"
)

type Repo struct {
	DB    *gorm.DB
	Clock clock.Clock
	Loc   *time.Location
}

func NewRepo(db *gorm.DB, clk clock.Clock, loc *time.Location) *Repo {
	if clk == nil {
		clk = clock.Real()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Repo{DB: db, Clock: clk, Loc: loc}
}

func (r *Repo) now() time.Time { return r.Clock.Now() }

// startOfDay is local midnight of t in the configured zone.
func (r *Repo) startOfDay(t time.Time) time.Time {
	t = t.In(r.Loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, r.Loc)
}

// dayWindow is [day, next local midnight) as UTC instants, so bounds compare
// the same way whatever offset the driver stores.
func dayWindow(day time.Time) (time.Time, time.Time) {
	return day.UTC(), day.AddDate(0, 0, 1).UTC()
}

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

func (p Page) normalize() Page {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = 10
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	return p
}

func (p Page) offset() int { return (p.Page - 1) * p.Limit }

type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

func newPagination(total int64, p Page) Pagination {
	return Pagination{
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(p.Limit))),
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern is a lower-cased substring pattern with LIKE metacharacters
// escaped by backslash.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(s))) + "%"
}

// search keeps rows where any of cols contains s, ignoring case.
func search(tx *gorm.DB, s string, cols ...string) *gorm.DB {
	like := likePattern(s)
	conds := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		conds[i] = "LOWER(" + col + ") LIKE ? ESCAPE '\\'"
		args[i] = like
	}
	return tx.Where("("+strings.Join(conds, " OR ")+")", args...)
}

// withScope adds the office predicate for s on col.
func withScope(tx *gorm.DB, s access.Scope, col string) *gorm.DB {
	if s.Deny {
		return tx.Where("1 = 0")
	}
	if s.OfficeID != nil {
		return tx.Where(col+" = ?", *s.OfficeID)
	}
	return tx
}

// visibleTo keeps rows whose joined category admits role. Needs a join on
// categories.
func visibleTo(tx *gorm.DB, role models.Role) *gorm.DB {
	return tx.Where(
		"(categories.allowed_roles IS NULL OR categories.allowed_roles = '' OR (',' || categories.allowed_roles || ',') LIKE ?)",
		"%,"+string(role)+",%",
	)
}

// Users

func (r *Repo) TouchUserLogin(ctx context.Context, userID uint, ip, ua string) error {
	now := r.now()
	if len(ua) > 255 {
		ua = ua[:255]
	}
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"last_login_at": now,
			"last_seen_at":  now,
			"login_count":   gorm.Expr("COALESCE(login_count, 0) + 1"),
			"last_login_ip": ip,
			"last_login_ua": ua,
		}).Error
}

func (r *Repo) TouchUserSeen(ctx context.Context, userID uint) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_seen_at", r.now()).Error
}

func (r *Repo) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).Preload("Office").First(&u, id).Error; err != nil {
		return nil, notFoundOr(err, "user not found")
	}
	return &u, nil
}

// FindUserByLogin matches login against username or nik.
func (r *Repo) FindUserByLogin(ctx context.Context, login string) (*models.User, error) {
	login = strings.TrimSpace(login)
	var u models.User
	// A username wins over another account's NIK.
	for _, col := range []string{"username", "nik"} {
		err := r.DB.WithContext(ctx).Preload("Office").Where(col+" = ?", login).First(&u).Error
		if err == nil {
			return &u, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, notFound("user not found")
}

func (r *Repo) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Count(&n).Error
	return n, err
}
