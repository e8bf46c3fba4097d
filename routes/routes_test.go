package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"Gin_postgres_redis_asset_loan/app"
	"Gin_postgres_redis_asset_loan/clock"
	"Gin_postgres_redis_asset_loan/config"
	"Gin_postgres_redis_asset_loan/db"
	"Gin_postgres_redis_asset_loan/models"
	"Gin_postgres_redis_asset_loan/session"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	session.BcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

const password = "rahasia123"

type env struct {
	t      *testing.T
	app    *app.App
	o1, o2 *models.Office
	a101   *models.Asset
	a201   *models.Asset
}

func newEnv(t *testing.T) *env {
	t.Helper()
	clk := clock.NewFake(time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC))

	conn, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)&_time_format=sqlite"), db.GormConfig(clk))
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(conn))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{
		WebOrigin:        "http://localhost:3000",
		JWTSecret:        "test-secret",
		SessionTTL:       time.Hour,
		LastSeenThrottle: time.Minute,
		Location:         time.UTC,
	}
	a := app.New(cfg, conn, rdb, clk)
	t.Cleanup(a.Close)
	RegisterRoutes(a.Router, a)

	e := &env{t: t, app: a}
	ctx := context.Background()
	repo := a.Repo

	e.o1, err = repo.CreateOffice(ctx, db.OfficeInput{Name: "Kantor Pusat"})
	require.NoError(t, err)
	e.o2, err = repo.CreateOffice(ctx, db.OfficeInput{Name: "Kantor Cabang"})
	require.NoError(t, err)
	cat, err := repo.CreateCategory(ctx, db.CategoryInput{Name: "Kendaraan", Type: models.CategoryVehicle})
	require.NoError(t, err)

	hash, err := session.HashPassword(password)
	require.NoError(t, err)
	for _, u := range []db.UserInput{
		{NIK: "1000000001", Username: "admin", Role: models.RoleAdmin},
		{NIK: "1000000002", Username: "guard1", Role: models.RoleSecurityGuard, OfficeID: &e.o1.ID},
		{NIK: "1000000003", Username: "guard2", Role: models.RoleSecurityGuard, OfficeID: &e.o2.ID},
		{NIK: "1000000004", Username: "boss", Role: models.RoleManagement},
	} {
		u.PasswordHash = hash
		u.FullName = u.Username
		_, err := repo.CreateUser(ctx, u)
		require.NoError(t, err)
	}

	e.a101, err = repo.CreateAsset(ctx, db.AssetInput{Name: "Avanza", Code: "A101", CategoryID: cat.ID, OfficeID: e.o1.ID})
	require.NoError(t, err)
	e.a201, err = repo.CreateAsset(ctx, db.AssetInput{Name: "Innova", Code: "A201", CategoryID: cat.ID, OfficeID: e.o2.ID})
	require.NoError(t, err)
	return e
}

func (e *env) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.app.Router.ServeHTTP(w, req)
	return w
}

func (e *env) login(username string) string {
	e.t.Helper()
	w := e.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &out))
	require.NotEmpty(e.t, out.Token)
	return out.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type loanEnvelope struct {
	Loan models.Loan `json:"loan"`
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginByNIKAndWrongPassword(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "1000000002", "password": password})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password\"")

	w = e.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "guard1", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "guard1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"password"`)
}

func TestLoanBorrowReturnScenario(t *testing.T) {
	e := newEnv(t)
	guard := e.login("guard1")

	body := map[string]any{"assetId": e.a101.ID, "borrowerName": "Budi"}
	w := e.do(http.MethodPost, "/api/loans", guard, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[loanEnvelope](t, w).Loan
	assert.Equal(t, models.LoanBorrowed, created.Status)
	require.NotNil(t, created.Asset)
	assert.False(t, created.Asset.IsAvailable)

	w = e.do(http.MethodPost, "/api/loans", guard, body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already borrowed")

	path := "/api/loans/" + itoa(created.ID) + "/return"
	w = e.do(http.MethodPatch, path, guard, map[string]string{"notes": "ok"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	returned := decode[loanEnvelope](t, w).Loan
	assert.Equal(t, models.LoanReturned, returned.Status)
	require.NotNil(t, returned.ActualReturnDate)
	assert.True(t, returned.ActualReturnDate.Equal(e.app.Clock.Now()))
	assert.True(t, returned.Asset.IsAvailable)

	w = e.do(http.MethodPatch, path, guard, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGuardCannotEscapeOffice(t *testing.T) {
	e := newEnv(t)
	guard := e.login("guard1")

	w := e.do(http.MethodGet, "/api/assets?officeId="+itoa(e.o2.ID), guard, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[db.AssetList](t, w)
	require.Len(t, list.Assets, 1)
	assert.Equal(t, e.o1.ID, list.Assets[0].OfficeID)

	w = e.do(http.MethodGet, "/api/assets/"+itoa(e.a201.ID), guard, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodPost, "/api/loans", guard, map[string]any{"assetId": e.a201.ID, "borrowerName": "Budi"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRoleGates(t *testing.T) {
	e := newEnv(t)
	guard := e.login("guard1")
	boss := e.login("boss")

	w := e.do(http.MethodGet, "/api/assets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	newAsset := map[string]any{"name": "Kunci R1", "code": "k-r1", "categoryId": e.a101.CategoryID, "officeId": e.o1.ID}
	w = e.do(http.MethodPost, "/api/assets", guard, newAsset)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(http.MethodPost, "/api/assets", boss, newAsset)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"code":"K-R1"`)

	w = e.do(http.MethodGet, "/api/users", guard, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = e.do(http.MethodGet, "/api/users", boss, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = e.do(http.MethodPost, "/api/offices", boss, map[string]string{"name": "Baru"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(http.MethodGet, "/api/users/profile", guard, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"guard1"`)
}

func TestValidationErrorsListFields(t *testing.T) {
	e := newEnv(t)
	guard := e.login("guard1")

	w := e.do(http.MethodPost, "/api/loans", guard, map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	out := decode[struct {
		Errors []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"errors"`
	}](t, w)
	fields := map[string]bool{}
	for _, fe := range out.Errors {
		fields[fe.Field] = true
	}
	assert.True(t, fields["assetId"])
	assert.True(t, fields["borrowerName"])

	w = e.do(http.MethodGet, "/api/loans/abc", guard, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = e.do(http.MethodGet, "/api/loans?status=LOST", guard, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogoutAndRevocation(t *testing.T) {
	e := newEnv(t)
	guard := e.login("guard1")
	admin := e.login("admin")

	w := e.do(http.MethodPost, "/api/auth/logout", guard, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = e.do(http.MethodGet, "/api/assets", guard, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	other := e.login("guard2")
	u, err := e.app.Repo.FindUserByLogin(context.Background(), "guard2")
	require.NoError(t, err)
	w = e.do(http.MethodPut, "/api/users/"+itoa(u.ID), admin, map[string]any{"isActive": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = e.do(http.MethodGet, "/api/assets", other, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	self, err := e.app.Repo.FindUserByLogin(context.Background(), "admin")
	require.NoError(t, err)
	w = e.do(http.MethodDelete, "/api/users/"+itoa(self.ID), admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCategoryDefaultRolesAndDeleteConflict(t *testing.T) {
	e := newEnv(t)
	admin := e.login("admin")
	guard := e.login("guard1")

	w := e.do(http.MethodPost, "/api/categories", admin, map[string]any{"name": "Kunci Ruang", "type": "ROOM_KEY"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"allowedRoles":"ADMIN,SECURITY_GUARD,MANAGEMENT"`)

	w = e.do(http.MethodDelete, "/api/categories/"+itoa(e.a101.CategoryID), admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = e.do(http.MethodDelete, "/api/offices/"+itoa(e.o1.ID), admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(http.MethodGet, "/api/assets/"+itoa(e.a101.ID), guard, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExportAndDashboard(t *testing.T) {
	e := newEnv(t)
	guard := e.login("guard1")

	w := e.do(http.MethodPost, "/api/loans", guard, map[string]any{"assetId": e.a101.ID, "borrowerName": "Budi"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(http.MethodGet, "/api/loans/export/xlsx?startDate=2025-03-10&endDate=2025-03-11", guard, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "attachment; filename=loans_2025-03-10.xlsx", w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.NotZero(t, w.Body.Len())

	w = e.do(http.MethodGet, "/api/dashboard/stats", guard, nil)
	require.Equal(t, http.StatusOK, w.Code)
	d := decode[db.Dashboard](t, w)
	assert.Equal(t, int64(1), d.Stats.ActiveLoanCount)
	assert.Equal(t, int64(1), d.Stats.TotalAssets)

	w = e.do(http.MethodGet, "/api/dashboard/chart/loans", guard, nil)
	require.Equal(t, http.StatusOK, w.Code)
	trend := decode[db.LoanTrend](t, w)
	assert.Len(t, trend.Labels, 7)
	assert.Equal(t, int64(1), trend.Datasets[0].Data[6])
}

func itoa(v uint) string {
	b, _ := json.Marshal(v)
	return string(b)
}
