package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_asset_loan/app"
	"Gin_postgres_redis_asset_loan/controllers"
	"Gin_postgres_redis_asset_loan/models"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	s := controllers.GetSrv(a)
	authCtl := controllers.NewAuthController(s)
	officeCtl := controllers.NewOfficeController(s)
	categoryCtl := controllers.NewCategoryController(s)
	userCtl := controllers.NewUserController(s)
	assetCtl := controllers.NewAssetController(s)
	loanCtl := controllers.NewLoanController(s)
	dashCtl := controllers.NewDashboardController(s)

	authMW := app.AuthRequired(a)
	seenMW := app.TouchLastSeen(a.Repo, a.RDB, a.Config.LastSeenThrottle)
	adminOnly := app.RequireRoles(models.RoleAdmin)
	staff := app.RequireRoles(models.RoleAdmin, models.RoleManagement)

	api := r.Group("/api")
	api.GET("/health", func(c *app.Ctx) {
		c.JSON(http.StatusOK, app.H{"status": "OK", "time": a.Clock.Now()})
	})
	api.POST("/auth/login", authCtl.Login)

	priv := api.Group("", authMW, seenMW)
	priv.POST("/auth/logout", authCtl.Logout)

	offices := priv.Group("/offices")
	{
		offices.GET("", officeCtl.List)
		offices.GET("/:id", officeCtl.Get)
		offices.POST("", adminOnly, officeCtl.Create)
		offices.PUT("/:id", adminOnly, officeCtl.Update)
		offices.DELETE("/:id", adminOnly, officeCtl.Delete)
	}

	categories := priv.Group("/categories")
	{
		categories.GET("", categoryCtl.List)
		categories.GET("/:id", categoryCtl.Get)
		categories.POST("", adminOnly, categoryCtl.Create)
		categories.PUT("/:id", adminOnly, categoryCtl.Update)
		categories.DELETE("/:id", adminOnly, categoryCtl.Delete)
	}

	users := priv.Group("/users")
	{
		users.GET("", staff, userCtl.List)
		users.GET("/profile", userCtl.Profile)
		users.POST("", adminOnly, userCtl.Create)
		users.PUT("/:id", adminOnly, userCtl.Update)
		users.DELETE("/:id", adminOnly, userCtl.Delete)
	}

	assets := priv.Group("/assets")
	{
		assets.GET("", assetCtl.List)
		assets.GET("/:id", assetCtl.Get)
		assets.POST("", staff, assetCtl.Create)
		assets.PUT("/:id", staff, assetCtl.Update)
		assets.DELETE("/:id", staff, assetCtl.Delete)
	}

	loans := priv.Group("/loans")
	{
		loans.GET("", loanCtl.List)
		loans.GET("/export/xlsx", loanCtl.Export)
		loans.GET("/:id", loanCtl.Get)
		loans.POST("", loanCtl.Create)
		loans.PATCH("/:id/return", loanCtl.Return)
		loans.PATCH("/:id/overdue", loanCtl.MarkOverdue)
	}

	dash := priv.Group("/dashboard")
	{
		dash.GET("/stats", dashCtl.Stats)
		dash.GET("/chart/loans", dashCtl.LoanTrend)
	}
}
