package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_asset_loan/access"
)

type DashboardController struct{ *Srv }

func NewDashboardController(s *Srv) *DashboardController { return &DashboardController{Srv: s} }

// GET /api/dashboard/stats
func (dc *DashboardController) Stats(c *gin.Context) {
	d, err := dc.Repo.Dashboard(c.Request.Context(), access.ScopeFor(caller(c), nil))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// GET /api/dashboard/chart/loans
func (dc *DashboardController) LoanTrend(c *gin.Context) {
	t, err := dc.Repo.LoanTrend(c.Request.Context(), access.ScopeFor(caller(c), nil))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}
