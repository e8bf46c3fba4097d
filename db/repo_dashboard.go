// db/repo_dashboard.go
package db

import (
	"context"

	"gorm.io/gorm"

	"Gin_postgres_redis_asset_loan/access"
	"Gin_postgres_redis_asset_loan/models"
)

type DashboardStats struct {
	TotalCategories    int64 `json:"totalCategories"`
	TotalAssets        int64 `json:"totalAssets"`
	LoansToday         int64 `json:"loansToday"`
	ActiveLoanCount    int64 `json:"activeLoanCount"`
	ReturnedTodayCount int64 `json:"returnedTodayCount"`
	OverdueLoanCount   int64 `json:"overdueLoanCount"`
	AvailableAssets    int64 `json:"availableAssets"`
	UnavailableAssets  int64 `json:"unavailableAssets"`
}

type Dashboard struct {
	Stats       DashboardStats `json:"stats"`
	RecentLoans []models.Loan  `json:"recentLoans"`
}

type TrendDataset struct {
	Label string  `json:"label"`
	Data  []int64 `json:"data"`
}

// LoanTrend is shaped for a line chart: one label and one count per day.
type LoanTrend struct {
	Labels   []string       `json:"labels"`
	Datasets []TrendDataset `json:"datasets"`
}

const trendDays = 7

// Dashboard counts within scope. "Today" is the local calendar day of the
// configured zone.
func (r *Repo) Dashboard(ctx context.Context, scope access.Scope) (*Dashboard, error) {
	db := r.DB.WithContext(ctx)
	today, tomorrow := dayWindow(r.startOfDay(r.now()))

	assets := func() *gorm.DB {
		return withScope(db.Model(&models.Asset{}), scope, "office_id").Where("is_active = ?", true)
	}
	loans := func() *gorm.DB {
		tx := db.Model(&models.Loan{}).Joins("JOIN " + models.AssetTable + " ON assets.id = loans.asset_id")
		return withScope(tx, scope, "assets.office_id")
	}

	var s DashboardStats
	steps := []struct {
		q   *gorm.DB
		dst *int64
	}{
		{db.Model(&models.Category{}).Where("is_active = ?", true), &s.TotalCategories},
		{assets(), &s.TotalAssets},
		{loans().Where("loans.loan_date >= ? AND loans.loan_date < ?", today, tomorrow), &s.LoansToday},
		{loans().Where("loans.status = ?", models.LoanBorrowed), &s.ActiveLoanCount},
		{loans().Where("loans.status = ? AND loans.actual_return_date >= ? AND loans.actual_return_date < ?",
			models.LoanReturned, today, tomorrow), &s.ReturnedTodayCount},
		{loans().Where("loans.status = ?", models.LoanOverdue), &s.OverdueLoanCount},
		{assets().Where("is_available = ?", true), &s.AvailableAssets},
		{assets().Where("is_available = ?", false), &s.UnavailableAssets},
	}
	for _, st := range steps {
		if err := st.q.Count(st.dst).Error; err != nil {
			return nil, err
		}
	}

	recent := []models.Loan{}
	if err := loans().
		Preload("Asset.Category").
		Preload("Asset.Office").
		Preload("User").
		Order("loans.created_at DESC, loans.id DESC").
		Limit(10).
		Find(&recent).Error; err != nil {
		return nil, err
	}
	return &Dashboard{Stats: s, RecentLoans: recent}, nil
}

// LoanTrend counts loans per local day for the last seven days, oldest
// first and today last.
func (r *Repo) LoanTrend(ctx context.Context, scope access.Scope) (*LoanTrend, error) {
	db := r.DB.WithContext(ctx)
	today := r.startOfDay(r.now())

	out := &LoanTrend{
		Labels:   make([]string, 0, trendDays),
		Datasets: []TrendDataset{{Label: "Daily loans", Data: make([]int64, 0, trendDays)}},
	}
	for i := trendDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		from, to := dayWindow(day)

		tx := db.Model(&models.Loan{}).Joins("JOIN " + models.AssetTable + " ON assets.id = loans.asset_id")
		tx = withScope(tx, scope, "assets.office_id")
		var n int64
		if err := tx.Where("loans.loan_date >= ? AND loans.loan_date < ?", from, to).Count(&n).Error; err != nil {
			return nil, err
		}
		out.Labels = append(out.Labels, day.Format("02 Jan"))
		out.Datasets[0].Data = append(out.Datasets[0].Data, n)
	}
	return out, nil
}
