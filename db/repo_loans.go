package db

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Gin_postgres_redis_asset_loan/access"
	"Gin_postgres_redis_asset_loan/logging"
	"Gin_postgres_redis_asset_loan/models"
)

type LoanInput struct {
	AssetID           uint
	BorrowerName      string
	BorrowerPhone     *string
	Purpose           *string
	ReturnDate        *time.Time
	IsThirdParty      bool
	ThirdPartyName    *string
	ThirdPartyAddress *string
	LoanPhoto         *string
}

type ReturnInput struct {
	Notes       *string
	ReturnPhoto *string
}

// LoanFilter is shared by listing and export. Listing treats EndDate as
// the whole day; export treats it as an inclusive instant.
type LoanFilter struct {
	Search    string
	Status    models.LoanStatus
	AssetID   *uint
	UserID    *uint
	StartDate *time.Time
	EndDate   *time.Time
}

type LoanList struct {
	Loans      []models.Loan `json:"loans"`
	Pagination Pagination    `json:"pagination"`
}

// CreateLoan records a BORROWED loan and takes the asset out of
// circulation in one transaction. The availability flip is conditional,
// so of two racing creates only one can commit.
func (r *Repo) CreateLoan(ctx context.Context, caller access.Caller, in LoanInput) (*models.Loan, error) {
	name := strings.TrimSpace(in.BorrowerName)
	if name == "" {
		return nil, validation("borrower name is required")
	}

	var loan models.Loan
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a models.Asset
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&a, in.AssetID).Error; err != nil {
			return notFoundOr(err, "asset not found")
		}
		if !a.IsActive {
			return validation("asset is not active")
		}
		if !a.IsAvailable {
			return ErrAlreadyBorrowed
		}
		if !access.ScopeFor(caller, nil).Contains(a.OfficeID) {
			return forbidden("you can only lend assets from your own office")
		}
		open, err := openLoanCount(tx, a.ID)
		if err != nil {
			return err
		}
		if open > 0 {
			return ErrAlreadyBorrowed
		}

		res := tx.Model(&models.Asset{}).
			Where("id = ? AND is_available = ? AND is_active = ?", a.ID, true, true).
			Update("is_available", false)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyBorrowed
		}

		loan = models.Loan{
			AssetID:       a.ID,
			BorrowerName:  name,
			BorrowerPhone: in.BorrowerPhone,
			Purpose:       in.Purpose,
			LoanDate:      r.now(),
			ReturnDate:    in.ReturnDate,
			Status:        models.LoanBorrowed,
			IsThirdParty:  in.IsThirdParty,
			LoanPhoto:     in.LoanPhoto,
		}
		if caller.UserID != 0 {
			uid := caller.UserID
			loan.UserID = &uid
		}
		if in.IsThirdParty {
			loan.ThirdPartyName = in.ThirdPartyName
			loan.ThirdPartyAddress = in.ThirdPartyAddress
		}
		if err := tx.Create(&loan).Error; err != nil {
			if isDuplicate(err) {
				return ErrAlreadyBorrowed
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Info("loan created",
		zap.Uint("loan_id", loan.ID),
		zap.Uint("asset_id", loan.AssetID),
		zap.Uint("user_id", caller.UserID),
		zap.String("role", string(caller.Role)),
	)
	return r.loadLoan(ctx, loan.ID)
}

// ReturnLoan closes a BORROWED loan and makes its asset available again.
// Any other status, OVERDUE included, is a conflict.
func (r *Repo) ReturnLoan(ctx context.Context, scope access.Scope, id uint, in ReturnInput) (*models.Loan, error) {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l, err := lockLoanInScope(tx, scope, id)
		if err != nil {
			return err
		}
		if l.Status != models.LoanBorrowed {
			return ErrLoanNotOpen
		}

		updates := map[string]any{
			"status":             models.LoanReturned,
			"actual_return_date": r.now(),
			"notes":              nil,
		}
		if in.Notes != nil {
			updates["notes"] = nullIfBlank(*in.Notes)
		}
		if in.ReturnPhoto != nil {
			updates["return_photo"] = nullIfBlank(*in.ReturnPhoto)
		}
		res := tx.Model(&models.Loan{}).
			Where("id = ? AND status = ?", id, models.LoanBorrowed).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrLoanNotOpen
		}

		return tx.Model(&models.Asset{}).
			Where("id = ?", l.AssetID).
			Update("is_available", true).Error
	})
	if err != nil {
		return nil, err
	}
	logging.Info("loan returned", zap.Uint("loan_id", id))
	return r.loadLoan(ctx, id)
}

// MarkOverdue flags a BORROWED loan as OVERDUE. The asset stays
// unavailable until it is re-opened.
func (r *Repo) MarkOverdue(ctx context.Context, scope access.Scope, id uint) (*models.Loan, error) {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l, err := lockLoanInScope(tx, scope, id)
		if err != nil {
			return err
		}
		if l.Status != models.LoanBorrowed {
			return ErrLoanNotOpen
		}
		res := tx.Model(&models.Loan{}).
			Where("id = ? AND status = ?", id, models.LoanBorrowed).
			Update("status", models.LoanOverdue)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrLoanNotOpen
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.Info("loan marked overdue", zap.Uint("loan_id", id))
	return r.loadLoan(ctx, id)
}

func (r *Repo) ListLoans(ctx context.Context, scope access.Scope, f LoanFilter, p Page) (*LoanList, error) {
	p = p.normalize()
	base := r.loanQuery(ctx, scope, f, false).Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, err
	}

	loans := []models.Loan{}
	if err := base.
		Preload("Asset.Category").
		Preload("Asset.Office").
		Preload("User").
		Order("loans.created_at DESC, loans.id DESC").
		Offset(p.offset()).
		Limit(p.Limit).
		Find(&loans).Error; err != nil {
		return nil, err
	}
	return &LoanList{Loans: loans, Pagination: newPagination(total, p)}, nil
}

// ExportLoans returns every matching loan, newest loan date first, with
// the display fields the spreadsheet needs.
func (r *Repo) ExportLoans(ctx context.Context, scope access.Scope, f LoanFilter) ([]models.Loan, error) {
	loans := []models.Loan{}
	err := r.loanQuery(ctx, scope, f, true).
		Preload("Asset.Category").
		Preload("Asset.Office").
		Preload("User").
		Order("loans.loan_date DESC, loans.id DESC").
		Find(&loans).Error
	return loans, err
}

func (r *Repo) GetLoan(ctx context.Context, scope access.Scope, id uint) (*models.Loan, error) {
	var l models.Loan
	tx := r.DB.WithContext(ctx).Model(&models.Loan{}).
		Joins("JOIN " + models.AssetTable + " ON assets.id = loans.asset_id")
	tx = withScope(tx, scope, "assets.office_id")
	if err := tx.
		Preload("Asset.Category").
		Preload("Asset.Office").
		Preload("User").
		Where("loans.id = ?", id).
		First(&l).Error; err != nil {
		return nil, notFoundOr(err, "loan not found")
	}
	return &l, nil
}

// OverdueCandidates lists BORROWED loans whose target return time is
// before now.
func (r *Repo) OverdueCandidates(ctx context.Context, now time.Time) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&models.Loan{}).
		Where("status = ? AND return_date IS NOT NULL AND return_date < ?", models.LoanBorrowed, now).
		Order("return_date ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *Repo) loanQuery(ctx context.Context, scope access.Scope, f LoanFilter, inclusiveEnd bool) *gorm.DB {
	tx := r.DB.WithContext(ctx).Model(&models.Loan{}).
		Joins("JOIN " + models.AssetTable + " ON assets.id = loans.asset_id")
	tx = withScope(tx, scope, "assets.office_id")

	if s := strings.TrimSpace(f.Search); s != "" {
		tx = search(tx, s,
			"loans.borrower_name",
			"COALESCE(loans.borrower_phone, '')",
			"COALESCE(loans.purpose, '')",
			"assets.name",
			"assets.code",
		)
	}
	if f.Status != "" {
		tx = tx.Where("loans.status = ?", f.Status)
	}
	if f.AssetID != nil {
		tx = tx.Where("loans.asset_id = ?", *f.AssetID)
	}
	if f.UserID != nil {
		tx = tx.Where("loans.user_id = ?", *f.UserID)
	}

	switch {
	case inclusiveEnd:
		if f.StartDate != nil {
			tx = tx.Where("loans.loan_date >= ?", f.StartDate.UTC())
		}
		if f.EndDate != nil {
			tx = tx.Where("loans.loan_date <= ?", f.EndDate.UTC())
		}
	case f.StartDate != nil && f.EndDate != nil:
		tx = tx.Where("loans.loan_date >= ? AND loans.loan_date < ?", f.StartDate.UTC(), f.EndDate.AddDate(0, 0, 1).UTC())
	}
	return tx
}

func lockLoanInScope(tx *gorm.DB, scope access.Scope, id uint) (*models.Loan, error) {
	var l models.Loan
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&l, id).Error; err != nil {
		return nil, notFoundOr(err, "loan not found")
	}
	if !scope.Unrestricted() {
		var a models.Asset
		if err := tx.Select("id", "office_id").First(&a, l.AssetID).Error; err != nil {
			return nil, notFoundOr(err, "loan not found")
		}
		if !scope.Contains(a.OfficeID) {
			return nil, notFound("loan not found")
		}
	}
	return &l, nil
}

func (r *Repo) loadLoan(ctx context.Context, id uint) (*models.Loan, error) {
	var l models.Loan
	if err := r.DB.WithContext(ctx).
		Preload("Asset.Category").
		Preload("Asset.Office").
		Preload("User").
		First(&l, id).Error; err != nil {
		return nil, notFoundOr(err, "loan not found")
	}
	return &l, nil
}
