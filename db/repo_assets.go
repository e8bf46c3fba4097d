// db/repo_assets.go
package db

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"Gin_postgres_redis_asset_loan/access"
	"Gin_postgres_redis_asset_loan/models"
)

type AssetFilter struct {
	Search      string
	CategoryID  *uint
	IsAvailable *bool
	IsActive    *bool
}

type AssetList struct {
	Assets     []models.Asset `json:"assets"`
	Pagination Pagination     `json:"pagination"`
}

type AssetInput struct {
	Name        string
	Code        string
	Description *string
	CategoryID  uint
	OfficeID    uint
}

type AssetPatch struct {
	Name        *string
	Code        *string
	Description *string
	CategoryID  *uint
	OfficeID    *uint
	IsAvailable *bool
	IsActive    *bool
}

// ListAssets pages over the assets inside scope whose category admits
// role. The category predicate is part of the counted query so the total
// matches what the caller can see.
func (r *Repo) ListAssets(ctx context.Context, scope access.Scope, role models.Role, f AssetFilter, p Page) (*AssetList, error) {
	p = p.normalize()

	tx := r.DB.WithContext(ctx).Model(&models.Asset{}).
		Joins("JOIN " + models.CategoryTable + " ON categories.id = assets.category_id")
	tx = withScope(tx, scope, "assets.office_id")
	tx = visibleTo(tx, role)

	if s := strings.TrimSpace(f.Search); s != "" {
		tx = search(tx, s, "assets.name", "assets.code", "COALESCE(assets.description, '')")
	}
	if f.CategoryID != nil {
		tx = tx.Where("assets.category_id = ?", *f.CategoryID)
	}
	if f.IsAvailable != nil {
		tx = tx.Where("assets.is_available = ?", *f.IsAvailable)
	}
	if f.IsActive != nil {
		tx = tx.Where("assets.is_active = ?", *f.IsActive)
	}
	base := tx.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, err
	}

	assets := []models.Asset{}
	if err := base.
		Preload("Category").
		Preload("Office").
		Order("assets.created_at DESC, assets.id DESC").
		Offset(p.offset()).
		Limit(p.Limit).
		Find(&assets).Error; err != nil {
		return nil, err
	}
	return &AssetList{Assets: assets, Pagination: newPagination(total, p)}, nil
}

// GetAsset returns the asset with its loan history. Out-of-scope assets
// read as not found; a category that excludes role is forbidden.
func (r *Repo) GetAsset(ctx context.Context, scope access.Scope, role models.Role, id uint) (*models.Asset, error) {
	var a models.Asset
	tx := r.DB.WithContext(ctx).
		Preload("Category").
		Preload("Office").
		Preload("Loans", func(db *gorm.DB) *gorm.DB {
			return db.Order("loan_date DESC, id DESC")
		}).
		Preload("Loans.User")
	tx = withScope(tx, scope, "office_id")
	if err := tx.First(&a, id).Error; err != nil {
		return nil, notFoundOr(err, "asset not found")
	}
	if a.Category != nil && !a.Category.AllowedRoles.Allows(role) {
		return nil, forbidden("you are not allowed to view this asset")
	}
	return &a, nil
}

func (r *Repo) CreateAsset(ctx context.Context, in AssetInput) (*models.Asset, error) {
	name := strings.TrimSpace(in.Name)
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if name == "" || code == "" {
		return nil, validation("name and code are required")
	}

	a := models.Asset{
		Name:        name,
		Code:        code,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		OfficeID:    in.OfficeID,
		IsAvailable: true,
		IsActive:    true,
	}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := codeTaken(tx, 0, code); err != nil {
			return err
		}
		if err := categoryExists(tx, in.CategoryID); err != nil {
			return err
		}
		if err := officeExists(tx, in.OfficeID); err != nil {
			return err
		}
		return tx.Create(&a).Error
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, conflict("asset code already exists")
		}
		return nil, err
	}
	return r.loadAsset(ctx, a.ID)
}

// UpdateAsset changes only the supplied fields. isAvailable is owned by
// the loan ledger; the only manual change allowed is re-opening an asset
// that has no BORROWED loan.
func (r *Repo) UpdateAsset(ctx context.Context, id uint, p AssetPatch) (*models.Asset, error) {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a models.Asset
		if err := tx.First(&a, id).Error; err != nil {
			return notFoundOr(err, "asset not found")
		}

		updates := map[string]any{}
		if p.Name != nil {
			name := strings.TrimSpace(*p.Name)
			if name == "" {
				return validation("name is required")
			}
			updates["name"] = name
		}
		if p.Code != nil {
			code := strings.ToUpper(strings.TrimSpace(*p.Code))
			if code == "" {
				return validation("code is required")
			}
			if err := codeTaken(tx, id, code); err != nil {
				return err
			}
			updates["code"] = code
		}
		if p.Description != nil {
			updates["description"] = nullIfBlank(*p.Description)
		}
		if p.CategoryID != nil {
			if err := categoryExists(tx, *p.CategoryID); err != nil {
				return err
			}
			updates["category_id"] = *p.CategoryID
		}
		if p.OfficeID != nil {
			if err := officeExists(tx, *p.OfficeID); err != nil {
				return err
			}
			updates["office_id"] = *p.OfficeID
		}
		if p.IsActive != nil {
			updates["is_active"] = *p.IsActive
		}
		if p.IsAvailable != nil && *p.IsAvailable != a.IsAvailable {
			if !*p.IsAvailable {
				return conflict("availability is changed by loans, not edited directly")
			}
			open, err := openLoanCount(tx, id)
			if err != nil {
				return err
			}
			if open > 0 {
				return ErrAlreadyBorrowed
			}
			updates["is_available"] = true
		}

		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&models.Asset{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, conflict("asset code already exists")
		}
		return nil, err
	}
	return r.loadAsset(ctx, id)
}

// DeleteAsset hard-deletes an asset with no BORROWED loan together with
// its closed loan history.
func (r *Repo) DeleteAsset(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a models.Asset
		if err := tx.First(&a, id).Error; err != nil {
			return notFoundOr(err, "asset not found")
		}
		open, err := openLoanCount(tx, id)
		if err != nil {
			return err
		}
		if open > 0 {
			return conflict("asset has an active loan")
		}
		if err := tx.Where("asset_id = ?", id).Delete(&models.Loan{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Asset{}, id).Error
	})
}

func (r *Repo) loadAsset(ctx context.Context, id uint) (*models.Asset, error) {
	var a models.Asset
	if err := r.DB.WithContext(ctx).
		Preload("Category").
		Preload("Office").
		First(&a, id).Error; err != nil {
		return nil, notFoundOr(err, "asset not found")
	}
	return &a, nil
}

func codeTaken(tx *gorm.DB, selfID uint, code string) error {
	q := tx.Model(&models.Asset{}).Where("UPPER(code) = ?", code)
	if selfID != 0 {
		q = q.Where("id <> ?", selfID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return conflict("asset code already exists")
	}
	return nil
}

func openLoanCount(tx *gorm.DB, assetID uint) (int64, error) {
	var n int64
	err := tx.Model(&models.Loan{}).
		Where("asset_id = ? AND status = ?", assetID, models.LoanBorrowed).
		Count(&n).Error
	return n, err
}
