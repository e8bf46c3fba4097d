// db/repo_categories.go
package db

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"Gin_postgres_redis_asset_loan/models"
)

type CategoryRow struct {
	models.Category
	AssetCount int64 `json:"assetCount"`
}

type CategoryFilter struct {
	Search   string
	Type     models.CategoryType
	IsActive *bool
}

type CategoryInput struct {
	Name         string
	Type         models.CategoryType
	Description  *string
	IsActive     *bool
	AllowedRoles models.RoleSet // empty means every role
}

type CategoryPatch struct {
	Name         *string
	Type         *models.CategoryType
	Description  *string
	IsActive     *bool
	AllowedRoles *models.RoleSet
}

func (r *Repo) ListCategories(ctx context.Context, f CategoryFilter) ([]CategoryRow, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Category{})
	if s := strings.TrimSpace(f.Search); s != "" {
		tx = search(tx, s, "name", "COALESCE(description, '')")
	}
	if f.Type != "" {
		tx = tx.Where("type = ?", f.Type)
	}
	if f.IsActive != nil {
		tx = tx.Where("is_active = ?", *f.IsActive)
	}
	var cats []models.Category
	if err := tx.Order("name ASC").Find(&cats).Error; err != nil {
		return nil, err
	}

	ids := make([]uint, len(cats))
	for i, c := range cats {
		ids[i] = c.ID
	}
	counts, err := countBy(r.DB.WithContext(ctx), &models.Asset{}, "category_id", ids)
	if err != nil {
		return nil, err
	}
	rows := make([]CategoryRow, len(cats))
	for i, c := range cats {
		rows[i] = CategoryRow{Category: c, AssetCount: counts[c.ID]}
	}
	return rows, nil
}

func (r *Repo) GetCategory(ctx context.Context, id uint) (*CategoryRow, error) {
	db := r.DB.WithContext(ctx)
	var c models.Category
	if err := db.First(&c, id).Error; err != nil {
		return nil, notFoundOr(err, "category not found")
	}
	row := CategoryRow{Category: c}
	if err := db.Model(&models.Asset{}).Where("category_id = ?", id).Count(&row.AssetCount).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repo) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, validation("category name is required")
	}
	if !in.Type.Valid() {
		return nil, validation("invalid category type")
	}
	roles := in.AllowedRoles
	if len(roles) == 0 {
		roles = append(models.RoleSet(nil), models.AllRoles...)
	}
	c := models.Category{
		Name:         name,
		Type:         in.Type,
		Description:  in.Description,
		IsActive:     true,
		AllowedRoles: roles,
	}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := nameTaken(tx, &models.Category{}, 0, name, "category name already exists"); err != nil {
			return err
		}
		if err := tx.Create(&c).Error; err != nil {
			return err
		}
		if err := keepInactive(tx, &models.Category{}, c.ID, in.IsActive); err != nil {
			return err
		}
		return tx.First(&c, c.ID).Error
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, conflict("category name already exists")
		}
		return nil, err
	}
	return &c, nil
}

func (r *Repo) UpdateCategory(ctx context.Context, id uint, p CategoryPatch) (*models.Category, error) {
	var c models.Category
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&c, id).Error; err != nil {
			return notFoundOr(err, "category not found")
		}
		updates := map[string]any{}
		if p.Name != nil {
			name := strings.TrimSpace(*p.Name)
			if name == "" {
				return validation("category name is required")
			}
			if err := nameTaken(tx, &models.Category{}, id, name, "category name already exists"); err != nil {
				return err
			}
			updates["name"] = name
		}
		if p.Type != nil {
			if !p.Type.Valid() {
				return validation("invalid category type")
			}
			updates["type"] = *p.Type
		}
		if p.Description != nil {
			updates["description"] = nullIfBlank(*p.Description)
		}
		if p.IsActive != nil {
			updates["is_active"] = *p.IsActive
		}
		if p.AllowedRoles != nil {
			updates["allowed_roles"] = p.AllowedRoles.String()
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Category{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}
		return tx.First(&c, id).Error
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, conflict("category name already exists")
		}
		return nil, err
	}
	return &c, nil
}

// DeleteCategory refuses while any asset belongs to the category.
func (r *Repo) DeleteCategory(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Category
		if err := tx.First(&c, id).Error; err != nil {
			return notFoundOr(err, "category not found")
		}
		var n int64
		if err := tx.Model(&models.Asset{}).Where("category_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return conflict("category still has assets")
		}
		return tx.Delete(&models.Category{}, id).Error
	})
}
