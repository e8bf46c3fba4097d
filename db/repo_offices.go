// db/repo_offices.go
package db

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"Gin_postgres_redis_asset_loan/models"
)

type OfficeRow struct {
	models.Office
	UserCount  int64 `json:"userCount"`
	AssetCount int64 `json:"assetCount"`
}

type OfficeDetail struct {
	OfficeRow
	Users  []models.User  `json:"users"`
	Assets []models.Asset `json:"assets"`
}

type OfficeFilter struct {
	Search   string
	IsActive *bool
}

type OfficeInput struct {
	Name     string
	Address  *string
	IsActive *bool
}

type OfficePatch struct {
	Name     *string
	Address  *string
	IsActive *bool
}

type countRow struct {
	ID uint
	N  int64
}

// countBy returns the number of rows of model per value of col for ids.
func countBy(tx *gorm.DB, model any, col string, ids []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []countRow
	if err := tx.Model(model).
		Select(col+" AS id, COUNT(*) AS n").
		Where(col+" IN ?", ids).
		Group(col).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r.N
	}
	return out, nil
}

func (r *Repo) ListOffices(ctx context.Context, f OfficeFilter) ([]OfficeRow, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Office{})
	if s := strings.TrimSpace(f.Search); s != "" {
		tx = search(tx, s, "name", "COALESCE(address, '')")
	}
	if f.IsActive != nil {
		tx = tx.Where("is_active = ?", *f.IsActive)
	}
	var offices []models.Office
	if err := tx.Order("name ASC").Find(&offices).Error; err != nil {
		return nil, err
	}

	ids := make([]uint, len(offices))
	for i, o := range offices {
		ids[i] = o.ID
	}
	db := r.DB.WithContext(ctx)
	users, err := countBy(db, &models.User{}, "office_id", ids)
	if err != nil {
		return nil, err
	}
	assets, err := countBy(db, &models.Asset{}, "office_id", ids)
	if err != nil {
		return nil, err
	}

	rows := make([]OfficeRow, len(offices))
	for i, o := range offices {
		rows[i] = OfficeRow{Office: o, UserCount: users[o.ID], AssetCount: assets[o.ID]}
	}
	return rows, nil
}

func (r *Repo) GetOffice(ctx context.Context, id uint) (*OfficeDetail, error) {
	db := r.DB.WithContext(ctx)
	var o models.Office
	if err := db.First(&o, id).Error; err != nil {
		return nil, notFoundOr(err, "office not found")
	}
	d := OfficeDetail{OfficeRow: OfficeRow{Office: o}, Users: []models.User{}, Assets: []models.Asset{}}
	if err := db.Where("office_id = ?", id).Order("full_name ASC").Find(&d.Users).Error; err != nil {
		return nil, err
	}
	if err := db.Preload("Category").Where("office_id = ?", id).Order("name ASC").Find(&d.Assets).Error; err != nil {
		return nil, err
	}
	d.UserCount = int64(len(d.Users))
	d.AssetCount = int64(len(d.Assets))
	return &d, nil
}

func (r *Repo) CreateOffice(ctx context.Context, in OfficeInput) (*models.Office, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, validation("office name is required")
	}
	o := models.Office{Name: name, Address: in.Address, IsActive: true}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := nameTaken(tx, &models.Office{}, 0, name, "office name already exists"); err != nil {
			return err
		}
		if err := tx.Create(&o).Error; err != nil {
			return err
		}
		if err := keepInactive(tx, &models.Office{}, o.ID, in.IsActive); err != nil {
			return err
		}
		return tx.First(&o, o.ID).Error
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, conflict("office name already exists")
		}
		return nil, err
	}
	return &o, nil
}

func (r *Repo) UpdateOffice(ctx context.Context, id uint, p OfficePatch) (*models.Office, error) {
	var o models.Office
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&o, id).Error; err != nil {
			return notFoundOr(err, "office not found")
		}
		updates := map[string]any{}
		if p.Name != nil {
			name := strings.TrimSpace(*p.Name)
			if name == "" {
				return validation("office name is required")
			}
			if err := nameTaken(tx, &models.Office{}, id, name, "office name already exists"); err != nil {
				return err
			}
			updates["name"] = name
		}
		if p.Address != nil {
			updates["address"] = nullIfBlank(*p.Address)
		}
		if p.IsActive != nil {
			updates["is_active"] = *p.IsActive
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Office{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}
		return tx.First(&o, id).Error
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, conflict("office name already exists")
		}
		return nil, err
	}
	return &o, nil
}

// DeleteOffice refuses while any user or asset belongs to the office.
func (r *Repo) DeleteOffice(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o models.Office
		if err := tx.First(&o, id).Error; err != nil {
			return notFoundOr(err, "office not found")
		}
		var users, assets int64
		if err := tx.Model(&models.User{}).Where("office_id = ?", id).Count(&users).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Asset{}).Where("office_id = ?", id).Count(&assets).Error; err != nil {
			return err
		}
		if users > 0 || assets > 0 {
			return conflict("office still has users or assets")
		}
		return tx.Delete(&models.Office{}, id).Error
	})
}

func nameTaken(tx *gorm.DB, model any, selfID uint, name, msg string) error {
	q := tx.Model(model).Where("LOWER(name) = ?", strings.ToLower(name))
	if selfID != 0 {
		q = q.Where("id <> ?", selfID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return conflict(msg)
	}
	return nil
}

// nullIfBlank maps "" to SQL NULL for optional text columns.
func nullIfBlank(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
