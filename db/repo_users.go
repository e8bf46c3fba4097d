// db/repo_users.go
package db

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"Gin_postgres_redis_asset_loan/models"
)

type UserInput struct {
	NIK          string
	Username     string
	PasswordHash string
	FullName     string
	Role         models.Role
	OfficeID     *uint
	IsActive     *bool
}

// UserPatch changes only the non-nil fields. ClearOffice detaches the user
// from its office.
type UserPatch struct {
	NIK          *string
	Username     *string
	PasswordHash *string
	FullName     *string
	Role         *models.Role
	OfficeID     *uint
	ClearOffice  bool
	IsActive     *bool
}

type UserFilter struct {
	Search   string
	Role     models.Role
	OfficeID *uint
}

type UserList struct {
	Users      []models.User `json:"users"`
	Pagination Pagination    `json:"pagination"`
}

func (r *Repo) ListUsers(ctx context.Context, f UserFilter, p Page) (*UserList, error) {
	p = p.normalize()

	tx := r.DB.WithContext(ctx).Model(&models.User{})
	if s := strings.TrimSpace(f.Search); s != "" {
		tx = search(tx, s, "full_name", "username", "nik")
	}
	if f.Role != "" {
		tx = tx.Where("role = ?", f.Role)
	}
	if f.OfficeID != nil {
		tx = tx.Where("office_id = ?", *f.OfficeID)
	}
	base := tx.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, err
	}

	users := []models.User{}
	if err := base.Preload("Office").
		Order("created_at DESC, id DESC").
		Offset(p.offset()).
		Limit(p.Limit).
		Find(&users).Error; err != nil {
		return nil, err
	}
	return &UserList{Users: users, Pagination: newPagination(total, p)}, nil
}

func (r *Repo) CreateUser(ctx context.Context, in UserInput) (*models.User, error) {
	in.NIK = strings.TrimSpace(in.NIK)
	in.Username = strings.TrimSpace(in.Username)
	if !in.Role.Valid() {
		return nil, validation("invalid role")
	}
	if in.Role == models.RoleSecurityGuard && in.OfficeID == nil {
		return nil, validation("security guard must be assigned to an office")
	}

	u := models.User{
		NIK:      in.NIK,
		Username: in.Username,
		Password: in.PasswordHash,
		FullName: strings.TrimSpace(in.FullName),
		Role:     in.Role,
		OfficeID: in.OfficeID,
		IsActive: true,
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.checkUserUnique(tx, 0, in.NIK, in.Username); err != nil {
			return err
		}
		if in.OfficeID != nil {
			if err := officeExists(tx, *in.OfficeID); err != nil {
				return err
			}
		}
		if err := tx.Create(&u).Error; err != nil {
			return err
		}
		return keepInactive(tx, &models.User{}, u.ID, in.IsActive)
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, conflict("nik or username already in use")
		}
		return nil, err
	}
	return r.FindUserByID(ctx, u.ID)
}

// UpdateUser applies p and reports whether the user's sessions must be
// revoked (password, role or activation changed).
func (r *Repo) UpdateUser(ctx context.Context, id uint, p UserPatch) (*models.User, bool, error) {
	revoke := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.First(&u, id).Error; err != nil {
			return notFoundOr(err, "user not found")
		}

		updates := map[string]any{}
		nik, username := "", ""
		if p.NIK != nil {
			nik = strings.TrimSpace(*p.NIK)
			updates["nik"] = nik
		}
		if p.Username != nil {
			username = strings.TrimSpace(*p.Username)
			updates["username"] = username
		}
		if err := r.checkUserUnique(tx, id, nik, username); err != nil {
			return err
		}
		if p.FullName != nil {
			updates["full_name"] = strings.TrimSpace(*p.FullName)
		}
		if p.PasswordHash != nil {
			updates["password"] = *p.PasswordHash
			revoke = true
		}

		role := u.Role
		if p.Role != nil {
			if !p.Role.Valid() {
				return validation("invalid role")
			}
			if *p.Role != u.Role {
				revoke = true
			}
			role = *p.Role
			updates["role"] = role
		}

		office := u.OfficeID
		switch {
		case p.ClearOffice:
			office = nil
			updates["office_id"] = nil
		case p.OfficeID != nil:
			if err := officeExists(tx, *p.OfficeID); err != nil {
				return err
			}
			office = p.OfficeID
			updates["office_id"] = *p.OfficeID
		}
		if role == models.RoleSecurityGuard && office == nil {
			return validation("security guard must be assigned to an office")
		}
		if !sameOffice(office, u.OfficeID) {
			revoke = true
		}

		if p.IsActive != nil {
			if !*p.IsActive && u.IsActive {
				revoke = true
			}
			updates["is_active"] = *p.IsActive
		}

		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&models.User{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, false, conflict("nik or username already in use")
		}
		return nil, false, err
	}
	u, err := r.FindUserByID(ctx, id)
	return u, revoke, err
}

// DeleteUser removes a user. actorID is the caller; self-deletion is
// rejected. Closed loans keep their rows with user_id cleared.
func (r *Repo) DeleteUser(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return validation("cannot delete your own account")
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.First(&u, id).Error; err != nil {
			return notFoundOr(err, "user not found")
		}
		var open int64
		if err := tx.Model(&models.Loan{}).
			Where("user_id = ? AND status = ?", id, models.LoanBorrowed).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return conflict("user has active loans")
		}
		if err := tx.Model(&models.Loan{}).
			Where("user_id = ?", id).
			Update("user_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
}

func (r *Repo) checkUserUnique(tx *gorm.DB, selfID uint, nik, username string) error {
	if nik == "" && username == "" {
		return nil
	}
	q := tx.Model(&models.User{})
	switch {
	case nik != "" && username != "":
		q = q.Where("(nik = ? OR username = ?)", nik, username)
	case nik != "":
		q = q.Where("nik = ?", nik)
	default:
		q = q.Where("username = ?", username)
	}
	if selfID != 0 {
		q = q.Where("id <> ?", selfID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return conflict("nik or username already in use")
	}
	return nil
}

func officeExists(tx *gorm.DB, id uint) error {
	var n int64
	if err := tx.Model(&models.Office{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return validation("office not found")
	}
	return nil
}

func categoryExists(tx *gorm.DB, id uint) error {
	var n int64
	if err := tx.Model(&models.Category{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return validation("category not found")
	}
	return nil
}

// keepInactive writes is_active=false after an insert; gorm substitutes the
// column default for a zero bool on create.
func keepInactive(tx *gorm.DB, model any, id uint, active *bool) error {
	if active == nil || *active {
		return nil
	}
	return tx.Model(model).Where("id = ?", id).Update("is_active", false).Error
}

func sameOffice(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
