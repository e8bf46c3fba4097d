package models

import (
	"time"
)

const UserTable = "users"

// User is a staff account. Borrowers are not users; they are recorded by
// name on the loan.
type User struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	NIK      string  `gorm:"column:nik;size:10;uniqueIndex;not null" json:"nik"`
	Username string  `gorm:"size:100;uniqueIndex;not null" json:"username"`
	Password string  `gorm:"size:255;not null" json:"-"` // bcrypt hash
	FullName string  `gorm:"size:150;not null" json:"fullName"`
	Role     Role    `gorm:"size:20;not null;index" json:"role"`
	OfficeID *uint   `gorm:"index" json:"officeId"`
	Office   *Office `json:"office,omitempty"`
	IsActive bool    `gorm:"not null;default:true" json:"isActive"`

	LastLoginAt *time.Time `gorm:"index" json:"lastLoginAt,omitempty"`
	LastSeenAt  *time.Time `gorm:"index" json:"lastSeenAt,omitempty"`
	LoginCount  int64      `gorm:"not null;default:0" json:"loginCount"`
	LastLoginIP string     `gorm:"size:45" json:"-"`
	LastLoginUA string     `gorm:"size:255" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string { return UserTable }
