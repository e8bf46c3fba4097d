package models

import "time"

const CategoryTable = "categories"

type CategoryType string

const (
	CategoryVehicle CategoryType = "VEHICLE"
	CategoryRoomKey CategoryType = "ROOM_KEY"
	CategoryDevice  CategoryType = "DEVICE"
	CategoryOther   CategoryType = "OTHER"
)

func (t CategoryType) Valid() bool {
	switch t {
	case CategoryVehicle, CategoryRoomKey, CategoryDevice, CategoryOther:
		return true
	}
	return false
}

type Category struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	Name         string       `gorm:"size:150;uniqueIndex;not null" json:"name"`
	Type         CategoryType `gorm:"size:20;not null" json:"type"`
	Description  *string      `gorm:"type:text" json:"description"`
	IsActive     bool         `gorm:"not null;default:true" json:"isActive"`
	AllowedRoles RoleSet      `gorm:"type:text" json:"allowedRoles"` // comma-joined in the column
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

func (Category) TableName() string { return CategoryTable }
