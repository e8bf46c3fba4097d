package models

import "time"

const OfficeTable = "offices"

type Office struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:150;uniqueIndex;not null" json:"name"`
	Address   *string   `gorm:"size:255" json:"address"`
	IsActive  bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Office) TableName() string { return OfficeTable }
