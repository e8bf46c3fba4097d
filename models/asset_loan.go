// models/asset_loan.go
package models

import "time"

const AssetTable = "assets"
const LoanTable = "loans"

type LoanStatus string

const (
	LoanBorrowed LoanStatus = "BORROWED"
	LoanReturned LoanStatus = "RETURNED"
	LoanOverdue  LoanStatus = "OVERDUE"
)

func (s LoanStatus) Valid() bool {
	switch s {
	case LoanBorrowed, LoanReturned, LoanOverdue:
		return true
	}
	return false
}

type Asset struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	Code        string    `gorm:"size:60;uniqueIndex;not null" json:"code"` // always uppercase
	Description *string   `gorm:"type:text" json:"description"`
	CategoryID  uint      `gorm:"index;not null" json:"categoryId"`
	Category    *Category `json:"category,omitempty"`
	OfficeID    uint      `gorm:"index;not null" json:"officeId"`
	Office      *Office   `json:"office,omitempty"`
	IsAvailable bool      `gorm:"not null;default:true" json:"isAvailable"` // denormalized: no BORROWED loan
	IsActive    bool      `gorm:"not null;default:true" json:"isActive"`
	Loans       []Loan    `json:"loans,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Loan struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	AssetID uint   `gorm:"index;not null" json:"assetId"`
	Asset   *Asset `json:"asset,omitempty"`
	UserID  *uint  `gorm:"index" json:"userId"` // staff member who recorded the loan
	User    *User  `gorm:"constraint:OnDelete:SET NULL" json:"user,omitempty"`

	BorrowerName  string  `gorm:"size:150;not null" json:"borrowerName"`
	BorrowerPhone *string `gorm:"size:30" json:"borrowerPhone"`
	Purpose       *string `gorm:"type:text" json:"purpose"`

	LoanDate         time.Time  `gorm:"index;not null" json:"loanDate"`
	ReturnDate       *time.Time `json:"returnDate"` // target
	ActualReturnDate *time.Time `gorm:"index" json:"actualReturnDate"`
	Status           LoanStatus `gorm:"size:20;index;not null;default:'BORROWED'" json:"status"`
	Notes            *string    `gorm:"type:text" json:"notes"`

	IsThirdParty      bool    `gorm:"not null;default:false" json:"isThirdParty"`
	ThirdPartyName    *string `gorm:"size:200" json:"thirdPartyName"`
	ThirdPartyAddress *string `gorm:"type:text" json:"thirdPartyAddress"`

	LoanPhoto   *string `gorm:"size:255" json:"loanPhoto"`
	ReturnPhoto *string `gorm:"size:255" json:"returnPhoto"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Asset) TableName() string { return AssetTable }
func (Loan) TableName() string  { return LoanTable }
