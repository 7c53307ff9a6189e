package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single ledger row. For installment purchases Amount holds
// the per-installment share and the three installment fields link the siblings.
type Transaction struct {
	Base
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Description string          `json:"description"`
	CategoryID  uint            `gorm:"not null;index" json:"categoryId"`
	Date        time.Time       `gorm:"not null;index" json:"date"`
	AddedBy     string          `json:"addedBy"`

	// Installments, nil for single payments
	TotalInstallments  *int    `json:"totalInstallments"`
	CurrentInstallment *int    `json:"currentInstallment"`
	InstallmentGroupID *string `gorm:"index" json:"installmentGroupId"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// FixedExpense is a recurring monthly obligation, tracked apart from transactions.
type FixedExpense struct {
	Base
	Name       string          `gorm:"not null" json:"name"`
	Amount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	CategoryID uint            `gorm:"not null;index" json:"categoryId"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
