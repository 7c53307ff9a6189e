package models

import "github.com/shopspring/decimal"

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// Valid reports whether t is one of the known category types.
func (t CategoryType) Valid() bool {
	return t == CategoryTypeIncome || t == CategoryTypeExpense
}

// Category is a node of the two-level category tree. Root categories have no
// ParentID; sub-categories point at a root and never have children of their own.
type Category struct {
	Base
	Name         string           `gorm:"not null" json:"name"`
	Type         CategoryType     `gorm:"not null;index" json:"type"`
	ParentID     *uint            `gorm:"index" json:"parentId"`
	WeeklyBudget *decimal.Decimal `gorm:"type:numeric(12,2)" json:"weeklyBudget"`

	// Relationships
	SubCategories []Category `gorm:"foreignKey:ParentID" json:"subCategories,omitempty"`
}

// IsRoot reports whether the category sits at the top of the tree.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}
