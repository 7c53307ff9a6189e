package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maingberg-rgb/finansi/internal/models"
)

// CategoryServicer defines the contract for the category tree.
type CategoryServicer interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListRootCategories(ctx context.Context, categoryType models.CategoryType) ([]models.Category, error)
	ListSubCategories(ctx context.Context, parentID uint) ([]models.Category, error)
	GetCategory(ctx context.Context, id uint) (*models.Category, error)
	CreateCategory(ctx context.Context, name string, categoryType models.CategoryType, parentID *uint) (*models.Category, error)
	DeleteCategory(ctx context.Context, id uint) error
	ForceDeleteCategory(ctx context.Context, id uint) error
	UpdateBudget(ctx context.Context, id uint, weeklyBudget *decimal.Decimal) (*models.Category, error)
}

// CreateTransactionInput holds the fields of a new ledger entry.
// Installments greater than one split Amount into monthly shares.
type CreateTransactionInput struct {
	Amount       decimal.Decimal
	Description  string
	CategoryID   uint
	Date         *time.Time
	AddedBy      string
	Installments int
}

// UpdateTransactionInput holds the replacement fields of a ledger entry.
// Nil pointers leave the stored value as it is.
type UpdateTransactionInput struct {
	Amount      decimal.Decimal
	Description *string
	CategoryID  uint
	Date        *time.Time
	AddedBy     *string
}

// TransactionServicer defines the contract for the transaction ledger.
type TransactionServicer interface {
	ListTransactions(ctx context.Context) ([]models.Transaction, error)
	CreateTransaction(ctx context.Context, in CreateTransactionInput) ([]models.Transaction, error)
	UpdateTransaction(ctx context.Context, id uint, in UpdateTransactionInput) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, id uint) error
}

// FixedExpenseServicer defines the contract for recurring monthly obligations.
type FixedExpenseServicer interface {
	ListFixedExpenses(ctx context.Context) ([]models.FixedExpense, error)
	CreateFixedExpense(ctx context.Context, name string, amount decimal.Decimal, categoryID uint) (*models.FixedExpense, error)
	DeleteFixedExpense(ctx context.Context, id uint) error
}
