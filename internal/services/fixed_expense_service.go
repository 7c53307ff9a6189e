package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "github.com/maingberg-rgb/finansi/internal/errors"
	"github.com/maingberg-rgb/finansi/internal/models"
)

// fixedExpenseService handles recurring monthly obligations.
type fixedExpenseService struct {
	db *gorm.DB
}

// NewFixedExpenseService creates a new FixedExpenseServicer.
func NewFixedExpenseService(db *gorm.DB) FixedExpenseServicer {
	return &fixedExpenseService{db: db}
}

// ListFixedExpenses returns all fixed expenses with their category embedded.
func (s *fixedExpenseService) ListFixedExpenses(ctx context.Context) ([]models.FixedExpense, error) {
	var expenses []models.FixedExpense
	if err := s.db.WithContext(ctx).
		Preload("Category").
		Order("id ASC").
		Find(&expenses).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return expenses, nil
}

// CreateFixedExpense creates a fixed expense under an existing category.
func (s *fixedExpenseService) CreateFixedExpense(ctx context.Context, name string, amount decimal.Decimal, categoryID uint) (*models.FixedExpense, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "שם ההוצאה הוא שדה חובה")
	}
	amount, err := validAmount(amount)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	category, err := findCategory(db, categoryID)
	if err != nil {
		return nil, err
	}

	expense := &models.FixedExpense{
		Name:       name,
		Amount:     amount,
		CategoryID: category.ID,
	}
	if err := db.Create(expense).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	expense.Category = category

	return expense, nil
}

// DeleteFixedExpense deletes a fixed expense
func (s *fixedExpenseService) DeleteFixedExpense(ctx context.Context, id uint) error {
	db := s.db.WithContext(ctx)

	var expense models.FixedExpense
	if err := db.First(&expense, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrFixedExpenseNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := db.Delete(&expense).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
