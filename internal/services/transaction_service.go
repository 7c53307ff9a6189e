package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "github.com/maingberg-rgb/finansi/internal/errors"
	"github.com/maingberg-rgb/finansi/internal/events"
	"github.com/maingberg-rgb/finansi/internal/logger"
	"github.com/maingberg-rgb/finansi/internal/models"
	"github.com/maingberg-rgb/finansi/internal/uuid"
)

const (
	// DefaultAddedBy is recorded when the reporter is not named.
	DefaultAddedBy = "מערכת"

	// MaxInstallments caps how many monthly rows a single purchase expands into.
	MaxInstallments = 120
)

// validAmount rounds a money amount to agorot and rejects values a money
// column cannot hold.
func validAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	rounded, ok := models.NormalizeAmount(amount)
	if !ok {
		return decimal.Zero, apperrors.WithMessage(apperrors.ErrInvalidInput, "הסכום חייב להיות בין 0.01 ל-9,999,999,999.99")
	}
	return rounded, nil
}

// transactionService handles the transaction ledger.
type transactionService struct {
	db        *gorm.DB
	publisher events.Publisher
	now       func() time.Time
}

// NewTransactionService creates a new TransactionServicer. A nil publisher drops events.
func NewTransactionService(db *gorm.DB, publisher events.Publisher) TransactionServicer {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &transactionService{
		db:        db,
		publisher: publisher,
		now:       time.Now,
	}
}

// ListTransactions returns all transactions newest first, with their category embedded.
func (s *transactionService) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := s.db.WithContext(ctx).
		Preload("Category").
		Order("date DESC").
		Order("id DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}

// CreateTransaction records a purchase. With more than one installment the
// amount is split into equal shares, one row per calendar month starting at
// the base date, all linked by a shared group id. The rows are written in a
// single database transaction.
func (s *transactionService) CreateTransaction(ctx context.Context, in CreateTransactionInput) ([]models.Transaction, error) {
	amount, err := validAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	if in.CategoryID == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "קטגוריה היא שדה חובה")
	}

	installments := in.Installments
	if installments < 1 {
		installments = 1
	}
	if installments > MaxInstallments {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("מספר התשלומים המרבי הוא %d", MaxInstallments))
	}

	baseDate := s.now()
	if in.Date != nil && !in.Date.IsZero() {
		baseDate = *in.Date
	}

	addedBy := strings.TrimSpace(in.AddedBy)
	if addedBy == "" {
		addedBy = DefaultAddedBy
	}

	share := amount
	var groupID *string
	var total *int
	if installments > 1 {
		share = amount.DivRound(decimal.NewFromInt(int64(installments)), 2)
		if !share.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("הסכום קטן מדי לחלוקה ל-%d תשלומים", installments))
		}
		id := uuid.New()
		groupID = &id
		n := installments
		total = &n
	}

	transactions := make([]models.Transaction, 0, installments)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		category, err := findCategory(tx, in.CategoryID)
		if err != nil {
			return err
		}

		for i := 0; i < installments; i++ {
			row := models.Transaction{
				Amount:             share,
				Description:        in.Description,
				CategoryID:         category.ID,
				Date:               AddMonthsClamped(baseDate, i),
				AddedBy:            addedBy,
				TotalInstallments:  total,
				InstallmentGroupID: groupID,
			}
			if installments > 1 {
				current := i + 1
				row.CurrentInstallment = &current
				row.Description = strings.TrimSpace(fmt.Sprintf("%s (תשלום %d/%d)", in.Description, current, installments))
			}

			if err := tx.Create(&row).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			row.Category = category
			transactions = append(transactions, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range transactions {
		s.publish(ctx, events.TypeTransactionCreated, &transactions[i])
	}

	return transactions, nil
}

// UpdateTransaction replaces the amount and category of a transaction and,
// when given, its description, date and reporter.
func (s *transactionService) UpdateTransaction(ctx context.Context, id uint, in UpdateTransactionInput) (*models.Transaction, error) {
	amount, err := validAmount(in.Amount)
	if err != nil {
		return nil, err
	}

	var transaction models.Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&transaction, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrTransactionNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		category, err := findCategory(tx, in.CategoryID)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{
			"amount":      amount,
			"category_id": category.ID,
		}
		if in.Description != nil {
			updates["description"] = *in.Description
		}
		if in.Date != nil && !in.Date.IsZero() {
			updates["date"] = *in.Date
		}
		if in.AddedBy != nil {
			updates["added_by"] = *in.AddedBy
		}

		if err := tx.Model(&transaction).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Preload("Category").First(&transaction, id).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &transaction, nil
}

// DeleteTransaction deletes exactly one row. Installment siblings are kept.
func (s *transactionService) DeleteTransaction(ctx context.Context, id uint) error {
	var transaction models.Transaction
	db := s.db.WithContext(ctx)
	if err := db.First(&transaction, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrTransactionNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := db.Delete(&transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.publish(ctx, events.TypeTransactionDeleted, &transaction)
	return nil
}

func (s *transactionService) publish(ctx context.Context, eventType string, t *models.Transaction) {
	event := events.LedgerEvent{
		Type:               eventType,
		TransactionID:      t.ID,
		CategoryID:         t.CategoryID,
		Amount:             t.Amount,
		AddedBy:            t.AddedBy,
		InstallmentGroupID: t.InstallmentGroupID,
		OccurredAt:         s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Named("ledger").Warnw("Failed to publish ledger event",
			"type", eventType,
			"transaction_id", t.ID,
			"error", err,
		)
	}
}

// AddMonthsClamped returns t moved forward by n calendar months. When the
// target month is shorter, the day is clamped to its last day, so Jan 31
// plus one month is the last day of February.
func AddMonthsClamped(t time.Time, n int) time.Time {
	if n == 0 {
		return t
	}
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	lastDay := time.Date(year, month+time.Month(n)+1, 0, 0, 0, 0, 0, t.Location()).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month+time.Month(n), day, hour, minute, sec, t.Nanosecond(), t.Location())
}
