package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/maingberg-rgb/finansi/internal/events"
	"github.com/maingberg-rgb/finansi/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestCategory creates a root category of the given type with a unique name.
func CreateTestCategory(t *testing.T, db *gorm.DB, catType models.CategoryType) *models.Category {
	t.Helper()
	return CreateTestCategoryWithName(t, db, fmt.Sprintf("Test Category %d", nextID()), catType, nil)
}

// CreateTestSubCategory creates a child of parent that inherits its type.
func CreateTestSubCategory(t *testing.T, db *gorm.DB, parent *models.Category) *models.Category {
	t.Helper()
	return CreateTestCategoryWithName(t, db, fmt.Sprintf("Test Sub Category %d", nextID()), parent.Type, &parent.ID)
}

// CreateTestCategoryWithName creates a category with an explicit name and parent.
func CreateTestCategoryWithName(t *testing.T, db *gorm.DB, name string, catType models.CategoryType, parentID *uint) *models.Category {
	t.Helper()

	category := &models.Category{
		Name:     name,
		Type:     catType,
		ParentID: parentID,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestTransaction creates a single-payment transaction dated now.
func CreateTestTransaction(t *testing.T, db *gorm.DB, categoryID uint, amount string) *models.Transaction {
	t.Helper()
	return CreateTestTransactionOnDate(t, db, categoryID, amount, time.Now().UTC())
}

// CreateTestTransactionOnDate creates a single-payment transaction on the given date.
func CreateTestTransactionOnDate(t *testing.T, db *gorm.DB, categoryID uint, amount string, date time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		Amount:      decimal.RequireFromString(amount),
		Description: fmt.Sprintf("Test Transaction %d", nextID()),
		CategoryID:  categoryID,
		Date:        date,
		AddedBy:     "test",
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestFixedExpense creates a fixed expense under the given category.
func CreateTestFixedExpense(t *testing.T, db *gorm.DB, categoryID uint, amount string) *models.FixedExpense {
	t.Helper()

	fe := &models.FixedExpense{
		Name:       fmt.Sprintf("Test Fixed Expense %d", nextID()),
		Amount:     decimal.RequireFromString(amount),
		CategoryID: categoryID,
	}
	if err := db.Create(fe).Error; err != nil {
		t.Fatalf("failed to create test fixed expense: %v", err)
	}
	return fe
}

// EventRecorder is an events.Publisher that keeps every published event.
// Setting Err makes every Publish call fail after recording.
type EventRecorder struct {
	mu     sync.Mutex
	events []events.LedgerEvent
	Err    error
}

var errRecorderClosed = errors.New("recorder closed")

// Publish records the event.
func (r *EventRecorder) Publish(_ context.Context, event events.LedgerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.Err
}

// Close implements events.Publisher.
func (r *EventRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return errRecorderClosed
	}
	return nil
}

// Events returns a copy of the recorded events.
func (r *EventRecorder) Events() []events.LedgerEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.LedgerEvent, len(r.events))
	copy(out, r.events)
	return out
}
