package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "github.com/maingberg-rgb/finansi/internal/errors"
	"github.com/maingberg-rgb/finansi/internal/models"
	"github.com/maingberg-rgb/finansi/internal/services"
)

// --- mock fixed expense service ---

type mockFixedExpenseService struct {
	listFixedExpensesFn  func(ctx context.Context) ([]models.FixedExpense, error)
	createFixedExpenseFn func(ctx context.Context, name string, amount decimal.Decimal, categoryID uint) (*models.FixedExpense, error)
	deleteFixedExpenseFn func(ctx context.Context, id uint) error
}

func (m *mockFixedExpenseService) ListFixedExpenses(ctx context.Context) ([]models.FixedExpense, error) {
	if m.listFixedExpensesFn != nil {
		return m.listFixedExpensesFn(ctx)
	}
	return []models.FixedExpense{}, nil
}

func (m *mockFixedExpenseService) CreateFixedExpense(ctx context.Context, name string, amount decimal.Decimal, categoryID uint) (*models.FixedExpense, error) {
	if m.createFixedExpenseFn != nil {
		return m.createFixedExpenseFn(ctx, name, amount, categoryID)
	}
	return &models.FixedExpense{}, nil
}

func (m *mockFixedExpenseService) DeleteFixedExpense(ctx context.Context, id uint) error {
	if m.deleteFixedExpenseFn != nil {
		return m.deleteFixedExpenseFn(ctx, id)
	}
	return nil
}

var _ services.FixedExpenseServicer = (*mockFixedExpenseService)(nil)

func setupFixedExpenseRouter(handler *FixedExpenseHandler) *gin.Engine {
	r := gin.New()
	r.GET("/fixed-expenses", handler.GetFixedExpenses)
	r.POST("/fixed-expenses", handler.CreateFixedExpense)
	r.DELETE("/fixed-expenses/:id", handler.DeleteFixedExpense)
	return r
}

func TestFixedExpenseHandler_GetFixedExpenses(t *testing.T) {
	feSvc := &mockFixedExpenseService{
		listFixedExpensesFn: func(context.Context) ([]models.FixedExpense, error) {
			return []models.FixedExpense{{Base: models.Base{ID: 1}, Name: "שכירות", Amount: decimal.NewFromInt(5200)}}, nil
		},
	}
	r := setupFixedExpenseRouter(NewFixedExpenseHandler(feSvc))

	rec := doRequest(r, "GET", "/fixed-expenses", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	list := parseJSONArray(t, rec)
	if len(list) != 1 || list[0]["name"] != "שכירות" {
		t.Errorf("unexpected list %v", list)
	}
}

func TestFixedExpenseHandler_CreateFixedExpense(t *testing.T) {
	t.Run("returns_201_on_success", func(t *testing.T) {
		feSvc := &mockFixedExpenseService{
			createFixedExpenseFn: func(_ context.Context, name string, amount decimal.Decimal, categoryID uint) (*models.FixedExpense, error) {
				return &models.FixedExpense{Base: models.Base{ID: 3}, Name: name, Amount: amount, CategoryID: categoryID}, nil
			},
		}
		r := setupFixedExpenseRouter(NewFixedExpenseHandler(feSvc))

		rec := doRequest(r, "POST", "/fixed-expenses", `{"name":"ארנונה","amount":410.3,"categoryId":4}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["amount"].(float64) != 410.3 || result["categoryId"].(float64) != 4 {
			t.Errorf("unexpected body %v", result)
		}
	})

	t.Run("returns_400_on_missing_name", func(t *testing.T) {
		r := setupFixedExpenseRouter(NewFixedExpenseHandler(&mockFixedExpenseService{}))

		rec := doRequest(r, "POST", "/fixed-expenses", `{"amount":10,"categoryId":4}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns_404_on_unknown_category", func(t *testing.T) {
		feSvc := &mockFixedExpenseService{
			createFixedExpenseFn: func(context.Context, string, decimal.Decimal, uint) (*models.FixedExpense, error) {
				return nil, apperrors.ErrCategoryNotFound
			},
		}
		r := setupFixedExpenseRouter(NewFixedExpenseHandler(feSvc))

		rec := doRequest(r, "POST", "/fixed-expenses", `{"name":"x","amount":10,"categoryId":99}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestFixedExpenseHandler_DeleteFixedExpense(t *testing.T) {
	t.Run("returns_success", func(t *testing.T) {
		r := setupFixedExpenseRouter(NewFixedExpenseHandler(&mockFixedExpenseService{}))

		rec := doRequest(r, "DELETE", "/fixed-expenses/1", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("returns_404_when_absent", func(t *testing.T) {
		feSvc := &mockFixedExpenseService{
			deleteFixedExpenseFn: func(context.Context, uint) error { return apperrors.ErrFixedExpenseNotFound },
		}
		r := setupFixedExpenseRouter(NewFixedExpenseHandler(feSvc))

		rec := doRequest(r, "DELETE", "/fixed-expenses/1", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "FIXED_EXPENSE_NOT_FOUND")
	})
}
