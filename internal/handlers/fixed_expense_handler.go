package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "github.com/maingberg-rgb/finansi/internal/errors"
	"github.com/maingberg-rgb/finansi/internal/services"
)

// FixedExpenseHandler handles fixed-expense requests.
type FixedExpenseHandler struct {
	fixedExpenseService services.FixedExpenseServicer
}

// NewFixedExpenseHandler creates a new FixedExpenseHandler.
func NewFixedExpenseHandler(fixedExpenseService services.FixedExpenseServicer) *FixedExpenseHandler {
	return &FixedExpenseHandler{fixedExpenseService: fixedExpenseService}
}

// CreateFixedExpenseRequest represents the request payload for creating a fixed expense
type CreateFixedExpenseRequest struct {
	Name       string           `json:"name" binding:"required,max=100" example:"שכירות"`
	Amount     *decimal.Decimal `json:"amount" binding:"required,gt=0" swaggertype:"number" example:"5200"`
	CategoryID uint             `json:"categoryId" binding:"required" example:"4"`
}

// GetFixedExpenses lists fixed expenses
// @Summary     List fixed expenses
// @Tags        fixed-expenses
// @Produce     json
// @Success     200 {array}  models.FixedExpense "List of fixed expenses"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /fixed-expenses [get]
func (h *FixedExpenseHandler) GetFixedExpenses(c *gin.Context) {
	expenses, err := h.fixedExpenseService.ListFixedExpenses(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, expenses)
}

// CreateFixedExpense creates a fixed expense
// @Summary     Create a fixed expense
// @Tags        fixed-expenses
// @Accept      json
// @Produce     json
// @Param       request body CreateFixedExpenseRequest true "Fixed expense details"
// @Success     201 {object} models.FixedExpense "Fixed expense created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /fixed-expenses [post]
func (h *FixedExpenseHandler) CreateFixedExpense(c *gin.Context) {
	var req CreateFixedExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	expense, err := h.fixedExpenseService.CreateFixedExpense(c.Request.Context(), req.Name, *req.Amount, req.CategoryID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, expense)
}

// DeleteFixedExpense deletes a fixed expense
// @Summary     Delete a fixed expense
// @Tags        fixed-expenses
// @Produce     json
// @Param       id path int true "Fixed expense ID"
// @Success     200 {object} SuccessResponse "Fixed expense deleted"
// @Failure     404 {object} ErrorResponse "Fixed expense not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /fixed-expenses/{id} [delete]
func (h *FixedExpenseHandler) DeleteFixedExpense(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.fixedExpenseService.DeleteFixedExpense(c.Request.Context(), id); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}
