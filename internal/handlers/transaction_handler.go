package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "github.com/maingberg-rgb/finansi/internal/errors"
	"github.com/maingberg-rgb/finansi/internal/services"
)

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// CreateTransactionRequest represents the request payload for creating a transaction
type CreateTransactionRequest struct {
	Amount       *decimal.Decimal `json:"amount" binding:"required,gt=0" swaggertype:"number" example:"300"`
	Description  string           `json:"description" binding:"max=500" example:"מקרר"`
	CategoryID   uint             `json:"categoryId" binding:"required" example:"5"`
	Date         *string          `json:"date" example:"2026-01-31T10:00:00Z"`
	AddedBy      string           `json:"addedBy" binding:"max=100" example:"דנה"`
	Installments int              `json:"installments" binding:"omitempty,min=1,max=120" example:"3"`
}

// UpdateTransactionRequest represents the request payload for updating a transaction.
// A missing date keeps the stored one.
type UpdateTransactionRequest struct {
	Amount      *decimal.Decimal `json:"amount" binding:"required,gt=0" swaggertype:"number" example:"120.5"`
	Description *string          `json:"description" binding:"omitempty,max=500"`
	CategoryID  uint             `json:"categoryId" binding:"required" example:"5"`
	Date        *string          `json:"date"`
	AddedBy     *string          `json:"addedBy" binding:"omitempty,max=100"`
}

// GetTransactions returns all transactions newest first
// @Summary     List transactions
// @Description All transactions ordered by date descending, each with its category embedded
// @Tags        transactions
// @Produce     json
// @Success     200 {array}  models.Transaction "List of transactions"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [get]
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
	transactions, err := h.transactionService.ListTransactions(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactions)
}

// CreateTransaction handles the creation of a new transaction
// @Summary     Create a transaction
// @Description Create a transaction. With installments > 1 the amount is split into monthly rows and an array is returned.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	date, err := optionalTime(req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactions, err := h.transactionService.CreateTransaction(c.Request.Context(), services.CreateTransactionInput{
		Amount:       *req.Amount,
		Description:  req.Description,
		CategoryID:   req.CategoryID,
		Date:         date,
		AddedBy:      req.AddedBy,
		Installments: req.Installments,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	if len(transactions) == 1 {
		c.JSON(http.StatusCreated, transactions[0])
		return
	}
	c.JSON(http.StatusCreated, transactions)
}

// UpdateTransaction handles updating a transaction in place
// @Summary     Update a transaction
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Param       id      path int                      true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Transaction fields"
// @Success     200 {object} models.Transaction "Updated transaction"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Transaction or category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	date, err := optionalTime(req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.UpdateTransaction(c.Request.Context(), id, services.UpdateTransactionInput{
		Amount:      *req.Amount,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Date:        date,
		AddedBy:     req.AddedBy,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, transaction)
}

// DeleteTransaction deletes one transaction. Installment siblings are kept.
// @Summary     Delete a transaction
// @Tags        transactions
// @Produce     json
// @Param       id path int true "Transaction ID"
// @Success     200 {object} SuccessResponse "Transaction deleted"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(c.Request.Context(), id); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

func optionalTime(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	parsed, err := parseFlexibleTime(*s)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	return &parsed, nil
}
