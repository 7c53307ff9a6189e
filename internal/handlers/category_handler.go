package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "github.com/maingberg-rgb/finansi/internal/errors"
	"github.com/maingberg-rgb/finansi/internal/models"
	"github.com/maingberg-rgb/finansi/internal/services"
)

// CategoryHandler handles category-related requests
type CategoryHandler struct {
	categoryService services.CategoryServicer
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService services.CategoryServicer) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// CreateCategoryRequest represents the request payload for creating a category
type CreateCategoryRequest struct {
	Name     string              `json:"name" binding:"required,max=100" example:"מזון"`
	Type     models.CategoryType `json:"type" binding:"required,category_type" example:"expense"`
	ParentID *uint               `json:"parentId" example:"3"`
}

// UpdateBudgetRequest represents the request payload for setting a weekly budget.
// Null or zero clears the budget.
type UpdateBudgetRequest struct {
	WeeklyBudget *decimal.Decimal `json:"weeklyBudget" binding:"omitempty,gte=0" swaggertype:"number" example:"450"`
}

// GetCategories returns every category with its direct children nested
// @Summary     List categories
// @Description All categories, each with its sub-categories nested under subCategories
// @Tags        categories
// @Produce     json
// @Success     200 {array}  models.Category "List of categories"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /categories [get]
func (h *CategoryHandler) GetCategories(c *gin.Context) {
	categories, err := h.categoryService.ListCategories(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// CreateCategory handles the creation of a new category
// @Summary     Create a category
// @Description Create a root category, or a sub-category when parentId is given
// @Tags        categories
// @Accept      json
// @Produce     json
// @Param       request body CreateCategoryRequest true "Category details"
// @Success     201 {object} models.Category "Category created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Parent category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /categories [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	category, err := h.categoryService.CreateCategory(c.Request.Context(), req.Name, req.Type, req.ParentID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, category)
}

// DeleteCategory deletes a category nothing references
// @Summary     Delete a category
// @Description Blocked with 400 while sub-categories, transactions or fixed expenses reference it
// @Tags        categories
// @Produce     json
// @Param       id path int true "Category ID"
// @Success     200 {object} SuccessResponse "Category deleted"
// @Failure     400 {object} ErrorResponse "Deletion blocked"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /categories/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.categoryService.DeleteCategory(c.Request.Context(), id); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// ForceDeleteCategory deletes a category with everything that depends on it
// @Summary     Force delete a category
// @Description Removes the category, its sub-categories, and all their transactions and fixed expenses atomically
// @Tags        categories
// @Produce     json
// @Param       id path int true "Category ID"
// @Success     200 {object} SuccessResponse "Category and dependents deleted"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /categories/{id}/force [delete]
func (h *CategoryHandler) ForceDeleteCategory(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.categoryService.ForceDeleteCategory(c.Request.Context(), id); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "הקטגוריה וכל מה שקשור אליה נמחקו."})
}

// UpdateBudget sets or clears the weekly budget of a category
// @Summary     Update weekly budget
// @Tags        categories
// @Accept      json
// @Produce     json
// @Param       id      path int                 true "Category ID"
// @Param       request body UpdateBudgetRequest true "Weekly budget"
// @Success     200 {object} models.Category "Updated category"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /categories/{id}/budget [put]
func (h *CategoryHandler) UpdateBudget(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	category, err := h.categoryService.UpdateBudget(c.Request.Context(), id, req.WeeklyBudget)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, category)
}
