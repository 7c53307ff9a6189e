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

// categoryService handles the two-level category tree.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// ListCategories returns every category with its direct children nested.
func (s *categoryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).
		Preload("SubCategories", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("id ASC").
		Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}

// ListRootCategories returns the top-level categories of one type.
func (s *categoryService) ListRootCategories(ctx context.Context, categoryType models.CategoryType) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).
		Where("type = ? AND parent_id IS NULL", categoryType).
		Order("id ASC").
		Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}

// ListSubCategories returns the children of parentID.
func (s *categoryService) ListSubCategories(ctx context.Context, parentID uint) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("id ASC").
		Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}

// GetCategory retrieves a category by ID
func (s *categoryService) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	return findCategory(s.db.WithContext(ctx), id)
}

func findCategory(db *gorm.DB, id uint) (*models.Category, error) {
	var category models.Category
	if err := db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// CreateCategory creates a root category, or a sub-category when parentID is set.
// The parent's type is not enforced on the child.
func (s *categoryService) CreateCategory(
	ctx context.Context,
	name string,
	categoryType models.CategoryType,
	parentID *uint,
) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "שם הקטגוריה הוא שדה חובה")
	}
	if !categoryType.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "סוג הקטגוריה חייב להיות expense או income")
	}

	db := s.db.WithContext(ctx)

	if parentID != nil {
		parent, err := findCategory(db, *parentID)
		if err != nil {
			if errors.Is(err, apperrors.ErrCategoryNotFound) {
				return nil, apperrors.WithMessage(apperrors.ErrCategoryNotFound, "קטגוריית האב לא נמצאה")
			}
			return nil, err
		}
		if !parent.IsRoot() {
			return nil, apperrors.ErrCategoryTooDeep
		}
	}

	category := &models.Category{
		Name:     name,
		Type:     categoryType,
		ParentID: parentID,
	}
	if err := db.Create(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return category, nil
}

// DeleteCategory deletes a category that nothing references.
// Sub-categories are checked first, then transactions, then fixed expenses.
func (s *categoryService) DeleteCategory(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		category, err := findCategory(tx, id)
		if err != nil {
			return err
		}

		checks := []struct {
			model    interface{}
			column   string
			sentinel *apperrors.AppError
		}{
			{&models.Category{}, "parent_id", apperrors.ErrCategoryHasChildren},
			{&models.Transaction{}, "category_id", apperrors.ErrCategoryHasTransactions},
			{&models.FixedExpense{}, "category_id", apperrors.ErrCategoryHasFixedExpenses},
		}
		for _, check := range checks {
			var count int64
			if err := tx.Model(check.model).Where(check.column+" = ?", id).Count(&count).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if count > 0 {
				return check.sentinel
			}
		}

		if err := tx.Delete(category).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// ForceDeleteCategory removes a category, every category below it, and all
// transactions and fixed expenses referencing any of them, in one transaction.
func (s *categoryService) ForceDeleteCategory(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findCategory(tx, id); err != nil {
			return err
		}

		// levels[0] is the category itself, levels[1] its children and so on.
		levels := [][]uint{{id}}
		for {
			var children []uint
			if err := tx.Model(&models.Category{}).
				Where("parent_id IN ?", levels[len(levels)-1]).
				Pluck("id", &children).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if len(children) == 0 {
				break
			}
			levels = append(levels, children)
		}

		var all []uint
		for _, level := range levels {
			all = append(all, level...)
		}

		if err := tx.Where("category_id IN ?", all).Delete(&models.Transaction{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Where("category_id IN ?", all).Delete(&models.FixedExpense{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		// Deepest level first so no row ever points at a removed parent.
		for i := len(levels) - 1; i >= 0; i-- {
			if err := tx.Where("id IN ?", levels[i]).Delete(&models.Category{}).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		return nil
	})
}

// UpdateBudget sets the weekly budget of a category. Nil or zero clears it.
func (s *categoryService) UpdateBudget(ctx context.Context, id uint, weeklyBudget *decimal.Decimal) (*models.Category, error) {
	if weeklyBudget != nil && weeklyBudget.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "התקציב השבועי אינו יכול להיות שלילי")
	}

	db := s.db.WithContext(ctx)
	category, err := findCategory(db, id)
	if err != nil {
		return nil, err
	}

	var budget *decimal.Decimal
	var value interface{} = gorm.Expr("NULL")
	if weeklyBudget != nil && !weeklyBudget.IsZero() {
		rounded := weeklyBudget.Round(2)
		budget = &rounded
		value = rounded
	}

	if err := db.Model(category).Update("weekly_budget", value).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	category.WeeklyBudget = budget

	return category, nil
}
