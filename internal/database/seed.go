package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/maingberg-rgb/finansi/internal/models"
)

type seedCategory struct {
	name string
	subs []string
}

var (
	defaultIncome  = []seedCategory{{name: "משכורת"}, {name: "אחר"}}
	defaultExpense = []seedCategory{
		{name: "דלק"},
		{name: "מזון"},
		{name: "בילויים"},
		{name: "ביגוד"},
		{name: "הלוואות"},
		{name: "לימודים"},
		{name: "ביטוחים", subs: []string{"חיים", "בריאות", "רכב"}},
		{name: "רכב", subs: []string{"טיפולים", "תיקונים"}},
	}
)

// Seed replaces all budget data with the default category tree.
// Everything happens in one transaction; on failure the old data stays.
func Seed(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Transaction{}).Error; err != nil {
			return fmt.Errorf("failed to clear transactions: %w", err)
		}
		if err := tx.Where("1 = 1").Delete(&models.FixedExpense{}).Error; err != nil {
			return fmt.Errorf("failed to clear fixed expenses: %w", err)
		}
		if err := tx.Where("parent_id IS NOT NULL").Delete(&models.Category{}).Error; err != nil {
			return fmt.Errorf("failed to clear sub-categories: %w", err)
		}
		if err := tx.Where("1 = 1").Delete(&models.Category{}).Error; err != nil {
			return fmt.Errorf("failed to clear categories: %w", err)
		}

		for _, group := range []struct {
			categoryType models.CategoryType
			categories   []seedCategory
		}{
			{models.CategoryTypeIncome, defaultIncome},
			{models.CategoryTypeExpense, defaultExpense},
		} {
			for _, sc := range group.categories {
				root := models.Category{Name: sc.name, Type: group.categoryType}
				for _, sub := range sc.subs {
					root.SubCategories = append(root.SubCategories, models.Category{Name: sub, Type: group.categoryType})
				}
				if err := tx.Create(&root).Error; err != nil {
					return fmt.Errorf("failed to create category %q: %w", sc.name, err)
				}
			}
		}
		return nil
	})
}
