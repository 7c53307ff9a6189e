package handlers

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the budget API on r.
func RegisterRoutes(r gin.IRouter, category *CategoryHandler, transaction *TransactionHandler, fixedExpense *FixedExpenseHandler) {
	categories := r.Group("/categories")
	categories.GET("", category.GetCategories)
	categories.POST("", category.CreateCategory)
	categories.DELETE("/:id", category.DeleteCategory)
	categories.DELETE("/:id/force", category.ForceDeleteCategory)
	categories.PUT("/:id/budget", category.UpdateBudget)

	transactions := r.Group("/transactions")
	transactions.GET("", transaction.GetTransactions)
	transactions.POST("", transaction.CreateTransaction)
	transactions.PUT("/:id", transaction.UpdateTransaction)
	transactions.DELETE("/:id", transaction.DeleteTransaction)

	fixedExpenses := r.Group("/fixed-expenses")
	fixedExpenses.GET("", fixedExpense.GetFixedExpenses)
	fixedExpenses.POST("", fixedExpense.CreateFixedExpense)
	fixedExpenses.DELETE("/:id", fixedExpense.DeleteFixedExpense)
}
