package model

import "time"

// CategoryType indicates whether a category is for income or expense use.
type CategoryType string

const (
	// CategoryTypeIncome represents categories for income transactions.
	CategoryTypeIncome CategoryType = "income"
	// CategoryTypeExpense represents categories for expense transactions.
	CategoryTypeExpense CategoryType = "expense"
)

// CategoryOther is the terminal fallback category assigned when nothing can
// be inferred. Assignment to it is a valid outcome, not an error.
const CategoryOther = "Other"

// Category represents a valid transaction category.
type Category struct {
	CreatedAt   time.Time
	Name        string
	Description string
	Type        CategoryType
	ID          int
	IsActive    bool
}

// ParseCategoryType maps a stored category type to a CategoryType, falling
// back to expense on unknown values.
func ParseCategoryType(s string) CategoryType {
	if CategoryType(s) == CategoryTypeIncome {
		return CategoryTypeIncome
	}
	return CategoryTypeExpense
}
