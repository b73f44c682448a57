package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxDescriptionLength bounds the free text of an expense.
const MaxDescriptionLength = 200

// ExpenseForm is the raw user input for a new expense.
type ExpenseForm struct {
	Amount      string
	Currency    string
	Category    string
	Date        string
	Description string
}

// BuildExpense validates form and returns a pending expense owned by user.
// id must come from the persisted expense sequence. company may be nil, in
// which case the currency falls back to DefaultCurrency.
func BuildExpense(form ExpenseForm, user User, company *Company, id int64) (Expense, error) {
	if id <= 0 {
		return Expense{}, errors.New("build expense: id must be positive")
	}

	amount, err := ParseAmount(form.Amount)
	if err != nil {
		return Expense{}, &ValidationError{Field: "amount", Message: "amount must be a number greater than zero", Err: err}
	}

	category, err := ParseCategory(form.Category)
	if err != nil {
		return Expense{}, err
	}

	if strings.TrimSpace(form.Date) == "" {
		return Expense{}, NewValidationError("date", "date is required")
	}
	date, err := ParseDate(form.Date)
	if err != nil {
		return Expense{}, &ValidationError{Field: "date", Message: "date must be formatted as YYYY-MM-DD", Err: err}
	}

	description := strings.TrimSpace(form.Description)
	if len([]rune(description)) > MaxDescriptionLength {
		return Expense{}, NewValidationError("description", "description too long (max 200 characters)")
	}

	cur, err := ResolveCurrency(form.Currency, company)
	if err != nil {
		return Expense{}, err
	}

	return Expense{
		ID:          id,
		EmployeeID:  user.ID,
		CompanyID:   user.CompanyID,
		Amount:      decimal.NewNullDecimal(amount),
		Currency:    cur,
		Category:    category,
		Date:        date,
		Description: description,
		Status:      StatusPending,
	}, nil
}
