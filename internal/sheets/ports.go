// Package sheets defines the expense ledger mirrored into a spreadsheet and
// the row layout shared by its writers.
package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"expenseflow/internal/core"
)

// LedgerWriter mirrors expenses into a ledger, one row per expense.
type LedgerWriter interface {
	// Append adds a row for e and returns a reference to it.
	Append(ctx context.Context, e core.Expense) (ref string, err error)
	// UpdateStatus rewrites the status cell of the row for id. It returns an
	// error wrapping core.ErrNotFound when the ledger has no such row.
	UpdateStatus(ctx context.Context, id int64, status core.Status) (ref string, err error)
	// Rows lists the rows currently in the ledger.
	Rows(ctx context.Context) ([]Row, error)
}

// Row is what the worker needs to know about a ledger row.
type Row struct {
	ExpenseID int64
	Status    core.Status
	Ref       string
}

// Header is the first row of the ledger sheet.
var Header = []string{"ID", "Date", "Employee", "Company", "Category", "Description", "Amount", "Currency", "Status"}

// StatusColumn is the zero based index of the status cell.
const StatusColumn = 8

// ColumnLetter returns the A1 column name of a zero based index below 26.
func ColumnLetter(i int) string {
	return string(rune('A' + i))
}

// Values renders e as a ledger row.
func Values(e core.Expense) []any {
	amount := ""
	if e.Amount.Valid {
		amount = core.FormatAmount(e.Amount.Decimal)
	}
	return []any{
		e.ID,
		e.Date.String(),
		e.EmployeeID,
		e.CompanyID,
		string(e.Category),
		e.Description,
		amount,
		e.Currency,
		string(e.Status),
	}
}

// ParseRow reads a row as returned by a spreadsheet. Rows whose first cell
// is not a positive id, such as the header, are reported as not ok.
func ParseRow(cells []any) (Row, bool) {
	if len(cells) == 0 {
		return Row{}, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(fmt.Sprint(cells[0])), 10, 64)
	if err != nil || id <= 0 {
		return Row{}, false
	}
	row := Row{ExpenseID: id}
	if len(cells) > StatusColumn {
		row.Status = core.Status(strings.TrimSpace(fmt.Sprint(cells[StatusColumn])))
	}
	return row, true
}
