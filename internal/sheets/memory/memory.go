// Package memory is an in-process ledger used when no spreadsheet is
// configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"expenseflow/internal/core"
	"expenseflow/internal/sheets"
)

var _ sheets.LedgerWriter = (*Ledger)(nil)

type Ledger struct {
	mu   sync.Mutex
	rows [][]any
}

func New() *Ledger {
	return &Ledger{}
}

func ref(i int) string {
	// Row 1 is the header in a real sheet.
	return fmt.Sprintf("mem:%d", i+2)
}

// Append adds a row, or rewrites the row already holding e.ID.
func (l *Ledger) Append(_ context.Context, e core.Expense) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, cells := range l.rows {
		if row, ok := sheets.ParseRow(cells); ok && row.ExpenseID == e.ID {
			l.rows[i] = sheets.Values(e)
			return ref(i), nil
		}
	}
	l.rows = append(l.rows, sheets.Values(e))
	return ref(len(l.rows) - 1), nil
}

func (l *Ledger) UpdateStatus(_ context.Context, id int64, status core.Status) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, cells := range l.rows {
		if row, ok := sheets.ParseRow(cells); ok && row.ExpenseID == id {
			cells[sheets.StatusColumn] = string(status)
			return ref(i), nil
		}
	}
	return "", fmt.Errorf("ledger row for expense %d: %w", id, core.ErrNotFound)
}

func (l *Ledger) Rows(_ context.Context) ([]sheets.Row, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]sheets.Row, 0, len(l.rows))
	for i, cells := range l.rows {
		if row, ok := sheets.ParseRow(cells); ok {
			row.Ref = ref(i)
			out = append(out, row)
		}
	}
	return out, nil
}

// Values returns a copy of the raw rows.
func (l *Ledger) Values() [][]any {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]any, len(l.rows))
	for i, r := range l.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}
