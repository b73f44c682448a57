package core

import "fmt"

// SetStatus returns a copy of expenses with the status of expense id set to
// status. Only managers and admins may call it.
//
// When no expense has the id, the input slice is returned as is together
// with an error wrapping ErrNotFound. Derived views are not recomputed.
func SetStatus(actor User, id int64, status Status, expenses []Expense) ([]Expense, error) {
	if !actor.Role.CanApprove() {
		return expenses, fmt.Errorf("user %d with role %q cannot change expense status: %w", actor.ID, actor.Role, ErrForbidden)
	}
	if !status.Valid() {
		return expenses, NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}

	idx := -1
	for i := range expenses {
		if expenses[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return expenses, fmt.Errorf("expense %d: %w", id, ErrNotFound)
	}

	out := make([]Expense, len(expenses))
	copy(out, expenses)
	out[idx].Status = status
	return out, nil
}
