package http

import (
	"net/http"
	"strconv"
	"strings"

	"expenseflow/internal/core"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, r, core.ErrUnauthorized)
		return
	}
	expenses, names, err := s.expenses.VisibleWithNames(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := core.ParseStatus(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filtered := expenses[:0:0]
		for _, e := range expenses {
			if e.Status == status {
				filtered = append(filtered, e)
			}
		}
		expenses = filtered
	}
	NewJSONResponse().Body(map[string]any{"expenses": toExpenseResponses(expenses, names)}).Write(w)
}

// handleSubmitExpense accepts JSON or form-encoded bodies.
func (s *Server) handleSubmitExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, r, core.ErrUnauthorized)
		return
	}
	fields, err := readFields(r)
	if err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	expense, err := s.expenses.Submit(r.Context(), user, core.ExpenseForm{
		Amount:      fields["amount"],
		Currency:    fields["currency"],
		Category:    fields["category"],
		Date:        fields["date"],
		Description: fields["description"],
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/expenses/"+strconv.FormatInt(expense.ID, 10)).
		Body(toExpenseResponse(expense, nil)).
		Write(w)
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(r.Context())
	if !ok {
		writeError(w, r, core.ErrUnauthorized)
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if err := validateRequest(req); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.expenses.SetStatus(r.Context(), actor, id, core.Status(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(toExpenseResponse(updated, nil)).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, r, core.ErrUnauthorized)
		return
	}
	d, err := s.expenses.Dashboard(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(toDashboardResponse(d)).Write(w)
}
