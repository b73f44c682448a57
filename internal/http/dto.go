package http

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"expenseflow/internal/core"
	"expenseflow/internal/services"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type signupRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
	Country     string `json:"country" validate:"omitempty,max=60"`
	Currency    string `json:"currency" validate:"omitempty,max=3"`
	CompanyName string `json:"companyName" validate:"omitempty,max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type passwordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type switchRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=employee manager admin"`
}

type createUserRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
	Role      string `json:"role" validate:"required,oneof=employee manager admin"`
	ManagerID *int64 `json:"managerId" validate:"omitempty,gt=0"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected"`
}

// validationError turns the first validator failure into a ValidationError
// keyed by the JSON field name.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := fe.Field()
	var msg string
	switch fe.Tag() {
	case "required":
		msg = field + " is required"
	case "email":
		msg = field + " must be a valid email address"
	case "min":
		msg = field + " must be at least " + fe.Param() + " characters"
	case "max":
		msg = field + " must be at most " + fe.Param() + " characters"
	case "oneof":
		msg = field + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "len", "alpha":
		msg = field + " must be a three letter code"
	default:
		msg = field + " is invalid"
	}
	return core.NewValidationError(field, msg)
}

func validateRequest(v any) error {
	if err := validate.Struct(v); err != nil {
		return validationError(err)
	}
	return nil
}

type userResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CompanyID int64  `json:"companyId"`
	ManagerID *int64 `json:"managerId,omitempty"`
}

func toUserResponse(u core.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		CompanyID: u.CompanyID,
		ManagerID: u.ManagerID,
	}
}

func toUserResponses(users []core.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

type sessionResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

// expenseResponse carries amounts as fixed two-decimal strings so clients
// never see float rounding. A record without a usable amount has null.
type expenseResponse struct {
	ID           int64   `json:"id"`
	EmployeeID   int64   `json:"employeeId"`
	EmployeeName string  `json:"employeeName,omitempty"`
	CompanyID    int64   `json:"companyId"`
	Amount       *string `json:"amount"`
	Currency     string  `json:"currency"`
	Category     string  `json:"category"`
	Date         *string `json:"date"`
	Description  string  `json:"description"`
	Status       string  `json:"status"`
}

// toExpenseResponse renders e. names may be nil.
func toExpenseResponse(e core.Expense, names map[int64]string) expenseResponse {
	r := expenseResponse{
		ID:           e.ID,
		EmployeeID:   e.EmployeeID,
		EmployeeName: names[e.EmployeeID],
		CompanyID:    e.CompanyID,
		Currency:     e.Currency,
		Category:     string(e.Category),
		Description:  e.Description,
		Status:       string(e.Status),
	}
	if e.Amount.Valid {
		amount := core.FormatAmount(e.Amount.Decimal)
		r.Amount = &amount
	}
	if !e.Date.IsZero() {
		date := e.Date.String()
		r.Date = &date
	}
	return r
}

func toExpenseResponses(expenses []core.Expense, names map[int64]string) []expenseResponse {
	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e, names))
	}
	return out
}

type categoryTotalResponse struct {
	Category string `json:"category"`
	Total    string `json:"total"`
}

type monthTotalResponse struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Label string `json:"label"`
	Total string `json:"total"`
}

type statusCountsResponse struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

type anomalyResponse struct {
	ExpenseID int64  `json:"expenseId"`
	Reason    string `json:"reason"`
}

type dashboardResponse struct {
	User         userResponse            `json:"user"`
	Currency     string                  `json:"currency"`
	Total        string                  `json:"total"`
	Count        int                     `json:"count"`
	StatusCounts statusCountsResponse    `json:"statusCounts"`
	ByCategory   []categoryTotalResponse `json:"byCategory"`
	ByMonth      []monthTotalResponse    `json:"byMonth"`
	Anomalies    []anomalyResponse       `json:"anomalies"`
	Recent       []expenseResponse       `json:"recent"`
}

func toDashboardResponse(d services.Dashboard) dashboardResponse {
	s := d.Summary
	r := dashboardResponse{
		User:     toUserResponse(d.User),
		Currency: d.Currency,
		Total:    core.FormatAmount(s.Total),
		Count:    s.Count,
		StatusCounts: statusCountsResponse{
			Pending:  s.StatusCounts.Pending,
			Approved: s.StatusCounts.Approved,
			Rejected: s.StatusCounts.Rejected,
		},
		ByCategory: make([]categoryTotalResponse, 0, len(s.ByCategory)),
		ByMonth:    make([]monthTotalResponse, 0, len(s.ByMonth)),
		Anomalies:  make([]anomalyResponse, 0, len(s.Anomalies)),
		Recent:     toExpenseResponses(d.Recent, d.Names),
	}
	for _, c := range s.ByCategory {
		r.ByCategory = append(r.ByCategory, categoryTotalResponse{Category: string(c.Category), Total: core.FormatAmount(c.Total)})
	}
	for _, m := range s.ByMonth {
		r.ByMonth = append(r.ByMonth, monthTotalResponse{Year: m.Year, Month: int(m.Month), Label: m.Label, Total: core.FormatAmount(m.Total)})
	}
	for _, a := range s.Anomalies {
		r.Anomalies = append(r.Anomalies, anomalyResponse{ExpenseID: a.ExpenseID, Reason: a.Reason})
	}
	return r
}
