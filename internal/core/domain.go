package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

const (
	CategoryTravel Category = "travel"
	CategoryFood   Category = "food"
	CategoryOffice Category = "office"
	CategoryOther  Category = "other"
)

// DateLayout is the wire and form format of a calendar date.
const DateLayout = "2006-01-02"

type (
	Role     string
	Status   string
	Category string

	// Date is a calendar date without a time component, always in UTC.
	Date struct {
		time.Time
	}

	User struct {
		ID           int64  `json:"id" yaml:"id"`
		Name         string `json:"name" yaml:"name"`
		Email        string `json:"email" yaml:"email"`
		PasswordHash string `json:"passwordHash,omitempty" yaml:"passwordHash"`
		Role         Role   `json:"role" yaml:"role"`
		CompanyID    int64  `json:"companyId" yaml:"companyId"`
		ManagerID    *int64 `json:"managerId,omitempty" yaml:"managerId"`
	}

	Company struct {
		ID       int64  `json:"id" yaml:"id"`
		Name     string `json:"name" yaml:"name"`
		Country  string `json:"country" yaml:"country"`
		Currency string `json:"currency" yaml:"currency"`
	}

	// Expense is one submitted report. Amount is invalid (null) when the
	// stored record carried no usable number.
	Expense struct {
		ID          int64               `json:"id"`
		EmployeeID  int64               `json:"employeeId"`
		CompanyID   int64               `json:"companyId"`
		Amount      decimal.NullDecimal `json:"amount"`
		Currency    string              `json:"currency"`
		Category    Category            `json:"category"`
		Date        Date                `json:"date"`
		Description string              `json:"description"`
		Status      Status              `json:"status"`
	}

	// Session binds an opaque token to a logged in user.
	Session struct {
		Token     string    `json:"token"`
		UserID    int64     `json:"userId"`
		CreatedAt time.Time `json:"createdAt"`
	}
)

func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	default:
		return false
	}
}

// CanApprove reports whether the role may change an expense status.
func (r Role) CanApprove() bool {
	return r == RoleManager || r == RoleAdmin
}

// ParseRole accepts a role name in any letter case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", NewValidationError("role", fmt.Sprintf("unknown role %q", s))
	}
	return r, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", NewValidationError("status", fmt.Sprintf("unknown status %q", s))
	}
	return st, nil
}

// Categories returns the fixed category set in display order.
func Categories() []Category {
	return []Category{CategoryTravel, CategoryFood, CategoryOffice, CategoryOther}
}

func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory matches s against the category set ignoring case, so
// "Travel" and "travel" are the same category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", NewValidationError("category", fmt.Sprintf("category must be one of %v", Categories()))
	}
	return c, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON overrides the promoted time.Time encoding so dates stay
// YYYY-MM-DD on the wire.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}
	return d.UnmarshalText([]byte(s))
}

// ReportsTo reports whether u is a direct subordinate of managerID.
func (u User) ReportsTo(managerID int64) bool {
	return u.ManagerID != nil && *u.ManagerID == managerID
}

// Public returns a copy of u safe to hand to clients.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

// Displayable reports whether the expense has an amount usable in totals.
func (e Expense) Displayable() bool {
	return e.Amount.Valid
}
