package repository

import (
	"bytes"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"expenseflow/internal/core"
	"expenseflow/internal/log"
)

// expenseRecord is the stored shape of an expense. Amount stays raw so a
// string, a number or garbage can all be read without failing the list.
type expenseRecord struct {
	ID          int64           `json:"id"`
	EmployeeID  int64           `json:"employeeId"`
	CompanyID   int64           `json:"companyId"`
	Amount      json.RawMessage `json:"amount"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
}

// decodeList decodes a JSON array record by record. Records that are not
// objects, do not decode, or fail check are dropped and logged; check
// returns the reason a record is unusable or "".
func decodeList[T any](data []byte, kind string, logger *log.Logger, check func(T) string) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []T{}, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}

	out := make([]T, 0, len(raws))
	for i, raw := range raws {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '{' {
			logger.Warn("Dropping malformed record", "kind", kind, "index", i, log.FieldReason, "not an object")
			continue
		}
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			logger.Warn("Dropping malformed record", "kind", kind, "index", i, log.FieldReason, err.Error())
			continue
		}
		if reason := check(rec); reason != "" {
			logger.Warn("Dropping malformed record", "kind", kind, "index", i, log.FieldReason, reason)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func decodeExpenses(data []byte, logger *log.Logger) ([]core.Expense, error) {
	records, err := decodeList(data, "expenses", logger, func(r expenseRecord) string {
		switch {
		case r.ID <= 0:
			return "missing id"
		case r.EmployeeID <= 0:
			return "missing employeeId"
		case r.CompanyID <= 0:
			return "missing companyId"
		}
		return ""
	})
	if err != nil {
		return nil, err
	}

	out := make([]core.Expense, 0, len(records))
	for _, r := range records {
		e := core.Expense{
			ID:          r.ID,
			EmployeeID:  r.EmployeeID,
			CompanyID:   r.CompanyID,
			Amount:      parseStoredAmount(r.Amount),
			Currency:    strings.TrimSpace(r.Currency),
			Category:    core.Category(strings.ToLower(strings.TrimSpace(r.Category))),
			Date:        parseStoredDate(r.Date),
			Description: r.Description,
			Status:      core.Status(r.Status),
		}
		if !e.Amount.Valid {
			logger.Warn("Expense has no usable amount", log.FieldExpenseID, e.ID)
		}
		out = append(out, e)
	}
	return out, nil
}

func encodeExpenses(expenses []core.Expense) ([]byte, error) {
	records := make([]expenseRecord, 0, len(expenses))
	for _, e := range expenses {
		records = append(records, expenseRecord{
			ID:          e.ID,
			EmployeeID:  e.EmployeeID,
			CompanyID:   e.CompanyID,
			Amount:      encodeAmount(e.Amount),
			Currency:    e.Currency,
			Category:    string(e.Category),
			Date:        e.Date.String(),
			Description: e.Description,
			Status:      string(e.Status),
		})
	}
	return json.Marshal(records)
}

// parseStoredAmount accepts a JSON number or a numeric string. Anything
// else, including negative values, reads as a missing amount.
func parseStoredAmount(raw json.RawMessage) decimal.NullDecimal {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.NullDecimal{}
	}
	text := string(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.NullDecimal{}
		}
		text = strings.TrimSpace(s)
	}
	d, err := decimal.NewFromString(text)
	if err != nil || d.IsNegative() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// encodeAmount writes the amount as a JSON number keeping its scale, so
// 45.50 is stored as 45.50 and not 45.5.
func encodeAmount(a decimal.NullDecimal) json.RawMessage {
	if !a.Valid {
		return json.RawMessage("null")
	}
	places := int32(0)
	if exp := a.Decimal.Exponent(); exp < 0 {
		places = -exp
	}
	return json.RawMessage(a.Decimal.StringFixed(places))
}

// parseStoredDate reads YYYY-MM-DD, also accepting a full timestamp whose
// first ten characters are the date. Unreadable dates come back zero.
func parseStoredDate(s string) core.Date {
	s = strings.TrimSpace(s)
	if d, err := core.ParseDate(s); err == nil {
		return d
	}
	if len(s) > 10 {
		if d, err := core.ParseDate(s[:10]); err == nil {
			return d
		}
	}
	return core.Date{}
}

func decodeUsers(data []byte, logger *log.Logger) ([]core.User, error) {
	users, err := decodeList(data, "users", logger, func(u core.User) string {
		switch {
		case u.ID <= 0:
			return "missing id"
		case u.CompanyID <= 0:
			return "missing companyId"
		}
		return ""
	})
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ManagerID != nil && *users[i].ManagerID <= 0 {
			users[i].ManagerID = nil
		}
	}
	return users, nil
}

func decodeCompanies(data []byte, logger *log.Logger) ([]core.Company, error) {
	return decodeList(data, "companies", logger, func(c core.Company) string {
		if c.ID <= 0 {
			return "missing id"
		}
		return ""
	})
}

func decodeSessions(data []byte, logger *log.Logger) ([]core.Session, error) {
	return decodeList(data, "sessions", logger, func(s core.Session) string {
		switch {
		case s.Token == "":
			return "missing token"
		case s.UserID <= 0:
			return "missing userId"
		}
		return ""
	})
}
