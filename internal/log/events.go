package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Events writes the handful of records that dashboards and alerts key on.
// Each has a fixed message and attribute set.
type Events struct {
	http    *Logger
	expense *Logger
	root    *Logger
}

func NewEvents(logger *Logger) *Events {
	return &Events{
		http:    logger.WithComponent(ComponentHTTP),
		expense: logger.WithComponent(ComponentExpense),
		root:    logger,
	}
}

func requestAttrs(r *http.Request, requestID, clientIP string) []slog.Attr {
	return []slog.Attr{
		slog.String(FieldRequestID, requestID),
		slog.String(FieldMethod, r.Method),
		slog.String(FieldPath, r.URL.Path),
		slog.String(FieldQuery, r.URL.RawQuery),
		slog.String(FieldClientIP, clientIP),
	}
}

// RequestStarted is logged when a request enters the server.
func (e *Events) RequestStarted(ctx context.Context, r *http.Request, requestID, clientIP string) {
	attrs := append(requestAttrs(r, requestID, clientIP),
		slog.String(FieldUserAgent, r.UserAgent()),
		slog.String(FieldReferer, r.Referer()))
	e.http.LogAttrs(ctx, slog.LevelInfo, "HTTP request started", attrs...)
}

// RequestFinished is logged at info for success, warn for client errors
// and error for server errors.
func (e *Events) RequestFinished(ctx context.Context, r *http.Request, requestID, clientIP string, status int, elapsed time.Duration) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	attrs := append(requestAttrs(r, requestID, clientIP),
		slog.Int(FieldStatusCode, status),
		slog.Int64(FieldDuration, elapsed.Milliseconds()),
		slog.Bool(FieldSuccess, status < 400))
	e.http.LogAttrs(ctx, level, "HTTP request completed", attrs...)
}

// ExpenseSubmitted records a new pending expense.
func (e *Events) ExpenseSubmitted(ctx context.Context, id, employeeID, companyID int64, amount, currency, category string) {
	e.expense.LogAttrs(ctx, slog.LevelInfo, "Expense submitted",
		slog.String(FieldOperation, OpSubmit),
		slog.Int64(FieldExpenseID, id),
		slog.Int64(FieldUserID, employeeID),
		slog.Int64(FieldCompanyID, companyID),
		slog.String(FieldAmount, amount),
		slog.String(FieldCurrency, currency),
		slog.String(FieldCategory, category))
}

// StatusDecided records an approval or rejection.
func (e *Events) StatusDecided(ctx context.Context, expenseID, actorID int64, status string) {
	e.expense.LogAttrs(ctx, slog.LevelInfo, "Expense status changed",
		slog.String(FieldOperation, OpDecide),
		slog.Int64(FieldExpenseID, expenseID),
		slog.Int64(FieldUserID, actorID),
		slog.String(FieldStatus, status))
}

// Failed logs err at error level under component and operation. Extra
// key/value pairs follow the usual slog convention.
func (e *Events) Failed(ctx context.Context, component, operation, msg string, err error, args ...any) {
	logger := e.root.WithComponent(component).With(FieldOperation, operation)
	if err != nil {
		args = append(args, FieldError, err.Error())
	}
	logger.ErrorContext(ctx, msg, args...)
}
