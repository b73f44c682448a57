// Package google writes the expense ledger to a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"expenseflow/internal/core"
	"expenseflow/internal/log"
	"expenseflow/internal/sheets"
)

var _ sheets.LedgerWriter = (*Client)(nil)

// DefaultSheetName is used when no sheet name is configured.
const DefaultSheetName = "Ledger"

// rowCacheTTL bounds how long the id to row index is trusted. Rows edited
// by hand in the sheet are picked up after it expires.
const rowCacheTTL = 5 * time.Minute

type Config struct {
	SpreadsheetID string
	SheetName     string
	Credentials   Credentials
	Logger        *log.Logger
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *log.Logger

	mu       sync.Mutex
	rows     map[int64]int // expense id -> 1-based sheet row
	nextRow  int
	loadedAt time.Time
	now      func() time.Time
}

// NewClient authenticates and returns a ledger client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentSheets)

	ts, mode, err := tokenSource(ctx, cfg.Credentials)
	if err != nil {
		return nil, err
	}
	httpCtx := context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(oauth2.NewClient(httpCtx, ts)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets ledger ready", "auth", mode, "sheet", sheetName(cfg.SheetName))
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName, logger), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentSheets)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheet:         sheetName(sheet),
		logger:        logger,
		now:           time.Now,
	}
}

func sheetName(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return DefaultSheetName
	}
	return s
}

// newHTTPClientWithPooling keeps connections to the Sheets API alive
// between worker iterations.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// a1 quotes the sheet name for use in an A1 range.
func (c *Client) a1(rng string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(c.sheet, "'", "''"), rng)
}

func (c *Client) rowRange(row int) string {
	return c.a1(fmt.Sprintf("A%d:%s%d", row, sheets.ColumnLetter(len(sheets.Header)-1), row))
}

// loadIndex refreshes the id to row index from column A. Callers hold mu.
func (c *Client) loadIndex(ctx context.Context, force bool) error {
	if !force && c.rows != nil && c.now().Sub(c.loadedAt) < rowCacheTTL {
		return nil
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.a1("A:A")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read ledger ids: %w", errors.Join(err, core.ErrUnavailable))
	}
	rows := make(map[int64]int, len(resp.Values))
	for i, cells := range resp.Values {
		if r, ok := sheets.ParseRow(cells); ok {
			rows[r.ExpenseID] = i + 1
		}
	}
	c.rows = rows
	c.nextRow = len(resp.Values) + 1
	c.loadedAt = c.now()
	return nil
}

func (c *Client) ensureHeader(ctx context.Context) error {
	if c.nextRow > 1 {
		return nil
	}
	header := make([]any, len(sheets.Header))
	for i, h := range sheets.Header {
		header[i] = h
	}
	if err := c.write(ctx, c.rowRange(1), header); err != nil {
		return fmt.Errorf("write ledger header: %w", err)
	}
	c.nextRow = 2
	return nil
}

func (c *Client) write(ctx context.Context, rng string, cells []any) error {
	vr := &gsheet.ValueRange{Values: [][]any{cells}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return errors.Join(err, core.ErrUnavailable)
	}
	return nil
}

// Append writes e on the first free row. An expense already in the ledger
// is rewritten in place, so replayed events do not duplicate rows.
func (c *Client) Append(ctx context.Context, e core.Expense) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadIndex(ctx, false); err != nil {
		return "", err
	}
	row, exists := c.rows[e.ID]
	if !exists {
		if err := c.ensureHeader(ctx); err != nil {
			return "", err
		}
		row = c.nextRow
	}

	rng := c.rowRange(row)
	if err := c.write(ctx, rng, sheets.Values(e)); err != nil {
		c.rows = nil
		return "", fmt.Errorf("write ledger row %d: %w", row, err)
	}
	if !exists {
		c.rows[e.ID] = row
		c.nextRow++
	}
	c.logger.DebugContext(ctx, "Ledger row written", log.FieldExpenseID, e.ID, log.FieldLedgerRef, rng)
	return rng, nil
}

func (c *Client) UpdateStatus(ctx context.Context, id int64, status core.Status) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadIndex(ctx, false); err != nil {
		return "", err
	}
	row, ok := c.rows[id]
	if !ok {
		// The index may predate a row added by another writer.
		if err := c.loadIndex(ctx, true); err != nil {
			return "", err
		}
		if row, ok = c.rows[id]; !ok {
			return "", fmt.Errorf("ledger row for expense %d: %w", id, core.ErrNotFound)
		}
	}

	rng := c.a1(sheets.ColumnLetter(sheets.StatusColumn) + strconv.Itoa(row))
	if err := c.write(ctx, rng, []any{string(status)}); err != nil {
		c.rows = nil
		return "", fmt.Errorf("update ledger status: %w", err)
	}
	return rng, nil
}

// Rows reads the whole ledger.
func (c *Client) Rows(ctx context.Context) ([]sheets.Row, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.a1("A:"+sheets.ColumnLetter(len(sheets.Header)-1))).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", errors.Join(err, core.ErrUnavailable))
	}
	out := make([]sheets.Row, 0, len(resp.Values))
	for i, cells := range resp.Values {
		if r, ok := sheets.ParseRow(cells); ok {
			r.Ref = c.rowRange(i + 1)
			out = append(out, r)
		}
	}
	return out, nil
}

// Invalidate drops the cached row index.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.rows = nil
	c.mu.Unlock()
}
