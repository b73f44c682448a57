package google

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"expenseflow/internal/core"
)

// fakeSheets serves the subset of the Sheets values API the client uses:
// GET and PUT on /v4/spreadsheets/{id}/values/{range}.
type fakeSheets struct {
	mu    sync.Mutex
	grid  [][]any
	gets  int
	puts  int
	fail  bool
	lastR string
}

// cellRef splits "'Ledger'!I5" or "'Ledger'!A:A" into column index and
// 1-based row (0 when absent).
func cellRef(rng string) (col, row int) {
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		rng = rng[i+1:]
	}
	if i := strings.Index(rng, ":"); i >= 0 {
		rng = rng[:i]
	}
	col = int(rng[0] - 'A')
	row, _ = strconv.Atoi(rng[1:])
	return col, row
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		http.Error(w, `{"error":{"code":400,"message":"bad request"}}`, http.StatusBadRequest)
		return
	}
	idx := strings.Index(r.URL.Path, "/values/")
	if idx < 0 {
		http.NotFound(w, r)
		return
	}
	rng := r.URL.Path[idx+len("/values/"):]
	f.lastR = rng
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		f.gets++
		onlyFirst := strings.HasSuffix(rng, "A:A")
		values := make([][]any, 0, len(f.grid))
		for _, row := range f.grid {
			if onlyFirst && len(row) > 0 {
				values = append(values, row[:1])
				continue
			}
			values = append(values, row)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": values})
	case http.MethodPut:
		f.puts++
		var body struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		col, row := cellRef(rng)
		for len(f.grid) < row {
			f.grid = append(f.grid, []any{})
		}
		target := f.grid[row-1]
		for i, v := range body.Values[0] {
			for len(target) <= col+i {
				target = append(target, "")
			}
			target[col+i] = v
		}
		f.grid[row-1] = target
		_ = json.NewEncoder(w).Encode(map[string]any{"updatedRange": rng})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return NewWithService(svc, "sheet-id", "", nil), fake
}

func expense(id int64, status core.Status) core.Expense {
	return core.Expense{
		ID: id, EmployeeID: 3, CompanyID: 1,
		Amount:   decimal.NewNullDecimal(decimal.RequireFromString("12.5")),
		Currency: "USD", Category: core.CategoryFood,
		Date:   core.NewDate(2025, 10, 3),
		Status: status,
	}
}

func TestClient_AppendWritesHeaderOnce(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	ref, err := c.Append(ctx, expense(1, core.StatusPending))
	require.NoError(t, err)
	assert.Equal(t, "'Ledger'!A2:I2", ref)

	ref, err = c.Append(ctx, expense(2, core.StatusPending))
	require.NoError(t, err)
	assert.Equal(t, "'Ledger'!A3:I3", ref)

	require.Len(t, fake.grid, 3)
	assert.Equal(t, "ID", fake.grid[0][0])
	assert.Equal(t, "12.50", fake.grid[1][6])
	assert.Equal(t, 1, fake.gets, "row index is cached between appends")
}

func TestClient_AppendIsIdempotent(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	_, err := c.Append(ctx, expense(1, core.StatusPending))
	require.NoError(t, err)
	ref, err := c.Append(ctx, expense(1, core.StatusApproved))
	require.NoError(t, err)
	assert.Equal(t, "'Ledger'!A2:I2", ref)
	require.Len(t, fake.grid, 2)
	assert.Equal(t, "approved", fake.grid[1][8])
}

func TestClient_UpdateStatus(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	_, err := c.Append(ctx, expense(4, core.StatusPending))
	require.NoError(t, err)

	ref, err := c.UpdateStatus(ctx, 4, core.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, "'Ledger'!I2", ref)
	assert.Equal(t, "rejected", fake.grid[1][8])

	_, err = c.UpdateStatus(ctx, 77, core.StatusApproved)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestClient_UpdateStatusSeesRowsAddedElsewhere(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	_, err := c.Append(ctx, expense(1, core.StatusPending))
	require.NoError(t, err)

	fake.mu.Lock()
	fake.grid = append(fake.grid, []any{"9", "2025-10-01", "3", "1", "food", "", "1.00", "USD", "pending"})
	fake.mu.Unlock()

	_, err = c.UpdateStatus(ctx, 9, core.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, "approved", fake.grid[2][8])
}

func TestClient_Rows(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	for _, e := range []core.Expense{expense(1, core.StatusPending), expense(2, core.StatusApproved)} {
		_, err := c.Append(ctx, e)
		require.NoError(t, err)
	}
	rows, err := c.Rows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(2), rows[1].ExpenseID)
	assert.Equal(t, core.StatusApproved, rows[1].Status)
	assert.Equal(t, "'Ledger'!A3:I3", rows[1].Ref)
}

func TestClient_ErrorsAreUnavailable(t *testing.T) {
	c, fake := newTestClient(t)
	fake.fail = true

	_, err := c.Append(context.Background(), expense(1, core.StatusPending))
	assert.ErrorIs(t, err, core.ErrUnavailable)
	_, err = c.Rows(context.Background())
	assert.ErrorIs(t, err, core.ErrUnavailable)
}

func TestNewClient_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, Config{})
	assert.EqualError(t, err, "missing GOOGLE_SPREADSHEET_ID")

	_, err = NewClient(ctx, Config{SpreadsheetID: "id"})
	assert.ErrorIs(t, err, ErrNoCredentials)

	_, err = NewClient(ctx, Config{SpreadsheetID: "id", Credentials: Credentials{OAuthClientJSON: "invalid-json", OAuthTokenJSON: `{"access_token":"x"}`}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oauth config")

	_, err = NewClient(ctx, Config{SpreadsheetID: "id", Credentials: Credentials{ServiceAccountJSON: "{}"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service account config")

	_, err = NewClient(ctx, Config{SpreadsheetID: "id", Credentials: Credentials{ServiceAccountFile: filepath.Join(t.TempDir(), "missing.json")}})
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

const testOAuthClient = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`

func TestTokenSource_OAuth(t *testing.T) {
	ctx := context.Background()

	_, _, err := tokenSource(ctx, Credentials{OAuthClientJSON: testOAuthClient})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing OAuth token")

	_, _, err = tokenSource(ctx, Credentials{OAuthClientJSON: testOAuthClient, OAuthTokenJSON: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse oauth token")

	tokenFile := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(tokenFile, []byte(`{"access_token":"abc","token_type":"Bearer"}`), 0o600))
	ts, mode, err := tokenSource(ctx, Credentials{OAuthClientJSON: testOAuthClient, OAuthTokenFile: tokenFile})
	require.NoError(t, err)
	assert.Equal(t, "oauth", mode)
	assert.NotNil(t, ts)
}
