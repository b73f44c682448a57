package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

// Credentials selects how the ledger authenticates. A service account wins
// over an OAuth client; inline JSON wins over a file path.
type Credentials struct {
	ServiceAccountJSON string
	ServiceAccountFile string
	OAuthClientJSON    string
	OAuthClientFile    string
	OAuthTokenJSON     string
	OAuthTokenFile     string
}

// ErrNoCredentials is returned when neither credential kind is configured.
var ErrNoCredentials = errors.New("missing Google credentials (set a service account or an OAuth client and token)")

func readInlineOrFile(inline, path string) ([]byte, error) {
	if s := strings.TrimSpace(inline); s != "" {
		return []byte(s), nil
	}
	if p := strings.TrimSpace(path); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, nil
}

// tokenSource builds the token source and names the mode it picked.
func tokenSource(ctx context.Context, c Credentials) (oauth2.TokenSource, string, error) {
	sa, err := readInlineOrFile(c.ServiceAccountJSON, c.ServiceAccountFile)
	if err != nil {
		return nil, "", fmt.Errorf("read service account file: %w", err)
	}
	if sa != nil {
		cfg, err := google.JWTConfigFromJSON(sa, gsheet.SpreadsheetsScope)
		if err != nil {
			return nil, "", fmt.Errorf("service account config: %w", err)
		}
		return cfg.TokenSource(ctx), "service_account", nil
	}

	client, err := readInlineOrFile(c.OAuthClientJSON, c.OAuthClientFile)
	if err != nil {
		return nil, "", fmt.Errorf("read oauth client file: %w", err)
	}
	if client == nil {
		return nil, "", ErrNoCredentials
	}
	cfg, err := google.ConfigFromJSON(client, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, "", fmt.Errorf("oauth config: %w", err)
	}

	raw, err := readInlineOrFile(c.OAuthTokenJSON, c.OAuthTokenFile)
	if err != nil {
		return nil, "", fmt.Errorf("read oauth token file: %w", err)
	}
	if raw == nil {
		return nil, "", errors.New("missing OAuth token (run oauth-init and set GOOGLE_OAUTH_TOKEN_FILE)")
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, "", fmt.Errorf("parse oauth token: %w", err)
	}
	return cfg.TokenSource(ctx, &tok), "oauth", nil
}
