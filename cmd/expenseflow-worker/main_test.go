package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenseflow/internal/config"
	"expenseflow/internal/log"
	gsheet "expenseflow/internal/sheets/google"
	"expenseflow/internal/sheets/memory"
)

func TestOpenLedger(t *testing.T) {
	logger := log.New(log.Config{Level: slog.LevelError})

	ledger, err := openLedger(context.Background(), &config.Config{}, logger)
	require.NoError(t, err)
	assert.IsType(t, &memory.Ledger{}, ledger)

	_, err = openLedger(context.Background(), &config.Config{GoogleSpreadsheetID: "sheet-1"}, logger)
	assert.ErrorIs(t, err, gsheet.ErrNoCredentials)
}
