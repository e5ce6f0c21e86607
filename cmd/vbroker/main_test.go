package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const backtestConfig = `
account:
  deposit: 10000
  leverage: 30
  commission: "0.002"
  spread: "0.0001"
instruments:
  - symbol: EUR_USD
    pip_size: "0.0001"
data:
  kind: synthetic
  symbols: [EUR_USD, GBP_USD]
  from: 2024-01-01T00:00:00Z
  to: 2024-01-01T02:00:00Z
  period: 1m
  synthetic:
    seed: 11
    start_price: 1.1
    sigma: 0.2
journal:
  dsn: %s
log:
  level: error
orders:
  - at: 2024-01-01T00:10:00Z
    instrument: EUR_USD
    direction: long
    size: 1000
    stop_distance: 30
    trailing: true
  - at: 2024-01-01T00:20:00Z
    instrument: GBP_USD
    direction: short
    size: 500
  - at: 2024-01-01T00:30:00Z
    instrument: GBP_USD
    direction: short
    size: 100000000
`

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "vbroker version "+version+"\n", execute(t, "version"))
}

func TestBacktestAndJournal(t *testing.T) {
	dir := t.TempDir()
	journalPath := filepath.Join(dir, "journal.duckdb")
	configPath := filepath.Join(dir, "vbroker.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf(backtestConfig, journalPath)), 0o600))

	var result struct {
		Bars    int `json:"bars"`
		Account struct {
			Balance     string `json:"balance"`
			NAV         string `json:"nav"`
			TotalTrades int    `json:"total_trades"`
		} `json:"account"`
		Closed []struct {
			Id int64 `json:"id"`
		} `json:"closed_positions"`
		Cancelled []struct {
			Id     int64  `json:"id"`
			Reason string `json:"reason"`
			Type   struct {
				Kind string `json:"kind"`
			} `json:"type"`
		} `json:"cancelled_orders"`
	}
	require.NoError(t, json.Unmarshal([]byte(execute(t, "backtest", "--config", configPath, "--json")), &result))

	assert.Equal(t, 240, result.Bars)
	assert.Equal(t, 3, result.Account.TotalTrades)
	assert.Equal(t, result.Account.Balance, result.Account.NAV, "everything is closed at the end")
	assert.Len(t, result.Closed, 2)
	require.Len(t, result.Cancelled, 1)
	assert.Equal(t, "Insufficient margin", result.Cancelled[0].Reason)
	assert.Equal(t, "market", result.Cancelled[0].Type.Kind)

	summary := execute(t, "journal", "--dsn", journalPath)
	assert.True(t, strings.Contains(summary, "closed positions: 2"), summary)
	assert.True(t, strings.Contains(summary, "cancelled (Insufficient margin): 1"), summary)
}

func TestBacktestMissingConfig(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"backtest", "--config", filepath.Join(t.TempDir(), "none.yaml")})
	assert.Error(t, cmd.Execute())
}
