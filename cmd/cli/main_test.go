package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/fxledger/internal/adapter/repository/file"
	"github.com/iho/fxledger/internal/adapter/repository/memory"
	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/infrastructure/auth"
	"github.com/iho/fxledger/internal/usecase"
)

type seeded struct {
	path    string
	lydID   string
	usdID   string
	groupID string
}

// seedBundle writes a bundle holding a LYD vault, a USD box and one buy.
func seedBundle(t *testing.T) seeded {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	assetRepo := memory.NewAssetRepository(store)
	txRepo := memory.NewTransactionRepository(store)
	debtRepo := memory.NewDebtRepository(store)
	ids := memory.NewULIDGenerator()
	log := zerolog.Nop()

	assets := usecase.NewAssetUseCase(txm, assetRepo, ids, nil, nil, log)
	ledgerUC := usecase.NewLedgerUseCase(txm, assetRepo, txRepo, debtRepo, ids, nil, nil, log)
	ops := usecase.NewOperationUseCase(ledgerUC, assetRepo, debtRepo, "LYD")
	backup := usecase.NewBackupUseCase(txm, store, nil, nil, nil, nil, log)

	lyd, err := assets.CreateAsset(ctx, usecase.CreateAssetInput{Name: "Vault", Currency: "LYD", OpeningBalance: decimal.NewFromInt(10000)})
	require.NoError(t, err)
	usd, err := assets.CreateAsset(ctx, usecase.CreateAssetInput{Name: "USD box", Currency: "USD"})
	require.NoError(t, err)

	txs, err := ops.BuyCurrency(ctx, usecase.TradeInput{
		Meta:           usecase.Meta{Description: "counter buy"},
		ForeignAssetID: usd.ID,
		LocalAssetID:   lyd.ID,
		Quantity:       decimal.NewFromInt(100),
		Rate:           decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	data, err := backup.ExportJSON(ctx)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, file.StateFile{Path: path}.Save(data))

	return seeded{path: path, lydID: lyd.ID, usdID: usd.ID, groupID: txs[0].GroupID}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("expected short unchanged, got %q", got)
	}

	if got := truncate("longerstring", 6); got != "lon..." {
		t.Fatalf("expected lon..., got %q", got)
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, struct {
		A int `json:"a"`
	}{A: 1}); err != nil {
		t.Fatalf("printJSON failed: %v", err)
	}

	expected := "{\n  \"a\": 1\n}\n"
	if buf.String() != expected {
		t.Fatalf("unexpected json output:\n%s", buf.String())
	}
}

func TestParseRates(t *testing.T) {
	tests := []struct {
		name    string
		rates   []string
		parts   []string
		wantErr bool
		check   func(t *testing.T, got map[string]domain.RateInput)
	}{
		{
			name:  "single rate",
			rates: []string{"usd=10.5"},
			check: func(t *testing.T, got map[string]domain.RateInput) {
				require.True(t, got["USD"].Rate.Valid)
				assert.Equal(t, "10.5", got["USD"].Rate.Decimal.String())
			},
		},
		{
			name:  "split parts",
			parts: []string{"EUR=60@5", "EUR=40@5.2"},
			check: func(t *testing.T, got map[string]domain.RateInput) {
				require.Len(t, got["EUR"].Parts, 2)
				assert.Equal(t, "100", got["EUR"].Allocated().String())
			},
		},
		{name: "missing separator", rates: []string{"USD10"}, wantErr: true},
		{name: "bad number", rates: []string{"USD=ten"}, wantErr: true},
		{name: "duplicate", rates: []string{"USD=10", "usd=11"}, wantErr: true},
		{name: "rate and parts", rates: []string{"USD=10"}, parts: []string{"USD=1@10"}, wantErr: true},
		{name: "part without rate", parts: []string{"USD=100"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRates(tt.rates, tt.parts)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, got)
		})
	}
}

func TestParseWindow(t *testing.T) {
	window, err := parseWindow("2024-06-01", "2024-06-30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), window.From)
	assert.Equal(t, time.Date(2024, 6, 30, 23, 59, 59, 999999999, time.UTC), window.To)

	window, err = parseWindow("", "2024-06-30T12:00:00Z")
	require.NoError(t, err)
	assert.True(t, window.From.IsZero())
	assert.Equal(t, 12, window.To.Hour())

	_, err = parseWindow("June", "")
	require.ErrorContains(t, err, "--from")
}

func TestBalancesCmd(t *testing.T) {
	s := seedBundle(t)

	out, err := execute(t, "balances", "--file", s.path)
	require.NoError(t, err)
	assert.Contains(t, out, "USD box")
	assert.Contains(t, out, "$100.00")

	out, err = execute(t, "balances", "--file", s.path, "--json")
	require.NoError(t, err)
	var assets []*domain.Asset
	require.NoError(t, json.Unmarshal([]byte(out), &assets))
	require.Len(t, assets, 2)
}

func TestTxListCmd(t *testing.T) {
	s := seedBundle(t)

	out, err := execute(t, "tx", "list", "--file", s.path, "--asset", s.usdID)
	require.NoError(t, err)
	assert.Contains(t, out, "buy")
	assert.Contains(t, out, "counter buy")

	_, err = execute(t, "tx", "list", "--file", s.path, "--deleted", "maybe")
	require.ErrorContains(t, err, "--deleted")
}

func TestGroupCmd_DeletePersists(t *testing.T) {
	s := seedBundle(t)

	out, err := execute(t, "group", "delete", s.groupID, "--file", s.path)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")

	out, err = execute(t, "balances", "--file", s.path)
	require.NoError(t, err)
	assert.Contains(t, out, "$0.00")

	_, err = execute(t, "group", "delete", s.groupID, "--file", s.path)
	require.ErrorIs(t, err, domain.ErrAlreadyDeleted)

	_, err = execute(t, "group", "restore", s.groupID, "--file", s.path)
	require.NoError(t, err)

	out, err = execute(t, "group", "show", s.groupID, "--file", s.path)
	require.NoError(t, err)
	assert.Contains(t, out, "active")
}

func TestCapitalCmds(t *testing.T) {
	s := seedBundle(t)

	_, err := execute(t, "capital", "close", "--file", s.path)
	require.ErrorIs(t, err, domain.ErrMissingRate)

	out, err := execute(t, "capital", "close", "--file", s.path, "--rate", "USD=10", "--note", "month end")
	require.NoError(t, err)
	assert.Contains(t, out, "Closed")

	out, err = execute(t, "capital", "history", "--file", s.path, "--json")
	require.NoError(t, err)
	var history []*domain.CapitalHistoryEntry
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	require.Len(t, history, 1)
	assert.Equal(t, "month end", history[0].Note)
	assert.Equal(t, "10000", history[0].Total.String())

	out, err = execute(t, "capital", "evolution", "--file", s.path)
	require.NoError(t, err)
	assert.Contains(t, out, "0.00%")

	out, err = execute(t, "capital", "current", "--file", s.path)
	require.NoError(t, err)
	assert.Contains(t, out, "TOTAL")
}

func TestProfitAndReconcileCmds(t *testing.T) {
	s := seedBundle(t)

	out, err := execute(t, "profit", "--file", s.path)
	require.NoError(t, err)
	assert.Contains(t, out, "Net")

	out, err = execute(t, "reconcile", "--file", s.path)
	require.NoError(t, err)
	assert.Contains(t, out, "Reconciled 2 of 2 assets")
}

func TestMissingFileOpensEmptyLedger(t *testing.T) {
	out, err := execute(t, "balances", "--file", filepath.Join(t.TempDir(), "none.json"), "--json")
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))
}

func TestTokenCmd(t *testing.T) {
	out, err := execute(t, "token", "--secret", "s3cret", "--user", "u-1", "--name", "Salem", "--role", "viewer")
	require.NoError(t, err)

	claims, err := auth.NewJWTManager("s3cret", time.Hour).Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, domain.RoleViewer, claims.Role)

	t.Setenv("JWT_SECRET", "")
	_, err = execute(t, "token", "--secret", "")
	require.Error(t, err)

	_, err = execute(t, "token", "--secret", "s3cret", "--role", "root")
	require.ErrorIs(t, err, domain.ErrValidation)
}
