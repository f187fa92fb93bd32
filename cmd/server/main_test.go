package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/fxledger/internal/infrastructure/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		ReferenceCurrency:   "LYD",
		AllocationTolerance: decimal.RequireFromString("0.001"),
		BreakdownThreshold:  decimal.RequireFromString("0.001"),
		BackupDriver:        config.BackupNone,
		BackupDir:           t.TempDir(),
		BackupRetention:     5,
	}
}

func do(t *testing.T, app *application, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	return rec
}

func TestApplication_StateFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.StateFile = filepath.Join(t.TempDir(), "state", "ledger.json")

	app, err := newApplication(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)

	rec := do(t, app, http.MethodPost, "/api/v1/assets", `{"name":"Vault","currency":"LYD","opening_balance":"250"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NoError(t, app.saveState(ctx))
	app.close()

	_, err = os.Stat(cfg.StateFile)
	require.NoError(t, err)

	reloaded, err := newApplication(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer reloaded.close()

	rec = do(t, reloaded, http.MethodGet, "/api/v1/assets", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var assets []struct {
		Name    string          `json:"name"`
		Balance decimal.Decimal `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &assets))
	require.Len(t, assets, 1)
	assert.Equal(t, "Vault", assets[0].Name)
	assert.Equal(t, "250", assets[0].Balance.String())
}

func TestApplication_RejectsCorruptStateFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.StateFile = filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(cfg.StateFile, []byte("{"), 0o600))

	_, err := newApplication(context.Background(), cfg, zerolog.Nop())
	require.ErrorContains(t, err, "load state file")
}

func TestApplication_FileBackups(t *testing.T) {
	cfg := testConfig(t)
	cfg.BackupDriver = config.BackupFile

	app, err := newApplication(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer app.close()

	rec := do(t, app, http.MethodPost, "/api/v1/backups", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	entries, err := os.ReadDir(cfg.BackupDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	rec = do(t, app, http.MethodPost, "/api/v1/backups/restore", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestApplication_BackupsDisabled(t *testing.T) {
	app, err := newApplication(context.Background(), testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	defer app.close()

	rec := do(t, app, http.MethodPost, "/api/v1/backups", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestApplication_RedisDriver(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.BackupDriver = config.BackupRedis

	app, err := newApplication(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer app.close()

	rec := do(t, app, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, app, http.MethodPost, "/api/v1/backups", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, mr.Keys())
}

func TestApplication_AuthEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.AuthEnabled = true
	cfg.JWTSecret = "secret"

	app, err := newApplication(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer app.close()

	rec := do(t, app, http.MethodGet, "/api/v1/balances", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestApplication_RedisUnavailable(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisURL = "redis://127.0.0.1:1"

	_, err := newApplication(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
}
