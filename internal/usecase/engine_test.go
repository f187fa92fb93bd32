package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iho/fxledger/internal/adapter/repository/memory"
	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/infrastructure/metrics"
	"github.com/iho/fxledger/internal/usecase"
	"github.com/iho/fxledger/internal/usecase/mocks"
)

var day = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func nullDec(s string) decimal.NullDecimal { return decimal.NewNullDecimal(dec(s)) }

// engine wires every use case over one in-memory store.
type engine struct {
	store   *memory.Store
	clock   *mocks.MockClock
	backups *mocks.MockBackupStore
	metrics *metrics.Metrics

	ledger  *usecase.LedgerUseCase
	ops     *usecase.OperationUseCase
	groups  *usecase.GroupUseCase
	assets  *usecase.AssetUseCase
	debts   *usecase.DebtUseCase
	capital *usecase.CapitalUseCase
	backup  *usecase.BackupUseCase
	profit  *usecase.ProfitUseCase
	recon   *usecase.ReconciliationUseCase
}

func newEngine(t *testing.T) *engine {
	t.Helper()

	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	assetRepo := memory.NewAssetRepository(store)
	txRepo := memory.NewTransactionRepository(store)
	debtRepo := memory.NewDebtRepository(store)
	historyRepo := memory.NewCapitalHistoryRepository(store)

	ids := mocks.NewMockIDGenerator()
	clock := mocks.NewMockClock(day)
	clock.Step = time.Minute
	m := metrics.New(prometheus.NewRegistry())
	log := zerolog.Nop()

	e := &engine{
		store:   store,
		clock:   clock,
		backups: mocks.NewMockBackupStore(),
		metrics: m,
	}

	e.ledger = usecase.NewLedgerUseCase(txm, assetRepo, txRepo, debtRepo, ids, nil, m, log).WithClock(clock)
	e.ops = usecase.NewOperationUseCase(e.ledger, assetRepo, debtRepo, "LYD")
	e.groups = usecase.NewGroupUseCase(txm, assetRepo, txRepo, debtRepo, nil, m, log)
	e.assets = usecase.NewAssetUseCase(txm, assetRepo, ids, nil, m, log)
	e.debts = usecase.NewDebtUseCase(txm, debtRepo, ids, nil, log)
	e.backup = usecase.NewBackupUseCase(txm, store, e.backups, nil, nil, m, log).WithClock(clock)
	e.capital = usecase.NewCapitalUseCase(txm, assetRepo, txRepo, debtRepo, historyRepo, ids, domain.DefaultClosingPolicy(), nil, m, log).
		WithClock(clock).
		WithAutoBackup(e.backup)
	e.profit = usecase.NewProfitUseCase(txRepo, domain.DefaultBreakdownThreshold, nil)
	e.recon = usecase.NewReconciliationUseCase(assetRepo, txRepo, nil)

	return e
}

func (e *engine) cash(t *testing.T, name, currency, opening string) *domain.Asset {
	t.Helper()
	a, err := e.assets.CreateAsset(context.Background(), usecase.CreateAssetInput{
		Name:           name,
		Currency:       currency,
		Kind:           domain.AssetKindCash,
		OpeningBalance: dec(opening),
	})
	require.NoError(t, err)
	return a
}

func (e *engine) balance(t *testing.T, assetID string) decimal.Decimal {
	t.Helper()
	a, err := e.assets.GetAsset(context.Background(), assetID)
	require.NoError(t, err)
	return a.Balance
}

func (e *engine) balances(t *testing.T) map[string]string {
	t.Helper()
	all, err := e.ledger.GetBalances(context.Background())
	require.NoError(t, err)
	out := make(map[string]string, len(all))
	for _, a := range all {
		out[a.ID] = a.Balance.String()
	}
	return out
}

func (e *engine) buy(t *testing.T, usd, lyd *domain.Asset, qty, rate string) string {
	t.Helper()
	created, err := e.ops.BuyCurrency(context.Background(), usecase.TradeInput{
		ForeignAssetID: usd.ID,
		LocalAssetID:   lyd.ID,
		Quantity:       dec(qty),
		Rate:           dec(rate),
	})
	require.NoError(t, err)
	return created[0].GroupID
}

func (e *engine) sell(t *testing.T, usd, lyd *domain.Asset, qty, rate string) string {
	t.Helper()
	created, err := e.ops.SellCurrency(context.Background(), usecase.TradeInput{
		ForeignAssetID: usd.ID,
		LocalAssetID:   lyd.ID,
		Quantity:       dec(qty),
		Rate:           dec(rate),
	})
	require.NoError(t, err)
	return created[0].GroupID
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}
