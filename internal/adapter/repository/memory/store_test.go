package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store   *Store
	txm     *TxManager
	assets  *AssetRepository
	txs     *TransactionRepository
	debts   *DebtRepository
	history *CapitalHistoryRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := NewStore()
	f := &fixture{
		store:   store,
		txm:     NewTxManager(store),
		assets:  NewAssetRepository(store),
		txs:     NewTransactionRepository(store),
		debts:   NewDebtRepository(store),
		history: NewCapitalHistoryRepository(store),
	}

	f.unit(t, func(tx usecase.Transaction) error {
		ctx := context.Background()
		if err := f.assets.Create(ctx, tx, &domain.Asset{ID: "vault", Name: "Vault", Kind: domain.AssetKindCash, Currency: "LYD", Balance: decimal.NewFromInt(1000)}); err != nil {
			return err
		}
		return f.assets.Create(ctx, tx, &domain.Asset{ID: "usd", Name: "USD box", Kind: domain.AssetKindCash, Currency: "USD"})
	})
	return f
}

func (f *fixture) unit(t *testing.T, fn func(tx usecase.Transaction) error) {
	t.Helper()
	ctx := context.Background()
	tx, err := f.txm.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	require.NoError(t, fn(tx))
	require.NoError(t, tx.Commit(ctx))
}

func balance(t *testing.T, f *fixture, id string) string {
	t.Helper()
	a, err := f.assets.GetByID(context.Background(), id)
	require.NoError(t, err)
	return a.Balance.String()
}

func TestTx_RollbackUndoesEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.txm.Begin(ctx)
	require.NoError(t, err)

	in := &domain.Transaction{ID: "t-1", GroupID: "g-1", CreatedAt: t0, Currency: "LYD", AssetID: "vault", Amount: decimal.NewFromInt(-200)}
	require.NoError(t, f.txs.Append(ctx, tx, in))
	require.NoError(t, f.assets.ApplyPostings(ctx, tx, []domain.Posting{in.Posting()}))
	require.NoError(t, f.assets.Remove(ctx, tx, "usd"))
	require.NoError(t, tx.Rollback(ctx))

	assert.Equal(t, "1000", balance(t, f, "vault"))
	_, err = f.txs.GetByID(ctx, "t-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	members, err := f.txs.ListByGroup(ctx, "g-1")
	require.NoError(t, err)
	assert.Empty(t, members)
	list, err := f.assets.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, "usd", list[1].ID)
}

func TestTx_CommitAndFinishedUnit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.txm.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	assert.ErrorIs(t, tx.Commit(ctx), ErrTxDone)
	assert.NoError(t, tx.Rollback(ctx))

	err = f.txs.Append(ctx, tx, &domain.Transaction{ID: "late", Currency: "LYD", AssetID: "vault", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrNoUnitOfWork)
	assert.ErrorIs(t, f.assets.Remove(ctx, nil, "vault"), ErrNoUnitOfWork)
}

func TestTx_CancelledCommitRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	tx, err := f.txm.Begin(ctx)
	require.NoError(t, err)
	in := &domain.Transaction{ID: "t-1", CreatedAt: t0, Currency: "LYD", AssetID: "vault", Amount: decimal.NewFromInt(5)}
	require.NoError(t, f.assets.ApplyPostings(ctx, tx, []domain.Posting{in.Posting()}))

	cancel()
	assert.ErrorIs(t, tx.Commit(ctx), context.Canceled)
	assert.Equal(t, "1000", balance(t, f, "vault"))
}

func TestTx_WritersAreSerialized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.txm.Begin(ctx)
	require.NoError(t, err)

	started := make(chan struct{})
	acquired := make(chan struct{})
	go func() {
		close(started)
		second, err := f.txm.Begin(ctx)
		if err == nil {
			_ = second.Rollback(ctx)
		}
		close(acquired)
	}()

	<-started
	select {
	case <-acquired:
		t.Fatal("second unit of work started while the first was active")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, first.Commit(ctx))
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second unit of work never started")
	}
}

func TestAssetRepository_ApplyPostingsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	good := &domain.Transaction{ID: "a", AssetID: "vault", Amount: decimal.NewFromInt(10)}
	bad := &domain.Transaction{ID: "b", AssetID: "ghost", Amount: decimal.NewFromInt(10)}

	tx, err := f.txm.Begin(ctx)
	require.NoError(t, err)
	err = f.assets.ApplyPostings(ctx, tx, []domain.Posting{good.Posting(), bad.Posting()})
	require.NoError(t, tx.Commit(ctx))

	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "ghost", nf.ID)
	assert.Equal(t, "1000", balance(t, f, "vault"))
}

func TestAssetRepository_BankAssetRequiresBank(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.txm.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	err = f.assets.Create(ctx, tx, &domain.Asset{ID: "acc", Name: "Account", Kind: domain.AssetKindBank, BankID: "nope", Currency: "LYD"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, f.assets.CreateBank(ctx, tx, &domain.Bank{ID: "nope", Name: "Wahda"}))
	assert.NoError(t, f.assets.Create(ctx, tx, &domain.Asset{ID: "acc", Name: "Account", Kind: domain.AssetKindBank, BankID: "nope", Currency: "LYD"}))
}

func TestTransactionRepository_QueryOrderingAndRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.unit(t, func(tx usecase.Transaction) error {
		for _, in := range []*domain.Transaction{
			{ID: "late", CreatedAt: t0.Add(time.Hour), Currency: "LYD", AssetID: "vault", Amount: decimal.NewFromInt(3)},
			{ID: "early", CreatedAt: t0, Currency: "usd", AssetID: "usd", Amount: decimal.NewFromInt(1)},
			{ID: "tie", CreatedAt: t0, Currency: "LYD", AssetID: "vault", Amount: decimal.NewFromInt(2), Deleted: true},
		} {
			if err := f.txs.Append(ctx, tx, in); err != nil {
				return err
			}
		}
		return nil
	})

	seq, err := f.txs.Query(ctx, domain.TransactionFilter{})
	require.NoError(t, err)

	var ids []string
	for tr := range seq {
		ids = append(ids, tr.ID)
	}
	assert.Equal(t, []string{"early", "tie", "late"}, ids)

	var again []string
	for tr := range seq {
		again = append(again, tr.ID)
	}
	assert.Equal(t, ids, again, "sequence must be restartable")

	seq, err = f.txs.Query(ctx, domain.TransactionFilter{Order: domain.OrderDescending, Deleted: domain.ActiveOnly()})
	require.NoError(t, err)
	ids = ids[:0]
	for tr := range seq {
		ids = append(ids, tr.ID)
	}
	assert.Equal(t, []string{"late", "early"}, ids)

	seq, err = f.txs.Query(ctx, domain.TransactionFilter{Currency: "USD"})
	require.NoError(t, err)
	count := 0
	for range seq {
		count++
	}
	assert.Equal(t, 1, count)

	_, err = f.txs.Query(ctx, domain.TransactionFilter{Range: domain.DateRange{From: t0, To: t0.Add(-time.Second)}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTransactionRepository_QueryReturnsCopies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.unit(t, func(tx usecase.Transaction) error {
		return f.txs.Append(ctx, tx, &domain.Transaction{ID: "t", CreatedAt: t0, Currency: "LYD", AssetID: "vault", Amount: decimal.NewFromInt(3)})
	})

	seq, err := f.txs.Query(ctx, domain.TransactionFilter{})
	require.NoError(t, err)
	for tr := range seq {
		tr.Deleted = true
	}

	got, err := f.txs.GetByID(ctx, "t")
	require.NoError(t, err)
	assert.False(t, got.Deleted)
}

func TestTransactionRepository_AppendValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.txm.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	err = f.txs.Append(ctx, tx, &domain.Transaction{ID: "zero", Currency: "LYD", AssetID: "vault"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, f.txs.Append(ctx, tx, &domain.Transaction{ID: "dup", Currency: "LYD", AssetID: "vault", Amount: decimal.NewFromInt(1)}))
	err = f.txs.Append(ctx, tx, &domain.Transaction{ID: "dup", Currency: "LYD", AssetID: "vault", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDebtRepository_AdjustPaidBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.unit(t, func(tx usecase.Transaction) error {
		if err := f.debts.Create(ctx, tx, &domain.Debt{ID: "d", Party: "Ali", Currency: "USD", Direction: domain.DebtOwedToUs}); err != nil {
			return err
		}
		return f.debts.AddInstallment(ctx, tx, "d", domain.Installment{ID: "i", Amount: decimal.NewFromInt(100)})
	})

	tx, err := f.txm.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, f.debts.AdjustPaid(ctx, tx, "d", "i", decimal.NewFromInt(60)))
	assert.ErrorIs(t, f.debts.AdjustPaid(ctx, tx, "d", "i", decimal.NewFromInt(41)), domain.ErrValidation)
	assert.ErrorIs(t, f.debts.AdjustPaid(ctx, tx, "d", "missing", decimal.NewFromInt(1)), domain.ErrNotFound)
	require.NoError(t, f.debts.Archive(ctx, tx, "d", "i"))
	require.NoError(t, tx.Rollback(ctx))

	d, err := f.debts.GetByID(ctx, "d")
	require.NoError(t, err)
	assert.True(t, d.Installments[0].Paid.IsZero())
	assert.False(t, d.Installments[0].Archived)

	receivables, err := f.debts.List(ctx, domain.DebtOwedByUs)
	require.NoError(t, err)
	assert.Empty(t, receivables)
}

func TestCapitalHistoryRepository_Lookups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.unit(t, func(tx usecase.Transaction) error {
		for i, total := range []int64{300, 100, 200} {
			ts := t0.AddDate(0, 0, []int{2, 0, 1}[i])
			if err := f.history.Append(ctx, tx, &domain.CapitalHistoryEntry{ID: ts.Format("0102"), Timestamp: ts, Total: decimal.NewFromInt(total)}); err != nil {
				return err
			}
		}
		return nil
	})

	all, err := f.history.Query(ctx, domain.DateRange{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].Total.Equal(decimal.NewFromInt(100)))
	assert.True(t, all[2].Total.Equal(decimal.NewFromInt(300)))

	at, err := f.history.LatestAtOrBefore(ctx, t0.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, at.Total.Equal(decimal.NewFromInt(200)))

	before, err := f.history.LatestBefore(ctx, t0.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, before.Total.Equal(decimal.NewFromInt(100)))

	none, err := f.history.LatestBefore(ctx, t0)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestCapitalHistoryRepository_EntriesAreImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry := &domain.CapitalHistoryEntry{
		ID:          "close-1",
		Timestamp:   t0,
		Total:       decimal.NewFromInt(2540),
		PerCurrency: map[string]decimal.Decimal{"LYD": decimal.NewFromInt(1000), "USD": decimal.NewFromInt(300)},
		Converted:   map[string]decimal.Decimal{"USD": decimal.NewFromInt(1540)},
		Rates: map[string]domain.RateInput{"USD": domain.SplitRate(
			domain.AllocationPart{Amount: decimal.NewFromInt(100), Rate: decimal.NewFromInt(5)},
			domain.AllocationPart{Amount: decimal.NewFromInt(200), Rate: decimal.RequireFromString("5.2")},
		)},
		Breakdown: map[string][]domain.CapitalItem{"LYD": {{Label: "Vault", Value: decimal.NewFromInt(1000), Sign: 1}}},
	}
	f.unit(t, func(tx usecase.Transaction) error {
		return f.history.Append(ctx, tx, entry)
	})

	entry.PerCurrency["USD"] = decimal.NewFromInt(999999)
	entry.Rates["USD"].Parts[0] = domain.AllocationPart{Amount: decimal.NewFromInt(1), Rate: decimal.NewFromInt(1)}
	entry.Breakdown["LYD"][0].Value = decimal.NewFromInt(-1)

	got, err := f.history.Query(ctx, domain.DateRange{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	got[0].Converted["USD"] = decimal.Zero
	got[0].Breakdown["LYD"][0].Value = decimal.NewFromInt(-1)

	latest, err := f.history.LatestAtOrBefore(ctx, t0)
	require.NoError(t, err)
	latest.Rates["USD"].Parts[1].Rate = decimal.Zero

	snapshot, err := f.store.Snapshot(ctx)
	require.NoError(t, err)
	snapshot.CapitalHistory[0].PerCurrency["LYD"] = decimal.Zero

	stored, err := f.history.LatestAtOrBefore(ctx, t0)
	require.NoError(t, err)
	assert.True(t, stored.PerCurrency["USD"].Equal(decimal.NewFromInt(300)))
	assert.True(t, stored.PerCurrency["LYD"].Equal(decimal.NewFromInt(1000)))
	assert.True(t, stored.Converted["USD"].Equal(decimal.NewFromInt(1540)))
	assert.True(t, stored.Rates["USD"].Parts[0].Amount.Equal(decimal.NewFromInt(100)))
	assert.True(t, stored.Rates["USD"].Parts[0].Rate.Equal(decimal.NewFromInt(5)))
	assert.True(t, stored.Rates["USD"].Parts[1].Rate.Equal(decimal.RequireFromString("5.2")))
	assert.True(t, stored.Breakdown["LYD"][0].Value.Equal(decimal.NewFromInt(1000)))
}

func TestStore_SnapshotRestore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	settings := NewSettingsRepository(f.store)

	f.unit(t, func(tx usecase.Transaction) error {
		if err := f.txs.Append(ctx, tx, &domain.Transaction{ID: "t", GroupID: "g", CreatedAt: t0, Currency: "LYD", AssetID: "vault", Amount: decimal.NewFromInt(3), Operation: domain.DepositOperation{Source: "owner"}}); err != nil {
			return err
		}
		if err := f.debts.Create(ctx, tx, &domain.Debt{ID: "r", Party: "Supplier", Currency: "LYD", Direction: domain.DebtOwedByUs}); err != nil {
			return err
		}
		return settings.Put(ctx, tx, "sidebar", json.RawMessage(`["capital"]`))
	})

	snap, err := f.store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Assets, 2)
	assert.Len(t, snap.Transactions, 1)
	assert.Len(t, snap.Receivables, 1)
	assert.Empty(t, snap.Debts)

	other := NewStore()
	tx, err := NewTxManager(other).Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, other.Restore(ctx, tx, snap))
	require.NoError(t, tx.Commit(ctx))

	restored, err := other.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap, restored)

	members, err := NewTransactionRepository(other).ListByGroup(ctx, "g")
	require.NoError(t, err)
	assert.Len(t, members, 1)

	tx, err = NewTxManager(other).Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, other.Restore(ctx, tx, &domain.Bundle{}))
	require.NoError(t, tx.Rollback(ctx))

	afterRollback, err := other.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap, afterRollback)
}

func TestSettingsRepository_RejectsInvalidJSON(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	settings := NewSettingsRepository(f.store)

	tx, err := f.txm.Begin(ctx)
	require.NoError(t, err)
	err = settings.Put(ctx, tx, "dashboard", json.RawMessage(`{broken`))
	require.NoError(t, tx.Rollback(ctx))
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = settings.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
