package memory

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

// Store holds the whole engine state in memory.
// Writers hold mu exclusively for the lifetime of a unit of work (see TxManager);
// plain reads take the read lock and return copies.
type Store struct {
	mu sync.RWMutex

	banks      map[string]*domain.Bank
	bankOrder  []string
	assets     map[string]*domain.Asset
	assetOrder []string
	txs        []*domain.Transaction
	txIndex    map[string]int
	groups     map[string][]int
	debts      map[string]*domain.Debt
	debtOrder  []string
	history    []*domain.CapitalHistoryEntry
	settings   map[string]json.RawMessage
}

// NewStore creates an empty Store.
func NewStore() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.banks = make(map[string]*domain.Bank)
	s.bankOrder = nil
	s.assets = make(map[string]*domain.Asset)
	s.assetOrder = nil
	s.txs = nil
	s.txIndex = make(map[string]int)
	s.groups = make(map[string][]int)
	s.debts = make(map[string]*domain.Debt)
	s.debtOrder = nil
	s.history = nil
	s.settings = make(map[string]json.RawMessage)
}

// Snapshot implements usecase.StateRepository.
func (s *Store) Snapshot(ctx context.Context) (*domain.Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	b := &domain.Bundle{
		Version:        domain.BundleVersion,
		Banks:          make([]*domain.Bank, 0, len(s.bankOrder)),
		Assets:         make([]*domain.Asset, 0, len(s.assetOrder)),
		Transactions:   make([]*domain.Transaction, 0, len(s.txs)),
		Debts:          []*domain.Debt{},
		Receivables:    []*domain.Debt{},
		CapitalHistory: make([]*domain.CapitalHistoryEntry, 0, len(s.history)),
		Settings:       make(map[string]json.RawMessage, len(s.settings)),
	}

	for _, id := range s.bankOrder {
		bank := *s.banks[id]
		b.Banks = append(b.Banks, &bank)
	}
	for _, id := range s.assetOrder {
		asset := *s.assets[id]
		b.Assets = append(b.Assets, &asset)
	}
	for _, t := range s.txs {
		b.Transactions = append(b.Transactions, t.Clone())
	}
	for _, id := range s.debtOrder {
		d := s.debts[id].Clone()
		if d.Direction == domain.DebtOwedByUs {
			b.Receivables = append(b.Receivables, d)
		} else {
			b.Debts = append(b.Debts, d)
		}
	}
	for _, h := range s.history {
		b.CapitalHistory = append(b.CapitalHistory, h.Clone())
	}
	for k, v := range s.settings {
		b.Settings[k] = slices.Clone(v)
	}

	return b, nil
}

// Restore implements usecase.StateRepository. Collections are replaced wholesale.
func (s *Store) Restore(ctx context.Context, tx usecase.Transaction, bundle *domain.Bundle) error {
	u, err := unitOf(tx)
	if err != nil {
		return err
	}

	banks, bankOrder := s.banks, s.bankOrder
	assets, assetOrder := s.assets, s.assetOrder
	txs, txIndex, groups := s.txs, s.txIndex, s.groups
	debts, debtOrder := s.debts, s.debtOrder
	history, settings := s.history, s.settings
	u.onRollback(func() {
		s.banks, s.bankOrder = banks, bankOrder
		s.assets, s.assetOrder = assets, assetOrder
		s.txs, s.txIndex, s.groups = txs, txIndex, groups
		s.debts, s.debtOrder = debts, debtOrder
		s.history, s.settings = history, settings
	})

	s.reset()

	for _, bank := range bundle.Banks {
		c := *bank
		s.banks[c.ID] = &c
		s.bankOrder = append(s.bankOrder, c.ID)
	}
	for _, asset := range bundle.Assets {
		c := *asset
		s.assets[c.ID] = &c
		s.assetOrder = append(s.assetOrder, c.ID)
	}
	for _, t := range bundle.Transactions {
		s.indexTransaction(t.Clone())
	}
	for _, d := range slices.Concat(bundle.Debts, bundle.Receivables) {
		s.debts[d.ID] = d.Clone()
		s.debtOrder = append(s.debtOrder, d.ID)
	}
	for _, h := range bundle.CapitalHistory {
		s.insertHistory(h.Clone())
	}
	for k, v := range bundle.Settings {
		s.settings[k] = slices.Clone(v)
	}

	return nil
}

func (s *Store) indexTransaction(t *domain.Transaction) int {
	idx := len(s.txs)
	s.txs = append(s.txs, t)
	s.txIndex[t.ID] = idx
	key := t.GroupKey()
	s.groups[key] = append(s.groups[key], idx)
	return idx
}

func (s *Store) insertHistory(entry *domain.CapitalHistoryEntry) int {
	idx := slices.IndexFunc(s.history, func(h *domain.CapitalHistoryEntry) bool {
		return h.Timestamp.After(entry.Timestamp)
	})
	if idx < 0 {
		idx = len(s.history)
	}
	s.history = slices.Insert(s.history, idx, entry)
	return idx
}
