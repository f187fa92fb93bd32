package main

import (
	"context"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/adapter/repository/file"
	"github.com/iho/fxledger/internal/adapter/repository/memory"
	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/infrastructure/logger"
	"github.com/iho/fxledger/internal/usecase"
)

// ledger is the engine loaded from a bundle file for one command.
type ledger struct {
	file    file.StateFile
	backup  *usecase.BackupUseCase
	ledger  *usecase.LedgerUseCase
	groups  *usecase.GroupUseCase
	capital *usecase.CapitalUseCase
	profit  *usecase.ProfitUseCase
	recon   *usecase.ReconciliationUseCase
}

type ledgerOptions struct {
	path      string
	reference string
	tolerance decimal.Decimal
	logOut    io.Writer
}

// openLedger builds the engine and imports the bundle at opts.path.
// A missing file opens an empty ledger.
func openLedger(ctx context.Context, opts ledgerOptions) (*ledger, error) {
	log := logger.NewWithWriter(logger.Config{Level: "warn", Format: "console"}, opts.logOut)

	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	assetRepo := memory.NewAssetRepository(store)
	txRepo := memory.NewTransactionRepository(store)
	debtRepo := memory.NewDebtRepository(store)
	historyRepo := memory.NewCapitalHistoryRepository(store)
	ids := memory.NewULIDGenerator()

	policy := domain.ClosingPolicy{ReferenceCurrency: opts.reference, Tolerance: opts.tolerance}

	l := &ledger{
		file:    file.StateFile{Path: opts.path},
		backup:  usecase.NewBackupUseCase(txm, store, nil, nil, nil, nil, log),
		ledger:  usecase.NewLedgerUseCase(txm, assetRepo, txRepo, debtRepo, ids, nil, nil, log),
		groups:  usecase.NewGroupUseCase(txm, assetRepo, txRepo, debtRepo, nil, nil, log),
		capital: usecase.NewCapitalUseCase(txm, assetRepo, txRepo, debtRepo, historyRepo, ids, policy, nil, nil, log),
		profit:  usecase.NewProfitUseCase(txRepo, domain.DefaultBreakdownThreshold, nil),
		recon:   usecase.NewReconciliationUseCase(assetRepo, txRepo, nil),
	}

	data, err := l.file.Load()
	if err != nil {
		return nil, err
	}
	if data != nil {
		if err := l.backup.ImportJSON(ctx, data); err != nil {
			return nil, fmt.Errorf("load %s: %w", opts.path, err)
		}
	}
	return l, nil
}

// save writes the engine state back to the bundle file.
func (l *ledger) save(ctx context.Context) error {
	data, err := l.backup.ExportJSON(ctx)
	if err != nil {
		return err
	}
	return l.file.Save(data)
}
