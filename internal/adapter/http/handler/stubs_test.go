package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

func setChiURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

type assetServiceStub struct {
	createBankFn  func(ctx context.Context, name string) (*domain.Bank, error)
	listBanksFn   func(ctx context.Context) ([]*domain.Bank, error)
	createAssetFn func(ctx context.Context, input usecase.CreateAssetInput) (*domain.Asset, error)
	getAssetFn    func(ctx context.Context, id string) (*domain.Asset, error)
	listAssetsFn  func(ctx context.Context) ([]*domain.Asset, error)
	removeAssetFn func(ctx context.Context, id string) error
}

func (s *assetServiceStub) CreateBank(ctx context.Context, name string) (*domain.Bank, error) {
	return s.createBankFn(ctx, name)
}

func (s *assetServiceStub) ListBanks(ctx context.Context) ([]*domain.Bank, error) {
	if s.listBanksFn == nil {
		return nil, nil
	}
	return s.listBanksFn(ctx)
}

func (s *assetServiceStub) CreateAsset(ctx context.Context, input usecase.CreateAssetInput) (*domain.Asset, error) {
	return s.createAssetFn(ctx, input)
}

func (s *assetServiceStub) GetAsset(ctx context.Context, id string) (*domain.Asset, error) {
	return s.getAssetFn(ctx, id)
}

func (s *assetServiceStub) ListAssets(ctx context.Context) ([]*domain.Asset, error) {
	return s.listAssetsFn(ctx)
}

func (s *assetServiceStub) RemoveAsset(ctx context.Context, id string) error {
	return s.removeAssetFn(ctx, id)
}

type ledgerServiceStub struct {
	balancesFn   func(ctx context.Context) ([]*domain.Asset, error)
	historicalFn func(ctx context.Context, assetID string, at time.Time) (decimal.Decimal, error)
	getFn        func(ctx context.Context, id string) (*domain.Transaction, error)
	listFn       func(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.Transaction, error)
}

func (s *ledgerServiceStub) GetBalances(ctx context.Context) ([]*domain.Asset, error) {
	return s.balancesFn(ctx)
}

func (s *ledgerServiceStub) GetHistoricalBalance(ctx context.Context, assetID string, at time.Time) (decimal.Decimal, error) {
	return s.historicalFn(ctx, assetID, at)
}

func (s *ledgerServiceStub) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return s.getFn(ctx, id)
}

func (s *ledgerServiceStub) ListTransactions(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.Transaction, error) {
	return s.listFn(ctx, input)
}

type groupServiceStub struct {
	getFn     func(ctx context.Context, id string) (*usecase.GroupView, error)
	deleteFn  func(ctx context.Context, id string) (*usecase.GroupView, error)
	restoreFn func(ctx context.Context, id string) (*usecase.GroupView, error)
}

func (s *groupServiceStub) GetGroup(ctx context.Context, id string) (*usecase.GroupView, error) {
	return s.getFn(ctx, id)
}

func (s *groupServiceStub) DeleteGroup(ctx context.Context, id string) (*usecase.GroupView, error) {
	return s.deleteFn(ctx, id)
}

func (s *groupServiceStub) RestoreGroup(ctx context.Context, id string) (*usecase.GroupView, error) {
	return s.restoreFn(ctx, id)
}

// operationServiceStub records the last input it saw and answers with txs or err.
type operationServiceStub struct {
	last any
	txs  []*domain.Transaction
	err  error
}

func (s *operationServiceStub) answer(input any) ([]*domain.Transaction, error) {
	s.last = input
	return s.txs, s.err
}

func (s *operationServiceStub) BuyCurrency(_ context.Context, input usecase.TradeInput) ([]*domain.Transaction, error) {
	return s.answer(input)
}

func (s *operationServiceStub) SellCurrency(_ context.Context, input usecase.TradeInput) ([]*domain.Transaction, error) {
	return s.answer(input)
}

func (s *operationServiceStub) TransferFunds(_ context.Context, input usecase.TransferInput) ([]*domain.Transaction, error) {
	return s.answer(input)
}

func (s *operationServiceStub) RecordExpense(_ context.Context, input usecase.ExpenseInput) ([]*domain.Transaction, error) {
	return s.answer(input)
}

func (s *operationServiceStub) RecordExchangeFee(_ context.Context, input usecase.SingleAssetInput) ([]*domain.Transaction, error) {
	return s.answer(input)
}

func (s *operationServiceStub) RecordSale(_ context.Context, input usecase.SaleInput) ([]*domain.Transaction, error) {
	return s.answer(input)
}

func (s *operationServiceStub) RecordAdjustment(_ context.Context, input usecase.AdjustmentInput) ([]*domain.Transaction, error) {
	return s.answer(input)
}

func (s *operationServiceStub) Deposit(_ context.Context, input usecase.DepositInput) ([]*domain.Transaction, error) {
	return s.answer(input)
}

func (s *operationServiceStub) Withdraw(_ context.Context, input usecase.WithdrawInput) ([]*domain.Transaction, error) {
	return s.answer(input)
}

func (s *operationServiceStub) PayDebt(_ context.Context, input usecase.PayDebtInput) ([]*domain.Transaction, error) {
	return s.answer(input)
}

type capitalServiceStub struct {
	currentFn   func(ctx context.Context) (domain.CapitalTotals, error)
	closeFn     func(ctx context.Context, input usecase.CloseCapitalInput) (*domain.CapitalHistoryEntry, error)
	historyFn   func(ctx context.Context, window domain.DateRange) ([]*domain.CapitalHistoryEntry, error)
	evolutionFn func(ctx context.Context, window domain.DateRange) (domain.CapitalEvolution, error)
}

func (s *capitalServiceStub) Policy() domain.ClosingPolicy { return domain.DefaultClosingPolicy() }

func (s *capitalServiceStub) CurrentCapital(ctx context.Context) (domain.CapitalTotals, error) {
	return s.currentFn(ctx)
}

func (s *capitalServiceStub) CloseCapital(ctx context.Context, input usecase.CloseCapitalInput) (*domain.CapitalHistoryEntry, error) {
	return s.closeFn(ctx, input)
}

func (s *capitalServiceStub) History(ctx context.Context, window domain.DateRange) ([]*domain.CapitalHistoryEntry, error) {
	return s.historyFn(ctx, window)
}

func (s *capitalServiceStub) Evolution(ctx context.Context, window domain.DateRange) (domain.CapitalEvolution, error) {
	return s.evolutionFn(ctx, window)
}
