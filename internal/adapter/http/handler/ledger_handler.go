package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/adapter/http/dto"
	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

// LedgerService defines the ledger read operations needed by the handler.
type LedgerService interface {
	GetBalances(ctx context.Context) ([]*domain.Asset, error)
	GetHistoricalBalance(ctx context.Context, assetID string, at time.Time) (decimal.Decimal, error)
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.Transaction, error)
}

// LedgerHandler handles balance and transaction log requests.
type LedgerHandler struct {
	ledger LedgerService
	now    func() time.Time
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledger LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, now: time.Now}
}

// Balances returns every asset with its current balance.
func (h *LedgerHandler) Balances(w http.ResponseWriter, r *http.Request) {
	assets, err := h.ledger.GetBalances(r.Context())
	if err != nil {
		writeDomainError(w, "failed to get balances", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AssetsFromDomain(assets))
}

// HistoricalBalance returns an asset balance as of the "at" query parameter.
func (h *LedgerHandler) HistoricalBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	at, err := parseTimeQuery(r, "at", true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid at parameter", err.Error())
		return
	}
	if at.IsZero() {
		at = h.now().UTC()
	}

	balance, err := h.ledger.GetHistoricalBalance(r.Context(), id, at)
	if err != nil {
		writeDomainError(w, "failed to get historical balance", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.HistoricalBalanceResponse{AssetID: id, At: at, Balance: balance})
}

// GetTransaction retrieves a transaction by ID.
func (h *LedgerHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.ledger.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to get transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, tx)
}

// ListTransactions pages through the transaction log, newest first unless
// order=asc is given.
func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTransactionFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid filter", err.Error())
		return
	}

	input := usecase.ListTransactionsInput{
		Filter: filter,
		Limit:  parseIntQuery(r, "limit", domain.DefaultPageSize),
		Offset: parseIntQuery(r, "offset", 0),
	}

	txs, err := h.ledger.ListTransactions(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to list transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionListResponse{
		Transactions: txs,
		Limit:        input.Limit,
		Offset:       input.Offset,
	})
}

func parseTransactionFilter(r *http.Request) (domain.TransactionFilter, error) {
	q := r.URL.Query()

	window, err := parseDateRange(r)
	if err != nil {
		return domain.TransactionFilter{}, err
	}

	filter := domain.TransactionFilter{
		Range:    window,
		Currency: strings.ToUpper(q.Get("currency")),
		GroupID:  q.Get("group_id"),
		AssetID:  q.Get("asset_id"),
		Order:    domain.OrderDescending,
	}

	if kind := q.Get("kind"); kind != "" {
		filter.Kind, err = domain.ParseOperationKind(kind)
		if err != nil {
			return domain.TransactionFilter{}, err
		}
	}

	switch q.Get("order") {
	case "", "desc":
	case "asc":
		filter.Order = domain.OrderAscending
	default:
		return domain.TransactionFilter{}, domain.NewValidationError("order", "expected asc or desc")
	}

	if deleted := q.Get("deleted"); deleted != "" && deleted != "all" {
		v, err := strconv.ParseBool(deleted)
		if err != nil {
			return domain.TransactionFilter{}, domain.NewValidationError("deleted", "expected true, false or all")
		}
		filter.Deleted = &v
	}

	return filter, nil
}
