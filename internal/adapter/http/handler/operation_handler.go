package handler

import (
	"context"
	"net/http"

	"github.com/iho/fxledger/internal/adapter/http/dto"
	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

// OperationService defines the business operations needed by the handler.
type OperationService interface {
	BuyCurrency(ctx context.Context, input usecase.TradeInput) ([]*domain.Transaction, error)
	SellCurrency(ctx context.Context, input usecase.TradeInput) ([]*domain.Transaction, error)
	TransferFunds(ctx context.Context, input usecase.TransferInput) ([]*domain.Transaction, error)
	RecordExpense(ctx context.Context, input usecase.ExpenseInput) ([]*domain.Transaction, error)
	RecordExchangeFee(ctx context.Context, input usecase.SingleAssetInput) ([]*domain.Transaction, error)
	RecordSale(ctx context.Context, input usecase.SaleInput) ([]*domain.Transaction, error)
	RecordAdjustment(ctx context.Context, input usecase.AdjustmentInput) ([]*domain.Transaction, error)
	Deposit(ctx context.Context, input usecase.DepositInput) ([]*domain.Transaction, error)
	Withdraw(ctx context.Context, input usecase.WithdrawInput) ([]*domain.Transaction, error)
	PayDebt(ctx context.Context, input usecase.PayDebtInput) ([]*domain.Transaction, error)
}

// OperationHandler posts business operations to the ledger. Each operation
// answers with the group it created.
type OperationHandler struct {
	ops OperationService
}

// NewOperationHandler creates a new OperationHandler.
func NewOperationHandler(ops OperationService) *OperationHandler {
	return &OperationHandler{ops: ops}
}

func writePosted(w http.ResponseWriter, message string, txs []*domain.Transaction, err error) {
	if err != nil {
		writeDomainError(w, message, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.OperationFromDomain(txs))
}

// Buy records a purchase of foreign currency.
func (h *OperationHandler) Buy(w http.ResponseWriter, r *http.Request) {
	var req dto.TradeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	txs, err := h.ops.BuyCurrency(r.Context(), req.ToUseCaseInput())
	writePosted(w, "failed to record buy", txs, err)
}

// Sell records a sale of foreign currency.
func (h *OperationHandler) Sell(w http.ResponseWriter, r *http.Request) {
	var req dto.TradeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	txs, err := h.ops.SellCurrency(r.Context(), req.ToUseCaseInput())
	writePosted(w, "failed to record sell", txs, err)
}

// Transfer moves funds between two assets of the same currency.
func (h *OperationHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req dto.TransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	txs, err := h.ops.TransferFunds(r.Context(), req.ToUseCaseInput())
	writePosted(w, "failed to record transfer", txs, err)
}

// Expense records an expense.
func (h *OperationHandler) Expense(w http.ResponseWriter, r *http.Request) {
	var req dto.ExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	txs, err := h.ops.RecordExpense(r.Context(), req.ToUseCaseInput())
	writePosted(w, "failed to record expense", txs, err)
}

// ExchangeFee records an exchange fee earned.
func (h *OperationHandler) ExchangeFee(w http.ResponseWriter, r *http.Request) {
	var req dto.SingleAssetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	txs, err := h.ops.RecordExchangeFee(r.Context(), req.ToUseCaseInput())
	writePosted(w, "failed to record exchange fee", txs, err)
}

// Sale records a sale with its cost.
func (h *OperationHandler) Sale(w http.ResponseWriter, r *http.Request) {
	var req dto.SaleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	txs, err := h.ops.RecordSale(r.Context(), req.ToUseCaseInput())
	writePosted(w, "failed to record sale", txs, err)
}

// Adjustment records a manual gain or loss.
func (h *OperationHandler) Adjustment(w http.ResponseWriter, r *http.Request) {
	var req dto.AdjustmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	txs, err := h.ops.RecordAdjustment(r.Context(), req.ToUseCaseInput())
	writePosted(w, "failed to record adjustment", txs, err)
}

// Deposit records owner funds paid in.
func (h *OperationHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	txs, err := h.ops.Deposit(r.Context(), req.ToUseCaseInput())
	writePosted(w, "failed to record deposit", txs, err)
}

// Withdraw records funds taken out.
func (h *OperationHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req dto.WithdrawRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	txs, err := h.ops.Withdraw(r.Context(), req.ToUseCaseInput())
	writePosted(w, "failed to record withdrawal", txs, err)
}

// PayDebt records a debt payment.
func (h *OperationHandler) PayDebt(w http.ResponseWriter, r *http.Request) {
	var req dto.PayDebtRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	txs, err := h.ops.PayDebt(r.Context(), req.ToUseCaseInput())
	writePosted(w, "failed to record debt payment", txs, err)
}
