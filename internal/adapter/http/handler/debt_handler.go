package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/adapter/http/dto"
	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

// DebtService defines the debt registry operations needed by the handler.
type DebtService interface {
	CreateDebt(ctx context.Context, input usecase.CreateDebtInput) (*domain.Debt, error)
	AddInstallment(ctx context.Context, debtID string, amount decimal.Decimal, note string) (*domain.Debt, error)
	ArchiveInstallment(ctx context.Context, debtID, installmentID string) (*domain.Debt, error)
	GetDebt(ctx context.Context, id string) (*domain.Debt, error)
	ListDebts(ctx context.Context, direction domain.DebtDirection) ([]*domain.Debt, error)
}

// DebtHandler handles debt and receivable requests.
type DebtHandler struct {
	debts DebtService
}

// NewDebtHandler creates a new DebtHandler.
func NewDebtHandler(debts DebtService) *DebtHandler {
	return &DebtHandler{debts: debts}
}

// Create opens a debt.
func (h *DebtHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateDebtRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	debt, err := h.debts.CreateDebt(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to create debt", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.DebtFromDomain(debt))
}

// Get retrieves a debt by ID.
func (h *DebtHandler) Get(w http.ResponseWriter, r *http.Request) {
	debt, err := h.debts.GetDebt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to get debt", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DebtFromDomain(debt))
}

// List lists debts, optionally filtered by the direction query parameter.
func (h *DebtHandler) List(w http.ResponseWriter, r *http.Request) {
	direction := domain.DebtDirection(r.URL.Query().Get("direction"))

	debts, err := h.debts.ListDebts(r.Context(), direction)
	if err != nil {
		writeDomainError(w, "failed to list debts", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DebtsFromDomain(debts))
}

// AddInstallment adds an installment to a debt.
func (h *DebtHandler) AddInstallment(w http.ResponseWriter, r *http.Request) {
	var req dto.AddInstallmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	debt, err := h.debts.AddInstallment(r.Context(), chi.URLParam(r, "id"), req.Amount, req.Note)
	if err != nil {
		writeDomainError(w, "failed to add installment", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.DebtFromDomain(debt))
}

// ArchiveInstallment archives an installment of a debt.
func (h *DebtHandler) ArchiveInstallment(w http.ResponseWriter, r *http.Request) {
	debt, err := h.debts.ArchiveInstallment(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "installmentID"))
	if err != nil {
		writeDomainError(w, "failed to archive installment", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DebtFromDomain(debt))
}
