package handler

import (
	"context"
	"net/http"

	"github.com/iho/fxledger/internal/adapter/http/dto"
	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

// CapitalService defines the capital operations needed by the handler.
type CapitalService interface {
	Policy() domain.ClosingPolicy
	CurrentCapital(ctx context.Context) (domain.CapitalTotals, error)
	CloseCapital(ctx context.Context, input usecase.CloseCapitalInput) (*domain.CapitalHistoryEntry, error)
	History(ctx context.Context, window domain.DateRange) ([]*domain.CapitalHistoryEntry, error)
	Evolution(ctx context.Context, window domain.DateRange) (domain.CapitalEvolution, error)
}

// CapitalHandler handles capital calculation and closing requests.
type CapitalHandler struct {
	capital CapitalService
}

// NewCapitalHandler creates a new CapitalHandler.
func NewCapitalHandler(capital CapitalService) *CapitalHandler {
	return &CapitalHandler{capital: capital}
}

// Policy returns the reference currency and allocation tolerance.
func (h *CapitalHandler) Policy(w http.ResponseWriter, r *http.Request) {
	p := h.capital.Policy()
	writeJSON(w, http.StatusOK, dto.PolicyResponse{ReferenceCurrency: p.ReferenceCurrency, Tolerance: p.Tolerance})
}

// Current returns the capital per currency without storing anything.
func (h *CapitalHandler) Current(w http.ResponseWriter, r *http.Request) {
	totals, err := h.capital.CurrentCapital(r.Context())
	if err != nil {
		writeDomainError(w, "failed to calculate capital", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CapitalFromDomain(totals))
}

// Close converts capital to the reference currency and stores a closing.
func (h *CapitalHandler) Close(w http.ResponseWriter, r *http.Request) {
	var req dto.CloseCapitalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.capital.CloseCapital(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to close capital", err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// History lists closings inside the from/to window, oldest first.
func (h *CapitalHandler) History(w http.ResponseWriter, r *http.Request) {
	window, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date range", err.Error())
		return
	}

	entries, err := h.capital.History(r.Context(), window)
	if err != nil {
		writeDomainError(w, "failed to list capital history", err)
		return
	}

	if entries == nil {
		entries = []*domain.CapitalHistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// Evolution compares the closing at the end of the window with the one
// before its start.
func (h *CapitalHandler) Evolution(w http.ResponseWriter, r *http.Request) {
	window, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date range", err.Error())
		return
	}

	ev, err := h.capital.Evolution(r.Context(), window)
	if err != nil {
		writeDomainError(w, "failed to compute capital evolution", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EvolutionFromDomain(ev))
}
