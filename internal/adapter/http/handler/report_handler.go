package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/fxledger/internal/adapter/http/dto"
	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

// ProfitService analyzes profit and costs.
type ProfitService interface {
	Analyze(ctx context.Context, window domain.DateRange) (domain.ProfitReport, error)
}

// ReconciliationService checks stored balances against the transaction log.
type ReconciliationService interface {
	ReconcileAsset(ctx context.Context, assetID string) (*usecase.ReconciliationResult, error)
	GenerateReconciliationReport(ctx context.Context) (*usecase.ReconciliationReport, error)
}

// ReportHandler handles profit and reconciliation reports.
type ReportHandler struct {
	profit ProfitService
	recon  ReconciliationService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(profit ProfitService, recon ReconciliationService) *ReportHandler {
	return &ReportHandler{profit: profit, recon: recon}
}

// Profit returns the profit and cost analysis of the from/to window.
func (h *ReportHandler) Profit(w http.ResponseWriter, r *http.Request) {
	window, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date range", err.Error())
		return
	}

	report, err := h.profit.Analyze(r.Context(), window)
	if err != nil {
		writeDomainError(w, "failed to analyze profit", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ProfitFromDomain(report))
}

// Reconciliation returns the reconciliation report of every asset.
func (h *ReportHandler) Reconciliation(w http.ResponseWriter, r *http.Request) {
	report, err := h.recon.GenerateReconciliationReport(r.Context())
	if err != nil {
		writeDomainError(w, "failed to reconcile", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationReportFromDomain(report))
}

// ReconcileAsset reconciles a single asset.
func (h *ReportHandler) ReconcileAsset(w http.ResponseWriter, r *http.Request) {
	result, err := h.recon.ReconcileAsset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to reconcile asset", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromResult(result))
}
