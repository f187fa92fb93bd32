package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/fxledger/internal/adapter/http/dto"
	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

// AssetService defines the asset operations needed by the handler.
type AssetService interface {
	CreateBank(ctx context.Context, name string) (*domain.Bank, error)
	ListBanks(ctx context.Context) ([]*domain.Bank, error)
	CreateAsset(ctx context.Context, input usecase.CreateAssetInput) (*domain.Asset, error)
	GetAsset(ctx context.Context, id string) (*domain.Asset, error)
	ListAssets(ctx context.Context) ([]*domain.Asset, error)
	RemoveAsset(ctx context.Context, id string) error
}

// AssetHandler handles asset and bank HTTP requests.
type AssetHandler struct {
	assets AssetService
}

// NewAssetHandler creates a new AssetHandler.
func NewAssetHandler(assets AssetService) *AssetHandler {
	return &AssetHandler{assets: assets}
}

// CreateBank registers a bank.
func (h *AssetHandler) CreateBank(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBankRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	bank, err := h.assets.CreateBank(r.Context(), req.Name)
	if err != nil {
		writeDomainError(w, "failed to create bank", err)
		return
	}

	writeJSON(w, http.StatusCreated, bank)
}

// ListBanks lists banks.
func (h *AssetHandler) ListBanks(w http.ResponseWriter, r *http.Request) {
	banks, err := h.assets.ListBanks(r.Context())
	if err != nil {
		writeDomainError(w, "failed to list banks", err)
		return
	}

	if banks == nil {
		banks = []*domain.Bank{}
	}
	writeJSON(w, http.StatusOK, banks)
}

// Create creates a new asset.
func (h *AssetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAssetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	asset, err := h.assets.CreateAsset(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to create asset", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AssetFromDomain(asset))
}

// Get retrieves an asset by ID.
func (h *AssetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing asset ID", "")
		return
	}

	asset, err := h.assets.GetAsset(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get asset", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AssetFromDomain(asset))
}

// List lists assets.
func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	assets, err := h.assets.ListAssets(r.Context())
	if err != nil {
		writeDomainError(w, "failed to list assets", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AssetsFromDomain(assets))
}

// Remove deletes an asset. Its transactions stay in the log.
func (h *AssetHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.assets.RemoveAsset(r.Context(), id); err != nil {
		writeDomainError(w, "failed to remove asset", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
