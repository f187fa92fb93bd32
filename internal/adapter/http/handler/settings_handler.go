package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const maxSettingSize = 1 << 20

// SettingsService defines the layout settings operations needed by the handler.
type SettingsService interface {
	GetSetting(ctx context.Context, key string) (json.RawMessage, error)
	PutSetting(ctx context.Context, key string, value json.RawMessage) error
}

// SettingsHandler handles dashboard and sidebar layout blobs.
type SettingsHandler struct {
	settings SettingsService
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(settings SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Get returns the stored blob verbatim.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	value, err := h.settings.GetSetting(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeDomainError(w, "failed to get setting", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(value)
}

// Put replaces the blob with the request body.
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	value, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSettingSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.settings.PutSetting(r.Context(), chi.URLParam(r, "key"), value); err != nil {
		writeDomainError(w, "failed to store setting", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
