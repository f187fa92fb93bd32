package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/iho/fxledger/internal/adapter/http/dto"
	"github.com/iho/fxledger/internal/usecase"
)

// maxBundleSize caps an imported state bundle.
const maxBundleSize = 64 << 20

// BackupService defines the export, import and backup operations needed by the handler.
type BackupService interface {
	ExportJSON(ctx context.Context) ([]byte, error)
	ImportJSON(ctx context.Context, data []byte) error
	Backup(ctx context.Context) (string, error)
	RestoreLatest(ctx context.Context) error
}

// BackupHandler handles state export, import and stored backups.
type BackupHandler struct {
	backup BackupService
}

// NewBackupHandler creates a new BackupHandler.
func NewBackupHandler(backup BackupService) *BackupHandler {
	return &BackupHandler{backup: backup}
}

// Export streams the full state bundle.
func (h *BackupHandler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.backup.ExportJSON(r.Context())
	if err != nil {
		writeDomainError(w, "failed to export state", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="fxledger-export.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Import replaces the state with the bundle in the request body.
func (h *BackupHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBundleSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.backup.ImportJSON(r.Context(), data); err != nil {
		writeDomainError(w, "failed to import state", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Create writes a backup to the configured store.
func (h *BackupHandler) Create(w http.ResponseWriter, r *http.Request) {
	name, err := h.backup.Backup(r.Context())
	if err != nil {
		writeBackupError(w, "failed to write backup", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.BackupResponse{Name: name})
}

// RestoreLatest restores the newest stored backup.
func (h *BackupHandler) RestoreLatest(w http.ResponseWriter, r *http.Request) {
	if err := h.backup.RestoreLatest(r.Context()); err != nil {
		writeBackupError(w, "failed to restore backup", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeBackupError(w http.ResponseWriter, message string, err error) {
	if errors.Is(err, usecase.ErrBackupDisabled) {
		writeError(w, http.StatusNotImplemented, message, err.Error())
		return
	}
	writeDomainError(w, message, err)
}
