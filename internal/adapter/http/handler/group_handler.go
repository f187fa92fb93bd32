package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/fxledger/internal/adapter/http/dto"
	"github.com/iho/fxledger/internal/usecase"
)

// GroupService defines the group reversal operations needed by the handler.
type GroupService interface {
	GetGroup(ctx context.Context, id string) (*usecase.GroupView, error)
	DeleteGroup(ctx context.Context, id string) (*usecase.GroupView, error)
	RestoreGroup(ctx context.Context, id string) (*usecase.GroupView, error)
}

// GroupHandler handles transaction group requests.
type GroupHandler struct {
	groups GroupService
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(groups GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

// Get returns a group with its members.
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.groups.GetGroup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to get group", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.GroupFromView(view))
}

// Delete reverses every member of a group.
func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	view, err := h.groups.DeleteGroup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to delete group", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.GroupFromView(view))
}

// Restore re-applies every member of a deleted group.
func (h *GroupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	view, err := h.groups.RestoreGroup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to restore group", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.GroupFromView(view))
}
