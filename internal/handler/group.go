package handler

import (
	"errors"
	"net/http"

	"github.com/chathub/internal/logger"
	"github.com/chathub/internal/middleware"
	"github.com/chathub/internal/model"
	"github.com/chathub/internal/store"
	"github.com/chathub/internal/ws"
)

// GroupHandler serves out-of-band group creation. The side effect of a
// successful create belongs to the hub: every online member receives a
// group:created push.
type GroupHandler struct {
	store *store.Store
	hub   *ws.Hub
}

func NewGroupHandler(st *store.Store, hub *ws.Hub) *GroupHandler {
	return &GroupHandler{store: st, hub: hub}
}

type createGroupRequest struct {
	Name      string   `json:"name"`
	Members   []string `json:"members"`
	CreatedBy string   `json:"createdBy"`
}

type createGroupResponse struct {
	Success bool         `json:"success"`
	Group   *model.Group `json:"group"`
}

// Create handles POST /api/groups/create.
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" || req.CreatedBy == "" {
		writeFailure(w, http.StatusBadRequest, "group name and creator are required")
		return
	}
	if actor := middleware.GetUsername(r.Context()); actor != req.CreatedBy {
		writeFailure(w, http.StatusForbidden, "cannot create a group as another user")
		return
	}

	group, err := h.store.CreateGroup(r.Context(), req.Name, req.CreatedBy, req.Members)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeFailure(w, http.StatusBadRequest, "creator not found")
		return
	case err != nil:
		logger.Errorf("create group name=%s by=%s: %v", req.Name, req.CreatedBy, err)
		writeFailure(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.hub.NotifyGroupCreated(group)
	writeJSON(w, http.StatusOK, createGroupResponse{Success: true, Group: group})
}
