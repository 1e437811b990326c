package handler

import (
	"net/http"

	"github.com/chathub/internal/middleware"
	"github.com/chathub/internal/push"
)

// PushHandler manages web push subscriptions for the session user.
type PushHandler struct {
	svc *push.Service
}

func NewPushHandler(svc *push.Service) *PushHandler {
	return &PushHandler{svc: svc}
}

type subscribeRequest struct {
	Subscription push.Subscription `json:"subscription"`
}

type okResponse struct {
	Success bool `json:"success"`
}

// Subscribe handles POST /api/push/subscribe.
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Subscription.Endpoint == "" {
		writeFailure(w, http.StatusBadRequest, "subscription endpoint is required")
		return
	}
	h.svc.Subscribe(middleware.GetUsername(r.Context()), req.Subscription)
	writeJSON(w, http.StatusOK, okResponse{Success: true})
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// Unsubscribe handles POST /api/push/unsubscribe.
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.svc.Unsubscribe(middleware.GetUsername(r.Context()), req.Endpoint)
	writeJSON(w, http.StatusOK, okResponse{Success: true})
}

// VAPIDPublicKey handles GET /api/push/vapid-public-key, for browser
// subscription bootstrap.
func (h *PushHandler) VAPIDPublicKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": h.svc.PublicKey()})
}
