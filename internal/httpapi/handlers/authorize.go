package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/timgst1/aegis/internal/audit"
	"github.com/timgst1/aegis/internal/authz"
	"github.com/timgst1/aegis/internal/gateway"
)

type AuthorizeHandler struct {
	Gateway *gateway.Gateway
	Audit   audit.Recorder
	Log     *slog.Logger
}

type authorizeRequest struct {
	// Token may be omitted when the request carries an
	// Authorization: Bearer header instead.
	Token  string       `json:"token,omitempty"`
	Action authz.Action `json:"action"`
}

type authorizeResponse struct {
	Status  gateway.Status `json:"status"`
	Subject string         `json:"subject,omitempty"`
	Reason  string         `json:"reason"`
}

func (h AuthorizeHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	var req authorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	token := req.Token
	if token == "" {
		token = bearerToken(r)
	}
	if token == "" {
		http.Error(w, "missing bearer token", http.StatusBadRequest)
		return
	}
	if req.Action.Verb == "" || req.Action.Resource == "" {
		http.Error(w, "action requires verb and resource", http.StatusBadRequest)
		return
	}

	res := h.Gateway.Decide(token, req.Action, time.Now())

	entry := audit.Entry{
		Status: string(res.Status),
		Action: req.Action,
		Reason: res.Reason,
	}
	if res.Status != gateway.StatusUnauthenticated {
		entry.Subject = res.Identity.String()
	}
	if err := h.Audit.Record(r.Context(), entry); err != nil {
		h.Log.Error("audit record failed", "err", err)
	}

	resp := authorizeResponse{Status: res.Status, Subject: entry.Subject, Reason: res.Reason}

	w.Header().Set("Content-Type", "application/json")
	switch res.Status {
	case gateway.StatusAllowed:
		w.WriteHeader(http.StatusOK)
	case gateway.StatusDenied:
		w.WriteHeader(http.StatusForbidden)
	default:
		w.Header().Set("WWW-Authenticate", "Bearer")
		w.WriteHeader(http.StatusUnauthorized)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, prefix))
}
