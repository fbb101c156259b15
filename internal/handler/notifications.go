package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/saji-pos/api/internal/middleware"
	"github.com/saji-pos/api/internal/service"
)

// NotifierServicer defines the service methods needed by the
// notification handler. Satisfied by *service.Notifier.
type NotifierServicer interface {
	Poll(ctx context.Context, tenantID, viewerID uuid.UUID, role string) (*service.PollResult, error)
}

// NotificationHandler serves the new-order notification poll.
type NotificationHandler struct {
	svc NotifierServicer
}

func NewNotificationHandler(svc NotifierServicer) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// RegisterRoutes registers notification endpoints on the given Chi router.
// Expected to be mounted inside a tenant-scoped subrouter: /tenants/{tid}/notifications
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/poll", h.Poll)
}

// --- Response types ---

type notificationResponse struct {
	Channel string        `json:"channel"`
	Order   orderResponse `json:"order"`
}

type pollResponse struct {
	Notifications []notificationResponse `json:"notifications"`
	PendingCount  int64                  `json:"pending_count"`
	ActiveCount   int64                  `json:"active_count"`
}

// Poll handles GET /tenants/{tid}/notifications/poll.
// Each caller carries their own per-channel watermark, so polling from
// one device never clears alerts on another.
func (h *NotificationHandler) Poll(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tenant ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	result, err := h.svc.Poll(r.Context(), tenantID, claims.UserID, claims.Role)
	if err != nil {
		log.Printf("ERROR: notification poll: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := pollResponse{
		Notifications: make([]notificationResponse, len(result.Notifications)),
		PendingCount:  result.PendingCount,
		ActiveCount:   result.ActiveCount,
	}
	for i, n := range result.Notifications {
		resp.Notifications[i] = notificationResponse{
			Channel: n.Channel,
			Order:   dbOrderToResponse(n.Order),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
