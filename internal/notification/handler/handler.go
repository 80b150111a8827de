// Package handler exposes the hospital notification inbox.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"organlink/internal/notification"
	"organlink/internal/transport/http/shared"
	dErrors "organlink/pkg/domain-errors"
	"organlink/pkg/requestcontext"
)

// Handler serves the acting hospital's inbox.
type Handler struct {
	inbox  notification.Store
	logger *slog.Logger
}

func New(inbox notification.Store, logger *slog.Logger) *Handler {
	return &Handler{inbox: inbox, logger: logger}
}

// Register mounts the inbox routes. Auth middleware is applied by the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/notifications", h.handleList)
}

type notificationItem struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	RelatedID string    `json:"related_id"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type listResponse struct {
	Notifications []notificationItem `json:"notifications"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hospital := requestcontext.HospitalID(ctx)

	notifications, err := h.inbox.ListByHospital(ctx, hospital)
	if err != nil {
		h.logger.ErrorContext(ctx, "list notifications failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeDownstream, "list notifications"))
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"
	items := make([]notificationItem, 0, len(notifications))
	for _, n := range notifications {
		if unreadOnly && n.Read {
			continue
		}
		items = append(items, notificationItem{
			ID:        n.ID.String(),
			Type:      string(n.Type),
			Title:     n.Title,
			Message:   n.Message,
			RelatedID: n.RelatedID.String(),
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}

	shared.WriteJSON(w, http.StatusOK, listResponse{Notifications: items})
}
