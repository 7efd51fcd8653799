package setuphttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/taxdesk/taxdesk/internal/obligations"
	"github.com/taxdesk/taxdesk/internal/platform/httpx"
	"github.com/taxdesk/taxdesk/internal/setup"
)

type setupService interface {
	GetSetupState(ctx context.Context, businessID uuid.UUID, opts setup.Options) (setup.State, error)
	GetObligationsTimeline(ctx context.Context, businessID uuid.UUID, at time.Time) ([]obligations.Obligation, error)
}

// Handler exposes setup-state and obligation endpoints.
type Handler struct {
	logger  *slog.Logger
	service setupService
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service setupService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers routes under /businesses/{businessID}.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/businesses/{businessID}/setup-state", h.getSetupState)
	r.Get("/businesses/{businessID}/obligations", h.getObligations)
}

func (h *Handler) getSetupState(w http.ResponseWriter, r *http.Request) {
	businessID, err := parseID(chi.URLParam(r, "businessID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	refresh := r.URL.Query().Get("refresh") == "1"
	state, err := h.service.GetSetupState(r.Context(), businessID, setup.Options{Refresh: refresh})
	if err != nil {
		h.logger.Error("get setup state", slog.String("business_id", businessID.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, state)
}

func (h *Handler) getObligations(w http.ResponseWriter, r *http.Request) {
	businessID, err := parseID(chi.URLParam(r, "businessID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var at time.Time
	if raw := r.URL.Query().Get("at"); raw != "" {
		at, err = time.ParseInLocation(time.DateOnly, raw, time.Local)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: at must be YYYY-MM-DD", httpx.ErrValidation))
			return
		}
	}
	list, err := h.service.GetObligationsTimeline(r.Context(), businessID, at)
	if err != nil {
		h.logger.Error("get obligations", slog.String("business_id", businessID.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"obligations": list})
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid id %q", httpx.ErrValidation, raw)
	}
	return id, nil
}
