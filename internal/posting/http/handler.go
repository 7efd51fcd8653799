package postinghttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/taxdesk/taxdesk/internal/calendar"
	"github.com/taxdesk/taxdesk/internal/platform/httpx"
	"github.com/taxdesk/taxdesk/internal/posting"
)

type queueService interface {
	Unposted(ctx context.Context, businessID uuid.UUID, period calendar.Key) (posting.Queue, error)
	Accounts(ctx context.Context, businessID uuid.UUID) ([]posting.Account, error)
}

type orchestrator interface {
	RunSingle(ctx context.Context, documentID uuid.UUID) (posting.SingleOutcome, error)
	RunBatch(ctx context.Context, businessID uuid.UUID, period calendar.Key, limit int) (posting.Session, error)
	Session(ctx context.Context, id uuid.UUID) (posting.Session, error)
	CompleteAssignment(ctx context.Context, id uuid.UUID, assignments []posting.Assignment) (posting.Session, error)
	Cancel(ctx context.Context, id uuid.UUID) (posting.Session, error)
}

type startSessionRequest struct {
	Period string `json:"period" validate:"required,len=7"`
	Cap    int    `json:"cap" validate:"gte=0"`
}

type assignmentRequest struct {
	Assignments []posting.Assignment `json:"assignments" validate:"required,min=1,dive"`
}

// Handler exposes the unposted queue and the posting workflow.
type Handler struct {
	logger    *slog.Logger
	queue     queueService
	orch      orchestrator
	validator *validator.Validate
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, queue queueService, orch orchestrator) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, queue: queue, orch: orch, validator: validator.New()}
}

// MountRoutes registers posting routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/businesses/{businessID}/unposted", h.getUnposted)
	r.Get("/businesses/{businessID}/ledger-accounts", h.getAccounts)
	r.Post("/businesses/{businessID}/posting-sessions", h.startSession)
	r.Post("/documents/{documentID}/post", h.postDocument)
	r.Route("/posting-sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.getSession)
		r.Post("/assignments", h.completeAssignment)
		r.Post("/cancel", h.cancelSession)
	})
}

func (h *Handler) getUnposted(w http.ResponseWriter, r *http.Request) {
	businessID, err := parseID(chi.URLParam(r, "businessID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	period, err := parsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	queue, err := h.queue.Unposted(r.Context(), businessID, period)
	if err != nil {
		h.fail(w, "list unposted", err)
		return
	}
	httpx.JSON(w, http.StatusOK, queue)
}

func (h *Handler) getAccounts(w http.ResponseWriter, r *http.Request) {
	businessID, err := parseID(chi.URLParam(r, "businessID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	accounts, err := h.queue.Accounts(r.Context(), businessID)
	if err != nil {
		h.fail(w, "list ledger accounts", err)
		return
	}
	if accounts == nil {
		accounts = []posting.Account{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (h *Handler) postDocument(w http.ResponseWriter, r *http.Request) {
	documentID, err := parseID(chi.URLParam(r, "documentID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	outcome, err := h.orch.RunSingle(r.Context(), documentID)
	if err != nil {
		h.fail(w, "post document", err)
		return
	}
	httpx.JSON(w, http.StatusOK, outcome)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	businessID, err := parseID(chi.URLParam(r, "businessID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req startSessionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	period, err := parsePeriod(req.Period)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	session, err := h.orch.RunBatch(r.Context(), businessID, period, req.Cap)
	if err != nil {
		h.failSession(w, "run batch", session, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, session)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "sessionID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	session, err := h.orch.Session(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, session)
}

func (h *Handler) completeAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "sessionID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req assignmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	session, err := h.orch.CompleteAssignment(r.Context(), id, req.Assignments)
	if err != nil {
		h.failSession(w, "complete assignment", session, err)
		return
	}
	httpx.JSON(w, http.StatusOK, session)
}

func (h *Handler) cancelSession(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "sessionID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	session, err := h.orch.Cancel(r.Context(), id)
	if err != nil {
		h.fail(w, "cancel session", err)
		return
	}
	httpx.JSON(w, http.StatusOK, session)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

// unsavedSession is a problem response that still carries the batch outcome.
type unsavedSession struct {
	httpx.ProblemDetail
	Session posting.Session `json:"session"`
}

// failSession reports a session that posted documents but could not be
// stored together with its counts; other errors map as usual.
func (h *Handler) failSession(w http.ResponseWriter, op string, session posting.Session, err error) {
	if !errors.Is(err, posting.ErrSessionNotSaved) {
		h.fail(w, op, err)
		return
	}
	h.logger.Error(op, slog.Any("error", err),
		slog.String("session_id", session.ID.String()),
		slog.Int("posted", session.TotalPosted))
	httpx.JSON(w, http.StatusInternalServerError, unsavedSession{
		ProblemDetail: httpx.ProblemDetail{
			Title:  http.StatusText(http.StatusInternalServerError),
			Status: http.StatusInternalServerError,
			Detail: "posting session not saved",
		},
		Session: session,
	})
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid id %q", httpx.ErrValidation, raw)
	}
	return id, nil
}

func parsePeriod(raw string) (calendar.Key, error) {
	key, err := calendar.Parse(raw)
	if err != nil {
		return calendar.Key{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return key, nil
}
