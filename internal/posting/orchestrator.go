package posting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/taxdesk/taxdesk/internal/calendar"
)

// Store is the persistence boundary of the posting engine.
type Store interface {
	FetchUnposted(ctx context.Context, businessID uuid.UUID, r calendar.Range) ([]Document, error)
	PostSingle(ctx context.Context, documentID uuid.UUID) (SinglePostResult, error)
	PostBatch(ctx context.Context, businessID uuid.UUID, r calendar.Range, limit int) (BatchResult, error)
	AssignLedgerAccount(ctx context.Context, documentID, accountID uuid.UUID) error
	ListAccounts(ctx context.Context, businessID uuid.UUID) ([]Account, error)
}

// Invalidator drops cached views derived from a business's documents.
type Invalidator interface {
	Invalidate(ctx context.Context, businessID uuid.UUID) error
}

// Recorder observes posting outcomes.
type Recorder interface {
	ObserveSingle(status SingleStatus)
	ObserveBatch(result BatchResult, recovery bool)
	ObserveAssignments(written, failed int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveSingle(SingleStatus)     {}
func (nopRecorder) ObserveBatch(BatchResult, bool) {}
func (nopRecorder) ObserveAssignments(int, int)    {}

// Config tunes the orchestrator.
type Config struct {
	DefaultCap        int
	AssignConcurrency int
	Location          *time.Location
}

// Orchestrator runs single and batch posting and the account-assignment
// recovery loop.
type Orchestrator struct {
	store       Store
	sessions    SessionStore
	invalidator Invalidator
	metrics     Recorder
	logger      *slog.Logger
	cfg         Config
	now         func() time.Time
	newID       func() uuid.UUID
}

// NewOrchestrator wires the orchestrator; invalidator and metrics may be nil.
func NewOrchestrator(store Store, sessions SessionStore, invalidator Invalidator, metrics Recorder, logger *slog.Logger, cfg Config) *Orchestrator {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AssignConcurrency <= 0 {
		cfg.AssignConcurrency = 1
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Orchestrator{
		store:       store,
		sessions:    sessions,
		invalidator: invalidator,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
		newID:       uuid.New,
	}
}

// WithNow overrides the clock used for session timestamps.
func (o *Orchestrator) WithNow(now func() time.Time) {
	if now != nil {
		o.now = now
	}
}

// RunSingle posts one document and maps the store response onto a typed
// outcome. Store transport failures are returned as errors.
func (o *Orchestrator) RunSingle(ctx context.Context, documentID uuid.UUID) (SingleOutcome, error) {
	if documentID == uuid.Nil {
		return SingleOutcome{}, ErrDocumentNotFound
	}
	res, err := o.store.PostSingle(ctx, documentID)
	if err != nil {
		return SingleOutcome{}, fmt.Errorf("post document: %w", err)
	}

	outcome := SingleOutcome{DocumentID: documentID, RuleCode: res.RuleCode}
	switch {
	case res.Success:
		outcome.Status = SinglePosted
		o.invalidate(ctx, res.BusinessID)
	case res.Status == string(SingleNeedsReview):
		outcome.Status = SingleNeedsReview
		outcome.Message = res.Error
	default:
		outcome.Status = SingleError
		outcome.Message = res.Error
		if outcome.Message == "" {
			outcome.Message = "posting failed"
		}
	}
	o.metrics.ObserveSingle(outcome.Status)
	o.logger.InfoContext(ctx, "document posted",
		slog.String("document_id", documentID.String()),
		slog.String("status", string(outcome.Status)),
		slog.String("rule_code", outcome.RuleCode))
	return outcome, nil
}

// RunBatch opens a session for one business and month and posts up to limit
// ready documents. limit <= 0 falls back to the configured cap. The returned
// session carries the batch result even when the error is ErrSessionNotSaved.
func (o *Orchestrator) RunBatch(ctx context.Context, businessID uuid.UUID, period calendar.Key, limit int) (Session, error) {
	if limit <= 0 {
		limit = o.cfg.DefaultCap
	}
	if limit <= 0 {
		return Session{}, ErrInvalidCap
	}
	if !period.Valid() {
		return Session{}, calendar.ErrInvalidKey
	}
	now := o.now()
	session := Session{
		ID:         o.newID(),
		BusinessID: businessID,
		Period:     period,
		Cap:        limit,
		State:      StateInit,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := o.execute(ctx, &session, false); err != nil {
		return session, err
	}
	return session, nil
}

// Session returns the stored session.
func (o *Orchestrator) Session(ctx context.Context, id uuid.UUID) (Session, error) {
	return o.sessions.Get(ctx, id)
}

// CompleteAssignment writes one ledger account per affected document and,
// once every write has settled, re-runs the batch a single time. Partial
// assignment is rejected without touching the store. When a write fails the
// session stays awaiting assignment for the failed documents only.
func (o *Orchestrator) CompleteAssignment(ctx context.Context, id uuid.UUID, assignments []Assignment) (Session, error) {
	session, err := o.sessions.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if session.State != StateAwaitingAccountAssignment {
		return session, ErrSessionClosed
	}
	if err := session.checkAssignments(assignments); err != nil {
		return session, err
	}

	failures := o.writeAssignments(ctx, assignments)
	o.metrics.ObserveAssignments(len(assignments)-len(failures), len(failures))
	session.AssignmentFailures = failures
	if len(failures) > 0 {
		session.AffectedDocumentIDs = session.AffectedDocumentIDs[:0]
		for _, f := range failures {
			session.AffectedDocumentIDs = append(session.AffectedDocumentIDs, f.DocumentID)
		}
		session.UpdatedAt = o.now()
		if err := o.sessions.Save(ctx, session); err != nil {
			return session, fmt.Errorf("save session: %w", err)
		}
		return session, nil
	}

	if err := o.execute(ctx, &session, true); err != nil {
		return session, err
	}
	return session, nil
}

// Cancel abandons a session awaiting assignment. Posted documents stay
// posted and no further store calls are made.
func (o *Orchestrator) Cancel(ctx context.Context, id uuid.UUID) (Session, error) {
	session, err := o.sessions.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if session.State != StateAwaitingAccountAssignment {
		return session, ErrSessionClosed
	}
	session.State = StateCancelled
	session.UpdatedAt = o.now()
	if err := o.sessions.Save(ctx, session); err != nil {
		return session, err
	}
	o.logger.InfoContext(ctx, "posting session cancelled",
		slog.String("session_id", session.ID.String()),
		slog.Int("pending", len(session.AffectedDocumentIDs)))
	return session, nil
}

// writeAssignments runs the account writes with bounded concurrency and
// waits for all of them, successful or not.
func (o *Orchestrator) writeAssignments(ctx context.Context, assignments []Assignment) []Failure {
	errs := make([]error, len(assignments))
	g := new(errgroup.Group)
	g.SetLimit(o.cfg.AssignConcurrency)
	for i, a := range assignments {
		g.Go(func() error {
			errs[i] = o.store.AssignLedgerAccount(ctx, a.DocumentID, a.AccountID)
			return nil
		})
	}
	_ = g.Wait()

	var failures []Failure
	for i, err := range errs {
		if err == nil {
			continue
		}
		o.logger.WarnContext(ctx, "ledger account assignment failed",
			slog.String("document_id", assignments[i].DocumentID.String()),
			slog.Any("error", err))
		failures = append(failures, Failure{
			DocumentID: assignments[i].DocumentID,
			Code:       ErrorOther,
			Message:    err.Error(),
		})
	}
	return failures
}

// execute performs one batch call for the session and persists the result.
// On a store error the session keeps its previous state; on a save error it
// keeps the settled result.
func (o *Orchestrator) execute(ctx context.Context, session *Session, recovery bool) error {
	previous := session.State
	session.State = StateBatchPosting
	session.Attempts++

	window := calendar.PeriodRange(session.Period, o.cfg.Location)
	result, err := o.store.PostBatch(ctx, session.BusinessID, window, session.Cap)
	if err != nil {
		session.State = previous
		session.Attempts--
		return fmt.Errorf("post batch: %w", err)
	}

	session.settle(result, o.now())
	o.metrics.ObserveBatch(result, recovery)
	if result.Posted > 0 {
		o.invalidate(ctx, session.BusinessID)
	}
	o.logger.InfoContext(ctx, "batch posting finished",
		slog.String("session_id", session.ID.String()),
		slog.String("business_id", session.BusinessID.String()),
		slog.String("period", session.Period.String()),
		slog.Int("posted", result.Posted),
		slog.Int("failed", result.Failed),
		slog.String("state", string(session.State)),
		slog.Bool("recovery", recovery))

	if err := o.sessions.Save(ctx, *session); err != nil {
		o.logger.ErrorContext(ctx, "posting session not saved",
			slog.String("session_id", session.ID.String()),
			slog.Int("posted", session.TotalPosted),
			slog.Any("error", err))
		return fmt.Errorf("%w: %w", ErrSessionNotSaved, err)
	}
	return nil
}

func (o *Orchestrator) invalidate(ctx context.Context, businessID uuid.UUID) {
	if o.invalidator == nil || businessID == uuid.Nil {
		return
	}
	if err := o.invalidator.Invalidate(ctx, businessID); err != nil {
		o.logger.WarnContext(ctx, "cache invalidation failed",
			slog.String("business_id", businessID.String()),
			slog.Any("error", err))
	}
}
