package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/taxdesk/taxdesk/internal/calendar"
	jobmetrics "github.com/taxdesk/taxdesk/internal/jobs"
	"github.com/taxdesk/taxdesk/internal/posting"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// BatchRunner opens batch posting sessions.
type BatchRunner interface {
	RunBatch(ctx context.Context, businessID uuid.UUID, period calendar.Key, limit int) (posting.Session, error)
}

// ReadyLister finds businesses with documents ready to post.
type ReadyLister interface {
	BusinessesWithReady(ctx context.Context, window calendar.Range) ([]uuid.UUID, error)
}

// Enqueuer submits tasks; *asynq.Client satisfies it.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AutoPostJob handles the batch and sweep auto-posting tasks.
type AutoPostJob struct {
	Runner   BatchRunner
	Lister   ReadyLister
	Enqueuer Enqueuer
	Location *time.Location
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewAutoPostJob wires dependencies for the auto-posting handlers.
func NewAutoPostJob(runner BatchRunner, lister ReadyLister, enqueuer Enqueuer, logger *slog.Logger, metrics *jobmetrics.Metrics) *AutoPostJob {
	return &AutoPostJob{
		Runner:   runner,
		Lister:   lister,
		Enqueuer: enqueuer,
		Location: time.Local,
		Logger:   logger,
		Metrics:  metrics,
		clock:    time.Now,
	}
}

// HandleBatch runs one batch posting session. Sessions that end awaiting
// account assignment are left for an operator.
func (j *AutoPostJob) HandleBatch(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Runner == nil {
		return errors.New("autopost batch: runner not configured")
	}
	var payload AutoPostBatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	businessID, err := uuid.Parse(payload.BusinessID)
	if err != nil {
		return asynq.SkipRetry
	}
	period, err := ResolvePeriod(payload.Period, j.now())
	if err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskAutoPostBatch)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.log(TaskAutoPostBatch).With(
		slog.String("business_id", businessID.String()),
		slog.String("period", period.String()))

	session, err := j.Runner.RunBatch(ctx, businessID, period, payload.Cap)
	if err != nil {
		resultErr = err
		logger.Error("run batch", slog.Any("error", err),
			slog.Int("posted", session.TotalPosted))
		return resultErr
	}
	if session.State == posting.StateAwaitingAccountAssignment {
		logger.Warn("documents need a ledger account",
			slog.String("session_id", session.ID.String()),
			slog.Int("pending", len(session.AffectedDocumentIDs)))
	}
	logger.Info("auto-posting finished",
		slog.String("state", string(session.State)),
		slog.Int("posted", session.TotalPosted))
	return resultErr
}

// HandleSweep enqueues a batch task for every business with ready documents
// in the target month.
func (j *AutoPostJob) HandleSweep(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Lister == nil || j.Enqueuer == nil {
		return errors.New("autopost sweep: dependencies not configured")
	}
	var payload AutoPostSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	period, err := ResolvePeriod(payload.Period, j.now())
	if err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskAutoPostSweep)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.log(TaskAutoPostSweep).With(slog.String("period", period.String()))
	window := calendar.PeriodRange(period, j.location())
	businesses, err := j.Lister.BusinessesWithReady(ctx, window)
	if err != nil {
		resultErr = err
		logger.Error("list businesses", slog.Any("error", err))
		return resultErr
	}
	if len(businesses) == 0 {
		logger.Info("no ready documents")
		return resultErr
	}

	enqueued, skipped := 0, 0
	for _, id := range businesses {
		batch, err := NewAutoPostBatchTask(AutoPostBatchPayload{
			BusinessID: id.String(),
			Period:     period.String(),
			Cap:        payload.Cap,
		})
		if err != nil {
			resultErr = err
			return resultErr
		}
		if _, err := j.Enqueuer.EnqueueContext(ctx, batch); err != nil {
			if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
				skipped++
				continue
			}
			resultErr = err
			logger.Error("enqueue batch", slog.String("business_id", id.String()), slog.Any("error", err))
			return resultErr
		}
		enqueued++
	}
	j.metrics().AddSwept("enqueued", enqueued)
	j.metrics().AddSwept("skipped", skipped)
	logger.Info("sweep finished", slog.Int("enqueued", enqueued), slog.Int("skipped", skipped))
	return resultErr
}

func (j *AutoPostJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *AutoPostJob) log(task string) *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", task))
	}
	return slog.Default().With(slog.String("job", task))
}

func (j *AutoPostJob) location() *time.Location {
	if j != nil && j.Location != nil {
		return j.Location
	}
	return time.Local
}

func (j *AutoPostJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *AutoPostJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
