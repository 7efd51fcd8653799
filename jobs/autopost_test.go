package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxdesk/taxdesk/internal/calendar"
	jobmetrics "github.com/taxdesk/taxdesk/internal/jobs"
	"github.com/taxdesk/taxdesk/internal/posting"
)

var jobNow = time.Date(2025, time.April, 1, 3, 0, 0, 0, time.UTC)

type stubRunner struct {
	gotBusiness uuid.UUID
	gotPeriod   calendar.Key
	gotLimit    int
	session     posting.Session
	err         error
}

func (s *stubRunner) RunBatch(ctx context.Context, businessID uuid.UUID, period calendar.Key, limit int) (posting.Session, error) {
	s.gotBusiness, s.gotPeriod, s.gotLimit = businessID, period, limit
	return s.session, s.err
}

type stubLister struct {
	gotWindow calendar.Range
	ids       []uuid.UUID
}

func (s *stubLister) BusinessesWithReady(ctx context.Context, window calendar.Range) ([]uuid.UUID, error) {
	s.gotWindow = window
	return s.ids, nil
}

type stubEnqueuer struct {
	tasks    []*asynq.Task
	conflict map[string]bool
}

func (s *stubEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	var payload AutoPostBatchPayload
	_ = json.Unmarshal(task.Payload(), &payload)
	if s.conflict[payload.BusinessID] {
		return nil, asynq.ErrTaskIDConflict
	}
	s.tasks = append(s.tasks, task)
	return &asynq.TaskInfo{ID: payload.BusinessID}, nil
}

func newJob(runner BatchRunner, lister ReadyLister, enq Enqueuer) *AutoPostJob {
	job := NewAutoPostJob(runner, lister, enq, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.Location = time.UTC
	job.WithClock(func() time.Time { return jobNow })
	return job
}

func TestHandleBatchDefaultsToPreviousMonth(t *testing.T) {
	runner := &stubRunner{session: posting.Session{State: posting.StateAwaitingAccountAssignment}}
	id := uuid.New()
	task, err := NewAutoPostBatchTask(AutoPostBatchPayload{BusinessID: id.String(), Cap: 10})
	require.NoError(t, err)

	require.NoError(t, newJob(runner, nil, nil).HandleBatch(context.Background(), task))
	assert.Equal(t, id, runner.gotBusiness)
	assert.Equal(t, calendar.Key{Year: 2025, Month: time.March}, runner.gotPeriod)
	assert.Equal(t, 10, runner.gotLimit)
}

func TestHandleBatchPropagatesStoreErrors(t *testing.T) {
	runner := &stubRunner{err: errors.New("db down")}
	task, err := NewAutoPostBatchTask(AutoPostBatchPayload{BusinessID: uuid.NewString(), Period: "2025-02"})
	require.NoError(t, err)

	err = newJob(runner, nil, nil).HandleBatch(context.Background(), task)
	require.Error(t, err)
	assert.Equal(t, calendar.Key{Year: 2025, Month: time.February}, runner.gotPeriod)
}

func TestHandleBatchSkipsRetryOnBadPayload(t *testing.T) {
	job := newJob(&stubRunner{}, nil, nil)
	err := job.HandleBatch(context.Background(), asynq.NewTask(TaskAutoPostBatch, []byte(`{"business_id":"nope"}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = job.HandleBatch(context.Background(), asynq.NewTask(TaskAutoPostBatch, []byte(`{"business_id":"`+uuid.NewString()+`","period":"2025-13"}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleSweepEnqueuesPerBusiness(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	lister := &stubLister{ids: []uuid.UUID{a, b, c}}
	enq := &stubEnqueuer{conflict: map[string]bool{b.String(): true}}
	task, err := NewAutoPostSweepTask("", 25)
	require.NoError(t, err)

	require.NoError(t, newJob(nil, lister, enq).HandleSweep(context.Background(), task))
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), lister.gotWindow.From)
	require.Len(t, enq.tasks, 2)
	for _, queued := range enq.tasks {
		assert.Equal(t, TaskAutoPostBatch, queued.Type())
		var payload AutoPostBatchPayload
		require.NoError(t, json.Unmarshal(queued.Payload(), &payload))
		assert.Equal(t, "2025-03", payload.Period)
		assert.Equal(t, 25, payload.Cap)
	}
}

func TestHandleSweepRequiresDependencies(t *testing.T) {
	task, err := NewAutoPostSweepTask("2025-03", 0)
	require.NoError(t, err)
	require.Error(t, newJob(nil, nil, nil).HandleSweep(context.Background(), task))
}

func TestNewAutoPostBatchTaskRequiresBusiness(t *testing.T) {
	_, err := NewAutoPostBatchTask(AutoPostBatchPayload{})
	require.Error(t, err)
}

func TestResolvePeriod(t *testing.T) {
	key, err := ResolvePeriod(PeriodPrevious, time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, calendar.Key{Year: 2024, Month: time.December}, key)

	key, err = ResolvePeriod("2024-07", jobNow)
	require.NoError(t, err)
	assert.Equal(t, calendar.Key{Year: 2024, Month: time.July}, key)
}

func TestJobsHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, nil).MountRoutes(r)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0,"active":0,"scheduled":0,"retry":0,"archived":0}`, rr.Body.String())
}
