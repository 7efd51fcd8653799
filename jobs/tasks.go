package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/taxdesk/taxdesk/internal/calendar"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAutoPostBatch posts the ready documents of one business and month.
	TaskAutoPostBatch = "autopost:batch"
	// TaskAutoPostSweep fans out batch tasks to every business with ready documents.
	TaskAutoPostSweep = "autopost:sweep"

	// PeriodPrevious selects the month before the one the job runs in.
	PeriodPrevious = "previous"
)

// AutoPostBatchPayload scopes one batch posting run.
type AutoPostBatchPayload struct {
	BusinessID string `json:"business_id"`
	Period     string `json:"period"`
	Cap        int    `json:"cap,omitempty"`
}

// AutoPostSweepPayload scopes a sweep; Period is YYYY-MM or "previous".
type AutoPostSweepPayload struct {
	Period string `json:"period"`
	Cap    int    `json:"cap,omitempty"`
}

// NewAutoPostBatchTask creates a batch task. Tasks for the same business and
// month share an id so duplicates are rejected while one is queued.
func NewAutoPostBatchTask(payload AutoPostBatchPayload) (*asynq.Task, error) {
	if payload.BusinessID == "" {
		return nil, fmt.Errorf("autopost batch: business id required")
	}
	if payload.Period == "" {
		payload.Period = PeriodPrevious
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAutoPostBatch, body,
		asynq.Queue(QueueDefault),
		asynq.TaskID(TaskAutoPostBatch+":"+payload.BusinessID+":"+payload.Period),
		asynq.MaxRetry(3),
	), nil
}

// NewAutoPostSweepTask creates a sweep task.
func NewAutoPostSweepTask(period string, limit int) (*asynq.Task, error) {
	if period == "" {
		period = PeriodPrevious
	}
	body, err := json.Marshal(AutoPostSweepPayload{Period: period, Cap: limit})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAutoPostSweep, body, asynq.Queue(QueueDefault)), nil
}

// ResolvePeriod maps a payload period onto a calendar key relative to now.
func ResolvePeriod(raw string, now time.Time) (calendar.Key, error) {
	if raw == "" || raw == PeriodPrevious {
		return calendar.Previous(calendar.KeyOf(now)), nil
	}
	return calendar.Parse(raw)
}
