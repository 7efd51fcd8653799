package posting

import (
	"time"

	"github.com/google/uuid"

	"github.com/taxdesk/taxdesk/internal/calendar"
)

// SessionState is the lifecycle position of a batch posting session.
type SessionState string

const (
	StateInit                      SessionState = "INIT"
	StateBatchPosting              SessionState = "BATCH_POSTING"
	StateDone                      SessionState = "DONE"
	StateDoneWithErrors            SessionState = "DONE_WITH_ERRORS"
	StateAwaitingAccountAssignment SessionState = "AWAITING_ACCOUNT_ASSIGNMENT"
	StateCancelled                 SessionState = "CANCELLED"
)

// Terminal reports whether the session accepts no further input.
func (s SessionState) Terminal() bool {
	switch s {
	case StateDone, StateDoneWithErrors, StateCancelled:
		return true
	}
	return false
}

// Session tracks one batch posting run and its assignment recoveries.
type Session struct {
	ID          uuid.UUID    `json:"id"`
	BusinessID  uuid.UUID    `json:"business_id"`
	Period      calendar.Key `json:"period"`
	Cap         int          `json:"cap"`
	State       SessionState `json:"state"`
	Attempts    int          `json:"attempts"`
	TotalPosted int          `json:"total_posted"`
	LastResult  *BatchResult `json:"last_result,omitempty"`

	// AffectedDocumentIDs lists documents waiting for an account while the
	// session is awaiting assignment.
	AffectedDocumentIDs []uuid.UUID `json:"affected_document_ids,omitempty"`
	// AssignmentFailures records account writes that failed in the last round.
	AssignmentFailures []Failure `json:"assignment_failures,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// settle moves a session out of BATCH_POSTING based on the batch outcome.
func (s *Session) settle(result BatchResult, at time.Time) {
	s.LastResult = &result
	s.TotalPosted += result.Posted
	s.UpdatedAt = at

	affected := result.MissingAccountIDs()
	switch {
	case len(affected) > 0:
		s.State = StateAwaitingAccountAssignment
		s.AffectedDocumentIDs = affected
	case result.Failed > 0 || len(result.Failures) > 0:
		s.State = StateDoneWithErrors
		s.AffectedDocumentIDs = nil
	default:
		s.State = StateDone
		s.AffectedDocumentIDs = nil
	}
}

// checkAssignments requires exactly one assignment per affected document and
// nothing else.
func (s Session) checkAssignments(list []Assignment) error {
	if len(list) != len(s.AffectedDocumentIDs) {
		return ErrIncompleteAssignment
	}
	pending := make(map[uuid.UUID]bool, len(s.AffectedDocumentIDs))
	for _, id := range s.AffectedDocumentIDs {
		pending[id] = true
	}
	for _, a := range list {
		if !pending[a.DocumentID] || a.AccountID == uuid.Nil {
			return ErrIncompleteAssignment
		}
		delete(pending, a.DocumentID)
	}
	if len(pending) > 0 {
		return ErrIncompleteAssignment
	}
	return nil
}
