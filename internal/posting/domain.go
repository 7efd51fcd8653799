// Package posting classifies unposted financial documents and drives
// automatic posting to the ledger, including recovery from missing
// ledger-account assignments.
package posting

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taxdesk/taxdesk/internal/platform/httpx"
)

// Reason explains why a document cannot be posted yet.
type Reason string

const (
	ReasonReadyToPost       Reason = "ready_to_post"
	ReasonMissingCategory   Reason = "missing_category"
	ReasonMissingPeriod     Reason = "missing_period"
	ReasonPendingAcceptance Reason = "pending_acceptance"
	ReasonLockedPeriod      Reason = "locked_period"
)

// reasonOrder is the canonical bucket order of the unposted queue.
var reasonOrder = []Reason{
	ReasonReadyToPost,
	ReasonMissingCategory,
	ReasonMissingPeriod,
	ReasonPendingAcceptance,
	ReasonLockedPeriod,
}

// ErrUnknownReason indicates a blocking reason outside the closed set.
var ErrUnknownReason = fmt.Errorf("posting: unknown blocking reason: %w", httpx.ErrValidation)

// ParseReason maps a stored blocking reason. A nil or empty value means the
// document is ready to post.
func ParseReason(raw *string) (*Reason, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	r := Reason(*raw)
	for _, known := range reasonOrder {
		if r == known {
			return &r, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownReason, *raw)
}

// AccountingStatus tracks whether a document reached the ledger.
type AccountingStatus string

const (
	StatusUnposted AccountingStatus = "unposted"
	StatusPosted   AccountingStatus = "posted"
)

// Document is a financial document awaiting posting.
type Document struct {
	ID             uuid.UUID        `json:"id"`
	BusinessID     uuid.UUID        `json:"business_id"`
	Number         string           `json:"number"`
	Kind           string           `json:"kind"`
	OccurredOn     time.Time        `json:"occurred_on"`
	Status         AccountingStatus `json:"accounting_status"`
	BlockingReason *Reason          `json:"blocking_reason"`
	AccountID      *uuid.UUID       `json:"ledger_account_id,omitempty"`
}

// Reason returns the bucket of the document; no blocking reason reads as
// ready to post.
func (d Document) Reason() Reason {
	if d.BlockingReason == nil || *d.BlockingReason == "" {
		return ReasonReadyToPost
	}
	return *d.BlockingReason
}

// ErrorCode types a per-document batch failure.
type ErrorCode string

const (
	ErrorMissingAccount ErrorCode = "MISSING_ACCOUNT"
	ErrorOther          ErrorCode = "OTHER"
)

// ParseErrorCode collapses anything unrecognised into OTHER.
func ParseErrorCode(raw string) ErrorCode {
	if ErrorCode(raw) == ErrorMissingAccount {
		return ErrorMissingAccount
	}
	return ErrorOther
}

// Failure describes one document the batch could not post.
type Failure struct {
	DocumentID uuid.UUID `json:"document_id"`
	Code       ErrorCode `json:"error_code"`
	Message    string    `json:"message,omitempty"`
}

// BatchResult is the outcome of one batch posting call. It is never persisted
// by the store; callers re-derive classification afterwards.
type BatchResult struct {
	Posted   int       `json:"posted_count"`
	Failed   int       `json:"failed_count"`
	Failures []Failure `json:"failures"`
	Success  bool      `json:"success"`
}

// MissingAccountIDs returns the distinct documents that failed for lack of a
// ledger account, in failure order.
func (r BatchResult) MissingAccountIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for _, f := range r.Failures {
		if f.Code != ErrorMissingAccount || seen[f.DocumentID] {
			continue
		}
		seen[f.DocumentID] = true
		out = append(out, f.DocumentID)
	}
	return out
}

// SingleStatus is the outcome class of a single-document post.
type SingleStatus string

const (
	SinglePosted      SingleStatus = "posted"
	SingleNeedsReview SingleStatus = "needs_review"
	SingleError       SingleStatus = "error"
)

// SingleOutcome reports a single-document post. needs_review is an expected
// terminal outcome, not a failure.
type SingleOutcome struct {
	DocumentID uuid.UUID    `json:"document_id"`
	Status     SingleStatus `json:"status"`
	RuleCode   string       `json:"rule_code,omitempty"`
	Message    string       `json:"message,omitempty"`
}

// SinglePostResult is the raw store response to posting one document.
type SinglePostResult struct {
	BusinessID uuid.UUID
	Success    bool
	RuleCode   string
	Status     string
	Error      string
}

// Account is a ledger account offered during assignment.
type Account struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
	Name string    `json:"name"`
	Rate *string   `json:"rate,omitempty"`
}

// Assignment pins one document to a ledger account.
type Assignment struct {
	DocumentID uuid.UUID `json:"document_id" validate:"required"`
	AccountID  uuid.UUID `json:"account_id" validate:"required"`
}

var (
	// ErrDocumentNotFound indicates the document does not exist.
	ErrDocumentNotFound = fmt.Errorf("posting: document not found: %w", httpx.ErrNotFound)
	// ErrSessionNotFound indicates an unknown or expired session.
	ErrSessionNotFound = fmt.Errorf("posting: session not found: %w", httpx.ErrNotFound)
	// ErrSessionClosed indicates the session no longer accepts input.
	ErrSessionClosed = fmt.Errorf("posting: session is not awaiting account assignment: %w", httpx.ErrConflict)
	// ErrIncompleteAssignment indicates not every affected document was assigned.
	ErrIncompleteAssignment = fmt.Errorf("posting: every affected document needs exactly one account: %w", httpx.ErrValidation)
	// ErrInvalidCap indicates a non-positive document cap.
	ErrInvalidCap = fmt.Errorf("posting: cap must be positive: %w", httpx.ErrValidation)
	// ErrSessionNotSaved means the batch ran but its session could not be stored.
	ErrSessionNotSaved = errors.New("posting: session not saved")
)
