// Package periods references accounting periods owned by the ledger store.
package periods

import (
	"time"

	"github.com/google/uuid"
)

// Status enumerates accounting period states.
type Status string

const (
	StatusOpen    Status = "open"
	StatusClosing Status = "closing"
	StatusLocked  Status = "locked"
)

// Postable reports whether documents dated inside the period may be posted.
func (s Status) Postable() bool {
	return s == StatusOpen || s == StatusClosing
}

// Period is a month of a business's books.
type Period struct {
	ID         uuid.UUID
	BusinessID uuid.UUID
	Year       int
	Month      time.Month
	Status     Status
	LockedAt   *time.Time
}

// LatestStatus summarises the most recent unlocked period for setup signals.
type LatestStatus string

const (
	LatestOpen   LatestStatus = "open"
	LatestLocked LatestStatus = "locked"
	LatestNone   LatestStatus = "none"
)

// Summarize derives the latest-period signal from periods ordered newest
// first: the newest period that is not locked wins, a business whose periods
// are all locked reports locked, and no periods at all reports none.
func Summarize(list []Period) LatestStatus {
	if len(list) == 0 {
		return LatestNone
	}
	for _, p := range list {
		if p.Status != StatusLocked {
			return LatestOpen
		}
	}
	return LatestLocked
}
