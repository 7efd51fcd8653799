package periods

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taxdesk/taxdesk/internal/calendar"
	"github.com/taxdesk/taxdesk/internal/platform/httpx"
)

// ErrPeriodNotFound indicates no period exists for the requested month.
var ErrPeriodNotFound = fmt.Errorf("periods: period not found: %w", httpx.ErrNotFound)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads accounting periods.
type Repository struct {
	db Querier
}

// NewRepository constructs a Repository on top of a pool or transaction.
func NewRepository(db Querier) *Repository {
	return &Repository{db: db}
}

// Recent returns up to limit periods of the business, newest first.
func (r *Repository) Recent(ctx context.Context, businessID uuid.UUID, limit int) ([]Period, error) {
	rows, err := r.db.Query(ctx, `SELECT id, business_id, year, month, status, locked_at
FROM accounting_periods WHERE business_id=$1 ORDER BY year DESC, month DESC LIMIT $2`, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Period
	for rows.Next() {
		var p Period
		var month int
		if err := rows.Scan(&p.ID, &p.BusinessID, &p.Year, &month, &p.Status, &p.LockedAt); err != nil {
			return nil, err
		}
		p.Month = time.Month(month)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Find loads the period of the business covering key.
func (r *Repository) Find(ctx context.Context, businessID uuid.UUID, key calendar.Key) (Period, error) {
	var p Period
	var month int
	err := r.db.QueryRow(ctx, `SELECT id, business_id, year, month, status, locked_at
FROM accounting_periods WHERE business_id=$1 AND year=$2 AND month=$3`, businessID, key.Year, int(key.Month)).
		Scan(&p.ID, &p.BusinessID, &p.Year, &month, &p.Status, &p.LockedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, ErrPeriodNotFound
		}
		return Period{}, err
	}
	p.Month = time.Month(month)
	return p, nil
}
