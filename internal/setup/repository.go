package setup

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taxdesk/taxdesk/internal/business"
	"github.com/taxdesk/taxdesk/internal/periods"
	"github.com/taxdesk/taxdesk/internal/platform/db"
	"github.com/taxdesk/taxdesk/internal/platform/httpx"
)

// ErrBusinessNotFound indicates the profile row is missing.
var ErrBusinessNotFound = fmt.Errorf("setup: business not found: %w", httpx.ErrNotFound)

// recentPeriodWindow bounds how many periods are inspected for the latest status.
const recentPeriodWindow = 24

// Repository reads profiles and activity counts from Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Profile loads the business profile.
func (r *Repository) Profile(ctx context.Context, businessID uuid.UUID) (business.Profile, error) {
	var p business.Profile
	var regime, vatStatus, cadence *string
	err := r.pool.QueryRow(ctx, `SELECT id, entity_kind, tax_type, vat_status, vat_cadence, business_start_date, accounting_start_date
FROM business_profiles WHERE id=$1`, businessID).
		Scan(&p.ID, &p.EntityKind, &regime, &vatStatus, &cadence, &p.BusinessStart, &p.AccountingStart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return business.Profile{}, ErrBusinessNotFound
		}
		return business.Profile{}, err
	}
	if regime != nil {
		p.TaxRegime = business.TaxRegime(*regime)
	}
	if vatStatus != nil {
		p.VATStatus = business.VATStatus(*vatStatus)
	}
	if cadence != nil {
		p.VATCadence = business.VATCadence(*cadence)
	}
	return p, nil
}

// Signals counts activity in one consistent snapshot.
func (r *Repository) Signals(ctx context.Context, businessID uuid.UUID) (Signals, error) {
	var s Signals
	err := db.ReadOnly(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `SELECT
  (SELECT count(*) FROM invoices WHERE business_id=$1),
  (SELECT count(*) FROM bank_transactions WHERE business_id=$1),
  (SELECT count(*) FROM register_lines WHERE business_id=$1 AND posted),
  (SELECT count(*) FROM ledger_entries WHERE business_id=$1),
  (SELECT count(*) FROM financial_events WHERE business_id=$1),
  (SELECT count(*) FROM revenue_categories WHERE business_id=$1),
  (SELECT count(*) FROM accounting_periods WHERE business_id=$1)`, businessID).
			Scan(&s.Invoices, &s.BankTransactions, &s.PostedLines, &s.LedgerEntries, &s.FinancialEvents, &s.RevenueCategories, &s.AccountingPeriods)
		if err != nil {
			return err
		}
		recent, err := periods.NewRepository(tx).Recent(ctx, businessID, recentPeriodWindow)
		if err != nil {
			return err
		}
		s.LatestPeriodStatus = periods.Summarize(recent)
		return nil
	})
	if err != nil {
		return Signals{}, fmt.Errorf("setup: count signals: %w", err)
	}
	return s, nil
}
