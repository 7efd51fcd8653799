package posting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taxdesk/taxdesk/internal/calendar"
	"github.com/taxdesk/taxdesk/internal/platform/db"
	"github.com/taxdesk/taxdesk/internal/platform/httpx"
)

// ErrAccountNotFound indicates the account is unknown, inactive or belongs to
// another business.
var ErrAccountNotFound = fmt.Errorf("posting: ledger account not found: %w", httpx.ErrValidation)

const pgForeignKeyViolation = "23503"

// Repository implements Store on Postgres. Posting itself runs inside the
// auto_post_document and auto_post_batch database functions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FetchUnposted lists unposted documents dated inside r.
func (r *Repository) FetchUnposted(ctx context.Context, businessID uuid.UUID, window calendar.Range) ([]Document, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, business_id, number, kind, occurred_on, accounting_status, blocking_reason, ledger_account_id
FROM postable_documents
WHERE business_id=$1 AND accounting_status='unposted' AND occurred_on BETWEEN $2 AND $3
ORDER BY occurred_on, number`, businessID, window.From, window.To)
	if err != nil {
		return nil, fmt.Errorf("posting: fetch unposted: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var status string
		var reason *string
		if err := rows.Scan(&doc.ID, &doc.BusinessID, &doc.Number, &doc.Kind, &doc.OccurredOn, &status, &reason, &doc.AccountID); err != nil {
			return nil, err
		}
		doc.Status = AccountingStatus(status)
		if doc.BlockingReason, err = ParseReason(reason); err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.ID, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type singleRPCResult struct {
	BusinessID uuid.UUID `json:"business_id"`
	Success    bool      `json:"success"`
	RuleCode   string    `json:"rule_code"`
	Status     string    `json:"status"`
	Error      string    `json:"error"`
}

// PostSingle invokes auto_post_document.
func (r *Repository) PostSingle(ctx context.Context, documentID uuid.UUID) (SinglePostResult, error) {
	var raw []byte
	if err := r.pool.QueryRow(ctx, `SELECT auto_post_document($1)`, documentID).Scan(&raw); err != nil {
		return SinglePostResult{}, fmt.Errorf("posting: auto_post_document: %w", err)
	}
	var res singleRPCResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return SinglePostResult{}, fmt.Errorf("posting: decode single result: %w", err)
	}
	return SinglePostResult(res), nil
}

type batchRPCResult struct {
	PostedCount int  `json:"posted_count"`
	FailedCount int  `json:"failed_count"`
	Success     bool `json:"success"`
	Errors      []struct {
		DocumentID uuid.UUID `json:"document_id"`
		ErrorCode  string    `json:"error_code"`
		Message    string    `json:"message"`
	} `json:"errors"`
}

// PostBatch invokes auto_post_batch for the ready documents dated inside window.
func (r *Repository) PostBatch(ctx context.Context, businessID uuid.UUID, window calendar.Range, limit int) (BatchResult, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT auto_post_batch($1, $2, $3, $4)`,
		businessID, window.From, window.To, limit).Scan(&raw)
	if err != nil {
		return BatchResult{}, fmt.Errorf("posting: auto_post_batch: %w", err)
	}
	var res batchRPCResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return BatchResult{}, fmt.Errorf("posting: decode batch result: %w", err)
	}
	out := BatchResult{Posted: res.PostedCount, Failed: res.FailedCount, Success: res.Success}
	for _, e := range res.Errors {
		out.Failures = append(out.Failures, Failure{
			DocumentID: e.DocumentID,
			Code:       ParseErrorCode(e.ErrorCode),
			Message:    e.Message,
		})
	}
	return out, nil
}

// AssignLedgerAccount pins a document to an active account of the same
// business.
func (r *Repository) AssignLedgerAccount(ctx context.Context, documentID, accountID uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var businessID uuid.UUID
		err := tx.QueryRow(ctx, `SELECT business_id FROM postable_documents WHERE id=$1`, documentID).Scan(&businessID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrDocumentNotFound
			}
			return err
		}
		var ok bool
		err = tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM ledger_accounts WHERE id=$1 AND business_id=$2 AND is_active)`,
			accountID, businessID).Scan(&ok)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAccountNotFound
		}
		tag, err := tx.Exec(ctx, `UPDATE documents SET ledger_account_id=$2, updated_at=now() WHERE id=$1`, documentID, accountID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
				return ErrAccountNotFound
			}
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrDocumentNotFound
		}
		return nil
	})
}

// ListAccounts returns the active ledger accounts ordered by code.
func (r *Repository) ListAccounts(ctx context.Context, businessID uuid.UUID) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, rate FROM ledger_accounts
WHERE business_id=$1 AND is_active ORDER BY code`, businessID)
	if err != nil {
		return nil, fmt.Errorf("posting: list accounts: %w", err)
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Rate); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// BusinessesWithReady lists businesses holding ready-to-post documents in
// window. Used by the sweep job.
func (r *Repository) BusinessesWithReady(ctx context.Context, window calendar.Range) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT business_id FROM postable_documents
WHERE accounting_status='unposted' AND blocking_reason IS NULL AND occurred_on BETWEEN $1 AND $2
ORDER BY business_id`, window.From, window.To)
	if err != nil {
		return nil, fmt.Errorf("posting: businesses with ready documents: %w", err)
	}
	defer rows.Close()
	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
