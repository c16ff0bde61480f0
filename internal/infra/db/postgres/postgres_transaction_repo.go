package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"dating-subscription-payments/internal/domain"
	"dating-subscription-payments/internal/domain/model"
	"dating-subscription-payments/internal/domain/ports/repository"
)

var _ repository.TransactionRepository = (*transactionRepo)(nil)

type transactionRepo struct{ pool *pgxpool.Pool }

func NewTransactionRepo(pool *pgxpool.Pool) *transactionRepo {
	return &transactionRepo{pool: pool}
}

const transactionColumns = `id, user_id, amount, tier, provider, COALESCE(provider_transaction_id,''), phone_number, currency, status, metadata, created_at, updated_at`

func (r *transactionRepo) Create(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	const q = `
INSERT INTO payment_transactions (
  id, user_id, amount, tier, provider, provider_transaction_id, phone_number, currency, status, metadata, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,NULLIF($6,''),$7,$8,$9,$10,$11,$12
);`
	_, err := execSQL(ctx, r.pool, tx, q,
		t.ID, t.UserID, t.Amount, t.Tier, t.Provider, t.ProviderTransactionID,
		t.PhoneNumber, t.Currency, t.Status, t.Metadata, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *transactionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Transaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM payment_transactions WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanTransaction(row)
}

func (r *transactionRepo) FindByCorrelation(ctx context.Context, tx repository.Tx, provider model.Provider, correlationID string) (*model.Transaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM payment_transactions WHERE provider=$1 AND provider_transaction_id=$2 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, provider, correlationID)
	if err != nil {
		return nil, err
	}
	return scanTransaction(row)
}

func (r *transactionRepo) SetCorrelation(ctx context.Context, tx repository.Tx, id, correlationID string, metadata map[string]any) error {
	if metadata == nil {
		metadata = map[string]any{}
	}
	const q = `
UPDATE payment_transactions
   SET provider_transaction_id = $2,
       metadata = COALESCE(metadata, '{}'::jsonb) || $3,
       updated_at = NOW()
 WHERE id = $1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, correlationID, metadata)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

// TransitionIfPending atomically updates status only when the current status
// is still 'pending'. The WHERE guard is the concurrency-control point for
// duplicated and out-of-order callback delivery: the losing writer simply
// affects zero rows.
func (r *transactionRepo) TransitionIfPending(ctx context.Context, tx repository.Tx, id string, status model.TransactionStatus, metadataPatch map[string]any) (bool, error) {
	if metadataPatch == nil {
		metadataPatch = map[string]any{}
	}
	const q = `
UPDATE payment_transactions
   SET status = $2,
       metadata = COALESCE(metadata, '{}'::jsonb) || $3,
       updated_at = NOW()
 WHERE id = $1
   AND status = 'pending';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status), metadataPatch)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *transactionRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + transactionColumns + ` FROM payment_transactions WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Transaction
	for rows.Next() {
		t := new(model.Transaction)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Tier, &t.Provider, &t.ProviderTransactionID,
			&t.PhoneNumber, &t.Currency, &t.Status, &t.Metadata, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, t)
	}
	return out, nil
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	t := &model.Transaction{}
	if err := row.Scan(&t.ID, &t.UserID, &t.Amount, &t.Tier, &t.Provider, &t.ProviderTransactionID,
		&t.PhoneNumber, &t.Currency, &t.Status, &t.Metadata, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return t, nil
}
