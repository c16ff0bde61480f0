package repository

import (
	"context"
	"time"

	"dating-subscription-payments/internal/domain/model"
)

// TransactionRepository is the port for the payment transaction ledger.
type TransactionRepository interface {
	// Create persists a new pending ledger entry. It must succeed before any
	// outbound provider call is attempted.
	Create(ctx context.Context, tx Tx, t *model.Transaction) error

	FindByID(ctx context.Context, tx Tx, id string) (*model.Transaction, error)

	// FindByCorrelation looks a transaction up by the provider-scoped
	// correlation id. Absence is an expected outcome (stale or foreign
	// callback) and is reported as domain.ErrNotFound.
	FindByCorrelation(ctx context.Context, tx Tx, provider model.Provider, correlationID string) (*model.Transaction, error)

	// SetCorrelation records the provider-assigned correlation id and merges
	// metadata onto a transaction after synchronous acceptance.
	SetCorrelation(ctx context.Context, tx Tx, id, correlationID string, metadata map[string]any) error

	// TransitionIfPending atomically moves the transaction to a terminal
	// status only when its current status is still `pending`, merging
	// metadataPatch into the existing metadata. It reports whether this call
	// won the transition; false means the row was already terminal (or
	// missing) and no mutation happened. This compare-and-set is the sole
	// concurrency-control point for at-least-once callback delivery.
	TransitionIfPending(ctx context.Context, tx Tx, id string, status model.TransactionStatus, metadataPatch map[string]any) (bool, error)

	// ListPendingOlderThan returns stale pending entries for the sweeper.
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Transaction, error)
}
