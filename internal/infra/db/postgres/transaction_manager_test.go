//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v4"

	"dating-subscription-payments/internal/domain"
	"dating-subscription-payments/internal/domain/model"
	"dating-subscription-payments/internal/domain/ports/repository"
)

func TestTxManager_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	tm := NewTxManager(testPool)
	repo := NewTransactionRepo(testPool)

	t.Run("should commit writes made through the tx handle", func(t *testing.T) {
		cleanup(t)
		tx := newTestTransaction(t)

		err := tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, dbTx repository.Tx) error {
			if err := repo.Create(ctx, dbTx, tx); err != nil {
				return err
			}
			won, err := repo.TransitionIfPending(ctx, dbTx, tx.ID, model.TransactionStatusFailed, map[string]any{"reason": "test"})
			if err != nil {
				return err
			}
			if !won {
				return errors.New("expected the transition to win inside the tx")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("WithTx failed: %v", err)
		}

		got, err := repo.FindByID(ctx, nil, tx.ID)
		if err != nil {
			t.Fatalf("find after commit failed: %v", err)
		}
		if got.Status != model.TransactionStatusFailed {
			t.Errorf("expected the committed status, got %s", got.Status)
		}
	})

	t.Run("should roll back when the callback errors", func(t *testing.T) {
		cleanup(t)
		tx := newTestTransaction(t)

		sentinel := errors.New("boom")
		err := tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, dbTx repository.Tx) error {
			if err := repo.Create(ctx, dbTx, tx); err != nil {
				return err
			}
			return sentinel
		})
		if !errors.Is(err, sentinel) {
			t.Fatalf("expected the callback error, got %v", err)
		}

		if _, err := repo.FindByID(ctx, nil, tx.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected the insert rolled back, got %v", err)
		}
	})

	t.Run("should reject foreign tx handles", func(t *testing.T) {
		if _, err := repo.FindByID(ctx, "not a tx", "some-id"); !errors.Is(err, domain.ErrInvalidExecContext) {
			t.Errorf("expected ErrInvalidExecContext, got %v", err)
		}
	})
}
