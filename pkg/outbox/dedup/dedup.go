package dedup

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Once runs action at most once per eventID. The processed_events row and
// the action share a transaction: if action fails the row is rolled back and
// the event can be redelivered.
func Once(
	ctx context.Context,
	pool *pgxpool.Pool,
	logger *zap.Logger,
	eventID int64,
	action func(ctx context.Context) error,
) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		if err := tx.Rollback(cleanupCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Error(cleanupCtx, logger, "Error rolling back transaction", zap.Error(err))
		}
	}()

	_, err = tx.Exec(ctx, `INSERT INTO processed_events (event_id) VALUES ($1)`, eventID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			mylogger.Info(ctx, logger, "Event already processed, skipping", zap.Int64("event_id", eventID))
			return nil
		}

		return fmt.Errorf("failed to record event %d: %w", eventID, err)
	}

	if err := action(ctx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit processed event: %w", err)
	}

	return nil
}
