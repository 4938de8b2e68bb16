package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	outboxDomain "github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/outbox/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/outbox/worker"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// rollback is deferred after Begin; it is a no-op once the tx is committed.
func rollback(ctx context.Context, logger *zap.Logger, tx pgx.Tx) {
	shutdownCtx := context.WithoutCancel(ctx)
	if err := tx.Rollback(shutdownCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		mylogger.Warn(shutdownCtx, logger, "Error rolling back transaction", zap.Error(err))
	}
}

// emitOrderEvent stores an order event in the outbox within tx.
func emitOrderEvent(
	ctx context.Context,
	tx pgx.Tx,
	repo worker.OutboxRepository,
	topic string,
	orderID int64,
	eventType string,
	payload any,
) error {
	event, err := outboxDomain.NewEvent(topic, domain.AggregateOrder, strconv.FormatInt(orderID, 10), eventType, payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	if err := repo.Save(ctx, tx, event); err != nil {
		return fmt.Errorf("failed to save %s event: %w", eventType, err)
	}
	return nil
}
