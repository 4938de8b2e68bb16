package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/outbox/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OutboxRepository interface {
	Save(ctx context.Context, tx pgx.Tx, event *domain.OutboxEvent) error
	FetchPending(ctx context.Context, tx pgx.Tx, batchSize int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, tx pgx.Tx, eventID int64) error
	MarkFailed(ctx context.Context, tx pgx.Tx, eventID int64, errMsg string) error
}

type Publisher interface {
	ProduceMessage(ctx context.Context, topic, key string, message any) error
}

// Relay moves committed outbox rows to Kafka.
type Relay struct {
	pool      *pgxpool.Pool
	repo      OutboxRepository
	publisher Publisher
	logger    *zap.Logger
	batchSize int
	interval  time.Duration
	tracer    trace.Tracer
}

func NewRelay(
	pool *pgxpool.Pool,
	repo OutboxRepository,
	publisher Publisher,
	logger *zap.Logger,
) *Relay {
	return &Relay{
		pool:      pool,
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		batchSize: 50,
		interval:  500 * time.Millisecond,
		tracer:    otel.Tracer("outbox/relay"),
	}
}

func (r *Relay) Start(ctx context.Context) {
	mylogger.Info(ctx, r.logger, "Starting outbox relay")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			mylogger.Info(context.WithoutCancel(ctx), r.logger, "Outbox relay stopping")
			return
		case <-ticker.C:
			if _, err := r.ProcessBatch(ctx); err != nil && ctx.Err() == nil {
				mylogger.Error(ctx, r.logger, "Error processing outbox batch", zap.Error(err))
			}
		}
	}
}

// ProcessBatch publishes one batch and returns how many events were
// published.
func (r *Relay) ProcessBatch(ctx context.Context) (int, error) {
	ctx, span := r.tracer.Start(ctx, "Relay.ProcessBatch")
	defer span.End()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("error beginning transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		if err := tx.Rollback(cleanupCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Error(cleanupCtx, r.logger, "Outbox relay failed to rollback transaction", zap.Error(err))
		}
	}()

	events, err := r.repo.FetchPending(ctx, tx, r.batchSize)
	if err != nil {
		return 0, err
	}

	if len(events) == 0 {
		return 0, nil
	}

	published, err := r.publish(ctx, tx, events)
	if err != nil {
		return published, err
	}

	span.SetAttributes(attribute.Int("published", published))

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit outbox batch: %w", err)
	}

	mylogger.Debug(ctx, r.logger, "Outbox batch published", zap.Int("count", published))

	return published, nil
}

// publish sends events in order. After a failed publish the remaining events
// of the same aggregate are left pending for the next batch.
func (r *Relay) publish(ctx context.Context, tx pgx.Tx, events []*domain.OutboxEvent) (int, error) {
	blocked := make(map[string]struct{})

	published := 0
	for _, event := range events {
		key := event.AggregateType + "/" + event.AggregateID
		if _, ok := blocked[key]; ok {
			mylogger.Debug(
				ctx,
				r.logger,
				"Outbox event held behind failed event",
				zap.Int64("event_id", event.ID),
				zap.String("aggregate", key),
			)
			continue
		}

		envelope := domain.Envelope{
			EventID: event.ID,
			Event:   event.EventType,
			Payload: event.Payload,
		}

		if err := r.publisher.ProduceMessage(ctx, event.Topic, event.AggregateID, envelope); err != nil {
			mylogger.Warn(
				ctx,
				r.logger,
				"Outbox relay publish failed",
				zap.Int64("event_id", event.ID),
				zap.String("event_type", event.EventType),
				zap.Error(err),
			)

			if dbErr := r.repo.MarkFailed(ctx, tx, event.ID, err.Error()); dbErr != nil {
				return published, fmt.Errorf("failed to mark event %d failed: %w", event.ID, dbErr)
			}

			blocked[key] = struct{}{}
			continue
		}

		if err := r.repo.MarkPublished(ctx, tx, event.ID); err != nil {
			return published, fmt.Errorf("failed to mark event %s published: %w", strconv.FormatInt(event.ID, 10), err)
		}

		published++
	}

	return published, nil
}
