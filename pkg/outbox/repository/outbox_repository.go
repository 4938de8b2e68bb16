package repository

import (
	"context"
	"fmt"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/outbox/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/outbox/worker"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// maxAttempts stops the relay from retrying a poisoned row forever.
const maxAttempts = 10

type outboxRepo struct {
	tracer trace.Tracer
}

func NewOutboxRepository() worker.OutboxRepository {
	return &outboxRepo{
		tracer: otel.Tracer("outbox/repository"),
	}
}

func (r *outboxRepo) Save(ctx context.Context, tx pgx.Tx, event *domain.OutboxEvent) error {
	ctx, span := r.tracer.Start(ctx, "OutboxRepository.Save")
	defer span.End()

	span.SetAttributes(
		attribute.String("aggregate_type", event.AggregateType),
		attribute.String("aggregate_id", event.AggregateID),
		attribute.String("event_type", event.EventType),
	)

	query := `
		INSERT INTO outbox (aggregate_type, aggregate_id, event_type, payload, topic)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := tx.QueryRow(
		ctx,
		query,
		event.AggregateType,
		event.AggregateID,
		event.EventType,
		[]byte(event.Payload),
		event.Topic,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to save outbox event: %w", err)
	}

	return nil
}

func (r *outboxRepo) FetchPending(ctx context.Context, tx pgx.Tx, batchSize int) ([]*domain.OutboxEvent, error) {
	ctx, span := r.tracer.Start(ctx, "OutboxRepository.FetchPending")
	defer span.End()

	span.SetAttributes(attribute.Int("batch_size", batchSize))

	query := `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, topic, created_at, attempts
		FROM outbox
		WHERE published_at IS NULL AND attempts < $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`

	rows, err := tx.Query(ctx, query, maxAttempts, batchSize)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query pending events: %w", err)
	}
	defer rows.Close()

	var events []*domain.OutboxEvent
	for rows.Next() {
		var e domain.OutboxEvent
		if err := rows.Scan(
			&e.ID,
			&e.AggregateType,
			&e.AggregateID,
			&e.EventType,
			&e.Payload,
			&e.Topic,
			&e.CreatedAt,
			&e.Attempts,
		); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("error scanning event: %w", err)
		}

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	span.SetAttributes(attribute.Int("result_count", len(events)))

	return events, nil
}

func (r *outboxRepo) MarkPublished(ctx context.Context, tx pgx.Tx, eventID int64) error {
	ctx, span := r.tracer.Start(ctx, "OutboxRepository.MarkPublished")
	defer span.End()

	span.SetAttributes(attribute.Int64("event_id", eventID))

	query := `
		UPDATE outbox
		SET published_at = NOW(), last_error = NULL
		WHERE id = $1
	`

	if _, err := tx.Exec(ctx, query, eventID); err != nil {
		span.RecordError(err)
		return err
	}

	return nil
}

func (r *outboxRepo) MarkFailed(ctx context.Context, tx pgx.Tx, eventID int64, errMsg string) error {
	ctx, span := r.tracer.Start(ctx, "OutboxRepository.MarkFailed")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("event_id", eventID),
		attribute.String("outbox.error_message", errMsg),
	)

	query := `
		UPDATE outbox
		SET last_error = $1, attempts = attempts + 1
		WHERE id = $2
	`

	if _, err := tx.Exec(ctx, query, errMsg, eventID); err != nil {
		span.RecordError(err)
		return err
	}

	return nil
}
