package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type CartRepository interface {
	GetByOwner(ctx context.Context, owner domain.Owner) (*domain.Cart, error)
	// LockByOwner returns the owner's cart locked for the rest of tx,
	// creating an empty one first if needed.
	LockByOwner(ctx context.Context, tx pgx.Tx, owner domain.Owner) (*domain.Cart, error)
	// FindLocked is LockByOwner without the create.
	FindLocked(ctx context.Context, tx pgx.Tx, owner domain.Owner) (*domain.Cart, error)
	Save(ctx context.Context, tx pgx.Tx, cart *domain.Cart) error
	Delete(ctx context.Context, tx pgx.Tx, cartID int64) error
}

type cartRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewCartRepository(pool *pgxpool.Pool, logger *zap.Logger) CartRepository {
	return &cartRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("repository/cart_repository"),
	}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const cartColumns = `id, owner_kind, owner_id, total_amount, total_items, created_at, updated_at`

func (r *cartRepo) load(ctx context.Context, q querier, query string, owner domain.Owner) (*domain.Cart, error) {
	var c domain.Cart
	var kind string
	err := q.QueryRow(ctx, query, string(owner.Kind), owner.ID).Scan(
		&c.ID,
		&kind,
		&c.Owner.ID,
		&c.TotalAmount,
		&c.TotalItems,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("error getting cart: %w", err)
	}
	c.Owner.Kind = domain.OwnerKind(kind)

	rows, err := q.Query(ctx, `
		SELECT id, product_id, variant_id, name, sku, image_url, size, price, quantity, subtotal, customization_id
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY position ASC, id ASC
	`, c.ID)
	if err != nil {
		return nil, fmt.Errorf("error selecting cart items: %w", err)
	}
	defer rows.Close()

	c.Items = []domain.CartItem{}
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(
			&it.ID,
			&it.ProductID,
			&it.VariantID,
			&it.Name,
			&it.SKU,
			&it.ImageURL,
			&it.Size,
			&it.Price,
			&it.Quantity,
			&it.Subtotal,
			&it.CustomizationID,
		); err != nil {
			return nil, fmt.Errorf("error scanning cart item: %w", err)
		}
		c.Items = append(c.Items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return &c, nil
}

func (r *cartRepo) GetByOwner(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.GetByOwner")
	defer span.End()

	span.SetAttributes(attribute.String("owner", owner.String()))

	query := `SELECT ` + cartColumns + ` FROM carts WHERE owner_kind = $1 AND owner_id = $2`

	cart, err := r.load(ctx, r.pool, query, owner)
	if err != nil && !errors.Is(err, ErrCartNotFound) {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to get cart", zap.String("owner", owner.String()), zap.Error(err))
	}

	return cart, err
}

func (r *cartRepo) FindLocked(ctx context.Context, tx pgx.Tx, owner domain.Owner) (*domain.Cart, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.FindLocked")
	defer span.End()

	span.SetAttributes(attribute.String("owner", owner.String()))

	query := `SELECT ` + cartColumns + ` FROM carts WHERE owner_kind = $1 AND owner_id = $2 FOR UPDATE`

	cart, err := r.load(ctx, tx, query, owner)
	if err != nil && !errors.Is(err, ErrCartNotFound) {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to lock cart", zap.String("owner", owner.String()), zap.Error(err))
	}

	return cart, err
}

func (r *cartRepo) LockByOwner(ctx context.Context, tx pgx.Tx, owner domain.Owner) (*domain.Cart, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.LockByOwner")
	defer span.End()

	span.SetAttributes(attribute.String("owner", owner.String()))

	insert := `
		INSERT INTO carts (owner_kind, owner_id)
		VALUES ($1, $2)
		ON CONFLICT (owner_kind, owner_id) DO NOTHING
	`

	if _, err := tx.Exec(ctx, insert, string(owner.Kind), owner.ID); err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to create cart", zap.String("owner", owner.String()), zap.Error(err))

		return nil, fmt.Errorf("error creating cart: %w", err)
	}

	return r.FindLocked(ctx, tx, owner)
}

// Save writes the cart totals and reconciles its items: lines without an id
// are inserted, known lines updated, and lines no longer present deleted.
func (r *cartRepo) Save(ctx context.Context, tx pgx.Tx, cart *domain.Cart) error {
	ctx, span := r.tracer.Start(ctx, "CartRepository.Save")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("cart_id", cart.ID),
		attribute.Int("items_count", len(cart.Items)),
		attribute.Int64("total_amount", cart.TotalAmount),
	)

	cart.Recalculate()

	keep := make([]int64, 0, len(cart.Items))
	for _, it := range cart.Items {
		if it.ID != 0 {
			keep = append(keep, it.ID)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND NOT (id = ANY($2))`, cart.ID, keep); err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to delete stale cart items", zap.Int64("cart_id", cart.ID), zap.Error(err))

		return fmt.Errorf("error deleting cart items: %w", err)
	}

	insert := `
		INSERT INTO cart_items (cart_id, product_id, variant_id, name, sku, image_url, size, price, quantity, subtotal, customization_id, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	update := `
		UPDATE cart_items
		SET name = $1, sku = $2, image_url = $3, size = $4, price = $5, quantity = $6, subtotal = $7, position = $8
		WHERE id = $9 AND cart_id = $10
	`

	for pos := range cart.Items {
		it := &cart.Items[pos]
		if it.ID == 0 {
			if err := tx.QueryRow(
				ctx,
				insert,
				cart.ID,
				it.ProductID,
				it.VariantID,
				it.Name,
				it.SKU,
				it.ImageURL,
				it.Size,
				it.Price,
				it.Quantity,
				it.Subtotal,
				it.CustomizationID,
				pos,
			).Scan(&it.ID); err != nil {
				span.RecordError(err)
				mylogger.Error(ctx, r.logger, "Failed to insert cart item", zap.Int64("cart_id", cart.ID), zap.Error(err))

				return fmt.Errorf("error inserting cart item: %w", err)
			}
			continue
		}

		if _, err := tx.Exec(
			ctx,
			update,
			it.Name,
			it.SKU,
			it.ImageURL,
			it.Size,
			it.Price,
			it.Quantity,
			it.Subtotal,
			pos,
			it.ID,
			cart.ID,
		); err != nil {
			span.RecordError(err)
			mylogger.Error(ctx, r.logger, "Failed to update cart item", zap.Int64("item_id", it.ID), zap.Error(err))

			return fmt.Errorf("error updating cart item: %w", err)
		}
	}

	query := `
		UPDATE carts
		SET total_amount = $1, total_items = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at
	`

	if err := tx.QueryRow(ctx, query, cart.TotalAmount, cart.TotalItems, cart.ID).Scan(&cart.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCartNotFound
		}

		span.RecordError(err)
		return fmt.Errorf("error updating cart totals: %w", err)
	}

	return nil
}

func (r *cartRepo) Delete(ctx context.Context, tx pgx.Tx, cartID int64) error {
	ctx, span := r.tracer.Start(ctx, "CartRepository.Delete")
	defer span.End()

	span.SetAttributes(attribute.Int64("cart_id", cartID))

	if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, cartID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("error deleting cart: %w", err)
	}

	return nil
}
