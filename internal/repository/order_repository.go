package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxOrderNumberAttempts = 5

type OrderFilter struct {
	UserID *int64
	Status domain.OrderStatus
	Limit  int
	Offset int
}

type OrderRepository interface {
	Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	LockByID(ctx context.Context, tx pgx.Tx, id int64) (*domain.Order, error)
	LockByRazorpayOrderID(ctx context.Context, tx pgx.Tx, razorpayOrderID string) (*domain.Order, error)
	GetByAWB(ctx context.Context, awb string) (*domain.Order, error)
	LockByAWB(ctx context.Context, tx pgx.Tx, awb string) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int64, error)
	Update(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	SoftDelete(ctx context.Context, id int64) error
}

type orderRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func NewOrderRepository(pool *pgxpool.Pool, logger *zap.Logger) OrderRepository {
	return &orderRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("repository/order_repository"),
		now:    time.Now,
	}
}

const orderColumns = `id, order_number, user_id, status, payment_status, payment_method,
		subtotal, tax_amount, shipping_amount, discount_amount, total_amount, coupon_id, coupon_code,
		shipping_name, shipping_phone, shipping_line1, shipping_line2, shipping_city, shipping_state,
		shipping_postal, shipping_country, razorpay_order_id, razorpay_payment_id, shipment_id,
		awb_code, courier, tracking_url, notes, confirmed_at, processing_at, shipped_at, delivered_at,
		cancelled_at, paid_at, created_at, updated_at, deleted_at`

func scanOrder(row pgx.Row, o *domain.Order) error {
	var status, paymentStatus, paymentMethod string
	if err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&status,
		&paymentStatus,
		&paymentMethod,
		&o.Subtotal,
		&o.TaxAmount,
		&o.ShippingAmount,
		&o.DiscountAmount,
		&o.TotalAmount,
		&o.CouponID,
		&o.CouponCode,
		&o.Shipping.Name,
		&o.Shipping.Phone,
		&o.Shipping.Line1,
		&o.Shipping.Line2,
		&o.Shipping.City,
		&o.Shipping.State,
		&o.Shipping.PostalCode,
		&o.Shipping.Country,
		&o.RazorpayOrderID,
		&o.RazorpayPaymentID,
		&o.ShipmentID,
		&o.AWBCode,
		&o.Courier,
		&o.TrackingURL,
		&o.Notes,
		&o.ConfirmedAt,
		&o.ProcessingAt,
		&o.ShippedAt,
		&o.DeliveredAt,
		&o.CancelledAt,
		&o.PaidAt,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.DeletedAt,
	); err != nil {
		return err
	}

	o.Status = domain.OrderStatus(status)
	o.PaymentStatus = domain.PaymentStatus(paymentStatus)
	o.PaymentMethod = domain.PaymentMethod(paymentMethod)
	return nil
}

// Create inserts the order and its items. A generated order number that
// collides is regenerated inside a savepoint, up to five attempts.
func (r *orderRepo) Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", order.UserID),
		attribute.Int("items_count", len(order.Items)),
		attribute.Int64("total_amount", order.TotalAmount),
	)

	generated := order.OrderNumber == ""

	for attempt := 1; ; attempt++ {
		if generated {
			order.OrderNumber = domain.GenerateOrderNumber(r.now())
		}

		err := r.insertOrder(ctx, tx, order)
		if err == nil {
			break
		}

		if isUniqueViolation(err, "orders_order_number_key") && generated && attempt < maxOrderNumberAttempts {
			mylogger.Warn(
				ctx,
				r.logger,
				"Order number collision, regenerating",
				zap.String("order_number", order.OrderNumber),
				zap.Int("attempt", attempt),
			)
			continue
		}

		span.RecordError(err)

		if isUniqueViolation(err, "orders_order_number_key") {
			return ErrOrderNumberExhausted
		}

		mylogger.Error(ctx, r.logger, "Failed to insert order", zap.Error(err))
		return fmt.Errorf("failed to insert order: %w", err)
	}

	span.SetAttributes(attribute.String("order_number", order.OrderNumber))

	queryItem := `
		INSERT INTO order_items (order_id, product_id, variant_id, name, sku, size, image_url, price, quantity, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if err := tx.QueryRow(
			ctx,
			queryItem,
			order.ID,
			item.ProductID,
			item.VariantID,
			item.Name,
			item.SKU,
			item.Size,
			item.ImageURL,
			item.Price,
			item.Quantity,
			item.Subtotal,
		).Scan(&item.ID); err != nil {
			span.RecordError(err)
			mylogger.Error(ctx, r.logger, "Failed to insert item", zap.Int64("order_id", order.ID), zap.Error(err))

			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return nil
}

func (r *orderRepo) insertOrder(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO orders (
			order_number, user_id, status, payment_status, payment_method,
			subtotal, tax_amount, shipping_amount, discount_amount, total_amount,
			coupon_id, coupon_code, shipping_name, shipping_phone, shipping_line1,
			shipping_line2, shipping_city, shipping_state, shipping_postal, shipping_country, notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING id, created_at, updated_at
	`

	err = sp.QueryRow(
		ctx,
		query,
		order.OrderNumber,
		order.UserID,
		string(order.Status),
		string(order.PaymentStatus),
		string(order.PaymentMethod),
		order.Subtotal,
		order.TaxAmount,
		order.ShippingAmount,
		order.DiscountAmount,
		order.TotalAmount,
		order.CouponID,
		order.CouponCode,
		order.Shipping.Name,
		order.Shipping.Phone,
		order.Shipping.Line1,
		order.Shipping.Line2,
		order.Shipping.City,
		order.Shipping.State,
		order.Shipping.PostalCode,
		order.Shipping.Country,
		order.Notes,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		_ = sp.Rollback(ctx)
		return err
	}

	return sp.Commit(ctx)
}

func (r *orderRepo) loadItems(ctx context.Context, q querier, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = i
		orders[i].Items = []domain.OrderItem{}
	}

	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, variant_id, name, sku, size, image_url, price, quantity, subtotal
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id ASC
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query order_items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(
			&it.ID,
			&it.OrderID,
			&it.ProductID,
			&it.VariantID,
			&it.Name,
			&it.SKU,
			&it.Size,
			&it.ImageURL,
			&it.Price,
			&it.Quantity,
			&it.Subtotal,
		); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		i := index[it.OrderID]
		orders[i].Items = append(orders[i].Items, it)
	}

	return rows.Err()
}

func (r *orderRepo) getOne(ctx context.Context, span trace.Span, q querier, query string, arg any) (*domain.Order, error) {
	var o domain.Order
	if err := scanOrder(q.QueryRow(ctx, query, arg), &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to get order", zap.Error(err))

		return nil, fmt.Errorf("error getting order: %w", err)
	}

	orders := []domain.Order{o}
	if err := r.loadItems(ctx, q, orders); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return &orders[0], nil
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetByID")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", id))

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND deleted_at IS NULL`

	return r.getOne(ctx, span, r.pool, query, id)
}

func (r *orderRepo) LockByID(ctx context.Context, tx pgx.Tx, id int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.LockByID")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", id))

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`

	return r.getOne(ctx, span, tx, query, id)
}

func (r *orderRepo) LockByRazorpayOrderID(ctx context.Context, tx pgx.Tx, razorpayOrderID string) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.LockByRazorpayOrderID")
	defer span.End()

	span.SetAttributes(attribute.String("razorpay_order_id", razorpayOrderID))

	query := `SELECT ` + orderColumns + ` FROM orders WHERE razorpay_order_id = $1 AND deleted_at IS NULL FOR UPDATE`

	return r.getOne(ctx, span, tx, query, razorpayOrderID)
}

func (r *orderRepo) GetByAWB(ctx context.Context, awb string) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetByAWB")
	defer span.End()

	span.SetAttributes(attribute.String("awb_code", awb))

	query := `SELECT ` + orderColumns + ` FROM orders WHERE awb_code = $1 AND deleted_at IS NULL`

	return r.getOne(ctx, span, r.pool, query, awb)
}

func (r *orderRepo) LockByAWB(ctx context.Context, tx pgx.Tx, awb string) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.LockByAWB")
	defer span.End()

	span.SetAttributes(attribute.String("awb_code", awb))

	query := `SELECT ` + orderColumns + ` FROM orders WHERE awb_code = $1 AND deleted_at IS NULL FOR UPDATE`

	return r.getOne(ctx, span, tx, query, awb)
}

func (r *orderRepo) List(ctx context.Context, filter OrderFilter) ([]domain.Order, int64, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.List")
	defer span.End()

	span.SetAttributes(
		attribute.Int("limit", filter.Limit),
		attribute.Int("offset", filter.Offset),
		attribute.String("status", string(filter.Status)),
	)

	where := " WHERE deleted_at IS NULL"
	var args []any
	argID := 1

	if filter.UserID != nil {
		where += fmt.Sprintf(" AND user_id = $%d", argID)
		args = append(args, *filter.UserID)
		argID++
	}

	if filter.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, string(filter.Status))
		argID++
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to count orders", zap.Error(err))

		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := `SELECT ` + orderColumns + ` FROM orders` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to query orders", zap.Error(err))

		return nil, 0, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		var o domain.Order
		if err := scanOrder(rows, &o); err != nil {
			span.RecordError(err)
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}
	rows.Close()

	if err := r.loadItems(ctx, r.pool, orders); err != nil {
		span.RecordError(err)
		return nil, 0, err
	}

	return orders, total, nil
}

// Update persists lifecycle, payment and shipping fields. Items and amounts
// are fixed at creation.
func (r *orderRepo) Update(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Update")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", order.ID),
		attribute.String("status", string(order.Status)),
		attribute.String("payment_status", string(order.PaymentStatus)),
	)

	query := `
		UPDATE orders
		SET status = $1, payment_status = $2,
			razorpay_order_id = $3, razorpay_payment_id = $4,
			shipment_id = $5, awb_code = $6, courier = $7, tracking_url = $8,
			confirmed_at = $9, processing_at = $10, shipped_at = $11,
			delivered_at = $12, cancelled_at = $13, paid_at = $14,
			updated_at = NOW()
		WHERE id = $15 AND deleted_at IS NULL
		RETURNING updated_at
	`

	err := tx.QueryRow(
		ctx,
		query,
		string(order.Status),
		string(order.PaymentStatus),
		order.RazorpayOrderID,
		order.RazorpayPaymentID,
		order.ShipmentID,
		order.AWBCode,
		order.Courier,
		order.TrackingURL,
		order.ConfirmedAt,
		order.ProcessingAt,
		order.ShippedAt,
		order.DeliveredAt,
		order.CancelledAt,
		order.PaidAt,
		order.ID,
	).Scan(&order.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			mylogger.Warn(ctx, r.logger, "Order not found", zap.Int64("order_id", order.ID))
			return ErrOrderNotFound
		}

		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to update order", zap.Int64("order_id", order.ID), zap.Error(err))

		return fmt.Errorf("failed to update order: %w", err)
	}

	return nil
}

func (r *orderRepo) SoftDelete(ctx context.Context, id int64) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.SoftDelete")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", id))

	commandTag, err := r.pool.Exec(ctx, `UPDATE orders SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to delete order", zap.Int64("order_id", id), zap.Error(err))

		return fmt.Errorf("failed to delete order: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}
