package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ProductRepository interface {
	Create(ctx context.Context, tx pgx.Tx, product *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	GetFeatured(ctx context.Context) (*domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error)
	Update(ctx context.Context, id int64, input *domain.UpdateProductInput) error
	SoftDelete(ctx context.Context, id int64) error

	ClearFeatured(ctx context.Context, tx pgx.Tx) error
	SetFeatured(ctx context.Context, tx pgx.Tx, id int64, featured bool) error

	AddVariant(ctx context.Context, tx pgx.Tx, variant *domain.ProductVariant) error
	DeleteVariant(ctx context.Context, variantID int64) (int64, error)

	CountImages(ctx context.Context, tx pgx.Tx, productID int64) (int, error)
	AddImage(ctx context.Context, tx pgx.Tx, image *domain.ProductImage) error
	ImageProductID(ctx context.Context, tx pgx.Tx, imageID int64) (int64, error)
	ClearPrimaryImage(ctx context.Context, tx pgx.Tx, productID int64) error
	MarkPrimaryImage(ctx context.Context, tx pgx.Tx, imageID int64) error
}

type productRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewProductRepository(pool *pgxpool.Pool, logger *zap.Logger) ProductRepository {
	return &productRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("repository/product_repository"),
	}
}

const productColumns = `id, name, slug, description, category, material, base_price,
		is_featured, is_active, created_at, updated_at, deleted_at`

func scanProduct(row pgx.Row, p *domain.Product) error {
	return row.Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Category,
		&p.Material,
		&p.BasePrice,
		&p.IsFeatured,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.DeletedAt,
	)
}

func (r *productRepo) Create(ctx context.Context, tx pgx.Tx, product *domain.Product) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("name", product.Name),
		attribute.String("slug", product.Slug),
	)

	query := `
		INSERT INTO products (name, slug, description, category, material, base_price, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING id, is_active, created_at, updated_at
	`

	err := tx.QueryRow(
		ctx,
		query,
		product.Name,
		product.Slug,
		product.Description,
		product.Category,
		product.Material,
		product.BasePrice,
	).Scan(&product.ID, &product.IsActive, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "products_slug_key") {
			return ErrSlugTaken
		}

		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Error creating product", zap.Error(err))

		return fmt.Errorf("error creating product: %w", err)
	}

	return nil
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.GetByID")
	defer span.End()

	span.SetAttributes(attribute.Int64("product_id", id))

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND deleted_at IS NULL`

	return r.getOne(ctx, span, query, id)
}

func (r *productRepo) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.GetBySlug")
	defer span.End()

	span.SetAttributes(attribute.String("slug", slug))

	query := `SELECT ` + productColumns + ` FROM products WHERE slug = $1 AND is_active AND deleted_at IS NULL`

	return r.getOne(ctx, span, query, slug)
}

func (r *productRepo) GetFeatured(ctx context.Context) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.GetFeatured")
	defer span.End()

	query := `SELECT ` + productColumns + ` FROM products WHERE is_featured AND is_active AND deleted_at IS NULL LIMIT 1`

	return r.getOne(ctx, span, query)
}

func (r *productRepo) getOne(ctx context.Context, span trace.Span, query string, args ...any) (*domain.Product, error) {
	var p domain.Product
	if err := scanProduct(r.pool.QueryRow(ctx, query, args...), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}

		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Error getting product", zap.Error(err))

		return nil, fmt.Errorf("error getting product: %w", err)
	}

	products := []domain.Product{p}
	if err := r.loadChildren(ctx, products); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return &products[0], nil
}

// loadChildren fills images and variants for products in two queries.
func (r *productRepo) loadChildren(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]int64, len(products))
	index := make(map[int64]int, len(products))
	for i := range products {
		ids[i] = products[i].ID
		index[products[i].ID] = i
		products[i].Images = []domain.ProductImage{}
		products[i].Variants = []domain.ProductVariant{}
	}

	imgRows, err := r.pool.Query(ctx, `
		SELECT id, product_id, url, alt, is_primary, position
		FROM product_images
		WHERE product_id = ANY($1)
		ORDER BY position ASC, id ASC
	`, ids)
	if err != nil {
		return fmt.Errorf("error selecting product images: %w", err)
	}
	defer imgRows.Close()

	for imgRows.Next() {
		var img domain.ProductImage
		if err := imgRows.Scan(&img.ID, &img.ProductID, &img.URL, &img.Alt, &img.IsPrimary, &img.Position); err != nil {
			return fmt.Errorf("error scanning product image: %w", err)
		}
		i := index[img.ProductID]
		products[i].Images = append(products[i].Images, img)
	}
	if err := imgRows.Err(); err != nil {
		return fmt.Errorf("rows iteration error: %w", err)
	}

	varRows, err := r.pool.Query(ctx, `
		SELECT id, product_id, size, sku, price, stock, is_active
		FROM product_variants
		WHERE product_id = ANY($1)
		ORDER BY price ASC, id ASC
	`, ids)
	if err != nil {
		return fmt.Errorf("error selecting product variants: %w", err)
	}
	defer varRows.Close()

	for varRows.Next() {
		var v domain.ProductVariant
		if err := varRows.Scan(&v.ID, &v.ProductID, &v.Size, &v.SKU, &v.Price, &v.Stock, &v.IsActive); err != nil {
			return fmt.Errorf("error scanning product variant: %w", err)
		}
		i := index[v.ProductID]
		products[i].Variants = append(products[i].Variants, v)
	}

	return varRows.Err()
}

func (r *productRepo) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.List")
	defer span.End()

	span.SetAttributes(
		attribute.Int("limit", filter.Limit),
		attribute.Int("offset", filter.Offset),
		attribute.String("category", filter.Category),
		attribute.String("search", filter.Search),
	)

	where := []string{"deleted_at IS NULL", "is_active"}
	var args []any
	argID := 1

	if filter.Category != "" {
		where = append(where, fmt.Sprintf("category = $%d", argID))
		args = append(args, filter.Category)
		argID++
	}

	if filter.Material != "" {
		where = append(where, fmt.Sprintf("material = $%d", argID))
		args = append(args, filter.Material)
		argID++
	}

	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", argID, argID))
		args = append(args, "%"+filter.Search+"%")
		argID++
	}

	if filter.Featured != nil {
		where = append(where, fmt.Sprintf("is_featured = $%d", argID))
		args = append(args, *filter.Featured)
		argID++
	}

	whereSQL := " WHERE " + strings.Join(where, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+whereSQL, args...).Scan(&total); err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to count products", zap.Error(err))

		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := `SELECT ` + productColumns + ` FROM products` + whereSQL +
		fmt.Sprintf(" ORDER BY is_featured DESC, created_at DESC LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(
			ctx,
			r.logger,
			"Error getting products",
			zap.String("search", filter.Search),
			zap.Int("limit", filter.Limit),
			zap.Int("offset", filter.Offset),
			zap.Error(err),
		)

		return nil, 0, fmt.Errorf("error selecting products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			span.RecordError(err)
			return nil, 0, fmt.Errorf("error scanning rows: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}
	rows.Close()

	if err := r.loadChildren(ctx, products); err != nil {
		span.RecordError(err)
		return nil, 0, err
	}

	return products, total, nil
}

func (r *productRepo) Update(ctx context.Context, id int64, input *domain.UpdateProductInput) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Update")
	defer span.End()

	span.SetAttributes(attribute.Int64("product_id", id))

	var updates []string
	var args []any
	argID := 1

	set := func(column string, value any) {
		updates = append(updates, fmt.Sprintf("%s = $%d", column, argID))
		args = append(args, value)
		argID++
	}

	if input.Name != nil {
		set("name", *input.Name)
	}
	if input.Description != nil {
		set("description", *input.Description)
	}
	if input.Category != nil {
		set("category", *input.Category)
	}
	if input.Material != nil {
		set("material", *input.Material)
	}
	if input.BasePrice != nil {
		set("base_price", *input.BasePrice)
	}
	if input.IsActive != nil {
		set("is_active", *input.IsActive)
	}

	if len(updates) == 0 {
		return nil
	}

	updates = append(updates, "updated_at = NOW()")

	query := "UPDATE products SET " + strings.Join(updates, ", ") +
		fmt.Sprintf(" WHERE id = $%d AND deleted_at IS NULL", argID)
	args = append(args, id)

	commandTag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to update product", zap.Int64("product_id", id), zap.Error(err))

		return fmt.Errorf("error updating product: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}

func (r *productRepo) SoftDelete(ctx context.Context, id int64) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.SoftDelete")
	defer span.End()

	span.SetAttributes(attribute.Int64("product_id", id))

	query := `
		UPDATE products
		SET deleted_at = NOW(), is_active = FALSE, is_featured = FALSE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	commandTag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Error deleting product", zap.Int64("product_id", id), zap.Error(err))

		return fmt.Errorf("error deleting product: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}

func (r *productRepo) ClearFeatured(ctx context.Context, tx pgx.Tx) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.ClearFeatured")
	defer span.End()

	if _, err := tx.Exec(ctx, `UPDATE products SET is_featured = FALSE, updated_at = NOW() WHERE is_featured`); err != nil {
		span.RecordError(err)
		return fmt.Errorf("error clearing featured product: %w", err)
	}

	return nil
}

func (r *productRepo) SetFeatured(ctx context.Context, tx pgx.Tx, id int64, featured bool) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.SetFeatured")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product_id", id),
		attribute.Bool("featured", featured),
	)

	query := `
		UPDATE products
		SET is_featured = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`

	commandTag, err := tx.Exec(ctx, query, featured, id)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to set featured", zap.Int64("product_id", id), zap.Error(err))

		return fmt.Errorf("error setting featured: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}

func (r *productRepo) AddVariant(ctx context.Context, tx pgx.Tx, variant *domain.ProductVariant) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.AddVariant")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product_id", variant.ProductID),
		attribute.String("sku", variant.SKU),
	)

	query := `
		INSERT INTO product_variants (product_id, size, sku, price, stock, is_active)
		SELECT $1::bigint, $2::text, $3::text, $4::bigint, $5::int, TRUE
		WHERE EXISTS (SELECT 1 FROM products WHERE id = $1 AND deleted_at IS NULL)
		RETURNING id, is_active
	`

	err := tx.QueryRow(
		ctx,
		query,
		variant.ProductID,
		variant.Size,
		variant.SKU,
		variant.Price,
		variant.Stock,
	).Scan(&variant.ID, &variant.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProductNotFound
		}
		if isUniqueViolation(err, "product_variants_sku_key") {
			return ErrSKUTaken
		}

		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to add variant", zap.Error(err))

		return fmt.Errorf("error adding variant: %w", err)
	}

	return nil
}

func (r *productRepo) DeleteVariant(ctx context.Context, variantID int64) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.DeleteVariant")
	defer span.End()

	span.SetAttributes(attribute.Int64("variant_id", variantID))

	var productID int64
	err := r.pool.QueryRow(ctx, `DELETE FROM product_variants WHERE id = $1 RETURNING product_id`, variantID).Scan(&productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrVariantNotFound
		}

		span.RecordError(err)
		return 0, fmt.Errorf("error deleting variant: %w", err)
	}

	return productID, nil
}

func (r *productRepo) CountImages(ctx context.Context, tx pgx.Tx, productID int64) (int, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.CountImages")
	defer span.End()

	span.SetAttributes(attribute.Int64("product_id", productID))

	// Locks the product so concurrent uploads agree on which image is first.
	var locked int64
	err := tx.QueryRow(ctx, `SELECT id FROM products WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, productID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrProductNotFound
		}
		span.RecordError(err)
		return 0, fmt.Errorf("error locking product: %w", err)
	}

	var count int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM product_images WHERE product_id = $1`, productID).Scan(&count); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("error counting images: %w", err)
	}

	return count, nil
}

func (r *productRepo) AddImage(ctx context.Context, tx pgx.Tx, image *domain.ProductImage) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.AddImage")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product_id", image.ProductID),
		attribute.Bool("is_primary", image.IsPrimary),
	)

	query := `
		INSERT INTO product_images (product_id, url, alt, is_primary, position)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := tx.QueryRow(ctx, query, image.ProductID, image.URL, image.Alt, image.IsPrimary, image.Position).Scan(&image.ID)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to add image", zap.Error(err))

		return fmt.Errorf("error adding image: %w", err)
	}

	return nil
}

func (r *productRepo) ImageProductID(ctx context.Context, tx pgx.Tx, imageID int64) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.ImageProductID")
	defer span.End()

	span.SetAttributes(attribute.Int64("image_id", imageID))

	var productID int64
	err := tx.QueryRow(ctx, `SELECT product_id FROM product_images WHERE id = $1 FOR UPDATE`, imageID).Scan(&productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrImageNotFound
		}
		span.RecordError(err)
		return 0, fmt.Errorf("error getting image: %w", err)
	}

	return productID, nil
}

func (r *productRepo) ClearPrimaryImage(ctx context.Context, tx pgx.Tx, productID int64) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.ClearPrimaryImage")
	defer span.End()

	span.SetAttributes(attribute.Int64("product_id", productID))

	if _, err := tx.Exec(ctx, `UPDATE product_images SET is_primary = FALSE WHERE product_id = $1 AND is_primary`, productID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("error clearing primary image: %w", err)
	}

	return nil
}

func (r *productRepo) MarkPrimaryImage(ctx context.Context, tx pgx.Tx, imageID int64) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.MarkPrimaryImage")
	defer span.End()

	span.SetAttributes(attribute.Int64("image_id", imageID))

	commandTag, err := tx.Exec(ctx, `UPDATE product_images SET is_primary = TRUE WHERE id = $1`, imageID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("error setting primary image: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrImageNotFound
	}

	return nil
}
