package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/repository"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type AddItemInput struct {
	ProductID       int64
	VariantID       *int64
	Quantity        int
	CustomizationID *int64
}

type ValidationResult struct {
	Cart   *domain.Cart                 `json:"cart"`
	Errors []domain.CartValidationError `json:"errors"`
}

// SyncResult is the cart a client should display. Synced is false when the
// local cart could not be stored and is shown as sent.
type SyncResult struct {
	Cart   *domain.Cart `json:"cart"`
	Synced bool         `json:"synced"`
}

type CartService interface {
	Get(ctx context.Context, owner domain.Owner) (*domain.Cart, error)
	AddItem(ctx context.Context, owner domain.Owner, input AddItemInput) (*domain.Cart, error)
	UpdateItem(ctx context.Context, owner domain.Owner, itemID int64, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, owner domain.Owner, itemID int64) (*domain.Cart, error)
	Clear(ctx context.Context, owner domain.Owner) (*domain.Cart, error)
	Validate(ctx context.Context, owner domain.Owner) (*ValidationResult, error)
	Sync(ctx context.Context, owner domain.Owner, local *domain.Cart) (*SyncResult, error)
	Merge(ctx context.Context, userID int64, guestID string) (*domain.Cart, error)
	NewGuest() domain.Owner
}

type cartService struct {
	pool        *pgxpool.Pool
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	logger      *zap.Logger
	tracer      trace.Tracer
}

func NewCartService(
	pool *pgxpool.Pool,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	logger *zap.Logger,
) CartService {
	return &cartService{
		pool:        pool,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		logger:      logger,
		tracer:      otel.Tracer("service/cart"),
	}
}

func (s *cartService) NewGuest() domain.Owner {
	return domain.NewGuestOwner()
}

// Get returns the owner's cart, or an empty one when none is stored yet.
func (s *cartService) Get(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	cart, err := s.cartRepo.GetByOwner(ctx, owner)
	if errors.Is(err, repository.ErrCartNotFound) {
		return domain.NewCart(owner), nil
	}
	if err != nil {
		return nil, err
	}

	cart.Recalculate()
	return cart, nil
}

// mutate runs fn on the locked cart and stores the result in one
// transaction. create controls whether a missing cart is created first.
func (s *cartService) mutate(
	ctx context.Context,
	owner domain.Owner,
	create bool,
	fn func(ctx context.Context, tx pgx.Tx, cart *domain.Cart) error,
) (*domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		mylogger.Error(ctx, s.logger, "Failed to begin transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, s.logger, tx)

	var cart *domain.Cart
	if create {
		cart, err = s.cartRepo.LockByOwner(ctx, tx, owner)
	} else {
		cart, err = s.cartRepo.FindLocked(ctx, tx, owner)
	}
	if err != nil {
		return nil, err
	}

	if err := fn(ctx, tx, cart); err != nil {
		return nil, err
	}

	if err := s.cartRepo.Save(ctx, tx, cart); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return cart, nil
}

func (s *cartService) AddItem(ctx context.Context, owner domain.Owner, input AddItemInput) (*domain.Cart, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.AddItem")
	defer span.End()

	span.SetAttributes(
		attribute.String("owner", owner.String()),
		attribute.Int64("product_id", input.ProductID),
		attribute.Int("quantity", input.Quantity),
	)

	if input.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	product, err := s.productRepo.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsAvailable() {
		return nil, ErrProductUnavailable
	}

	line, err := product.CartLine(input.VariantID, input.Quantity)
	if err != nil {
		return nil, err
	}
	line.CustomizationID = input.CustomizationID

	cart, err := s.mutate(ctx, owner, true, func(_ context.Context, _ pgx.Tx, cart *domain.Cart) error {
		return cart.AddItem(line)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	mylogger.Info(ctx, s.logger, "Item added to cart", zap.String("owner", owner.String()), zap.Int64("product_id", input.ProductID))

	return cart, nil
}

func (s *cartService) UpdateItem(ctx context.Context, owner domain.Owner, itemID int64, quantity int) (*domain.Cart, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.UpdateItem")
	defer span.End()

	span.SetAttributes(
		attribute.String("owner", owner.String()),
		attribute.Int64("item_id", itemID),
		attribute.Int("quantity", quantity),
	)

	cart, err := s.mutate(ctx, owner, false, func(_ context.Context, _ pgx.Tx, cart *domain.Cart) error {
		return cart.UpdateQuantity(itemID, quantity)
	})
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, domain.ErrCartItemNotFound
	}
	return cart, err
}

func (s *cartService) RemoveItem(ctx context.Context, owner domain.Owner, itemID int64) (*domain.Cart, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.RemoveItem")
	defer span.End()

	span.SetAttributes(
		attribute.String("owner", owner.String()),
		attribute.Int64("item_id", itemID),
	)

	cart, err := s.mutate(ctx, owner, false, func(_ context.Context, _ pgx.Tx, cart *domain.Cart) error {
		return cart.RemoveItem(itemID)
	})
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, domain.ErrCartItemNotFound
	}
	return cart, err
}

func (s *cartService) Clear(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.Clear")
	defer span.End()

	span.SetAttributes(attribute.String("owner", owner.String()))

	cart, err := s.mutate(ctx, owner, false, func(_ context.Context, _ pgx.Tx, cart *domain.Cart) error {
		cart.Clear()
		return nil
	})
	if errors.Is(err, repository.ErrCartNotFound) {
		return domain.NewCart(owner), nil
	}
	return cart, err
}

// Validate drops lines whose product or variant is gone and refreshes the
// snapshot of the rest. The cleaned cart is stored.
func (s *cartService) Validate(ctx context.Context, owner domain.Owner) (*ValidationResult, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.Validate")
	defer span.End()

	span.SetAttributes(attribute.String("owner", owner.String()))

	var verrs []domain.CartValidationError
	cart, err := s.mutate(ctx, owner, false, func(ctx context.Context, _ pgx.Tx, cart *domain.Cart) error {
		var err error
		verrs, err = revalidateCart(ctx, s.productRepo, cart)
		return err
	})
	if errors.Is(err, repository.ErrCartNotFound) {
		return &ValidationResult{Cart: domain.NewCart(owner), Errors: []domain.CartValidationError{}}, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if len(verrs) > 0 {
		mylogger.Info(ctx, s.logger, "Cart lines dropped during validation", zap.String("owner", owner.String()), zap.Int("dropped", len(verrs)))
	}

	return &ValidationResult{Cart: cart, Errors: verrs}, nil
}

// revalidateCart re-reads every product in cart and refreshes or drops its
// line.
func revalidateCart(ctx context.Context, productRepo repository.ProductRepository, cart *domain.Cart) ([]domain.CartValidationError, error) {
	products := make(map[int64]*domain.Product)
	var lookupErr error

	verrs := cart.Retain(func(item *domain.CartItem) *domain.CartValidationError {
		if lookupErr != nil {
			return nil
		}

		product, ok := products[item.ProductID]
		if !ok {
			var err error
			product, err = productRepo.GetByID(ctx, item.ProductID)
			if errors.Is(err, repository.ErrProductNotFound) {
				return &domain.CartValidationError{Reason: "product no longer exists"}
			}
			if err != nil {
				lookupErr = err
				return nil
			}
			products[item.ProductID] = product
		}

		if !product.IsAvailable() {
			return &domain.CartValidationError{Reason: "product is no longer available"}
		}

		fresh, err := product.CartLine(item.VariantID, item.Quantity)
		if err != nil {
			return &domain.CartValidationError{Reason: "selected size is no longer available"}
		}

		item.Name = fresh.Name
		item.SKU = fresh.SKU
		item.Size = fresh.Size
		item.ImageURL = fresh.ImageURL
		item.Price = fresh.Price
		return nil
	})
	if lookupErr != nil {
		return nil, lookupErr
	}

	return verrs, nil
}

// Sync replaces the server cart with the client's lines, priced from the
// catalog. When storing fails the client's cart is returned as is.
func (s *cartService) Sync(ctx context.Context, owner domain.Owner, local *domain.Cart) (*SyncResult, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.Sync")
	defer span.End()

	span.SetAttributes(attribute.String("owner", owner.String()))

	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if local == nil {
		local = domain.NewCart(owner)
	}
	local.Owner = owner

	server, err := s.mutate(ctx, owner, true, func(ctx context.Context, _ pgx.Tx, cart *domain.Cart) error {
		cart.Clear()
		for _, item := range local.Items {
			if item.Quantity <= 0 {
				continue
			}

			product, err := s.productRepo.GetByID(ctx, item.ProductID)
			if errors.Is(err, repository.ErrProductNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if !product.IsAvailable() {
				continue
			}

			line, err := product.CartLine(item.VariantID, item.Quantity)
			if err != nil {
				continue
			}
			line.CustomizationID = item.CustomizationID

			if err := cart.AddItem(line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		mylogger.Warn(ctx, s.logger, "Cart sync failed, keeping client cart", zap.String("owner", owner.String()), zap.Error(err))

		return &SyncResult{Cart: domain.ReconcileCart(local, nil), Synced: false}, nil
	}

	return &SyncResult{Cart: domain.ReconcileCart(local, server), Synced: true}, nil
}

// Merge folds the guest cart into the user's cart and deletes the guest cart.
func (s *cartService) Merge(ctx context.Context, userID int64, guestID string) (*domain.Cart, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.Merge")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.String("guest_id", guestID),
	)

	if guestID == "" {
		return nil, ErrGuestRequired
	}
	guest := domain.GuestOwner(guestID)
	if err := guest.Validate(); err != nil {
		return nil, err
	}
	user := domain.UserOwner(userID)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, s.logger, tx)

	guestCart, err := s.cartRepo.FindLocked(ctx, tx, guest)
	if errors.Is(err, repository.ErrCartNotFound) {
		return s.Get(ctx, user)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	userCart, err := s.cartRepo.LockByOwner(ctx, tx, user)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	userCart.Merge(guestCart)

	if err := s.cartRepo.Save(ctx, tx, userCart); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.cartRepo.Delete(ctx, tx, guestCart.ID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	mylogger.Info(ctx, s.logger, "Guest cart merged", zap.Int64("user_id", userID), zap.Int("items", len(guestCart.Items)))

	return userCart, nil
}
