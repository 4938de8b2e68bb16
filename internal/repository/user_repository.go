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

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	UpdateProfile(ctx context.Context, id int64, name, phone, passwordHash *string) (*domain.User, error)

	ListAddresses(ctx context.Context, userID int64) ([]domain.Address, error)
	GetAddress(ctx context.Context, userID, addressID int64) (*domain.Address, error)
	CountAddresses(ctx context.Context, tx pgx.Tx, userID int64) (int, error)
	AddAddress(ctx context.Context, tx pgx.Tx, addr *domain.Address) error
	ClearDefaultAddress(ctx context.Context, tx pgx.Tx, userID int64) error
	SetDefaultAddress(ctx context.Context, tx pgx.Tx, userID, addressID int64) error
	DeleteAddress(ctx context.Context, userID, addressID int64) error
}

type userRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewUserRepository(pool *pgxpool.Pool, logger *zap.Logger) UserRepository {
	return &userRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("repository/user_repository"),
	}
}

const userColumns = `id, email, password_hash, name, phone, role, is_active, created_at, updated_at`

func scanUser(row pgx.Row, u *domain.User) error {
	var role string
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Password,
		&u.Name,
		&u.Phone,
		&role,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return err
	}
	u.Role = domain.Role(role)
	return nil
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	ctx, span := r.tracer.Start(ctx, "UserRepository.Create")
	defer span.End()

	span.SetAttributes(attribute.String("email", user.Email))

	query := `
		INSERT INTO users (email, password_hash, name, phone, role, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING id, is_active, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx,
		query,
		user.Email,
		user.Password,
		user.Name,
		user.Phone,
		string(user.Role),
	).Scan(&user.ID, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			mylogger.Warn(ctx, r.logger, "User already exists", zap.String("email", user.Email))
			return ErrUserAlreadyExists
		}

		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to create user", zap.Error(err))

		return fmt.Errorf("error creating user: %w", err)
	}

	return nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := r.tracer.Start(ctx, "UserRepository.GetByEmail")
	defer span.End()

	span.SetAttributes(attribute.String("email", email))

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	var u domain.User
	if err := scanUser(r.pool.QueryRow(ctx, query, email), &u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}

		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to get user by email", zap.Error(err))

		return nil, fmt.Errorf("error getting user: %w", err)
	}

	return &u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	ctx, span := r.tracer.Start(ctx, "UserRepository.GetByID")
	defer span.End()

	span.SetAttributes(attribute.Int64("user_id", id))

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var u domain.User
	if err := scanUser(r.pool.QueryRow(ctx, query, id), &u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}

		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to get user by id", zap.Int64("user_id", id), zap.Error(err))

		return nil, fmt.Errorf("error getting user: %w", err)
	}

	return &u, nil
}

func (r *userRepo) UpdateProfile(ctx context.Context, id int64, name, phone, passwordHash *string) (*domain.User, error) {
	ctx, span := r.tracer.Start(ctx, "UserRepository.UpdateProfile")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", id),
		attribute.Bool("password_changed", passwordHash != nil),
	)

	query := `
		UPDATE users
		SET name = COALESCE($1, name),
			phone = COALESCE($2, phone),
			password_hash = COALESCE($3, password_hash),
			updated_at = NOW()
		WHERE id = $4
		RETURNING ` + userColumns

	var u domain.User
	if err := scanUser(r.pool.QueryRow(ctx, query, name, phone, passwordHash, id), &u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}

		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to update profile", zap.Int64("user_id", id), zap.Error(err))

		return nil, fmt.Errorf("error updating user: %w", err)
	}

	return &u, nil
}

const addressColumns = `id, user_id, full_name, phone, line1, line2, city, state, postal_code, country, is_default, created_at`

func scanAddress(row pgx.Row, a *domain.Address) error {
	return row.Scan(
		&a.ID,
		&a.UserID,
		&a.FullName,
		&a.Phone,
		&a.Line1,
		&a.Line2,
		&a.City,
		&a.State,
		&a.PostalCode,
		&a.Country,
		&a.IsDefault,
		&a.CreatedAt,
	)
}

func (r *userRepo) ListAddresses(ctx context.Context, userID int64) ([]domain.Address, error) {
	ctx, span := r.tracer.Start(ctx, "UserRepository.ListAddresses")
	defer span.End()

	span.SetAttributes(attribute.Int64("user_id", userID))

	query := `
		SELECT ` + addressColumns + `
		FROM user_addresses
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to list addresses", zap.Int64("user_id", userID), zap.Error(err))

		return nil, fmt.Errorf("error listing addresses: %w", err)
	}
	defer rows.Close()

	result := []domain.Address{}
	for rows.Next() {
		var a domain.Address
		if err := scanAddress(rows, &a); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("error scanning address: %w", err)
		}
		result = append(result, a)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

func (r *userRepo) GetAddress(ctx context.Context, userID, addressID int64) (*domain.Address, error) {
	ctx, span := r.tracer.Start(ctx, "UserRepository.GetAddress")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("address_id", addressID),
	)

	query := `SELECT ` + addressColumns + ` FROM user_addresses WHERE id = $1 AND user_id = $2`

	var a domain.Address
	if err := scanAddress(r.pool.QueryRow(ctx, query, addressID, userID), &a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAddressNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("error getting address: %w", err)
	}

	return &a, nil
}

func (r *userRepo) CountAddresses(ctx context.Context, tx pgx.Tx, userID int64) (int, error) {
	ctx, span := r.tracer.Start(ctx, "UserRepository.CountAddresses")
	defer span.End()

	// Lock the user row so two concurrent first addresses cannot both become
	// the default.
	if _, err := tx.Exec(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("error locking user: %w", err)
	}

	var count int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM user_addresses WHERE user_id = $1`, userID).Scan(&count); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("error counting addresses: %w", err)
	}

	return count, nil
}

func (r *userRepo) AddAddress(ctx context.Context, tx pgx.Tx, addr *domain.Address) error {
	ctx, span := r.tracer.Start(ctx, "UserRepository.AddAddress")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", addr.UserID),
		attribute.Bool("is_default", addr.IsDefault),
	)

	query := `
		INSERT INTO user_addresses (user_id, full_name, phone, line1, line2, city, state, postal_code, country, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	err := tx.QueryRow(
		ctx,
		query,
		addr.UserID,
		addr.FullName,
		addr.Phone,
		addr.Line1,
		addr.Line2,
		addr.City,
		addr.State,
		addr.PostalCode,
		addr.Country,
		addr.IsDefault,
	).Scan(&addr.ID, &addr.CreatedAt)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to add address", zap.Int64("user_id", addr.UserID), zap.Error(err))

		return fmt.Errorf("error adding address: %w", err)
	}

	return nil
}

func (r *userRepo) ClearDefaultAddress(ctx context.Context, tx pgx.Tx, userID int64) error {
	ctx, span := r.tracer.Start(ctx, "UserRepository.ClearDefaultAddress")
	defer span.End()

	span.SetAttributes(attribute.Int64("user_id", userID))

	query := `UPDATE user_addresses SET is_default = FALSE WHERE user_id = $1 AND is_default`

	if _, err := tx.Exec(ctx, query, userID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("error clearing default address: %w", err)
	}

	return nil
}

func (r *userRepo) SetDefaultAddress(ctx context.Context, tx pgx.Tx, userID, addressID int64) error {
	ctx, span := r.tracer.Start(ctx, "UserRepository.SetDefaultAddress")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("address_id", addressID),
	)

	query := `UPDATE user_addresses SET is_default = TRUE WHERE id = $1 AND user_id = $2`

	commandTag, err := tx.Exec(ctx, query, addressID, userID)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to set default address", zap.Error(err))

		return fmt.Errorf("error setting default address: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrAddressNotFound
	}

	return nil
}

func (r *userRepo) DeleteAddress(ctx context.Context, userID, addressID int64) error {
	ctx, span := r.tracer.Start(ctx, "UserRepository.DeleteAddress")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("address_id", addressID),
	)

	commandTag, err := r.pool.Exec(ctx, `DELETE FROM user_addresses WHERE id = $1 AND user_id = $2`, addressID, userID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("error deleting address: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrAddressNotFound
	}

	return nil
}
