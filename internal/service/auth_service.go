package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/domain"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/repository"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/utils"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Me(ctx context.Context, userID int64) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID int64, input *domain.UpdateProfileInput) (*domain.User, error)

	ListAddresses(ctx context.Context, userID int64) ([]domain.Address, error)
	AddAddress(ctx context.Context, userID int64, addr *domain.Address) (*domain.Address, error)
	SetDefaultAddress(ctx context.Context, userID, addressID int64) error
	DeleteAddress(ctx context.Context, userID, addressID int64) error
}

type AuthConfig struct {
	Secret   string
	TokenTTL time.Duration
}

type authService struct {
	pool     *pgxpool.Pool
	userRepo repository.UserRepository
	cfg      AuthConfig
	logger   *zap.Logger
	tracer   trace.Tracer
}

func NewAuthService(
	pool *pgxpool.Pool,
	userRepo repository.UserRepository,
	cfg AuthConfig,
	logger *zap.Logger,
) AuthService {
	return &authService{
		pool:     pool,
		userRepo: userRepo,
		cfg:      cfg,
		logger:   logger,
		tracer:   otel.Tracer("service/auth"),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Register")
	defer span.End()

	email := normalizeEmail(input.Email)
	span.SetAttributes(attribute.String("email", email))

	if err := utils.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, s.logger, "Error hashing password", zap.Error(err))

		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &domain.User{
		Email:    email,
		Password: string(hashed),
		Name:     strings.TrimSpace(input.Name),
		Phone:    strings.TrimSpace(input.Phone),
		Role:     domain.RoleCustomer,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if !errors.Is(err, repository.ErrUserAlreadyExists) {
			span.RecordError(err)
		}
		return nil, err
	}

	token, err := s.issueToken(ctx, user)
	if err != nil {
		return nil, err
	}

	mylogger.Info(ctx, s.logger, "User registered", zap.Int64("user_id", user.ID))

	return &AuthResult{Token: token, User: user}, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	email = normalizeEmail(email)
	span.SetAttributes(attribute.String("email", email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			mylogger.Warn(ctx, s.logger, "Login for unknown email", zap.String("email", email))
			return nil, ErrInvalidCredentials
		}
		span.RecordError(err)
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		mylogger.Warn(ctx, s.logger, "Invalid password", zap.Int64("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	token, err := s.issueToken(ctx, user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{Token: token, User: user}, nil
}

func (s *authService) issueToken(ctx context.Context, user *domain.User) (string, error) {
	token, err := utils.GenerateToken(s.cfg.Secret, s.cfg.TokenTTL, user.ID, string(user.Role))
	if err != nil {
		mylogger.Error(ctx, s.logger, "Error generating token", zap.Int64("user_id", user.ID), zap.Error(err))
		return "", fmt.Errorf("error generating token: %w", err)
	}
	return token, nil
}

func (s *authService) Me(ctx context.Context, userID int64) (*domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Me")
	defer span.End()

	span.SetAttributes(attribute.Int64("user_id", userID))

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	addresses, err := s.userRepo.ListAddresses(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Addresses = addresses

	return user, nil
}

// UpdateProfile rehashes the password only when a new one is supplied.
func (s *authService) UpdateProfile(ctx context.Context, userID int64, input *domain.UpdateProfileInput) (*domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.UpdateProfile")
	defer span.End()

	span.SetAttributes(attribute.Int64("user_id", userID))

	var passwordHash *string
	if input.Password != nil && *input.Password != "" {
		if err := utils.ValidatePassword(*input.Password); err != nil {
			return nil, err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcryptCost)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("error hashing password: %w", err)
		}
		h := string(hashed)
		passwordHash = &h
	}

	user, err := s.userRepo.UpdateProfile(ctx, userID, input.Name, input.Phone, passwordHash)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	mylogger.Info(ctx, s.logger, "Profile updated", zap.Int64("user_id", userID), zap.Bool("password_changed", passwordHash != nil))

	return user, nil
}

func (s *authService) ListAddresses(ctx context.Context, userID int64) ([]domain.Address, error) {
	return s.userRepo.ListAddresses(ctx, userID)
}

// AddAddress makes the first address of a user the default one. A new
// default replaces the previous default in the same transaction.
func (s *authService) AddAddress(ctx context.Context, userID int64, addr *domain.Address) (*domain.Address, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.AddAddress")
	defer span.End()

	span.SetAttributes(attribute.Int64("user_id", userID))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		mylogger.Error(ctx, s.logger, "Failed to begin transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, s.logger, tx)

	count, err := s.userRepo.CountAddresses(ctx, tx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	addr.UserID = userID
	if count == 0 {
		addr.IsDefault = true
	} else if addr.IsDefault {
		if err := s.userRepo.ClearDefaultAddress(ctx, tx, userID); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	if addr.Country == "" {
		addr.Country = "India"
	}

	if err := s.userRepo.AddAddress(ctx, tx, addr); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return addr, nil
}

func (s *authService) SetDefaultAddress(ctx context.Context, userID, addressID int64) error {
	ctx, span := s.tracer.Start(ctx, "AuthService.SetDefaultAddress")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("address_id", addressID),
	)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, s.logger, tx)

	if err := s.userRepo.ClearDefaultAddress(ctx, tx, userID); err != nil {
		span.RecordError(err)
		return err
	}

	if err := s.userRepo.SetDefaultAddress(ctx, tx, userID, addressID); err != nil {
		if !errors.Is(err, repository.ErrAddressNotFound) {
			span.RecordError(err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *authService) DeleteAddress(ctx context.Context, userID, addressID int64) error {
	return s.userRepo.DeleteAddress(ctx, userID, addressID)
}
