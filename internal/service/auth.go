// Package service contains the application services that sit between the
// HTTP layer and the stores. Services validate input, enforce business
// rules, and translate store errors into domain errors the handlers can
// map to HTTP responses.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookhavenapp/bookhaven-server/internal/auth"
	"github.com/bookhavenapp/bookhaven-server/internal/domain"
	domainerrors "github.com/bookhavenapp/bookhaven-server/internal/errors"
	"github.com/bookhavenapp/bookhaven-server/internal/id"
	"github.com/bookhavenapp/bookhaven-server/internal/store"
	"github.com/bookhavenapp/bookhaven-server/internal/store/carts"
	"github.com/bookhavenapp/bookhaven-server/internal/validation"
)

// AuthService handles registration, login, and session verification.
type AuthService struct {
	store        store.Store
	carts        *carts.Store
	tokenService *auth.TokenService
	validate     *validation.Validator
	logger       *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	store store.Store,
	carts *carts.Store,
	tokenService *auth.TokenService,
	validate *validation.Validator,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:        store,
		carts:        carts,
		tokenService: tokenService,
		validate:     validate,
		logger:       logger,
	}
}

// RegisterRequest contains user registration data.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=1024"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`

	// SessionCartID carries the guest cart cookie, if any, so the cart
	// follows the customer through sign-in. Extracted by the handler.
	SessionCartID string `json:"-"`
}

// AuthResponse contains the session token and user data.
type AuthResponse struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Register creates a new customer account and signs it in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	user := &domain.User{
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         domain.RoleCustomer,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		LastLoginAt:  time.Now(),
	}
	user.ID = userID
	user.InitTimestamps()

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("email already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("User registered",
		"user_id", userID,
		"email", user.Email,
	)

	return s.issueSession(user)
}

// Login authenticates a user and issues a session token. Any guest cart
// carried in the request is folded into the user's cart.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Don't leak whether the email exists.
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	if user.Disabled {
		return nil, domainerrors.Forbidden("account is disabled")
	}

	if err := s.store.TouchLastLogin(ctx, user.ID, time.Now()); err != nil {
		// Log but don't fail login.
		s.logger.Warn("Failed to update last login time",
			"user_id", user.ID,
			"error", err,
		)
	}

	if req.SessionCartID != "" {
		if _, err := s.carts.MergeSessionIntoUser(ctx, req.SessionCartID, user.ID); err != nil {
			// The guest cart stays behind its cookie; losing the merge is
			// not worth failing the login over.
			s.logger.Warn("Failed to merge guest cart at login",
				"user_id", user.ID,
				"error", err,
			)
		}
	}

	s.logger.Info("User logged in", "user_id", user.ID)

	return s.issueSession(user)
}

// VerifySessionToken validates a token and loads the user it belongs to.
// Used by the authentication middleware.
func (s *AuthService) VerifySessionToken(ctx context.Context, tokenString string) (*domain.User, *auth.SessionClaims, error) {
	claims, err := s.tokenService.VerifySessionToken(tokenString)
	if err != nil {
		return nil, nil, domainerrors.Unauthorized("invalid or expired session")
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, domainerrors.Unauthorized("account no longer exists")
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	if user.Disabled {
		return nil, nil, domainerrors.Forbidden("account is disabled")
	}

	return user, claims, nil
}

func (s *AuthService) issueSession(user *domain.User) (*AuthResponse, error) {
	token, err := s.tokenService.GenerateSessionToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	return &AuthResponse{
		User:      user,
		Token:     token,
		ExpiresAt: time.Now().Add(s.tokenService.SessionDuration()),
	}, nil
}
