package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bookhavenapp/bookhaven-server/internal/auth"
	"github.com/bookhavenapp/bookhaven-server/internal/domain"
	domainerrors "github.com/bookhavenapp/bookhaven-server/internal/errors"
	"github.com/bookhavenapp/bookhaven-server/internal/id"
	"github.com/bookhavenapp/bookhaven-server/internal/store"
	"github.com/bookhavenapp/bookhaven-server/internal/validation"
)

// AdminService handles account administration and storefront oversight.
type AdminService struct {
	store    store.Store
	validate *validation.Validator
	logger   *slog.Logger
}

// NewAdminService creates a new admin service.
func NewAdminService(store store.Store, validate *validation.Validator, logger *slog.Logger) *AdminService {
	return &AdminService{
		store:    store,
		validate: validate,
		logger:   logger,
	}
}

// Dashboard summarizes the storefront for the admin landing page.
type Dashboard struct {
	Books          int            `json:"books"`
	Users          int            `json:"users"`
	Orders         int            `json:"orders"`
	OrdersByStatus map[string]int `json:"orders_by_status"`
}

// GetDashboard gathers catalog, order, and account counts.
func (s *AdminService) GetDashboard(ctx context.Context) (*Dashboard, error) {
	books, err := s.store.CountBooks(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("count books: %w", err)
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	orders, err := s.store.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	dash := &Dashboard{
		Books:          books,
		Users:          len(users),
		Orders:         len(orders),
		OrdersByStatus: make(map[string]int),
	}
	for _, order := range orders {
		dash.OrdersByStatus[string(order.Status)]++
	}
	return dash, nil
}

// CreateUserRequest contains the fields for an admin-created account.
type CreateUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=1024"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Role      string `json:"role" validate:"required,oneof=customer admin"`
}

// CreateUser creates an account with an explicit role, for staff
// onboarding without the public registration flow.
func (s *AdminService) CreateUser(ctx context.Context, req CreateUserRequest) (*domain.User, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         domain.Role(req.Role),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	}
	user.ID = id.MustGenerate(id.PrefixUser)
	user.InitTimestamps()

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("email already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("User created by admin", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// ListUsers returns all active accounts.
func (s *AdminService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// SetUserDisabled blocks or unblocks an account. Disabled users cannot
// sign in and existing sessions stop verifying.
func (s *AdminService) SetUserDisabled(ctx context.Context, actorID, userID string, disabled bool) (*domain.User, error) {
	if actorID == userID {
		return nil, domainerrors.Validation("you cannot disable your own account")
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Disabled = disabled
	user.Touch()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("User disabled flag changed",
		"user_id", userID,
		"disabled", disabled,
		"actor", actorID,
	)
	return user, nil
}

// SetUserRole changes an account's role. An admin cannot demote
// themselves, which keeps at least one admin reachable.
func (s *AdminService) SetUserRole(ctx context.Context, actorID, userID string, role domain.Role) (*domain.User, error) {
	if role != domain.RoleCustomer && role != domain.RoleAdmin {
		return nil, domainerrors.Validationf("unknown role %q", role)
	}
	if actorID == userID && role != domain.RoleAdmin {
		return nil, domainerrors.Validation("you cannot demote your own account")
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Role = role
	user.Touch()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("User role changed",
		"user_id", userID,
		"role", role,
		"actor", actorID,
	)
	return user, nil
}

// DeleteUser soft-deletes an account, freeing its email address for
// a future registration.
func (s *AdminService) DeleteUser(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return domainerrors.Validation("you cannot delete your own account")
	}

	if err := s.store.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("user not found")
		}
		return fmt.Errorf("delete user: %w", err)
	}

	s.logger.Info("User deleted", "user_id", userID, "actor", actorID)
	return nil
}

func (s *AdminService) getUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
