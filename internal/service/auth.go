package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/recipekeep/recipekeep-go/internal/crypto"
	"github.com/recipekeep/recipekeep-go/internal/metrics"
	"github.com/recipekeep/recipekeep-go/internal/model"
	"github.com/recipekeep/recipekeep-go/internal/repository"
	"github.com/recipekeep/recipekeep-go/internal/validation"
)

const (
	msgEmailRequired = "users must have an email address"
	msgEmailTaken    = "user with this email already exists"
)

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
}

// AuthService handles account creation, token issuance and profile updates.
type AuthService struct {
	users  UserStore
	hasher *crypto.Hasher
	tokens *crypto.TokenIssuer
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, hasher *crypto.Hasher, tokens *crypto.TokenIssuer) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
}

// NormalizeEmail trims surrounding space and lowercases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateAccount stores a regular, active account.
func (s *AuthService) CreateAccount(ctx context.Context, email, password, name string) (*model.User, error) {
	return s.createAccount(ctx, email, password, name, false)
}

// CreatePrivilegedAccount stores an account with staff and superuser flags set.
func (s *AuthService) CreatePrivilegedAccount(ctx context.Context, email, password string) (*model.User, error) {
	return s.createAccount(ctx, email, password, "", true)
}

func (s *AuthService) createAccount(ctx context.Context, email, password, name string, privileged bool) (*model.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, validation.Field("email", msgEmailRequired)
	}
	if password == "" {
		return nil, validation.Field("password", msgRequired)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &model.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      privileged,
		IsSuperuser:  privileged,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, validation.Field("email", msgEmailTaken)
		}
		return nil, err
	}

	metrics.IncAccountsCreated()
	slog.Info("account created", "user_id", user.ID, "privileged", privileged)
	return user, nil
}

// Register validates a signup request and creates the account.
func (s *AuthService) Register(ctx context.Context, req model.CreateUserRequest) (model.UserResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validation.Struct(req); err != nil {
		return model.UserResponse{}, err
	}

	user, err := s.CreateAccount(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		return model.UserResponse{}, err
	}
	return user.ToResponse(), nil
}

// Authenticate checks credentials and issues a bearer token. Every failure
// returns ErrInvalidCredentials so callers cannot probe which emails exist.
func (s *AuthService) Authenticate(ctx context.Context, req model.LoginRequest) (model.TokenResponse, error) {
	email := NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return model.TokenResponse{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.VerifyDummy(req.Password)
			return model.TokenResponse{}, ErrInvalidCredentials
		}
		return model.TokenResponse{}, err
	}

	match, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return model.TokenResponse{}, fmt.Errorf("verifying password: %w", err)
	}
	if !match || !user.IsActive {
		return model.TokenResponse{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return model.TokenResponse{}, fmt.Errorf("issuing token: %w", err)
	}
	return model.TokenResponse{Token: token}, nil
}

// GetProfile returns the caller's account.
func (s *AuthService) GetProfile(ctx context.Context, userID int64) (model.UserResponse, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return model.UserResponse{}, err
	}
	return user.ToResponse(), nil
}

// UpdateProfile applies the non-nil fields of req to the caller's account.
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, req model.UpdateUserRequest) (model.UserResponse, error) {
	if req.Email != nil {
		trimmed := strings.TrimSpace(*req.Email)
		req.Email = &trimmed
	}
	if err := validation.Struct(req); err != nil {
		return model.UserResponse{}, err
	}

	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return model.UserResponse{}, err
	}

	if req.Email != nil {
		user.Email = NormalizeEmail(*req.Email)
	}
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Password != nil {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return model.UserResponse{}, fmt.Errorf("hashing password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return model.UserResponse{}, validation.Field("email", msgEmailTaken)
		}
		return model.UserResponse{}, err
	}
	return user.ToResponse(), nil
}

// IsActive reports whether the account behind a token still exists and may
// sign in.
func (s *AuthService) IsActive(ctx context.Context, userID int64) (bool, error) {
	if _, err := s.activeUser(ctx, userID); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// activeUser loads the account behind a token. A deleted or deactivated
// account no longer authenticates.
func (s *AuthService) activeUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
