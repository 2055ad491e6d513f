package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/leadcrm/internal/auth"
	"github.com/wolfman30/leadcrm/pkg/logging"
)

// TokenIssuer signs credentials for authenticated users.
type TokenIssuer interface {
	Issue(id auth.Identity) (string, error)
}

// AuthResult is returned by login and register.
type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Service implements account management and credential exchange.
type Service struct {
	repo   Repository
	tokens TokenIssuer
	logger *logging.Logger
}

func NewService(repo Repository, tokens TokenIssuer, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, tokens: tokens, logger: logger}
}

// Register creates an account and signs a token for it.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	role := auth.RoleSales
	if req.Role != "" {
		role, _ = auth.ParseRole(req.Role)
	}
	u, err := s.create(ctx, req.Name, req.Email, req.Password, role)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", u.ID, "role", u.Role)
	return s.authResult(u)
}

// Login verifies the password against the stored bcrypt hash.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}
	return s.authResult(u)
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*User, error) {
	return s.repo.List(ctx)
}

// Create adds a user on behalf of an administrator.
func (s *Service) Create(ctx context.Context, req CreateUserRequest) (*User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	role, _ := auth.ParseRole(req.Role)
	u, err := s.create(ctx, req.Name, req.Email, req.Password, role)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Update applies the non-nil fields of req. A new password is re-hashed.
func (s *Service) Update(ctx context.Context, id string, req UpdateUserRequest) (*User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		u.Email, _ = normalizeEmail(*req.Email)
	}
	if req.Role != nil {
		u.Role, _ = auth.ParseRole(*req.Role)
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("users: hash password: %w", err)
		}
		u.PasswordHash = hash
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user updated", "user_id", u.ID)
	return u, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", "user_id", id)
	return nil
}

func (s *Service) create(ctx context.Context, name, email, password string, role auth.Role) (*User, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("users: hash password: %w", err)
	}
	u := &User{
		Name:         strings.TrimSpace(name),
		Email:        normalized,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) authResult(u *User) (*AuthResult, error) {
	token, err := s.tokens.Issue(u.Identity())
	if err != nil {
		return nil, fmt.Errorf("users: issue token: %w", err)
	}
	return &AuthResult{Token: token, User: u}, nil
}
