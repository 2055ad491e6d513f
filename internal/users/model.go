package users

import (
	"net/mail"
	"strings"
	"time"

	"github.com/wolfman30/leadcrm/internal/auth"
)

// MinPasswordLength is the shortest password accepted on register and create.
const MinPasswordLength = 6

// User is an identity and authorization subject.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         auth.Role `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity returns the token subject for u.
func (u *User) Identity() auth.Identity {
	return auth.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	if _, err := normalizeEmail(r.Email); err != nil {
		return err
	}
	if r.Password == "" {
		return invalid("password", "is required")
	}
	return nil
}

// RegisterRequest is the body of POST /auth/register. Role defaults to SALES.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

func (r *RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return invalid("name", "is required")
	}
	if _, err := normalizeEmail(r.Email); err != nil {
		return err
	}
	if len(r.Password) < MinPasswordLength {
		return invalid("password", "must be at least 6 characters")
	}
	if r.Role != "" {
		if _, ok := auth.ParseRole(r.Role); !ok {
			return invalid("role", "must be one of ADMIN, SALES, MARKETING")
		}
	}
	return nil
}

// CreateUserRequest is the body of POST /users. All fields are required.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (r *CreateUserRequest) Validate() error {
	if r.Role == "" {
		return invalid("role", "is required")
	}
	reg := RegisterRequest(*r)
	return reg.Validate()
}

// UpdateUserRequest is the body of PATCH /users/{id}; nil fields are left unchanged.
type UpdateUserRequest struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Role     *string `json:"role,omitempty"`
}

func (r *UpdateUserRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return invalid("name", "must not be empty")
	}
	if r.Email != nil {
		if _, err := normalizeEmail(*r.Email); err != nil {
			return err
		}
	}
	if r.Password != nil && len(*r.Password) < MinPasswordLength {
		return invalid("password", "must be at least 6 characters")
	}
	if r.Role != nil {
		if _, ok := auth.ParseRole(*r.Role); !ok {
			return invalid("role", "must be one of ADMIN, SALES, MARKETING")
		}
	}
	return nil
}

// normalizeEmail rejects display-name forms like "A <a@b.c>" and lowercases the address.
func normalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", invalid("email", "is required")
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", invalid("email", "is invalid")
	}
	return strings.ToLower(trimmed), nil
}
