// Package company stores the single branding record shown by the client.
package company

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// ErrInvalidColor is returned for colors that are not #RRGGBB.
var ErrInvalidColor = errors.New("company: color must be #RRGGBB")

// ErrInvalidName is returned when the name is blank.
var ErrInvalidName = errors.New("company: name is required")

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Company is the branding record.
type Company struct {
	Name         string    `json:"name"`
	Logo         *string   `json:"logo"`
	PrimaryColor string    `json:"primaryColor"`
	AccentColor  string    `json:"accentColor"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Default is returned until an admin saves a record.
func Default() *Company {
	return &Company{
		Name:         "Ananka Fasteners",
		PrimaryColor: "#4682B4",
		AccentColor:  "#FFD700",
	}
}

// UpdateRequest is the body of PUT /company. Omitted fields are kept.
type UpdateRequest struct {
	Name         *string `json:"name,omitempty"`
	Logo         *string `json:"logo,omitempty"`
	PrimaryColor *string `json:"primaryColor,omitempty"`
	AccentColor  *string `json:"accentColor,omitempty"`
}

// Apply validates req and merges it into c.
func (req UpdateRequest) Apply(c *Company) error {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return ErrInvalidName
		}
		c.Name = name
	}
	if req.PrimaryColor != nil {
		if !hexColor.MatchString(*req.PrimaryColor) {
			return ErrInvalidColor
		}
		c.PrimaryColor = strings.ToUpper(*req.PrimaryColor)
	}
	if req.AccentColor != nil {
		if !hexColor.MatchString(*req.AccentColor) {
			return ErrInvalidColor
		}
		c.AccentColor = strings.ToUpper(*req.AccentColor)
	}
	if req.Logo != nil {
		logo := strings.TrimSpace(*req.Logo)
		if logo == "" {
			c.Logo = nil
		} else {
			c.Logo = &logo
		}
	}
	return nil
}
