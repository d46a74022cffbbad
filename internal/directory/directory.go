// Package directory resolves patients and doctors by email.
package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/Viishveesh/mediconnect/internal/model"
)

// Store is the persistence behind the directory.
type Store interface {
	GetUser(ctx context.Context, email string) (*model.User, error)
	UpsertUser(ctx context.Context, u *model.User) error
}

// Directory looks up and registers users. Emails are case-insensitive.
type Directory struct {
	store Store
}

// New creates a directory over the given store.
func New(store Store) *Directory {
	return &Directory{store: store}
}

// Resolve returns the user for an email, or model.ErrNotFound.
func (d *Directory) Resolve(ctx context.Context, email string) (*model.User, error) {
	return d.store.GetUser(ctx, normalizeEmail(email))
}

// Register creates or updates a user entry.
func (d *Directory) Register(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	if u.Email == "" {
		return fmt.Errorf("%w: email is required", model.ErrValidation)
	}
	if u.Role != model.RolePatient && u.Role != model.RoleDoctor {
		return fmt.Errorf("%w: unknown role %q", model.ErrValidation, u.Role)
	}
	return d.store.UpsertUser(ctx, u)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
