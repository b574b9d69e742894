// Package referral resolves the ancestors a purchase commission is paid to.
package referral

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/rootzapp/rootz/internal/apperrors"
	"github.com/rootzapp/rootz/internal/models"
	"github.com/rootzapp/rootz/internal/repository"
)

const (
	DefaultRootEmail = "root@rootz.app"
	DefaultRootName  = "Rootz"

	// Not a bcrypt hash, so nobody can ever log in as the root account
	rootPasswordPlaceholder = "!root-account"
)

type Config struct {
	// Well known email the root account is located by
	// If not set than default is used
	RootEmail string

	// Display name used when the root account is created lazily
	RootName string
}

// Resolver locates the parent and grandparent of a buyer, substituting the
// root account for any missing ancestor. The root account identity is cached
// per process but verified against the store on every use, so a reset database
// never leaves settlements pointing at a deleted row. Creation races are
// settled by the unique index on users.email.
type Resolver struct {
	storage repository.Storage

	rootEmail string
	rootName  string

	mu   sync.Mutex
	root *models.User
}

func NewResolver(cfg Config, storage repository.Storage) *Resolver {
	if cfg.RootEmail == "" {
		cfg.RootEmail = DefaultRootEmail
	}
	if cfg.RootName == "" {
		cfg.RootName = DefaultRootName
	}

	return &Resolver{
		storage:   storage,
		rootEmail: cfg.RootEmail,
		rootName:  cfg.RootName,
	}
}

// Root returns the root account, creating it together with its wallet on
// first use. Any failure here is apperrors.ErrRootAccountUnavailable and is
// fatal to the settlement that asked.
func (r *Resolver) Root(ctx context.Context) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.root != nil {
		cached, err := r.storage.User().GetUserByID(ctx, r.root.ID)
		switch {
		case err == nil:
			return cached, nil
		case errors.Is(err, apperrors.ErrUserNotFound):
			// The cached row is gone, e.g. the database was reset under the
			// running process. Forget it and create the account again.
			r.root = nil
		default:
			return models.User{}, fmt.Errorf("%w: check root account: %w", apperrors.ErrRootAccountUnavailable, err)
		}
	}

	root, err := r.storage.User().GetOrCreateUser(ctx, repository.CreateUserParams{
		Name:          r.rootName,
		Email:         r.rootEmail,
		PasswordHash:  rootPasswordPlaceholder,
		EmailVerified: true,
	})
	if err != nil {
		return models.User{}, fmt.Errorf("%w: get or create root account: %w", apperrors.ErrRootAccountUnavailable, err)
	}

	_, err = r.storage.Wallet().GetOrCreateWallet(ctx, root.ID)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: create root wallet: %w", apperrors.ErrRootAccountUnavailable, err)
	}

	r.root = &root
	return root, nil
}

// Resolve returns the two ancestors of the buyer that take referral shares.
//   - parent: the buyer's direct ancestor, or the root account if none
//   - grandparent: the parent's direct ancestor, but only when the parent is a
//     real non-root ancestor; the root account otherwise
//
// A buyer that IS the root account resolves to itself on both positions (the
// company keeps every share of its own purchases).
func (r *Resolver) Resolve(ctx context.Context, buyer models.User) (parent models.User, grandparent models.User, err error) {
	root, err := r.Root(ctx)
	if err != nil {
		return parent, grandparent, err
	}

	if buyer.ID == root.ID {
		return root, root, nil
	}

	parent, err = r.ancestorOrRoot(ctx, buyer.ParentID, root)
	if err != nil {
		return parent, grandparent, err
	}

	if parent.ID == root.ID {
		return parent, root, nil
	}

	grandparent, err = r.ancestorOrRoot(ctx, parent.ParentID, root)
	return parent, grandparent, err
}

// Look the ancestor up by its weak reference. No reference or a dangling one
// falls back to root, only store failures propagate.
func (r *Resolver) ancestorOrRoot(ctx context.Context, id *uuid.UUID, root models.User) (models.User, error) {
	if id == nil {
		return root, nil
	}

	ancestor, err := r.storage.User().GetUserByID(ctx, *id)
	switch {
	case err == nil:
		return ancestor, nil
	case errors.Is(err, apperrors.ErrUserNotFound):
		return root, nil
	default:
		return models.User{}, fmt.Errorf("resolve ancestor: %w", err)
	}
}
