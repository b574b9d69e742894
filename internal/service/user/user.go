package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rootzapp/rootz/internal/apperrors"
	"github.com/rootzapp/rootz/internal/models"
	"github.com/rootzapp/rootz/internal/repository"
)

type UserService struct {
	hasher models.Hasher

	// Repository to access long term data
	storage repository.Storage
}

func NewService(hasher models.Hasher, storage repository.Storage) *UserService {
	return &UserService{
		hasher:  hasher,
		storage: storage,
	}
}

type CreateUserArgs struct {
	Name     string
	Email    string
	Password string

	// Referrer becomes the parent in the referral tree. Set once here,
	// never changed later.
	ReferrerID *uuid.UUID
}

// CreateUser registers a user and its wallet in one transaction.
// An unknown referrer fails with apperrors.ErrUserNotFound, a taken email
// with apperrors.ErrUserAlreadyExists.
func (s *UserService) CreateUser(ctx context.Context, arg CreateUserArgs) (models.User, error) {
	var user models.User

	hash, err := s.hasher.Hash(arg.Password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	if arg.ReferrerID != nil {
		_, err := s.storage.User().GetUserByID(ctx, *arg.ReferrerID)
		if err != nil {
			return user, fmt.Errorf("referrer: %w", err)
		}
	}

	err = s.storage.InTx(ctx, func(store repository.Storage) error {
		user, err = store.User().CreateUser(ctx, repository.CreateUserParams{
			Name:         arg.Name,
			Email:        arg.Email,
			PasswordHash: hash,
			ParentID:     arg.ReferrerID,
		})
		if err != nil {
			return err
		}

		_, err = store.Wallet().GetOrCreateWallet(ctx, user.ID)
		return err
	})
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

// Login returns the user when email and password match.
// Both unknown email and wrong password surface as apperrors.ErrUserNotFound,
// callers can't probe which emails are registered.
func (s *UserService) Login(ctx context.Context, email string, password string) (models.User, error) {
	user, err := s.storage.User().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return models.User{}, apperrors.ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("login: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return models.User{}, apperrors.ErrUserNotFound
	}

	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	return s.storage.User().GetUserByID(ctx, id)
}
