// Package earnings builds the read-only referral subtree snapshot shown on a
// user profile: every descendant annotated with the amount it contributed to
// the profile owner's wallet.
package earnings

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rootzapp/rootz/internal/apperrors"
	"github.com/rootzapp/rootz/internal/models"
	"github.com/rootzapp/rootz/internal/repository"
)

type Service struct {
	storage repository.Storage
}

func NewService(storage repository.Storage) *Service {
	return &Service{storage: storage}
}

// Profile is what the profile endpoint renders: the owner's wallet plus the
// enriched descendant tree.
type Profile struct {
	Wallet models.Wallet
	Tree   models.EnrichedUser
}

func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (Profile, error) {
	var profile Profile

	// Wallets are created lazily on first access
	wallet, err := s.storage.Wallet().GetOrCreateWallet(ctx, userID)
	if err != nil {
		return profile, fmt.Errorf("profile wallet: %w", err)
	}

	tree, err := s.Enrich(ctx, userID, wallet.ID)
	if err != nil {
		return profile, err
	}

	return Profile{Wallet: wallet, Tree: tree}, nil
}

// Enrich computes, for the user and every descendant, the sum of 'earned'
// transactions on walletID generated by that node's purchases.
//
// The traversal is an explicit worklist, not recursion: depth stays bounded
// and a node seen twice means the forest invariant is broken somewhere, which
// fails fast with apperrors.ErrCorruptHierarchy instead of looping.
// On an unchanged ledger two calls return identical trees: children come back
// in (created_at, id) order and the amounts are plain sums.
func (s *Service) Enrich(ctx context.Context, userID uuid.UUID, walletID uuid.UUID) (models.EnrichedUser, error) {
	user, err := s.storage.User().GetUserByID(ctx, userID)
	if err != nil {
		return models.EnrichedUser{}, fmt.Errorf("enrich user: %w", err)
	}

	// One grouped query for the whole subtree instead of one sum per node
	earned, err := s.storage.Wallet().SumEarnedByFromUser(ctx, walletID)
	if err != nil {
		return models.EnrichedUser{}, fmt.Errorf("enrich sums: %w", err)
	}

	tree := models.EnrichedUser{User: user, AmountEarned: earned[user.ID]}
	visited := map[uuid.UUID]struct{}{user.ID: {}}
	worklist := []*models.EnrichedUser{&tree}

	for len(worklist) > 0 {
		node := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		children, err := s.storage.User().ListChildren(ctx, node.User.ID)
		if err != nil {
			return models.EnrichedUser{}, fmt.Errorf("enrich children of %s: %w", node.User.ID, err)
		}

		for _, child := range children {
			if _, seen := visited[child.ID]; seen {
				return models.EnrichedUser{}, fmt.Errorf("user %s reached twice: %w", child.ID, apperrors.ErrCorruptHierarchy)
			}
			visited[child.ID] = struct{}{}

			node.Children = append(node.Children, models.EnrichedUser{
				User:         child,
				AmountEarned: earned[child.ID],
			})
		}

		// Children are complete now, pointers into the slice stay valid
		for i := range node.Children {
			worklist = append(worklist, &node.Children[i])
		}
	}

	return tree, nil
}
