package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rootzapp/rootz/internal/apperrors"
	"github.com/rootzapp/rootz/internal/handlers/render"
	"github.com/rootzapp/rootz/internal/handlers/userctx"
	"github.com/rootzapp/rootz/internal/logger"
	"github.com/rootzapp/rootz/internal/models"
)

type treeNode struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Referrer     *uuid.UUID `json:"referrer,omitempty"`
	RegisteredAt time.Time  `json:"registered_at"`
	AmountEarned float64    `json:"amount_earned"`
	Children     []treeNode `json:"children"`
}

func enrichedToNode(enriched models.EnrichedUser) treeNode {
	amount, _ := enriched.AmountEarned.Float64()

	node := treeNode{
		ID:           enriched.User.ID,
		Name:         enriched.User.Name,
		Email:        enriched.User.Email,
		Referrer:     enriched.User.ParentID,
		RegisteredAt: enriched.User.CreatedAt,
		AmountEarned: amount,
		Children:     make([]treeNode, 0, len(enriched.Children)),
	}
	for _, child := range enriched.Children {
		node.Children = append(node.Children, enrichedToNode(child))
	}
	return node
}

func handleProfile(profileService profileService, l logger.Logger) http.Handler {
	type response struct {
		Wallet walletResponse `json:"wallet"`
		Tree   treeNode       `json:"tree"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		profile, err := profileService.GetProfile(r.Context(), user.ID)

		switch {
		case err == nil:
			render.JSON(w, response{
				Wallet: walletToResponse(profile.Wallet),
				Tree:   enrichedToNode(profile.Tree),
			})
		case errors.Is(err, apperrors.ErrCorruptHierarchy):
			l.Error("Referral hierarchy is corrupt", "error", err, "user_id", user.ID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		default:
			l.Error("Failed to build profile", "error", err, "user_id", user.ID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
