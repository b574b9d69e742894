package shop

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/rootzapp/rootz/internal/apperrors"
	"github.com/rootzapp/rootz/internal/models"
	"github.com/rootzapp/rootz/internal/repository"
	"github.com/rootzapp/rootz/internal/service/commission"
)

type ShopService struct {
	// Repository to access long term data
	storage repository.Storage
}

func NewService(storage repository.Storage) *ShopService {
	return &ShopService{storage: storage}
}

// CreateShop registers a partner merchant. The discount must parse as a
// percentage here, a shop with a broken discount would make every later
// settlement against it fail.
func (s *ShopService) CreateShop(ctx context.Context, arg repository.CreateShopParams) (models.Shop, error) {
	if _, err := commission.ParseDiscount(arg.Discount); err != nil {
		return models.Shop{}, err
	}

	return s.storage.Shop().CreateShop(ctx, arg)
}

func (s *ShopService) GetShopByID(ctx context.Context, id uuid.UUID) (models.Shop, error) {
	return s.storage.Shop().GetShopByID(ctx, id)
}

func (s *ShopService) ListShops(ctx context.Context) ([]models.Shop, error) {
	return s.storage.Shop().ListShops(ctx)
}

func (s *ShopService) SearchShops(ctx context.Context, query string) ([]models.Shop, error) {
	return s.storage.Shop().SearchShops(ctx, query)
}

// GetShopByURL finds the shop whose site matches the origin of rawURL,
// extra path segments and query parameters are dropped first.
func (s *ShopService) GetShopByURL(ctx context.Context, rawURL string) (models.Shop, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return models.Shop{}, fmt.Errorf("url %q: %w", rawURL, apperrors.ErrShopNotFound)
	}

	origin := parsed.Scheme + "://" + parsed.Host
	return s.storage.Shop().GetShopByURL(ctx, origin)
}

// Visit counts a click through to the shop site
func (s *ShopService) Visit(ctx context.Context, id uuid.UUID) (models.Shop, error) {
	return s.storage.Shop().IncrementClicks(ctx, id)
}
