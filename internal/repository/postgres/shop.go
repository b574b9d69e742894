package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rootzapp/rootz/internal/apperrors"
	"github.com/rootzapp/rootz/internal/models"
	"github.com/rootzapp/rootz/internal/repository"
)

type ShopRepo struct {
	DB DBTX
}

const createShop = `-- name: CreateShop
INSERT INTO shops (title, image, discount, site_url, description)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at, title, image, discount, click_count, site_url, description
`

func (r *ShopRepo) CreateShop(ctx context.Context, arg repository.CreateShopParams) (models.Shop, error) {
	rows, _ := r.DB.Query(ctx, createShop, arg.Title, arg.Image, arg.Discount, arg.SiteURL, arg.Description)
	shop, err := pgx.CollectOneRow(rows, rowToShop)
	if err != nil {
		return shop, fmt.Errorf("db error: %w", err)
	}

	return shop, nil
}

const getShopByID = `-- name: GetShopByID
SELECT id, created_at, title, image, discount, click_count, site_url, description
FROM shops
WHERE id = $1
`

func (r *ShopRepo) GetShopByID(ctx context.Context, id uuid.UUID) (models.Shop, error) {
	rows, _ := r.DB.Query(ctx, getShopByID, id)
	shop, err := pgx.CollectOneRow(rows, rowToShop)

	switch {
	case err == nil:
		return shop, nil
	case errors.Is(err, pgx.ErrNoRows):
		return shop, apperrors.ErrShopNotFound
	default:
		return shop, fmt.Errorf("db error: %w", err)
	}
}

const getShopByURL = `-- name: GetShopByURL
SELECT id, created_at, title, image, discount, click_count, site_url, description
FROM shops
WHERE site_url ILIKE $1 || '%'
LIMIT 1
`

func (r *ShopRepo) GetShopByURL(ctx context.Context, origin string) (models.Shop, error) {
	rows, _ := r.DB.Query(ctx, getShopByURL, origin)
	shop, err := pgx.CollectOneRow(rows, rowToShop)

	switch {
	case err == nil:
		return shop, nil
	case errors.Is(err, pgx.ErrNoRows):
		return shop, apperrors.ErrShopNotFound
	default:
		return shop, fmt.Errorf("db error: %w", err)
	}
}

const listShops = `-- name: ListShops
SELECT id, created_at, title, image, discount, click_count, site_url, description
FROM shops
ORDER BY created_at, id
`

func (r *ShopRepo) ListShops(ctx context.Context) ([]models.Shop, error) {
	rows, _ := r.DB.Query(ctx, listShops)
	shops, err := pgx.CollectRows(rows, rowToShop)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return shops, nil
}

const searchShops = `-- name: SearchShops
SELECT id, created_at, title, image, discount, click_count, site_url, description
FROM shops
WHERE title ILIKE '%' || $1 || '%'
ORDER BY created_at, id
`

func (r *ShopRepo) SearchShops(ctx context.Context, query string) ([]models.Shop, error) {
	rows, _ := r.DB.Query(ctx, searchShops, query)
	shops, err := pgx.CollectRows(rows, rowToShop)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return shops, nil
}

const incrementClicks = `-- name: IncrementClicks
UPDATE shops
SET click_count = click_count + 1
WHERE id = $1
RETURNING id, created_at, title, image, discount, click_count, site_url, description
`

func (r *ShopRepo) IncrementClicks(ctx context.Context, id uuid.UUID) (models.Shop, error) {
	rows, _ := r.DB.Query(ctx, incrementClicks, id)
	shop, err := pgx.CollectOneRow(rows, rowToShop)

	switch {
	case err == nil:
		return shop, nil
	case errors.Is(err, pgx.ErrNoRows):
		return shop, apperrors.ErrShopNotFound
	default:
		return shop, fmt.Errorf("db error: %w", err)
	}
}

func rowToShop(row pgx.CollectableRow) (models.Shop, error) {
	var s models.Shop
	err := row.Scan(&s.ID, &s.CreatedAt, &s.Title, &s.Image, &s.Discount, &s.ClickCount, &s.SiteURL, &s.Description)
	return s, err
}
