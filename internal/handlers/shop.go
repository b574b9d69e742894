package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rootzapp/rootz/internal/apperrors"
	"github.com/rootzapp/rootz/internal/handlers/render"
	"github.com/rootzapp/rootz/internal/logger"
	"github.com/rootzapp/rootz/internal/models"
	"github.com/rootzapp/rootz/internal/repository"
)

type shopResponse struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Image       string    `json:"image,omitempty"`
	Discount    string    `json:"discount"`
	ClickCount  int64     `json:"click_count"`
	SiteURL     string    `json:"site_url"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func shopToResponse(shop models.Shop) shopResponse {
	return shopResponse{
		ID:          shop.ID,
		Title:       shop.Title,
		Image:       shop.Image,
		Discount:    shop.Discount,
		ClickCount:  shop.ClickCount,
		SiteURL:     shop.SiteURL,
		Description: shop.Description,
		CreatedAt:   shop.CreatedAt,
	}
}

func handleListShops(shopService shopService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		shops, err := shopService.ListShops(r.Context())
		if err != nil {
			l.Error("Failed to list shops", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		response := make([]shopResponse, 0, len(shops))
		for _, shop := range shops {
			response = append(response, shopToResponse(shop))
		}
		render.JSON(w, response)
	})
}

func handleSearchShops(shopService shopService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		if query == "" {
			render.ServiceError(w, "Query parameter 'q' is required", http.StatusBadRequest)
			return
		}

		shops, err := shopService.SearchShops(r.Context(), query)
		if err != nil {
			l.Error("Failed to search shops", "error", err, "query", query)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		response := make([]shopResponse, 0, len(shops))
		for _, shop := range shops {
			response = append(response, shopToResponse(shop))
		}
		render.JSON(w, response)
	})
}

func handleCreateShop(shopService shopService, l logger.Logger) http.Handler {
	type request struct {
		Title       string `json:"title" validate:"required,min=1,max=200"`
		Image       string `json:"image"`
		Discount    string `json:"discount" validate:"required"`
		SiteURL     string `json:"site_url" validate:"required,min=1"`
		Description string `json:"description"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		shop, err := shopService.CreateShop(r.Context(), repository.CreateShopParams{
			Title:       data.Title,
			Image:       data.Image,
			Discount:    data.Discount,
			SiteURL:     data.SiteURL,
			Description: data.Description,
		})

		switch {
		case err == nil:
			render.JSONWithStatus(w, shopToResponse(shop), http.StatusCreated)
		case errors.Is(err, apperrors.ErrInvalidDiscount):
			render.ServiceError(w, "Invalid discount format", http.StatusUnprocessableEntity)
		default:
			l.Error("Failed to create shop", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleShopByURL(shopService shopService, l logger.Logger) http.Handler {
	type request struct {
		URL string `json:"url" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		shop, err := shopService.GetShopByURL(r.Context(), data.URL)

		switch {
		case err == nil:
			render.JSON(w, shopToResponse(shop))
		case errors.Is(err, apperrors.ErrShopNotFound):
			render.ServiceError(w, "Shop not found", http.StatusNotFound)
		default:
			l.Error("Failed to find shop by url", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleShopVisit(shopService shopService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid shop id", http.StatusBadRequest)
			return
		}

		shop, err := shopService.Visit(r.Context(), id)

		switch {
		case err == nil:
			render.JSON(w, shopToResponse(shop))
		case errors.Is(err, apperrors.ErrShopNotFound):
			render.ServiceError(w, "Shop not found", http.StatusNotFound)
		default:
			l.Error("Failed to count shop visit", "error", err, "shop_id", id)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
