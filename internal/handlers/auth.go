package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/rootzapp/rootz/internal/apperrors"
	"github.com/rootzapp/rootz/internal/handlers/render"
	"github.com/rootzapp/rootz/internal/handlers/userctx"
	"github.com/rootzapp/rootz/internal/logger"
	"github.com/rootzapp/rootz/internal/service/auth"
)

func handleRegister(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Name     string     `json:"name" validate:"required,min=2,max=100"`
		Email    string     `json:"email" validate:"required,email"`
		Password string     `json:"password" validate:"required,min=8"`
		Referrer *uuid.UUID `json:"referrer,omitempty"`
	}
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := authService.Register(r.Context(), auth.RegisterArgs{
			Name:       data.Name,
			Email:      data.Email,
			Password:   data.Password,
			ReferrerID: data.Referrer,
		})

		switch {
		case err == nil:
			authService.SetTokenPairToResponse(w, pair)
			render.JSONWithStatus(w, response{Message: "User registered successfully"}, http.StatusCreated)
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "User already exists", http.StatusConflict)
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "Referrer not found", http.StatusUnprocessableEntity)
		default:
			l.Error("Failed to register user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleLogin(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := authService.Login(r.Context(), data.Email, data.Password)

		switch {
		case err == nil:
			authService.SetTokenPairToResponse(w, pair)
			render.JSON(w, response{Message: "User logged in successfully"})
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "Invalid credentials", http.StatusUnauthorized)
		default:
			l.Error("Failed to login user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleTokenRefresh(authService authService, l logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refresh, err := authService.GetRefreshString(r)
		if err != nil {
			render.ServiceError(w, "Refresh token not found", http.StatusUnauthorized)
			return
		}

		pair, err := authService.RefreshPair(r.Context(), refresh)

		switch {
		case err == nil:
			authService.SetTokenPairToResponse(w, pair)
			render.JSON(w, response{Message: "Tokens refreshed successfully"})
		case errors.Is(err, apperrors.ErrRefreshTokenExpired):
			render.ServiceError(w, "Refresh token expired", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrRefreshTokenIsUsed), errors.Is(err, apperrors.ErrRefreshTokenNotFound):
			render.ServiceError(w, "Refresh token not found", http.StatusUnauthorized)
		default:
			l.Error("Failed to refresh tokens", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleUserMe() http.Handler {
	type response struct {
		ID       uuid.UUID  `json:"id"`
		Name     string     `json:"name"`
		Email    string     `json:"email"`
		Referrer *uuid.UUID `json:"referrer,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{
			ID:       user.ID,
			Name:     user.Name,
			Email:    user.Email,
			Referrer: user.ParentID,
		})
	})
}
