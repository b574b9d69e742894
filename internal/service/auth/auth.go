package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rootzapp/rootz/internal/models"
	"github.com/rootzapp/rootz/internal/service/auth/tokenmanager"
	"github.com/rootzapp/rootz/internal/service/user"
)

const defaultRefreshCookieName = "refresh_token"

type Config struct {
	// Cookie the refresh token travels in
	// If not set than default is used
	RefreshCookieName string
}

type userService interface {
	CreateUser(ctx context.Context, arg user.CreateUserArgs) (models.User, error)
	Login(ctx context.Context, email string, password string) (models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error)
}

type AuthService struct {
	token      *tokenmanager.TokenManager
	users      userService
	cookieName string
}

func NewService(cfg Config, token *tokenmanager.TokenManager, users userService) (*AuthService, error) {
	if token == nil || users == nil {
		return nil, errors.New("token manager and user service must not be nil")
	}

	if cfg.RefreshCookieName == "" {
		cfg.RefreshCookieName = defaultRefreshCookieName
	}

	return &AuthService{
		token:      token,
		users:      users,
		cookieName: cfg.RefreshCookieName,
	}, nil
}

type RegisterArgs struct {
	Name       string
	Email      string
	Password   string
	ReferrerID *uuid.UUID
}

func (s *AuthService) Register(ctx context.Context, arg RegisterArgs) (models.TokenPair, error) {
	u, err := s.users.CreateUser(ctx, user.CreateUserArgs{
		Name:       arg.Name,
		Email:      arg.Email,
		Password:   arg.Password,
		ReferrerID: arg.ReferrerID,
	})
	if err != nil {
		return models.TokenPair{}, err
	}

	pair, err := s.token.GeneratePair(ctx, u)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not be generated. Err: %w", err)
	}

	return pair, nil
}

func (s *AuthService) Login(ctx context.Context, email string, password string) (models.TokenPair, error) {
	u, err := s.users.Login(ctx, email, password)
	if err != nil {
		return models.TokenPair{}, err
	}

	pair, err := s.token.GeneratePair(ctx, u)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not be generated. Err: %w", err)
	}

	return pair, nil
}

// RefreshPair exchanges a valid one-shot refresh token for a fresh pair
func (s *AuthService) RefreshPair(ctx context.Context, refresh string) (models.TokenPair, error) {
	token, err := s.token.UseRefresh(ctx, refresh)
	if err != nil {
		return models.TokenPair{}, err
	}

	u, err := s.users.GetUserByID(ctx, token.UserID)
	if err != nil {
		return models.TokenPair{}, err
	}

	pair, err := s.token.GeneratePair(ctx, u)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not be generated. Err: %w", err)
	}

	return pair, nil
}

// Set auth tokens to response: access as bearer header, refresh as cookie
func (s *AuthService) SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair) {
	w.Header().Set("Authorization", "Bearer "+pair.Access.Value)
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    pair.Refresh.Value,
		Expires:  pair.Refresh.ExpiresAt,
		Path:     "/api/auth",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// Set auth tokens to request, mostly useful in tests
func (s *AuthService) SetTokenPairToRequest(r *http.Request, pair models.TokenPair) {
	r.Header.Set("Authorization", "Bearer "+pair.Access.Value)
	r.AddCookie(&http.Cookie{
		Name:  s.cookieName,
		Value: pair.Refresh.Value,
	})
}

// Get refresh token from request
func (s *AuthService) GetRefreshString(r *http.Request) (string, error) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil {
		return "", fmt.Errorf("refresh cookie not found. Err: %w", err)
	}

	return cookie.Value, nil
}

// GetUserFromRequest authenticates the request by its bearer access token
func (s *AuthService) GetUserFromRequest(ctx context.Context, r *http.Request) (models.User, error) {
	header := r.Header.Get("Authorization")
	access, found := strings.CutPrefix(header, "Bearer ")
	if !found || access == "" {
		return models.User{}, errors.New("bearer token not found in request")
	}

	userID, err := s.token.ParseAccess(ctx, access)
	if err != nil {
		return models.User{}, err
	}

	return s.users.GetUserByID(ctx, userID)
}
