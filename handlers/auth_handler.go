package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/upb/inventory-identity/config"
	"github.com/upb/inventory-identity/middleware"
	"github.com/upb/inventory-identity/services"
	"github.com/upb/inventory-identity/services/auth"
	"github.com/upb/inventory-identity/utils"
	"go.uber.org/zap"
)

// AuthService is the gateway used by AuthHandler
type AuthService interface {
	Login(ctx context.Context, email, password string) (*auth.TokenPair, error)
	Signup(ctx context.Context, in auth.SignupInput) (*auth.TokenPair, error)
	Refresh(ctx context.Context, userID uuid.UUID, presented string) (*auth.TokenPair, error)
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignupUser is the owner part of a signup
type SignupUser struct {
	Name     string `json:"name" validate:"required,min=5,max=32"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=32"`
}

// SignupCompany is the company part of a signup
type SignupCompany struct {
	Name string `json:"company_name" validate:"required,min=5,max=100"`
}

// SignupRequest is the body of POST /auth/signup
type SignupRequest struct {
	User    SignupUser    `json:"user" validate:"required"`
	Company SignupCompany `json:"company" validate:"required"`
}

// TokenResponse carries the access token; the refresh token travels in a cookie
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// AuthHandler serves /auth/login, /auth/signup and /auth/refresh
type AuthHandler struct {
	service AuthService
	cookie  config.AuthConfig
	logger  *zap.Logger
}

// NewAuthHandler creates a new AuthHandler. cfg supplies cookie attributes and the refresh TTL.
func NewAuthHandler(service AuthService, cfg config.AuthConfig, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{service: service, cookie: cfg, logger: logger}
}

// HandleLogin handles POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	pair, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.respondWithTokens(w, http.StatusOK, pair)
}

// HandleSignup handles POST /auth/signup
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	pair, err := h.service.Signup(r.Context(), auth.SignupInput{
		Name:        req.User.Name,
		Email:       req.User.Email,
		Password:    req.User.Password,
		CompanyName: req.Company.Name,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.respondWithTokens(w, http.StatusCreated, pair)
}

// HandleRefresh handles POST /auth/refresh. Mount behind RefreshGuard.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	creds := middleware.GetRefreshFromContext(r.Context())
	if creds == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	pair, err := h.service.Refresh(r.Context(), creds.UserID, creds.Token)
	if err != nil {
		if services.IsUnauthorizedError(err) {
			http.SetCookie(w, h.expiredRefreshCookie())
		}
		HandleServiceError(w, err, h.logger)
		return
	}

	h.respondWithTokens(w, http.StatusOK, pair)
}

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, status int, pair *auth.TokenPair) {
	http.SetCookie(w, h.refreshCookie(pair))
	if err := utils.WriteJSON(w, status, TokenResponse{AccessToken: pair.AccessToken}); err != nil {
		h.logger.Error("failed to write token response", zap.Error(err))
	}
}

func (h *AuthHandler) refreshCookie(pair *auth.TokenPair) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.RefreshCookieName,
		Value:    pair.RefreshToken,
		Path:     "/",
		Domain:   h.cookie.CookieDomain,
		MaxAge:   int(h.cookie.RefreshTTL / time.Second),
		Expires:  pair.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   h.cookie.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// expiredRefreshCookie tells the client to drop a rejected refresh token
func (h *AuthHandler) expiredRefreshCookie() *http.Cookie {
	return &http.Cookie{
		Name:     middleware.RefreshCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.cookie.CookieDomain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.cookie.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
