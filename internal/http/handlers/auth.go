package handlers

import (
	"net/http"
	"time"

	"github.com/beemart/server/internal/auth"
	"github.com/beemart/server/internal/middleware"
	"github.com/beemart/server/internal/model"
)

const refreshTokenCookie = "refresh_token"

// CookieConfig controls the token cookie attributes
type CookieConfig struct {
	Secure bool
	Domain string
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *auth.AuthService
	cookies     CookieConfig
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.AuthService, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{authService: authService, cookies: cookies}
}

// HandleRegister handles POST /v1/auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.authService.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respond(w, http.StatusCreated, "registration successful, verification code sent to email", meta{
		"user_id":   account.ID.String(),
		"email":     account.Email,
		"full_name": account.FullName,
	})
}

// HandleResendOTP handles POST /v1/auth/resend-otp
func (h *AuthHandler) HandleResendOTP(w http.ResponseWriter, r *http.Request) {
	var req auth.ResendOTPInput
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.authService.ResendOTP(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "verification code sent to email", nil)
}

// HandleVerifyEmail handles POST /v1/auth/verify-email
func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyEmailInput
	if !decodeJSON(w, r, &req) {
		return
	}

	account, pair, err := h.authService.VerifyEmail(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setTokenCookies(w, pair)
	respond(w, http.StatusOK, "email verified successfully", tokenMeta(account, pair))
}

// HandleLogin handles POST /v1/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginInput
	if !decodeJSON(w, r, &req) {
		return
	}

	account, pair, err := h.authService.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setTokenCookies(w, pair)
	m := tokenMeta(account, pair)
	m["profile_verified"] = account.IsVerified
	respond(w, http.StatusOK, "login successful", m)
}

// HandleMyProfile handles GET /v1/my-profile (protected)
func (h *AuthHandler) HandleMyProfile(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.GetAccount(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	respond(w, http.StatusOK, "profile fetched successfully", profileMeta(account))
}

func tokenMeta(account model.Account, pair auth.TokenPair) meta {
	return meta{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"user_id":       account.ID.String(),
		"email":         account.Email,
		"full_name":     account.FullName,
	}
}

func profileMeta(a model.Account) meta {
	m := meta{
		"user_id":          a.ID.String(),
		"email":            a.Email,
		"full_name":        a.FullName,
		"phone":            a.Phone,
		"dob":              nil,
		"gender":           a.Gender,
		"is_seller":        a.IsSeller,
		"role":             nil,
		"is_admin":         a.IsAdmin(),
		"profile_verified": a.IsVerified,
		"auth_provider":    a.AuthProvider,
		"avatar_url":       a.AvatarURL,
	}
	if a.DateOfBirth != nil {
		m["dob"] = a.DateOfBirth.Format(time.DateOnly)
	}
	if a.Role != nil {
		m["role"] = a.Role.Name
	}
	return m
}

func (h *AuthHandler) setTokenCookies(w http.ResponseWriter, pair auth.TokenPair) {
	http.SetCookie(w, h.cookie(middleware.AccessTokenCookie, pair.AccessToken, pair.AccessTTL))
	http.SetCookie(w, h.cookie(refreshTokenCookie, pair.RefreshToken, pair.RefreshTTL))
}

func (h *AuthHandler) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.cookies.Domain,
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
