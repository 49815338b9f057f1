package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cargolinq/freight-auth-service/internal/http/middleware"
	"github.com/cargolinq/freight-auth-service/internal/http/response"
	"github.com/cargolinq/freight-auth-service/internal/observability"
	"github.com/cargolinq/freight-auth-service/internal/repository"
	"github.com/cargolinq/freight-auth-service/internal/security"
	"github.com/cargolinq/freight-auth-service/internal/service"
)

type AuthHandler struct {
	auth          *service.AuthService
	refreshTTL    time.Duration
	secureCookies bool
}

func NewAuthHandler(auth *service.AuthService, refreshTTL time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{auth: auth, refreshTTL: refreshTTL, secureCookies: secureCookies}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type resetPasswordRequest struct {
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed request body", nil)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Username, req.Password, middleware.ClientIP(r))
	if err != nil {
		h.writeLoginError(w, r, err)
		return
	}

	h.setRefreshCookie(w, result.RefreshToken)
	observability.RecordAuthAttempt(r.Context(), "login", "success")
	observability.Audit(r, "auth.login", "username", result.User.Username)
	response.JSON(w, r, http.StatusOK, map[string]any{
		"access_token":        result.AccessToken,
		"token_type":          "Bearer",
		"must_reset_password": result.User.MustResetPassword,
	})
}

func (h *AuthHandler) writeLoginError(w http.ResponseWriter, r *http.Request, err error) {
	var lockedErr *service.AccountLockedError
	var throttledErr *service.TooManyRequestsError
	switch {
	case errors.As(err, &lockedErr):
		observability.RecordAuthAttempt(r.Context(), "login", "locked")
		response.Error(w, r, http.StatusLocked, "ACCOUNT_LOCKED", lockedErr.Error(),
			map[string]any{"retry_after_seconds": int(lockedErr.RetryAfter.Round(time.Second).Seconds())})
	case errors.As(err, &throttledErr):
		observability.RecordAuthAttempt(r.Context(), "login", "throttled")
		w.Header().Set("Retry-After", retrySeconds(throttledErr.RetryAfter))
		response.Error(w, r, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", throttledErr.Error(), nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		observability.RecordAuthAttempt(r.Context(), "login", "invalid_credentials")
		response.Error(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", service.ErrInvalidCredentials.Error(), nil)
	default:
		observability.RecordAuthAttempt(r.Context(), "login", "error")
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "login failed", nil)
	}
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := security.GetCookie(r, security.RefreshCookieName)
	access, err := h.auth.Refresh(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingSessionToken):
			observability.RecordAuthAttempt(r.Context(), "refresh", "missing_token")
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "refresh token is required", nil)
		case errors.Is(err, service.ErrInvalidRefreshToken):
			observability.RecordAuthAttempt(r.Context(), "refresh", "invalid_token")
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired refresh token", nil)
		default:
			observability.RecordAuthAttempt(r.Context(), "refresh", "error")
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "refresh failed", nil)
		}
		return
	}

	observability.RecordAuthAttempt(r.Context(), "refresh", "success")
	response.JSON(w, r, http.StatusOK, map[string]any{
		"access_token": access,
		"token_type":   "Bearer",
	})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid access token", nil)
		return
	}

	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed request body", nil)
		return
	}

	token := security.GetCookie(r, security.RefreshCookieName)
	if err := h.auth.ResetPassword(r.Context(), userID, token, req.NewPassword, req.ConfirmPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrMissingSessionToken):
			observability.RecordAuthAttempt(r.Context(), "reset_password", "missing_token")
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "session cookie is required", nil)
		case errors.Is(err, repository.ErrUserNotFound):
			observability.RecordAuthAttempt(r.Context(), "reset_password", "not_found")
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
		case errors.Is(err, service.ErrPasswordMismatch):
			observability.RecordAuthAttempt(r.Context(), "reset_password", "mismatch")
			response.Error(w, r, http.StatusBadRequest, "VALIDATION", service.ErrPasswordMismatch.Error(), nil)
		default:
			observability.RecordAuthAttempt(r.Context(), "reset_password", "error")
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "password reset failed", nil)
		}
		return
	}

	h.clearRefreshCookie(w)
	observability.RecordAuthAttempt(r.Context(), "reset_password", "success")
	observability.Audit(r, "auth.password_reset", "user_id", userID)
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "password updated"})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := security.GetCookie(r, security.RefreshCookieName)
	userID, err := h.auth.Logout(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingSessionToken):
			observability.RecordAuthAttempt(r.Context(), "logout", "missing_token")
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "session cookie is required", nil)
			return
		case errors.Is(err, repository.ErrSessionNotFound):
			// Already logged out. Clear client state and report success.
			h.clearRefreshCookie(w)
			observability.RecordAuthAttempt(r.Context(), "logout", "already_absent")
			response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged out"})
			return
		default:
			observability.RecordAuthAttempt(r.Context(), "logout", "error")
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "logout failed", nil)
			return
		}
	}

	h.clearRefreshCookie(w)
	observability.RecordAuthAttempt(r.Context(), "logout", "success")
	observability.Audit(r, "auth.logout", "user_id", userID)
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me echoes the identity embedded in the verified access token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"user_id":             claims.Subject,
		"username":            claims.Username,
		"role":                claims.Role,
		"must_reset_password": claims.MustResetPassword,
	})
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     security.RefreshCookieName,
		Value:    token,
		Path:     "/api/v1/auth",
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     security.RefreshCookieName,
		Value:    "",
		Path:     "/api/v1/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func retrySeconds(d time.Duration) string {
	seconds := int(d.Round(time.Second).Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
