package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/daybookhq/daybook/internal/domain"
	"github.com/daybookhq/daybook/internal/service"
	"github.com/daybookhq/daybook/pkg/httpx"
	"github.com/daybookhq/daybook/pkg/slogx"
)

// AuthHandler handles the password login flow endpoints.
type AuthHandler struct {
	AuthService *service.AuthService
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type codeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type totpRequest struct {
	UserID string `json:"userId"`
	Code   string `json:"code"`
}

type sessionResponse struct {
	Status string            `json:"status"`
	Token  string            `json:"token"`
	User   domain.PublicUser `json:"user"`
}

// HandleRegister handles POST /auth/register.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	result, err := h.AuthService.Register(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrUserExists):
			httpx.WriteError(w, http.StatusBadRequest, "An account with this email already exists")
		default:
			log.Error("registration failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	log.Info("user registered", "user_id", result.User.ID)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"status":     "success",
		"user":       result.User,
		"enrollment": result.Enrollment,
	})
}

// HandleLogin handles POST /auth/login. A correct password does not yield a
// token; it triggers the emailed one-time code.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	userID, err := h.AuthService.Login(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteError(w, http.StatusUnauthorized, "Invalid email or password")
		case errors.Is(err, service.ErrEmailDelivery):
			log.Error("verification email delivery failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "Could not send verification email")
		default:
			log.Error("login failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Verification code sent to your email",
		"userId":  userID,
	})
}

// HandleVerifyEmailCode handles POST /auth/verify-email-code. On success the
// response tells the client to proceed with the authenticator step.
func (h *AuthHandler) HandleVerifyEmailCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	result, err := h.AuthService.VerifyEmailCode(ctx, req.Email, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCode):
			httpx.WriteError(w, http.StatusUnauthorized, "Invalid verification code")
		case errors.Is(err, service.ErrCodeExpired):
			httpx.WriteError(w, http.StatusUnauthorized, "Verification code has expired")
		default:
			log.Error("email code verification failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":            "success",
		"userId":            result.UserID,
		"requiresTwoFactor": result.RequiresTwoFactor,
	})
}

// HandleVerifyTwoFactor handles POST /auth/verify-two-factor, the final step
// of the login flow. Success mints the session token.
func (h *AuthHandler) HandleVerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req totpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	result, err := h.AuthService.VerifyTOTP(ctx, req.UserID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTOTP):
			httpx.WriteError(w, http.StatusUnauthorized, "Invalid authenticator code")
		default:
			log.Error("two factor verification failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	log.Info("login completed", "user_id", result.User.ID)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, sessionResponse{
		Status: "success",
		Token:  result.Token,
		User:   result.User,
	})
}
