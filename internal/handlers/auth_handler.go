package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"valve-backend/internal/middleware"
	"valve-backend/internal/models"
	"valve-backend/internal/services"
	"valve-backend/pkg/utils"
)

type AuthHandler struct {
	Users *services.UserService
	TOTP  *services.TOTPService
}

func NewAuthHandler(users *services.UserService, totp *services.TOTPService) *AuthHandler {
	return &AuthHandler{Users: users, TOTP: totp}
}

// Login handles the first authentication step
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	authResp, err := h.Users.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			utils.Fail(w, http.StatusUnauthorized, err.Error())
			return
		}
		utils.WriteError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, authResp)
}

// VerifyTOTP completes a 2FA login with the temp token and a code
func (h *AuthHandler) VerifyTOTP(w http.ResponseWriter, r *http.Request) {
	var req models.TOTPVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TempToken == "" || req.Code == "" {
		utils.Fail(w, http.StatusBadRequest, "temp_token and code are required")
		return
	}

	authResp, err := h.TOTP.VerifyLogin(r.Context(), &req)
	if err != nil {
		if strings.Contains(err.Error(), "temporary token") {
			utils.Fail(w, http.StatusUnauthorized, err.Error())
			return
		}
		utils.WriteError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, authResp)
}

// Me returns the authenticated user's own record
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		utils.Fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.Users.Me(r.Context(), caller.ID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, user)
}
