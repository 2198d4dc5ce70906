package handlers

import (
	"encoding/json"
	"net/http"

	"valve-backend/internal/middleware"
	"valve-backend/internal/models"
	"valve-backend/internal/services"
	"valve-backend/pkg/utils"
)

type TOTPHandler struct {
	Service *services.TOTPService
	Users   *services.UserService
}

func NewTOTPHandler(service *services.TOTPService, users *services.UserService) *TOTPHandler {
	return &TOTPHandler{Service: service, Users: users}
}

// Setup starts 2FA enrollment and returns the secret plus a QR code
func (h *TOTPHandler) Setup(w http.ResponseWriter, r *http.Request) {
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

	setup, err := h.Service.GenerateSetup(r.Context(), user)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, setup)
}

// Enable activates 2FA once the first code verifies
func (h *TOTPHandler) Enable(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		utils.Fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.TOTPVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.Service.Enable(r.Context(), caller.ID, req.Code); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]interface{}{"success": true, "totp_enabled": true})
}

// Disable turns 2FA off after a final code check
func (h *TOTPHandler) Disable(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		utils.Fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.TOTPVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.Service.Disable(r.Context(), caller.ID, req.Code); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]interface{}{"success": true, "totp_enabled": false})
}
