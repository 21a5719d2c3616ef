package api

import (
	"encoding/json"
	"net/http"
	"time"

	"tabletap-be/internal/staff"
	"tabletap-be/internal/utils"
)

type AuthHandler struct {
	staff staff.Service
}

func NewAuthHandler(svc staff.Service) *AuthHandler {
	return &AuthHandler{staff: svc}
}

type loginRequest struct {
	VenueID   string `json:"venueId"`
	StaffCode string `json:"staffCode"`
	PIN       string `json:"pin"`
}

type loginResponse struct {
	Token   string `json:"token"`
	StaffID string `json:"staffId"`
	VenueID string `json:"venueId"`
	Role    string `json:"role"`
}

// Login is POST /auth/login. A successful PIN check sets the access_token
// cookie and returns the token for clients that prefer the Authorization
// header.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.VenueID == "" || req.StaffCode == "" || req.PIN == "" {
		utils.WriteJSONError(w, "venueId, staffCode and pin are required", http.StatusBadRequest)
		return
	}

	token, m, err := h.staff.Login(r.Context(), req.VenueID, req.StaffCode, req.PIN)
	if err != nil {
		writeError(w, r.Context(), err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(staff.TokenTTL),
	})

	utils.WriteJSON(w, loginResponse{
		Token:   token,
		StaffID: m.ID,
		VenueID: m.VenueID,
		Role:    m.Role,
	}, http.StatusOK)
}
