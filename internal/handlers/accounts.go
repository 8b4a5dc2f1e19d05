package handlers

import (
	"net/http"
	"time"

	"vendorbid/internal/market"
	"vendorbid/models"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request, status int, u *models.User) {
	tok, err := h.Tokens.Issue(u.ID, u.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, authResponse{
		Token:     tok.Token,
		ExpiresAt: tok.ExpiresAt,
		User:      u,
	})
}

// RegisterHandler обрабатывает POST /api/auth/register
func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var in market.RegisterInput
	if !decodeJSON(w, r, &in) {
		return
	}
	u, err := h.Service.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.issue(w, r, http.StatusCreated, u)
}

// LoginHandler обрабатывает POST /api/auth/login
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	u, err := h.Service.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.issue(w, r, http.StatusOK, u)
}

// MeHandler возвращает текущего пользователя
func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	u, err := h.Service.Me(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) GetVendorProfileHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	u, err := h.Service.VendorProfile(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) UpdateVendorProfileHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var in market.ProfileInput
	if !decodeJSON(w, r, &in) {
		return
	}
	u, err := h.Service.UpdateVendorProfile(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Profile updated successfully", "vendor": u})
}

func (h *Handler) GetSupplierProfileHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	u, err := h.Service.SupplierProfile(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) UpdateSupplierProfileHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var in market.ProfileInput
	if !decodeJSON(w, r, &in) {
		return
	}
	u, err := h.Service.UpdateSupplierProfile(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Profile updated successfully", "supplier": u})
}

// VerificationStatusHandler обрабатывает GET /api/suppliers/verification-status
func (h *Handler) VerificationStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	status, err := h.Service.VerificationStatus(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// VerifySupplierHandler обрабатывает POST /api/requirements/suppliers/{id}/verify
func (h *Handler) VerifySupplierHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	supplierID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.VerifySupplier(r.Context(), id, supplierID); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Supplier verified successfully")
}

// ListUsersHandler обрабатывает GET /api/requirements/users?userType=
func (h *Handler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	users, err := h.Service.ListUsers(r.Context(), id, r.URL.Query().Get("userType"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
