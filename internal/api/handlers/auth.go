// HTTP handlers for register, login and guest sign-in (public endpoints, no AuthMiddleware).
// Translates HTTP requests into domain/auth.AuthService calls and maps domain errors to HTTP codes.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	domainauth "github.com/matiasleandrokruk/shopwise/internal/domain/auth"
)

// AuthHandler handles authentication HTTP requests.
type AuthHandler struct {
	authService domainauth.AuthService
}

// NewAuthHandler creates a new AuthHandler backed by the provided AuthService.
func NewAuthHandler(authService domainauth.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRequest is the request body for POST /auth/register.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is the response body returned after a successful sign-in.
type AuthResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// Register handles POST /auth/register.
//
// Response codes:
//   - 201 Created: registration successful
//   - 400 Bad Request: invalid JSON or missing required fields
//   - 409 Conflict: email already registered
//   - 500 Internal Server Error: unexpected failure
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validateRegisterRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.authService.Register(r.Context(), domainauth.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		switch {
		case errors.Is(err, domainauth.ErrEmailAlreadyExists):
			writeError(w, http.StatusConflict, "email already registered")
		case errors.Is(err, domainauth.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, newAuthResponse(result))
}

// Login handles POST /auth/login.
//
// Response codes:
//   - 200 OK: login successful
//   - 400 Bad Request: invalid JSON or missing required fields
//   - 401 Unauthorized: invalid credentials (generic, doesn't reveal if email exists)
//   - 500 Internal Server Error: unexpected failure
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validateLoginRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.authService.Login(r.Context(), domainauth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, domainauth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, newAuthResponse(result))
}

// Guest handles POST /auth/guest. It creates a throwaway guest account and
// returns its token.
func (h *AuthHandler) Guest(w http.ResponseWriter, r *http.Request) {
	result, err := h.authService.CreateGuest(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "guest sign-in failed")
		return
	}
	writeJSON(w, http.StatusCreated, newAuthResponse(result))
}

func newAuthResponse(result *domainauth.AuthResult) AuthResponse {
	return AuthResponse{Token: result.Token, UserID: result.UserID, Role: string(result.Role)}
}

// validateRegisterRequest checks required fields for the register endpoint.
func validateRegisterRequest(req RegisterRequest) error {
	if req.Email == "" {
		return errors.New("email is required")
	}
	if req.Password == "" {
		return errors.New("password is required")
	}
	if req.DisplayName == "" {
		return errors.New("displayName is required")
	}
	return nil
}

// validateLoginRequest checks required fields for the login endpoint.
func validateLoginRequest(req LoginRequest) error {
	if req.Email == "" {
		return errors.New("email is required")
	}
	if req.Password == "" {
		return errors.New("password is required")
	}
	return nil
}
