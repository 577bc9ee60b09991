package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/readypay/backend/internal/auth"
	"github.com/readypay/backend/internal/middleware"
	"github.com/readypay/backend/internal/services"
)

const (
	rootMessage     = "Mobile Financial Service is Started"
	serverErrorText = "Server error"
)

type AccountHandler struct {
	service   *services.AccountService
	sessions  auth.TokenIssuer
	validator *services.ValidationHelper
}

func NewAccountHandler(service *services.AccountService, sessions auth.TokenIssuer) *AccountHandler {
	return &AccountHandler{
		service:   service,
		sessions:  sessions,
		validator: services.NewValidationHelper(),
	}
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	PIN        string `json:"pin" validate:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type registerResponse struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

type transferResponse struct {
	Message       string `json:"message"`
	Fee           int64  `json:"fee"`
	TransactionID string `json:"transactionId"`
}

// Root answers the liveness probe.
func (h *AccountHandler) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rootMessage))
}

func (h *AccountHandler) Health(w http.ResponseWriter, r *http.Request) {
	services.SendJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Register creates a new pending account
// @Summary Register account
// @Description Create a pending account with a zero balance
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body services.RegisterInput true "Registration request"
// @Success 200 {object} registerResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /register [post]
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if !decodeJSON(w, r, &req, true) {
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	id, err := h.service.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrConflict) {
			services.SendErrorResponse(w, "User already exists", http.StatusBadRequest, nil)
			return
		}
		serverError(w, "register", err)
		return
	}

	services.SendJSON(w, http.StatusOK, registerResponse{Acknowledged: true, InsertedID: id})
}

// Login exchanges an identifier and PIN for a session token
// @Summary Login
// @Description Authenticate with email or mobile and PIN
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body loginRequest true "Login request"
// @Success 200 {object} tokenResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 429 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /login [post]
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	token, err := h.service.Login(r.Context(), req.Identifier, req.PIN)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			services.SendErrorResponse(w, "Invalid email or phone number", http.StatusBadRequest, nil)
		case errors.Is(err, services.ErrUnauthorized):
			services.SendErrorResponse(w, "Invalid PIN", http.StatusBadRequest, nil)
		case errors.Is(err, services.ErrTooManyAttempts):
			services.SendErrorResponse(w, "Too many failed login attempts, try again later", http.StatusTooManyRequests, nil)
		default:
			serverError(w, "login", err)
		}
		return
	}

	services.SendJSON(w, http.StatusOK, tokenResponse{Token: token})
}

// Logout always succeeds; a presented bearer token with a valid signature
// is revoked when a revocation list is configured.
// @Summary Logout
// @Tags Accounts
// @Produce json
// @Success 200 {object} messageResponse
// @Router /logout [post]
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := middleware.BearerToken(r); ok {
		err := h.sessions.Revoke(r.Context(), token)
		if err != nil && !errors.Is(err, auth.ErrInvalidToken) {
			log.Printf("[AUTH] Failed to revoke token on logout: %v", err)
		}
	}

	services.SendJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

// IssueToken signs arbitrary claims with the session expiry
// @Summary Issue token
// @Description Development helper that signs the posted claims
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body object true "Claims"
// @Success 200 {object} tokenResponse
// @Failure 400 {object} services.ErrorResponse
// @Router /jwt [post]
func (h *AccountHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var claims map[string]any
	if !decodeJSON(w, r, &claims, false) {
		return
	}
	if claims == nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	token, err := h.sessions.Sign(claims)
	if err != nil {
		serverError(w, "jwt", err)
		return
	}

	services.SendJSON(w, http.StatusOK, tokenResponse{Token: token})
}

// Activate sets an account active with the activation grant
// @Summary Activate account
// @Description Any valid session may activate an account
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Success 200 {object} models.ActivationResult
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /activate/{id} [patch]
func (h *AccountHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.service.Activate(r.Context(), id, middleware.UserID(r.Context()))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			services.SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
			return
		}
		serverError(w, "activate", err)
		return
	}

	services.SendJSON(w, http.StatusOK, result)
}

// SendMoney transfers money between two accounts
// @Summary Send money
// @Description Minimum 50; amounts over 100 carry a fee of 5 that is credited to no one
// @Tags Transfers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.TransferInput true "Transfer request"
// @Success 200 {object} transferResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /send-money [post]
func (h *AccountHandler) SendMoney(w http.ResponseWriter, r *http.Request) {
	var req services.TransferInput
	if !decodeJSON(w, r, &req, true) {
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.service.Transfer(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAmountTooLarge):
			services.SendErrorResponse(w, "Transaction amount is too large", http.StatusBadRequest, nil)
		case errors.Is(err, services.ErrInvalidAmount):
			services.SendErrorResponse(w, "Minimum transaction amount is 50 Taka", http.StatusBadRequest, nil)
		case errors.Is(err, services.ErrNotFound):
			services.SendErrorResponse(w, "Sender or receiver not found", http.StatusNotFound, nil)
		case errors.Is(err, services.ErrUnauthorized):
			services.SendErrorResponse(w, "Invalid PIN", http.StatusBadRequest, nil)
		case errors.Is(err, services.ErrInsufficientFunds):
			services.SendErrorResponse(w, "Insufficient balance", http.StatusBadRequest, nil)
		default:
			serverError(w, "send-money", err)
		}
		return
	}

	services.SendJSON(w, http.StatusOK, transferResponse{
		Message:       "Transaction successful",
		Fee:           result.Fee,
		TransactionID: result.TransactionID,
	})
}

// Ledger lists an account's ledger entries
// @Summary Account ledger
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Param limit query int false "Maximum entries (default 50)"
// @Success 200 {array} models.LedgerEntry
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id}/ledger [get]
func (h *AccountHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			services.SendErrorResponse(w, "limit must be a positive integer", http.StatusBadRequest, nil)
			return
		}
		limit = parsed
	}

	entries, err := h.service.Ledger(r.Context(), id, limit)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			services.SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
			return
		}
		serverError(w, "ledger", err)
		return
	}

	services.SendJSON(w, http.StatusOK, entries)
}

func serverError(w http.ResponseWriter, op string, err error) {
	log.Printf("[HTTP] %s failed: %v", op, err)
	services.SendErrorResponse(w, serverErrorText, http.StatusInternalServerError, nil)
}
