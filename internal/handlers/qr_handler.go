package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/readypay/backend/internal/services"
)

type QRHandler struct {
	service *services.QRService
}

func NewQRHandler(service *services.QRService) *QRHandler {
	return &QRHandler{service: service}
}

// ReceiveQR returns a QR code a payer can scan to send money to the account
// @Summary Receive QR Code
// @Description PNG QR code encoding receiverId, name and mobile
// @Tags QR
// @Produce png
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Success 200 {file} binary
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id}/qr [get]
func (h *QRHandler) ReceiveQR(w http.ResponseWriter, r *http.Request) {
	png, err := h.service.ReceiveQR(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			services.SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
			return
		}
		serverError(w, "qr", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
