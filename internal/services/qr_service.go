package services

import (
	"context"
	"encoding/json"

	"github.com/readypay/backend/internal/store"
	"github.com/skip2/go-qrcode"
)

const defaultQRSize = 256

// ReceivePayload is what a receive QR code encodes. A payer app scans it to
// prefill receiverId on send-money.
type ReceivePayload struct {
	ReceiverID string `json:"receiverId"`
	Name       string `json:"name"`
	Mobile     string `json:"mobile"`
}

type QRService struct {
	store store.AccountStore
	size  int
}

func NewQRService(st store.AccountStore) *QRService {
	return &QRService{
		store: st,
		size:  defaultQRSize,
	}
}

// ReceiveQR renders the account's receive payload as a PNG QR code.
func (s *QRService) ReceiveQR(ctx context.Context, accountID string) ([]byte, error) {
	account, err := findAccount(ctx, s.store, accountID)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(ReceivePayload{
		ReceiverID: account.ID,
		Name:       account.Name,
		Mobile:     account.Mobile,
	})
	if err != nil {
		return nil, err
	}

	return qrcode.Encode(string(payload), qrcode.Medium, s.size)
}
