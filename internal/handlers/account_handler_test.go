package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/readypay/backend/internal/audit"
	"github.com/readypay/backend/internal/auth"
	"github.com/readypay/backend/internal/config"
	"github.com/readypay/backend/internal/services"
	"github.com/readypay/backend/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testRevocationList struct {
	revoked map[string]bool
}

func (l *testRevocationList) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	l.revoked[token] = true
	return nil
}

func (l *testRevocationList) IsRevoked(ctx context.Context, token string) (bool, error) {
	return l.revoked[token], nil
}

type testServer struct {
	handler http.Handler
	store   *memory.AccountStore
	revoked *testRevocationList
}

func newTestServer(t *testing.T, grant int64) *testServer {
	t.Helper()

	st := memory.NewAccountStore()
	revoked := &testRevocationList{revoked: map[string]bool{}}
	sessions := auth.NewSessionIssuer("handler-secret", time.Hour, revoked)

	rules := config.DefaultRules()
	rules.ActivationGrant = grant

	service := services.NewAccountService(st, auth.NewBcryptHasher(bcrypt.MinCost), sessions, rules,
		services.WithAuditLogger(audit.NewLoggerTo(io.Discard)))

	router := NewRouter(
		NewAccountHandler(service, sessions),
		NewQRHandler(services.NewQRService(st)),
		sessions,
		config.ServerConfig{AllowedOrigins: []string{"http://localhost:5173"}},
	)

	return &testServer{handler: router, store: st, revoked: revoked}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *testServer) register(t *testing.T, email, mobile string) string {
	t.Helper()

	w := s.do(t, http.MethodPost, "/register", "", map[string]string{
		"name":   "Test User",
		"pin":    "12345",
		"mobile": mobile,
		"email":  email,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Acknowledged bool   `json:"acknowledged"`
		InsertedID   string `json:"insertedId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Acknowledged)
	return resp.InsertedID
}

func (s *testServer) login(t *testing.T, identifier string) string {
	t.Helper()

	w := s.do(t, http.MethodPost, "/login", "", map[string]string{"identifier": identifier, "pin": "12345"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var resp services.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Error
}

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(t, 40)

	w := s.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Mobile Financial Service is Started", w.Body.String())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestRegister(t *testing.T) {
	s := newTestServer(t, 40)
	s.register(t, "alice@example.com", "01700000001")

	t.Run("duplicate email", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/register", "", map[string]string{
			"name": "Again", "pin": "9999", "mobile": "01700000002", "email": "alice@example.com",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "User already exists", errorMessage(t, w))
	})

	t.Run("validation failure", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/register", "", map[string]string{
			"name": "Bob", "pin": "12ab", "mobile": "01700000003", "email": "bob@example.com",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp services.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Validation failed", resp.Error)
		assert.Contains(t, resp.Details, "pin")
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/register", "", `{"name":"Bob","pin":"1234","mobile":"01700000003","email":"bob@example.com","balance":1000}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid request body", errorMessage(t, w))
	})

	t.Run("trailing data is rejected", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/register", "", `{"name":"Bob","pin":"1234","mobile":"01700000003","email":"bob@example.com"}{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("pin is never returned", func(t *testing.T) {
		id := s.register(t, "carol@example.com", "01700000004")
		account, err := s.store.FindByID(context.Background(), id)
		require.NoError(t, err)

		raw, err := json.Marshal(account)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), account.PIN)
	})
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, 40)
	s.register(t, "alice@example.com", "01700000001")

	t.Run("by email and mobile", func(t *testing.T) {
		s.login(t, "alice@example.com")
		s.login(t, "01700000001")
	})

	t.Run("unknown identifier", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/login", "", map[string]string{"identifier": "nobody@example.com", "pin": "12345"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid email or phone number", errorMessage(t, w))
	})

	t.Run("wrong pin", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/login", "", map[string]string{"identifier": "alice@example.com", "pin": "00000"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid PIN", errorMessage(t, w))
	})
}

func TestIssueToken(t *testing.T) {
	s := newTestServer(t, 40)

	w := s.do(t, http.MethodPost, "/jwt", "", map[string]any{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)

	w = s.do(t, http.MethodPost, "/jwt", "", `[1,2,3]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGuardedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, 40)
	id := s.register(t, "alice@example.com", "01700000001")

	routes := []struct {
		method, path string
	}{
		{http.MethodPatch, "/activate/" + id},
		{http.MethodPost, "/send-money"},
		{http.MethodGet, "/accounts/" + id + "/ledger"},
		{http.MethodGet, "/accounts/" + id + "/qr"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			w := s.do(t, route.method, route.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "unauthorized access", errorMessage(t, w))

			w = s.do(t, route.method, route.path, "garbage", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestActivate(t *testing.T) {
	s := newTestServer(t, 40)
	s.register(t, "admin@example.com", "01700000000")
	target := s.register(t, "alice@example.com", "01700000001")

	// any valid session may activate; no admin role is required
	token := s.login(t, "admin@example.com")

	w := s.do(t, http.MethodPatch, "/activate/"+target, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"acknowledged":true,"matchedCount":1,"modifiedCount":1}`, w.Body.String())

	account, err := s.store.FindByID(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, int64(40), account.Balance)

	w = s.do(t, http.MethodPatch, "/activate/7f1c2a40-0000-4000-8000-000000000000", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPatch, "/activate/not-an-id", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSendMoney(t *testing.T) {
	s := newTestServer(t, 1000)
	sender := s.register(t, "alice@example.com", "01700000001")
	receiver := s.register(t, "bob@example.com", "01700000002")
	token := s.login(t, "alice@example.com")

	for _, id := range []string{sender, receiver} {
		w := s.do(t, http.MethodPatch, "/activate/"+id, token, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	send := func(amount int64, pin string) *httptest.ResponseRecorder {
		return s.do(t, http.MethodPost, "/send-money", token, map[string]any{
			"senderId":   sender,
			"receiverId": receiver,
			"amount":     amount,
			"pin":        pin,
		})
	}

	t.Run("below minimum", func(t *testing.T) {
		w := send(49, "12345")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Minimum transaction amount is 50 Taka", errorMessage(t, w))
	})

	t.Run("amount too large", func(t *testing.T) {
		for _, amount := range []int64{math.MaxInt64, math.MaxInt64 - 2} {
			w := send(amount, "12345")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Transaction amount is too large", errorMessage(t, w))
		}

		for _, id := range []string{sender, receiver} {
			account, err := s.store.FindByID(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, int64(1000), account.Balance)
		}
	})

	t.Run("with fee", func(t *testing.T) {
		w := send(101, "12345")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp transferResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Transaction successful", resp.Message)
		assert.Equal(t, int64(5), resp.Fee)
		assert.NotEmpty(t, resp.TransactionID)
	})

	t.Run("wrong pin", func(t *testing.T) {
		w := send(60, "00000")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid PIN", errorMessage(t, w))
	})

	t.Run("insufficient balance", func(t *testing.T) {
		w := send(5000, "12345")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Insufficient balance", errorMessage(t, w))
	})

	t.Run("unknown receiver", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/send-money", token, map[string]any{
			"senderId":   sender,
			"receiverId": "7f1c2a40-0000-4000-8000-000000000000",
			"amount":     60,
			"pin":        "12345",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("fractional amount is a bad request", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/send-money", token, `{"senderId":"a","receiverId":"b","amount":50.5,"pin":"12345"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("ledger lists newest first", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/accounts/"+sender+"/ledger?limit=10", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var entries []struct {
			EntryType string `json:"entryType"`
			Amount    int64  `json:"amount"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
		require.Len(t, entries, 2)
		assert.Equal(t, "FEE", entries[0].EntryType)
		assert.Equal(t, "DEBIT", entries[1].EntryType)
		assert.Equal(t, int64(-101), entries[1].Amount)
	})

	t.Run("bad ledger limit", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/accounts/"+sender+"/ledger?limit=zero", token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("balances", func(t *testing.T) {
		a, err := s.store.FindByID(context.Background(), sender)
		require.NoError(t, err)
		b, err := s.store.FindByID(context.Background(), receiver)
		require.NoError(t, err)
		assert.Equal(t, int64(894), a.Balance)
		assert.Equal(t, int64(1101), b.Balance)
	})
}

func TestReceiveQR(t *testing.T) {
	s := newTestServer(t, 40)
	id := s.register(t, "alice@example.com", "01700000001")
	token := s.login(t, "alice@example.com")

	w := s.do(t, http.MethodGet, "/accounts/"+id+"/qr", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	w = s.do(t, http.MethodGet, "/accounts/7f1c2a40-0000-4000-8000-000000000000/qr", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t, 40)
	id := s.register(t, "alice@example.com", "01700000001")
	token := s.login(t, "alice@example.com")

	w := s.do(t, http.MethodGet, "/accounts/"+id+"/ledger", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Logged out successfully"}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/accounts/"+id+"/ledger", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/logout", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogoutIgnoresUnsignedTokens(t *testing.T) {
	s := newTestServer(t, 40)

	forged, err := auth.NewSessionIssuer("other-secret", time.Hour, nil).IssueForUser("someone")
	require.NoError(t, err)

	for _, token := range []string{"junk", forged} {
		w := s.do(t, http.MethodPost, "/logout", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"Logged out successfully"}`, w.Body.String())
	}
	assert.Empty(t, s.revoked.revoked)
}
