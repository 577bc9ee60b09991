package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/readypay/backend/internal/auth"
	"github.com/readypay/backend/internal/config"
	mW "github.com/readypay/backend/internal/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/readypay/backend/docs"
)

// NewRouter wires every route. Activation, transfer, ledger and QR routes sit
// behind the session guard.
func NewRouter(accounts *AccountHandler, qr *QRHandler, sessions auth.TokenIssuer, cfg config.ServerConfig) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(timeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/", accounts.Root)
	r.Get("/health", accounts.Health)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Post("/register", accounts.Register)
	r.Post("/login", accounts.Login)
	r.Post("/logout", accounts.Logout)
	r.Post("/jwt", accounts.IssueToken)

	r.Group(func(r chi.Router) {
		r.Use(mW.Auth(sessions))

		r.Patch("/activate/{id}", accounts.Activate)
		r.Post("/send-money", accounts.SendMoney)
		r.Get("/accounts/{id}/ledger", accounts.Ledger)
		r.Get("/accounts/{id}/qr", qr.ReceiveQR)
	})

	return r
}
