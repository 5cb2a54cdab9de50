package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	mW "github.com/campusledger/backend/internal/middleware"
	"github.com/campusledger/backend/internal/services"
)

// RouterOptions carries the handlers and cross-cutting settings of the API.
type RouterOptions struct {
	Transactions   *TransactionHandler
	Accounts       *AccountHandler
	JWTSecret      string
	AllowedOrigins []string
	RequestTimeout time.Duration
	// Health reports whether the backing store is reachable.
	Health func(ctx context.Context) error
}

func NewRouter(opts RouterOptions) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"https://*", "http://*"}
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mW.SecurityHeaders)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(opts.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if opts.Health != nil {
			if err := opts.Health(r.Context()); err != nil {
				services.SendCodedErrorResponse(w, "Database unreachable", http.StatusServiceUnavailable, CodeInternal, nil)
				return
			}
		}
		services.SendResponse(w, http.StatusOK, "healthy", nil)
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Group(func(r chi.Router) {
		r.Use(mW.ActorAuth(opts.JWTSecret))

		if h := opts.Transactions; h != nil {
			r.Route("/Transaction", func(r chi.Router) {
				r.Post("/AddTransaction", h.AddTransaction)
				r.Put("/UpdateTransaction", h.UpdateTransaction)
				r.Delete("/DeleteTransaction", h.DeleteTransaction)
				r.Get("/GetAllTransactions", h.GetAllTransactions)
				r.Get("/GetTransactionById", h.GetTransactionById)
			})
		}

		if h := opts.Accounts; h != nil {
			r.Route("/AccountGroup", func(r chi.Router) {
				r.Post("/AddAccountGroup", h.AddAccountGroup)
				r.Put("/UpdateAccountGroup", h.UpdateAccountGroup)
				r.Delete("/DeleteAccountGroup", h.DeleteAccountGroup)
				r.Get("/GetAllAccountGroups", h.GetAllAccountGroups)
				r.Get("/GetAccountGroupById", h.GetAccountGroupById)
			})

			r.Route("/ParentAccount", func(r chi.Router) {
				r.Post("/AddParentAccount", h.AddParentAccount)
				r.Put("/UpdateParentAccount", h.UpdateParentAccount)
				r.Delete("/DeleteParentAccount", h.DeleteParentAccount)
				r.Get("/GetAllParentAccounts", h.GetAllParentAccounts)
				r.Get("/GetParentAccountById", h.GetParentAccountById)
			})

			r.Route("/Account", func(r chi.Router) {
				r.Post("/AddAccount", h.AddAccount)
				r.Put("/UpdateAccount", h.UpdateAccount)
				r.Delete("/DeleteAccount", h.DeleteAccount)
				r.Get("/GetAllAccounts", h.GetAllAccounts)
				r.Get("/GetAccountById", h.GetAccountById)
			})
		}
	})

	return r
}
