package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/campusledger/backend/docs"
	"github.com/campusledger/backend/internal/audit"
	"github.com/campusledger/backend/internal/config"
	"github.com/campusledger/backend/internal/database"
	"github.com/campusledger/backend/internal/handlers"
	"github.com/campusledger/backend/internal/services"
)

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply the schema before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load(cfgFile)

	docs.SwaggerInfo.Host = "localhost:" + cfg.Server.Port

	db := database.InitDatabase(cfg.Database)
	defer db.Close()

	if autoMigrate {
		if err := database.Migrate(cmd.Context(), db); err != nil {
			return err
		}
	}

	redisClient := database.InitRedis(cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}

	auditLogger := audit.NewAuditLogger()
	idempotency := services.NewIdempotencyStore(redisClient, cfg.Ledger.IdempotencyTTL)
	ledgerService := services.NewLedgerService(db, idempotency, auditLogger, cfg.Ledger.DefaultStatus)
	accountService := services.NewAccountService(db, auditLogger)

	if cfg.JWT.SecretKey == "" {
		log.Printf("[SERVER] JWT_SECRET_KEY not set, requests are attributed to %q", cfg.Ledger.SystemActor)
	}

	router := handlers.NewRouter(handlers.RouterOptions{
		Transactions:   handlers.NewTransactionHandler(ledgerService, cfg.Ledger.SystemActor),
		Accounts:       handlers.NewAccountHandler(accountService, cfg.Ledger.SystemActor),
		JWTSecret:      cfg.JWT.SecretKey,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		Health:         db.PingContext,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		log.Printf("[SERVER] Starting on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[SERVER] Failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[SERVER] Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[SERVER] Forced to shutdown: %v", err)
		return err
	}

	log.Println("[SERVER] Stopped")
	return nil
}
