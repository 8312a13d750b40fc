package main

import (
	"context"
	"estate-match/auth"
	"estate-match/infrastructure/http/server"
	"estate-match/repositories"
	"estate-match/runtime"
	"estate-match/services"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and owns the server lifecycle, so that deferred
// cleanups run before the process exits.
func run() error {
	// 1. Configuration & Logger
	// A missing .env is fine: the environment may already be set.
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, log, ctx))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}

	if log.Enabled(ctx, slog.LevelDebug) {
		endpoint := "/inspect"
		log.Info("Debug Badger inspector available",
			"url", fmt.Sprintf("http://localhost:%d%s", config.InspectorPort, endpoint))
		database.StartDebugServer(db, config.InspectorPort, endpoint, repositories.InspectRow)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 4. Repositories & broadcast gateway
	clock := func() time.Time { return time.Now().UTC() }
	store := repositories.NewStore(db, log, config.TxMaxRetries)
	users := repositories.NewUserRepository()
	catalog := repositories.NewCatalogRepository()
	conversations := repositories.NewConversationRepository()
	messages := repositories.NewMessageRepository()
	inquiries := repositories.NewInquiryRepository()
	registry := runtime.NewRegistry()
	broadcaster := runtime.NewBroadcaster(log, registry, config.SinkTimeout)

	pipeline := runtime.NewPipeline(log).
		InTx(runtime.NewConversationTimestampUpdater(conversations)).
		AfterCommit(runtime.NewBroadcastPublisher(log, broadcaster, clock))

	// 5. Services
	tokens := auth.NewTokenManager(config.AuthSecret, config.AuthTokenDuration)
	quota := services.NewQuotaService(log, store, users, catalog, conversations)
	conversation := services.NewConversationService(log, store, users, catalog, conversations, messages, inquiries, quota, clock)
	message := services.NewMessageService(log, store, users, catalog, conversations, messages, pipeline, config.LimitMessages, clock)
	svc := server.Services{
		Auth:         services.NewAuthService(log, store, users, catalog, tokens, clock),
		Catalog:      services.NewCatalogService(log, store, users, catalog, clock),
		Quota:        quota,
		Conversation: conversation,
		Message:      message,
		Inquiry: services.NewInquiryService(log, store, users, catalog, inquiries,
			conversations, conversation, message, clock),
		Partnership: services.NewPartnershipService(log, store, users, repositories.NewPartnershipRepository(), clock),
	}

	// 6. HTTP Server Setup
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := server.NewHTTPServer(address,
		server.NewServer(log, svc, registry, auth.NewInterceptor(tokens), clock).Handler())

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", clock())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err = httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	log.Info("Program stopped cleanly")
	return nil
}

func buildBadgerOpts(config Config, log *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if log.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG).WithBypassLockGuard(true)
	}
	return options.WithLoggingLevel(badger.WARNING)
}
