package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pairchat/auth"
	grpcserver "pairchat/infrastructure/grpc/server"
	"pairchat/infrastructure/web"
	"pairchat/internal"
	"pairchat/moderation"
	"pairchat/observability"
	"pairchat/repositories"
	"pairchat/runtime"
	"pairchat/runtime/workers"
	"pairchat/services"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
)

const healthProbeInterval = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until a signal arrives.
// Returning instead of exiting lets the deferred database close run.
func run() error {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// Full-text index of user messages
	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = blugeWriter.Close()
	}()

	users := repositories.NewUserRepository(db, log)
	messages := repositories.NewSearchableMessageRepository(repositories.NewMessageRepository(db, log), blugeWriter, log)

	// Nobody is connected yet, whatever the store says from the last run
	reset, err := users.ResetPresence(time.Now().UTC())
	if err != nil {
		return fmt.Errorf("presence reset failed: %w", err)
	}
	log.Info("Presence reset", "identities", reset)

	// 3. Engine & services
	tokens := auth.NewTokenIssuer(config.AuthTokenSecret, config.AuthTokenDuration)
	monitor := observability.NewMonitor(log)
	filter, err := newContentFilter(config, log)
	if err != nil {
		return fmt.Errorf("moderation setup failed: %w", err)
	}
	engine := runtime.NewEngine(log, users, messages, auth.NewCredentialVerifier(tokens), monitor, runtime.Options{
		HistoryLimit:            config.HistoryLimit,
		MaxContentLength:        config.MaxContentLength,
		AllowAnonymousTyping:    config.AllowAnonymousTyping,
		ClearTypingOnDisconnect: config.ClearTypingOnDisconnect,
		ContentFilter:           filter,
	})

	server := web.NewServer(log, engine,
		services.NewAuthService(users, tokens, log),
		services.NewChatService(engine, users, messages),
		tokens, monitor,
		web.Options{
			Address:              config.Address(),
			ConnectionBufferSize: config.ConnectionBufferSize,
			WriteTimeout:         config.WriteTimeout,
			LoginTimeout:         config.LoginTimeout,
			CorsAllowedOrigins:   config.CorsAllowedOrigins,
		})

	health := grpcserver.NewHealthServer(log, config.HealthAddress(), func() error {
		if db.IsClosed() {
			return fmt.Errorf("database is closed")
		}
		return nil
	}, healthProbeInterval)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Supervised workers, Run blocks until they all stopped
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		server,
		health,
		workers.NewReporterWorker(log, engine, config.StatsInterval),
	)
	log.Info("Chat server starting", "address", config.Address(), "health", config.HealthAddress())
	sup.Run(ctx)

	log.Info("Program stopped cleanly")
	return nil
}

// newContentFilter merges the configured words with the dictionary
// directory, if any. No word at all disables moderation.
func newContentFilter(config internal.Config, log *slog.Logger) (*moderation.Filter, error) {
	words := config.BlockedWordList()
	if config.DictionaryDir != "" {
		dictionary, err := moderation.LoadDictionary(os.DirFS(config.DictionaryDir), ".")
		if err != nil {
			return nil, fmt.Errorf("loading dictionary: %w", err)
		}
		log.Info("Moderation dictionary loaded", "words", len(dictionary.Words), "languages", dictionary.Languages)
		words = append(words, dictionary.Words...)
	}
	return moderation.NewFilter(words, config.Mask())
}
