package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/eventradar/notify-engine/internal/config"
	"github.com/eventradar/notify-engine/internal/dispatch"
	"github.com/eventradar/notify-engine/internal/engine"
	"github.com/eventradar/notify-engine/internal/gateway"
	"github.com/eventradar/notify-engine/internal/handlers"
	"github.com/eventradar/notify-engine/internal/matching"
	"github.com/eventradar/notify-engine/internal/middleware"
	"github.com/eventradar/notify-engine/internal/migration"
	"github.com/eventradar/notify-engine/internal/producer"
	"github.com/eventradar/notify-engine/internal/repository"
	"github.com/eventradar/notify-engine/internal/routes"
	"github.com/eventradar/notify-engine/internal/temporal"
	"github.com/eventradar/notify-engine/internal/temporal/activities"
	"github.com/eventradar/notify-engine/internal/temporal/workflows"

	_ "github.com/lib/pq" // PostgreSQL driver
	tc "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

type application struct {
	config         *config.Config
	db             *sql.DB
	temporalClient tc.Client
	logger         zerolog.Logger
	engine         *engine.Engine
	staleTokens    producer.StaleTokenPublisher
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	// Load configuration.
	cfg := config.Load()

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	migration.RunMigrations(cfg.DatabaseURL)

	// Repositories.
	ledgerRepo := repository.NewLedgerRepository(db)
	userDirectory := repository.NewUserDirectory(db)

	// Stale-token signal producer.
	staleTokens := buildStaleTokenPublisher(cfg, logger)
	defer staleTokens.Close()

	// Matching and dispatch pipeline.
	pushSender := gateway.NewClient(cfg.Gateway, cfg.Engine.PerSendTimeout, logger)
	dispatcher := dispatch.NewDispatcher(pushSender, ledgerRepo, staleTokens, dispatch.Options{
		Concurrency:    cfg.Engine.DispatchConcurrency,
		PerSendTimeout: cfg.Engine.PerSendTimeout,
		RetryCount:     cfg.Engine.RetryCount,
		RateLimit:      cfg.Engine.GatewayRateLimit,
	}, logger)

	matchEngine := engine.New(
		matching.NewCandidateFinder(userDirectory, cfg.Engine.RadiusKm, logger),
		matching.NewPreferenceFilter(logger),
		matching.NewAdmissionController(ledgerRepo, cfg.Engine.DailyLimit, logger),
		dispatcher,
		logger,
	)

	// Initialize Temporal client.
	temporalClient, err := tc.Dial(tc.Options{
		Logger: temporal.NewLogAdapter(logger),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Unable to create Temporal client")
	}
	defer temporalClient.Close()

	app := &application{
		config:         cfg,
		db:             db,
		temporalClient: temporalClient,
		logger:         logger,
		engine:         matchEngine,
		staleTokens:    staleTokens,
	}

	// Start the Temporal worker in a separate goroutine.
	temporalWorker := app.startTemporalWorker(logger)

	// Initialize the HTTP router and middleware.
	router := app.initRouter(logger)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins([]string{"http://localhost:3000"}),
		h.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, temporalWorker, logger)

	logger.Info().Msg("Application terminated.")
}

func buildStaleTokenPublisher(cfg *config.Config, logger zerolog.Logger) producer.StaleTokenPublisher {
	if cfg.Kafka.Brokers == "" {
		logger.Warn().Msg("No Kafka brokers configured, stale-token signals will be logged and dropped")
		return producer.NewNopPublisher(logger)
	}
	publisher, err := producer.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.StaleTokenTopic, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Kafka publisher")
	}
	return publisher
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(logger zerolog.Logger) http.Handler {
	eventRepo := repository.NewEventRepository(app.db)
	ledgerRepo := repository.NewLedgerRepository(app.db)

	eventHandler := handlers.NewEventHandler(eventRepo, app.temporalClient, logger)
	attemptsHandler := handlers.NewAttemptsHandler(ledgerRepo, logger)

	router := mux.NewRouter()
	routes.RegisterRoutes(router, app.config.JWTSecret, eventHandler, attemptsHandler)
	return router
}

func (app *application) startTemporalWorker(logger zerolog.Logger) worker.Worker {
	activityImpl := &activities.Activities{
		Events: repository.NewEventRepository(app.db),
		Engine: app.engine,
	}

	w := worker.New(app.temporalClient, temporal.TaskQueueName, worker.Options{})

	w.RegisterWorkflow(workflows.MatchingWorkflow)
	w.RegisterActivity(activityImpl)

	// Start the worker in a goroutine so it doesn't block.
	go func() {
		logger.Info().Msg("Starting Temporal worker...")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("Unable to start worker")
		}
	}()

	return w
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, temporalWorker worker.Worker, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	// Stop the Temporal worker.
	logger.Info().Msg("Stopping Temporal worker...")
	temporalWorker.Stop()
	logger.Info().Msg("Temporal worker stopped.")
}
