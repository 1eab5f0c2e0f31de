package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/tourbooking/reservation-engine/internal/config"
	"github.com/tourbooking/reservation-engine/internal/database"
	"github.com/tourbooking/reservation-engine/internal/handlers"
	"github.com/tourbooking/reservation-engine/internal/middleware"
	"github.com/tourbooking/reservation-engine/internal/services"
	"github.com/tourbooking/reservation-engine/pkg/events"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

// stores groups the persistence backends the services depend on
type stores struct {
	catalog  services.DestinationCatalog
	slots    services.SlotStore
	bookings services.BookingStore
	payments services.PaymentStore
}

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting tour reservation engine")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Persistence
	var (
		st stores
		db *sqlx.DB
	)
	if cfg.UsesDatabase() {
		logger.Info("Connecting to database...")
		db, err = database.NewConnection(cfg.Database)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		logger.Info("Database connection established")

		if cfg.Database.RunMigrations {
			applied, err := database.RunMigrations(db, cfg.Database.MigrationsDir, logger)
			if err != nil {
				logger.Fatalf("Failed to run migrations: %v", err)
			}
			logger.WithField("applied", applied).Info("Migrations complete")
		}

		st = stores{
			catalog:  database.NewDestinationRepository(db),
			slots:    database.NewTourSlotRepository(db),
			bookings: database.NewBookingRepository(db),
			payments: database.NewPaymentRepository(db),
		}
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
		memory := database.NewMemoryStore()
		seedDestinations(memory)
		st = stores{catalog: memory, slots: memory, bookings: memory, payments: memory}
	}

	// Domain events
	var publisher events.Publisher
	if cfg.Events.BrokerURL != "" {
		rabbit, err := events.NewRabbitPublisher(cfg.Events.BrokerURL, cfg.Events.Exchange)
		if err != nil {
			logger.Fatalf("Failed to connect to message broker: %v", err)
		}
		publisher = rabbit
		logger.WithField("exchange", cfg.Events.Exchange).Info("Publishing booking events to RabbitMQ")
	} else {
		publisher = events.NewLogPublisher(logger)
		logger.Info("RABBITMQ_URL not set, booking events will be logged")
	}
	defer publisher.Close()

	// Initialize services
	logger.Info("Initializing services...")
	ledger := services.NewInventoryLedger(st.catalog, st.slots, cfg.Ledger.MaxRetries, logger)
	processor := services.NewPaymentProcessor(
		st.payments,
		services.NewSimulatedGateways(cfg.Payment.ProcessingLatency),
		cfg.Payment.Currency,
		logger,
	)
	bookingService := services.NewBookingService(
		ledger,
		st.catalog,
		st.bookings,
		st.payments,
		processor,
		publisher,
		services.BookingServiceConfig{Currency: cfg.Payment.Currency},
		logger,
	)
	receiptService := services.NewReceiptService(st.bookings, st.catalog, logger)

	var cronService *services.CronService
	if cfg.Ledger.AuditEnabled {
		audit := services.NewLedgerAuditService(st.slots, st.bookings, logger)
		cronService = services.NewCronService(audit, cfg.Ledger.AuditSchedule, logger)
		if err := cronService.Start(); err != nil {
			logger.Fatalf("Failed to start cron service: %v", err)
		}
	}

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORS.AllowedOrigins,
		AllowMethods:  cfg.CORS.AllowedMethods,
		AllowHeaders:  append(cfg.CORS.AllowedHeaders, "Idempotency-Key", middleware.RequestIDHeader),
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	handlers.RegisterRoutes(router,
		handlers.NewAvailabilityHandler(ledger, logger),
		handlers.NewBookingHandler(bookingService, receiptService, logger),
	)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
		// Payments wait on the gateway; leave room beyond its latency.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15*time.Second + cfg.Payment.ProcessingLatency,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if cronService != nil {
		cronService.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}
