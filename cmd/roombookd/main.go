package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/roombook/internal/application"
	"github.com/example/roombook/internal/config"
	httptransport "github.com/example/roombook/internal/http"
	"github.com/example/roombook/internal/logging"
	"github.com/example/roombook/internal/notify"
	"github.com/example/roombook/internal/persistence/sqlite"
	"github.com/example/roombook/internal/realtime"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	location, err := cfg.Location()
	if err != nil {
		logger.Error("failed to resolve timezone", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close database", "error", cerr)
		}
	}()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	if err := sqlite.Migrate(ctx, pool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	if cfg.SeedPath != "" {
		if err := seedDirectory(ctx, pool, cfg.SeedPath); err != nil {
			logger.Error("failed to seed directory", "error", err, "path", cfg.SeedPath)
			os.Exit(1)
		}
		logger.Info("directory seeded", "path", cfg.SeedPath)
	}

	employeeRepo := sqlite.NewEmployeeRepository(pool)
	bookingRepo := sqlite.NewBookingRepository(pool)
	accountRepo := sqlite.NewAccountRepository(pool)
	sessionRepo := sqlite.NewSessionRepository(pool)

	snapshots := realtime.NewSnapshotBuilder(bookingRepo, employeeRepo, location, cfg.SnapshotTTL)
	hub := realtime.NewHub(snapshots, logger)
	go hub.Run(ctx)

	var notifier application.Notifier
	if cfg.SMTP.Host != "" {
		mailer := notify.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
		dispatcher := notify.NewDispatcher(mailer, cfg.SMTP.Workers, 0, cfg.SMTP.Timeout, logger)
		defer dispatcher.Close()
		notifier = dispatcher
	} else {
		logger.Info("smtp host not configured, email notifications disabled")
	}

	bookingService := application.NewBookingService(bookingRepo, employeeRepo, hub, notifier, application.BookingServiceConfig{
		Rooms:       cfg.Rooms,
		Location:    location,
		IDGenerator: uuid.NewString,
		Now:         time.Now,
		Logger:      logger,
	})
	directoryService := application.NewDirectoryService(employeeRepo, cfg.SearchLimit, logger)
	authService := application.NewAuthService(
		accountRepo,
		sessionRepo,
		employeeRepo,
		application.VerifyPassword,
		uuid.NewString,
		time.Now,
		cfg.SessionTTL,
		logger,
	)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:      httptransport.NewAuthHandler(authService, logger),
		Bookings:  httptransport.NewBookingHandler(bookingService, logger),
		Directory: httptransport.NewDirectoryHandler(directoryService, logger),
		Schedules: httptransport.NewScheduleHandler(snapshots, logger),
		WebSocket: func(w http.ResponseWriter, r *http.Request) {
			realtime.ServeWS(hub, w, r, logger)
		},
		RequireSession: httptransport.RequireSession(authService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	// No WriteTimeout: websocket connections outlive any request deadline,
	// and the hub enforces its own write deadlines per frame.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("roombook API listening", "addr", server.Addr, "timezone", cfg.Timezone)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}
