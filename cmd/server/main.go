package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmvega/xlsx-loader/internal/config"
	"github.com/jmvega/xlsx-loader/internal/db"
	"github.com/jmvega/xlsx-loader/internal/ingestion"
	"github.com/jmvega/xlsx-loader/internal/logging"
	appmiddleware "github.com/jmvega/xlsx-loader/internal/middleware"
	"github.com/jmvega/xlsx-loader/internal/notify"
	"github.com/jmvega/xlsx-loader/internal/people"
	"github.com/jmvega/xlsx-loader/internal/repository"
	"github.com/jmvega/xlsx-loader/internal/tasks"
	"github.com/jmvega/xlsx-loader/internal/web"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	// Setup database connection
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, conn.Pool, cfg.MigrationsPath); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Create repositories
	personaRepo := repository.NewPersonaRepository(conn)
	runRepo := repository.NewLoadRunRepository(conn)

	// Wire the pipeline
	hub := notify.NewHub()
	runner := tasks.NewRunner(cfg.TaskQueueSize, cfg.TaskTimeLimit)
	runner.Start()
	defer runner.Stop()

	tracker := ingestion.NewTracker(runRepo)
	loadService := ingestion.NewService(personaRepo, tracker, hub, runner, cfg.AsyncThreshold)
	loadHandler := ingestion.NewHandler(loadService, tracker, cfg.MaxUploadSize)
	peopleHandler := people.NewHandler(people.NewService(personaRepo))

	// Setup routes
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(appmiddleware.Logging)
	router.Use(chimiddleware.Recoverer)

	router.Route("/api", func(r chi.Router) {
		r.Mount("/", loadHandler.Routes())
		r.Mount("/personas", peopleHandler.Routes())
		r.Get("/ws", notify.WebsocketHandler(hub))
	})

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		web.WriteJSON(w, http.StatusOK, map[string]string{
			"nombre": "XLSX Loader API",
			"estado": "online",
		})
	})
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		web.WriteJSON(w, http.StatusOK, map[string]string{
			"estado":   "healthy",
			"servicio": "XLSX Loader API",
		})
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      corsHandler.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited")
}
