package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/inamate/psdedit/internal/auth"
	"github.com/inamate/psdedit/internal/composite"
	"github.com/inamate/psdedit/internal/config"
	mw "github.com/inamate/psdedit/internal/middleware"
	"github.com/inamate/psdedit/internal/project"
	"github.com/inamate/psdedit/internal/session"
	"github.com/inamate/psdedit/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var st store.Store
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set, documents are kept in memory")
		st = store.NewMemory()
	} else {
		pool, err := store.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg, err := store.NewPostgres(ctx, pool)
		if err != nil {
			slog.Error("prepare database", "error", err)
			os.Exit(1)
		}
		st = pg
	}

	sampling := composite.ParseSampling(cfg.Sampling)

	authService := auth.NewService(cfg.AccessPasswordHash, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)
	if authService.Open() {
		slog.Warn("ACCESS_PASSWORD_HASH not set, editor is open to anyone")
	}

	hub := session.NewHub(st, sampling)
	go hub.Run()

	projectService := project.NewService(st, hub, sampling)
	projectHandler := project.NewHandler(projectService, cfg.MaxUploadBytes)

	origins := mw.ParseOrigins(cfg.AllowedOrigins)
	wsHandler := session.NewHandler(hub, authService, mw.OriginHosts(origins))

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)

	// Auth routes (public)
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)
	projectHandler.Routes(api)

	// WebSocket endpoint
	r.Handle("/ws/documents/{id}", wsHandler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr: addr,
		// CORS wraps the router so preflight requests are answered
		// before route matching.
		Handler:      mw.CORS(origins)(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop hub first to save all dirty documents
		slog.Info("saving all documents...")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "sampling", sampling)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
