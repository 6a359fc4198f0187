package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"boulder-editor/internal/catalogue"
	"boulder-editor/internal/config"
	"boulder-editor/internal/handler"
	"boulder-editor/internal/middleware"
	"boulder-editor/internal/repository"
	"boulder-editor/internal/service"
	"boulder-editor/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.Logging.Apply()

	store, err := repository.NewBlobStore(cfg)
	if err != nil {
		logrus.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collectionService := service.NewCollectionService(store, cfg.Storage.Key)
	if err := collectionService.Load(ctx); err != nil {
		logrus.WithError(err).Warn("Starting with an empty collection")
	}

	wsManager := websocket.NewManager(
		cfg.WebSocket.MaxClients,
		cfg.WebSocket.WriteWait,
		cfg.WebSocket.PongWait,
		cfg.WebSocket.PingPeriod,
		cfg.WebSocket.MaxMessageSize,
	)

	provider := catalogue.NewProvider(catalogue.Source{
		Path:         cfg.Catalogue.Path,
		URL:          cfg.Catalogue.URL,
		FetchTimeout: cfg.Catalogue.FetchTimeout,
	})
	sessionService := service.NewSessionService(provider, collectionService, wsManager)
	provider.OnChange(sessionService.CatalogueChanged)

	if _, err := provider.Reload(ctx); err != nil && !errors.Is(err, catalogue.ErrNoSource) {
		logrus.WithError(err).Warn("Holds data not loaded; upload it or retry /api/v1/catalogue/reload")
	}

	if cfg.Catalogue.Watch && cfg.Catalogue.Path != "" {
		watcher, err := catalogue.NewWatcher(provider, cfg.Catalogue.Path, catalogue.DefaultDebounce)
		if err != nil {
			logrus.WithError(err).Warn("Holds data watcher disabled")
		} else {
			watcher.Start(ctx)
			defer watcher.Stop()
		}
	}

	authService := service.NewAuthService(cfg.Auth.PassphraseHash, cfg.Auth.JWTSecret, cfg.Auth.JWTExpiration)

	wsMessageHandler := handler.NewWebSocketMessageHandler(sessionService, wsManager)
	wsManager.SetMessageHandler(wsMessageHandler)
	go wsManager.Run(ctx)

	sessionHandler := handler.NewSessionHandler(sessionService)
	boulderHandler := handler.NewBoulderHandler(collectionService, sessionService)
	catalogueHandler := handler.NewCatalogueHandler(provider)
	authHandler := handler.NewAuthHandler(authService)
	wsHandler := handler.NewWebSocketHandler(wsManager, authService, cfg.WebSocket.ReadBufferSize, cfg.WebSocket.WriteBufferSize)

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORSMiddleware(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(authService))

	protected.HandleFunc("/session", sessionHandler.Get).Methods("GET", "OPTIONS")
	protected.HandleFunc("/session/new", sessionHandler.New).Methods("POST", "OPTIONS")
	protected.HandleFunc("/session/holds/{holdId}/tap", sessionHandler.TapHold).Methods("POST", "OPTIONS")
	protected.HandleFunc("/session/holds/{holdId}/start", sessionHandler.MarkStart).Methods("POST", "OPTIONS")
	protected.HandleFunc("/session/holds/{holdId}/finish", sessionHandler.MarkFinish).Methods("POST", "OPTIONS")
	protected.HandleFunc("/session/holds/{holdId}", sessionHandler.RemoveHold).Methods("DELETE", "OPTIONS")
	protected.HandleFunc("/session/start", sessionHandler.MarkStart).Methods("POST", "OPTIONS")
	protected.HandleFunc("/session/finish", sessionHandler.MarkFinish).Methods("POST", "OPTIONS")
	protected.HandleFunc("/session/remove", sessionHandler.RemoveHold).Methods("POST", "OPTIONS")
	protected.HandleFunc("/session/metadata", sessionHandler.UpdateMetadata).Methods("PUT", "OPTIONS")
	protected.HandleFunc("/session/validation", sessionHandler.Validate).Methods("GET", "OPTIONS")
	protected.HandleFunc("/session/save", sessionHandler.Save).Methods("POST", "OPTIONS")
	protected.HandleFunc("/session/load/{id}", sessionHandler.Load).Methods("POST", "OPTIONS")

	protected.HandleFunc("/boulders", boulderHandler.List).Methods("GET", "OPTIONS")
	protected.HandleFunc("/boulders/recent", boulderHandler.Recent).Methods("GET", "OPTIONS")
	protected.HandleFunc("/boulders/export", boulderHandler.Export).Methods("GET", "OPTIONS")
	protected.HandleFunc("/boulders/import", boulderHandler.Import).Methods("POST", "OPTIONS")
	protected.HandleFunc("/boulders/{id}", boulderHandler.Get).Methods("GET", "OPTIONS")
	protected.HandleFunc("/boulders/{id}", boulderHandler.Delete).Methods("DELETE", "OPTIONS")

	protected.HandleFunc("/catalogue", catalogueHandler.Get).Methods("GET", "OPTIONS")
	protected.HandleFunc("/catalogue", catalogueHandler.Upload).Methods("POST", "OPTIONS")
	protected.HandleFunc("/catalogue/reload", catalogueHandler.Reload).Methods("POST", "OPTIONS")

	r.HandleFunc("/ws", wsHandler.HandleConnection)

	if cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}
	r.HandleFunc("/health", healthHandler).Methods("GET")

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"addr":    addr,
			"env":     cfg.Server.Env,
			"storage": cfg.Storage.Type,
			"auth":    authService.Enabled(),
		}).Info("Starting boulder editor server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}
	cancel()

	logrus.Info("Server stopped gracefully")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"boulder-editor"}`))
}
