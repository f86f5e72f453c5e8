package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kriviai/chat-web/internal/authgate"
	"github.com/kriviai/chat-web/internal/chat"
	"github.com/kriviai/chat-web/internal/config"
	"github.com/kriviai/chat-web/internal/logger"
	"github.com/kriviai/chat-web/internal/web"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig

	log := logger.New(logger.FromConfig(cfg.LogLevel, cfg.LogFormat))

	log.Info("setting gin mode", "mode", cfg.GinMode)
	gin.SetMode(cfg.GinMode)

	// One pooled client per remote collaborator class. The stream client
	// carries no global timeout: turns are bounded per request by the
	// controller's read-timeout context.
	authClient := &http.Client{Timeout: cfg.AuthRequestTimeout}
	historyClient := &http.Client{Timeout: cfg.HistoryTimeout}
	streamClient := &http.Client{}

	gate := authgate.NewService(authgate.Options{
		CheckURL:   cfg.AuthAPIBaseURL + "/auth/check",
		RefreshURL: cfg.AuthAPIBaseURL + "/auth/refresh",
		LogoutURL:  cfg.AuthAPIBaseURL + "/auth/logout",
	}, authClient, log)

	history := chat.NewHistoryClient(historyClient, cfg.ChatAPIBaseURL, cfg.HistoryLimit, log)

	handler := web.NewHandler(cfg, gate, history, streamClient, log)
	router := web.NewRouter(handler, cfg.CORSAllowedOrigins)

	port := ":" + cfg.Port
	log.Info("chat web gateway listening", "port", port,
		"chat_api", cfg.ChatAPIBaseURL,
		"auth_api", cfg.AuthAPIBaseURL,
		"models", len(cfg.ModelCatalog.Models))

	srv := &http.Server{
		Addr:    port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ServerShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server exited")
}
