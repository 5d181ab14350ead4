package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/adbreak/server/internal/adengine"
	"github.com/adbreak/server/internal/catalog"
	"github.com/adbreak/server/internal/controller"
	"github.com/adbreak/server/internal/player"
	"github.com/adbreak/server/internal/service/session"
	"github.com/adbreak/server/pkg/ctxlogger"
)

type AppConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	LogLevel    string `json:"log_level"`
	CatalogPath string `json:"catalog_path"`
	// SessionTTLSeconds is how long an idle session survives before the
	// reaper closes it.
	SessionTTLSeconds int `json:"session_ttl_seconds"`
	// AdRequestDelayMs simulates the ad-decision round trip.
	AdRequestDelayMs int `json:"ad_request_delay_ms"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be in [1, 65535]")
	}
	if cfg.SessionTTLSeconds < 1 {
		return fmt.Errorf("session ttl must be greater than 0")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		log.Fatal(err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	engine := adengine.NewStubEngine(cat.AdPods(), adengine.StubConfig{
		RequestDelay: time.Duration(cfg.AdRequestDelayMs) * time.Millisecond,
	})
	newPlayer := func() player.Player {
		return player.NewSimPlayer(player.SimConfig{})
	}

	sessionService := session.NewService(cat, newPlayer, engine, &session.Config{
		SessionTTL: time.Duration(cfg.SessionTTLSeconds) * time.Second,
	}, logger)
	defer sessionService.Close()

	controller := controller.NewController(sessionService, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: controller.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}
