package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/whats-eat/backend/internal/config"
	"github.com/zhouzirui/whats-eat/backend/internal/handler"
	geocodeHandler "github.com/zhouzirui/whats-eat/backend/internal/handler/geocode"
	"github.com/zhouzirui/whats-eat/backend/internal/runtime/factory"
	"github.com/zhouzirui/whats-eat/backend/internal/service/chat"
	"github.com/zhouzirui/whats-eat/backend/internal/service/geocode"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	rt, err := factory.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize runtime: %v", err)
	}

	chatService := chat.NewService(rt, chat.NewAssistantHandle(cfg.Runtime.GraphID), chat.Options{
		Stream:         cfg.Runtime.Stream,
		SummarizerNode: cfg.Runtime.SummarizerNode,
	})

	var geocoder geocodeHandler.Geocoder
	if cfg.Geocode.Enabled() {
		geocoder = geocode.NewClient(cfg.Geocode.BaseURL, cfg.Geocode.APIKey, cfg.Geocode.Timeout)
		log.Println("Geocoding enabled")
	} else {
		log.Println("GOOGLE_MAPS_API_KEY 未配置，跳过地址解析功能")
	}

	router := handler.NewRouter(chatService, geocoder)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("What'sEat gateway listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
