package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"bangunanpro/backend/internal/advisor"
	"bangunanpro/backend/internal/cache"
	"bangunanpro/backend/internal/config"
	"bangunanpro/backend/internal/events"
	"bangunanpro/backend/internal/httpapi"
	"bangunanpro/backend/internal/service"
	"bangunanpro/backend/internal/store"
	"bangunanpro/backend/internal/store/memory"
	pgstore "bangunanpro/backend/internal/store/postgres"
	"bangunanpro/backend/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer app.close()

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           app.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      75 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("BangunanPro backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	log.Println("server stopped")
}

type app struct {
	handler http.Handler
	closers []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("close error: %v", err)
		}
	}
}

// build connects the optional backends. Postgres is mandatory once
// DATABASE_URL is set; Redis and Kafka degrade to no-ops.
func build(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{}
	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var repo store.Repository
	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(startCtx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		}
		if err := pg.Migrate(startCtx); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		repo = pg
		a.closers = append(a.closers, pg.Close)
		log.Println("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		log.Println("repository: in-memory")
	}

	advisoryCache := cache.AdvisoryCache(cache.NoopAdvisoryCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisAdvisoryCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(startCtx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache", err)
			_ = redisCache.Close()
		} else {
			advisoryCache = redisCache
			a.closers = append(a.closers, redisCache.Close)
			log.Println("cache: redis")
		}
	} else {
		log.Println("cache: noop")
	}

	publisher := events.Publisher(events.NoopPublisher{})
	if len(cfg.KafkaBrokers) > 0 {
		kafka := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, "bangunanpro-backend", 256)
		publisher = kafka
		a.closers = append(a.closers, kafka.Close)
		log.Printf("events: kafka topic=%s", cfg.KafkaTopic)
	} else {
		log.Println("events: noop")
	}

	gemini := advisor.NewGeminiClient(advisor.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
	})
	if !gemini.Configured() {
		log.Println("[advisor] WARN: GEMINI_API_KEY not set, assistant will answer with a configuration notice")
	}
	assistant := advisor.NewAssistant(gemini, advisor.AssistantOptions{
		Cache:    advisoryCache,
		CacheTTL: time.Duration(cfg.AdvisorCacheTTLSeconds) * time.Second,
		Model:    gemini.Model(),
	})

	recorder := telemetry.New()
	svc := service.New(repo, service.Options{
		Assistant: assistant,
		Events:    publisher,
		Telemetry: recorder,
	})
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, cfg.AccessPIN, svc)
	a.handler = httpapi.New(svc, auth, recorder.Handler(), cfg.AllowedOrigin).Handler()
	return a, nil
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.AccessPIN == "" {
		return nil
	}
	if len(cfg.AccessPIN) < 6 {
		return fmt.Errorf("ACCESS_PIN must be at least 6 digits when set")
	}
	if err := validatePINStrength(cfg.AccessPIN); err != nil {
		return fmt.Errorf("ACCESS_PIN is too weak: %w", err)
	}
	return nil
}

// validatePINStrength rejects PINs that are all the same digit,
// sequential (ascending or descending), or from a known-weak list.
func validatePINStrength(pin string) error {
	known := map[string]bool{
		"123456": true, "654321": true, "000000": true, "111111": true,
		"121212": true, "112233": true, "123123": true, "123321": true,
	}
	if known[pin] {
		return fmt.Errorf("common PIN not allowed")
	}

	allSame := true
	for i := 1; i < len(pin); i++ {
		if pin[i] != pin[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("all-same-digit PIN not allowed")
	}

	ascending, descending := true, true
	for i := 1; i < len(pin); i++ {
		diff := int(pin[i]) - int(pin[i-1])
		if diff != 1 {
			ascending = false
		}
		if diff != -1 {
			descending = false
		}
	}
	if ascending || descending {
		return fmt.Errorf("sequential PIN not allowed")
	}
	return nil
}
