package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"invoicely/backend/internal/config"
	"invoicely/backend/internal/domain"
	"invoicely/backend/internal/httpapi"
	"invoicely/backend/internal/ledger"
	"invoicely/backend/internal/service"
	"invoicely/backend/internal/store"
	"invoicely/backend/internal/store/memory"
	pgstore "invoicely/backend/internal/store/postgres"
	redisstore "invoicely/backend/internal/store/redis"
	sqlitestore "invoicely/backend/internal/store/sqlite"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	policy, err := ledgerPolicy(cfg)
	if err != nil {
		log.Fatalf("invalid stock configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	kv, closers, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("storage unavailable: %v", err)
	}
	if cfg.SeedDemoData {
		if err := seedIfEmpty(ctx, kv); err != nil {
			log.Fatalf("seed demo data: %v", err)
		}
	}

	svc, err := service.New(ctx, kv, ledger.New(policy), service.Options{RebuildOnStart: cfg.RebuildOnStart})
	if err != nil {
		log.Fatalf("load ledger: %v", err)
	}
	auth, err := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute,
		httpapi.Account{Username: "admin", Password: cfg.AdminPassword, Role: domain.RoleAdmin},
		httpapi.Account{Username: "clerk", Password: cfg.ClerkPassword, Role: domain.RoleClerk},
	)
	if err != nil {
		log.Fatalf("auth setup: %v", err)
	}
	api := httpapi.New(svc, auth, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("invoicely backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

// openStore connects the configured storage driver. A configured backend that
// cannot be reached is fatal; there is no silent in-memory fallback.
func openStore(ctx context.Context, cfg config.Config) (store.KV, []func() error, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		log.Println("storage: in-memory")
		return memory.New(), nil, nil

	case config.DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, nil, errors.New("DATABASE_URL is required for the postgres driver")
		}
		if cfg.DBMigrations {
			if err := pgstore.Migrate(cfg.DatabaseURL); err != nil {
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
		}
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		log.Println("storage: postgres")
		return pg, []func() error{pg.Close}, nil

	case config.DriverSQLite:
		db, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("storage: sqlite (%s)", cfg.SQLitePath)
		return db, []func() error{db.Close}, nil

	case config.DriverRedis:
		if cfg.RedisAddr == "" {
			return nil, nil, errors.New("REDIS_ADDR is required for the redis driver")
		}
		rdb := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisKeyPrefix)
		if err := rdb.Ping(ctx); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		log.Println("storage: redis")
		return rdb, []func() error{rdb.Close}, nil
	}
	return nil, nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
}

// seedIfEmpty copies the demo documents into a store that has never held a
// product catalogue.
func seedIfEmpty(ctx context.Context, kv store.KV) error {
	if _, err := kv.Load(ctx, store.KeyProducts); !errors.Is(err, store.ErrNotFound) {
		return err
	}

	demo := memory.NewSeeded()
	entries := make([]store.Entry, 0, len(store.Keys))
	for _, key := range store.Keys {
		raw, err := demo.Load(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		entries = append(entries, store.Entry{Key: key, Value: raw})
	}
	if err := kv.Save(ctx, entries...); err != nil {
		return err
	}
	log.Printf("[store] seeded %d demo documents", len(entries))
	return nil
}

func ledgerPolicy(cfg config.Config) (ledger.Policy, error) {
	unknown, err := ledger.ParseUnknownProductPolicy(cfg.UnknownProductPolicy)
	if err != nil {
		return ledger.Policy{}, err
	}
	return ledger.Policy{UnknownProduct: unknown, ReleaseOnCancel: cfg.ReleaseOnCancel}, nil
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if len(cfg.AdminPassword) < 8 {
		return fmt.Errorf("ADMIN_PASSWORD must be set and at least 8 characters")
	}
	if cfg.ClerkPassword != "" && len(cfg.ClerkPassword) < 8 {
		return fmt.Errorf("CLERK_PASSWORD must be at least 8 characters when set")
	}
	if cfg.ClerkPassword != "" && cfg.ClerkPassword == cfg.AdminPassword {
		return fmt.Errorf("CLERK_PASSWORD must differ from ADMIN_PASSWORD")
	}
	return nil
}
