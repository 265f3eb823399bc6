package main

import (
	"context"
	"errors"
	"testing"

	"invoicely/backend/internal/config"
	"invoicely/backend/internal/ledger"
	"invoicely/backend/internal/store"
	"invoicely/backend/internal/store/memory"
)

const strongSecret = "0123456789abcdef0123456789abcdef"

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	cases := []config.Config{
		{AuthSecret: "short", AdminPassword: "long-enough-pass"},
		{AuthSecret: strongSecret, AdminPassword: "short"},
		{AuthSecret: strongSecret, AdminPassword: "long-enough-pass", ClerkPassword: "tiny"},
		{AuthSecret: strongSecret, AdminPassword: "long-enough-pass", ClerkPassword: "long-enough-pass"},
	}
	for i, cfg := range cases {
		if err := validateSecurityConfig(cfg); err == nil {
			t.Fatalf("case %d: expected weak security config to be rejected", i)
		}
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: strongSecret, AdminPassword: "s3cure-admin", ClerkPassword: "s3cure-clerk"})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestLedgerPolicyFromConfig(t *testing.T) {
	policy, err := ledgerPolicy(config.Config{UnknownProductPolicy: "reject", ReleaseOnCancel: false})
	if err != nil {
		t.Fatalf("ledger policy: %v", err)
	}
	if policy.UnknownProduct != ledger.UnknownProductReject || policy.ReleaseOnCancel {
		t.Fatalf("unexpected policy %+v", policy)
	}
	if _, err := ledgerPolicy(config.Config{UnknownProductPolicy: "ignore"}); err == nil {
		t.Fatalf("expected unknown policy name to be rejected")
	}
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	if _, _, err := openStore(context.Background(), config.Config{StorageDriver: "cassandra"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
	if _, _, err := openStore(context.Background(), config.Config{StorageDriver: config.DriverPostgres}); err == nil {
		t.Fatalf("expected missing DATABASE_URL error")
	}
}

func TestSeedIfEmpty(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()

	if err := seedIfEmpty(ctx, kv); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := kv.Load(ctx, store.KeyProducts); err != nil {
		t.Fatalf("expected products after seeding, got %v", err)
	}

	if err := kv.Save(ctx, store.Entry{Key: store.KeyProducts, Value: []byte(`[]`)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := seedIfEmpty(ctx, kv); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	raw, _ := kv.Load(ctx, store.KeyProducts)
	if string(raw) != `[]` {
		t.Fatalf("expected existing catalogue to be left alone, got %s", raw)
	}
}

func TestMemoryDriverStartsEmptyUnlessSeeded(t *testing.T) {
	ctx := context.Background()
	kv, closers, err := openStore(ctx, config.Config{StorageDriver: config.DriverMemory})
	if err != nil {
		t.Fatalf("open memory store: %v", err)
	}
	if len(closers) != 0 {
		t.Fatalf("expected no closers for memory store")
	}
	if _, err := kv.Load(ctx, store.KeyProducts); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected empty memory store without SEED_DEMO_DATA, got %v", err)
	}

	if err := seedIfEmpty(ctx, kv); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := kv.Load(ctx, store.KeyProducts); err != nil {
		t.Fatalf("expected demo products after seeding, got %v", err)
	}
}
