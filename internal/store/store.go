package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Collection keys. Each key holds one JSON document with the whole collection.
const (
	KeyProducts       = "products"
	KeyPurchases      = "purchases"
	KeyPurchaseOrders = "purchaseOrders"
	KeyInvoices       = "invoices"
	KeyUnits          = "units"
	KeyCategories     = "categories"
	KeySuppliers      = "suppliers"
	KeySettings       = "settings"
)

var Keys = []string{
	KeyProducts,
	KeyPurchases,
	KeyPurchaseOrders,
	KeyInvoices,
	KeyUnits,
	KeyCategories,
	KeySuppliers,
	KeySettings,
}

type Entry struct {
	Key   string
	Value []byte
}

// KV persists whole collections under fixed keys. Save writes every entry or
// none of them.
type KV interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, entries ...Entry) error
}

// LoadJSON decodes the document stored at key. Absent or malformed documents
// yield fallback; only backend failures are returned as errors.
func LoadJSON[T any](ctx context.Context, kv KV, key string, fallback T) (T, error) {
	raw, err := kv.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		return fallback, fmt.Errorf("load %s: %w", key, err)
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		log.Printf("[store] malformed %s document, using defaults: %v", key, err)
		return fallback, nil
	}
	return out, nil
}

func EncodeEntry(key string, value any) (Entry, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return Entry{}, fmt.Errorf("encode %s: %w", key, err)
	}
	return Entry{Key: key, Value: payload}, nil
}

func ValidateEntries(entries []Entry) error {
	for _, e := range entries {
		if e.Key == "" {
			return fmt.Errorf("%w: empty key", ErrInvalidInput)
		}
		if !json.Valid(e.Value) {
			return fmt.Errorf("%w: %s is not valid JSON", ErrInvalidInput, e.Key)
		}
	}
	return nil
}
