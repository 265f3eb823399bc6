package memory

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"invoicely/backend/internal/domain"
	"invoicely/backend/internal/store"
)

// Store keeps collection documents in process memory. Data is lost on restart.
type Store struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func New() *Store {
	return &Store{docs: make(map[string][]byte)}
}

// NewSeeded returns a store preloaded with a small demo catalog for dev mode.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	units := []domain.Unit{
		{ID: "unit-pc", Name: "Piece", Symbol: "pc"},
		{ID: "unit-box", Name: "Box", Symbol: "box"},
		{ID: "unit-h", Name: "Hour", Symbol: "h"},
	}
	categories := []domain.Category{
		{ID: "cat-office", Name: "Office supplies"},
		{ID: "cat-print", Name: "Printing"},
		{ID: "cat-service", Name: "Services"},
	}
	suppliers := []domain.Supplier{
		{ID: "sup-acme", Name: "Acme Wholesale", Email: "orders@acme.example"},
		{ID: "sup-globex", Name: "Globex Paper Co", Phone: "+1 555 0100"},
	}

	lowPaper := decimal.NewFromInt(20)
	lowToner := decimal.NewFromInt(3)
	products := []domain.Product{
		{ID: "prd-paper-a4", Name: "Paper A4 (500 sheets)", Price: decimal.RequireFromString("6.50"), UnitID: "unit-box", CategoryID: "cat-office", ThresholdValue: &lowPaper, Sales: []domain.SaleAllocation{}},
		{ID: "prd-toner-bk", Name: "Toner Black", Price: decimal.RequireFromString("79.00"), UnitID: "unit-pc", CategoryID: "cat-print", ThresholdValue: &lowToner, Sales: []domain.SaleAllocation{}},
		{ID: "prd-stapler", Name: "Stapler", Price: decimal.RequireFromString("12.90"), UnitID: "unit-pc", CategoryID: "cat-office", Sales: []domain.SaleAllocation{}},
		{ID: "prd-setup", Name: "Printer setup", Price: decimal.RequireFromString("45.00"), UnitID: "unit-h", CategoryID: "cat-service", Sales: []domain.SaleAllocation{}},
	}
	purchases := []domain.Purchase{
		{
			ID:         "pur-seed-1",
			Date:       now.AddDate(0, 0, -14),
			VendorName: "Globex Paper Co",
			SupplierID: "sup-globex",
			Items: []domain.PurchaseLine{
				{ProductID: "prd-paper-a4", Quantity: decimal.NewFromInt(120), Price: decimal.RequireFromString("3.80")},
			},
			TotalAmount: decimal.RequireFromString("456.00"),
		},
		{
			ID:         "pur-seed-2",
			Date:       now.AddDate(0, 0, -7),
			VendorName: "Acme Wholesale",
			SupplierID: "sup-acme",
			Items: []domain.PurchaseLine{
				{ProductID: "prd-toner-bk", Quantity: decimal.NewFromInt(8), Price: decimal.RequireFromString("52.00")},
				{ProductID: "prd-stapler", Quantity: decimal.NewFromInt(25), Price: decimal.RequireFromString("6.10")},
			},
			TotalAmount: decimal.RequireFromString("568.50"),
		},
	}

	docs := map[string]any{
		store.KeyUnits:          units,
		store.KeyCategories:     categories,
		store.KeySuppliers:      suppliers,
		store.KeyProducts:       products,
		store.KeyPurchases:      purchases,
		store.KeyPurchaseOrders: []domain.PurchaseOrder{},
		store.KeyInvoices:       []domain.Invoice{},
		store.KeySettings:       domain.DefaultSettings(),
	}
	entries := make([]store.Entry, 0, len(docs))
	for key, value := range docs {
		entry, err := store.EncodeEntry(key, value)
		if err != nil {
			log.Fatalf("[memory-store] failed to encode seed %s: %v", key, err)
		}
		entries = append(entries, entry)
	}
	if err := s.Save(context.Background(), entries...); err != nil {
		log.Fatalf("[memory-store] failed to seed: %v", err)
	}
	return s
}

func (s *Store) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.docs[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

func (s *Store) Save(_ context.Context, entries ...store.Entry) error {
	if err := store.ValidateEntries(entries); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		value := make([]byte, len(e.Value))
		copy(value, e.Value)
		s.docs[e.Key] = value
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}
