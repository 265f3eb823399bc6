package restock

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"invoicely/backend/internal/domain"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func level(id string, available string, threshold string) domain.StockLevel {
	l := domain.StockLevel{ProductID: id, Name: id, Available: dec(available)}
	if threshold != "" {
		t := dec(threshold)
		l.Threshold = &t
		l.LowStock = l.Available.LessThanOrEqual(t)
	}
	l.Oversold = l.Available.IsNegative()
	return l
}

func TestSuggestOrdersByAvailabilityThenAmount(t *testing.T) {
	engine := NewEngine()
	day := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	purchases := []domain.Purchase{
		{Date: day.AddDate(0, 0, 5), Items: []domain.PurchaseLine{{ProductID: "paper", Quantity: dec("10"), Price: dec("4")}}},
		{Date: day, Items: []domain.PurchaseLine{
			{ProductID: "paper", Quantity: dec("10"), Price: dec("3")},
			{ProductID: "toner", Quantity: dec("2"), Price: dec("50")},
			{ProductID: "pens", Quantity: dec("2"), Price: dec("1")},
		}},
	}
	levels := []domain.StockLevel{
		level("paper", "5", "20"),
		level("toner", "5", "5"),
		level("pens", "-3", ""),
		level("stapler", "40", "10"),
	}

	resp := engine.Suggest(levels, purchases)
	if len(resp.Suggestions) != 3 {
		t.Fatalf("expected 3 suggestions, got %+v", resp.Suggestions)
	}

	pens, toner, paper := resp.Suggestions[0], resp.Suggestions[1], resp.Suggestions[2]
	if pens.ProductID != "pens" || !pens.Oversold || !pens.RecommendedQty.Equal(dec("3")) {
		t.Fatalf("expected oversold pens first, got %+v", pens)
	}
	if paper.ProductID != "paper" || !paper.RecommendedQty.Equal(dec("35")) || !paper.LastUnitCost.Equal(dec("4")) {
		t.Fatalf("unexpected paper suggestion %+v", paper)
	}
	if !paper.EstimatedAmount.Equal(dec("140")) {
		t.Fatalf("expected paper amount 140, got %s", paper.EstimatedAmount)
	}
	if toner.ProductID != "toner" || !toner.RecommendedQty.Equal(dec("5")) || !toner.EstimatedAmount.Equal(dec("250")) {
		t.Fatalf("unexpected toner suggestion %+v", toner)
	}
	if resp.GeneratedAt == "" {
		t.Fatalf("expected generation timestamp")
	}
}

func TestSuggestEmptyWhenStockHealthy(t *testing.T) {
	resp := NewEngine().Suggest([]domain.StockLevel{level("paper", "50", "10")}, nil)
	if resp.Suggestions == nil || len(resp.Suggestions) != 0 {
		t.Fatalf("expected empty suggestion list, got %+v", resp.Suggestions)
	}
}
