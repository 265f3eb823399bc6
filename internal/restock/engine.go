package restock

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"invoicely/backend/internal/domain"
)

var two = decimal.NewFromInt(2)

type Engine struct {
	now func() time.Time
}

func NewEngine() *Engine {
	return &Engine{now: func() time.Time { return time.Now().UTC() }}
}

// Suggest lists products that are at or below their low-stock threshold,
// plus any oversold product, with a proposed reorder quantity.
func (e *Engine) Suggest(levels []domain.StockLevel, purchases []domain.Purchase) domain.RestockResponse {
	costs := lastUnitCosts(purchases)

	suggestions := make([]domain.RestockSuggestion, 0)
	for _, level := range levels {
		if !level.LowStock && !level.Oversold {
			continue
		}

		threshold := decimal.Zero
		if level.Threshold != nil {
			threshold = *level.Threshold
		}
		recommended := threshold.Mul(two).Sub(level.Available)
		if !recommended.IsPositive() {
			recommended = level.Available.Neg()
		}
		if !recommended.IsPositive() {
			continue
		}

		cost := costs[level.ProductID]
		suggestions = append(suggestions, domain.RestockSuggestion{
			ProductID:       level.ProductID,
			Name:            level.Name,
			Available:       level.Available,
			Threshold:       threshold,
			RecommendedQty:  recommended,
			LastUnitCost:    cost,
			EstimatedAmount: recommended.Mul(cost).Round(2),
			Oversold:        level.Oversold,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if !suggestions[i].Available.Equal(suggestions[j].Available) {
			return suggestions[i].Available.LessThan(suggestions[j].Available)
		}
		return suggestions[i].EstimatedAmount.GreaterThan(suggestions[j].EstimatedAmount)
	})

	return domain.RestockResponse{
		GeneratedAt: e.now().Format(time.RFC3339),
		Suggestions: suggestions,
	}
}

// lastUnitCosts returns the price of the most recent purchase line per product.
func lastUnitCosts(purchases []domain.Purchase) map[string]decimal.Decimal {
	ordered := make([]domain.Purchase, len(purchases))
	copy(ordered, purchases)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	costs := make(map[string]decimal.Decimal)
	for _, p := range ordered {
		for _, line := range p.Items {
			costs[line.ProductID] = line.Price
		}
	}
	return costs
}
