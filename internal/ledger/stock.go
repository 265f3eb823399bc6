package ledger

import (
	"github.com/shopspring/decimal"

	"invoicely/backend/internal/domain"
)

func stockFromPurchases(purchases []domain.Purchase, productID string) decimal.Decimal {
	total := decimal.Zero
	for _, p := range purchases {
		for _, line := range p.Items {
			if line.ProductID == productID {
				total = total.Add(line.Quantity)
			}
		}
	}
	return total
}

func stockSold(p domain.Product, excludeInvoiceID string) decimal.Decimal {
	total := decimal.Zero
	for _, sale := range p.Sales {
		if excludeInvoiceID != "" && sale.InvoiceID == excludeInvoiceID {
			continue
		}
		total = total.Add(sale.Quantity)
	}
	return total
}

// AvailableStock is purchased quantity minus allocated quantity for a
// product, ignoring allocations of excludeInvoiceID when it is set. Unknown
// products report zero. A negative result means the product is oversold.
func AvailableStock(s State, productID string, excludeInvoiceID string) decimal.Decimal {
	idx, ok := findProduct(s.Products, productID)
	if !ok {
		return decimal.Zero
	}
	return stockFromPurchases(s.Purchases, productID).Sub(stockSold(s.Products[idx], excludeInvoiceID))
}

func thresholdFor(p domain.Product, settings domain.Settings) *decimal.Decimal {
	if p.ThresholdValue != nil {
		v := *p.ThresholdValue
		return &v
	}
	if settings.LowStockDefault.IsPositive() {
		v := settings.LowStockDefault
		return &v
	}
	return nil
}

// StockLevels reports stock for every product in catalog order.
func StockLevels(s State) []domain.StockLevel {
	purchased := make(map[string]decimal.Decimal, len(s.Products))
	for _, p := range s.Purchases {
		for _, line := range p.Items {
			purchased[line.ProductID] = purchased[line.ProductID].Add(line.Quantity)
		}
	}

	levels := make([]domain.StockLevel, 0, len(s.Products))
	for _, p := range s.Products {
		in := purchased[p.ID]
		out := stockSold(p, "")
		available := in.Sub(out)
		threshold := thresholdFor(p, s.Settings)
		levels = append(levels, domain.StockLevel{
			ProductID: p.ID,
			Name:      p.Name,
			Purchased: in,
			Allocated: out,
			Available: available,
			Threshold: threshold,
			LowStock:  threshold != nil && available.LessThanOrEqual(*threshold),
			Oversold:  available.IsNegative(),
		})
	}
	return levels
}

type allocationKey struct {
	productID string
	invoiceID string
}

// Verify compares recorded allocations with what the live invoices imply.
func (l *Ledger) Verify(s State) []domain.Discrepancy {
	expected := make(map[allocationKey]decimal.Decimal)
	expectedOrder := make([]allocationKey, 0)
	live := make(map[string]struct{}, len(s.Invoices))
	for _, inv := range s.Invoices {
		if !l.holdsStock(inv) {
			continue
		}
		live[inv.ID] = struct{}{}
		for _, alloc := range allocationsFor(inv) {
			if _, ok := findProduct(s.Products, alloc.productID); !ok {
				continue
			}
			key := allocationKey{productID: alloc.productID, invoiceID: inv.ID}
			expected[key] = alloc.quantity
			expectedOrder = append(expectedOrder, key)
		}
	}

	found := make([]domain.Discrepancy, 0)
	seen := make(map[allocationKey]struct{})
	for _, p := range s.Products {
		recorded := make(map[string]decimal.Decimal)
		counts := make(map[string]int)
		order := make([]string, 0, len(p.Sales))
		for _, sale := range p.Sales {
			if counts[sale.InvoiceID] == 0 {
				order = append(order, sale.InvoiceID)
			}
			counts[sale.InvoiceID]++
			recorded[sale.InvoiceID] = recorded[sale.InvoiceID].Add(sale.Quantity)
		}

		for _, invoiceID := range order {
			key := allocationKey{productID: p.ID, invoiceID: invoiceID}
			seen[key] = struct{}{}
			want, wanted := expected[key]
			switch {
			case counts[invoiceID] > 1:
				found = append(found, domain.Discrepancy{
					Code: domain.DiscrepancyDuplicate, ProductID: p.ID, InvoiceID: invoiceID,
					Expected: want, Recorded: recorded[invoiceID],
				})
			case !wanted:
				code := domain.DiscrepancyOrphan
				if _, isLive := live[invoiceID]; isLive {
					code = domain.DiscrepancyMismatch
				}
				found = append(found, domain.Discrepancy{
					Code: code, ProductID: p.ID, InvoiceID: invoiceID,
					Expected: decimal.Zero, Recorded: recorded[invoiceID],
				})
			case !want.Equal(recorded[invoiceID]):
				found = append(found, domain.Discrepancy{
					Code: domain.DiscrepancyMismatch, ProductID: p.ID, InvoiceID: invoiceID,
					Expected: want, Recorded: recorded[invoiceID],
				})
			}
		}
	}

	for _, key := range expectedOrder {
		if _, ok := seen[key]; ok {
			continue
		}
		found = append(found, domain.Discrepancy{
			Code: domain.DiscrepancyMissing, ProductID: key.productID, InvoiceID: key.invoiceID,
			Expected: expected[key], Recorded: decimal.Zero,
		})
	}
	return found
}

// Rebuild recomputes every product's allocations from the live invoices.
// Lines for unknown products are skipped regardless of policy.
func (l *Ledger) Rebuild(s State) State {
	products := copySlice(s.Products, 0)
	for i := range products {
		products[i].Sales = []domain.SaleAllocation{}
	}
	for _, inv := range s.Invoices {
		if !l.holdsStock(inv) {
			continue
		}
		_ = apply(products, inv, UnknownProductSkip)
	}

	next := s
	next.Products = products
	return next
}
