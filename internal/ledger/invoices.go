package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"invoicely/backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

type allocation struct {
	productID string
	quantity  decimal.Decimal
}

// allocationsFor merges an invoice's lines into one quantity per product,
// keeping first-appearance order. Lines without a product never allocate.
func allocationsFor(inv domain.Invoice) []allocation {
	out := make([]allocation, 0, len(inv.Items))
	index := make(map[string]int, len(inv.Items))
	for _, item := range inv.Items {
		if item.ProductID == "" {
			continue
		}
		if i, ok := index[item.ProductID]; ok {
			out[i].quantity = out[i].quantity.Add(item.Quantity)
			continue
		}
		index[item.ProductID] = len(out)
		out = append(out, allocation{productID: item.ProductID, quantity: item.Quantity})
	}
	return out
}

// release drops every allocation held by invoiceID. The returned slice is
// always a fresh copy; untouched products share their sales with the input.
func release(products []domain.Product, invoiceID string) []domain.Product {
	out := copySlice(products, 0)
	for i, p := range out {
		held := false
		for _, sale := range p.Sales {
			if sale.InvoiceID == invoiceID {
				held = true
				break
			}
		}
		if !held {
			continue
		}
		kept := make([]domain.SaleAllocation, 0, len(p.Sales))
		for _, sale := range p.Sales {
			if sale.InvoiceID != invoiceID {
				kept = append(kept, sale)
			}
		}
		out[i].Sales = kept
	}
	return out
}

// apply records the invoice's allocations on products, which must be a
// slice owned by the caller. Sales slices are replaced, never appended in place.
func apply(products []domain.Product, inv domain.Invoice, policy UnknownProductPolicy) error {
	for _, alloc := range allocationsFor(inv) {
		idx, ok := findProduct(products, alloc.productID)
		if !ok {
			if policy == UnknownProductReject {
				return fmt.Errorf("%w: %s", ErrUnknownProduct, alloc.productID)
			}
			continue
		}
		sales := make([]domain.SaleAllocation, 0, len(products[idx].Sales)+1)
		sales = append(sales, products[idx].Sales...)
		sales = append(sales, domain.SaleAllocation{InvoiceID: inv.ID, Quantity: alloc.quantity})
		products[idx].Sales = sales
	}
	return nil
}

func validateInvoice(inv domain.Invoice) error {
	if inv.Status != "" && !inv.Status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidInvoice, inv.Status)
	}
	if inv.TaxAmount != nil && (!inRange(*inv.TaxAmount) || inv.TaxAmount.IsNegative()) {
		return fmt.Errorf("%w: tax amount must be a non-negative amount with at most %d decimals", ErrInvalidInvoice, maxScale)
	}
	for i, item := range inv.Items {
		if !lineInRange(item) {
			return fmt.Errorf("%w: line %d has a value out of range (at most %d integer digits and %d decimals)", ErrInvalidLineItem, i+1, maxIntegerDigits, maxScale)
		}
		if !item.Quantity.IsPositive() {
			return fmt.Errorf("%w: line %d quantity must be positive", ErrInvalidLineItem, i+1)
		}
		if item.Price.IsNegative() {
			return fmt.Errorf("%w: line %d price must not be negative", ErrInvalidLineItem, i+1)
		}
		if item.Discount != nil && item.Discount.IsNegative() {
			return fmt.Errorf("%w: line %d discount must not be negative", ErrInvalidLineItem, i+1)
		}
		if item.TaxPercent != nil && (item.TaxPercent.IsNegative() || item.TaxPercent.GreaterThan(hundred)) {
			return fmt.Errorf("%w: line %d tax percent must be within 0..100", ErrInvalidLineItem, i+1)
		}
	}
	return nil
}

func lineInRange(item domain.LineItem) bool {
	if !inRange(item.Quantity) || !inRange(item.Price) {
		return false
	}
	if item.Discount != nil && !inRange(*item.Discount) {
		return false
	}
	return item.TaxPercent == nil || inRange(*item.TaxPercent)
}

func nextInvoiceNumber(s State) string {
	prefix := s.Settings.InvoicePrefix
	taken := make(map[string]struct{}, len(s.Invoices))
	for _, inv := range s.Invoices {
		taken[inv.InvoiceNumber] = struct{}{}
	}
	for n := len(s.Invoices) + 1; ; n++ {
		candidate := fmt.Sprintf("%s%04d", prefix, n)
		if _, exists := taken[candidate]; !exists {
			return candidate
		}
	}
}

func (l *Ledger) fillDefaults(s State, inv *domain.Invoice) {
	if strings.TrimSpace(inv.InvoiceNumber) == "" {
		inv.InvoiceNumber = nextInvoiceNumber(s)
	}
	if inv.Status == "" {
		inv.Status = domain.InvoiceStatusDraft
	}
	if inv.Currency == "" {
		inv.Currency = s.Settings.Currency
	}
	if s.Settings.TaxRatePercent.IsPositive() {
		for i := range inv.Items {
			if inv.Items[i].TaxPercent == nil {
				rate := s.Settings.TaxRatePercent
				inv.Items[i].TaxPercent = &rate
			}
		}
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = l.now()
	}
}

// AddInvoice stores a new invoice and allocates stock for its lines.
func (l *Ledger) AddInvoice(s State, draft domain.Invoice) (State, domain.Invoice, error) {
	if err := validateInvoice(draft); err != nil {
		return s, domain.Invoice{}, err
	}

	inv := CloneInvoice(draft)
	inv.ID = l.newID("inv")
	for i := range inv.Items {
		inv.Items[i].ID = l.newID("li")
	}
	inv.CreatedAt = l.now()
	inv.UpdatedAt = inv.CreatedAt
	l.fillDefaults(s, &inv)

	products := copySlice(s.Products, 0)
	if l.holdsStock(inv) {
		if err := apply(products, inv, l.policy.UnknownProduct); err != nil {
			return s, domain.Invoice{}, err
		}
	}

	next := s
	next.Products = products
	next.Invoices = append(copySlice(s.Invoices, 1), inv)
	return next, CloneInvoice(inv), nil
}

// UpdateInvoice replaces an invoice, reverting its previous allocations
// before applying the new lines. An unknown id has nothing to revert and is
// inserted so its allocations keep a live owner.
func (l *Ledger) UpdateInvoice(s State, updated domain.Invoice) (State, domain.Invoice, error) {
	if strings.TrimSpace(updated.ID) == "" {
		return s, domain.Invoice{}, fmt.Errorf("%w: missing id", ErrInvalidInvoice)
	}
	if err := validateInvoice(updated); err != nil {
		return s, domain.Invoice{}, err
	}

	inv := CloneInvoice(updated)
	for i := range inv.Items {
		if inv.Items[i].ID == "" {
			inv.Items[i].ID = l.newID("li")
		}
	}

	idx, exists := findInvoice(s.Invoices, inv.ID)
	if exists {
		prev := s.Invoices[idx]
		if inv.InvoiceNumber == "" {
			inv.InvoiceNumber = prev.InvoiceNumber
		}
		if inv.Status == "" {
			inv.Status = prev.Status
		}
		if inv.Currency == "" {
			inv.Currency = prev.Currency
		}
		inv.CreatedAt = prev.CreatedAt
	}
	l.fillDefaults(s, &inv)
	inv.UpdatedAt = l.now()

	products := release(s.Products, inv.ID)
	if l.holdsStock(inv) {
		if err := apply(products, inv, l.policy.UnknownProduct); err != nil {
			return s, domain.Invoice{}, err
		}
	}

	next := s
	next.Products = products
	if exists {
		next.Invoices = copySlice(s.Invoices, 0)
		next.Invoices[idx] = inv
	} else {
		next.Invoices = append(copySlice(s.Invoices, 1), inv)
	}
	return next, CloneInvoice(inv), nil
}

// DeleteInvoice reverts an invoice's allocations and removes it. Deleting an
// unknown id returns the input state unchanged.
func (l *Ledger) DeleteInvoice(s State, id string) State {
	idx, ok := findInvoice(s.Invoices, id)
	if !ok {
		return s
	}

	invoices := make([]domain.Invoice, 0, len(s.Invoices)-1)
	invoices = append(invoices, s.Invoices[:idx]...)
	invoices = append(invoices, s.Invoices[idx+1:]...)

	next := s
	next.Products = release(s.Products, id)
	next.Invoices = invoices
	return next
}

// SetInvoiceStatus changes only the status; allocations follow the release policy.
func (l *Ledger) SetInvoiceStatus(s State, id string, status domain.InvoiceStatus) (State, domain.Invoice, error) {
	if !status.Valid() {
		return s, domain.Invoice{}, fmt.Errorf("%w: status %q", ErrInvalidInvoice, status)
	}
	idx, ok := findInvoice(s.Invoices, id)
	if !ok {
		return s, domain.Invoice{}, fmt.Errorf("invoice %s: %w", id, ErrNotFound)
	}
	inv := CloneInvoice(s.Invoices[idx])
	inv.Status = status
	return l.UpdateInvoice(s, inv)
}

// Totals computes the monetary summary of an invoice, rounded to cents.
func Totals(inv domain.Invoice) domain.InvoiceTotals {
	var totals domain.InvoiceTotals
	for _, item := range inv.Items {
		gross := item.Quantity.Mul(item.Price)
		discount := decimal.Zero
		if item.Discount != nil {
			discount = decimal.Min(*item.Discount, gross)
		}
		net := gross.Sub(discount)
		totals.Subtotal = totals.Subtotal.Add(gross)
		totals.Discount = totals.Discount.Add(discount)
		if item.TaxPercent != nil {
			totals.LineTax = totals.LineTax.Add(net.Mul(*item.TaxPercent).Div(hundred))
		}
	}
	if inv.TaxAmount != nil {
		totals.TaxAmount = *inv.TaxAmount
	}
	totals.Subtotal = totals.Subtotal.Round(2)
	totals.Discount = totals.Discount.Round(2)
	totals.LineTax = totals.LineTax.Round(2)
	totals.TaxAmount = totals.TaxAmount.Round(2)
	totals.Total = totals.Subtotal.Sub(totals.Discount).Add(totals.LineTax).Add(totals.TaxAmount)
	return totals
}
