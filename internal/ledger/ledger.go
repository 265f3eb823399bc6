// Package ledger keeps product sale allocations consistent with invoices and
// derives available stock from purchases and allocations.
//
// Every operation takes a State snapshot and returns a new one. Input
// snapshots are never modified: changed collections are rebuilt into fresh
// slices, so a caller can publish the returned State as a single transition
// or drop it on error.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"invoicely/backend/internal/domain"
	"invoicely/backend/internal/xid"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnknownProduct  = errors.New("unknown product")
	ErrInvalidLineItem = errors.New("invalid line item")
	ErrInvalidInvoice  = errors.New("invalid invoice")
	ErrInvalidProduct  = errors.New("invalid product")
	ErrInvalidSettings = errors.New("invalid settings")
)

const (
	maxScale         = 6
	maxIntegerDigits = 12
)

// inRange reports whether v has at most maxScale fractional digits and at
// most maxIntegerDigits integer digits. It only inspects the exponent and
// coefficient, so it must run before v is compared or summed.
func inRange(v decimal.Decimal) bool {
	exp := int64(v.Exponent())
	if exp < -maxScale || exp > maxIntegerDigits {
		return false
	}
	return int64(v.NumDigits())+exp <= maxIntegerDigits
}

type UnknownProductPolicy string

const (
	// UnknownProductSkip stores the line but records no allocation for it.
	UnknownProductSkip UnknownProductPolicy = "skip"
	// UnknownProductReject fails the whole mutation.
	UnknownProductReject UnknownProductPolicy = "reject"
)

func ParseUnknownProductPolicy(raw string) (UnknownProductPolicy, error) {
	switch UnknownProductPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", UnknownProductSkip:
		return UnknownProductSkip, nil
	case UnknownProductReject:
		return UnknownProductReject, nil
	}
	return "", fmt.Errorf("unknown product policy %q (want skip or reject)", raw)
}

type Policy struct {
	UnknownProduct UnknownProductPolicy
	// ReleaseOnCancel makes a Cancelled invoice hold no stock, as if deleted.
	ReleaseOnCancel bool
}

func DefaultPolicy() Policy {
	return Policy{UnknownProduct: UnknownProductSkip, ReleaseOnCancel: true}
}

// State is the full set of collections the ledger reasons about.
type State struct {
	Products       []domain.Product
	Purchases      []domain.Purchase
	PurchaseOrders []domain.PurchaseOrder
	Invoices       []domain.Invoice
	Units          []domain.Unit
	Categories     []domain.Category
	Suppliers      []domain.Supplier
	Settings       domain.Settings
}

type Ledger struct {
	policy Policy
	newID  func(prefix string) string
	now    func() time.Time
}

func New(policy Policy) *Ledger {
	if policy.UnknownProduct == "" {
		policy.UnknownProduct = UnknownProductSkip
	}
	return &Ledger{
		policy: policy,
		newID:  xid.New,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (l *Ledger) Policy() Policy {
	return l.policy
}

// holdsStock reports whether an invoice in its current status should have allocations.
func (l *Ledger) holdsStock(inv domain.Invoice) bool {
	return !(l.policy.ReleaseOnCancel && inv.Status == domain.InvoiceStatusCancelled)
}

func findProduct(products []domain.Product, id string) (int, bool) {
	for i := range products {
		if products[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func findInvoice(invoices []domain.Invoice, id string) (int, bool) {
	for i := range invoices {
		if invoices[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func findPurchaseOrder(orders []domain.PurchaseOrder, id string) (int, bool) {
	for i := range orders {
		if orders[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// CloneProduct deep-copies a product so the caller may mutate it freely.
func CloneProduct(p domain.Product) domain.Product {
	out := p
	out.Sales = make([]domain.SaleAllocation, len(p.Sales))
	copy(out.Sales, p.Sales)
	if p.ThresholdValue != nil {
		v := *p.ThresholdValue
		out.ThresholdValue = &v
	}
	return out
}

func CloneInvoice(inv domain.Invoice) domain.Invoice {
	out := inv
	out.Items = make([]domain.LineItem, len(inv.Items))
	copy(out.Items, inv.Items)
	if inv.TaxAmount != nil {
		v := *inv.TaxAmount
		out.TaxAmount = &v
	}
	return out
}

func clonePurchase(p domain.Purchase) domain.Purchase {
	out := p
	out.Items = make([]domain.PurchaseLine, len(p.Items))
	copy(out.Items, p.Items)
	return out
}

func clonePurchaseOrder(po domain.PurchaseOrder) domain.PurchaseOrder {
	out := po
	out.Items = make([]domain.PurchaseLine, len(po.Items))
	copy(out.Items, po.Items)
	return out
}

func copySlice[T any](in []T, extra int) []T {
	out := make([]T, len(in), len(in)+extra)
	copy(out, in)
	return out
}

// Clone returns a deep copy of the state, safe to hand to code that mutates.
func (s State) Clone() State {
	out := s
	out.Products = make([]domain.Product, len(s.Products))
	for i, p := range s.Products {
		out.Products[i] = CloneProduct(p)
	}
	out.Invoices = make([]domain.Invoice, len(s.Invoices))
	for i, inv := range s.Invoices {
		out.Invoices[i] = CloneInvoice(inv)
	}
	out.Purchases = make([]domain.Purchase, len(s.Purchases))
	for i, p := range s.Purchases {
		out.Purchases[i] = clonePurchase(p)
	}
	out.PurchaseOrders = make([]domain.PurchaseOrder, len(s.PurchaseOrders))
	for i, po := range s.PurchaseOrders {
		out.PurchaseOrders[i] = clonePurchaseOrder(po)
	}
	out.Units = copySlice(s.Units, 0)
	out.Categories = copySlice(s.Categories, 0)
	out.Suppliers = copySlice(s.Suppliers, 0)
	return out
}
