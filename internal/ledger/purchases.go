package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"invoicely/backend/internal/domain"
)

func (l *Ledger) checkPurchaseLines(s State, items []domain.PurchaseLine) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: at least one line required", ErrInvalidLineItem)
	}
	for i, line := range items {
		if line.ProductID == "" {
			return fmt.Errorf("%w: line %d product required", ErrInvalidLineItem, i+1)
		}
		if !inRange(line.Quantity) || !inRange(line.Price) {
			return fmt.Errorf("%w: line %d has a value out of range (at most %d integer digits and %d decimals)", ErrInvalidLineItem, i+1, maxIntegerDigits, maxScale)
		}
		if !line.Quantity.IsPositive() {
			return fmt.Errorf("%w: line %d quantity must be positive", ErrInvalidLineItem, i+1)
		}
		if line.Price.IsNegative() {
			return fmt.Errorf("%w: line %d price must not be negative", ErrInvalidLineItem, i+1)
		}
		if l.policy.UnknownProduct == UnknownProductReject {
			if _, ok := findProduct(s.Products, line.ProductID); !ok {
				return fmt.Errorf("%w: %s", ErrUnknownProduct, line.ProductID)
			}
		}
	}
	return nil
}

func linesTotal(items []domain.PurchaseLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range items {
		total = total.Add(line.Quantity.Mul(line.Price))
	}
	return total.Round(2)
}

// AddPurchase records inbound stock. Purchases are append-only.
func (l *Ledger) AddPurchase(s State, draft domain.Purchase) (State, domain.Purchase, error) {
	if err := l.checkPurchaseLines(s, draft.Items); err != nil {
		return s, domain.Purchase{}, err
	}
	if !inRange(draft.TotalAmount) || draft.TotalAmount.IsNegative() {
		return s, domain.Purchase{}, fmt.Errorf("%w: total amount out of range", ErrInvalidLineItem)
	}

	p := clonePurchase(draft)
	p.ID = l.newID("pur")
	if p.Date.IsZero() {
		p.Date = l.now()
	}
	if p.TotalAmount.IsZero() {
		p.TotalAmount = linesTotal(p.Items)
	}

	next := s
	next.Purchases = append(copySlice(s.Purchases, 1), p)
	return next, clonePurchase(p), nil
}

func (l *Ledger) AddPurchaseOrder(s State, draft domain.PurchaseOrder) (State, domain.PurchaseOrder, error) {
	if err := l.checkPurchaseLines(s, draft.Items); err != nil {
		return s, domain.PurchaseOrder{}, err
	}

	po := clonePurchaseOrder(draft)
	po.ID = l.newID("po")
	if po.OrderDate.IsZero() {
		po.OrderDate = l.now()
	}
	po.Total = linesTotal(po.Items)

	next := s
	next.PurchaseOrders = append(copySlice(s.PurchaseOrders, 1), po)
	return next, clonePurchaseOrder(po), nil
}

// ReceivePurchaseOrder books a purchase entry against an order. Only products
// on the order may be received; receiving more than ordered is allowed.
func (l *Ledger) ReceivePurchaseOrder(s State, orderID string, entry domain.Purchase) (State, domain.Purchase, error) {
	idx, ok := findPurchaseOrder(s.PurchaseOrders, orderID)
	if !ok {
		return s, domain.Purchase{}, fmt.Errorf("purchase order %s: %w", orderID, ErrNotFound)
	}
	po := s.PurchaseOrders[idx]

	ordered := make(map[string]struct{}, len(po.Items))
	for _, line := range po.Items {
		ordered[line.ProductID] = struct{}{}
	}
	for i, line := range entry.Items {
		if _, ok := ordered[line.ProductID]; !ok {
			return s, domain.Purchase{}, fmt.Errorf("%w: line %d product %s is not on order %s", ErrInvalidLineItem, i+1, line.ProductID, orderID)
		}
	}

	entry.PurchaseOrderID = po.ID
	entry.SupplierID = po.SupplierID
	entry.VendorName = po.VendorName
	return l.AddPurchase(s, entry)
}

// OrderProgress compares ordered and received quantities for an order.
func OrderProgress(s State, orderID string) (domain.OrderProgress, error) {
	idx, ok := findPurchaseOrder(s.PurchaseOrders, orderID)
	if !ok {
		return domain.OrderProgress{}, fmt.Errorf("purchase order %s: %w", orderID, ErrNotFound)
	}
	po := clonePurchaseOrder(s.PurchaseOrders[idx])

	received := make(map[string]decimal.Decimal)
	for _, p := range s.Purchases {
		if p.PurchaseOrderID != po.ID {
			continue
		}
		for _, line := range p.Items {
			received[line.ProductID] = received[line.ProductID].Add(line.Quantity)
		}
	}

	lines := make([]domain.OrderLineProgress, 0, len(po.Items))
	index := make(map[string]int, len(po.Items))
	for _, line := range po.Items {
		if i, ok := index[line.ProductID]; ok {
			lines[i].Ordered = lines[i].Ordered.Add(line.Quantity)
			continue
		}
		index[line.ProductID] = len(lines)
		lines = append(lines, domain.OrderLineProgress{ProductID: line.ProductID, Ordered: line.Quantity})
	}

	anyReceived, allReceived := false, true
	for i := range lines {
		got := received[lines[i].ProductID]
		lines[i].Received = got
		lines[i].Remaining = decimal.Max(decimal.Zero, lines[i].Ordered.Sub(got))
		if got.IsPositive() {
			anyReceived = true
		}
		if lines[i].Remaining.IsPositive() {
			allReceived = false
		}
	}

	status := domain.OrderStatusOpen
	switch {
	case allReceived:
		status = domain.OrderStatusReceived
	case anyReceived:
		status = domain.OrderStatusPartial
	}
	return domain.OrderProgress{PurchaseOrder: po, Status: status, Lines: lines}, nil
}
