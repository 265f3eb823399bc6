package service

import (
	"context"
	"fmt"
	"strings"

	"invoicely/backend/internal/domain"
	"invoicely/backend/internal/ledger"
	"invoicely/backend/internal/store"
)

func purchaseLines(items []domain.PurchaseLineRequest) []domain.PurchaseLine {
	out := make([]domain.PurchaseLine, 0, len(items))
	for _, item := range items {
		out = append(out, domain.PurchaseLine{
			ProductID: strings.TrimSpace(item.ProductID),
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return out
}

func (s *Service) ListPurchases(_ context.Context) []domain.Purchase {
	st := s.snapshot().Clone()
	return st.Purchases
}

func (s *Service) CreatePurchase(ctx context.Context, req domain.PurchaseCreateRequest) (domain.Purchase, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.Purchase{}, err
	}
	if err := s.check(req); err != nil {
		return domain.Purchase{}, err
	}

	draft := domain.Purchase{
		Date:       timeOrZero(req.Date),
		VendorName: strings.TrimSpace(req.VendorName),
		SupplierID: strings.TrimSpace(req.SupplierID),
		Items:      purchaseLines(req.Items),
	}
	if req.TotalAmount != nil {
		draft.TotalAmount = *req.TotalAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, created, err := s.ledger.AddPurchase(s.state, draft)
	if err != nil {
		return domain.Purchase{}, err
	}
	if err := s.commit(ctx, next, store.KeyPurchases); err != nil {
		return domain.Purchase{}, err
	}
	logAudit(actor, "purchase_create", "purchase", created.ID, fmt.Sprintf("lines=%d total=%s", len(created.Items), created.TotalAmount))
	return created, nil
}

func (s *Service) ListPurchaseOrders(_ context.Context) []domain.OrderProgress {
	st := s.snapshot()
	out := make([]domain.OrderProgress, 0, len(st.PurchaseOrders))
	for _, po := range st.PurchaseOrders {
		progress, err := ledger.OrderProgress(st, po.ID)
		if err != nil {
			continue
		}
		out = append(out, progress)
	}
	return out
}

func (s *Service) GetPurchaseOrder(_ context.Context, id string) (domain.OrderProgress, error) {
	return ledger.OrderProgress(s.snapshot(), id)
}

func (s *Service) CreatePurchaseOrder(ctx context.Context, req domain.PurchaseOrderCreateRequest) (domain.PurchaseOrder, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	if err := s.check(req); err != nil {
		return domain.PurchaseOrder{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, created, err := s.ledger.AddPurchaseOrder(s.state, domain.PurchaseOrder{
		OrderDate:  timeOrZero(req.OrderDate),
		SupplierID: strings.TrimSpace(req.SupplierID),
		VendorName: strings.TrimSpace(req.VendorName),
		Items:      purchaseLines(req.Items),
		Notes:      strings.TrimSpace(req.Notes),
	})
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	if err := s.commit(ctx, next, store.KeyPurchaseOrders); err != nil {
		return domain.PurchaseOrder{}, err
	}
	logAudit(actor, "purchase_order_create", "purchase_order", created.ID, fmt.Sprintf("lines=%d total=%s", len(created.Items), created.Total))
	return created, nil
}

func (s *Service) ReceivePurchaseOrder(ctx context.Context, id string, req domain.PurchaseOrderReceiveRequest) (domain.Purchase, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.Purchase{}, err
	}
	if err := s.check(req); err != nil {
		return domain.Purchase{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, entry, err := s.ledger.ReceivePurchaseOrder(s.state, id, domain.Purchase{
		Date:  timeOrZero(req.Date),
		Items: purchaseLines(req.Items),
	})
	if err != nil {
		return domain.Purchase{}, err
	}
	if err := s.commit(ctx, next, store.KeyPurchases); err != nil {
		return domain.Purchase{}, err
	}
	logAudit(actor, "purchase_order_receive", "purchase_order", id, fmt.Sprintf("entry=%s lines=%d", entry.ID, len(entry.Items)))
	return entry, nil
}
