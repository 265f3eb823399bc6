package service

import (
	"context"
	"strings"
	"time"

	"invoicely/backend/internal/domain"
	"invoicely/backend/internal/ledger"
	"invoicely/backend/internal/store"
)

// AvailableStock never fails: unknown products report zero.
func (s *Service) AvailableStock(_ context.Context, productID string, excludeInvoiceID string) domain.AvailableStockResponse {
	productID = strings.TrimSpace(productID)
	excludeInvoiceID = strings.TrimSpace(excludeInvoiceID)
	return domain.AvailableStockResponse{
		ProductID:        productID,
		ExcludeInvoiceID: excludeInvoiceID,
		Available:        ledger.AvailableStock(s.snapshot(), productID, excludeInvoiceID),
	}
}

func (s *Service) StockLevels(_ context.Context) []domain.StockLevel {
	return ledger.StockLevels(s.snapshot())
}

func (s *Service) VerifyStock(_ context.Context) []domain.Discrepancy {
	return s.ledger.Verify(s.snapshot())
}

// RebuildStock recomputes all allocations from the live invoices and returns
// what was repaired.
func (s *Service) RebuildStock(ctx context.Context) (domain.RebuildResponse, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.RebuildResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	found := s.ledger.Verify(s.state)
	if len(found) > 0 {
		if err := s.commit(ctx, s.ledger.Rebuild(s.state), store.KeyProducts); err != nil {
			return domain.RebuildResponse{}, err
		}
	}
	logAudit(actor, "stock_rebuild", "stock", "all", "")
	return domain.RebuildResponse{
		Discrepancies: found,
		RebuiltAt:     time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (s *Service) RestockSuggestions(_ context.Context) domain.RestockResponse {
	st := s.snapshot()
	return s.restock.Suggest(ledger.StockLevels(st), st.Purchases)
}
