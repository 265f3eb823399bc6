package service

import (
	"context"
	"fmt"
	"strings"

	"invoicely/backend/internal/domain"
	"invoicely/backend/internal/ledger"
	"invoicely/backend/internal/store"
)

func invoiceFromRequest(id string, req domain.InvoiceRequest) domain.Invoice {
	items := make([]domain.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.LineItem{
			ID:          strings.TrimSpace(item.ID),
			ProductID:   strings.TrimSpace(item.ProductID),
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			Price:       item.Price,
			Discount:    item.Discount,
			TaxPercent:  item.TaxPercent,
		})
	}
	return domain.Invoice{
		ID:            id,
		InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
		ClientName:    strings.TrimSpace(req.ClientName),
		ClientEmail:   strings.TrimSpace(req.ClientEmail),
		ClientAddress: strings.TrimSpace(req.ClientAddress),
		InvoiceDate:   req.InvoiceDate.UTC(),
		DueDate:       req.DueDate.UTC(),
		Status:        req.Status,
		Currency:      strings.ToUpper(strings.TrimSpace(req.Currency)),
		Items:         items,
		TaxID:         strings.TrimSpace(req.TaxID),
		TaxAmount:     req.TaxAmount,
		Notes:         req.Notes,
	}
}

func invoiceResponse(inv domain.Invoice) domain.InvoiceResponse {
	return domain.InvoiceResponse{Invoice: inv, Totals: ledger.Totals(inv)}
}

func (s *Service) checkInvoice(req domain.InvoiceRequest) error {
	if err := s.check(req); err != nil {
		return err
	}
	if req.DueDate.Before(req.InvoiceDate) {
		return fmt.Errorf("%w: dueDate is before invoiceDate", ErrValidation)
	}
	return nil
}

func (s *Service) ListInvoices(_ context.Context) []domain.InvoiceResponse {
	st := s.snapshot()
	out := make([]domain.InvoiceResponse, 0, len(st.Invoices))
	for _, inv := range st.Invoices {
		out = append(out, invoiceResponse(ledger.CloneInvoice(inv)))
	}
	return out
}

func (s *Service) GetInvoice(_ context.Context, id string) (domain.InvoiceResponse, error) {
	for _, inv := range s.snapshot().Invoices {
		if inv.ID == id {
			return invoiceResponse(ledger.CloneInvoice(inv)), nil
		}
	}
	return domain.InvoiceResponse{}, fmt.Errorf("invoice %s: %w", id, store.ErrNotFound)
}

func (s *Service) CreateInvoice(ctx context.Context, req domain.InvoiceRequest) (domain.InvoiceResponse, error) {
	actor, err := requireOperator(ctx)
	if err != nil {
		return domain.InvoiceResponse{}, err
	}
	if err := s.checkInvoice(req); err != nil {
		return domain.InvoiceResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, created, err := s.ledger.AddInvoice(s.state, invoiceFromRequest("", req))
	if err != nil {
		return domain.InvoiceResponse{}, err
	}
	if err := s.commit(ctx, next, store.KeyProducts, store.KeyInvoices); err != nil {
		return domain.InvoiceResponse{}, err
	}
	logAudit(actor, "invoice_create", "invoice", created.ID, fmt.Sprintf("number=%s lines=%d status=%s", created.InvoiceNumber, len(created.Items), created.Status))
	return invoiceResponse(created), nil
}

// UpdateInvoice replaces the invoice stored under id. An id that is not
// stored yet is created with the given lines.
func (s *Service) UpdateInvoice(ctx context.Context, id string, req domain.InvoiceRequest) (domain.InvoiceResponse, error) {
	actor, err := requireOperator(ctx)
	if err != nil {
		return domain.InvoiceResponse{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.InvoiceResponse{}, fmt.Errorf("%w: invoice id required", ErrValidation)
	}
	if err := s.checkInvoice(req); err != nil {
		return domain.InvoiceResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, updated, err := s.ledger.UpdateInvoice(s.state, invoiceFromRequest(id, req))
	if err != nil {
		return domain.InvoiceResponse{}, err
	}
	if err := s.commit(ctx, next, store.KeyProducts, store.KeyInvoices); err != nil {
		return domain.InvoiceResponse{}, err
	}
	logAudit(actor, "invoice_update", "invoice", updated.ID, fmt.Sprintf("number=%s lines=%d status=%s", updated.InvoiceNumber, len(updated.Items), updated.Status))
	return invoiceResponse(updated), nil
}

// DeleteInvoice reports whether an invoice was removed. Unknown ids are not an error.
func (s *Service) DeleteInvoice(ctx context.Context, id string) (bool, error) {
	actor, err := requireOperator(ctx)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.ledger.DeleteInvoice(s.state, id)
	if len(next.Invoices) == len(s.state.Invoices) {
		return false, nil
	}
	if err := s.commit(ctx, next, store.KeyProducts, store.KeyInvoices); err != nil {
		return false, err
	}
	logAudit(actor, "invoice_delete", "invoice", id, "")
	return true, nil
}

func (s *Service) SetInvoiceStatus(ctx context.Context, id string, req domain.InvoiceStatusRequest) (domain.InvoiceResponse, error) {
	actor, err := requireOperator(ctx)
	if err != nil {
		return domain.InvoiceResponse{}, err
	}
	if err := s.check(req); err != nil {
		return domain.InvoiceResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, updated, err := s.ledger.SetInvoiceStatus(s.state, id, req.Status)
	if err != nil {
		return domain.InvoiceResponse{}, err
	}
	if err := s.commit(ctx, next, store.KeyProducts, store.KeyInvoices); err != nil {
		return domain.InvoiceResponse{}, err
	}
	logAudit(actor, "invoice_status", "invoice", id, fmt.Sprintf("status=%s", updated.Status))
	return invoiceResponse(updated), nil
}
