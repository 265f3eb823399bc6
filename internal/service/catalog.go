package service

import (
	"context"
	"fmt"
	"strings"

	"invoicely/backend/internal/domain"
	"invoicely/backend/internal/ledger"
	"invoicely/backend/internal/store"
)

func productView(st ledger.State, p domain.Product) domain.ProductView {
	return domain.ProductView{
		Product:   ledger.CloneProduct(p),
		Available: ledger.AvailableStock(st, p.ID, ""),
	}
}

func (s *Service) ListProducts(_ context.Context) []domain.ProductView {
	st := s.snapshot()
	out := make([]domain.ProductView, 0, len(st.Products))
	for _, p := range st.Products {
		out = append(out, productView(st, p))
	}
	return out
}

func (s *Service) GetProduct(_ context.Context, id string) (domain.ProductView, error) {
	st := s.snapshot()
	for _, p := range st.Products {
		if p.ID == id {
			return productView(st, p), nil
		}
	}
	return domain.ProductView{}, fmt.Errorf("product %s: %w", id, store.ErrNotFound)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	if err := s.check(req); err != nil {
		return domain.Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, created, err := s.ledger.AddProduct(s.state, domain.Product{
		Name:           req.Name,
		Price:          req.Price,
		UnitID:         strings.TrimSpace(req.UnitID),
		CategoryID:     strings.TrimSpace(req.CategoryID),
		ThresholdValue: req.ThresholdValue,
	})
	if err != nil {
		return domain.Product{}, err
	}
	if err := s.commit(ctx, next, store.KeyProducts); err != nil {
		return domain.Product{}, err
	}
	logAudit(actor, "product_create", "product", created.ID, fmt.Sprintf("name=%q price=%s", created.Name, created.Price))
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	if err := s.check(req); err != nil {
		return domain.Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, updated, err := s.ledger.UpdateProduct(s.state, id, req)
	if err != nil {
		return domain.Product{}, err
	}
	if err := s.commit(ctx, next, store.KeyProducts); err != nil {
		return domain.Product{}, err
	}
	logAudit(actor, "product_update", "product", updated.ID, fmt.Sprintf("name=%q price=%s", updated.Name, updated.Price))
	return updated, nil
}

func (s *Service) ListUnits(_ context.Context) []domain.Unit {
	st := s.snapshot()
	out := make([]domain.Unit, len(st.Units))
	copy(out, st.Units)
	return out
}

func (s *Service) CreateUnit(ctx context.Context, req domain.UnitCreateRequest) (domain.Unit, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.Unit{}, err
	}
	if err := s.check(req); err != nil {
		return domain.Unit{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, unit := s.ledger.AddUnit(s.state, domain.Unit{
		Name:   strings.TrimSpace(req.Name),
		Symbol: strings.TrimSpace(req.Symbol),
	})
	if err := s.commit(ctx, next, store.KeyUnits); err != nil {
		return domain.Unit{}, err
	}
	logAudit(actor, "unit_create", "unit", unit.ID, fmt.Sprintf("name=%q", unit.Name))
	return unit, nil
}

func (s *Service) ListCategories(_ context.Context) []domain.Category {
	st := s.snapshot()
	out := make([]domain.Category, len(st.Categories))
	copy(out, st.Categories)
	return out
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (domain.Category, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.Category{}, err
	}
	if err := s.check(req); err != nil {
		return domain.Category{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, category := s.ledger.AddCategory(s.state, domain.Category{Name: strings.TrimSpace(req.Name)})
	if err := s.commit(ctx, next, store.KeyCategories); err != nil {
		return domain.Category{}, err
	}
	logAudit(actor, "category_create", "category", category.ID, fmt.Sprintf("name=%q", category.Name))
	return category, nil
}

func (s *Service) ListSuppliers(_ context.Context) []domain.Supplier {
	st := s.snapshot()
	out := make([]domain.Supplier, len(st.Suppliers))
	copy(out, st.Suppliers)
	return out
}

func (s *Service) CreateSupplier(ctx context.Context, req domain.SupplierCreateRequest) (domain.Supplier, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.Supplier{}, err
	}
	if err := s.check(req); err != nil {
		return domain.Supplier{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, supplier := s.ledger.AddSupplier(s.state, domain.Supplier{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
	})
	if err := s.commit(ctx, next, store.KeySuppliers); err != nil {
		return domain.Supplier{}, err
	}
	logAudit(actor, "supplier_create", "supplier", supplier.ID, fmt.Sprintf("name=%q", supplier.Name))
	return supplier, nil
}

func (s *Service) GetSettings(_ context.Context) domain.Settings {
	return s.snapshot().Settings
}

func (s *Service) UpdateSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	if c := strings.TrimSpace(settings.Currency); c != "" && len(c) != 3 {
		return domain.Settings{}, fmt.Errorf("%w: currency must be a 3-letter code", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.ledger.UpdateSettings(s.state, settings)
	if err != nil {
		return domain.Settings{}, err
	}
	if err := s.commit(ctx, next, store.KeySettings); err != nil {
		return domain.Settings{}, err
	}
	logAudit(actor, "settings_update", "settings", "company", fmt.Sprintf("currency=%s prefix=%s", next.Settings.Currency, next.Settings.InvoicePrefix))
	return next.Settings, nil
}
