package ledger

import (
	"fmt"
	"strings"

	"invoicely/backend/internal/domain"
)

func validateProduct(p domain.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name required", ErrInvalidProduct)
	}
	if !inRange(p.Price) || (p.ThresholdValue != nil && !inRange(*p.ThresholdValue)) {
		return fmt.Errorf("%w: price and threshold allow at most %d integer digits and %d decimals", ErrInvalidProduct, maxIntegerDigits, maxScale)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if p.ThresholdValue != nil && p.ThresholdValue.IsNegative() {
		return fmt.Errorf("%w: threshold must not be negative", ErrInvalidProduct)
	}
	return nil
}

// AddProduct registers a product. New products never carry allocations.
func (l *Ledger) AddProduct(s State, draft domain.Product) (State, domain.Product, error) {
	if err := validateProduct(draft); err != nil {
		return s, domain.Product{}, err
	}
	p := CloneProduct(draft)
	p.ID = l.newID("prd")
	p.Name = strings.TrimSpace(p.Name)
	p.Sales = []domain.SaleAllocation{}

	next := s
	next.Products = append(copySlice(s.Products, 1), p)
	return next, CloneProduct(p), nil
}

// UpdateProduct edits catalog fields. Allocations are left untouched.
func (l *Ledger) UpdateProduct(s State, id string, req domain.ProductUpdateRequest) (State, domain.Product, error) {
	idx, ok := findProduct(s.Products, id)
	if !ok {
		return s, domain.Product{}, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}

	p := CloneProduct(s.Products[idx])
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.UnitID != nil {
		p.UnitID = *req.UnitID
	}
	if req.CategoryID != nil {
		p.CategoryID = *req.CategoryID
	}
	if req.ThresholdValue != nil {
		v := *req.ThresholdValue
		p.ThresholdValue = &v
	}
	if err := validateProduct(p); err != nil {
		return s, domain.Product{}, err
	}

	next := s
	next.Products = copySlice(s.Products, 0)
	next.Products[idx] = p
	return next, CloneProduct(p), nil
}

func (l *Ledger) AddUnit(s State, unit domain.Unit) (State, domain.Unit) {
	unit.ID = l.newID("unit")
	next := s
	next.Units = append(copySlice(s.Units, 1), unit)
	return next, unit
}

func (l *Ledger) AddCategory(s State, category domain.Category) (State, domain.Category) {
	category.ID = l.newID("cat")
	next := s
	next.Categories = append(copySlice(s.Categories, 1), category)
	return next, category
}

func (l *Ledger) AddSupplier(s State, supplier domain.Supplier) (State, domain.Supplier) {
	supplier.ID = l.newID("sup")
	next := s
	next.Suppliers = append(copySlice(s.Suppliers, 1), supplier)
	return next, supplier
}

// NormalizeSettings fills blank fields from the defaults.
func NormalizeSettings(settings domain.Settings) domain.Settings {
	defaults := domain.DefaultSettings()
	if strings.TrimSpace(settings.CompanyName) == "" {
		settings.CompanyName = defaults.CompanyName
	}
	settings.Currency = strings.ToUpper(strings.TrimSpace(settings.Currency))
	if settings.Currency == "" {
		settings.Currency = defaults.Currency
	}
	if settings.InvoicePrefix == "" {
		settings.InvoicePrefix = defaults.InvoicePrefix
	}
	if !inRange(settings.TaxRatePercent) || settings.TaxRatePercent.IsNegative() || settings.TaxRatePercent.GreaterThan(hundred) {
		settings.TaxRatePercent = defaults.TaxRatePercent
	}
	if !inRange(settings.LowStockDefault) || settings.LowStockDefault.IsNegative() {
		settings.LowStockDefault = defaults.LowStockDefault
	}
	return settings
}

// UpdateSettings stores normalized settings. Unlike NormalizeSettings, which
// repairs loaded documents, it rejects out-of-range rates.
func (l *Ledger) UpdateSettings(s State, settings domain.Settings) (State, error) {
	if !inRange(settings.TaxRatePercent) || settings.TaxRatePercent.IsNegative() || settings.TaxRatePercent.GreaterThan(hundred) {
		return s, fmt.Errorf("%w: tax rate must be within 0..100 with at most %d decimals", ErrInvalidSettings, maxScale)
	}
	if !inRange(settings.LowStockDefault) || settings.LowStockDefault.IsNegative() {
		return s, fmt.Errorf("%w: low stock default out of range", ErrInvalidSettings)
	}
	next := s
	next.Settings = NormalizeSettings(settings)
	return next, nil
}
