package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"invoicely/backend/internal/domain"
	"invoicely/backend/internal/ledger"
	"invoicely/backend/internal/restock"
	"invoicely/backend/internal/store"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	// RebuildOnStart recomputes every allocation from the stored invoices
	// after loading and persists the result.
	RebuildOnStart bool
}

// Service serialises mutations over a single ledger snapshot. A mutation is
// published only after the store accepted every affected collection.
type Service struct {
	mu       sync.RWMutex
	kv       store.KV
	ledger   *ledger.Ledger
	restock  *restock.Engine
	validate *validator.Validate
	state    ledger.State
}

func New(ctx context.Context, kv store.KV, l *ledger.Ledger, opts Options) (*Service, error) {
	if l == nil {
		l = ledger.New(ledger.DefaultPolicy())
	}
	s := &Service{
		kv:       kv,
		ledger:   l,
		restock:  restock.NewEngine(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	state, err := loadState(ctx, kv)
	if err != nil {
		return nil, err
	}
	s.state = state
	policy := s.ledger.Policy()
	log.Printf("[service] loaded %d products, %d purchases, %d invoices (unknown products: %s, release on cancel: %t)",
		len(state.Products), len(state.Purchases), len(state.Invoices), policy.UnknownProduct, policy.ReleaseOnCancel)

	if opts.RebuildOnStart {
		found := s.ledger.Verify(state)
		if err := s.commit(ctx, s.ledger.Rebuild(state), store.KeyProducts); err != nil {
			return nil, fmt.Errorf("rebuild allocations: %w", err)
		}
		log.Printf("[service] rebuilt allocations on start, %d discrepancies repaired", len(found))
	}
	return s, nil
}

func loadState(ctx context.Context, kv store.KV) (ledger.State, error) {
	var (
		st  ledger.State
		err error
	)
	if st.Products, err = store.LoadJSON(ctx, kv, store.KeyProducts, []domain.Product{}); err != nil {
		return st, err
	}
	if st.Purchases, err = store.LoadJSON(ctx, kv, store.KeyPurchases, []domain.Purchase{}); err != nil {
		return st, err
	}
	if st.PurchaseOrders, err = store.LoadJSON(ctx, kv, store.KeyPurchaseOrders, []domain.PurchaseOrder{}); err != nil {
		return st, err
	}
	if st.Invoices, err = store.LoadJSON(ctx, kv, store.KeyInvoices, []domain.Invoice{}); err != nil {
		return st, err
	}
	if st.Units, err = store.LoadJSON(ctx, kv, store.KeyUnits, []domain.Unit{}); err != nil {
		return st, err
	}
	if st.Categories, err = store.LoadJSON(ctx, kv, store.KeyCategories, []domain.Category{}); err != nil {
		return st, err
	}
	if st.Suppliers, err = store.LoadJSON(ctx, kv, store.KeySuppliers, []domain.Supplier{}); err != nil {
		return st, err
	}
	if st.Settings, err = store.LoadJSON(ctx, kv, store.KeySettings, domain.DefaultSettings()); err != nil {
		return st, err
	}
	return normalizeState(st), nil
}

// normalizeState turns JSON nulls into empty collections.
func normalizeState(st ledger.State) ledger.State {
	st.Products = nonNil(st.Products)
	for i := range st.Products {
		st.Products[i].Sales = nonNil(st.Products[i].Sales)
	}
	st.Purchases = nonNil(st.Purchases)
	st.PurchaseOrders = nonNil(st.PurchaseOrders)
	st.Invoices = nonNil(st.Invoices)
	st.Units = nonNil(st.Units)
	st.Categories = nonNil(st.Categories)
	st.Suppliers = nonNil(st.Suppliers)
	st.Settings = ledger.NormalizeSettings(st.Settings)
	return st
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

func collection(st ledger.State, key string) any {
	switch key {
	case store.KeyProducts:
		return st.Products
	case store.KeyPurchases:
		return st.Purchases
	case store.KeyPurchaseOrders:
		return st.PurchaseOrders
	case store.KeyInvoices:
		return st.Invoices
	case store.KeyUnits:
		return st.Units
	case store.KeyCategories:
		return st.Categories
	case store.KeySuppliers:
		return st.Suppliers
	case store.KeySettings:
		return st.Settings
	}
	return nil
}

// commit persists the listed collections of next and publishes it. The
// caller must hold s.mu for writing, except during New.
func (s *Service) commit(ctx context.Context, next ledger.State, keys ...string) error {
	entries := make([]store.Entry, 0, len(keys))
	for _, key := range keys {
		entry, err := store.EncodeEntry(key, collection(next, key))
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}
	if err := s.kv.Save(ctx, entries...); err != nil {
		return fmt.Errorf("save %s: %w", strings.Join(keys, ","), err)
	}
	s.state = next
	return nil
}

func (s *Service) snapshot() ledger.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot returns a deep copy of the current state.
func (s *Service) Snapshot() ledger.State {
	return s.snapshot().Clone()
}

func (s *Service) check(req any) error {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrValidation, strings.Join(fields, "; "))
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

func requireRole(ctx context.Context, roles ...string) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, fmt.Errorf("%w: no actor", ErrForbidden)
	}
	for _, role := range roles {
		if actor.Role == role {
			return actor, nil
		}
	}
	return domain.Actor{}, fmt.Errorf("%w: role %s", ErrForbidden, actor.Role)
}

func requireAdmin(ctx context.Context) (domain.Actor, error) {
	return requireRole(ctx, domain.RoleAdmin)
}

func requireOperator(ctx context.Context) (domain.Actor, error) {
	return requireRole(ctx, domain.RoleAdmin, domain.RoleClerk)
}

func logAudit(actor domain.Actor, action string, entityType string, entityID string, detail string) {
	log.Printf("[audit] actor=%s role=%s action=%s entity=%s/%s %s", actor.Username, actor.Role, action, entityType, entityID, detail)
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}
