package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"invoicely/backend/internal/domain"
	"invoicely/backend/internal/ledger"
	"invoicely/backend/internal/service"
	"invoicely/backend/internal/store/memory"
)

const (
	adminPassword = "admin-pass-123"
	clerkPassword = "clerk-pass-123"
)

// newTestAPI builds a full API over a seeded in-memory store so handler
// tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	svc, err := service.New(context.Background(), memory.NewSeeded(), ledger.New(ledger.DefaultPolicy()), service.Options{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	auth, err := NewAuthManager(testSecret, time.Hour,
		Account{Username: "admin", Password: adminPassword, Role: domain.RoleAdmin},
		Account{Username: "clerk", Password: clerkPassword, Role: domain.RoleClerk},
	)
	if err != nil {
		t.Fatalf("new auth manager: %v", err)
	}
	return New(svc, auth, "*")
}

func login(t *testing.T, api *API, username, password string) string {
	t.Helper()

	body, _ := json.Marshal(domain.LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("%s login failed, status %d", username, res.Code)
	}

	var payload domain.LoginResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login response failed: %v", err)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		t.Fatalf("expected access token in login response")
	}
	return payload.AccessToken
}

func do(t *testing.T, api *API, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	return res
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.NewDecoder(res.Body).Decode(dest); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func invoicePayload(productID string, qty int64) domain.InvoiceRequest {
	return domain.InvoiceRequest{
		ClientName:  "Globex",
		InvoiceDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		DueDate:     time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC),
		Items: []domain.LineItemRequest{{
			ProductID:   productID,
			Description: "Paper A4",
			Quantity:    decimal.NewFromInt(qty),
			Price:       decimal.RequireFromString("6.50"),
		}},
	}
}

func availableOf(t *testing.T, api *API, token, productID, exclude string) decimal.Decimal {
	t.Helper()
	path := "/api/v1/products/" + productID + "/stock"
	if exclude != "" {
		path += "?excludeInvoiceId=" + exclude
	}
	res := do(t, api, http.MethodGet, path, token, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("stock lookup status %d", res.Code)
	}
	var payload domain.AvailableStockResponse
	decodeBody(t, res, &payload)
	return payload.Available
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	res := do(t, api, http.MethodGet, "/healthz", "", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var body map[string]any
	decodeBody(t, res, &body)
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	res := do(t, api, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: "admin", Password: "wrong"})
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)
	res := do(t, api, http.MethodGet, "/api/v1/products", "", nil)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", res.Code)
	}
	res = do(t, api, http.MethodGet, "/api/v1/products", "not-a-token", nil)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", res.Code)
	}
}

func TestClerkCannotManageCatalog(t *testing.T) {
	api := newTestAPI(t)
	clerk := login(t, api, "clerk", clerkPassword)

	res := do(t, api, http.MethodPost, "/api/v1/products", clerk, domain.ProductCreateRequest{Name: "Pen", UnitID: "unit-pc"})
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for clerk product create, got %d", res.Code)
	}
	res = do(t, api, http.MethodPost, "/api/v1/stock/rebuild", clerk, nil)
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for clerk rebuild, got %d", res.Code)
	}
	res = do(t, api, http.MethodGet, "/api/v1/stock", clerk, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected clerk to read stock, got %d", res.Code)
	}
}

func TestInvoiceEndpointsTrackStock(t *testing.T) {
	api := newTestAPI(t)
	clerk := login(t, api, "clerk", clerkPassword)
	const paper = "prd-paper-a4"

	before := availableOf(t, api, clerk, paper, "")
	if !before.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("expected seeded 120 boxes, got %s", before)
	}

	res := do(t, api, http.MethodPost, "/api/v1/invoices", clerk, invoicePayload(paper, 20))
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", res.Code, res.Body.String())
	}
	var created domain.InvoiceResponse
	decodeBody(t, res, &created)
	if !created.Totals.Total.Equal(decimal.NewFromInt(130)) {
		t.Fatalf("expected total 130, got %s", created.Totals.Total)
	}
	id := created.Invoice.ID

	if got := availableOf(t, api, clerk, paper, ""); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected 100 after invoice, got %s", got)
	}
	if got := availableOf(t, api, clerk, paper, id); !got.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("expected 120 excluding the invoice, got %s", got)
	}

	res = do(t, api, http.MethodPut, "/api/v1/invoices/"+id, clerk, invoicePayload(paper, 5))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 on update, got %d (body: %s)", res.Code, res.Body.String())
	}
	if got := availableOf(t, api, clerk, paper, ""); !got.Equal(decimal.NewFromInt(115)) {
		t.Fatalf("expected 115 after update, got %s", got)
	}

	res = do(t, api, http.MethodPost, "/api/v1/invoices/"+id+"/status", clerk, domain.InvoiceStatusRequest{Status: domain.InvoiceStatusCancelled})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 on status change, got %d", res.Code)
	}
	if got := availableOf(t, api, clerk, paper, ""); !got.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("expected cancelled invoice to release stock, got %s", got)
	}

	res = do(t, api, http.MethodDelete, "/api/v1/invoices/"+id, clerk, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", res.Code)
	}
	res = do(t, api, http.MethodDelete, "/api/v1/invoices/"+id, clerk, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected idempotent delete, got %d", res.Code)
	}
	var deleted map[string]any
	decodeBody(t, res, &deleted)
	if deleted["deleted"] != false {
		t.Fatalf("expected second delete to report deleted=false, got %v", deleted["deleted"])
	}

	res = do(t, api, http.MethodGet, "/api/v1/invoices/"+id, clerk, nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", res.Code)
	}
}

func TestUnknownProductStockIsZero(t *testing.T) {
	api := newTestAPI(t)
	clerk := login(t, api, "clerk", clerkPassword)
	if got := availableOf(t, api, clerk, "prd-missing", ""); !got.IsZero() {
		t.Fatalf("expected 0 for unknown product, got %s", got)
	}
}

func TestInvoiceValidationErrors(t *testing.T) {
	api := newTestAPI(t)
	clerk := login(t, api, "clerk", clerkPassword)

	bad := invoicePayload("prd-paper-a4", 0)
	res := do(t, api, http.MethodPost, "/api/v1/invoices", clerk, bad)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero quantity, got %d", res.Code)
	}

	bad = invoicePayload("prd-paper-a4", 1)
	bad.ClientName = ""
	res = do(t, api, http.MethodPost, "/api/v1/invoices", clerk, bad)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing client, got %d", res.Code)
	}

	res = do(t, api, http.MethodPost, "/api/v1/invoices/inv-missing/status", clerk, domain.InvoiceStatusRequest{Status: domain.InvoiceStatusPaid})
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown invoice status change, got %d", res.Code)
	}
}

func TestAdminCatalogAndPurchaseFlow(t *testing.T) {
	api := newTestAPI(t)
	admin := login(t, api, "admin", adminPassword)

	res := do(t, api, http.MethodPost, "/api/v1/products", admin, domain.ProductCreateRequest{
		Name: "Envelope C5", Price: decimal.RequireFromString("0.40"), UnitID: "unit-pc",
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", res.Code, res.Body.String())
	}
	var created struct {
		Product domain.Product `json:"product"`
	}
	decodeBody(t, res, &created)

	res = do(t, api, http.MethodPost, "/api/v1/purchase-orders", admin, domain.PurchaseOrderCreateRequest{
		SupplierID: "sup-acme",
		Items:      []domain.PurchaseLineRequest{{ProductID: created.Product.ID, Quantity: decimal.NewFromInt(500), Price: decimal.RequireFromString("0.10")}},
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201 for order, got %d (body: %s)", res.Code, res.Body.String())
	}
	var order struct {
		PurchaseOrder domain.PurchaseOrder `json:"purchase_order"`
	}
	decodeBody(t, res, &order)

	res = do(t, api, http.MethodPost, "/api/v1/purchase-orders/"+order.PurchaseOrder.ID+"/receive", admin, domain.PurchaseOrderReceiveRequest{
		Items: []domain.PurchaseLineRequest{{ProductID: created.Product.ID, Quantity: decimal.NewFromInt(500), Price: decimal.RequireFromString("0.10")}},
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201 for receipt, got %d (body: %s)", res.Code, res.Body.String())
	}

	res = do(t, api, http.MethodGet, "/api/v1/purchase-orders/"+order.PurchaseOrder.ID, admin, nil)
	var progress domain.OrderProgress
	decodeBody(t, res, &progress)
	if progress.Status != domain.OrderStatusReceived {
		t.Fatalf("expected received order, got %s", progress.Status)
	}
	if got := availableOf(t, api, admin, created.Product.ID, ""); !got.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected 500 envelopes, got %s", got)
	}
}

func TestStockVerifyAndRestock(t *testing.T) {
	api := newTestAPI(t)
	admin := login(t, api, "admin", adminPassword)

	res := do(t, api, http.MethodGet, "/api/v1/stock/verify", admin, nil)
	var verify struct {
		Discrepancies []domain.Discrepancy `json:"discrepancies"`
	}
	decodeBody(t, res, &verify)
	if len(verify.Discrepancies) != 0 {
		t.Fatalf("expected seeded ledger to be consistent, got %+v", verify.Discrepancies)
	}

	res = do(t, api, http.MethodPost, "/api/v1/stock/rebuild", admin, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 for rebuild, got %d", res.Code)
	}

	res = do(t, api, http.MethodGet, "/api/v1/stock/restock", admin, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 for restock, got %d", res.Code)
	}
	var restock domain.RestockResponse
	decodeBody(t, res, &restock)
	if restock.GeneratedAt == "" {
		t.Fatalf("expected generatedAt")
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	admin := login(t, api, "admin", adminPassword)

	res := do(t, api, http.MethodPut, "/api/v1/settings", admin, domain.Settings{CompanyName: "Initech", Currency: "eur", InvoicePrefix: "IT-"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", res.Code, res.Body.String())
	}

	clerk := login(t, api, "clerk", clerkPassword)
	res = do(t, api, http.MethodPost, "/api/v1/invoices", clerk, invoicePayload("prd-stapler", 1))
	var created domain.InvoiceResponse
	decodeBody(t, res, &created)
	if created.Invoice.Currency != "EUR" || !strings.HasPrefix(created.Invoice.InvoiceNumber, "IT-") {
		t.Fatalf("expected settings defaults on invoice, got %s %s", created.Invoice.Currency, created.Invoice.InvoiceNumber)
	}
}

func doRaw(t *testing.T, api *API, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	return res
}

func TestOutOfRangeAmountsRejected(t *testing.T) {
	api := newTestAPI(t)
	admin := login(t, api, "admin", adminPassword)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"invoice quantity", http.MethodPost, "/api/v1/invoices",
			`{"clientName":"Globex","invoiceDate":"2026-05-01T00:00:00Z","dueDate":"2026-05-15T00:00:00Z","items":[{"productId":"prd-paper-a4","quantity":"1e-30000000","price":"6.50"}]}`},
		{"invoice price", http.MethodPost, "/api/v1/invoices",
			`{"clientName":"Globex","invoiceDate":"2026-05-01T00:00:00Z","dueDate":"2026-05-15T00:00:00Z","items":[{"productId":"prd-paper-a4","quantity":"1","price":"1e30000000"}]}`},
		{"product price", http.MethodPost, "/api/v1/products",
			`{"name":"Dust","price":"1e-30000000","unitId":"unit-pc"}`},
		{"purchase quantity", http.MethodPost, "/api/v1/purchases",
			`{"supplierId":"sup-acme","items":[{"productId":"prd-paper-a4","quantity":"1e-30000000","price":"1"}]}`},
		{"settings tax rate", http.MethodPut, "/api/v1/settings",
			`{"companyName":"Initech","currency":"USD","invoicePrefix":"INV-","taxRatePercent":"1e-30000000","lowStockDefault":"0"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := doRaw(t, api, tc.method, tc.path, admin, tc.body)
			if res.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d (body: %s)", res.Code, res.Body.String())
			}
		})
	}

	if got := availableOf(t, api, admin, "prd-paper-a4", ""); !got.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("expected stock untouched by rejected writes, got %s", got)
	}
}
