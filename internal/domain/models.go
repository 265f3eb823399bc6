package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "Draft"
	InvoiceStatusSent      InvoiceStatus = "Sent"
	InvoiceStatusPaid      InvoiceStatus = "Paid"
	InvoiceStatusCancelled InvoiceStatus = "Cancelled"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

// SaleAllocation records that an invoice currently claims Quantity units of a product.
type SaleAllocation struct {
	InvoiceID string          `json:"invoiceId"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type Product struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Price          decimal.Decimal  `json:"price"`
	UnitID         string           `json:"unitId"`
	CategoryID     string           `json:"categoryId,omitempty"`
	ThresholdValue *decimal.Decimal `json:"thresholdValue,omitempty"`
	Sales          []SaleAllocation `json:"sales"`
}

type Unit struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol,omitempty"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Supplier struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

type PurchaseLine struct {
	ProductID string          `json:"productId"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Purchase is a stock receipt. It only ever adds to available stock.
type Purchase struct {
	ID              string          `json:"id"`
	Date            time.Time       `json:"date"`
	VendorName      string          `json:"vendorName,omitempty"`
	SupplierID      string          `json:"supplierId,omitempty"`
	PurchaseOrderID string          `json:"purchaseOrderId,omitempty"`
	Items           []PurchaseLine  `json:"items"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
}

// PurchaseOrder is an order placed with a supplier. Stock arrives through
// purchase entries that reference it.
type PurchaseOrder struct {
	ID         string          `json:"id"`
	OrderDate  time.Time       `json:"orderDate"`
	SupplierID string          `json:"supplierId,omitempty"`
	VendorName string          `json:"vendorName,omitempty"`
	Items      []PurchaseLine  `json:"items"`
	Total      decimal.Decimal `json:"totalAmount"`
	Notes      string          `json:"notes,omitempty"`
}

type LineItem struct {
	ID          string           `json:"id"`
	ProductID   string           `json:"productId"`
	Description string           `json:"description"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Price       decimal.Decimal  `json:"price"`
	Discount    *decimal.Decimal `json:"discount,omitempty"`
	TaxPercent  *decimal.Decimal `json:"taxPercent,omitempty"`
}

type Invoice struct {
	ID            string           `json:"id"`
	InvoiceNumber string           `json:"invoiceNumber"`
	ClientName    string           `json:"clientName"`
	ClientEmail   string           `json:"clientEmail,omitempty"`
	ClientAddress string           `json:"clientAddress,omitempty"`
	InvoiceDate   time.Time        `json:"invoiceDate"`
	DueDate       time.Time        `json:"dueDate"`
	Status        InvoiceStatus    `json:"status"`
	Currency      string           `json:"currency"`
	Items         []LineItem       `json:"items"`
	TaxID         string           `json:"taxId,omitempty"`
	TaxAmount     *decimal.Decimal `json:"taxAmount,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

type Settings struct {
	CompanyName     string          `json:"companyName"`
	CompanyAddress  string          `json:"companyAddress,omitempty"`
	Currency        string          `json:"currency"`
	InvoicePrefix   string          `json:"invoicePrefix"`
	TaxRatePercent  decimal.Decimal `json:"taxRatePercent"`
	LowStockDefault decimal.Decimal `json:"lowStockDefault"`
}

// DefaultSettings is used when no settings document has been stored yet.
func DefaultSettings() Settings {
	return Settings{
		CompanyName:   "My Company",
		Currency:      "USD",
		InvoicePrefix: "INV-",
	}
}

type InvoiceTotals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	Discount  decimal.Decimal `json:"discount"`
	LineTax   decimal.Decimal `json:"lineTax"`
	TaxAmount decimal.Decimal `json:"taxAmount"`
	Total     decimal.Decimal `json:"total"`
}

type StockLevel struct {
	ProductID string           `json:"productId"`
	Name      string           `json:"name"`
	Purchased decimal.Decimal  `json:"purchased"`
	Allocated decimal.Decimal  `json:"allocated"`
	Available decimal.Decimal  `json:"available"`
	Threshold *decimal.Decimal `json:"threshold,omitempty"`
	LowStock  bool             `json:"lowStock"`
	Oversold  bool             `json:"oversold"`
}

type Discrepancy struct {
	Code      string          `json:"code"`
	ProductID string          `json:"productId"`
	InvoiceID string          `json:"invoiceId"`
	Expected  decimal.Decimal `json:"expected"`
	Recorded  decimal.Decimal `json:"recorded"`
}

const (
	DiscrepancyDuplicate = "duplicate_allocation"
	DiscrepancyOrphan    = "orphan_allocation"
	DiscrepancyMismatch  = "quantity_mismatch"
	DiscrepancyMissing   = "missing_allocation"
)

type OrderStatus string

const (
	OrderStatusOpen     OrderStatus = "Open"
	OrderStatusPartial  OrderStatus = "Partial"
	OrderStatusReceived OrderStatus = "Received"
)

type OrderLineProgress struct {
	ProductID string          `json:"productId"`
	Ordered   decimal.Decimal `json:"ordered"`
	Received  decimal.Decimal `json:"received"`
	Remaining decimal.Decimal `json:"remaining"`
}

type OrderProgress struct {
	PurchaseOrder PurchaseOrder       `json:"purchaseOrder"`
	Status        OrderStatus         `json:"status"`
	Lines         []OrderLineProgress `json:"lines"`
}

type RestockSuggestion struct {
	ProductID       string          `json:"productId"`
	Name            string          `json:"name"`
	Available       decimal.Decimal `json:"available"`
	Threshold       decimal.Decimal `json:"threshold"`
	RecommendedQty  decimal.Decimal `json:"recommendedQty"`
	LastUnitCost    decimal.Decimal `json:"lastUnitCost"`
	EstimatedAmount decimal.Decimal `json:"estimatedAmount"`
	Oversold        bool            `json:"oversold"`
}

type RestockResponse struct {
	GeneratedAt string              `json:"generatedAt"`
	Suggestions []RestockSuggestion `json:"suggestions"`
}

type Actor struct {
	Username string
	Role     string
}

const (
	RoleAdmin = "admin"
	RoleClerk = "clerk"
)
