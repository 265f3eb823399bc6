package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type ProductCreateRequest struct {
	Name           string           `json:"name" validate:"required,max=200"`
	Price          decimal.Decimal  `json:"price"`
	UnitID         string           `json:"unitId" validate:"required"`
	CategoryID     string           `json:"categoryId,omitempty"`
	ThresholdValue *decimal.Decimal `json:"thresholdValue,omitempty"`
}

type ProductUpdateRequest struct {
	Name           *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	UnitID         *string          `json:"unitId,omitempty" validate:"omitempty,min=1"`
	CategoryID     *string          `json:"categoryId,omitempty"`
	ThresholdValue *decimal.Decimal `json:"thresholdValue,omitempty"`
}

type PurchaseLineRequest struct {
	ProductID string          `json:"productId" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type PurchaseCreateRequest struct {
	Date        *time.Time            `json:"date,omitempty"`
	VendorName  string                `json:"vendorName" validate:"required_without=SupplierID"`
	SupplierID  string                `json:"supplierId"`
	Items       []PurchaseLineRequest `json:"items" validate:"required,min=1,dive"`
	TotalAmount *decimal.Decimal      `json:"totalAmount,omitempty"`
}

type PurchaseOrderCreateRequest struct {
	OrderDate  *time.Time            `json:"orderDate,omitempty"`
	SupplierID string                `json:"supplierId"`
	VendorName string                `json:"vendorName" validate:"required_without=SupplierID"`
	Items      []PurchaseLineRequest `json:"items" validate:"required,min=1,dive"`
	Notes      string                `json:"notes"`
}

type PurchaseOrderReceiveRequest struct {
	Date  *time.Time            `json:"date,omitempty"`
	Items []PurchaseLineRequest `json:"items" validate:"required,min=1,dive"`
}

type LineItemRequest struct {
	ID          string           `json:"id,omitempty"`
	ProductID   string           `json:"productId"`
	Description string           `json:"description" validate:"max=500"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Price       decimal.Decimal  `json:"price"`
	Discount    *decimal.Decimal `json:"discount,omitempty"`
	TaxPercent  *decimal.Decimal `json:"taxPercent,omitempty"`
}

type InvoiceRequest struct {
	InvoiceNumber string            `json:"invoiceNumber" validate:"max=64"`
	ClientName    string            `json:"clientName" validate:"required,max=200"`
	ClientEmail   string            `json:"clientEmail" validate:"omitempty,email"`
	ClientAddress string            `json:"clientAddress"`
	InvoiceDate   time.Time         `json:"invoiceDate" validate:"required"`
	DueDate       time.Time         `json:"dueDate" validate:"required"`
	Status        InvoiceStatus     `json:"status" validate:"omitempty,oneof=Draft Sent Paid Cancelled"`
	Currency      string            `json:"currency" validate:"omitempty,len=3"`
	Items         []LineItemRequest `json:"items" validate:"required,min=1,dive"`
	TaxID         string            `json:"taxId"`
	TaxAmount     *decimal.Decimal  `json:"taxAmount,omitempty"`
	Notes         string            `json:"notes"`
}

type InvoiceStatusRequest struct {
	Status InvoiceStatus `json:"status" validate:"required,oneof=Draft Sent Paid Cancelled"`
}

type InvoiceResponse struct {
	Invoice Invoice       `json:"invoice"`
	Totals  InvoiceTotals `json:"totals"`
}

type UnitCreateRequest struct {
	Name   string `json:"name" validate:"required,max=64"`
	Symbol string `json:"symbol" validate:"max=16"`
}

type CategoryCreateRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type SupplierCreateRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"max=40"`
	Address string `json:"address"`
}

type ProductView struct {
	Product
	Available decimal.Decimal `json:"available"`
}

type AvailableStockResponse struct {
	ProductID        string          `json:"productId"`
	ExcludeInvoiceID string          `json:"excludeInvoiceId,omitempty"`
	Available        decimal.Decimal `json:"available"`
}

type RebuildResponse struct {
	Discrepancies []Discrepancy `json:"discrepancies"`
	RebuiltAt     string        `json:"rebuiltAt"`
}
