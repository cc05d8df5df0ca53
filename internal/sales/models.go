package sales

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID    string          `json:"id" yaml:"id"`
	Name  string          `json:"name" yaml:"name"`
	Price decimal.Decimal `json:"price" yaml:"price"`
	Stock *int            `json:"stock,omitempty" yaml:"stock,omitempty"` // nil = stok tidak dilacak
}

// Tracked reports whether the product participates in stock checks.
func (p Product) Tracked() bool { return p.Stock != nil }

func IntPtr(v int) *int { return &v }

type CartLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// LineItem is the immutable snapshot of a sold line kept in the ledger.
type LineItem struct {
	Name     string          `json:"name" yaml:"name"`
	Price    decimal.Decimal `json:"price" yaml:"price"`
	Quantity int             `json:"quantity" yaml:"quantity"`
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type Method string

const (
	MethodCash     Method = "cash"
	MethodQRIS     Method = "qris"
	MethodTransfer Method = "transfer"
)

// ParseMethod accepts the legacy "tunai" spelling for cash.
func ParseMethod(s string) (Method, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cash", "tunai":
		return MethodCash, true
	case "qris":
		return MethodQRIS, true
	case "transfer":
		return MethodTransfer, true
	}
	return "", false
}

type Transaction struct {
	ID            string          `json:"id" yaml:"id"`
	Date          time.Time       `json:"date" yaml:"date"`
	Items         []LineItem      `json:"items" yaml:"items"`
	Total         decimal.Decimal `json:"total" yaml:"total"`
	PaymentMethod Method          `json:"paymentMethod" yaml:"paymentMethod"`
	CashReceived  decimal.Decimal `json:"cashReceived" yaml:"cashReceived"`
	Change        decimal.Decimal `json:"change" yaml:"change"`
}

type StoreInfo struct {
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address" yaml:"address"`
	Phone   string `json:"phone" yaml:"phone"`
}

type PaymentSettings struct {
	QRISEnabled      bool      `json:"qrisEnabled" yaml:"qrisEnabled"`
	QRISMerchantID   string    `json:"qrisMerchantId" yaml:"qrisMerchantId"`
	QRISMerchantName string    `json:"qrisMerchantName" yaml:"qrisMerchantName"`
	TransferEnabled  bool      `json:"transferEnabled" yaml:"transferEnabled"`
	BankName         string    `json:"bankName" yaml:"bankName"`
	AccountNumber    string    `json:"accountNumber" yaml:"accountNumber"`
	AccountName      string    `json:"accountName" yaml:"accountName"`
	StoreInfo        StoreInfo `json:"storeInfo" yaml:"storeInfo"`
}

const defaultStoreName = "Toko Roti Bahagia"

// DefaultPaymentSettings is what applies when nothing has been saved yet.
func DefaultPaymentSettings() PaymentSettings {
	return PaymentSettings{
		QRISEnabled:      true,
		QRISMerchantName: defaultStoreName,
		TransferEnabled:  true,
		BankName:         "BCA",
		AccountNumber:    "1234567890",
		AccountName:      defaultStoreName,
		StoreInfo: StoreInfo{
			Name:    defaultStoreName,
			Address: "Jl. Raya No. 123, Kota",
			Phone:   "0812-3456-7890",
		},
	}
}
