package sales

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	qrisHeader       = "00020101021226580014ID.CO.QRIS.WWW"
	qrisCategoryCcy  = "52044814530336054"
	qrisCountryName  = "5802ID5913"
	qrisCityRefTag   = "6006JAKARTA62070503"
	qrisCRCTag       = "6304"
	qrisAmountDigits = 10
	demoQRISPrefix   = "QRIS:DEMO:"
	transferPrefix   = "TRANSFER:"
)

type PayloadRequest struct {
	Method        Method
	Amount        decimal.Decimal
	TransactionID string
	Items         []LineItem // only used by the demo QRIS format
}

// Payload is the display-only string shown to the customer. Nothing verifies it;
// the operator confirms payment by hand.
type Payload struct {
	Method Method `json:"method"`
	Data   string `json:"data,omitempty"`
	Demo   bool   `json:"demo,omitempty"`
}

// GeneratePayload formats the payment payload for a method. It is a pure
// function of its inputs.
func GeneratePayload(req PayloadRequest, settings PaymentSettings) (Payload, error) {
	if err := MethodAvailable(req.Method, settings); err != nil {
		return Payload{}, err
	}
	switch req.Method {
	case MethodQRIS:
		if strings.TrimSpace(settings.QRISMerchantID) == "" {
			return Payload{Method: MethodQRIS, Data: demoQRIS(req), Demo: true}, nil
		}
		return Payload{Method: MethodQRIS, Data: merchantQRIS(req, settings)}, nil
	case MethodTransfer:
		return Payload{Method: MethodTransfer, Data: transferDescriptor(req, settings)}, nil
	}
	return Payload{Method: MethodCash}, nil
}

// MethodAvailable rejects unknown methods and those switched off in settings.
func MethodAvailable(m Method, settings PaymentSettings) error {
	switch m {
	case MethodCash:
		return nil
	case MethodQRIS:
		if !settings.QRISEnabled {
			return fmt.Errorf("%w: qris", ErrPaymentMethodDisabled)
		}
		return nil
	case MethodTransfer:
		if !settings.TransferEnabled {
			return fmt.Errorf("%w: transfer", ErrPaymentMethodDisabled)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidMethod, m)
}

// merchantQRIS builds the fixed-field merchant-presented string. Field lengths
// after the merchant id are not recomputed and no CRC is appended.
func merchantQRIS(req PayloadRequest, s PaymentSettings) string {
	merchantID := strings.TrimSpace(s.QRISMerchantID)
	name := s.QRISMerchantName
	if name == "" {
		name = defaultStoreName
	}
	var b strings.Builder
	b.WriteString(qrisHeader)
	b.WriteString(fmt.Sprintf("%02d", len(merchantID)))
	b.WriteString(merchantID)
	b.WriteString(qrisCategoryCcy)
	b.WriteString(QRISAmount(req.Amount))
	b.WriteString(qrisCountryName)
	b.WriteString(name)
	b.WriteString(qrisCityRefTag)
	b.WriteString(req.TransactionID)
	b.WriteString(qrisCRCTag)
	return b.String()
}

// QRISAmount renders the integer part of amount zero-padded to ten digits.
// Known limitation: amounts of 10^10 or more keep only their low-order ten
// digits, matching the payload format already in use.
func QRISAmount(amount decimal.Decimal) string {
	s := amount.Abs().Truncate(0).String()
	if len(s) < qrisAmountDigits {
		s = strings.Repeat("0", qrisAmountDigits-len(s)) + s
	}
	return s[len(s)-qrisAmountDigits:]
}

func demoQRIS(req PayloadRequest) string {
	names := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		names = append(names, fmt.Sprintf("%sx%d", it.Name, it.Quantity))
	}
	return demoQRISPrefix + req.TransactionID + ":" + req.Amount.String() + ":" + strings.Join(names, ",")
}

func transferDescriptor(req PayloadRequest, s PaymentSettings) string {
	bank := orDefault(s.BankName, "BCA")
	account := orDefault(s.AccountNumber, "1234567890")
	holder := orDefault(s.AccountName, orDefault(s.StoreInfo.Name, defaultStoreName))
	return transferPrefix + strings.Join([]string{bank, account, req.Amount.String(), req.TransactionID, holder}, ":")
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// IsDemoPayload reports whether data is the non-scannable demo QRIS format.
func IsDemoPayload(data string) bool { return strings.HasPrefix(data, demoQRISPrefix) }

// ComputeChange returns received - total, or ErrInsufficientPayment.
func ComputeChange(total, received decimal.Decimal) (decimal.Decimal, error) {
	change := received.Sub(total)
	if change.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: received %s, total %s", ErrInsufficientPayment, received, total)
	}
	return change, nil
}
