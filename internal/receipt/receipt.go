// Package receipt renders the printed slip (struk) of a recorded transaction.
package receipt

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ariefcatur/kasir-till/internal/sales"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const Width = 32

// WIB dipakai kalau tzdata tidak tersedia di image.
var wib = time.FixedZone("WIB", 7*60*60)

type Renderer struct {
	printer  *message.Printer
	location *time.Location
}

func NewRenderer(loc *time.Location) *Renderer {
	if loc == nil {
		loc = wib
		if l, err := time.LoadLocation("Asia/Jakarta"); err == nil {
			loc = l
		}
	}
	return &Renderer{printer: message.NewPrinter(language.Indonesian), location: loc}
}

// Rupiah formats an amount the way the till shows prices, e.g. "Rp 36.000".
func (r *Renderer) Rupiah(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}
	if amount.IsInteger() {
		return sign + "Rp " + r.printer.Sprintf("%d", amount.IntPart())
	}
	return sign + "Rp " + r.printer.Sprintf("%v", number.Decimal(amount.InexactFloat64(), number.Scale(2)))
}

func MethodLabel(m sales.Method) string {
	switch m {
	case sales.MethodCash:
		return "Tunai"
	case sales.MethodQRIS:
		return "QRIS"
	case sales.MethodTransfer:
		return "Transfer Bank"
	}
	return string(m)
}

// Render writes the receipt for t. Cash and change lines are printed for cash
// sales only.
func (r *Renderer) Render(w io.Writer, t sales.Transaction, store sales.StoreInfo) error {
	var b strings.Builder
	rule := strings.Repeat("-", Width)

	for _, s := range []string{store.Name, store.Address, store.Phone} {
		if strings.TrimSpace(s) != "" {
			b.WriteString(center(s))
		}
	}
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "No   : %s\n", t.ID)
	fmt.Fprintf(&b, "Tgl  : %s\n", t.Date.In(r.location).Format("02/01/2006 15:04"))
	b.WriteString(rule + "\n")

	for _, it := range t.Items {
		b.WriteString(it.Name + "\n")
		b.WriteString(pair(fmt.Sprintf("  %d x %s", it.Quantity, r.Rupiah(it.Price)), r.Rupiah(it.Subtotal())))
	}
	b.WriteString(rule + "\n")
	b.WriteString(pair("TOTAL", r.Rupiah(t.Total)))
	b.WriteString(pair("Metode", MethodLabel(t.PaymentMethod)))
	if t.PaymentMethod == sales.MethodCash {
		b.WriteString(pair("Bayar", r.Rupiah(t.CashReceived)))
		b.WriteString(pair("Kembali", r.Rupiah(t.Change)))
	}
	b.WriteString(rule + "\n")
	b.WriteString(center("Terima kasih"))

	_, err := io.WriteString(w, b.String())
	return err
}

func center(s string) string {
	n := utf8.RuneCountInString(s)
	if n >= Width {
		return s + "\n"
	}
	return strings.Repeat(" ", (Width-n)/2) + s + "\n"
}

// pair puts left and right on one line, right-aligned to Width.
func pair(left, right string) string {
	gap := Width - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right + "\n"
}
