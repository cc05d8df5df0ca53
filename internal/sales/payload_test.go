package sales_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/ariefcatur/kasir-till/internal/sales"
	"github.com/shopspring/decimal"
)

func TestGeneratePayloadDemoQRIS(t *testing.T) {
	settings := sales.DefaultPaymentSettings()
	p, err := sales.GeneratePayload(sales.PayloadRequest{
		Method:        sales.MethodQRIS,
		Amount:        rp(36000),
		TransactionID: "trx_1",
		Items: []sales.LineItem{
			{Name: "Roti Tawar", Price: rp(12000), Quantity: 2},
			{Name: "Donat", Price: rp(6000), Quantity: 2},
		},
	}, settings)
	if err != nil {
		t.Fatalf("GeneratePayload: %v", err)
	}
	want := "QRIS:DEMO:trx_1:36000:Roti Tawarx2,Donatx2"
	if p.Data != want || !p.Demo {
		t.Fatalf("payload = %+v, want %q demo", p, want)
	}
	if !sales.IsDemoPayload(p.Data) {
		t.Fatalf("IsDemoPayload(%q) = false", p.Data)
	}
}

func TestGeneratePayloadMerchantQRIS(t *testing.T) {
	settings := sales.DefaultPaymentSettings()
	settings.QRISMerchantID = "ID1020304050"
	settings.QRISMerchantName = "Toko Roti"

	p, err := sales.GeneratePayload(sales.PayloadRequest{
		Method: sales.MethodQRIS, Amount: rp(36000), TransactionID: "12345678",
	}, settings)
	if err != nil {
		t.Fatalf("GeneratePayload: %v", err)
	}
	want := "00020101021226580014ID.CO.QRIS.WWW" + "12" + "ID1020304050" +
		"52044814530336054" + "0000036000" + "5802ID5913" + "Toko Roti" +
		"6006JAKARTA62070503" + "12345678" + "6304"
	if p.Data != want {
		t.Fatalf("payload\n got %q\nwant %q", p.Data, want)
	}
	if p.Demo || sales.IsDemoPayload(p.Data) {
		t.Fatalf("merchant payload flagged as demo")
	}
}

func TestQRISAmount(t *testing.T) {
	cases := []struct {
		in   decimal.Decimal
		want string
	}{
		{rp(0), "0000000000"},
		{rp(36000), "0000036000"},
		{decimal.RequireFromString("1500.75"), "0000001500"},
		{rp(9999999999), "9999999999"},
		// 11 digit: hanya sepuluh digit terakhir yang tersisa
		{rp(12345678901), "2345678901"},
		// melewati int64 tetap hanya kehilangan digit depan
		{decimal.RequireFromString("100000000000000036000.9"), "0000036000"},
	}
	for _, tc := range cases {
		if got := sales.QRISAmount(tc.in); got != tc.want {
			t.Fatalf("QRISAmount(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestGeneratePayloadTransfer(t *testing.T) {
	settings := sales.DefaultPaymentSettings()
	p, err := sales.GeneratePayload(sales.PayloadRequest{
		Method: sales.MethodTransfer, Amount: rp(25000), TransactionID: "trx_9",
	}, settings)
	if err != nil {
		t.Fatalf("GeneratePayload: %v", err)
	}
	if want := "TRANSFER:BCA:1234567890:25000:trx_9:Toko Roti Bahagia"; p.Data != want {
		t.Fatalf("payload = %q, want %q", p.Data, want)
	}

	settings.BankName = "Mandiri"
	settings.AccountNumber = "9876"
	settings.AccountName = ""
	settings.StoreInfo.Name = "Warung Sari"
	p, _ = sales.GeneratePayload(sales.PayloadRequest{
		Method: sales.MethodTransfer, Amount: rp(1000), TransactionID: "x",
	}, settings)
	if !strings.HasSuffix(p.Data, ":Warung Sari") || !strings.HasPrefix(p.Data, "TRANSFER:Mandiri:9876:") {
		t.Fatalf("payload = %q", p.Data)
	}
}

func TestGeneratePayloadCashIsEmpty(t *testing.T) {
	p, err := sales.GeneratePayload(sales.PayloadRequest{Method: sales.MethodCash, Amount: rp(1)}, sales.PaymentSettings{})
	if err != nil || p.Data != "" || p.Method != sales.MethodCash {
		t.Fatalf("cash payload = %+v, %v", p, err)
	}
}

func TestGeneratePayloadRejectsDisabledAndUnknown(t *testing.T) {
	settings := sales.DefaultPaymentSettings()
	settings.QRISEnabled = false
	settings.TransferEnabled = false

	for _, m := range []sales.Method{sales.MethodQRIS, sales.MethodTransfer} {
		_, err := sales.GeneratePayload(sales.PayloadRequest{Method: m, Amount: rp(1)}, settings)
		if !errors.Is(err, sales.ErrPaymentMethodDisabled) {
			t.Fatalf("%s: err = %v, want ErrPaymentMethodDisabled", m, err)
		}
	}
	_, err := sales.GeneratePayload(sales.PayloadRequest{Method: "ovo", Amount: rp(1)}, settings)
	if !errors.Is(err, sales.ErrInvalidMethod) {
		t.Fatalf("unknown method err = %v", err)
	}
}

func TestComputeChange(t *testing.T) {
	change, err := sales.ComputeChange(rp(36000), rp(40000))
	if err != nil || !change.Equal(rp(4000)) {
		t.Fatalf("ComputeChange = %s, %v", change, err)
	}
	change, err = sales.ComputeChange(rp(36000), rp(36000))
	if err != nil || !change.IsZero() {
		t.Fatalf("exact payment change = %s, %v", change, err)
	}
	if _, err := sales.ComputeChange(rp(36000), rp(35999)); !errors.Is(err, sales.ErrInsufficientPayment) {
		t.Fatalf("short payment err = %v", err)
	}
}

func TestParseMethodAcceptsTunai(t *testing.T) {
	for in, want := range map[string]sales.Method{
		"tunai": sales.MethodCash, "Cash": sales.MethodCash, "QRIS": sales.MethodQRIS, " transfer ": sales.MethodTransfer,
	} {
		if got, ok := sales.ParseMethod(in); !ok || got != want {
			t.Fatalf("ParseMethod(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := sales.ParseMethod("debit"); ok {
		t.Fatalf("debit accepted")
	}
}
