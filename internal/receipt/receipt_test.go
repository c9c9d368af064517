package receipt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/swaadanna/storefront/internal/domain"
)

func sampleOrder() *domain.Order {
	return &domain.Order{
		OrderID:       "ORD-1A2B3C4D",
		CustomerName:  "Asha Rawat",
		CustomerEmail: "asha@example.com",
		Phone:         "9876543210",
		Address:       "12 Mall Road, Nainital - 263001",
		Products: []domain.OrderItem{
			{ProductID: 1, Name: "Mango Pickle", Quantity: 2, Price: 200},
			{ProductID: 5, Name: "Wild Forest Honey", Quantity: 1, Price: 50},
		},
		TotalAmount:   649,
		PaymentMethod: domain.PaymentMethodUPI,
		Status:        domain.OrderStatusAccept,
		Timestamp:     time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
	}
}

func TestNewInvoice(t *testing.T) {
	inv := NewInvoice(sampleOrder(), nil)

	assert.Equal(t, "ORD-1A2B3C4D", inv.OrderID)
	assert.Len(t, inv.Lines, 2)
	assert.Equal(t, int64(400), inv.Lines[0].LineTotal)
	assert.Equal(t, int64(450), inv.Subtotal)
	assert.Equal(t, int64(100), inv.Shipping)
	assert.Equal(t, int64(99), inv.Tax)
	assert.Equal(t, int64(649), inv.Total)
}

func TestNewInvoice_TotalIsStoredAmount(t *testing.T) {
	o := sampleOrder()
	o.TotalAmount = 1000

	inv := NewInvoice(o, nil)
	assert.Equal(t, int64(1000), inv.Total)
	assert.Equal(t, int64(450), inv.Subtotal)
}

func TestInvoice_Format(t *testing.T) {
	out := NewInvoice(sampleOrder(), nil).Format()

	assert.Contains(t, out, "INVOICE ORD-1A2B3C4D")
	assert.Contains(t, out, "01 Mar 2026 10:30 UTC")
	assert.Contains(t, out, "Status:   Accept")
	assert.Contains(t, out, "Payment:  UPI")
	assert.Contains(t, out, "Ship to:  12 Mall Road, Nainital - 263001")
	assert.Contains(t, out, "Mango Pickle")
	assert.Contains(t, out, "₹400")
	assert.Contains(t, out, "GST (18%): ₹99")
	assert.Contains(t, out, "TOTAL:     ₹649")
}

func TestOperatorMessage(t *testing.T) {
	out := OperatorMessage(sampleOrder(), nil)

	assert.Contains(t, out, "New order ORD-1A2B3C4D")
	assert.Contains(t, out, "Asha Rawat | 9876543210 | asha@example.com")
	assert.Contains(t, out, "- Mango Pickle x2 = ₹400")
	assert.Contains(t, out, "- Wild Forest Honey x1 = ₹50")
	assert.Contains(t, out, "Subtotal ₹450 + Shipping ₹100 + GST ₹99")
	assert.Contains(t, out, "Total ₹649 via UPI")
}

func TestConfirmationEmail(t *testing.T) {
	subject, body := ConfirmationEmail(sampleOrder(), nil)

	assert.Equal(t, "Order Confirmed - ORD-1A2B3C4D", subject)
	assert.Contains(t, body, "Hi Asha Rawat,")
	assert.Contains(t, body, "Mango Pickle x2: ₹400")
	assert.Contains(t, body, "Total: ₹649")
}

func TestInvoice_ZeroTimestamp(t *testing.T) {
	o := sampleOrder()
	o.Timestamp = time.Time{}

	assert.Contains(t, NewInvoice(o, nil).Format(), "Date:     -")
}
