// Package receipt renders orders as plain text for people: the admin
// invoice, the operator relay message and the confirmation email.
package receipt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/swaadanna/storefront/internal/domain"
	"github.com/swaadanna/storefront/internal/pricing"
)

type Line struct {
	ProductID int64
	Name      string
	Quantity  int
	Price     int64
	LineTotal int64
}

// Invoice is a read-only view of one order. Subtotal, shipping and tax are
// derived from the lines; Total is the amount stored with the order.
type Invoice struct {
	OrderID       string
	CustomerName  string
	CustomerEmail string
	Phone         string
	Address       string
	PaymentMethod string
	Status        domain.OrderStatus
	Timestamp     time.Time
	EmailSent     bool
	Lines         []Line
	Subtotal      int64
	Shipping      int64
	Tax           int64
	Total         int64
}

func NewInvoice(o *domain.Order, calc *pricing.Calculator) Invoice {
	if calc == nil {
		calc = pricing.New()
	}
	lines := make([]Line, len(o.Products))
	for i, p := range o.Products {
		lines[i] = Line{
			ProductID: p.ProductID,
			Name:      p.Name,
			Quantity:  p.Quantity,
			Price:     p.Price,
			LineTotal: p.LineTotal(),
		}
	}
	q := calc.Quote(pricing.Lines(o.Products)...)

	return Invoice{
		OrderID:       o.OrderID,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		Phone:         o.Phone,
		Address:       o.Address,
		PaymentMethod: o.PaymentMethod,
		Status:        o.Status,
		Timestamp:     o.Timestamp,
		EmailSent:     o.EmailSent,
		Lines:         lines,
		Subtotal:      q.Subtotal,
		Shipping:      q.Shipping,
		Tax:           q.Tax,
		Total:         o.TotalAmount,
	}
}

func (inv Invoice) Format() string {
	return render(invoiceTmpl, inv)
}

// OperatorMessage is the text an operator relays to the customer by hand.
func OperatorMessage(o *domain.Order, calc *pricing.Calculator) string {
	return render(operatorTmpl, NewInvoice(o, calc))
}

func ConfirmationEmail(o *domain.Order, calc *pricing.Calculator) (subject, body string) {
	inv := NewInvoice(o, calc)
	return fmt.Sprintf("Order Confirmed - %s", inv.OrderID), render(emailTmpl, inv)
}

var funcs = template.FuncMap{
	"inr": func(v int64) string { return fmt.Sprintf("₹%d", v) },
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format("02 Jan 2006 15:04 MST")
	},
	"upper": strings.ToUpper,
}

var (
	invoiceTmpl = template.Must(template.New("invoice").Funcs(funcs).Parse(
		`INVOICE {{.OrderID}}
Date:     {{date .Timestamp}}
Status:   {{.Status}}
Payment:  {{upper .PaymentMethod}}

Customer: {{.CustomerName}}
Email:    {{.CustomerEmail}}
Phone:    {{.Phone}}
Ship to:  {{.Address}}

{{range .Lines}}{{printf "%-28s" .Name}} {{printf "%3d" .Quantity}} x {{printf "%-8s" (inr .Price)}} {{inr .LineTotal}}
{{end}}
Subtotal:  {{inr .Subtotal}}
Shipping:  {{inr .Shipping}}
GST (18%): {{inr .Tax}}
TOTAL:     {{inr .Total}}
`))

	operatorTmpl = template.Must(template.New("operator").Funcs(funcs).Parse(
		`New order {{.OrderID}}
{{.CustomerName}} | {{.Phone}} | {{.CustomerEmail}}
{{.Address}}
{{range .Lines}}- {{.Name}} x{{.Quantity}} = {{inr .LineTotal}}
{{end}}Subtotal {{inr .Subtotal}} + Shipping {{inr .Shipping}} + GST {{inr .Tax}}
Total {{inr .Total}} via {{upper .PaymentMethod}}
`))

	emailTmpl = template.Must(template.New("email").Funcs(funcs).Parse(
		`Hi {{.CustomerName}},

Thank you for your order {{.OrderID}}.

{{range .Lines}}{{.Name}} x{{.Quantity}}: {{inr .LineTotal}}
{{end}}
Subtotal: {{inr .Subtotal}}
Shipping: {{inr .Shipping}}
GST (18%): {{inr .Tax}}
Total: {{inr .Total}}

Our team will contact you on WhatsApp with payment options within an hour.
Delivery address: {{.Address}}

Swaadanna
`))
)

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		// Templates are fixed and the data is a plain struct.
		panic(fmt.Sprintf("receipt: render %s: %v", t.Name(), err))
	}
	return buf.String()
}
