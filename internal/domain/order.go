package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusAccept    OrderStatus = "Accept"
	OrderStatusReject    OrderStatus = "Reject"
	OrderStatusDelivered OrderStatus = "Delivered"
)

// OrderStatuses lists every status in the order the admin console offers them.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAccept,
	OrderStatusReject,
	OrderStatusDelivered,
}

func (s OrderStatus) IsValid() bool {
	for _, v := range OrderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

// PaymentMethodUPI is the only payment method the storefront accepts.
const PaymentMethodUPI = "upi"

type OrderItem struct {
	ProductID int64  `json:"product_id" bson:"product_id"`
	Name      string `json:"name" bson:"name"`
	Quantity  int    `json:"quantity" bson:"quantity"`
	Price     int64  `json:"price" bson:"price"`
	Image     string `json:"image,omitempty" bson:"image,omitempty"`
}

// LineTotal is price × quantity.
func (i OrderItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

func (i OrderItem) UnitPrice() int64 { return i.Price }
func (i OrderItem) Units() int       { return i.Quantity }

type Order struct {
	OrderID       string      `json:"order_id"`
	CustomerName  string      `json:"customer_name"`
	CustomerEmail string      `json:"customer_email"`
	Phone         string      `json:"phone"`
	Address       string      `json:"address"`
	Products      []OrderItem `json:"products"`
	TotalAmount   int64       `json:"total_amount"`
	PaymentMethod string      `json:"payment_method"`
	Status        OrderStatus `json:"status"`
	Timestamp     time.Time   `json:"timestamp"`
	EmailSent     bool        `json:"email_sent"`
}

// NewOrderID returns a fresh id in the ORD-XXXXXXXX form shown to customers.
func NewOrderID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("ORD-%s", strings.ToUpper(id[:8]))
}

// StatusChange is one entry in an order's audit trail.
type StatusChange struct {
	OrderID string      `json:"order_id" bson:"order_id"`
	From    OrderStatus `json:"from" bson:"from"`
	To      OrderStatus `json:"to" bson:"to"`
	Source  string      `json:"source" bson:"source"`
	At      time.Time   `json:"at" bson:"at"`
}

const (
	ChangeSourceSingle = "single"
	ChangeSourceBulk   = "bulk"
)
