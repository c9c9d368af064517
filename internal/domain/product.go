package domain

type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Weight      string `json:"weight"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// CartItem is a product snapshot plus the quantity the customer wants.
type CartItem struct {
	Product
	Quantity int `json:"quantity"`
}

// ToOrderItem captures the line as it is at order time.
func (c CartItem) ToOrderItem() OrderItem {
	return OrderItem{
		ProductID: c.ID,
		Name:      c.Name,
		Quantity:  c.Quantity,
		Price:     c.Price,
		Image:     c.Image,
	}
}

func (c CartItem) UnitPrice() int64 { return c.Price }
func (c CartItem) Units() int       { return c.Quantity }
