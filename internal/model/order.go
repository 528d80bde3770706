package model

// Order represents a customer order as shown on the orders screen.
// Status and PaymentStatus are independent axes.
type Order struct {
	ID                string      `json:"id"`
	AccountID         string      `json:"account_id"`
	AccountName       string      `json:"account_name,omitempty"`
	ShippingAddressID string      `json:"shipping_address_id"`
	PaymentMethod     string      `json:"payment_method,omitempty"`
	Status            string      `json:"status"`
	PaymentStatus     string      `json:"payment_status"`
	Subtotal          float64     `json:"subtotal"`
	Discount          float64     `json:"discount"`
	Total             float64     `json:"total"`
	ItemCount         int         `json:"item_count"`
	Items             []OrderItem `json:"items,omitempty"`
}

// OrderItem represents a line item in an order.
type OrderItem struct {
	ID               string  `json:"id,omitempty"`
	OrderID          string  `json:"order_id,omitempty"`
	ProductVariantID string  `json:"product_variant_id" validate:"required"`
	ProductName      string  `json:"product_name" validate:"required"`
	ProductImage     string  `json:"product_image,omitempty" validate:"omitempty,url"`
	Quantity         int     `json:"quantity" validate:"gt=0"`
	Price            float64 `json:"price" validate:"gte=0"`
	Total            float64 `json:"total" validate:"gte=0"`
	Color            string  `json:"color,omitempty"`
	Size             string  `json:"size,omitempty"`
}

func (i *OrderItem) ItemID() string { return i.ID }

func (i *OrderItem) SetItemID(id string) { i.ID = id }

// FromFields populates i from a stored or submitted record and returns the
// numeric fields that could not be read.
func (i *OrderItem) FromFields(f Fields) []FieldError {
	var c Coercion
	i.ID = f.String("id")
	i.OrderID = f.String("order_id")
	i.ProductVariantID = f.String("product_variant_id")
	i.ProductName = f.String("product_name")
	i.ProductImage = f.String("product_image")
	i.Quantity = c.Int(f, "quantity")
	i.Price = c.Float(f, "price")
	i.Total = c.Float(f, "total")
	i.Color = f.String("color")
	i.Size = f.String("size")
	return c.Errors
}

// ToFields renders the submit shape of i, without its id.
func (i *OrderItem) ToFields() Fields {
	return Fields{
		"product_variant_id": i.ProductVariantID,
		"product_name":       i.ProductName,
		"product_image":      i.ProductImage,
		"quantity":           i.Quantity,
		"price":              i.Price,
		"total":              i.Total,
		"color":              i.Color,
		"size":               i.Size,
	}
}

// OrderFromEntity reads an order out of a generic entity.
func OrderFromEntity(e Entity) Order {
	o := Order{
		ID:                e.ID,
		AccountID:         e.Fields.String("account_id"),
		AccountName:       e.Fields.String("account_name"),
		ShippingAddressID: e.Fields.String("shipping_address_id"),
		PaymentMethod:     e.Fields.String("payment_method"),
		Status:            e.Fields.String("status"),
		PaymentStatus:     e.Fields.String("payment_status"),
	}
	o.Subtotal, _ = e.Fields.Float("subtotal")
	o.Discount, _ = e.Fields.Float("discount")
	o.Total, _ = e.Fields.Float("total")
	o.ItemCount, _ = e.Fields.Int("item_count")
	for _, rec := range e.Children["items"] {
		var item OrderItem
		_ = item.FromFields(rec)
		o.Items = append(o.Items, item)
	}
	return o
}
