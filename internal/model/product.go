package model

// Product statuses offered by the product screen.
const (
	ProductStatusActive     = "active"
	ProductStatusInactive   = "inactive"
	ProductStatusOutOfStock = "out_of_stock"
)

// ProductVariant is one size/colour combination of a product. Variants only
// exist in the editor until the parent product is submitted.
type ProductVariant struct {
	ID            string  `json:"id,omitempty"`
	ProductID     string  `json:"productId,omitempty"`
	Size          string  `json:"size" validate:"required"`
	ColorName     string  `json:"colorName" validate:"required"`
	ColorHex      string  `json:"colorHex,omitempty" validate:"omitempty,hexcolor"`
	Price         float64 `json:"price" validate:"gte=0"`
	OriginalPrice float64 `json:"originalPrice" validate:"gte=0"`
	Quantity      int     `json:"quantity" validate:"gte=0"`
	SKU           string  `json:"sku,omitempty"`
}

func (v *ProductVariant) ItemID() string { return v.ID }

func (v *ProductVariant) SetItemID(id string) { v.ID = id }

// FromFields populates v from a stored or submitted record and returns the
// numeric fields that could not be read. The snake_case keys used by the
// storefront API are accepted as well.
func (v *ProductVariant) FromFields(f Fields) []FieldError {
	var c Coercion
	v.ID = f.String("id")
	v.ProductID = f.String("productId")
	v.Size = f.String("size")
	v.ColorName = f.String("colorName")
	if v.ColorName == "" {
		v.ColorName = f.String("color_name")
	}
	v.ColorHex = f.String("colorHex")
	if v.ColorHex == "" {
		v.ColorHex = f.String("color_hex")
	}
	v.Price = c.Float(f, "price")
	v.OriginalPrice = c.Float(f, "originalPrice", "original_price")
	v.Quantity = c.Int(f, "quantity")
	v.SKU = f.String("sku")
	return c.Errors
}

// ToFields renders the submit shape of v. The id is left out: durable ids are
// assigned by the persistence client.
func (v *ProductVariant) ToFields() Fields {
	f := Fields{
		"size":          v.Size,
		"colorName":     v.ColorName,
		"colorHex":      v.ColorHex,
		"price":         v.Price,
		"originalPrice": v.OriginalPrice,
		"quantity":      v.Quantity,
	}
	if v.SKU != "" {
		f["sku"] = v.SKU
	}
	return f
}
