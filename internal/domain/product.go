package domain

// ProductRecord is a product as stored by either backend. Image holds the
// stored filename relative to the upload path.
type ProductRecord struct {
	ProductID           int64   `json:"product_id"`
	Name                string  `json:"name"`
	MRP                 float64 `json:"MRP_in_INR"`
	DiscountPrice       float64 `json:"discount_price"`
	Qty                 int     `json:"qty"`
	Image               string  `json:"image"`
	CategoryName        string  `json:"category_name"`
	CategoryDescription string  `json:"category_description"`
}

// ProductView is the public shape of a search hit. Image is an absolute URL.
type ProductView struct {
	ProductID           int64   `json:"product_id"`
	Name                string  `json:"name"`
	MRP                 float64 `json:"MRP_in_INR"`
	DiscountPrice       float64 `json:"discount_price"`
	Qty                 int     `json:"qty"`
	Image               string  `json:"image"`
	CategoryName        string  `json:"category_name"`
	CategoryDescription string  `json:"category_description"`
}

// Matches reports whether the record satisfies the price constraint. A nil
// constraint matches everything.
func (c *PriceConstraint) Matches(price float64) bool {
	if c == nil {
		return true
	}
	if c.Min != nil && price < float64(*c.Min) {
		return false
	}
	if c.Max != nil && price > float64(*c.Max) {
		return false
	}
	return true
}
