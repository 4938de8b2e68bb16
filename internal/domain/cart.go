package domain

import "time"

type Cart struct {
	ID          int64      `json:"id"`
	Owner       Owner      `json:"owner"`
	Items       []CartItem `json:"items"`
	TotalAmount int64      `json:"total_amount"`
	TotalItems  int        `json:"total_items"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CartItem keeps a snapshot of the product at the time it was added. Price is
// in paise.
type CartItem struct {
	ID              int64  `json:"id"`
	ProductID       int64  `json:"product_id"`
	VariantID       *int64 `json:"variant_id,omitempty"`
	Name            string `json:"name"`
	SKU             string `json:"sku,omitempty"`
	ImageURL        string `json:"image_url,omitempty"`
	Size            string `json:"size,omitempty"`
	Price           int64  `json:"price"`
	Quantity        int    `json:"quantity"`
	Subtotal        int64  `json:"subtotal"`
	CustomizationID *int64 `json:"customization_id,omitempty"`
}

// CartValidationError describes one line dropped or changed by a validation
// pass.
type CartValidationError struct {
	ItemID    int64  `json:"item_id"`
	ProductID int64  `json:"product_id"`
	Reason    string `json:"reason"`
}

func NewCart(owner Owner) *Cart {
	return &Cart{Owner: owner, Items: []CartItem{}}
}

func (i CartItem) sameLine(other CartItem) bool {
	if i.ProductID != other.ProductID {
		return false
	}
	if i.VariantID == nil || other.VariantID == nil {
		return i.VariantID == nil && other.VariantID == nil
	}
	return *i.VariantID == *other.VariantID
}

// AddItem merges the quantity into an existing line for the same product and
// variant, or appends a new line.
func (c *Cart) AddItem(item CartItem) error {
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}

	for idx := range c.Items {
		if c.Items[idx].sameLine(item) {
			c.Items[idx].Quantity += item.Quantity
			c.Items[idx].Price = item.Price
			c.Recalculate()
			return nil
		}
	}

	c.Items = append(c.Items, item)
	c.Recalculate()
	return nil
}

// UpdateQuantity sets a line's quantity. Zero or less removes the line.
func (c *Cart) UpdateQuantity(itemID int64, quantity int) error {
	if quantity <= 0 {
		return c.RemoveItem(itemID)
	}

	for idx := range c.Items {
		if c.Items[idx].ID == itemID {
			c.Items[idx].Quantity = quantity
			c.Recalculate()
			return nil
		}
	}

	return ErrCartItemNotFound
}

func (c *Cart) RemoveItem(itemID int64) error {
	for idx := range c.Items {
		if c.Items[idx].ID == itemID {
			c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
			c.Recalculate()
			return nil
		}
	}

	return ErrCartItemNotFound
}

func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.Recalculate()
}

// Recalculate derives every line subtotal and the cart totals from the current
// lines. Stored totals are never trusted.
func (c *Cart) Recalculate() {
	var amount int64
	var count int
	for idx := range c.Items {
		c.Items[idx].Subtotal = c.Items[idx].Price * int64(c.Items[idx].Quantity)
		amount += c.Items[idx].Subtotal
		count += c.Items[idx].Quantity
	}

	c.TotalAmount = amount
	c.TotalItems = count
}

// Retain runs check over every line. A non-nil result drops the line and is
// collected; check may refresh the line in place. Totals are recomputed.
func (c *Cart) Retain(check func(item *CartItem) *CartValidationError) []CartValidationError {
	errs := []CartValidationError{}
	kept := c.Items[:0]

	for idx := range c.Items {
		item := c.Items[idx]
		if verr := check(&item); verr != nil {
			verr.ItemID = item.ID
			verr.ProductID = item.ProductID
			errs = append(errs, *verr)
			continue
		}
		kept = append(kept, item)
	}

	c.Items = kept
	c.Recalculate()
	return errs
}

// Merge folds other's lines into c using the AddItem rule. Line ids from
// other are discarded.
func (c *Cart) Merge(other *Cart) {
	if other == nil {
		return
	}

	for _, item := range other.Items {
		item.ID = 0
		if item.Quantity <= 0 {
			continue
		}
		_ = c.AddItem(item)
	}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}

	out := *c
	out.Items = make([]CartItem, len(c.Items))
	copy(out.Items, c.Items)
	return &out
}
