package domain

import "time"

// CartLike is anything checkout can read line items from: the persisted cart
// of an authenticated user or the guest's session-held cart.
type CartLike interface {
	Lines() []CartItem
}

type Cart struct {
	ID        string     `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    string     `bson:"user_id" json:"user_id"`
	Items     []CartItem `bson:"items" json:"items"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
}

type CartItem struct {
	ProductID       string    `bson:"product_id" json:"product_id"`
	Quantity        int       `bson:"quantity" json:"quantity"`
	SelectedVariant *Variant  `bson:"selected_variant" json:"selected_variant"`
	AddedAt         time.Time `bson:"added_at" json:"added_at"`
}

// ItemPatch is a partial update of a cart line. Nil fields are left untouched.
type ItemPatch struct {
	Quantity        *int     `json:"quantity,omitempty"`
	SelectedVariant *Variant `json:"selected_variant,omitempty"`
}

func (i CartItem) matches(productID string, variant *Variant) bool {
	return i.ProductID == productID && SameVariant(i.SelectedVariant, variant)
}

func (c *Cart) Lines() []CartItem {
	return c.Items
}

// AddItem merges quantity into the line with the same (product, variant) key
// or appends a new line.
func (c *Cart) AddItem(productID string, quantity int, variant *Variant, now time.Time) error {
	items, err := addLine(c.Items, productID, quantity, variant, now)
	if err != nil {
		return err
	}
	c.Items = items
	return nil
}

// UpdateItem patches the first line holding productID, whatever its variant.
// With several variants of one product in the cart only that first line changes.
func (c *Cart) UpdateItem(productID string, patch ItemPatch) error {
	if patch.Quantity != nil && *patch.Quantity < 1 {
		return ErrInvalidQuantity
	}
	for i := range c.Items {
		if c.Items[i].ProductID != productID {
			continue
		}
		if patch.Quantity != nil {
			c.Items[i].Quantity = *patch.Quantity
		}
		if patch.SelectedVariant != nil {
			c.Items[i].SelectedVariant = patch.SelectedVariant.Normalized()
		}
		return nil
	}
	return ErrItemNotFound
}

// RemoveItem drops every line of productID and reports how many were removed.
func (c *Cart) RemoveItem(productID string) int {
	kept := c.Items[:0]
	removed := 0
	for _, item := range c.Items {
		if item.ProductID == productID {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	c.Items = kept
	return removed
}

func (c *Cart) Clear() {
	c.Items = []CartItem{}
}

// DropInvalid removes lines whose product reference fails valid and returns
// the dropped lines.
func (c *Cart) DropInvalid(valid func(string) bool) []CartItem {
	var dropped []CartItem
	kept := make([]CartItem, 0, len(c.Items))
	for _, item := range c.Items {
		if !valid(item.ProductID) {
			dropped = append(dropped, item)
			continue
		}
		kept = append(kept, item)
	}
	c.Items = kept
	return dropped
}

// EphemeralCart is a guest cart. It lives in the caller's session and is
// never persisted server-side, but follows the same dedup rules.
type EphemeralCart struct {
	Items []CartItem `json:"items"`
}

func (e *EphemeralCart) Lines() []CartItem {
	return e.Items
}

func (e *EphemeralCart) AddItem(productID string, quantity int, variant *Variant, now time.Time) error {
	items, err := addLine(e.Items, productID, quantity, variant, now)
	if err != nil {
		return err
	}
	e.Items = items
	return nil
}

func addLine(items []CartItem, productID string, quantity int, variant *Variant, now time.Time) ([]CartItem, error) {
	if quantity < 1 {
		return items, ErrInvalidQuantity
	}
	if !ValidID(productID) {
		return items, ErrInvalidProductID
	}
	for i := range items {
		if items[i].matches(productID, variant) {
			items[i].Quantity += quantity
			items[i].AddedAt = now
			return items, nil
		}
	}
	return append(items, CartItem{
		ProductID:       productID,
		Quantity:        quantity,
		SelectedVariant: variant.Normalized(),
		AddedAt:         now,
	}), nil
}
