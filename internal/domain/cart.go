package domain

import "time"

// CartLine is one (book, quantity) pair pending purchase.
// A line with quantity < 1 is never stored; it is removed instead.
type CartLine struct {
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
}

// Cart holds the lines a visitor intends to purchase.
// Guest carts are keyed by a browser cookie; once the visitor signs in the
// cart is keyed by their user ID so it follows them across devices.
type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id,omitempty"`
	Lines     []CartLine `json:"lines"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Quantity returns the quantity for a book, or 0 if it is not in the cart.
func (c *Cart) Quantity(bookID string) int {
	for _, line := range c.Lines {
		if line.BookID == bookID {
			return line.Quantity
		}
	}
	return 0
}

// SetLine sets the quantity for a book. A quantity below 1 removes the line.
// Line order is preserved so the cart page stays stable across updates.
func (c *Cart) SetLine(bookID string, quantity int) {
	for i, line := range c.Lines {
		if line.BookID != bookID {
			continue
		}
		if quantity < 1 {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		} else {
			c.Lines[i].Quantity = quantity
		}
		c.UpdatedAt = time.Now()
		return
	}
	if quantity >= 1 {
		c.Lines = append(c.Lines, CartLine{BookID: bookID, Quantity: quantity})
		c.UpdatedAt = time.Now()
	}
}

// Add increases the quantity for a book, creating the line if needed.
func (c *Cart) Add(bookID string, quantity int) {
	if quantity < 1 {
		return
	}
	c.SetLine(bookID, c.Quantity(bookID)+quantity)
}

// Remove deletes the line for a book if present.
func (c *Cart) Remove(bookID string) {
	c.SetLine(bookID, 0)
}

// Merge folds another cart's lines into this one, adding quantities for
// books present in both. Used when a guest signs in with items in hand.
func (c *Cart) Merge(other *Cart) {
	if other == nil {
		return
	}
	for _, line := range other.Lines {
		c.Add(line.BookID, line.Quantity)
	}
}

// ItemCount returns the total number of copies across all lines.
func (c *Cart) ItemCount() int {
	total := 0
	for _, line := range c.Lines {
		total += line.Quantity
	}
	return total
}

// IsEmpty returns true when the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}
