// Package cart holds the pending sale of one cashier session.
//
// Clamps are silent: adding an out-of-stock product or raising a quantity
// above the catalog stock leaves the cart unchanged and reports NoOp instead
// of an error.
package cart

import "bangunanpro/backend/internal/domain"

type Outcome int

const (
	NoOp Outcome = iota
	Applied
)

func (o Outcome) Applied() bool { return o == Applied }

func (o Outcome) String() string {
	if o == Applied {
		return "applied"
	}
	return "noop"
}

// Cart is not safe for concurrent use; the owning session serializes access.
type Cart struct {
	order []string
	items map[string]*domain.CartItem
}

func New() *Cart {
	return &Cart{items: make(map[string]*domain.CartItem)}
}

// Add puts one unit of product in the cart. An existing entry is bumped by
// one without checking it against stock; the ceiling is enforced by the next
// UpdateQuantity and finally by checkout.
func (c *Cart) Add(product domain.Product) Outcome {
	if product.Stock <= 0 {
		return NoOp
	}
	if item, ok := c.items[product.ID]; ok {
		item.Quantity++
		return Applied
	}
	c.items[product.ID] = &domain.CartItem{Product: product, Quantity: 1}
	c.order = append(c.order, product.ID)
	return Applied
}

// UpdateQuantity moves the quantity by delta, never below 1. When the result
// would exceed currentStock the cart is left as is.
func (c *Cart) UpdateQuantity(id string, delta int, currentStock int) Outcome {
	item, ok := c.items[id]
	if !ok {
		return NoOp
	}
	next := item.Quantity + delta
	if next < 1 {
		next = 1
	}
	if next > currentStock || next == item.Quantity {
		return NoOp
	}
	item.Quantity = next
	return Applied
}

func (c *Cart) Remove(id string) Outcome {
	if _, ok := c.items[id]; !ok {
		return NoOp
	}
	delete(c.items, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return Applied
}

func (c *Cart) Clear() {
	c.order = nil
	c.items = make(map[string]*domain.CartItem)
}

func (c *Cart) Len() int {
	return len(c.order)
}

func (c *Cart) Quantity(id string) int {
	if item, ok := c.items[id]; ok {
		return item.Quantity
	}
	return 0
}

func (c *Cart) Total() int64 {
	total := int64(0)
	for _, id := range c.order {
		item := c.items[id]
		total += item.Price * int64(item.Quantity)
	}
	return total
}

// Items returns copies of the entries in insertion order.
func (c *Cart) Items() []domain.CartItem {
	result := make([]domain.CartItem, 0, len(c.order))
	for _, id := range c.order {
		result = append(result, *c.items[id])
	}
	return result
}

func (c *Cart) View() domain.CartView {
	return domain.CartView{Items: c.Items(), Total: c.Total()}
}

// Restore replaces the contents with a previously taken Items snapshot.
// Entries with a non-positive quantity are dropped and repeated ids merged.
func (c *Cart) Restore(items []domain.CartItem) {
	c.Clear()
	for _, item := range items {
		if item.ID == "" || item.Quantity < 1 {
			continue
		}
		if existing, ok := c.items[item.ID]; ok {
			existing.Quantity += item.Quantity
			continue
		}
		copied := item
		c.items[item.ID] = &copied
		c.order = append(c.order, item.ID)
	}
}
