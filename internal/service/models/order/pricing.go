package order

// Pricing holds the delivery charge rule: a flat fee waived once the
// subtotal reaches the free-delivery threshold.
type Pricing struct {
	DeliveryFeeCents           int64
	FreeDeliveryThresholdCents int64
}

// Subtotal sums the item lines.
func Subtotal(items []Item) int64 {
	var total int64
	for _, it := range items {
		total += it.UnitPriceCents * int64(it.Quantity)
	}
	return total
}

// DeliveryCharge applies the threshold rule to a subtotal.
func (p Pricing) DeliveryCharge(subtotalCents int64) int64 {
	if subtotalCents >= p.FreeDeliveryThresholdCents {
		return 0
	}
	return p.DeliveryFeeCents
}

// Price recomputes subtotal, delivery charge and total for an item list.
// The same item list always prices identically.
func (p Pricing) Price(items []Item) (subtotal, charge, total int64) {
	subtotal = Subtotal(items)
	charge = p.DeliveryCharge(subtotal)
	return subtotal, charge, subtotal + charge
}
