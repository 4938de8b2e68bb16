package domain

// ReconcileCart picks the cart a client should display after an optimistic
// update. The server cart wins whenever it is present. Without it the
// optimistic cart is kept with totals recomputed from its lines.
func ReconcileCart(optimistic, server *Cart) *Cart {
	if server != nil {
		out := server.Clone()
		out.Recalculate()
		return out
	}

	if optimistic == nil {
		return NewCart(Owner{})
	}

	out := optimistic.Clone()
	kept := out.Items[:0]
	for _, item := range out.Items {
		if item.Quantity > 0 {
			kept = append(kept, item)
		}
	}
	out.Items = kept
	out.Recalculate()
	return out
}
