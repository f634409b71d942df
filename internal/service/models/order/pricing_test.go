package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrice(t *testing.T) {
	p := Pricing{DeliveryFeeCents: 4000, FreeDeliveryThresholdCents: 25000}

	tests := []struct {
		name         string
		items        []Item
		wantSubtotal int64
		wantCharge   int64
		wantTotal    int64
	}{
		{
			name:         "below threshold pays the fee",
			items:        []Item{{Quantity: 2, UnitPriceCents: 5000}},
			wantSubtotal: 10000,
			wantCharge:   4000,
			wantTotal:    14000,
		},
		{
			name:         "one cent below threshold still pays",
			items:        []Item{{Quantity: 1, UnitPriceCents: 24999}},
			wantSubtotal: 24999,
			wantCharge:   4000,
			wantTotal:    28999,
		},
		{
			name:         "exactly at threshold is free",
			items:        []Item{{Quantity: 1, UnitPriceCents: 25000}},
			wantSubtotal: 25000,
			wantCharge:   0,
			wantTotal:    25000,
		},
		{
			name: "multiple lines sum before the rule applies",
			items: []Item{
				{Quantity: 3, UnitPriceCents: 7000},
				{Quantity: 1, UnitPriceCents: 4000},
			},
			wantSubtotal: 25000,
			wantCharge:   0,
			wantTotal:    25000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subtotal, charge, total := p.Price(tt.items)
			assert.Equal(t, tt.wantSubtotal, subtotal)
			assert.Equal(t, tt.wantCharge, charge)
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}

func TestViewStripsCode(t *testing.T) {
	code := "123456"
	o := Order{ID: "o1", DeliveryOTP: &code}

	view := o.View()

	assert.Nil(t, view.DeliveryOTP)
	assert.NotNil(t, o.DeliveryOTP, "view must not mutate the source")
}
