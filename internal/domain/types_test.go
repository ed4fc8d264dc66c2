package domain

import (
	"testing"
	"time"
)

func TestCartOwnerValidate(t *testing.T) {
	cases := []struct {
		name    string
		owner   CartOwner
		wantErr bool
	}{
		{"user owner", UserOwner("user-1"), false},
		{"guest owner", GuestOwner("sess-1"), false},
		{"empty user id", UserOwner(""), true},
		{"empty session id", GuestOwner("  "), true},
		{"no kind", CartOwner{UserID: "user-1"}, true},
		{"user with session id", CartOwner{Kind: OwnerKindUser, UserID: "user-1", SessionID: "sess-1"}, true},
		{"guest with user id", CartOwner{Kind: OwnerKindGuest, SessionID: "sess-1", UserID: "user-1"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.owner.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error for %+v", tc.owner)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCartOwnerKeySeparatesKinds(t *testing.T) {
	user := UserOwner("alpha")
	guest := GuestOwner("alpha")
	if user.Key() == guest.Key() {
		t.Fatalf("expected distinct keys, got %s", user.Key())
	}
	if user.Key() != "user:alpha" || guest.Key() != "session:alpha" {
		t.Fatalf("unexpected keys: %s / %s", user.Key(), guest.Key())
	}
	if (CartOwner{}).Key() != "" {
		t.Fatalf("expected empty key for zero owner")
	}
}

func TestVariantEqualIgnoresCaseAndSpace(t *testing.T) {
	a := Variant{Size: " M ", Color: "Navy"}
	b := Variant{Size: "m", Color: "navy "}
	if !a.Equal(b) {
		t.Fatalf("expected variants to match")
	}
	if a.Equal(Variant{Size: "L", Color: "navy"}) {
		t.Fatalf("expected differing sizes to mismatch")
	}
}

func TestCartRecalculate(t *testing.T) {
	cart := Cart{
		Items: []CartItem{
			{ProductID: "prod-1", UnitPrice: 45000, Quantity: 2},
			{ProductID: "prod-2", UnitPrice: 25000, Quantity: 3},
		},
		TotalItems: 99,
		TotalPrice: 1,
	}
	cart.Recalculate()

	if cart.TotalItems != 5 {
		t.Fatalf("expected 5 items, got %d", cart.TotalItems)
	}
	if cart.TotalPrice != 165000 {
		t.Fatalf("expected total 165000, got %d", cart.TotalPrice)
	}

	cart.Items = nil
	cart.Recalculate()
	if cart.TotalItems != 0 || cart.TotalPrice != 0 {
		t.Fatalf("expected empty cart totals reset, got %d/%d", cart.TotalItems, cart.TotalPrice)
	}
}

func TestCartFindItemMatchesVariant(t *testing.T) {
	cart := Cart{
		Items: []CartItem{
			{ProductID: "prod-1", Variant: Variant{Size: "M"}},
			{ProductID: "prod-1", Variant: Variant{Size: "L"}},
		},
	}

	if i := cart.FindItem("prod-1", Variant{Size: "l"}); i != 1 {
		t.Fatalf("expected index 1, got %d", i)
	}
	if i := cart.FindItem("prod-1", Variant{Size: "XL"}); i != -1 {
		t.Fatalf("expected -1 for unknown variant, got %d", i)
	}
	if i := cart.FindItemByProduct("PROD-1"); i != 0 {
		t.Fatalf("expected first line regardless of variant, got %d", i)
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{OrderStatusPending, OrderStatusPaid, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusPaid, OrderStatusShipped, true},
		{OrderStatusPaid, OrderStatusDelivered, true},
		{OrderStatusPaid, OrderStatusPending, false},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusDelivered, OrderStatusShipped, false},
		{OrderStatusCancelled, OrderStatusPaid, false},
		{OrderStatusPaid, OrderStatusPaid, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestOrderStatusAtOrBeyondPaid(t *testing.T) {
	for _, status := range []OrderStatus{OrderStatusPaid, OrderStatusShipped, OrderStatusDelivered} {
		if !status.AtOrBeyondPaid() {
			t.Fatalf("expected %s to count as paid", status)
		}
	}
	for _, status := range []OrderStatus{OrderStatusPending, OrderStatusCancelled} {
		if status.AtOrBeyondPaid() {
			t.Fatalf("expected %s to count as unpaid", status)
		}
	}
}

func TestOrderCloneIsDeep(t *testing.T) {
	paidAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	original := Order{
		ID:            "order-1",
		Items:         []OrderItem{{ProductID: "prod-1", Quantity: 2}},
		PaymentResult: &PaymentResult{Reference: "pi_123"},
		PaidAt:        &paidAt,
	}

	clone := original.Clone()
	clone.Items[0].Quantity = 99
	clone.PaymentResult.Reference = "pi_mutated"
	*clone.PaidAt = paidAt.Add(time.Hour)

	if original.Items[0].Quantity != 2 {
		t.Fatalf("clone shares items slice")
	}
	if original.PaymentResult.Reference != "pi_123" {
		t.Fatalf("clone shares payment result")
	}
	if !original.PaidAt.Equal(paidAt) {
		t.Fatalf("clone shares paidAt pointer")
	}
}
