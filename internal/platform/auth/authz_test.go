package auth

import "testing"

func TestAuthorizeRequiresIdentity(t *testing.T) {
	if d := Authorize(nil, ActionOrderCreate, Resource{}); d.Allowed {
		t.Fatalf("expected nil identity to be forbidden")
	}
	if d := Authorize(&Identity{}, ActionOrderCreate, Resource{}); d.Allowed {
		t.Fatalf("expected empty uid to be forbidden")
	}
}

func TestAuthorizeUnknownAction(t *testing.T) {
	admin := &Identity{UID: "admin-1", Role: RoleAdmin}
	if d := Authorize(admin, Action("order:explode"), Resource{}); d.Allowed {
		t.Fatalf("expected unknown action to be forbidden even for admins")
	}
}

func TestAuthorizePolicyMatrix(t *testing.T) {
	owner := &Identity{UID: "user-1", Role: RoleUser}
	stranger := &Identity{UID: "user-2", Role: RoleUser}
	admin := &Identity{UID: "admin-1", Role: RoleAdmin}
	order := Resource{Type: "order", OwnerID: "user-1"}

	cases := []struct {
		name     string
		identity *Identity
		action   Action
		resource Resource
		want     bool
	}{
		{"user places order", owner, ActionOrderCreate, Resource{}, true},
		{"user lists own orders", owner, ActionOrderListOwn, Resource{}, true},
		{"user merges cart", owner, ActionCartMerge, Resource{}, true},
		{"owner reads own order", owner, ActionOrderRead, order, true},
		{"stranger reads another's order", stranger, ActionOrderRead, order, false},
		{"admin reads any order", admin, ActionOrderRead, order, true},
		{"owner pays own order", owner, ActionOrderMarkPaid, order, true},
		{"stranger pays another's order", stranger, ActionOrderMarkPaid, order, false},
		{"owner cancels own order", owner, ActionOrderCancel, order, true},
		{"stranger cancels another's order", stranger, ActionOrderCancel, order, false},
		{"user lists all orders", owner, ActionOrderListAll, Resource{}, false},
		{"admin lists all orders", admin, ActionOrderListAll, Resource{}, true},
		{"user marks delivered", owner, ActionOrderMarkDelivered, order, false},
		{"admin marks delivered", admin, ActionOrderMarkDelivered, order, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Authorize(tc.identity, tc.action, tc.resource)
			if d.Allowed != tc.want {
				t.Fatalf("expected allowed=%v, got %+v", tc.want, d)
			}
			if !d.Allowed && d.Reason == "" {
				t.Fatalf("expected a reason on denial")
			}
		})
	}
}

func TestAuthorizeRoleComparisonIsCaseInsensitive(t *testing.T) {
	admin := &Identity{UID: "admin-1", Role: "Admin"}
	if d := Authorize(admin, ActionOrderListAll, Resource{}); !d.Allowed {
		t.Fatalf("expected mixed-case admin role to be accepted, got %+v", d)
	}
}
