package auth

import "strings"

// Action names a guarded operation evaluated by the capability gate.
type Action string

const (
	// ActionOrderCreate covers placing a new order.
	ActionOrderCreate Action = "order:create"
	// ActionOrderRead covers reading a single order.
	ActionOrderRead Action = "order:read"
	// ActionOrderListOwn covers listing the caller's own orders.
	ActionOrderListOwn Action = "order:list_own"
	// ActionOrderListAll covers listing every order.
	ActionOrderListAll Action = "order:list_all"
	// ActionOrderMarkPaid covers confirming payment on an order.
	ActionOrderMarkPaid Action = "order:mark_paid"
	// ActionOrderMarkDelivered covers marking an order delivered.
	ActionOrderMarkDelivered Action = "order:mark_delivered"
	// ActionOrderCancel covers cancelling an order.
	ActionOrderCancel Action = "order:cancel"
	// ActionCartMerge covers merging a guest cart into a user cart.
	ActionCartMerge Action = "cart:merge"
)

type policy int

const (
	policyAuthenticated policy = iota
	policyOwnerOrAdmin
	policyAdminOnly
)

var actionPolicies = map[Action]policy{
	ActionOrderCreate:        policyAuthenticated,
	ActionOrderRead:          policyOwnerOrAdmin,
	ActionOrderListOwn:       policyAuthenticated,
	ActionOrderListAll:       policyAdminOnly,
	ActionOrderMarkPaid:      policyOwnerOrAdmin,
	ActionOrderMarkDelivered: policyAdminOnly,
	ActionOrderCancel:        policyOwnerOrAdmin,
	ActionCartMerge:          policyAuthenticated,
}

// Resource identifies the object an action targets. OwnerID is empty for collection-level
// actions.
type Resource struct {
	Type    string
	OwnerID string
}

// Decision is the tagged outcome of an authorisation check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allowed is the positive decision.
func allowed() Decision { return Decision{Allowed: true} }

func forbidden(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

// Authorize is the single capability gate evaluated before entering component
// operations. Role and ownership rules live here rather than inside each operation.
func Authorize(identity *Identity, action Action, resource Resource) Decision {
	pol, known := actionPolicies[action]
	if !known {
		return forbidden("unknown action")
	}

	if identity == nil || strings.TrimSpace(identity.UID) == "" {
		return forbidden("authentication required")
	}

	switch pol {
	case policyAuthenticated:
		return allowed()
	case policyAdminOnly:
		if identity.IsAdmin() {
			return allowed()
		}
		return forbidden("admin access required")
	case policyOwnerOrAdmin:
		if identity.IsAdmin() {
			return allowed()
		}
		if owner := strings.TrimSpace(resource.OwnerID); owner != "" && owner == strings.TrimSpace(identity.UID) {
			return allowed()
		}
		return forbidden("caller does not own this resource")
	}
	return forbidden("unknown policy")
}
