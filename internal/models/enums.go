package models

// Fixed-domain value sets referenced by entities. The registry is immutable at
// process run time: adding a value is a migration, not a runtime operation.

type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

func (r UserRole) Valid() bool {
	_, ok := userRoleDomain[string(r)]
	return ok
}

type OrderStatusName string

const (
	OrderStatusPending   OrderStatusName = "pending"
	OrderStatusCompleted OrderStatusName = "completed"
	OrderStatusCancelled OrderStatusName = "cancelled"
)

func (n OrderStatusName) Valid() bool {
	_, ok := orderStatusDomain[string(n)]
	return ok
}

var (
	userRoleDomain = map[string]struct{}{
		string(UserRoleAdmin): {},
		string(UserRoleUser):  {},
	}
	orderStatusDomain = map[string]struct{}{
		string(OrderStatusPending):   {},
		string(OrderStatusCompleted): {},
		string(OrderStatusCancelled): {},
	}
)

// ValidDomain returns the permitted values for a named enum, or nil if no such
// enum is registered. Callers must not mutate the returned map.
func ValidDomain(enumName string) map[string]struct{} {
	switch enumName {
	case "user_role":
		return userRoleDomain
	case "order_status":
		return orderStatusDomain
	default:
		return nil
	}
}
