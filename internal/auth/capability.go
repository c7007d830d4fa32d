package auth

import "github.com/vasiliy-maslov/product-management/internal/user"

type Capability string

const (
	CapProfile       Capability = "profile"
	CapCart          Capability = "cart"
	CapPlaceOrder    Capability = "order:place"
	CapOwnOrders     Capability = "order:own"
	CapAddressBook   Capability = "address"
	CapCatalogWrite  Capability = "catalog:write"
	CapCategoryWrite Capability = "category:write"
	CapOrderAdmin    Capability = "order:admin"
	CapUserAdmin     Capability = "user:admin"
)

var capabilities = map[Capability][]user.Role{
	CapProfile:       {user.RoleUser, user.RoleAdmin, user.RoleSuperAdmin},
	CapCart:          {user.RoleUser},
	CapPlaceOrder:    {user.RoleUser},
	CapOwnOrders:     {user.RoleUser},
	CapAddressBook:   {user.RoleUser},
	CapCatalogWrite:  {user.RoleAdmin, user.RoleSuperAdmin},
	CapCategoryWrite: {user.RoleSuperAdmin},
	CapOrderAdmin:    {user.RoleSuperAdmin},
	CapUserAdmin:     {user.RoleSuperAdmin},
}

// Allowed reports whether any of roles grants the capability. Unknown
// capabilities are denied.
func Allowed(c Capability, roles []user.Role) bool {
	for _, allowed := range capabilities[c] {
		for _, r := range roles {
			if r == allowed {
				return true
			}
		}
	}
	return false
}
