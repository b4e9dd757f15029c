package models

import "fmt"

// Role identifies what a staff account or online customer is allowed to do.
type Role string

const (
	RoleMasterAdmin    Role = "masterAdmin"
	RoleRechargerAdmin Role = "rechargerAdmin"
	RoleRecharger      Role = "recharger"
	RoleStallAdmin     Role = "stallAdmin"
	RoleStallCashier   Role = "stallCashier"
	RoleOnlineCustomer Role = "onlineCustomer"
)

var allRoles = map[Role]bool{
	RoleMasterAdmin:    true,
	RoleRechargerAdmin: true,
	RoleRecharger:      true,
	RoleStallAdmin:     true,
	RoleStallCashier:   true,
	RoleOnlineCustomer: true,
}

// allowedCreations maps a creator role to the set of roles it may register.
var allowedCreations = map[Role][]Role{
	RoleMasterAdmin:    {RoleRecharger, RoleStallAdmin, RoleRechargerAdmin},
	RoleRechargerAdmin: {RoleRecharger},
	RoleStallAdmin:     {RoleStallCashier},
}

// ParseRole validates a role string against the closed enumeration
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !allRoles[r] {
		return "", fmt.Errorf("invalid role: %q", s)
	}
	return r, nil
}

// CanCreate reports whether this role is allowed to register an account
// with the target role
func (r Role) CanCreate(target Role) bool {
	for _, allowed := range allowedCreations[r] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsStallStaff reports whether the role belongs to a specific stall
func (r Role) IsStallStaff() bool {
	return r == RoleStallAdmin || r == RoleStallCashier
}
