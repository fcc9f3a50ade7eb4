package enums

import (
	"fmt"
	"strings"
)

// Role is the closed set of back-office roles a user can hold.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

var validRoles = []Role{
	RoleAdmin,
	RoleEmployee,
}

// Capability names an operation family gated at the HTTP boundary.
type Capability string

const (
	CapabilityOperateStore  Capability = "operate_store"
	CapabilityManageUsers   Capability = "manage_users"
	CapabilityManageBackups Capability = "manage_backups"
	CapabilityManageReports Capability = "manage_reports"
)

var roleCapabilities = map[Role][]Capability{
	RoleAdmin: {
		CapabilityOperateStore,
		CapabilityManageUsers,
		CapabilityManageBackups,
		CapabilityManageReports,
	},
	RoleEmployee: {
		CapabilityOperateStore,
	},
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// Can reports whether the role grants the capability. Unknown roles grant nothing.
func (r Role) Can(capability Capability) bool {
	for _, granted := range roleCapabilities[r] {
		if granted == capability {
			return true
		}
	}
	return false
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
