// Package roles defines the closed set of caller roles. Authorization code
// switches over Role values; raw role strings only exist at the token
// boundary.
package roles

import "fmt"

type Role uint8

const (
	Unknown Role = iota
	Superadmin
	SchoolAdmin
)

const (
	superadminWire  = "superadmin"
	schoolAdminWire = "school_admin"
)

func Parse(s string) (Role, error) {
	switch s {
	case superadminWire:
		return Superadmin, nil
	case schoolAdminWire:
		return SchoolAdmin, nil
	default:
		return Unknown, fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string {
	switch r {
	case Superadmin:
		return superadminWire
	case SchoolAdmin:
		return schoolAdminWire
	default:
		return "unknown"
	}
}

func (r Role) Valid() bool {
	return r == Superadmin || r == SchoolAdmin
}
