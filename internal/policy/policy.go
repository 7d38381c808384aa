// Package policy maps roles to the permissions each route requires.  Route
// guards ask the table; nothing else in the code compares role names.
package policy

import "github.com/iliyamo/cinema-ticketing/internal/model"

// Permission names one guarded capability.
type Permission string

const (
	ListScreenings   Permission = "screenings:list"
	CreateBooking    Permission = "bookings:create"
	CancelBooking    Permission = "bookings:cancel"
	ReadOwnHistory   Permission = "bookings:history:own"
	ReadAnyHistory   Permission = "bookings:history:any"
	ManageCatalog    Permission = "catalog:manage"
	ReadAvailability Permission = "availability:read"
)

// Table is an immutable role -> permissions lookup.
type Table struct {
	grants map[model.Role]map[Permission]struct{}
}

// New builds a table from a role -> permissions listing.
func New(grants map[model.Role][]Permission) *Table {
	t := &Table{grants: make(map[model.Role]map[Permission]struct{}, len(grants))}
	for role, perms := range grants {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		t.grants[role] = set
	}
	return t
}

// Default is the table the API ships with: admins can do everything, users
// can book, cancel, read their own history and check availability.
func Default() *Table {
	return New(map[model.Role][]Permission{
		model.RoleAdmin: {
			ListScreenings, CreateBooking, CancelBooking, ReadOwnHistory,
			ReadAnyHistory, ManageCatalog, ReadAvailability,
		},
		model.RoleUser: {
			CreateBooking, CancelBooking, ReadOwnHistory, ReadAvailability,
		},
	})
}

// Allows reports whether role holds perm.  Unknown roles hold nothing.
func (t *Table) Allows(role model.Role, perm Permission) bool {
	if t == nil {
		return false
	}
	_, ok := t.grants[role][perm]
	return ok
}
