// Package access computes which offices a caller may see and whether a
// category's allow-list admits the caller's role.
package access

import "Gin_postgres_redis_asset_loan/models"

// Caller is the authenticated identity attached to a request.
type Caller struct {
	UserID   uint
	Role     models.Role
	OfficeID *uint
}

// System is used by background jobs; it is never scoped.
var System = Caller{Role: models.RoleAdmin}

// Scope restricts queries to a single office when OfficeID is set.
// Deny is set for a guard without an office: such a caller sees nothing.
type Scope struct {
	OfficeID *uint
	Deny     bool
}

// Unrestricted reports whether the scope adds no office predicate.
func (s Scope) Unrestricted() bool { return !s.Deny && s.OfficeID == nil }

// Contains reports whether an entity owned by officeID is visible.
func (s Scope) Contains(officeID uint) bool {
	if s.Deny {
		return false
	}
	return s.OfficeID == nil || *s.OfficeID == officeID
}

// ScopeFor derives the effective scope. Security guards are pinned to
// their own office and any requested office is ignored; admins and
// management are unrestricted unless they ask to narrow.
func ScopeFor(c Caller, requested *uint) Scope {
	if c.Role == models.RoleSecurityGuard {
		if c.OfficeID == nil {
			return Scope{Deny: true}
		}
		id := *c.OfficeID
		return Scope{OfficeID: &id}
	}
	if requested != nil {
		id := *requested
		return Scope{OfficeID: &id}
	}
	return Scope{}
}

// CanView applies a category allow-list to the caller's role.
func CanView(c Caller, allowed models.RoleSet) bool {
	return allowed.Allows(c.Role)
}
