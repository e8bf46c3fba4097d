package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

type Role string

const (
	RoleAdmin         Role = "ADMIN"
	RoleSecurityGuard Role = "SECURITY_GUARD"
	RoleManagement    Role = "MANAGEMENT"
)

// AllRoles is also the default allow-list of a new category.
var AllRoles = RoleSet{RoleAdmin, RoleSecurityGuard, RoleManagement}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSecurityGuard, RoleManagement:
		return true
	}
	return false
}

// RoleSet is the allow-list of a category. The column keeps the flat
// comma-joined form ("ADMIN,SECURITY_GUARD"); everything above the
// store works with the typed set. An empty set allows every role.
type RoleSet []Role

// ParseRoleSet accepts comma-separated role names, ignoring blanks and
// duplicates.
func ParseRoleSet(s string) (RoleSet, error) {
	var out RoleSet
	for _, part := range strings.Split(s, ",") {
		r := Role(strings.ToUpper(strings.TrimSpace(part)))
		if r == "" {
			continue
		}
		if !r.Valid() {
			return nil, fmt.Errorf("unknown role %q", part)
		}
		if !out.Contains(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (rs RoleSet) Contains(r Role) bool {
	for _, x := range rs {
		if x == r {
			return true
		}
	}
	return false
}

// Allows reports whether r may see assets guarded by this set.
func (rs RoleSet) Allows(r Role) bool {
	return len(rs) == 0 || rs.Contains(r)
}

func (rs RoleSet) String() string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}

func (rs RoleSet) Value() (driver.Value, error) {
	return rs.String(), nil
}

func (rs *RoleSet) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*rs = nil
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("roleset: cannot scan %T", src)
	}
	parsed, err := ParseRoleSet(s)
	if err != nil {
		return err
	}
	*rs = parsed
	return nil
}

// MarshalJSON keeps the comma-joined wire form the frontend already sends.
func (rs RoleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(rs.String())
}

// UnmarshalJSON accepts either "ADMIN,MANAGEMENT" or ["ADMIN","MANAGEMENT"].
func (rs *RoleSet) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		parsed, err := ParseRoleSet(strings.Join(list, ","))
		if err != nil {
			return err
		}
		*rs = parsed
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseRoleSet(s)
	if err != nil {
		return err
	}
	*rs = parsed
	return nil
}
