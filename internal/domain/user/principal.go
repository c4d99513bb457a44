package user

import "strings"

// PermissionImportStandings allows triggering a standings import.
const PermissionImportStandings = "standings.import"

var editorRoles = []string{"admin", "editor"}

// Principal is the authenticated caller resolved from a bearer token.
type Principal struct {
	UserID      string
	Email       string
	Roles       []string
	Permissions []string
}

// CanImport reports whether the principal may run imports.
func (p Principal) CanImport() bool {
	for _, perm := range p.Permissions {
		if strings.EqualFold(strings.TrimSpace(perm), PermissionImportStandings) {
			return true
		}
	}
	for _, role := range p.Roles {
		for _, allowed := range editorRoles {
			if strings.EqualFold(strings.TrimSpace(role), allowed) {
				return true
			}
		}
	}
	return false
}
