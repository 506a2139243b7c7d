package model

import "time"

// ModulePermission joins a role to a module with a permission set. At most
// one non-deleted row exists per (role_id, module_id) pair; writes are
// upserts against that pair.
type ModulePermission struct {
	ID             uint64     `json:"id"`
	RoleID         uint64     `json:"role_id"`
	ModuleID       uint64     `json:"module_id"`
	Permissions    Permission `json:"permissions"`
	Status         string     `json:"status"`
	LastAccessedBy *uint64    `json:"last_accessed_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// RolePermission is a ModulePermission joined with its module identity,
// the shape returned to clients at login and on permission listings.
type RolePermission struct {
	ModulePermission
	ModuleKey  string `json:"module_key"`
	ModuleName string `json:"module_name"`
}
