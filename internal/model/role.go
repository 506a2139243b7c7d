package model

import "time"

// SuperadminRole is the role name that bypasses the permission matrix
// entirely. The bypass is enforced inside the authorization engine.
const SuperadminRole = "superadmin"

// Role mirrors the 'roles' table. Roles are created first; their module
// permissions are attached afterwards through module_permissions rows.
type Role struct {
	ID             uint64    `json:"id"`
	RoleName       string    `json:"role_name"`
	Description    *string   `json:"description,omitempty"`
	IsSystem       bool      `json:"is_system"`
	UserCount      int       `json:"user_count"`
	LastAccessedBy *uint64   `json:"last_accessed_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
