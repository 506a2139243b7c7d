package model

import "time"

// Module is an addressable feature area (students, attendance, fees, ...)
// referenced by module_key from permission checks. System modules keep
// their key forever and cannot be deleted.
type Module struct {
	ID         uint64    `json:"id"`
	ModuleKey  string    `json:"module_key"`
	ModuleName string    `json:"module_name"`
	IsSystem   bool      `json:"is_system"`
	Status     string    `json:"status"` // active | inactive
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
