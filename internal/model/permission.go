package model

import "encoding/json"

// Permission is the fixed set of actions a role may perform on a module.
// It is persisted as a JSON object in module_permissions.permissions_json
// but never handled as a raw string above the repository layer.
type Permission struct {
	Create bool `json:"create"`
	Update bool `json:"update"`
	Delete bool `json:"delete"`
	Index  bool `json:"index"`
	Show   bool `json:"show"`
}

// Allows reports whether the given permission key is granted. Unknown keys
// are always denied.
func (p Permission) Allows(key string) bool {
	switch key {
	case "create":
		return p.Create
	case "update":
		return p.Update
	case "delete":
		return p.Delete
	case "index":
		return p.Index
	case "show":
		return p.Show
	}
	return false
}

// DecodePermission parses the stored JSON form. A decode failure yields an
// all-false permission set so that malformed rows never grant access.
func DecodePermission(raw []byte) (Permission, error) {
	var p Permission
	if err := json.Unmarshal(raw, &p); err != nil {
		return Permission{}, err
	}
	return p, nil
}

// Encode serializes the permission set for storage.
func (p Permission) Encode() ([]byte, error) {
	return json.Marshal(p)
}
