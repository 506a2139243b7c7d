package repository

import (
	"errors"
	"strings"
)

var (
	ErrEmailExists = errors.New("email already exists")
	ErrPhoneExists = errors.New("phone already exists")
	ErrRoleExists  = errors.New("role name already exists")
	ErrKeyExists   = errors.New("module key already exists")
)

// isDuplicate detects a MySQL duplicate-key violation (error 1062).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
