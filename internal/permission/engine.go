// Package permission implements the authorization engine: the per-role,
// per-module permission matrix evaluation with a public-read carve-out and
// the superadmin bypass. Every failure mode collapses to deny.
package permission

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/campusflow/school-api/internal/auth"
	"github.com/campusflow/school-api/internal/model"
)

// actionKeys maps a requested action to the permission key it consumes.
// Unknown actions are denied.
var actionKeys = map[string]string{
	"index":  "index",
	"show":   "show",
	"view":   "index",
	"create": "create",
	"update": "update",
	"delete": "delete",
}

// ModuleFinder resolves a module by its machine key among non-deleted rows.
type ModuleFinder interface {
	FindByKey(ctx context.Context, key string) (*model.Module, error)
}

// PermissionFinder resolves the unique non-deleted permission row for a
// (role, module) pair.
type PermissionFinder interface {
	Find(ctx context.Context, roleID, moduleID uint64) (*model.ModulePermission, error)
}

// Cache memoizes (role, module key) → permission set for a single request.
// It is created per request by the gate middleware and must never be shared
// across requests: a longer-lived cache would keep granting permissions
// that an admin just revoked.
type Cache struct {
	entries map[string]model.Permission
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]model.Permission)}
}

func (c *Cache) get(roleID uint64, moduleKey string) (model.Permission, bool) {
	if c == nil {
		return model.Permission{}, false
	}
	p, ok := c.entries[fmt.Sprintf("%d_%s", roleID, moduleKey)]
	return p, ok
}

func (c *Cache) put(roleID uint64, moduleKey string, p model.Permission) {
	if c != nil {
		c.entries[fmt.Sprintf("%d_%s", roleID, moduleKey)] = p
	}
}

// Engine evaluates authorization decisions against the permission store.
type Engine struct {
	Modules ModuleFinder
	Perms   PermissionFinder
}

func NewEngine(modules ModuleFinder, perms PermissionFinder) *Engine {
	return &Engine{Modules: modules, Perms: perms}
}

// Authorize decides whether user may perform action on the module.
//
//  1. Public read: index/show checks flagged allowPublic pass without a user.
//  2. No authenticated user → deny.
//  3. A role literally named "superadmin" bypasses the matrix.
//  4. Unknown action, missing module, missing permission row or a
//     malformed permission object → deny.
func (e *Engine) Authorize(ctx context.Context, cache *Cache, user *auth.Claims, moduleKey, action string, allowPublic bool) bool {
	if allowPublic && (action == "index" || action == "show") {
		return true
	}
	if user == nil || user.RoleID == 0 {
		return false
	}
	if strings.EqualFold(user.RoleName, model.SuperadminRole) {
		return true
	}

	permKey, ok := actionKeys[action]
	if !ok {
		return false
	}

	perms, cached := cache.get(user.RoleID, moduleKey)
	if !cached {
		module, err := e.Modules.FindByKey(ctx, moduleKey)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"module": moduleKey, "action": action, "role_id": user.RoleID,
			}).Debug("authorize: module lookup failed")
			return false
		}
		row, err := e.Perms.Find(ctx, user.RoleID, module.ID)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"module": moduleKey, "action": action, "role_id": user.RoleID,
			}).Debug("authorize: no permission row")
			return false
		}
		perms = row.Permissions
		cache.put(user.RoleID, moduleKey, perms)
	}

	return perms.Allows(permKey)
}
