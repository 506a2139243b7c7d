package handler

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/campusflow/school-api/internal/model"
	"github.com/campusflow/school-api/internal/permission"
	"github.com/campusflow/school-api/internal/repository"
)

const moduleModulePermissions = "module_permissions"

// ModulePermissionHandler manages the role → module grant matrix. Saves are
// bulk upserts keyed by module_key, so re-submitting the same matrix never
// produces duplicate rows.
type ModulePermissionHandler struct {
	Perms   *repository.PermissionRepo
	Roles   *repository.RoleRepo
	Modules *repository.ModuleRepo
	Engine  *permission.Engine
}

func NewModulePermissionHandler(perms *repository.PermissionRepo, roles *repository.RoleRepo, modules *repository.ModuleRepo, engine *permission.Engine) *ModulePermissionHandler {
	return &ModulePermissionHandler{Perms: perms, Roles: roles, Modules: modules, Engine: engine}
}

type savePermissionsReq struct {
	RoleID      uint64                      `json:"role_id"`
	Permissions map[string]model.Permission `json:"permissions"`
	Status      string                      `json:"status"`
}

// Index lists a role's permission rows. role_id is required.
func (h *ModulePermissionHandler) Index(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if !h.Engine.Authorize(ctx, PermCache(c), CurrentUser(c), moduleModulePermissions, "index", false) {
		return PermissionDenied(c, moduleModulePermissions, "index")
	}

	roleID, err := strconv.ParseUint(c.QueryParam("role_id"), 10, 64)
	if err != nil || roleID == 0 {
		return Error(c, "role_id is required", http.StatusUnprocessableEntity)
	}
	if _, err := h.Roles.FindByID(ctx, roleID); err != nil {
		if err == sql.ErrNoRows {
			return Error(c, "Role not found", http.StatusNotFound)
		}
		logrus.WithError(err).Error("module_permissions: role lookup failed")
		return Error(c, "Failed to fetch permissions", http.StatusInternalServerError)
	}

	perms, err := h.Perms.ListForRole(ctx, roleID)
	if err != nil {
		logrus.WithError(err).Error("module_permissions: list failed")
		return Error(c, "Failed to fetch permissions", http.StatusInternalServerError)
	}
	return Success(c, echo.Map{"count": len(perms), "data": perms}, "Module permissions fetched successfully", http.StatusOK)
}

// Create saves a role's permission matrix in bulk. Each entry maps a
// module_key to a permission object and lands as one upserted row.
func (h *ModulePermissionHandler) Create(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if !h.Engine.Authorize(ctx, PermCache(c), CurrentUser(c), moduleModulePermissions, "create", false) {
		return PermissionDenied(c, moduleModulePermissions, "create")
	}

	var req savePermissionsReq
	if err := c.Bind(&req); err != nil {
		return Error(c, "Invalid request body", http.StatusUnprocessableEntity)
	}
	if req.RoleID == 0 || len(req.Permissions) == 0 {
		return Error(c, "role_id and permissions object required", http.StatusUnprocessableEntity)
	}

	if _, err := h.Roles.FindByID(ctx, req.RoleID); err != nil {
		if err == sql.ErrNoRows {
			return Error(c, "Role not found", http.StatusNotFound)
		}
		logrus.WithError(err).Error("module_permissions: role lookup failed")
		return Error(c, "Failed to save permissions", http.StatusInternalServerError)
	}

	actor := actorID(c)
	for key, perms := range req.Permissions {
		mod, err := h.Modules.FindByKey(ctx, key)
		if err != nil {
			if err == sql.ErrNoRows {
				return Error(c, "Invalid module_key: "+key, http.StatusUnprocessableEntity)
			}
			logrus.WithError(err).Error("module_permissions: module lookup failed")
			return Error(c, "Failed to save permissions", http.StatusInternalServerError)
		}
		if _, err := h.Perms.Upsert(ctx, req.RoleID, mod.ID, perms, req.Status, actor); err != nil {
			logrus.WithError(err).WithField("module_key", key).Error("module_permissions: upsert failed")
			return Error(c, "Failed to save permissions", http.StatusInternalServerError)
		}
	}

	saved, err := h.Perms.ListForRole(ctx, req.RoleID)
	if err != nil {
		logrus.WithError(err).Error("module_permissions: reload failed")
		return Error(c, "Failed to save permissions", http.StatusInternalServerError)
	}
	return Success(c, echo.Map{"count": len(saved), "data": saved}, "Module permissions saved successfully", http.StatusOK)
}

// Delete soft-deletes a single permission row by id.
func (h *ModulePermissionHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if !h.Engine.Authorize(ctx, PermCache(c), CurrentUser(c), moduleModulePermissions, "delete", false) {
		return PermissionDenied(c, moduleModulePermissions, "delete")
	}

	id, err := pathID(c)
	if err != nil {
		return Error(c, "Invalid id", http.StatusUnprocessableEntity)
	}
	if _, err := h.Perms.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return Error(c, "Permission not found", http.StatusNotFound)
		}
		logrus.WithError(err).Error("module_permissions: lookup failed")
		return Error(c, "Failed to delete permission", http.StatusInternalServerError)
	}

	if err := h.Perms.SoftDelete(ctx, id, actorID(c)); err != nil {
		logrus.WithError(err).Error("module_permissions: delete failed")
		return Error(c, "Failed to delete permission", http.StatusInternalServerError)
	}
	return Success(c, echo.Map{"id": id}, "Permission deleted", http.StatusOK)
}
