package handler

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/campusflow/school-api/internal/permission"
	"github.com/campusflow/school-api/internal/repository"
)

const moduleRoles = "roles"

// RoleHandler implements the roles resource. Roles are created bare;
// permissions are attached afterwards through the module-permissions
// endpoints. System roles cannot be modified or deleted, and a role still
// assigned to users cannot be deleted at all.
type RoleHandler struct {
	Roles  *repository.RoleRepo
	Users  *repository.UserRepo
	Engine *permission.Engine
}

func NewRoleHandler(roles *repository.RoleRepo, users *repository.UserRepo, engine *permission.Engine) *RoleHandler {
	return &RoleHandler{Roles: roles, Users: users, Engine: engine}
}

type roleReq struct {
	RoleName    string  `json:"role_name"`
	Description *string `json:"description"`
}

// Index lists roles with their user counts.
func (h *RoleHandler) Index(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if !h.Engine.Authorize(ctx, PermCache(c), CurrentUser(c), moduleRoles, "index", true) {
		return PermissionDenied(c, moduleRoles, "index")
	}

	roles, err := h.Roles.List(ctx)
	if err != nil {
		logrus.WithError(err).Error("roles: list failed")
		return Error(c, "Failed to fetch roles", http.StatusInternalServerError)
	}
	return Success(c, echo.Map{"count": len(roles), "data": roles}, "Roles fetched successfully", http.StatusOK)
}

// Show returns a single role with its user count.
func (h *RoleHandler) Show(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if !h.Engine.Authorize(ctx, PermCache(c), CurrentUser(c), moduleRoles, "show", true) {
		return PermissionDenied(c, moduleRoles, "show")
	}

	id, err := pathID(c)
	if err != nil {
		return Error(c, "Invalid id", http.StatusUnprocessableEntity)
	}
	role, err := h.Roles.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return Error(c, "Role not found", http.StatusNotFound)
		}
		logrus.WithError(err).Error("roles: show failed")
		return Error(c, "Failed to fetch role", http.StatusInternalServerError)
	}
	return Success(c, role, "Role fetched successfully", http.StatusOK)
}

// Create inserts a role with a unique name.
func (h *RoleHandler) Create(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if !h.Engine.Authorize(ctx, PermCache(c), CurrentUser(c), moduleRoles, "create", false) {
		return PermissionDenied(c, moduleRoles, "create")
	}

	var req roleReq
	if err := c.Bind(&req); err != nil {
		return Error(c, "Invalid request body", http.StatusUnprocessableEntity)
	}
	req.RoleName = strings.TrimSpace(req.RoleName)
	if req.RoleName == "" {
		return Error(c, "Role name is required", http.StatusUnprocessableEntity)
	}

	taken, err := h.Roles.NameTaken(ctx, req.RoleName, 0)
	if err != nil {
		logrus.WithError(err).Error("roles: name check failed")
		return Error(c, "Failed to create role", http.StatusInternalServerError)
	}
	if taken {
		return Error(c, "Role name already exists", http.StatusUnprocessableEntity)
	}

	id, err := h.Roles.Create(ctx, req.RoleName, req.Description, actorID(c))
	if err != nil {
		if err == repository.ErrRoleExists {
			return Error(c, "Role name already exists", http.StatusUnprocessableEntity)
		}
		logrus.WithError(err).Error("roles: insert failed")
		return Error(c, "Failed to create role", http.StatusInternalServerError)
	}

	role, err := h.Roles.FindByID(ctx, id)
	if err != nil {
		logrus.WithError(err).Error("roles: reload failed")
		return Error(c, "Failed to create role", http.StatusInternalServerError)
	}
	return Success(c, role, "Role created successfully", http.StatusCreated)
}

// Update edits a non-system role.
func (h *RoleHandler) Update(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if !h.Engine.Authorize(ctx, PermCache(c), CurrentUser(c), moduleRoles, "update", false) {
		return PermissionDenied(c, moduleRoles, "update")
	}

	id, err := pathID(c)
	if err != nil {
		return Error(c, "Invalid id", http.StatusUnprocessableEntity)
	}
	role, err := h.Roles.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return Error(c, "Role not found", http.StatusNotFound)
		}
		logrus.WithError(err).Error("roles: lookup failed")
		return Error(c, "Failed to update role", http.StatusInternalServerError)
	}
	if role.IsSystem {
		return Error(c, "System roles cannot be modified", http.StatusForbidden)
	}

	var req roleReq
	if err := c.Bind(&req); err != nil {
		return Error(c, "Invalid request body", http.StatusUnprocessableEntity)
	}
	name := role.RoleName
	if strings.TrimSpace(req.RoleName) != "" {
		name = strings.TrimSpace(req.RoleName)
		taken, err := h.Roles.NameTaken(ctx, name, id)
		if err != nil {
			logrus.WithError(err).Error("roles: name check failed")
			return Error(c, "Failed to update role", http.StatusInternalServerError)
		}
		if taken {
			return Error(c, "Role name already exists", http.StatusUnprocessableEntity)
		}
	}
	description := role.Description
	if req.Description != nil {
		description = req.Description
	}

	if err := h.Roles.Update(ctx, id, name, description, actorID(c)); err != nil {
		logrus.WithError(err).Error("roles: update failed")
		return Error(c, "Failed to update role", http.StatusInternalServerError)
	}

	updated, err := h.Roles.FindByID(ctx, id)
	if err != nil {
		logrus.WithError(err).Error("roles: reload failed")
		return Error(c, "Failed to update role", http.StatusInternalServerError)
	}
	return Success(c, updated, "Role updated successfully", http.StatusOK)
}

// Delete soft-deletes a role. Refused for system roles and for roles still
// assigned to any non-deleted user.
func (h *RoleHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if !h.Engine.Authorize(ctx, PermCache(c), CurrentUser(c), moduleRoles, "delete", false) {
		return PermissionDenied(c, moduleRoles, "delete")
	}

	id, err := pathID(c)
	if err != nil {
		return Error(c, "Invalid id", http.StatusUnprocessableEntity)
	}
	role, err := h.Roles.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return Error(c, "Role not found", http.StatusNotFound)
		}
		logrus.WithError(err).Error("roles: lookup failed")
		return Error(c, "Failed to delete role", http.StatusInternalServerError)
	}
	if role.IsSystem {
		return Error(c, "System roles cannot be deleted", http.StatusForbidden)
	}

	assigned, err := h.Users.CountByRole(ctx, id)
	if err != nil {
		logrus.WithError(err).Error("roles: assignment check failed")
		return Error(c, "Failed to delete role", http.StatusInternalServerError)
	}
	if assigned > 0 {
		return Error(c, "Cannot delete role: assigned to users", http.StatusUnprocessableEntity)
	}

	if err := h.Roles.SoftDelete(ctx, id, actorID(c)); err != nil {
		logrus.WithError(err).Error("roles: delete failed")
		return Error(c, "Failed to delete role", http.StatusInternalServerError)
	}
	return Success(c, echo.Map{"id": id}, "Role deleted successfully", http.StatusOK)
}
