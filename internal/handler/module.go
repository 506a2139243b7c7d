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

const moduleModules = "modules"

// ModuleHandler administers the module registry. Adding a protected module
// is a data change here plus permission rows, not a deployment. System
// modules keep their key and cannot be deleted.
type ModuleHandler struct {
	Modules *repository.ModuleRepo
	Engine  *permission.Engine
}

func NewModuleHandler(modules *repository.ModuleRepo, engine *permission.Engine) *ModuleHandler {
	return &ModuleHandler{Modules: modules, Engine: engine}
}

type moduleReq struct {
	ModuleKey  string `json:"module_key"`
	ModuleName string `json:"module_name"`
	Status     string `json:"status"`
}

// Index lists modules, optionally filtered by ?status=.
func (h *ModuleHandler) Index(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if !h.Engine.Authorize(ctx, PermCache(c), CurrentUser(c), moduleModules, "index", true) {
		return PermissionDenied(c, moduleModules, "index")
	}

	modules, err := h.Modules.List(ctx, c.QueryParam("status"))
	if err != nil {
		logrus.WithError(err).Error("modules: list failed")
		return Error(c, "Failed to fetch modules", http.StatusInternalServerError)
	}
	return Success(c, echo.Map{"count": len(modules), "data": modules}, "Modules fetched successfully", http.StatusOK)
}

// Show returns a single module.
func (h *ModuleHandler) Show(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if !h.Engine.Authorize(ctx, PermCache(c), CurrentUser(c), moduleModules, "show", true) {
		return PermissionDenied(c, moduleModules, "show")
	}

	id, err := pathID(c)
	if err != nil {
		return Error(c, "Invalid id", http.StatusUnprocessableEntity)
	}
	m, err := h.Modules.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return Error(c, "Module not found", http.StatusNotFound)
		}
		logrus.WithError(err).Error("modules: show failed")
		return Error(c, "Failed to fetch module", http.StatusInternalServerError)
	}
	return Success(c, m, "Module fetched successfully", http.StatusOK)
}

// Create registers a module with a unique lowercased key.
func (h *ModuleHandler) Create(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if !h.Engine.Authorize(ctx, PermCache(c), CurrentUser(c), moduleModules, "create", false) {
		return PermissionDenied(c, moduleModules, "create")
	}

	var req moduleReq
	if err := c.Bind(&req); err != nil {
		return Error(c, "Invalid request body", http.StatusUnprocessableEntity)
	}
	req.ModuleKey = strings.ToLower(strings.TrimSpace(req.ModuleKey))
	req.ModuleName = strings.TrimSpace(req.ModuleName)
	if req.ModuleKey == "" || req.ModuleName == "" {
		return Error(c, "module_key and module_name are required", http.StatusUnprocessableEntity)
	}

	taken, err := h.Modules.KeyTaken(ctx, req.ModuleKey, 0)
	if err != nil {
		logrus.WithError(err).Error("modules: key check failed")
		return Error(c, "Server error while creating module", http.StatusInternalServerError)
	}
	if taken {
		return Error(c, "Module key already exists", http.StatusUnprocessableEntity)
	}

	id, err := h.Modules.Create(ctx, req.ModuleKey, req.ModuleName, req.Status)
	if err != nil {
		if err == repository.ErrKeyExists {
			return Error(c, "Module key already exists", http.StatusUnprocessableEntity)
		}
		logrus.WithError(err).Error("modules: insert failed")
		return Error(c, "Failed to create module", http.StatusInternalServerError)
	}

	m, err := h.Modules.FindByID(ctx, id)
	if err != nil {
		logrus.WithError(err).Error("modules: reload failed")
		return Error(c, "Server error while creating module", http.StatusInternalServerError)
	}
	return Success(c, m, "Module created successfully", http.StatusCreated)
}

// Update edits a module. System modules keep their key no matter what the
// request says.
func (h *ModuleHandler) Update(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if !h.Engine.Authorize(ctx, PermCache(c), CurrentUser(c), moduleModules, "update", false) {
		return PermissionDenied(c, moduleModules, "update")
	}

	id, err := pathID(c)
	if err != nil {
		return Error(c, "Invalid id", http.StatusUnprocessableEntity)
	}
	m, err := h.Modules.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return Error(c, "Module not found", http.StatusNotFound)
		}
		logrus.WithError(err).Error("modules: lookup failed")
		return Error(c, "Server error while updating module", http.StatusInternalServerError)
	}

	var req moduleReq
	if err := c.Bind(&req); err != nil {
		return Error(c, "Invalid request body", http.StatusUnprocessableEntity)
	}

	if key := strings.ToLower(strings.TrimSpace(req.ModuleKey)); key != "" && !m.IsSystem {
		if key != m.ModuleKey {
			taken, err := h.Modules.KeyTaken(ctx, key, id)
			if err != nil {
				logrus.WithError(err).Error("modules: key check failed")
				return Error(c, "Server error while updating module", http.StatusInternalServerError)
			}
			if taken {
				return Error(c, "Module key already exists", http.StatusUnprocessableEntity)
			}
		}
		m.ModuleKey = key
	}
	if name := strings.TrimSpace(req.ModuleName); name != "" {
		m.ModuleName = name
	}
	if req.Status != "" {
		m.Status = req.Status
	}

	if err := h.Modules.Update(ctx, m); err != nil {
		logrus.WithError(err).Error("modules: update failed")
		return Error(c, "Server error while updating module", http.StatusInternalServerError)
	}

	updated, err := h.Modules.FindByID(ctx, id)
	if err != nil {
		logrus.WithError(err).Error("modules: reload failed")
		return Error(c, "Server error while updating module", http.StatusInternalServerError)
	}
	return Success(c, updated, "Module updated successfully", http.StatusOK)
}

// Delete soft-deletes a non-system module.
func (h *ModuleHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if !h.Engine.Authorize(ctx, PermCache(c), CurrentUser(c), moduleModules, "delete", false) {
		return PermissionDenied(c, moduleModules, "delete")
	}

	id, err := pathID(c)
	if err != nil {
		return Error(c, "Invalid id", http.StatusUnprocessableEntity)
	}
	m, err := h.Modules.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return Error(c, "Module not found", http.StatusNotFound)
		}
		logrus.WithError(err).Error("modules: lookup failed")
		return Error(c, "Failed to delete module", http.StatusInternalServerError)
	}
	if m.IsSystem {
		return Error(c, "System modules cannot be deleted", http.StatusForbidden)
	}

	if err := h.Modules.SoftDelete(ctx, id); err != nil {
		logrus.WithError(err).Error("modules: delete failed")
		return Error(c, "Failed to delete module", http.StatusInternalServerError)
	}
	return Success(c, echo.Map{"id": id}, "Module deleted successfully", http.StatusOK)
}
