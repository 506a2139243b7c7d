package handler

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/campusflow/school-api/internal/config"
	"github.com/campusflow/school-api/internal/model"
	"github.com/campusflow/school-api/internal/permission"
	"github.com/campusflow/school-api/internal/repository"
	"github.com/campusflow/school-api/internal/utils"
)

const moduleUsers = "users"

// UserHandler implements the users resource: index/show are publicly
// readable, mutations are gated on the 'users' module permissions.
type UserHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Roles  *repository.RoleRepo
	Engine *permission.Engine
}

func NewUserHandler(cfg config.Config, users *repository.UserRepo, roles *repository.RoleRepo, engine *permission.Engine) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: users, Roles: roles, Engine: engine}
}

type userReq struct {
	RoleID     uint64  `json:"role_id"`
	SchoolID   *uint64 `json:"school_id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Phone      string  `json:"phone"`
	Password   string  `json:"password"`
	IsVerified string  `json:"is_verified"`
	Status     string  `json:"status"`
}

// Index lists all users.
func (h *UserHandler) Index(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if !h.Engine.Authorize(ctx, PermCache(c), CurrentUser(c), moduleUsers, "index", true) {
		return PermissionDenied(c, moduleUsers, "index")
	}

	users, err := h.Users.List(ctx)
	if err != nil {
		logrus.WithError(err).Error("users: list failed")
		return Error(c, "Failed to fetch users", http.StatusInternalServerError)
	}
	return Success(c, echo.Map{"count": len(users), "data": users}, "Users fetched successfully", http.StatusOK)
}

// Show returns a single user.
func (h *UserHandler) Show(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if !h.Engine.Authorize(ctx, PermCache(c), CurrentUser(c), moduleUsers, "show", true) {
		return PermissionDenied(c, moduleUsers, "show")
	}

	id, err := pathID(c)
	if err != nil {
		return Error(c, "Invalid id", http.StatusUnprocessableEntity)
	}
	u, err := h.Users.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return Error(c, "User not found", http.StatusNotFound)
		}
		logrus.WithError(err).Error("users: show failed")
		return Error(c, "Failed to fetch user", http.StatusInternalServerError)
	}
	return Success(c, u, "User fetched successfully", http.StatusOK)
}

// Create inserts a user after validating role and email uniqueness.
func (h *UserHandler) Create(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if !h.Engine.Authorize(ctx, PermCache(c), CurrentUser(c), moduleUsers, "create", false) {
		return PermissionDenied(c, moduleUsers, "create")
	}

	var req userReq
	if err := c.Bind(&req); err != nil {
		return Error(c, "Invalid request body", http.StatusUnprocessableEntity)
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" {
		return Error(c, "Name & Email required", http.StatusUnprocessableEntity)
	}

	taken, err := h.Users.EmailTaken(ctx, req.Email, 0)
	if err != nil {
		logrus.WithError(err).Error("users: email check failed")
		return Error(c, "Error creating user", http.StatusInternalServerError)
	}
	if taken {
		return Error(c, "Email already exists", http.StatusUnprocessableEntity)
	}

	if _, err := h.Roles.FindByID(ctx, req.RoleID); err != nil {
		if err == sql.ErrNoRows {
			return Error(c, "Invalid role_id", http.StatusUnprocessableEntity)
		}
		logrus.WithError(err).Error("users: role check failed")
		return Error(c, "Error creating user", http.StatusInternalServerError)
	}

	hash := ""
	if req.Password != "" {
		if hash, err = utils.HashPassword(req.Password, h.Cfg.BcryptCost); err != nil {
			logrus.WithError(err).Error("users: password hash failed")
			return Error(c, "Error creating user", http.StatusInternalServerError)
		}
	}

	u := &model.User{
		RoleID:       req.RoleID,
		SchoolID:     req.SchoolID,
		Name:         req.Name,
		Email:        &req.Email,
		PasswordHash: hash,
		IsVerified:   orDefault(req.IsVerified, model.VerifiedNo),
		Status:       orDefault(req.Status, model.StatusActive),
	}
	if req.Phone != "" {
		u.Phone = &req.Phone
	}

	id, err := h.Users.Create(ctx, u)
	if err != nil {
		if err == repository.ErrEmailExists {
			return Error(c, "Email already exists", http.StatusUnprocessableEntity)
		}
		logrus.WithError(err).Error("users: insert failed")
		return Error(c, "Failed to create user", http.StatusInternalServerError)
	}

	created, err := h.Users.FindByID(ctx, id)
	if err != nil {
		logrus.WithError(err).Error("users: reload failed")
		return Error(c, "Error creating user", http.StatusInternalServerError)
	}
	return Success(c, created, "User created", http.StatusCreated)
}

// Update edits profile fields with an email duplicate guard.
func (h *UserHandler) Update(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if !h.Engine.Authorize(ctx, PermCache(c), CurrentUser(c), moduleUsers, "update", false) {
		return PermissionDenied(c, moduleUsers, "update")
	}

	id, err := pathID(c)
	if err != nil {
		return Error(c, "Invalid id", http.StatusUnprocessableEntity)
	}
	existing, err := h.Users.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return Error(c, "User not found", http.StatusNotFound)
		}
		logrus.WithError(err).Error("users: lookup failed")
		return Error(c, "Failed to update user", http.StatusInternalServerError)
	}

	var req userReq
	if err := c.Bind(&req); err != nil {
		return Error(c, "Invalid request body", http.StatusUnprocessableEntity)
	}

	if req.Email != "" {
		email := strings.ToLower(strings.TrimSpace(req.Email))
		taken, err := h.Users.EmailTaken(ctx, email, id)
		if err != nil {
			logrus.WithError(err).Error("users: email check failed")
			return Error(c, "Failed to update user", http.StatusInternalServerError)
		}
		if taken {
			return Error(c, "Email already exists", http.StatusUnprocessableEntity)
		}
		existing.Email = &email
	}
	if req.Name != "" {
		existing.Name = strings.TrimSpace(req.Name)
	}
	if req.Phone != "" {
		existing.Phone = &req.Phone
	}
	if req.RoleID != 0 {
		if _, err := h.Roles.FindByID(ctx, req.RoleID); err != nil {
			return Error(c, "Invalid role_id", http.StatusUnprocessableEntity)
		}
		existing.RoleID = req.RoleID
	}
	if req.SchoolID != nil {
		existing.SchoolID = req.SchoolID
	}
	if req.IsVerified != "" {
		existing.IsVerified = req.IsVerified
	}
	if req.Status != "" {
		existing.Status = req.Status
	}

	if err := h.Users.Update(ctx, existing); err != nil {
		logrus.WithError(err).Error("users: update failed")
		return Error(c, "Failed to update user", http.StatusInternalServerError)
	}

	updated, err := h.Users.FindByID(ctx, id)
	if err != nil {
		logrus.WithError(err).Error("users: reload failed")
		return Error(c, "Failed to update user", http.StatusInternalServerError)
	}
	return Success(c, updated, "User updated", http.StatusOK)
}

// Delete soft-deletes a user.
func (h *UserHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if !h.Engine.Authorize(ctx, PermCache(c), CurrentUser(c), moduleUsers, "delete", false) {
		return PermissionDenied(c, moduleUsers, "delete")
	}

	id, err := pathID(c)
	if err != nil {
		return Error(c, "Invalid id", http.StatusUnprocessableEntity)
	}
	if _, err := h.Users.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return Error(c, "User not found", http.StatusNotFound)
		}
		logrus.WithError(err).Error("users: lookup failed")
		return Error(c, "Failed to delete user", http.StatusInternalServerError)
	}
	if err := h.Users.SoftDelete(ctx, id); err != nil {
		logrus.WithError(err).Error("users: delete failed")
		return Error(c, "Failed to delete user", http.StatusInternalServerError)
	}
	return Success(c, nil, "User deleted", http.StatusOK)
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
