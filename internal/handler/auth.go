package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/campusflow/school-api/internal/auth"
	"github.com/campusflow/school-api/internal/config"
	"github.com/campusflow/school-api/internal/model"
	"github.com/campusflow/school-api/internal/queue"
	"github.com/campusflow/school-api/internal/repository"
	"github.com/campusflow/school-api/internal/service"
	"github.com/campusflow/school-api/internal/utils"
)

// mobileSignupRole is the fixed role assigned to mobile self-registrations.
const mobileSignupRole = "parent"

// AuthHandler bundles everything the login/refresh/logout lifecycle needs.
type AuthHandler struct {
	Cfg       config.Config
	Users     *repository.UserRepo
	Roles     *repository.RoleRepo
	Perms     *repository.PermissionRepo
	Schools   *repository.SchoolRepo
	Tokens    *auth.TokenService
	Blacklist *auth.Blacklist
	Events    *service.EventPublisher
}

func NewAuthHandler(cfg config.Config, users *repository.UserRepo, roles *repository.RoleRepo,
	perms *repository.PermissionRepo, schools *repository.SchoolRepo,
	tokens *auth.TokenService, blacklist *auth.Blacklist, events *service.EventPublisher) *AuthHandler {
	return &AuthHandler{
		Cfg: cfg, Users: users, Roles: roles, Perms: perms, Schools: schools,
		Tokens: tokens, Blacklist: blacklist, Events: events,
	}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type mobileLoginReq struct {
	Phone    string `json:"phone"`
	SchoolID uint64 `json:"school_id"`
}

type mobileRegisterReq struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	SchoolID uint64 `json:"school_id"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

// authPayload is the data block returned by login, mobile login and
// refresh: both tokens, the refreshed user record and the role's full
// permission map so a frontend can pre-render its affordances.
type authPayload struct {
	AccessToken  string                 `json:"access_token"`
	RefreshToken string                 `json:"refresh_token"`
	User         *model.User            `json:"user"`
	Permissions  []model.RolePermission `json:"permissions"`
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// issueTokens builds an access/refresh pair, persists the refresh token on
// the user row together with the login metadata, and assembles the common
// auth payload.
func (h *AuthHandler) issueTokens(ctx context.Context, c echo.Context, u *model.User, refreshTTL time.Duration) (*authPayload, error) {
	access, err := h.Tokens.CreateAccessToken(u.ID, u.RoleID, u.RoleName, h.Cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := h.Tokens.CreateRefreshToken(u.ID, refreshTTL)
	if err != nil {
		return nil, err
	}
	if err := h.Users.RecordLogin(ctx, u.ID, refresh, c.RealIP()); err != nil {
		return nil, err
	}

	fresh, err := h.Users.FindByID(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	perms, err := h.Perms.ListForRole(ctx, u.RoleID)
	if err != nil {
		return nil, err
	}
	return &authPayload{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         fresh,
		Permissions:  perms,
	}, nil
}

// Login authenticates a web user by email and password.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return Error(c, "Invalid request body", http.StatusUnprocessableEntity)
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return Error(c, "Email & Password required", http.StatusUnprocessableEntity)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.FindByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			// Same generic message as a bad password: never reveal which
			// check failed.
			return Error(c, "Invalid credentials", http.StatusUnauthorized)
		}
		logrus.WithError(err).Error("login: user lookup failed")
		return Error(c, "Error during login", http.StatusInternalServerError)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		_ = h.Users.IncrementLoginAttempts(ctx, u.ID)
		logrus.WithFields(logrus.Fields{"user_id": u.ID, "ip": c.RealIP()}).Info("login: bad password")
		return Error(c, "Invalid credentials", http.StatusUnauthorized)
	}

	payload, err := h.issueTokens(ctx, c, u, h.Cfg.RefreshTTL)
	if err != nil {
		logrus.WithError(err).Error("login: token issuance failed")
		return Error(c, "Error during login", http.StatusInternalServerError)
	}

	_ = h.Events.Publish(ctx, queue.EventLogin, u.ID, u.RoleName, c.RealIP())
	return Success(c, payload, "Login successful", http.StatusOK)
}

// Refresh rotates a refresh token: the presented token must decode, the
// user must be active and verified, and the token must exactly match the
// stored one. Rotation is a conditional swap, so a stale token loses even
// when it has not expired.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return Error(c, "refresh_token is required", http.StatusUnprocessableEntity)
	}
	presented := strings.TrimSpace(req.RefreshToken)

	claims := h.Tokens.Decode(presented)
	if claims == nil || claims.ID == 0 {
		return Error(c, "Invalid or expired refresh token", http.StatusUnauthorized)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.FindByID(ctx, claims.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return Error(c, "User not found", http.StatusNotFound)
		}
		logrus.WithError(err).Error("refresh: user lookup failed")
		return Error(c, "Error refreshing token", http.StatusInternalServerError)
	}
	if u.Status != model.StatusActive {
		return Error(c, "Account is inactive", http.StatusForbidden)
	}
	if u.IsVerified != model.VerifiedYes {
		return Error(c, "Account is not verified by admin", http.StatusForbidden)
	}

	access, err := h.Tokens.CreateAccessToken(u.ID, u.RoleID, u.RoleName, h.Cfg.AccessTTL)
	if err != nil {
		logrus.WithError(err).Error("refresh: access issuance failed")
		return Error(c, "Error refreshing token", http.StatusInternalServerError)
	}
	// The new refresh token inherits the presented token's session length,
	// so mobile sessions keep their longer window across rotations.
	next, err := h.Tokens.CreateRefreshToken(u.ID, claims.Lifetime(h.Cfg.RefreshTTL))
	if err != nil {
		logrus.WithError(err).Error("refresh: refresh issuance failed")
		return Error(c, "Error refreshing token", http.StatusInternalServerError)
	}

	swapped, err := h.Users.RotateRefreshToken(ctx, u.ID, presented, next, c.RealIP())
	if err != nil {
		logrus.WithError(err).Error("refresh: rotation failed")
		return Error(c, "Error refreshing token", http.StatusInternalServerError)
	}
	if !swapped {
		logrus.WithFields(logrus.Fields{"user_id": u.ID, "ip": c.RealIP()}).Info("refresh: token mismatch")
		return Error(c, "Refresh token mismatch", http.StatusUnauthorized)
	}

	fresh, err := h.Users.FindByID(ctx, u.ID)
	if err != nil {
		logrus.WithError(err).Error("refresh: reload failed")
		return Error(c, "Error refreshing token", http.StatusInternalServerError)
	}
	perms, err := h.Perms.ListForRole(ctx, u.RoleID)
	if err != nil {
		logrus.WithError(err).Error("refresh: permission load failed")
		return Error(c, "Error refreshing token", http.StatusInternalServerError)
	}

	_ = h.Events.Publish(ctx, queue.EventRefresh, u.ID, u.RoleName, c.RealIP())
	return Success(c, &authPayload{
		AccessToken:  access,
		RefreshToken: next,
		User:         fresh,
		Permissions:  perms,
	}, "Token refreshed successfully", http.StatusOK)
}

// Logout blacklists the presented access token for its remaining lifetime.
// Always succeeds: a missing or already-invalid token is not an error.
func (h *AuthHandler) Logout(c echo.Context) error {
	token := BearerToken(c)
	if token != "" {
		ctx, cancel := reqCtx(c)
		defer cancel()

		ttl := h.Tokens.RemainingLifetime(token, h.Cfg.AccessTTL)
		if err := h.Blacklist.Add(ctx, token, ttl); err != nil {
			logrus.WithError(err).Error("logout: blacklist write failed")
			return Error(c, "Error during logout", http.StatusInternalServerError)
		}
		if claims := h.Tokens.Decode(token); claims != nil {
			_ = h.Events.Publish(ctx, queue.EventLogout, claims.ID, claims.RoleName, c.RealIP())
		}
	}
	return Success(c, nil, "Logged out", http.StatusOK)
}

// MobileRegister creates a mobile account bound to a school. The account
// starts unverified and stays locked out of mobile login until an admin
// approves it.
func (h *AuthHandler) MobileRegister(c echo.Context) error {
	var req mobileRegisterReq
	if err := c.Bind(&req); err != nil {
		return Error(c, "Invalid request body", http.StatusUnprocessableEntity)
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Name == "" || req.Phone == "" {
		return Error(c, "Name & Phone number required", http.StatusUnprocessableEntity)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if req.SchoolID == 0 {
		return Error(c, "Invalid school_id", http.StatusUnprocessableEntity)
	}
	exists, err := h.Schools.Exists(ctx, req.SchoolID)
	if err != nil {
		logrus.WithError(err).Error("mobile register: school lookup failed")
		return Error(c, "Error creating mobile user", http.StatusInternalServerError)
	}
	if !exists {
		return Error(c, "Invalid school_id", http.StatusUnprocessableEntity)
	}

	taken, err := h.Users.PhoneTaken(ctx, req.Phone)
	if err != nil {
		logrus.WithError(err).Error("mobile register: phone lookup failed")
		return Error(c, "Error creating mobile user", http.StatusInternalServerError)
	}
	if taken {
		return Error(c, "Phone already exists", http.StatusUnprocessableEntity)
	}

	role, err := h.Roles.FindByName(ctx, mobileSignupRole)
	if err != nil {
		logrus.WithError(err).Error("mobile register: signup role missing")
		return Error(c, "Signup role not found in database", http.StatusInternalServerError)
	}

	u := &model.User{
		RoleID:     role.ID,
		SchoolID:   &req.SchoolID,
		Name:       req.Name,
		Phone:      &req.Phone,
		IsVerified: model.VerifiedNo,
		Status:     model.StatusActive,
	}
	id, err := h.Users.Create(ctx, u)
	if err != nil {
		logrus.WithError(err).Error("mobile register: insert failed")
		return Error(c, "Failed to create user", http.StatusInternalServerError)
	}

	created, err := h.Users.FindByID(ctx, id)
	if err != nil {
		logrus.WithError(err).Error("mobile register: reload failed")
		return Error(c, "Error creating mobile user", http.StatusInternalServerError)
	}

	_ = h.Events.Publish(ctx, queue.EventMobileRegister, id, role.RoleName, c.RealIP())
	return Success(c, created, "Mobile user created", http.StatusCreated)
}

// MobileLogin authenticates a mobile user by phone within a school and
// issues a full token pair with the long mobile refresh window. Unverified
// accounts are rejected until an admin approves them.
func (h *AuthHandler) MobileLogin(c echo.Context) error {
	var req mobileLoginReq
	if err := c.Bind(&req); err != nil {
		return Error(c, "Invalid request body", http.StatusUnprocessableEntity)
	}
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Phone == "" || req.SchoolID == 0 {
		return Error(c, "Phone number and school_id are required", http.StatusUnprocessableEntity)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	// The tenant is validated before any user lookup, so a bad school_id
	// is a request error, not a credential failure.
	exists, err := h.Schools.Exists(ctx, req.SchoolID)
	if err != nil {
		logrus.WithError(err).Error("mobile login: school lookup failed")
		return Error(c, "Error during mobile login", http.StatusInternalServerError)
	}
	if !exists {
		return Error(c, "Invalid school_id", http.StatusUnprocessableEntity)
	}

	u, err := h.Users.FindByPhone(ctx, req.Phone, req.SchoolID)
	if err != nil {
		if err == sql.ErrNoRows {
			return Error(c, "Invalid credentials", http.StatusUnauthorized)
		}
		logrus.WithError(err).Error("mobile login: user lookup failed")
		return Error(c, "Error during mobile login", http.StatusInternalServerError)
	}
	if u.IsVerified != model.VerifiedYes {
		return Error(c, "Your account is not approved yet. Please wait for admin approval.", http.StatusForbidden)
	}

	payload, err := h.issueTokens(ctx, c, u, h.Cfg.MobileRefreshTTL)
	if err != nil {
		logrus.WithError(err).Error("mobile login: token issuance failed")
		return Error(c, "Error during mobile login", http.StatusInternalServerError)
	}

	_ = h.Events.Publish(ctx, queue.EventMobileLogin, u.ID, u.RoleName, c.RealIP())
	return Success(c, payload, "Login successful", http.StatusOK)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. Empty string when the header is absent or malformed.
func BearerToken(c echo.Context) string {
	header := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
