package permission

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campusflow/school-api/internal/auth"
	"github.com/campusflow/school-api/internal/model"
)

type fakeModules struct {
	modules map[string]*model.Module
	calls   int
}

func (f *fakeModules) FindByKey(_ context.Context, key string) (*model.Module, error) {
	f.calls++
	if m, ok := f.modules[key]; ok {
		return m, nil
	}
	return nil, sql.ErrNoRows
}

type fakePerms struct {
	rows  map[uint64]*model.ModulePermission // keyed by module id
	calls int
}

func (f *fakePerms) Find(_ context.Context, roleID, moduleID uint64) (*model.ModulePermission, error) {
	f.calls++
	if p, ok := f.rows[moduleID]; ok && p.RoleID == roleID {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func newTestEngine() (*Engine, *fakeModules, *fakePerms) {
	modules := &fakeModules{modules: map[string]*model.Module{
		"students": {ID: 5, ModuleKey: "students", ModuleName: "Students"},
	}}
	perms := &fakePerms{rows: map[uint64]*model.ModulePermission{
		5: {ID: 1, RoleID: 3, ModuleID: 5, Permissions: model.Permission{Index: true, Show: true, Create: true}},
	}}
	return NewEngine(modules, perms), modules, perms
}

func teacherClaims() *auth.Claims {
	return &auth.Claims{ID: 42, RoleID: 3, RoleName: "teacher"}
}

func TestAuthorizePublicReadWithoutUser(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()

	assert.True(t, e.Authorize(ctx, NewCache(), nil, "students", "index", true))
	assert.True(t, e.Authorize(ctx, NewCache(), nil, "students", "show", true))

	// The carve-out never covers mutations.
	assert.False(t, e.Authorize(ctx, NewCache(), nil, "students", "create", true))
	assert.False(t, e.Authorize(ctx, NewCache(), nil, "students", "delete", true))
}

func TestAuthorizeDeniesWithoutUser(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()

	assert.False(t, e.Authorize(ctx, NewCache(), nil, "students", "index", false))
	assert.False(t, e.Authorize(ctx, NewCache(), &auth.Claims{ID: 1}, "students", "index", false))
}

func TestAuthorizeSuperadminBypass(t *testing.T) {
	e, modules, _ := newTestEngine()
	ctx := context.Background()
	super := &auth.Claims{ID: 1, RoleID: 1, RoleName: "superadmin"}

	assert.True(t, e.Authorize(ctx, NewCache(), super, "students", "delete", false))
	assert.True(t, e.Authorize(ctx, NewCache(), super, "no-such-module", "create", false))
	assert.Zero(t, modules.calls, "superadmin must not hit the store")

	// Case-insensitive role name match.
	super.RoleName = "SuperAdmin"
	assert.True(t, e.Authorize(ctx, NewCache(), super, "students", "update", false))
}

func TestAuthorizeMatrixEvaluation(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()
	user := teacherClaims()

	assert.True(t, e.Authorize(ctx, NewCache(), user, "students", "index", false))
	assert.True(t, e.Authorize(ctx, NewCache(), user, "students", "create", false))
	assert.False(t, e.Authorize(ctx, NewCache(), user, "students", "update", false))
	assert.False(t, e.Authorize(ctx, NewCache(), user, "students", "delete", false))
}

func TestAuthorizeViewMapsToIndex(t *testing.T) {
	e, _, _ := newTestEngine()
	assert.True(t, e.Authorize(context.Background(), NewCache(), teacherClaims(), "students", "view", false))
}

func TestAuthorizeUnknownActionDenied(t *testing.T) {
	e, _, _ := newTestEngine()
	assert.False(t, e.Authorize(context.Background(), NewCache(), teacherClaims(), "students", "export", false))
}

func TestAuthorizeMissingModuleDenied(t *testing.T) {
	e, _, _ := newTestEngine()
	assert.False(t, e.Authorize(context.Background(), NewCache(), teacherClaims(), "ghost", "index", false))
}

func TestAuthorizeMissingPermissionRowDenied(t *testing.T) {
	e, _, _ := newTestEngine()
	other := &auth.Claims{ID: 9, RoleID: 99, RoleName: "clerk"}
	assert.False(t, e.Authorize(context.Background(), NewCache(), other, "students", "index", false))
}

func TestAuthorizeCachesWithinRequest(t *testing.T) {
	e, modules, perms := newTestEngine()
	ctx := context.Background()
	user := teacherClaims()
	cache := NewCache()

	assert.True(t, e.Authorize(ctx, cache, user, "students", "index", false))
	assert.True(t, e.Authorize(ctx, cache, user, "students", "show", false))
	assert.False(t, e.Authorize(ctx, cache, user, "students", "delete", false))

	assert.Equal(t, 1, modules.calls)
	assert.Equal(t, 1, perms.calls)
}

func TestAuthorizeNilCacheStillWorks(t *testing.T) {
	e, _, _ := newTestEngine()
	assert.True(t, e.Authorize(context.Background(), nil, teacherClaims(), "students", "index", false))
}
