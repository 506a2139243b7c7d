package repository

import (
	"context"
	"database/sql"

	"github.com/campusflow/school-api/internal/model"
)

// PermissionRepo persists the role → module permission matrix. One
// non-deleted row per (role_id, module_id) pair, enforced by a unique index
// and upsert-style writes. The permission object travels as a typed struct
// and is encoded to JSON only at this boundary.
type PermissionRepo struct{ DB *sql.DB }

func NewPermissionRepo(db *sql.DB) *PermissionRepo { return &PermissionRepo{DB: db} }

// ListForRole returns the role's permission rows joined with module
// identity, the payload handed to clients at login.
func (r *PermissionRepo) ListForRole(ctx context.Context, roleID uint64) ([]model.RolePermission, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT mp.id, mp.role_id, mp.module_id, mp.permissions_json, mp.status,
		        mp.last_accessed_by, mp.created_at, mp.updated_at,
		        m.module_key, m.module_name
		 FROM module_permissions mp
		 LEFT JOIN modules m ON m.id = mp.module_id
		 WHERE mp.role_id=? AND mp.deleted_at IS NULL
		 ORDER BY m.module_name ASC`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []model.RolePermission
	for rows.Next() {
		var (
			p   model.RolePermission
			raw []byte
		)
		if err := rows.Scan(&p.ID, &p.RoleID, &p.ModuleID, &raw, &p.Status,
			&p.LastAccessedBy, &p.CreatedAt, &p.UpdatedAt, &p.ModuleKey, &p.ModuleName); err != nil {
			return nil, err
		}
		// Malformed rows decode to all-false rather than failing the listing.
		p.Permissions, _ = model.DecodePermission(raw)
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// MapForRole returns module_id → permission set for bulk consumption.
func (r *PermissionRepo) MapForRole(ctx context.Context, roleID uint64) (map[uint64]model.Permission, error) {
	rows, err := r.ListForRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	m := make(map[uint64]model.Permission, len(rows))
	for _, p := range rows {
		m[p.ModuleID] = p.Permissions
	}
	return m, nil
}

// Find returns the unique non-deleted row for (role, module).
func (r *PermissionRepo) Find(ctx context.Context, roleID, moduleID uint64) (*model.ModulePermission, error) {
	var (
		p   model.ModulePermission
		raw []byte
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, role_id, module_id, permissions_json, status, last_accessed_by, created_at, updated_at
		 FROM module_permissions
		 WHERE role_id=? AND module_id=? AND deleted_at IS NULL LIMIT 1`,
		roleID, moduleID).
		Scan(&p.ID, &p.RoleID, &p.ModuleID, &raw, &p.Status, &p.LastAccessedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Permissions, err = model.DecodePermission(raw)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByID returns a non-deleted row by primary key.
func (r *PermissionRepo) FindByID(ctx context.Context, id uint64) (*model.ModulePermission, error) {
	var (
		p   model.ModulePermission
		raw []byte
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, role_id, module_id, permissions_json, status, last_accessed_by, created_at, updated_at
		 FROM module_permissions
		 WHERE id=? AND deleted_at IS NULL LIMIT 1`, id).
		Scan(&p.ID, &p.RoleID, &p.ModuleID, &raw, &p.Status, &p.LastAccessedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Permissions, _ = model.DecodePermission(raw)
	return &p, nil
}

// Upsert writes the (role, module) permission row in one atomic statement.
// A new pair inserts; an existing pair, soft-deleted or not, updates in
// place and comes back alive. Two concurrent saves for the same pair both
// land on the same row instead of one dying on the unique index.
func (r *PermissionRepo) Upsert(ctx context.Context, roleID, moduleID uint64, perms model.Permission, status string, actorID *uint64) (uint64, error) {
	raw, err := perms.Encode()
	if err != nil {
		return 0, err
	}
	if status == "" {
		status = model.StatusActive
	}

	// id=LAST_INSERT_ID(id) makes LastInsertId return the row id on the
	// update path too.
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO module_permissions (role_id, module_id, permissions_json, status, last_accessed_by)
		 VALUES (?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE
		   id=LAST_INSERT_ID(id), permissions_json=VALUES(permissions_json),
		   status=VALUES(status), last_accessed_by=VALUES(last_accessed_by),
		   deleted_at=NULL, updated_at=NOW()`,
		roleID, moduleID, raw, status, actorID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// SoftDelete marks a permission row deleted.
func (r *PermissionRepo) SoftDelete(ctx context.Context, id uint64, actorID *uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE module_permissions SET deleted_at=NOW(), last_accessed_by=? WHERE id=? AND deleted_at IS NULL`,
		actorID, id)
	return err
}
