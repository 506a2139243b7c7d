package repository

import (
	"context"
	"database/sql"

	"github.com/campusflow/school-api/internal/model"
)

type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

const roleColumns = `r.id, r.role_name, r.description, r.is_system, r.last_accessed_by, r.created_at, r.updated_at`

// List returns all non-deleted roles with their non-deleted user counts.
func (r *RoleRepo) List(ctx context.Context) ([]model.Role, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+roleColumns+`, COUNT(u.id) AS user_count
		 FROM roles r
		 LEFT JOIN users u ON u.role_id = r.id AND u.deleted_at IS NULL
		 WHERE r.deleted_at IS NULL
		 GROUP BY r.id ORDER BY r.id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.RoleName, &role.Description, &role.IsSystem,
			&role.LastAccessedBy, &role.CreatedAt, &role.UpdatedAt, &role.UserCount); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// FindByID fetches a non-deleted role with its user count.
func (r *RoleRepo) FindByID(ctx context.Context, id uint64) (*model.Role, error) {
	var role model.Role
	err := r.DB.QueryRowContext(ctx,
		`SELECT `+roleColumns+`, COUNT(u.id) AS user_count
		 FROM roles r
		 LEFT JOIN users u ON u.role_id = r.id AND u.deleted_at IS NULL
		 WHERE r.id=? AND r.deleted_at IS NULL
		 GROUP BY r.id LIMIT 1`, id).
		Scan(&role.ID, &role.RoleName, &role.Description, &role.IsSystem,
			&role.LastAccessedBy, &role.CreatedAt, &role.UpdatedAt, &role.UserCount)
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// FindByName fetches a non-deleted role by its unique name.
func (r *RoleRepo) FindByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	err := r.DB.QueryRowContext(ctx,
		`SELECT `+roleColumns+` FROM roles r
		 WHERE r.role_name=? AND r.deleted_at IS NULL LIMIT 1`, name).
		Scan(&role.ID, &role.RoleName, &role.Description, &role.IsSystem,
			&role.LastAccessedBy, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// NameTaken reports whether another non-deleted role owns the name.
func (r *RoleRepo) NameTaken(ctx context.Context, name string, excludeID uint64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM roles WHERE role_name=? AND id<>? AND deleted_at IS NULL`,
		name, excludeID).Scan(&n)
	return n > 0, err
}

// Create inserts a role and returns its id.
func (r *RoleRepo) Create(ctx context.Context, name string, description *string, actorID *uint64) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO roles (role_name, description, last_accessed_by) VALUES (?,?,?)`,
		name, description, actorID)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrRoleExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// Update writes name/description and the audit pointer.
func (r *RoleRepo) Update(ctx context.Context, id uint64, name string, description *string, actorID *uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE roles SET role_name=?, description=?, last_accessed_by=?, updated_at=NOW()
		 WHERE id=? AND deleted_at IS NULL`,
		name, description, actorID, id)
	return err
}

// SoftDelete marks the role deleted and records who removed it.
func (r *RoleRepo) SoftDelete(ctx context.Context, id uint64, actorID *uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE roles SET deleted_at=NOW(), last_accessed_by=? WHERE id=? AND deleted_at IS NULL`,
		actorID, id)
	return err
}
