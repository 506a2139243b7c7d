package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/campusflow/school-api/internal/model"
)

type ModuleRepo struct{ DB *sql.DB }

func NewModuleRepo(db *sql.DB) *ModuleRepo { return &ModuleRepo{DB: db} }

const moduleColumns = `id, module_key, module_name, is_system, status, created_at, updated_at`

// List returns non-deleted modules, optionally filtered by status.
func (r *ModuleRepo) List(ctx context.Context, status string) ([]model.Module, error) {
	q := `SELECT ` + moduleColumns + ` FROM modules WHERE deleted_at IS NULL`
	args := []interface{}{}
	if status != "" {
		q += ` AND status=?`
		args = append(args, status)
	}
	q += ` ORDER BY id ASC`

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var modules []model.Module
	for rows.Next() {
		var m model.Module
		if err := rows.Scan(&m.ID, &m.ModuleKey, &m.ModuleName, &m.IsSystem,
			&m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

// FindByID fetches a non-deleted module by id.
func (r *ModuleRepo) FindByID(ctx context.Context, id uint64) (*model.Module, error) {
	var m model.Module
	err := r.DB.QueryRowContext(ctx,
		`SELECT `+moduleColumns+` FROM modules WHERE id=? AND deleted_at IS NULL LIMIT 1`, id).
		Scan(&m.ID, &m.ModuleKey, &m.ModuleName, &m.IsSystem, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// FindByKey fetches a non-deleted module by its machine key.
func (r *ModuleRepo) FindByKey(ctx context.Context, key string) (*model.Module, error) {
	var m model.Module
	err := r.DB.QueryRowContext(ctx,
		`SELECT `+moduleColumns+` FROM modules WHERE module_key=? AND deleted_at IS NULL LIMIT 1`,
		strings.ToLower(strings.TrimSpace(key))).
		Scan(&m.ID, &m.ModuleKey, &m.ModuleName, &m.IsSystem, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// KeyTaken reports whether another non-deleted module owns the key.
func (r *ModuleRepo) KeyTaken(ctx context.Context, key string, excludeID uint64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM modules WHERE module_key=? AND id<>? AND deleted_at IS NULL`,
		strings.ToLower(strings.TrimSpace(key)), excludeID).Scan(&n)
	return n > 0, err
}

// Create inserts a module; keys are stored lowercased.
func (r *ModuleRepo) Create(ctx context.Context, key, name, status string) (uint64, error) {
	if status == "" {
		status = model.StatusActive
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO modules (module_key, module_name, status) VALUES (?,?,?)`,
		strings.ToLower(strings.TrimSpace(key)), name, status)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrKeyExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// Update writes key/name/status. Callers must keep system module keys
// unchanged; the repository enforces nothing beyond the row filter.
func (r *ModuleRepo) Update(ctx context.Context, m *model.Module) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE modules SET module_key=?, module_name=?, status=?, updated_at=NOW()
		 WHERE id=? AND deleted_at IS NULL`,
		strings.ToLower(strings.TrimSpace(m.ModuleKey)), m.ModuleName, m.Status, m.ID)
	return err
}

// SoftDelete marks the module deleted.
func (r *ModuleRepo) SoftDelete(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE modules SET deleted_at=NOW() WHERE id=? AND deleted_at IS NULL`, id)
	return err
}
