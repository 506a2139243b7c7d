package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/campusflow/school-api/internal/model"
)

// UserRepo is the credential store. All lookups exclude soft-deleted rows
// and join the role name so token issuance never needs a second query.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `u.id, u.role_id, COALESCE(r.role_name,''), u.school_id, u.name,
	u.email, u.phone, u.password, u.last_login, u.last_ip, u.login_attempts,
	u.is_verified, u.refresh_token, u.status, u.created_at, u.updated_at`

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.RoleID, &u.RoleName, &u.SchoolID, &u.Name,
		&u.Email, &u.Phone, &u.PasswordHash, &u.LastLogin, &u.LastIP, &u.LoginAttempts,
		&u.IsVerified, &u.RefreshToken, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByEmail fetches a non-deleted user by normalized email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u
		 LEFT JOIN roles r ON r.id = u.role_id
		 WHERE u.email=? AND u.deleted_at IS NULL LIMIT 1`, email))
}

// FindByPhone fetches a non-deleted user by phone within a school.
func (r *UserRepo) FindByPhone(ctx context.Context, phone string, schoolID uint64) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u
		 LEFT JOIN roles r ON r.id = u.role_id
		 WHERE u.phone=? AND u.school_id=? AND u.deleted_at IS NULL LIMIT 1`, phone, schoolID))
}

// FindByID fetches a non-deleted user by id.
func (r *UserRepo) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u
		 LEFT JOIN roles r ON r.id = u.role_id
		 WHERE u.id=? AND u.deleted_at IS NULL LIMIT 1`, id))
}

// List returns all non-deleted users, newest first.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users u
		 LEFT JOIN roles r ON r.id = u.role_id
		 WHERE u.deleted_at IS NULL ORDER BY u.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.RoleID, &u.RoleName, &u.SchoolID, &u.Name,
			&u.Email, &u.Phone, &u.PasswordHash, &u.LastLogin, &u.LastIP, &u.LoginAttempts,
			&u.IsVerified, &u.RefreshToken, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Create inserts a user and returns its id.
func (r *UserRepo) Create(ctx context.Context, u *model.User) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (role_id, school_id, name, email, phone, password, is_verified, status)
		 VALUES (?,?,?,?,?,?,?,?)`,
		u.RoleID, u.SchoolID, u.Name, u.Email, u.Phone, u.PasswordHash, u.IsVerified, u.Status)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// Update writes the mutable profile fields.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET role_id=?, school_id=?, name=?, email=?, phone=?, is_verified=?, status=?, updated_at=NOW()
		 WHERE id=? AND deleted_at IS NULL`,
		u.RoleID, u.SchoolID, u.Name, u.Email, u.Phone, u.IsVerified, u.Status, u.ID)
	return err
}

// SoftDelete marks the user deleted; the row stays for history.
func (r *UserRepo) SoftDelete(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET deleted_at=NOW() WHERE id=? AND deleted_at IS NULL`, id)
	return err
}

// EmailTaken reports whether another non-deleted user owns the email.
func (r *UserRepo) EmailTaken(ctx context.Context, email string, excludeID uint64) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE email=? AND id<>? AND deleted_at IS NULL`,
		email, excludeID).Scan(&n)
	return n > 0, err
}

// PhoneTaken reports whether any non-deleted user owns the phone.
func (r *UserRepo) PhoneTaken(ctx context.Context, phone string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE phone=? AND deleted_at IS NULL`, phone).Scan(&n)
	return n > 0, err
}

// CountByRole counts non-deleted users holding the role. Used by the role
// deletion guard.
func (r *UserRepo) CountByRole(ctx context.Context, roleID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role_id=? AND deleted_at IS NULL`, roleID).Scan(&n)
	return n, err
}

// RecordLogin stores the freshly issued refresh token together with the
// login metadata and clears the failed-attempt counter.
func (r *UserRepo) RecordLogin(ctx context.Context, id uint64, refreshToken, ip string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET refresh_token=?, last_login=NOW(), last_ip=?, login_attempts=0, updated_at=NOW()
		 WHERE id=? AND deleted_at IS NULL`, refreshToken, ip, id)
	return err
}

// RotateRefreshToken swaps the stored refresh token only if it still equals
// the presented one. The conditional WHERE makes rotation a compare-and-swap:
// of two concurrent refresh calls exactly one can win.
func (r *UserRepo) RotateRefreshToken(ctx context.Context, id uint64, presented, next, ip string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET refresh_token=?, last_login=NOW(), last_ip=?, updated_at=NOW()
		 WHERE id=? AND refresh_token=? AND deleted_at IS NULL`,
		next, ip, id, presented)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// IncrementLoginAttempts bumps the failed-attempt counter after a bad
// password.
func (r *UserRepo) IncrementLoginAttempts(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET login_attempts=login_attempts+1 WHERE id=? AND deleted_at IS NULL`, id)
	return err
}
