package database

import (
	"context"
	"database/sql"

	"github.com/sirupsen/logrus"

	"github.com/campusflow/school-api/internal/model"
	"github.com/campusflow/school-api/internal/utils"
)

// System modules shipped with the application. Their keys are immutable and
// the rows cannot be deleted through the API.
var systemModules = map[string]string{
	"users":              "Users",
	"roles":              "Roles",
	"modules":            "Modules",
	"module_permissions": "Module Permissions",
	"students":           "Students",
}

const (
	seedSuperadminEmail    = "superadmin@campusflow.local"
	seedSuperadminPassword = "Super@1234" // change on first login
)

// Seed inserts the superadmin role, the superadmin user and the system
// modules when missing. Safe to run on every startup.
func Seed(ctx context.Context, db *sql.DB, bcryptCost int) error {
	roleID, err := seedSuperadminRole(ctx, db)
	if err != nil {
		return err
	}
	if err := seedSuperadminUser(ctx, db, roleID, bcryptCost); err != nil {
		return err
	}
	return seedSystemModules(ctx, db)
}

func seedSuperadminRole(ctx context.Context, db *sql.DB) (uint64, error) {
	var id uint64
	err := db.QueryRowContext(ctx,
		`SELECT id FROM roles WHERE role_name=? AND deleted_at IS NULL LIMIT 1`,
		model.SuperadminRole).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO roles (role_name, description, is_system) VALUES (?,?,1)`,
		model.SuperadminRole, "System administrator with full access to all modules")
	if err != nil {
		return 0, err
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	logrus.WithField("role", model.SuperadminRole).Info("seed: role created")
	return uint64(newID), nil
}

func seedSuperadminUser(ctx context.Context, db *sql.DB, roleID uint64, bcryptCost int) error {
	var n int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE email=? AND deleted_at IS NULL`,
		seedSuperadminEmail).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	hash, err := utils.HashPassword(seedSuperadminPassword, bcryptCost)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO users (role_id, name, email, password, is_verified, status)
		 VALUES (?,?,?,?,?,?)`,
		roleID, "Superadmin", seedSuperadminEmail, hash, model.VerifiedYes, model.StatusActive)
	if err != nil {
		return err
	}
	logrus.WithField("email", seedSuperadminEmail).Info("seed: superadmin user created")
	return nil
}

func seedSystemModules(ctx context.Context, db *sql.DB) error {
	for key, name := range systemModules {
		var n int
		if err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM modules WHERE module_key=? AND deleted_at IS NULL`, key).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO modules (module_key, module_name, is_system, status) VALUES (?,?,1,?)`,
			key, name, model.StatusActive); err != nil {
			return err
		}
		logrus.WithField("module", key).Info("seed: module created")
	}
	return nil
}
