package repository

import (
	"context"
	"database/sql"

	"github.com/campusflow/school-api/internal/model"
)

// StudentRepo backs the 'students' module, the representative resource
// behind the permission matrix. The remaining school resources follow the
// same shape.
type StudentRepo struct{ DB *sql.DB }

func NewStudentRepo(db *sql.DB) *StudentRepo { return &StudentRepo{DB: db} }

const studentColumns = `id, school_id, admission_number, name, class_name,
	guardian_name, guardian_phone, status, created_at, updated_at`

// List returns non-deleted students, newest first.
func (r *StudentRepo) List(ctx context.Context) ([]model.Student, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE deleted_at IS NULL ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		var s model.Student
		if err := rows.Scan(&s.ID, &s.SchoolID, &s.AdmissionNumber, &s.Name, &s.ClassName,
			&s.GuardianName, &s.GuardianPhone, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// FindByID fetches a non-deleted student.
func (r *StudentRepo) FindByID(ctx context.Context, id uint64) (*model.Student, error) {
	var s model.Student
	err := r.DB.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id=? AND deleted_at IS NULL LIMIT 1`, id).
		Scan(&s.ID, &s.SchoolID, &s.AdmissionNumber, &s.Name, &s.ClassName,
			&s.GuardianName, &s.GuardianPhone, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a student and returns its id.
func (r *StudentRepo) Create(ctx context.Context, s *model.Student) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO students (school_id, admission_number, name, class_name, guardian_name, guardian_phone, status)
		 VALUES (?,?,?,?,?,?,?)`,
		s.SchoolID, s.AdmissionNumber, s.Name, s.ClassName, s.GuardianName, s.GuardianPhone, s.Status)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// Update writes the mutable fields.
func (r *StudentRepo) Update(ctx context.Context, s *model.Student) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE students SET school_id=?, admission_number=?, name=?, class_name=?,
		        guardian_name=?, guardian_phone=?, status=?, updated_at=NOW()
		 WHERE id=? AND deleted_at IS NULL`,
		s.SchoolID, s.AdmissionNumber, s.Name, s.ClassName,
		s.GuardianName, s.GuardianPhone, s.Status, s.ID)
	return err
}

// SoftDelete marks the student deleted.
func (r *StudentRepo) SoftDelete(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE students SET deleted_at=NOW() WHERE id=? AND deleted_at IS NULL`, id)
	return err
}

// SchoolRepo exposes the tenant lookups the auth flows need.
type SchoolRepo struct{ DB *sql.DB }

func NewSchoolRepo(db *sql.DB) *SchoolRepo { return &SchoolRepo{DB: db} }

// Exists reports whether a non-deleted school with the id exists.
func (r *SchoolRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schools WHERE id=? AND deleted_at IS NULL`, id).Scan(&n)
	return n > 0, err
}
