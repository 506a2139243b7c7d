package handler

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/campusflow/school-api/internal/model"
	"github.com/campusflow/school-api/internal/permission"
	"github.com/campusflow/school-api/internal/repository"
)

const moduleStudents = "students"

// StudentHandler is the representative gated resource. Reads are open to
// unauthenticated callers, mutations go through the permission matrix.
type StudentHandler struct {
	Students *repository.StudentRepo
	Schools  *repository.SchoolRepo
	Engine   *permission.Engine
}

func NewStudentHandler(students *repository.StudentRepo, schools *repository.SchoolRepo, engine *permission.Engine) *StudentHandler {
	return &StudentHandler{Students: students, Schools: schools, Engine: engine}
}

type studentReq struct {
	SchoolID        uint64  `json:"school_id"`
	AdmissionNumber string  `json:"admission_number"`
	Name            string  `json:"name"`
	ClassName       string  `json:"class_name"`
	GuardianName    *string `json:"guardian_name"`
	GuardianPhone   *string `json:"guardian_phone"`
	Status          string  `json:"status"`
}

// Index lists students.
func (h *StudentHandler) Index(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if !h.Engine.Authorize(ctx, PermCache(c), CurrentUser(c), moduleStudents, "index", true) {
		return PermissionDenied(c, moduleStudents, "index")
	}

	students, err := h.Students.List(ctx)
	if err != nil {
		logrus.WithError(err).Error("students: list failed")
		return Error(c, "Failed to fetch students", http.StatusInternalServerError)
	}
	return Success(c, echo.Map{"count": len(students), "data": students}, "Students fetched successfully", http.StatusOK)
}

// Show returns one student.
func (h *StudentHandler) Show(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if !h.Engine.Authorize(ctx, PermCache(c), CurrentUser(c), moduleStudents, "show", true) {
		return PermissionDenied(c, moduleStudents, "show")
	}

	id, err := pathID(c)
	if err != nil {
		return Error(c, "Invalid id", http.StatusUnprocessableEntity)
	}
	s, err := h.Students.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return Error(c, "Student not found", http.StatusNotFound)
		}
		logrus.WithError(err).Error("students: show failed")
		return Error(c, "Failed to fetch student", http.StatusInternalServerError)
	}
	return Success(c, s, "Student fetched successfully", http.StatusOK)
}

// Create admits a student into an existing school.
func (h *StudentHandler) Create(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if !h.Engine.Authorize(ctx, PermCache(c), CurrentUser(c), moduleStudents, "create", false) {
		return PermissionDenied(c, moduleStudents, "create")
	}

	var req studentReq
	if err := c.Bind(&req); err != nil {
		return Error(c, "Invalid request body", http.StatusUnprocessableEntity)
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.SchoolID == 0 || req.Name == "" {
		return Error(c, "school_id and name are required", http.StatusUnprocessableEntity)
	}

	exists, err := h.Schools.Exists(ctx, req.SchoolID)
	if err != nil {
		logrus.WithError(err).Error("students: school check failed")
		return Error(c, "Server error while creating student", http.StatusInternalServerError)
	}
	if !exists {
		return Error(c, "Invalid school_id", http.StatusUnprocessableEntity)
	}

	s := &model.Student{
		SchoolID:        req.SchoolID,
		AdmissionNumber: strings.TrimSpace(req.AdmissionNumber),
		Name:            req.Name,
		ClassName:       strings.TrimSpace(req.ClassName),
		GuardianName:    req.GuardianName,
		GuardianPhone:   req.GuardianPhone,
		Status:          orDefault(req.Status, model.StatusActive),
	}
	id, err := h.Students.Create(ctx, s)
	if err != nil {
		logrus.WithError(err).Error("students: insert failed")
		return Error(c, "Failed to create student", http.StatusInternalServerError)
	}

	created, err := h.Students.FindByID(ctx, id)
	if err != nil {
		logrus.WithError(err).Error("students: reload failed")
		return Error(c, "Server error while creating student", http.StatusInternalServerError)
	}
	return Success(c, created, "Student created successfully", http.StatusCreated)
}

// Update edits a student's mutable fields.
func (h *StudentHandler) Update(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if !h.Engine.Authorize(ctx, PermCache(c), CurrentUser(c), moduleStudents, "update", false) {
		return PermissionDenied(c, moduleStudents, "update")
	}

	id, err := pathID(c)
	if err != nil {
		return Error(c, "Invalid id", http.StatusUnprocessableEntity)
	}
	s, err := h.Students.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return Error(c, "Student not found", http.StatusNotFound)
		}
		logrus.WithError(err).Error("students: lookup failed")
		return Error(c, "Server error while updating student", http.StatusInternalServerError)
	}

	var req studentReq
	if err := c.Bind(&req); err != nil {
		return Error(c, "Invalid request body", http.StatusUnprocessableEntity)
	}
	if req.SchoolID != 0 && req.SchoolID != s.SchoolID {
		exists, err := h.Schools.Exists(ctx, req.SchoolID)
		if err != nil {
			logrus.WithError(err).Error("students: school check failed")
			return Error(c, "Server error while updating student", http.StatusInternalServerError)
		}
		if !exists {
			return Error(c, "Invalid school_id", http.StatusUnprocessableEntity)
		}
		s.SchoolID = req.SchoolID
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		s.Name = name
	}
	if num := strings.TrimSpace(req.AdmissionNumber); num != "" {
		s.AdmissionNumber = num
	}
	if class := strings.TrimSpace(req.ClassName); class != "" {
		s.ClassName = class
	}
	if req.GuardianName != nil {
		s.GuardianName = req.GuardianName
	}
	if req.GuardianPhone != nil {
		s.GuardianPhone = req.GuardianPhone
	}
	if req.Status != "" {
		s.Status = req.Status
	}

	if err := h.Students.Update(ctx, s); err != nil {
		logrus.WithError(err).Error("students: update failed")
		return Error(c, "Server error while updating student", http.StatusInternalServerError)
	}
	return Success(c, s, "Student updated successfully", http.StatusOK)
}

// Delete soft-deletes a student.
func (h *StudentHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if !h.Engine.Authorize(ctx, PermCache(c), CurrentUser(c), moduleStudents, "delete", false) {
		return PermissionDenied(c, moduleStudents, "delete")
	}

	id, err := pathID(c)
	if err != nil {
		return Error(c, "Invalid id", http.StatusUnprocessableEntity)
	}
	if _, err := h.Students.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return Error(c, "Student not found", http.StatusNotFound)
		}
		logrus.WithError(err).Error("students: lookup failed")
		return Error(c, "Failed to delete student", http.StatusInternalServerError)
	}

	if err := h.Students.SoftDelete(ctx, id); err != nil {
		logrus.WithError(err).Error("students: delete failed")
		return Error(c, "Failed to delete student", http.StatusInternalServerError)
	}
	return Success(c, echo.Map{"id": id}, "Student deleted successfully", http.StatusOK)
}
