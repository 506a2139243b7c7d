package model

import "time"

// Student mirrors the 'students' table. This is the representative resource
// behind the 'students' module key; the other resource tables follow the
// same index/show/create/update/soft-delete shape.
type Student struct {
	ID              uint64    `json:"id"`
	SchoolID        uint64    `json:"school_id"`
	AdmissionNumber string    `json:"admission_number"`
	Name            string    `json:"name"`
	ClassName       string    `json:"class_name"`
	GuardianName    *string   `json:"guardian_name,omitempty"`
	GuardianPhone   *string   `json:"guardian_phone,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// School is a tenant. Mobile self-registration must reference an existing
// school.
type School struct {
	ID         uint64    `json:"id"`
	SchoolName string    `json:"school_name"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
