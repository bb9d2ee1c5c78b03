package models

import "time"

// Enrollment captures a student's membership in a class. Records are
// append-only: there is no un-enroll operation.
type Enrollment struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	JoinedAt  time.Time `db:"joined_at" json:"joined_at"`
}

// EnrollmentDetail enriches Enrollment with student and class info.
type EnrollmentDetail struct {
	Enrollment
	StudentName string `db:"student_name" json:"student_name"`
	ClassTitle  string `db:"class_title" json:"class_title"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	ClassID   string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
