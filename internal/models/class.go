package models

import "time"

// Class represents a teacher-owned class. OwnerID is immutable after
// creation; IsLive is mutated only by the live session service so the flag
// stays consistent with the presence of a session record.
type Class struct {
	ID          string    `db:"id" json:"id"`
	OwnerID     string    `db:"owner_id" json:"owner_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	AccessCode  string    `db:"access_code" json:"access_code,omitempty"`
	IsLive      bool      `db:"is_live" json:"is_live"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ClassDetail extends Class with the owner's display name.
type ClassDetail struct {
	Class
	OwnerName string `db:"owner_name" json:"owner_name"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	OwnerID   string
	StudentID string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
