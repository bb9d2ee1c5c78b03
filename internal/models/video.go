package models

import "time"

// Video is an uploaded lecture recording attached to a class. URL is the
// signed download link issued by the storage layer at upload time.
type Video struct {
	ID         string    `db:"id" json:"id"`
	ClassID    string    `db:"class_id" json:"class_id"`
	Title      string    `db:"title" json:"title"`
	URL        string    `db:"url" json:"url"`
	SizeBytes  int64     `db:"size_bytes" json:"size_bytes"`
	UploadedBy string    `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// VideoFilter provides filters for listing videos.
type VideoFilter struct {
	ClassID   string
	Page      int
	PageSize  int
	SortOrder string
}
