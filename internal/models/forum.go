package models

import "time"

// ForumPost is a message on the class forum.
type ForumPost struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ForumPostDetail enriches a post with the author's display name.
type ForumPostDetail struct {
	ForumPost
	AuthorName string `db:"author_name" json:"author_name"`
}

// ForumFilter provides filters for listing forum posts.
type ForumFilter struct {
	ClassID   string
	Page      int
	PageSize  int
	SortOrder string
}
