package models

import "time"

// Exam is a multiple-choice exam attached to a class.
type Exam struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	Title     string    `db:"title" json:"title"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ExamQuestion is one multiple-choice question. CorrectIndex points into
// the four options; student reads replace it with -1.
type ExamQuestion struct {
	ID           string    `db:"id" json:"id"`
	ExamID       string    `db:"exam_id" json:"exam_id"`
	Text         string    `db:"text" json:"text"`
	ImageURL     *string   `db:"image_url" json:"image_url,omitempty"`
	OptionA      string    `db:"option_a" json:"option_a"`
	OptionB      string    `db:"option_b" json:"option_b"`
	OptionC      string    `db:"option_c" json:"option_c"`
	OptionD      string    `db:"option_d" json:"option_d"`
	CorrectIndex int       `db:"correct_index" json:"correct_index"`
	Position     int       `db:"position" json:"position"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ExamDetail bundles an exam with its ordered questions.
type ExamDetail struct {
	Exam
	Questions []ExamQuestion `json:"questions"`
}

// ExamFilter provides filters for listing exams.
type ExamFilter struct {
	ClassID   string
	Page      int
	PageSize  int
	SortOrder string
}
