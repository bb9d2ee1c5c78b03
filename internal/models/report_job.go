package models

import "time"

// ReportFormat enumerates supported export formats.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportStatus captures background job lifecycle states.
type ReportStatus string

const (
	ReportStatusQueued     ReportStatus = "QUEUED"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusFinished   ReportStatus = "FINISHED"
	ReportStatusFailed     ReportStatus = "FAILED"
)

// ReportJob is a persisted class-report export job. The export runs on the
// background queue and the finished file is served through a signed URL.
type ReportJob struct {
	ID           string       `db:"id" json:"id"`
	ClassID      string       `db:"class_id" json:"class_id"`
	Format       ReportFormat `db:"format" json:"format"`
	Status       ReportStatus `db:"status" json:"status"`
	ResultURL    *string      `db:"result_url" json:"result_url,omitempty"`
	FilePath     *string      `db:"file_path" json:"-"`
	RequestedBy  string       `db:"requested_by" json:"requested_by"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time   `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage *string      `db:"error_message" json:"error_message,omitempty"`
}
