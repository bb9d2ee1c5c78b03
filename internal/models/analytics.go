package models

// StudentReportRow is the per-student display row produced by the class
// report aggregation: enrollment resolved to a profile plus a score and
// attendance pair from the scoring backend.
type StudentReportRow struct {
	StudentID  string  `json:"student_id"`
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
	Attendance float64 `json:"attendance"`
}
