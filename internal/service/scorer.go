package service

import "hash/fnv"

// Scorer produces the score and attendance figures for a class report
// row. The default implementation is deterministic so the same student in
// the same class always reports the same numbers; a grading backend can be
// swapped in behind the same interface.
type Scorer interface {
	Score(classID, studentID string) (score, attendance float64)
}

// HashScorer derives stable pseudo-figures from the class and student ids.
type HashScorer struct{}

// Score maps the pair onto a 40-100 score and a 50-100 attendance
// percentage.
func (HashScorer) Score(classID, studentID string) (score, attendance float64) {
	h := fnv.New64a()
	h.Write([]byte(classID))
	h.Write([]byte{':'})
	h.Write([]byte(studentID))
	sum := h.Sum64()

	score = 40 + float64(sum%601)/10
	attendance = 50 + float64((sum>>16)%501)/10
	return score, attendance
}
