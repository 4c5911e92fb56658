package models

import "time"

// Exam is an exam result recorded for a student. Score stays nil until graded.
type Exam struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Title     string    `db:"title" json:"title"`
	Date      time.Time `db:"exam_date" json:"date"`
	Range     string    `db:"exam_range" json:"range"`
	Score     *int      `db:"score" json:"score,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
