package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// LessonStatus is the course-change state of a lesson.
type LessonStatus string

const (
	LessonStatusNormal      LessonStatus = "NORMAL"
	LessonStatusCancelled   LessonStatus = "CANCELLED"
	LessonStatusRescheduled LessonStatus = "RESCHEDULED"
)

// Valid reports whether s is a known status.
func (s LessonStatus) Valid() bool {
	switch s {
	case LessonStatusNormal, LessonStatusCancelled, LessonStatusRescheduled:
		return true
	}
	return false
}

// CanTransitionTo reports whether a course change may move a lesson from s to next.
// CANCELLED is terminal; a rescheduled lesson may be rescheduled again or cancelled.
func (s LessonStatus) CanTransitionTo(next LessonStatus) bool {
	if s == LessonStatusCancelled {
		return false
	}
	return next == LessonStatusCancelled || next == LessonStatusRescheduled
}

// EmptyTags is the tags value of a lesson nobody has annotated yet.
var EmptyTags = types.JSONText(`[]`)

// Lesson is one scheduled or completed tutoring session.
type Lesson struct {
	ID            string         `db:"id" json:"id"`
	TutorID       string         `db:"tutor_id" json:"tutor_id"`
	StudentID     string         `db:"student_id" json:"student_id"`
	StudentName   string         `db:"student_name" json:"student_name,omitempty"`
	Subject       string         `db:"subject" json:"subject"`
	StartTime     time.Time      `db:"start_time" json:"start_time"`
	EndTime       time.Time      `db:"end_time" json:"end_time"`
	Status        LessonStatus   `db:"status" json:"status"`
	IsCompleted   bool           `db:"is_completed" json:"is_completed"`
	Content       *string        `db:"content" json:"content,omitempty"`
	Homework      *string        `db:"homework" json:"homework,omitempty"`
	NextExamScope *string        `db:"next_exam_scope" json:"next_exam_scope,omitempty"`
	Note          *string        `db:"note" json:"note,omitempty"`
	Tags          types.JSONText `db:"tags" json:"tags"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// LessonColor is the calendar classification of a lesson.
type LessonColor string

const (
	LessonColorGreen LessonColor = "green"
	LessonColorBlue  LessonColor = "blue"
	LessonColorRed   LessonColor = "red"
)

// Color classifies l relative to now: completed lessons are green, pending future lessons blue
// and pending lessons that already started red.
func (l Lesson) Color(now time.Time) LessonColor {
	switch {
	case l.IsCompleted:
		return LessonColorGreen
	case l.StartTime.After(now):
		return LessonColorBlue
	default:
		return LessonColorRed
	}
}

// LessonRecordFilter narrows the completed lesson record listing.
type LessonRecordFilter struct {
	StudentID string
	Page      int
	PageSize  int
}
