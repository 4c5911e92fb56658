package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Student is a student profile joined with its owning user row.
type Student struct {
	ID            string         `db:"id" json:"id"`
	UserID        string         `db:"user_id" json:"user_id"`
	TutorID       string         `db:"tutor_id" json:"tutor_id"`
	Name          string         `db:"name" json:"name"`
	Email         string         `db:"email" json:"email"`
	School        string         `db:"school" json:"school"`
	Grade         string         `db:"grade" json:"grade"`
	Subjects      string         `db:"subjects" json:"subjects"`
	ParentName    string         `db:"parent_name" json:"parent_name"`
	ParentPhone   string         `db:"parent_phone" json:"parent_phone"`
	LocationURL   string         `db:"location_url" json:"location_url"`
	FixedSchedule types.JSONText `db:"fixed_schedule" json:"fixed_schedule"`
	LessonCount   int            `db:"lesson_count" json:"lesson_count"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// FixedScheduleSlot is the recurring slot descriptor stored on a student. It only records the
// parameters of the last generate call and is never derived from lessons.
type FixedScheduleSlot struct {
	Day      int    `json:"day"`
	Time     string `json:"time"`
	Duration int    `json:"duration"`
	Subject  string `json:"subject"`
}

// Slots decodes the stored fixed schedule descriptor.
func (s Student) Slots() ([]FixedScheduleSlot, error) {
	if len(s.FixedSchedule) == 0 {
		return []FixedScheduleSlot{}, nil
	}
	var slots []FixedScheduleSlot
	if err := json.Unmarshal(s.FixedSchedule, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// EncodeFixedSchedule builds the descriptor column value for a single slot.
func EncodeFixedSchedule(slot FixedScheduleSlot) (types.JSONText, error) {
	raw, err := json.Marshal([]FixedScheduleSlot{slot})
	if err != nil {
		return nil, err
	}
	return types.JSONText(raw), nil
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search   string
	Page     int
	PageSize int
}

// StudentDetail is the student page payload.
type StudentDetail struct {
	Student
	Schedule      []FixedScheduleSlot `json:"schedule"`
	RecentLessons []Lesson            `json:"recent_lessons"`
	RecentExams   []Exam              `json:"recent_exams"`
}
