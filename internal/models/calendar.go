package models

import "time"

// CalendarEvent is a lesson as rendered on the month calendar.
type CalendarEvent struct {
	LessonID    string       `json:"lesson_id"`
	StudentID   string       `json:"student_id"`
	StudentName string       `json:"student_name"`
	Subject     string       `json:"subject"`
	Start       time.Time    `json:"start"`
	End         time.Time    `json:"end"`
	Status      LessonStatus `json:"status"`
	IsCompleted bool         `json:"is_completed"`
	Color       LessonColor  `json:"color"`
}

// CalendarDay groups the events of one civil date.
type CalendarDay struct {
	Date   string          `json:"date"`
	Events []CalendarEvent `json:"events"`
}

// CalendarMonth is the calendar payload for a civil month.
type CalendarMonth struct {
	Year     int           `json:"year"`
	Month    int           `json:"month"`
	TimeZone string        `json:"time_zone"`
	Days     []CalendarDay `json:"days"`
}

// DashboardSummary is the landing page summary.
type DashboardSummary struct {
	StudentCount    int       `json:"student_count"`
	LessonsThisWeek int       `json:"lessons_this_week"`
	UpcomingLessons []Lesson  `json:"upcoming_lessons"`
	GeneratedAt     time.Time `json:"generated_at"`
}
