package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutor-desk-api/internal/models"
	appErrors "github.com/noah-isme/tutor-desk-api/pkg/errors"
)

const upcomingLessonLimit = 5

type dashboardStudentCounter interface {
	CountByTutor(ctx context.Context, tutorID string) (int, error)
}

type dashboardLessonReader interface {
	CountRange(ctx context.Context, tutorID string, from, to time.Time) (int, error)
	ListFrom(ctx context.Context, tutorID string, from time.Time, includeCancelled bool, limit int) ([]models.Lesson, error)
}

// DashboardService aggregates the landing page summary.
type DashboardService struct {
	students dashboardStudentCounter
	lessons  dashboardLessonReader
	tutors   tutorFinder
	logger   *zap.Logger
	now      func() time.Time
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(students dashboardStudentCounter, lessons dashboardLessonReader, tutors tutorFinder, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{students: students, lessons: lessons, tutors: tutors, logger: logger, now: time.Now}
}

// Summary returns the student count, the lessons of the coming week and the next lessons.
func (s *DashboardService) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	tutor, err := resolveTutor(ctx, s.tutors)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()

	count, err := s.students.CountByTutor(ctx, tutor.UserID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count students")
	}
	week, err := s.lessons.CountRange(ctx, tutor.UserID, now, now.Add(7*24*time.Hour))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count lessons")
	}
	upcoming, err := s.lessons.ListFrom(ctx, tutor.UserID, now, false, upcomingLessonLimit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list upcoming lessons")
	}
	if upcoming == nil {
		upcoming = []models.Lesson{}
	}

	return &models.DashboardSummary{
		StudentCount:    count,
		LessonsThisWeek: week,
		UpcomingLessons: upcoming,
		GeneratedAt:     now,
	}, nil
}
