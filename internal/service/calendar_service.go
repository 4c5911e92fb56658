package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutor-desk-api/internal/models"
	appErrors "github.com/noah-isme/tutor-desk-api/pkg/errors"
)

type calendarLessonReader interface {
	ListRange(ctx context.Context, tutorID string, from, to time.Time) ([]models.Lesson, error)
}

// CalendarService renders month views of non-cancelled lessons.
type CalendarService struct {
	lessons  calendarLessonReader
	tutors   tutorFinder
	cache    *CacheService
	logger   *zap.Logger
	location *time.Location
	cacheTTL time.Duration
	now      func() time.Time
}

// NewCalendarService constructs a CalendarService. Months are civil months in loc.
func NewCalendarService(lessons calendarLessonReader, tutors tutorFinder, cache *CacheService, logger *zap.Logger, loc *time.Location, cacheTTL time.Duration) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CalendarService{lessons: lessons, tutors: tutors, cache: cache, logger: logger, location: loc, cacheTTL: cacheTTL, now: time.Now}
}

// Month returns every day of the civil month with its lessons. Zero year or month select the current
// one. The boolean reports whether the lessons came from cache.
func (s *CalendarService) Month(ctx context.Context, year, month int) (*models.CalendarMonth, bool, error) {
	now := s.now().In(s.location)
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	if month < 1 || month > 12 {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}

	tutor, err := resolveTutor(ctx, s.tutors)
	if err != nil {
		return nil, false, err
	}

	lessons, hit, err := s.monthLessons(ctx, tutor.UserID, year, month)
	if err != nil {
		return nil, false, err
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.location)
	last := first.AddDate(0, 1, -1).Day()
	byDay := make(map[int][]models.CalendarEvent, last)
	for _, lesson := range lessons {
		local := lesson.StartTime.In(s.location)
		byDay[local.Day()] = append(byDay[local.Day()], models.CalendarEvent{
			LessonID:    lesson.ID,
			StudentID:   lesson.StudentID,
			StudentName: lesson.StudentName,
			Subject:     lesson.Subject,
			Start:       lesson.StartTime,
			End:         lesson.EndTime,
			Status:      lesson.Status,
			IsCompleted: lesson.IsCompleted,
			Color:       lesson.Color(now),
		})
	}

	days := make([]models.CalendarDay, 0, last)
	for d := 1; d <= last; d++ {
		events := byDay[d]
		if events == nil {
			events = []models.CalendarEvent{}
		}
		days = append(days, models.CalendarDay{
			Date:   time.Date(year, time.Month(month), d, 0, 0, 0, 0, s.location).Format("2006-01-02"),
			Events: events,
		})
	}

	return &models.CalendarMonth{Year: year, Month: month, TimeZone: s.location.String(), Days: days}, hit, nil
}

// monthLessons serves the raw lesson list from cache when possible. Colors depend on the current
// time so only the lessons are cached.
func (s *CalendarService) monthLessons(ctx context.Context, tutorID string, year, month int) ([]models.Lesson, bool, error) {
	key := calendarKey(tutorID, year, month)
	var lessons []models.Lesson
	if hit, err := s.cache.Get(ctx, key, &lessons); err == nil && hit {
		return lessons, true, nil
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.location)
	to := from.AddDate(0, 1, 0)
	lessons, err := s.lessons.ListRange(ctx, tutorID, from.UTC(), to.UTC())
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load calendar lessons")
	}
	if err := s.cache.Set(ctx, key, lessons, s.cacheTTL); err != nil {
		s.logger.Debug("calendar cache not stored", zap.String("key", key), zap.Error(err))
	}
	return lessons, false, nil
}
