package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-desk-api/internal/dto"
	"github.com/noah-isme/tutor-desk-api/internal/models"
	appErrors "github.com/noah-isme/tutor-desk-api/pkg/errors"
)

// Recorded and rescheduled lessons always span one hour regardless of the generated duration.
const fixedLessonSpan = 60 * time.Minute

type lessonRepository interface {
	Create(ctx context.Context, lesson *models.Lesson) error
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	UpdateRecord(ctx context.Context, lesson *models.Lesson) error
	ClearRecord(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status models.LessonStatus, from ...models.LessonStatus) error
	Reschedule(ctx context.Context, id string, start, end time.Time, from ...models.LessonStatus) error
	Delete(ctx context.Context, id string) error
	DeleteByTutor(ctx context.Context, tutorID string) (int64, error)
	ListRecords(ctx context.Context, tutorID string, filter models.LessonRecordFilter) ([]models.Lesson, int, error)
	ListFrom(ctx context.Context, tutorID string, from time.Time, includeCancelled bool, limit int) ([]models.Lesson, error)
}

type lessonStudentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// LessonService manages lesson records and course changes.
type LessonService struct {
	lessons   lessonRepository
	students  lessonStudentFinder
	tutors    tutorFinder
	passwords passwordVerifier
	cache     *CacheService
	audit     auditWriter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	location  *time.Location
	now       func() time.Time
}

// NewLessonService constructs a LessonService. Civil dates and times are read in loc.
func NewLessonService(
	lessons lessonRepository,
	students lessonStudentFinder,
	tutors tutorFinder,
	passwords passwordVerifier,
	cache *CacheService,
	audit auditWriter,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	loc *time.Location,
) *LessonService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &LessonService{
		lessons:   lessons,
		students:  students,
		tutors:    tutors,
		passwords: passwords,
		cache:     cache,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		location:  loc,
		now:       time.Now,
	}
}

// Get returns a single lesson.
func (s *LessonService) Get(ctx context.Context, id string) (*models.Lesson, error) {
	lesson, err := s.lessons.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "lesson not found", "failed to load lesson")
	}
	return lesson, nil
}

// ListRecords pages the completed lesson records.
func (s *LessonService) ListRecords(ctx context.Context, query dto.LessonListQuery) ([]models.Lesson, *models.Pagination, error) {
	tutor, err := resolveTutor(ctx, s.tutors)
	if err != nil {
		return nil, nil, err
	}
	page, size := models.NormalizePage(query.Page, query.PageSize)
	lessons, total, err := s.lessons.ListRecords(ctx, tutor.UserID, models.LessonRecordFilter{
		StudentID: query.StudentID,
		Page:      page,
		PageSize:  size,
	})
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list lesson records")
	}
	return lessons, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// CreateRecord stores a completed lesson at the given civil date and time.
func (s *LessonService) CreateRecord(ctx context.Context, req dto.LessonRecordRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid lesson payload")
	}
	start, err := dto.CivilTime(req.Date, req.Time, s.location)
	if err != nil {
		return nil, appErrors.Invalid(err, "invalid lesson date or time")
	}
	tutor, err := resolveTutor(ctx, s.tutors)
	if err != nil {
		return nil, err
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		return nil, notFoundOr(err, "student not found", "failed to load student")
	}

	lesson := &models.Lesson{
		TutorID:   tutor.UserID,
		StudentID: req.StudentID,
		Status:    models.LessonStatusNormal,
		Tags:      models.EmptyTags,
	}
	applyRecord(lesson, req, start.UTC())
	if err := s.lessons.Create(ctx, lesson); err != nil {
		return nil, appErrors.Internal(err, "failed to create lesson record")
	}
	s.cache.InvalidateCalendar(ctx, lesson.TutorID)
	return lesson, nil
}

// UpdateRecord rewrites an existing lesson record and marks it completed.
func (s *LessonService) UpdateRecord(ctx context.Context, id string, req dto.LessonRecordRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid lesson payload")
	}
	start, err := dto.CivilTime(req.Date, req.Time, s.location)
	if err != nil {
		return nil, appErrors.Invalid(err, "invalid lesson date or time")
	}
	lesson, err := s.lessons.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "lesson not found", "failed to load lesson")
	}
	if req.StudentID != lesson.StudentID {
		if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
			return nil, notFoundOr(err, "student not found", "failed to load student")
		}
	}

	applyRecord(lesson, req, start.UTC())
	if err := s.lessons.UpdateRecord(ctx, lesson); err != nil {
		return nil, notFoundOr(err, "lesson not found", "failed to update lesson record")
	}
	s.cache.InvalidateCalendar(ctx, lesson.TutorID)
	return lesson, nil
}

func applyRecord(lesson *models.Lesson, req dto.LessonRecordRequest, start time.Time) {
	lesson.StudentID = req.StudentID
	lesson.Subject = strings.TrimSpace(req.Subject)
	lesson.StartTime = start
	lesson.EndTime = start.Add(fixedLessonSpan)
	lesson.Content = optionalText(req.Content)
	lesson.Homework = optionalText(req.Homework)
	lesson.NextExamScope = optionalText(req.NextExamScope)
	lesson.Note = optionalText(req.Note)
	lesson.IsCompleted = true
}

func optionalText(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// ClearRecord wipes the teaching content and returns the lesson to pending.
func (s *LessonService) ClearRecord(ctx context.Context, id string) error {
	lesson, err := s.lessons.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "lesson not found", "failed to load lesson")
	}
	if err := s.lessons.ClearRecord(ctx, id); err != nil {
		return notFoundOr(err, "lesson not found", "failed to clear lesson record")
	}
	s.cache.InvalidateCalendar(ctx, lesson.TutorID)
	return nil
}

// Delete permanently removes a lesson.
func (s *LessonService) Delete(ctx context.Context, actorID, id string) error {
	lesson, err := s.lessons.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "lesson not found", "failed to load lesson")
	}
	if err := s.lessons.Delete(ctx, id); err != nil {
		return notFoundOr(err, "lesson not found", "failed to delete lesson")
	}
	s.cache.InvalidateCalendar(ctx, lesson.TutorID)
	recordAudit(ctx, s.audit, s.logger, actorID, models.AuditActionLessonDelete, "lesson", id, map[string]interface{}{
		"student_id": lesson.StudentID,
		"start_time": lesson.StartTime,
	})
	return nil
}

// ChangeStatus applies a course change. CANCEL keeps the slot; RESCHEDULE moves the lesson to the
// new civil date and time with a one hour span. Cancelled lessons cannot change again.
func (s *LessonService) ChangeStatus(ctx context.Context, actorID, id string, req dto.LessonStatusRequest) (*models.Lesson, error) {
	req.Action = strings.ToUpper(strings.TrimSpace(req.Action))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid status payload")
	}

	next := models.LessonStatusCancelled
	var start time.Time
	if req.Action == dto.LessonActionReschedule {
		next = models.LessonStatusRescheduled
		if req.NewDate == "" || req.NewTime == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "newDate and newTime are required to reschedule")
		}
		parsed, err := dto.CivilTime(req.NewDate, req.NewTime, s.location)
		if err != nil {
			return nil, appErrors.Invalid(err, "invalid reschedule date or time")
		}
		start = parsed.UTC()
	}

	lesson, err := s.lessons.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "lesson not found", "failed to load lesson")
	}
	current := lesson.Status
	if !current.CanTransitionTo(next) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "lesson is "+strings.ToLower(string(current))+" and cannot change status")
	}

	if next == models.LessonStatusRescheduled {
		end := start.Add(fixedLessonSpan)
		err = s.lessons.Reschedule(ctx, id, start, end, current)
		lesson.StartTime, lesson.EndTime = start, end
	} else {
		err = s.lessons.UpdateStatus(ctx, id, next, current)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "lesson status changed concurrently")
		}
		return nil, appErrors.Internal(err, "failed to change lesson status")
	}
	lesson.Status = next

	s.cache.InvalidateCalendar(ctx, lesson.TutorID)
	s.metrics.RecordCourseChange(req.Action)
	recordAudit(ctx, s.audit, s.logger, actorID, models.AuditActionLessonStatus, "lesson", id, map[string]interface{}{
		"from":       current,
		"to":         next,
		"start_time": lesson.StartTime,
	})
	s.logger.Info("lesson status changed", zap.String("lesson_id", id), zap.String("from", string(current)), zap.String("to", string(next)))
	return lesson, nil
}

// ListCourseChanges returns lessons starting now or later, including cancelled ones, earliest first.
func (s *LessonService) ListCourseChanges(ctx context.Context) ([]models.Lesson, error) {
	tutor, err := resolveTutor(ctx, s.tutors)
	if err != nil {
		return nil, err
	}
	lessons, err := s.lessons.ListFrom(ctx, tutor.UserID, s.now().UTC(), true, 0)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list upcoming lessons")
	}
	return lessons, nil
}

// ResetAll deletes every lesson of the tutor once the password is confirmed.
func (s *LessonService) ResetAll(ctx context.Context, actorID, password string) (int64, error) {
	if s.passwords != nil {
		if err := s.passwords.VerifyPassword(ctx, actorID, password); err != nil {
			return 0, err
		}
	}
	return s.resetAll(ctx, actorID)
}

func (s *LessonService) resetAll(ctx context.Context, actorID string) (int64, error) {
	tutor, err := resolveTutor(ctx, s.tutors)
	if err != nil {
		return 0, err
	}
	removed, err := s.lessons.DeleteByTutor(ctx, tutor.UserID)
	if err != nil {
		return 0, appErrors.Internal(err, "failed to delete lessons")
	}
	s.cache.InvalidateCalendar(ctx, tutor.UserID)
	recordAudit(ctx, s.audit, s.logger, actorID, models.AuditActionLessonReset, "lesson", "", map[string]int64{"removed": removed})
	s.logger.Warn("all lessons removed", zap.String("tutor_id", tutor.UserID), zap.Int64("removed", removed))
	return removed, nil
}
