package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-desk-api/internal/dto"
	"github.com/noah-isme/tutor-desk-api/internal/models"
	appErrors "github.com/noah-isme/tutor-desk-api/pkg/errors"
)

const (
	defaultScheduleWeeks   = 12
	defaultLessonMinutes   = 60
	defaultScheduleLockTTL = 10 * time.Second
)

type scheduleStudentRepository interface {
	UpdateFixedScheduleWithTx(ctx context.Context, tx *sqlx.Tx, id string, descriptor types.JSONText) error
}

type scheduleLessonRepository interface {
	BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, lessons []models.Lesson) error
}

type scheduleLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RecurringLessonConfig tunes the generator.
type RecurringLessonConfig struct {
	Location        *time.Location
	Weeks           int
	DefaultDuration int
	LockTTL         time.Duration
}

// RecurringLessonService materialises a weekly slot into concrete lessons.
type RecurringLessonService struct {
	db        txProvider
	students  scheduleStudentRepository
	lessons   scheduleLessonRepository
	tutors    tutorFinder
	locker    scheduleLocker
	cache     *CacheService
	audit     auditWriter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    RecurringLessonConfig
	now       func() time.Time
}

// NewRecurringLessonService wires the generator dependencies. locker, cache, audit and metrics may be nil.
func NewRecurringLessonService(
	db txProvider,
	students scheduleStudentRepository,
	lessons scheduleLessonRepository,
	tutors tutorFinder,
	locker scheduleLocker,
	cache *CacheService,
	audit auditWriter,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg RecurringLessonConfig,
) *RecurringLessonService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Weeks <= 0 {
		cfg.Weeks = defaultScheduleWeeks
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = defaultLessonMinutes
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultScheduleLockTTL
	}
	return &RecurringLessonService{
		db:        db,
		students:  students,
		lessons:   lessons,
		tutors:    tutors,
		locker:    locker,
		cache:     cache,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    cfg,
		now:       time.Now,
	}
}

// ProjectWeekly returns weeks start instants, 7 days apart, beginning at the first occurrence of
// weekday at hour:minute in loc that lies strictly after now. When the slot is today but its time
// is not later than now, the series starts next week. Results are in UTC.
func ProjectWeekly(now time.Time, loc *time.Location, weekday time.Weekday, hour, minute, weeks int) []time.Time {
	if weeks <= 0 {
		return nil
	}
	local := now.In(loc)
	days := (int(weekday) - int(local.Weekday()) + 7) % 7
	if days == 0 && hour*60+minute <= local.Hour()*60+local.Minute() {
		days = 7
	}
	first := time.Date(local.Year(), local.Month(), local.Day()+days, hour, minute, 0, 0, loc)

	starts := make([]time.Time, weeks)
	for k := range starts {
		starts[k] = first.Add(time.Duration(k) * 7 * 24 * time.Hour).UTC()
	}
	return starts
}

// Generate persists a weekly series of lessons for the student and overwrites the student's fixed
// schedule descriptor, atomically.
func (s *RecurringLessonService) Generate(ctx context.Context, studentID string, req dto.GenerateScheduleRequest) ([]models.Lesson, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid schedule payload")
	}
	hour, minute, err := dto.ParseClock(req.Time)
	if err != nil {
		return nil, appErrors.Invalid(err, "time must be HH:MM")
	}
	duration := int(req.Duration)
	if duration <= 0 {
		duration = s.config.DefaultDuration
	}

	tutor, err := resolveTutor(ctx, s.tutors)
	if err != nil {
		s.metrics.RecordScheduleGeneration("precondition_failed", 0)
		return nil, err
	}

	lockKey := "schedule:" + studentID
	if s.locker != nil {
		acquired, lockErr := s.locker.Acquire(ctx, lockKey, s.config.LockTTL)
		switch {
		case lockErr != nil:
			s.logger.Warn("schedule lock unavailable, continuing without it", zap.String("student_id", studentID), zap.Error(lockErr))
		case !acquired:
			s.metrics.RecordScheduleGeneration("locked", 0)
			return nil, appErrors.Clone(appErrors.ErrLocked, "a schedule is already being generated for this student")
		default:
			defer func() {
				if err := s.locker.Release(context.Background(), lockKey); err != nil {
					s.logger.Warn("failed to release schedule lock", zap.String("student_id", studentID), zap.Error(err))
				}
			}()
		}
	}

	slot := models.FixedScheduleSlot{Day: *req.DayOfWeek, Time: req.Time, Duration: duration, Subject: req.Subject}
	descriptor, err := models.EncodeFixedSchedule(slot)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to encode fixed schedule")
	}

	span := time.Duration(duration) * time.Minute
	starts := ProjectWeekly(s.now(), s.config.Location, time.Weekday(*req.DayOfWeek), hour, minute, s.config.Weeks)
	lessons := make([]models.Lesson, len(starts))
	for i, start := range starts {
		lessons[i] = models.Lesson{
			TutorID:     tutor.UserID,
			StudentID:   studentID,
			Subject:     req.Subject,
			StartTime:   start,
			EndTime:     start.Add(span),
			Status:      models.LessonStatusNormal,
			IsCompleted: false,
			Tags:        models.EmptyTags,
		}
	}

	if err := s.persist(ctx, studentID, descriptor, lessons); err != nil {
		s.metrics.RecordScheduleGeneration("failed", 0)
		return nil, err
	}

	s.cache.InvalidateCalendar(ctx, tutor.UserID)
	s.metrics.RecordScheduleGeneration("success", len(lessons))
	recordAudit(ctx, s.audit, s.logger, tutor.UserID, models.AuditActionScheduleCreate, "student", studentID, slot)
	s.logger.Info("recurring lessons generated",
		zap.String("student_id", studentID),
		zap.Int("day_of_week", slot.Day),
		zap.String("time", slot.Time),
		zap.Int("count", len(lessons)),
	)
	return lessons, nil
}

func (s *RecurringLessonService) persist(ctx context.Context, studentID string, descriptor types.JSONText, lessons []models.Lesson) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Internal(err, "failed to start transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.students.UpdateFixedScheduleWithTx(ctx, tx, studentID, descriptor); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Internal(err, "failed to store fixed schedule")
	}
	if err = s.lessons.BulkCreateWithTx(ctx, tx, lessons); err != nil {
		return appErrors.Internal(err, "failed to create lessons")
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Internal(err, "failed to commit schedule")
	}
	return nil
}
