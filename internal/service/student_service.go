package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/tutor-desk-api/internal/dto"
	"github.com/noah-isme/tutor-desk-api/internal/models"
	appErrors "github.com/noah-isme/tutor-desk-api/pkg/errors"
)

const studentDetailLimit = 5

type studentRepository interface {
	List(ctx context.Context, tutorID string, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, student *models.Student) error
	UpdateWithTx(ctx context.Context, tx *sqlx.Tx, student *models.Student) error
}

type studentUserRepository interface {
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, user *models.User) error
	UpdateNameWithTx(ctx context.Context, tx *sqlx.Tx, id, name string) error
	Delete(ctx context.Context, id string) error
}

type studentLessonReader interface {
	RecentByStudent(ctx context.Context, studentID string, limit int) ([]models.Lesson, error)
}

type studentExamReader interface {
	ListByStudent(ctx context.Context, studentID string, limit int) ([]models.Exam, error)
}

// StudentConfig holds defaults for newly registered students.
type StudentConfig struct {
	DefaultPassword string
	EmailDomain     string
}

// StudentService manages student profiles and their user accounts.
type StudentService struct {
	db        txProvider
	students  studentRepository
	users     studentUserRepository
	lessons   studentLessonReader
	exams     studentExamReader
	tutors    tutorFinder
	cache     *CacheService
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
	config    StudentConfig
	now       func() time.Time
}

// NewStudentService constructs a StudentService.
func NewStudentService(
	db txProvider,
	students studentRepository,
	users studentUserRepository,
	lessons studentLessonReader,
	exams studentExamReader,
	tutors tutorFinder,
	cache *CacheService,
	audit auditWriter,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg StudentConfig,
) *StudentService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultPassword == "" {
		cfg.DefaultPassword = "password123"
	}
	if cfg.EmailDomain == "" {
		cfg.EmailDomain = "system.local"
	}
	return &StudentService{
		db:        db,
		students:  students,
		users:     users,
		lessons:   lessons,
		exams:     exams,
		tutors:    tutors,
		cache:     cache,
		audit:     audit,
		validator: validate,
		logger:    logger,
		config:    cfg,
		now:       time.Now,
	}
}

// List returns the tutor's students.
func (s *StudentService) List(ctx context.Context, query dto.StudentListQuery) ([]models.Student, *models.Pagination, error) {
	tutor, err := resolveTutor(ctx, s.tutors)
	if err != nil {
		return nil, nil, err
	}
	page, size := models.NormalizePage(query.Page, query.PageSize)
	students, total, err := s.students.List(ctx, tutor.UserID, models.StudentFilter{
		Search:   strings.TrimSpace(query.Search),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list students")
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a student profile.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "student not found", "failed to load student")
	}
	return student, nil
}

// Detail returns the profile with the fixed schedule, recent lessons and recent exams.
func (s *StudentService) Detail(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	slots, err := student.Slots()
	if err != nil {
		s.logger.Warn("unreadable fixed schedule", zap.String("student_id", id), zap.Error(err))
		slots = []models.FixedScheduleSlot{}
	}
	lessons, err := s.lessons.RecentByStudent(ctx, id, studentDetailLimit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load recent lessons")
	}
	exams, err := s.exams.ListByStudent(ctx, id, studentDetailLimit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load recent exams")
	}
	if lessons == nil {
		lessons = []models.Lesson{}
	}
	if exams == nil {
		exams = []models.Exam{}
	}
	return &models.StudentDetail{Student: *student, Schedule: slots, RecentLessons: lessons, RecentExams: exams}, nil
}

// Create registers a student with a placeholder login and links it to the tutor.
func (s *StudentService) Create(ctx context.Context, req dto.StudentRequest) (student *models.Student, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid student payload")
	}
	tutor, err := resolveTutor(ctx, s.tutors)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.config.DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}
	name := strings.TrimSpace(req.Name)
	user := &models.User{
		Email:        fmt.Sprintf("student_%d@%s", s.now().UnixNano(), s.config.EmailDomain),
		PasswordHash: string(hash),
		Name:         name,
		Role:         models.RoleStudent,
		Active:       true,
	}
	student = &models.Student{TutorID: tutor.UserID, Name: name, FixedSchedule: []byte(`[]`)}
	applyStudentFields(student, req)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to start transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.users.CreateWithTx(ctx, tx, user); err != nil {
		return nil, appErrors.Internal(err, "failed to create student account")
	}
	student.UserID = user.ID
	student.Email = user.Email
	if err = s.students.CreateWithTx(ctx, tx, student); err != nil {
		return nil, appErrors.Internal(err, "failed to create student profile")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Internal(err, "failed to commit student")
	}

	s.logger.Info("student created", zap.String("student_id", student.ID))
	return student, nil
}

// Update renames the student and rewrites the editable profile fields in one transaction.
func (s *StudentService) Update(ctx context.Context, id string, req dto.StudentRequest) (student *models.Student, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid student payload")
	}
	student, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	student.Name = strings.TrimSpace(req.Name)
	applyStudentFields(student, req)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to start transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.users.UpdateNameWithTx(ctx, tx, student.UserID, student.Name); err != nil {
		return nil, notFoundOr(err, "student not found", "failed to rename student")
	}
	if err = s.students.UpdateWithTx(ctx, tx, student); err != nil {
		return nil, notFoundOr(err, "student not found", "failed to update student")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Internal(err, "failed to commit student")
	}

	s.cache.InvalidateCalendar(ctx, student.TutorID)
	return student, nil
}

func applyStudentFields(student *models.Student, req dto.StudentRequest) {
	student.School = strings.TrimSpace(req.School)
	student.Grade = strings.TrimSpace(req.Grade)
	student.Subjects = strings.TrimSpace(req.Subjects)
	student.ParentName = strings.TrimSpace(req.ParentName)
	student.ParentPhone = strings.TrimSpace(req.ParentContact)
	student.LocationURL = strings.TrimSpace(req.LocationURL)
}

// Delete removes the student's user row; profile, lessons and exams cascade.
func (s *StudentService) Delete(ctx context.Context, actorID, id string) error {
	student, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, student.UserID); err != nil {
		return notFoundOr(err, "student not found", "failed to delete student")
	}
	s.cache.InvalidateCalendar(ctx, student.TutorID)
	recordAudit(ctx, s.audit, s.logger, actorID, models.AuditActionStudentDelete, "student", id, map[string]string{"name": student.Name})
	s.logger.Info("student deleted", zap.String("student_id", id))
	return nil
}
