package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-desk-api/internal/dto"
	"github.com/noah-isme/tutor-desk-api/internal/models"
	appErrors "github.com/noah-isme/tutor-desk-api/pkg/errors"
)

type examRepository interface {
	ListByStudent(ctx context.Context, studentID string, limit int) ([]models.Exam, error)
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	Create(ctx context.Context, exam *models.Exam) error
	Update(ctx context.Context, exam *models.Exam) error
	Delete(ctx context.Context, id string) error
}

// ExamService manages exam results.
type ExamService struct {
	exams     examRepository
	students  lessonStudentFinder
	validator *validator.Validate
	logger    *zap.Logger
	location  *time.Location
}

// NewExamService constructs an ExamService. Exam dates are civil dates in loc.
func NewExamService(exams examRepository, students lessonStudentFinder, validate *validator.Validate, logger *zap.Logger, loc *time.Location) *ExamService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ExamService{exams: exams, students: students, validator: validate, logger: logger, location: loc}
}

// ListByStudent returns every exam of the student, newest first.
func (s *ExamService) ListByStudent(ctx context.Context, studentID string) ([]models.Exam, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, notFoundOr(err, "student not found", "failed to load student")
	}
	exams, err := s.exams.ListByStudent(ctx, studentID, 0)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list exams")
	}
	if exams == nil {
		exams = []models.Exam{}
	}
	return exams, nil
}

// Create records an exam.
func (s *ExamService) Create(ctx context.Context, req dto.ExamRequest) (*models.Exam, error) {
	exam := &models.Exam{}
	if err := s.apply(ctx, exam, req); err != nil {
		return nil, err
	}
	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, appErrors.Internal(err, "failed to create exam")
	}
	return exam, nil
}

// Update rewrites an exam. The owning student cannot change.
func (s *ExamService) Update(ctx context.Context, id string, req dto.ExamRequest) (*models.Exam, error) {
	exam, err := s.exams.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "exam not found", "failed to load exam")
	}
	if req.StudentID != exam.StudentID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exam belongs to another student")
	}
	if err := s.apply(ctx, exam, req); err != nil {
		return nil, err
	}
	if err := s.exams.Update(ctx, exam); err != nil {
		return nil, notFoundOr(err, "exam not found", "failed to update exam")
	}
	return exam, nil
}

// Delete removes an exam.
func (s *ExamService) Delete(ctx context.Context, id string) error {
	if err := s.exams.Delete(ctx, id); err != nil {
		return notFoundOr(err, "exam not found", "failed to delete exam")
	}
	return nil
}

func (s *ExamService) apply(ctx context.Context, exam *models.Exam, req dto.ExamRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Invalid(err, "invalid exam payload")
	}
	date, err := time.ParseInLocation(dto.DateLayout, req.Date, s.location)
	if err != nil {
		return appErrors.Invalid(err, "invalid exam date")
	}
	if exam.StudentID == "" {
		if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
			return notFoundOr(err, "student not found", "failed to load student")
		}
	}
	exam.StudentID = req.StudentID
	exam.Title = strings.TrimSpace(req.Title)
	exam.Date = date.UTC()
	exam.Range = strings.TrimSpace(req.Range)
	exam.Score = req.Score
	return nil
}
