package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutor-desk-api/internal/models"
	appErrors "github.com/noah-isme/tutor-desk-api/pkg/errors"
	"github.com/noah-isme/tutor-desk-api/pkg/export"
)

// Report formats.
const (
	ReportFormatCSV = "csv"
	ReportFormatPDF = "pdf"
)

type reportLessonReader interface {
	ListCompletedByStudent(ctx context.Context, studentID string) ([]models.Lesson, error)
}

type reportRenderer interface {
	Render(report export.Report) ([]byte, error)
}

// ReportFile is a rendered report ready to be streamed.
type ReportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ReportService renders per-student progress reports.
type ReportService struct {
	students  lessonStudentFinder
	lessons   reportLessonReader
	exams     studentExamReader
	renderers map[string]reportRenderer
	logger    *zap.Logger
	location  *time.Location
	now       func() time.Time
}

// NewReportService constructs a ReportService with the CSV and PDF exporters.
func NewReportService(students lessonStudentFinder, lessons reportLessonReader, exams studentExamReader, logger *zap.Logger, loc *time.Location) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{
		students: students,
		lessons:  lessons,
		exams:    exams,
		renderers: map[string]reportRenderer{
			ReportFormatCSV: export.NewCSVExporter(),
			ReportFormatPDF: export.NewPDFExporter(),
		},
		logger:   logger,
		location: loc,
		now:      time.Now,
	}
}

// StudentReport renders the student's lesson records and exams. An empty format means CSV.
func (s *ReportService) StudentReport(ctx context.Context, studentID, format string) (*ReportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ReportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, notFoundOr(err, "student not found", "failed to load student")
	}
	lessons, err := s.lessons.ListCompletedByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load lesson records")
	}
	exams, err := s.exams.ListByStudent(ctx, studentID, 0)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load exams")
	}

	payload, err := renderer.Render(s.buildReport(student, lessons, exams))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render report")
	}

	contentType := "text/csv; charset=utf-8"
	if format == ReportFormatPDF {
		contentType = "application/pdf"
	}
	filename := fmt.Sprintf("student-%s-%s.%s", student.ID, s.now().In(s.location).Format("20060102"), format)
	s.logger.Info("student report rendered", zap.String("student_id", studentID), zap.String("format", format), zap.Int("bytes", len(payload)))
	return &ReportFile{Filename: filename, ContentType: contentType, Payload: payload}, nil
}

func (s *ReportService) buildReport(student *models.Student, lessons []models.Lesson, exams []models.Exam) export.Report {
	lessonRows := make([]map[string]string, 0, len(lessons))
	for _, l := range lessons {
		start := l.StartTime.In(s.location)
		lessonRows = append(lessonRows, map[string]string{
			"date":     start.Format("2006-01-02"),
			"time":     start.Format("15:04"),
			"subject":  l.Subject,
			"content":  deref(l.Content),
			"homework": deref(l.Homework),
			"scope":    deref(l.NextExamScope),
			"note":     deref(l.Note),
		})
	}

	examRows := make([]map[string]string, 0, len(exams))
	for _, e := range exams {
		score := "-"
		if e.Score != nil {
			score = fmt.Sprintf("%d", *e.Score)
		}
		examRows = append(examRows, map[string]string{
			"date":  e.Date.In(s.location).Format("2006-01-02"),
			"title": e.Title,
			"range": e.Range,
			"score": score,
		})
	}

	return export.Report{
		Title:    "Progress report: " + student.Name,
		Subtitle: strings.TrimSpace(fmt.Sprintf("%s %s", student.School, student.Grade)),
		Sections: []export.Section{
			{
				Title: "Lesson records",
				Columns: []export.Column{
					{Key: "date", Title: "Date"},
					{Key: "time", Title: "Time", Width: 0.6},
					{Key: "subject", Title: "Subject"},
					{Key: "content", Title: "Content", Width: 2},
					{Key: "homework", Title: "Homework", Width: 1.5},
					{Key: "scope", Title: "Next exam scope", Width: 1.5},
					{Key: "note", Title: "Note", Width: 1.5},
				},
				Rows: lessonRows,
			},
			{
				Title: "Exams",
				Columns: []export.Column{
					{Key: "date", Title: "Date"},
					{Key: "title", Title: "Title", Width: 2},
					{Key: "range", Title: "Range", Width: 2},
					{Key: "score", Title: "Score", Width: 0.6},
				},
				Rows: examRows,
			},
		},
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
