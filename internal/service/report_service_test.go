package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-desk-api/internal/models"
	appErrors "github.com/noah-isme/tutor-desk-api/pkg/errors"
)

type completedLessonStub []models.Lesson

func (s completedLessonStub) ListCompletedByStudent(ctx context.Context, studentID string) ([]models.Lesson, error) {
	return s, nil
}

type examListStub []models.Exam

func (s examListStub) ListByStudent(ctx context.Context, studentID string, limit int) ([]models.Exam, error) {
	return s, nil
}

func newReportFixture() *ReportService {
	content := "Vectors"
	score := 88
	students := &studentFinderStub{students: map[string]*models.Student{"s1": {ID: "s1", Name: "Ana", School: "SMA 1", Grade: "11"}}}
	lessons := completedLessonStub{{ID: "l1", Subject: "Physics", StartTime: time.Date(2024, 1, 4, 23, 30, 0, 0, time.UTC), Content: &content, IsCompleted: true}}
	exams := examListStub{{ID: "e1", Title: "Midterm", Date: time.Date(2024, 1, 9, 16, 0, 0, 0, time.UTC), Score: &score}}
	svc := NewReportService(students, lessons, exams, nil, civilZone)
	svc.now = func() time.Time { return time.Date(2024, 2, 1, 0, 0, 0, 0, civilZone) }
	return svc
}

func TestReportServiceCSV(t *testing.T) {
	svc := newReportFixture()

	file, err := svc.StudentReport(context.Background(), "s1", "")
	require.NoError(t, err)
	assert.Equal(t, "student-s1-20240201.csv", file.Filename)
	assert.True(t, strings.HasPrefix(file.ContentType, "text/csv"))

	body := string(file.Payload)
	assert.Contains(t, body, "2024-01-05,07:30,Physics,Vectors")
	assert.Contains(t, body, "2024-01-10,Midterm,,88")
}

func TestReportServicePDF(t *testing.T) {
	svc := newReportFixture()

	file, err := svc.StudentReport(context.Background(), "s1", "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Payload, []byte("%PDF")))
}

func TestReportServiceErrors(t *testing.T) {
	svc := newReportFixture()

	_, err := svc.StudentReport(context.Background(), "s1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.StudentReport(context.Background(), "missing", "csv")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
