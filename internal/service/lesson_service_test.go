package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-desk-api/internal/dto"
	"github.com/noah-isme/tutor-desk-api/internal/models"
	appErrors "github.com/noah-isme/tutor-desk-api/pkg/errors"
)

func TestLessonServiceCancelKeepsSlot(t *testing.T) {
	fx := newLessonFixture()
	start := time.Date(2024, 1, 3, 6, 0, 0, 0, time.UTC)
	fx.lessons.put(models.Lesson{ID: "l1", TutorID: "tutor-1", Status: models.LessonStatusNormal, StartTime: start, EndTime: start.Add(90 * time.Minute)})

	lesson, err := fx.service.ChangeStatus(context.Background(), "tutor-1", "l1", dto.LessonStatusRequest{Action: "cancel"})
	require.NoError(t, err)
	assert.Equal(t, models.LessonStatusCancelled, lesson.Status)
	assert.Equal(t, start, fx.lessons.items["l1"].StartTime)
	assert.Equal(t, start.Add(90*time.Minute), fx.lessons.items["l1"].EndTime)
	assert.Equal(t, []models.LessonStatus{models.LessonStatusNormal}, fx.lessons.lastGuard)
	require.Len(t, fx.audit.logs, 1)
	assert.Equal(t, models.AuditActionLessonStatus, fx.audit.logs[0].Action)
}

func TestLessonServiceRescheduleUsesCivilTimeAndFixedSpan(t *testing.T) {
	fx := newLessonFixture()
	start := time.Date(2024, 1, 3, 6, 0, 0, 0, time.UTC)
	fx.lessons.put(models.Lesson{ID: "l1", TutorID: "tutor-1", Status: models.LessonStatusNormal, StartTime: start, EndTime: start.Add(90 * time.Minute)})

	lesson, err := fx.service.ChangeStatus(context.Background(), "tutor-1", "l1", dto.LessonStatusRequest{
		Action:  dto.LessonActionReschedule,
		NewDate: "2024-01-05",
		NewTime: "16:30",
	})
	require.NoError(t, err)
	wantStart := time.Date(2024, 1, 5, 8, 30, 0, 0, time.UTC)
	assert.Equal(t, models.LessonStatusRescheduled, lesson.Status)
	assert.True(t, wantStart.Equal(fx.lessons.items["l1"].StartTime))
	assert.Equal(t, time.Hour, fx.lessons.items["l1"].EndTime.Sub(fx.lessons.items["l1"].StartTime))

	// a rescheduled lesson may move again and then be cancelled
	_, err = fx.service.ChangeStatus(context.Background(), "tutor-1", "l1", dto.LessonStatusRequest{
		Action:  dto.LessonActionReschedule,
		NewDate: "2024-01-06",
		NewTime: "09:00",
	})
	require.NoError(t, err)
	assert.Equal(t, []models.LessonStatus{models.LessonStatusRescheduled}, fx.lessons.lastGuard)

	_, err = fx.service.ChangeStatus(context.Background(), "tutor-1", "l1", dto.LessonStatusRequest{Action: dto.LessonActionCancel})
	require.NoError(t, err)
	assert.Equal(t, models.LessonStatusCancelled, fx.lessons.items["l1"].Status)
}

func TestLessonServiceCancelledIsTerminal(t *testing.T) {
	fx := newLessonFixture()
	fx.lessons.put(models.Lesson{ID: "l1", TutorID: "tutor-1", Status: models.LessonStatusCancelled})

	for _, req := range []dto.LessonStatusRequest{
		{Action: dto.LessonActionCancel},
		{Action: dto.LessonActionReschedule, NewDate: "2024-01-05", NewTime: "10:00"},
	} {
		_, err := fx.service.ChangeStatus(context.Background(), "tutor-1", "l1", req)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	}
	assert.Equal(t, models.LessonStatusCancelled, fx.lessons.items["l1"].Status)
	assert.Empty(t, fx.audit.logs)
}

func TestLessonServiceChangeStatusErrors(t *testing.T) {
	fx := newLessonFixture()
	fx.lessons.put(models.Lesson{ID: "l1", TutorID: "tutor-1", Status: models.LessonStatusNormal})

	_, err := fx.service.ChangeStatus(context.Background(), "tutor-1", "missing", dto.LessonStatusRequest{Action: dto.LessonActionCancel})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = fx.service.ChangeStatus(context.Background(), "tutor-1", "l1", dto.LessonStatusRequest{Action: "POSTPONE"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = fx.service.ChangeStatus(context.Background(), "tutor-1", "l1", dto.LessonStatusRequest{Action: dto.LessonActionReschedule, NewDate: "2024-01-05"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	fx.lessons.guardMiss = true
	_, err = fx.service.ChangeStatus(context.Background(), "tutor-1", "l1", dto.LessonStatusRequest{Action: dto.LessonActionCancel})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestLessonServiceCreateAndClearRecord(t *testing.T) {
	fx := newLessonFixture()

	lesson, err := fx.service.CreateRecord(context.Background(), dto.LessonRecordRequest{
		StudentID: "student-1",
		Subject:   " Physics ",
		Date:      "2024-02-10",
		Time:      "19:00",
		Content:   "Kinematics",
		Homework:  "Page 12",
	})
	require.NoError(t, err)
	assert.True(t, lesson.IsCompleted)
	assert.Equal(t, "Physics", lesson.Subject)
	assert.True(t, time.Date(2024, 2, 10, 11, 0, 0, 0, time.UTC).Equal(lesson.StartTime))
	assert.Equal(t, time.Hour, lesson.EndTime.Sub(lesson.StartTime))
	require.NotNil(t, lesson.Content)
	assert.Equal(t, "Kinematics", *lesson.Content)
	assert.Nil(t, lesson.Note)
	assert.Equal(t, "tutor-1", lesson.TutorID)

	require.NoError(t, fx.service.ClearRecord(context.Background(), lesson.ID))
	cleared := fx.lessons.items[lesson.ID]
	assert.False(t, cleared.IsCompleted)
	assert.Nil(t, cleared.Content)
	assert.Nil(t, cleared.Homework)
}

func TestLessonServiceCreateRecordUnknownStudent(t *testing.T) {
	fx := newLessonFixture()
	_, err := fx.service.CreateRecord(context.Background(), dto.LessonRecordRequest{StudentID: "nobody", Date: "2024-02-10", Time: "19:00"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLessonServiceResetAllRequiresPassword(t *testing.T) {
	fx := newLessonFixture()
	fx.lessons.put(models.Lesson{ID: "l1", TutorID: "tutor-1"})
	fx.lessons.put(models.Lesson{ID: "l2", TutorID: "tutor-1"})

	_, err := fx.service.ResetAll(context.Background(), "tutor-1", "wrong")
	require.Error(t, err)
	assert.Len(t, fx.lessons.items, 2)

	removed, err := fx.service.ResetAll(context.Background(), "tutor-1", "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	assert.Empty(t, fx.lessons.items)
}

func TestLessonServiceListCourseChanges(t *testing.T) {
	fx := newLessonFixture()
	now := time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC)
	fx.service.now = func() time.Time { return now }
	fx.lessons.put(models.Lesson{ID: "past", TutorID: "tutor-1", StartTime: now.Add(-time.Hour)})
	fx.lessons.put(models.Lesson{ID: "cancelled", TutorID: "tutor-1", StartTime: now.Add(time.Hour), Status: models.LessonStatusCancelled})

	lessons, err := fx.service.ListCourseChanges(context.Background())
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, "cancelled", lessons[0].ID)
}

type lessonFixture struct {
	service *LessonService
	lessons *lessonRepoStub
	audit   *auditStub
}

func newLessonFixture() *lessonFixture {
	fx := &lessonFixture{lessons: newLessonRepoStub(), audit: &auditStub{}}
	students := &studentFinderStub{students: map[string]*models.Student{"student-1": {ID: "student-1", Name: "Ana"}}}
	tutors := &tutorStub{tutor: &models.Tutor{UserID: "tutor-1"}}
	fx.service = NewLessonService(fx.lessons, students, tutors, passwordStub{password: "secret"}, nil, fx.audit, nil, nil, nil, civilZone)
	return fx
}

type lessonRepoStub struct {
	items     map[string]*models.Lesson
	seq       int
	lastGuard []models.LessonStatus
	guardMiss bool
}

func newLessonRepoStub() *lessonRepoStub {
	return &lessonRepoStub{items: map[string]*models.Lesson{}}
}

func (r *lessonRepoStub) put(l models.Lesson) {
	if l.Status == "" {
		l.Status = models.LessonStatusNormal
	}
	r.items[l.ID] = &l
}

func (r *lessonRepoStub) Create(ctx context.Context, lesson *models.Lesson) error {
	r.seq++
	lesson.ID = fmt.Sprintf("lesson-%d", r.seq)
	clone := *lesson
	r.items[lesson.ID] = &clone
	return nil
}

func (r *lessonRepoStub) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	l, ok := r.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *l
	return &clone, nil
}

func (r *lessonRepoStub) UpdateRecord(ctx context.Context, lesson *models.Lesson) error {
	if _, ok := r.items[lesson.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *lesson
	r.items[lesson.ID] = &clone
	return nil
}

func (r *lessonRepoStub) ClearRecord(ctx context.Context, id string) error {
	l, ok := r.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	l.Content, l.Homework, l.NextExamScope, l.Note = nil, nil, nil, nil
	l.IsCompleted = false
	return nil
}

func (r *lessonRepoStub) guarded(id string, from []models.LessonStatus) (*models.Lesson, error) {
	r.lastGuard = from
	l, ok := r.items[id]
	if !ok || r.guardMiss {
		return nil, sql.ErrNoRows
	}
	for _, status := range from {
		if l.Status == status {
			return l, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *lessonRepoStub) UpdateStatus(ctx context.Context, id string, status models.LessonStatus, from ...models.LessonStatus) error {
	l, err := r.guarded(id, from)
	if err != nil {
		return err
	}
	l.Status = status
	return nil
}

func (r *lessonRepoStub) Reschedule(ctx context.Context, id string, start, end time.Time, from ...models.LessonStatus) error {
	l, err := r.guarded(id, from)
	if err != nil {
		return err
	}
	l.Status = models.LessonStatusRescheduled
	l.StartTime, l.EndTime = start, end
	return nil
}

func (r *lessonRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := r.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.items, id)
	return nil
}

func (r *lessonRepoStub) DeleteByTutor(ctx context.Context, tutorID string) (int64, error) {
	var n int64
	for id, l := range r.items {
		if l.TutorID == tutorID {
			delete(r.items, id)
			n++
		}
	}
	return n, nil
}

func (r *lessonRepoStub) ListRecords(ctx context.Context, tutorID string, filter models.LessonRecordFilter) ([]models.Lesson, int, error) {
	var out []models.Lesson
	for _, l := range r.items {
		if l.TutorID == tutorID && l.IsCompleted && l.Status != models.LessonStatusCancelled {
			out = append(out, *l)
		}
	}
	return out, len(out), nil
}

func (r *lessonRepoStub) ListFrom(ctx context.Context, tutorID string, from time.Time, includeCancelled bool, limit int) ([]models.Lesson, error) {
	var out []models.Lesson
	for _, l := range r.items {
		if l.TutorID != tutorID || l.StartTime.Before(from) {
			continue
		}
		if !includeCancelled && l.Status == models.LessonStatusCancelled {
			continue
		}
		out = append(out, *l)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type studentFinderStub struct {
	students map[string]*models.Student
}

func (s *studentFinderStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	st, ok := s.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *st
	return &clone, nil
}

type passwordStub struct {
	password string
}

func (p passwordStub) VerifyPassword(ctx context.Context, userID, password string) error {
	if password != p.password {
		return appErrors.Clone(appErrors.ErrUnauthorized, "password does not match")
	}
	return nil
}
