package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-desk-api/internal/dto"
	"github.com/noah-isme/tutor-desk-api/internal/models"
	appErrors "github.com/noah-isme/tutor-desk-api/pkg/errors"
)

var civilZone = time.FixedZone("UTC+8", 8*60*60)

func TestProjectWeeklyDatedExamples(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, civilZone) // Monday

	cases := []struct {
		name    string
		weekday time.Weekday
		hour    int
		minute  int
		want    time.Time
	}{
		{"same weekday earlier time rolls a week", time.Monday, 9, 0, time.Date(2024, 1, 8, 9, 0, 0, 0, civilZone)},
		{"later weekday this week", time.Wednesday, 14, 0, time.Date(2024, 1, 3, 14, 0, 0, 0, civilZone)},
		{"same weekday later time is today", time.Monday, 11, 0, time.Date(2024, 1, 1, 11, 0, 0, 0, civilZone)},
		{"same weekday same minute rolls a week", time.Monday, 10, 0, time.Date(2024, 1, 8, 10, 0, 0, 0, civilZone)},
		{"earlier weekday next week", time.Sunday, 8, 30, time.Date(2024, 1, 7, 8, 30, 0, 0, civilZone)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			starts := ProjectWeekly(now, civilZone, tc.weekday, tc.hour, tc.minute, 12)
			require.Len(t, starts, 12)
			assert.True(t, tc.want.Equal(starts[0]), "got %s want %s", starts[0], tc.want)
			for k := 1; k < len(starts); k++ {
				assert.Equal(t, 7*24*time.Hour, starts[k].Sub(starts[k-1]))
			}
			for _, start := range starts {
				local := start.In(civilZone)
				assert.Equal(t, tc.weekday, local.Weekday())
				assert.Equal(t, tc.hour, local.Hour())
				assert.Equal(t, tc.minute, local.Minute())
				assert.Zero(t, local.Second())
			}
		})
	}
}

func TestProjectWeeklyIgnoresHostOffset(t *testing.T) {
	instant := time.Date(2024, 1, 1, 10, 0, 0, 0, civilZone)
	zones := []*time.Location{time.UTC, time.FixedZone("UTC-5", -5*60*60), time.FixedZone("UTC+13", 13*60*60)}

	want := ProjectWeekly(instant, civilZone, time.Wednesday, 14, 0, 12)
	for _, zone := range zones {
		got := ProjectWeekly(instant.In(zone), civilZone, time.Wednesday, 14, 0, 12)
		assert.Equal(t, want, got, zone.String())
	}
}

func TestProjectWeeklyUsesCivilDate(t *testing.T) {
	// 01:00 Monday civil is still Sunday in UTC.
	now := time.Date(2024, 1, 1, 1, 0, 0, 0, civilZone)
	starts := ProjectWeekly(now, civilZone, time.Monday, 9, 0, 1)
	require.Len(t, starts, 1)
	assert.True(t, time.Date(2024, 1, 1, 9, 0, 0, 0, civilZone).Equal(starts[0]))
	assert.Equal(t, time.UTC, starts[0].Location())
}

func TestProjectWeeklyNoWeeks(t *testing.T) {
	assert.Nil(t, ProjectWeekly(time.Now(), civilZone, time.Monday, 9, 0, 0))
}

func TestRecurringLessonServiceGenerate(t *testing.T) {
	db, mock := newTxProviderMock(t)
	fx := newRecurringFixture(db)
	mock.ExpectBegin()
	mock.ExpectCommit()

	day := int(time.Wednesday)
	lessons, err := fx.service.Generate(context.Background(), "student-1", dto.GenerateScheduleRequest{
		DayOfWeek: &day,
		Time:      "14:00",
		Duration:  90,
		Subject:   "Math",
	})
	require.NoError(t, err)
	require.Len(t, lessons, 12)
	assert.NoError(t, mock.ExpectationsWereMet())

	first := time.Date(2024, 1, 3, 14, 0, 0, 0, civilZone)
	for k, lesson := range lessons {
		assert.True(t, first.Add(time.Duration(k)*7*24*time.Hour).Equal(lesson.StartTime))
		assert.Equal(t, 90*time.Minute, lesson.EndTime.Sub(lesson.StartTime))
		assert.Equal(t, models.LessonStatusNormal, lesson.Status)
		assert.False(t, lesson.IsCompleted)
		assert.Equal(t, "tutor-1", lesson.TutorID)
		assert.Equal(t, "student-1", lesson.StudentID)
		assert.Equal(t, "Math", lesson.Subject)
		assert.JSONEq(t, `[]`, string(lesson.Tags))
		assert.Nil(t, lesson.Content)
	}

	assert.Equal(t, "student-1", fx.students.id)
	assert.JSONEq(t, `[{"day":3,"time":"14:00","duration":90,"subject":"Math"}]`, string(fx.students.descriptor))
	assert.Len(t, fx.lessons.created, 12)
	assert.Equal(t, []string{"schedule:student-1"}, fx.locker.released)
	require.Len(t, fx.audit.logs, 1)
	assert.Equal(t, models.AuditActionScheduleCreate, fx.audit.logs[0].Action)
}

func TestRecurringLessonServiceDefaultsDuration(t *testing.T) {
	db, mock := newTxProviderMock(t)
	fx := newRecurringFixture(db)
	mock.ExpectBegin()
	mock.ExpectCommit()

	day := int(time.Monday)
	lessons, err := fx.service.Generate(context.Background(), "student-1", dto.GenerateScheduleRequest{DayOfWeek: &day, Time: "09:00"})
	require.NoError(t, err)
	require.Len(t, lessons, 12)
	assert.Equal(t, 60*time.Minute, lessons[0].EndTime.Sub(lessons[0].StartTime))
	assert.True(t, time.Date(2024, 1, 8, 9, 0, 0, 0, civilZone).Equal(lessons[0].StartTime))
	assert.JSONEq(t, `[{"day":1,"time":"09:00","duration":60,"subject":""}]`, string(fx.students.descriptor))
}

func TestRecurringLessonServiceNoTutor(t *testing.T) {
	db, mock := newTxProviderMock(t)
	fx := newRecurringFixture(db)
	fx.tutors.err = sql.ErrNoRows

	day := 1
	_, err := fx.service.Generate(context.Background(), "student-1", dto.GenerateScheduleRequest{DayOfWeek: &day, Time: "09:00"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Empty(t, fx.students.id)
	assert.Empty(t, fx.lessons.created)
	assert.Empty(t, fx.locker.acquired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecurringLessonServiceUnknownStudentRollsBack(t *testing.T) {
	db, mock := newTxProviderMock(t)
	fx := newRecurringFixture(db)
	fx.students.err = sql.ErrNoRows
	mock.ExpectBegin()
	mock.ExpectRollback()

	day := 1
	_, err := fx.service.Generate(context.Background(), "missing", dto.GenerateScheduleRequest{DayOfWeek: &day, Time: "09:00"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, fx.lessons.created)
	assert.Empty(t, fx.audit.logs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecurringLessonServiceInsertFailureRollsBack(t *testing.T) {
	db, mock := newTxProviderMock(t)
	fx := newRecurringFixture(db)
	fx.lessons.err = errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	day := 1
	_, err := fx.service.Generate(context.Background(), "student-1", dto.GenerateScheduleRequest{DayOfWeek: &day, Time: "09:00"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecurringLessonServiceRejectsInvalidInput(t *testing.T) {
	db, mock := newTxProviderMock(t)
	fx := newRecurringFixture(db)

	late := 7
	monday := 1
	cases := []dto.GenerateScheduleRequest{
		{DayOfWeek: &late, Time: "09:00"},
		{Time: "09:00"},
		{DayOfWeek: &monday, Time: "9am"},
		{DayOfWeek: &monday, Time: "24:00"},
	}
	for _, req := range cases {
		_, err := fx.service.Generate(context.Background(), "student-1", req)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
	assert.Empty(t, fx.students.id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecurringLessonServiceLockHeld(t *testing.T) {
	db, mock := newTxProviderMock(t)
	fx := newRecurringFixture(db)
	fx.locker.busy = true

	day := 1
	_, err := fx.service.Generate(context.Background(), "student-1", dto.GenerateScheduleRequest{DayOfWeek: &day, Time: "09:00"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrLocked.Code, appErr.Code)
	assert.Equal(t, 409, appErr.Status)
	assert.Empty(t, fx.locker.released)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecurringLessonServiceLockErrorIsNotFatal(t *testing.T) {
	db, mock := newTxProviderMock(t)
	fx := newRecurringFixture(db)
	fx.locker.err = errors.New("redis down")
	mock.ExpectBegin()
	mock.ExpectCommit()

	day := 1
	lessons, err := fx.service.Generate(context.Background(), "student-1", dto.GenerateScheduleRequest{DayOfWeek: &day, Time: "09:00"})
	require.NoError(t, err)
	assert.Len(t, lessons, 12)
	assert.Empty(t, fx.locker.released)
}

type recurringFixture struct {
	service  *RecurringLessonService
	students *scheduleStudentStub
	lessons  *scheduleLessonStub
	tutors   *tutorStub
	locker   *lockerStub
	audit    *auditStub
}

func newRecurringFixture(db txProvider) *recurringFixture {
	fx := &recurringFixture{
		students: &scheduleStudentStub{},
		lessons:  &scheduleLessonStub{},
		tutors:   &tutorStub{tutor: &models.Tutor{UserID: "tutor-1", ProfileID: "profile-1", Name: "Tutor"}},
		locker:   &lockerStub{},
		audit:    &auditStub{},
	}
	fx.service = NewRecurringLessonService(db, fx.students, fx.lessons, fx.tutors, fx.locker, nil, fx.audit, NewMetricsService(), nil, nil,
		RecurringLessonConfig{Location: civilZone})
	fx.service.now = func() time.Time { return time.Date(2024, 1, 1, 10, 0, 0, 0, civilZone) }
	return fx
}

type scheduleStudentStub struct {
	id         string
	descriptor types.JSONText
	err        error
}

func (s *scheduleStudentStub) UpdateFixedScheduleWithTx(ctx context.Context, tx *sqlx.Tx, id string, descriptor types.JSONText) error {
	if s.err != nil {
		return s.err
	}
	s.id = id
	s.descriptor = descriptor
	return nil
}

type scheduleLessonStub struct {
	created []models.Lesson
	err     error
}

func (s *scheduleLessonStub) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, lessons []models.Lesson) error {
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, lessons...)
	return nil
}

type tutorStub struct {
	tutor *models.Tutor
	err   error
}

func (s *tutorStub) FindPrimary(ctx context.Context) (*models.Tutor, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.tutor, nil
}

type lockerStub struct {
	busy     bool
	err      error
	acquired []string
	released []string
}

func (s *lockerStub) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if s.busy {
		return false, nil
	}
	s.acquired = append(s.acquired, key)
	return true, nil
}

func (s *lockerStub) Release(ctx context.Context, key string) error {
	s.released = append(s.released, key)
	return nil
}

type auditStub struct {
	logs []*models.AuditLog
}

func (s *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.logs = append(s.logs, log)
	return nil
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func (m *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return m.db.BeginTxx(ctx, opts)
}
