package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-desk-api/internal/models"
)

var studentRowColumns = []string{"id", "user_id", "tutor_id", "name", "email", "school", "grade", "subjects", "parent_name", "parent_phone", "location_url", "fixed_schedule", "created_at", "updated_at"}

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(append(append([]string{}, studentRowColumns...), "lesson_count")).
		AddRow("s1", "u1", "tp1", "Ming", "student_1@system.local", "Jianguo", "10", "Math", "", "0912", "", []byte(`[]`), now, now, 3)
	mock.ExpectQuery(`FROM student_profiles sp JOIN users u ON u.id = sp.user_id WHERE sp.tutor_id = \$1 AND \(LOWER\(u.name\) LIKE \$2 OR LOWER\(sp.school\) LIKE \$2\) ORDER BY sp.grade DESC, u.name ASC LIMIT 20 OFFSET 0`).
		WithArgs("tp1", "%ming%").
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM student_profiles sp`).
		WithArgs("tp1", "%ming%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), "tp1", models.StudentFilter{Search: "Ming"})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, 3, students[0].LessonCount)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(studentRowColumns).
		AddRow("s1", "u1", "tp1", "Ming", "student_1@system.local", "Jianguo", "10", "Math", "", "", "", []byte(`[{"day":1,"time":"09:00","duration":60,"subject":"Math"}]`), now, now)
	mock.ExpectQuery(`WHERE sp.id = \$1`).WithArgs("s1").WillReturnRows(rows)

	student, err := repo.FindByID(context.Background(), "s1")
	require.NoError(t, err)
	slots, err := student.Slots()
	require.NoError(t, err)
	assert.Equal(t, "09:00", slots[0].Time)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateWithTxDefaultsSchedule(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO student_profiles").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	student := &models.Student{UserID: "u1", TutorID: "tp1", School: "Jianguo"}
	require.NoError(t, repo.CreateWithTx(context.Background(), tx, student))
	require.NoError(t, tx.Commit())
	assert.Equal(t, types.JSONText(`[]`), student.FixedSchedule)
	assert.NotEmpty(t, student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateFixedScheduleUnknownStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE student_profiles SET fixed_schedule").
		WithArgs("missing", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.Beginx()
	require.NoError(t, err)
	err = repo.UpdateFixedScheduleWithTx(context.Background(), tx, "missing", types.JSONText(`[]`))
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryRejectsNilTx(t *testing.T) {
	repo := NewStudentRepository(nil)
	assert.Error(t, repo.UpdateFixedScheduleWithTx(context.Background(), nil, "s1", nil))
	assert.Error(t, repo.CreateWithTx(context.Background(), nil, &models.Student{}))
}
