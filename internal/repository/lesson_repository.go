package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutor-desk-api/internal/models"
)

const (
	lessonSelect = `SELECT l.id, l.tutor_id, l.student_id, u.name AS student_name, l.subject, l.start_time, l.end_time, l.status, l.is_completed,
        l.content, l.homework, l.next_exam_scope, l.note, l.tags, l.created_at, l.updated_at
        FROM lessons l
        JOIN student_profiles sp ON sp.id = l.student_id
        JOIN users u ON u.id = sp.user_id`

	insertLessonQuery = `INSERT INTO lessons (id, tutor_id, student_id, subject, start_time, end_time, status, is_completed, content, homework, next_exam_scope, note, tags, created_at, updated_at)
        VALUES (:id, :tutor_id, :student_id, :subject, :start_time, :end_time, :status, :is_completed, :content, :homework, :next_exam_scope, :note, :tags, :created_at, :updated_at)`
)

// LessonRepository manages persistence for lessons.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs a LessonRepository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// BulkCreateWithTx inserts all lessons with one multi-row statement on the given transaction.
func (r *LessonRepository) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, lessons []models.Lesson) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if len(lessons) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range lessons {
		prepareLesson(&lessons[i], now)
	}
	if _, err := sqlx.NamedExecContext(ctx, tx, insertLessonQuery, lessons); err != nil {
		return fmt.Errorf("bulk insert lessons: %w", err)
	}
	return nil
}

// Create inserts a single lesson.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	prepareLesson(lesson, time.Now().UTC())
	if _, err := r.db.NamedExecContext(ctx, insertLessonQuery, lesson); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

func prepareLesson(lesson *models.Lesson, now time.Time) {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	if lesson.Status == "" {
		lesson.Status = models.LessonStatusNormal
	}
	if len(lesson.Tags) == 0 {
		lesson.Tags = models.EmptyTags
	}
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = now
	}
	lesson.UpdatedAt = now
}

// FindByID fetches a lesson with its student name.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, lessonSelect+` WHERE l.id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find lesson: %w", err)
	}
	return &lesson, nil
}

// UpdateRecord rewrites the student, subject, slot and teaching content of a lesson and marks it completed.
func (r *LessonRepository) UpdateRecord(ctx context.Context, lesson *models.Lesson) error {
	lesson.UpdatedAt = time.Now().UTC()
	lesson.IsCompleted = true
	const query = `UPDATE lessons SET student_id = :student_id, subject = :subject, start_time = :start_time, end_time = :end_time,
        content = :content, homework = :homework, next_exam_scope = :next_exam_scope, note = :note, is_completed = :is_completed, updated_at = :updated_at
        WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, lesson)
	if err != nil {
		return fmt.Errorf("update lesson record: %w", err)
	}
	return expectAffected(res, "update lesson record")
}

// ClearRecord wipes the teaching content and marks the lesson pending again.
func (r *LessonRepository) ClearRecord(ctx context.Context, id string) error {
	const query = `UPDATE lessons SET content = NULL, homework = NULL, next_exam_scope = NULL, note = NULL, is_completed = FALSE, updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("clear lesson record: %w", err)
	}
	return expectAffected(res, "clear lesson record")
}

// UpdateStatus sets the status without touching the slot. The update only applies while the
// lesson is still in one of the from states, so concurrent transitions cannot revive a cancelled lesson.
func (r *LessonRepository) UpdateStatus(ctx context.Context, id string, status models.LessonStatus, from ...models.LessonStatus) error {
	query := `UPDATE lessons SET status = $2, updated_at = $3 WHERE id = $1`
	args := []interface{}{id, status, time.Now().UTC()}
	query, args = appendStatusGuard(query, args, from)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update lesson status: %w", err)
	}
	return expectAffected(res, "update lesson status")
}

// Reschedule moves the lesson to a new slot and marks it RESCHEDULED.
func (r *LessonRepository) Reschedule(ctx context.Context, id string, start, end time.Time, from ...models.LessonStatus) error {
	query := `UPDATE lessons SET status = $2, start_time = $3, end_time = $4, updated_at = $5 WHERE id = $1`
	args := []interface{}{id, models.LessonStatusRescheduled, start, end, time.Now().UTC()}
	query, args = appendStatusGuard(query, args, from)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("reschedule lesson: %w", err)
	}
	return expectAffected(res, "reschedule lesson")
}

func appendStatusGuard(query string, args []interface{}, from []models.LessonStatus) (string, []interface{}) {
	if len(from) == 0 {
		return query, args
	}
	query += " AND status IN ("
	for i, status := range from {
		if i > 0 {
			query += ", "
		}
		args = append(args, status)
		query += fmt.Sprintf("$%d", len(args))
	}
	return query + ")", args
}

// Delete permanently removes a lesson.
func (r *LessonRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	return expectAffected(res, "delete lesson")
}

// DeleteByTutor removes every lesson owned by the tutor and returns how many were removed.
func (r *LessonRepository) DeleteByTutor(ctx context.Context, tutorID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM lessons WHERE tutor_id = $1`, tutorID)
	if err != nil {
		return 0, fmt.Errorf("delete tutor lessons: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete tutor lessons rows affected: %w", err)
	}
	return n, nil
}

// ListRecords returns completed, non-cancelled lessons newest first.
func (r *LessonRepository) ListRecords(ctx context.Context, tutorID string, filter models.LessonRecordFilter) ([]models.Lesson, int, error) {
	where := ` WHERE l.tutor_id = $1 AND l.status <> $2 AND l.is_completed = TRUE`
	args := []interface{}{tutorID, models.LessonStatusCancelled}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		where += fmt.Sprintf(" AND l.student_id = $%d", len(args))
	}
	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("%s%s ORDER BY l.start_time DESC LIMIT %d OFFSET %d", lessonSelect, where, size, offset)
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list lesson records: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM lessons l"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count lesson records: %w", err)
	}
	return lessons, total, nil
}

// ListFrom returns lessons starting at or after from in ascending order. A positive limit caps
// the result and includeCancelled controls whether cancelled lessons are part of it.
func (r *LessonRepository) ListFrom(ctx context.Context, tutorID string, from time.Time, includeCancelled bool, limit int) ([]models.Lesson, error) {
	query := lessonSelect + ` WHERE l.tutor_id = $1 AND l.start_time >= $2`
	args := []interface{}{tutorID, from}
	if !includeCancelled {
		query += ` AND l.status <> $3`
		args = append(args, models.LessonStatusCancelled)
	}
	query += ` ORDER BY l.start_time ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, args...); err != nil {
		return nil, fmt.Errorf("list lessons from: %w", err)
	}
	return lessons, nil
}

// ListRange returns non-cancelled lessons with from <= start < to.
func (r *LessonRepository) ListRange(ctx context.Context, tutorID string, from, to time.Time) ([]models.Lesson, error) {
	query := lessonSelect + ` WHERE l.tutor_id = $1 AND l.status <> $2 AND l.start_time >= $3 AND l.start_time < $4 ORDER BY l.start_time ASC`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, tutorID, models.LessonStatusCancelled, from, to); err != nil {
		return nil, fmt.Errorf("list lessons in range: %w", err)
	}
	return lessons, nil
}

// CountRange counts non-cancelled lessons with from <= start <= to.
func (r *LessonRepository) CountRange(ctx context.Context, tutorID string, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM lessons WHERE tutor_id = $1 AND status <> $2 AND start_time >= $3 AND start_time <= $4`
	var total int
	if err := r.db.GetContext(ctx, &total, query, tutorID, models.LessonStatusCancelled, from, to); err != nil {
		return 0, fmt.Errorf("count lessons in range: %w", err)
	}
	return total, nil
}

// RecentByStudent returns the student's latest lessons by start time.
func (r *LessonRepository) RecentByStudent(ctx context.Context, studentID string, limit int) ([]models.Lesson, error) {
	query := fmt.Sprintf("%s WHERE l.student_id = $1 ORDER BY l.start_time DESC LIMIT %d", lessonSelect, limit)
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, studentID); err != nil {
		return nil, fmt.Errorf("list recent lessons: %w", err)
	}
	return lessons, nil
}

// ListCompletedByStudent returns every completed lesson of a student in chronological order.
func (r *LessonRepository) ListCompletedByStudent(ctx context.Context, studentID string) ([]models.Lesson, error) {
	query := lessonSelect + ` WHERE l.student_id = $1 AND l.is_completed = TRUE AND l.status <> $2 ORDER BY l.start_time ASC`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, studentID, models.LessonStatusCancelled); err != nil {
		return nil, fmt.Errorf("list completed lessons: %w", err)
	}
	return lessons, nil
}
