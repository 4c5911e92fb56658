package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/tutor-desk-api/internal/models"
)

const studentSelect = `SELECT sp.id, sp.user_id, sp.tutor_id, u.name, u.email, sp.school, sp.grade, sp.subjects, sp.parent_name, sp.parent_phone, sp.location_url, sp.fixed_schedule, sp.created_at, sp.updated_at`

// StudentRepository manages persistence for student profiles.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns the tutor's students ordered by grade, with their lesson counts.
func (r *StudentRepository) List(ctx context.Context, tutorID string, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM student_profiles sp JOIN users u ON u.id = sp.user_id"
	args := []interface{}{tutorID}
	conditions := []string{"sp.tutor_id = $1"}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.name) LIKE $%d OR LOWER(sp.school) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf(`%s,
        (SELECT COUNT(*) FROM lessons l WHERE l.student_id = sp.id) AS lesson_count
        %s ORDER BY sp.grade DESC, u.name ASC LIMIT %d OFFSET %d`, studentSelect, base, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student profile by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := studentSelect + ` FROM student_profiles sp JOIN users u ON u.id = sp.user_id WHERE sp.id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// CountByTutor returns how many students belong to the tutor.
func (r *StudentRepository) CountByTutor(ctx context.Context, tutorID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM student_profiles WHERE tutor_id = $1`, tutorID); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return total, nil
}

// CreateWithTx inserts a student profile inside an existing transaction.
func (r *StudentRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, student *models.Student) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if len(student.FixedSchedule) == 0 {
		student.FixedSchedule = types.JSONText(`[]`)
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	const query = `INSERT INTO student_profiles (id, user_id, tutor_id, school, grade, subjects, parent_name, parent_phone, location_url, fixed_schedule, created_at, updated_at)
        VALUES (:id, :user_id, :tutor_id, :school, :grade, :subjects, :parent_name, :parent_phone, :location_url, :fixed_schedule, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// UpdateWithTx modifies the editable profile fields inside an existing transaction.
func (r *StudentRepository) UpdateWithTx(ctx context.Context, tx *sqlx.Tx, student *models.Student) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE student_profiles SET school = :school, grade = :grade, subjects = :subjects, parent_name = :parent_name, parent_phone = :parent_phone, location_url = :location_url, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, tx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return expectAffected(res, "update student")
}

// UpdateFixedScheduleWithTx overwrites the fixed schedule descriptor. An unknown student
// yields sql.ErrNoRows.
func (r *StudentRepository) UpdateFixedScheduleWithTx(ctx context.Context, tx *sqlx.Tx, id string, descriptor types.JSONText) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	const query = `UPDATE student_profiles SET fixed_schedule = $2, updated_at = $3 WHERE id = $1`
	res, err := tx.ExecContext(ctx, query, id, descriptor, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update fixed schedule: %w", err)
	}
	return expectAffected(res, "update fixed schedule")
}
