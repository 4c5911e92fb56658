package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutor-desk-api/internal/models"
)

// TutorRepository reads and updates the tutor account of the deployment.
type TutorRepository struct {
	db *sqlx.DB
}

// NewTutorRepository constructs a TutorRepository.
func NewTutorRepository(db *sqlx.DB) *TutorRepository {
	return &TutorRepository{db: db}
}

// FindPrimary returns the first tutor account with a profile. sql.ErrNoRows means none exists.
func (r *TutorRepository) FindPrimary(ctx context.Context) (*models.Tutor, error) {
	const query = `SELECT u.id AS user_id, tp.id AS profile_id, u.name, u.email, u.phone, tp.subjects, tp.bio, u.updated_at
        FROM users u
        JOIN tutor_profiles tp ON tp.user_id = u.id
        WHERE u.role = $1
        ORDER BY u.created_at ASC
        LIMIT 1`
	var tutor models.Tutor
	if err := r.db.GetContext(ctx, &tutor, query, models.RoleTutor); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find primary tutor: %w", err)
	}
	return &tutor, nil
}

// UpdateSettings writes the name and phone on users and the bio on tutor_profiles atomically.
func (r *TutorRepository) UpdateSettings(ctx context.Context, tutor *models.Tutor) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update settings: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE users SET name = $2, phone = $3, updated_at = $4 WHERE id = $1`, tutor.UserID, tutor.Name, tutor.Phone, now); err != nil {
		return fmt.Errorf("update tutor user: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE tutor_profiles SET bio = $2 WHERE id = $1`, tutor.ProfileID, tutor.Bio); err != nil {
		return fmt.Errorf("update tutor profile: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update settings: %w", err)
	}
	tutor.UpdatedAt = now
	return nil
}
