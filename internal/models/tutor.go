package models

import "time"

// Tutor is the tutor account joined with its profile. The deployment is single tenant, so the
// first tutor row is the one every operation works against.
type Tutor struct {
	UserID    string    `db:"user_id" json:"user_id"`
	ProfileID string    `db:"profile_id" json:"profile_id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Subjects  string    `db:"subjects" json:"subjects"`
	Bio       *string   `db:"bio" json:"bio,omitempty"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SettingsUpdate carries the editable tutor settings.
type SettingsUpdate struct {
	Name  string `json:"name" validate:"required,max=120"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
	Bio   string `json:"bio" validate:"omitempty,max=2000"`
}
