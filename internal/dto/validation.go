package dto

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Layouts accepted for civil dates and times of day.
const (
	ClockLayout = "15:04"
	DateLayout  = "2006-01-02"
)

// NewValidator returns a validator with the clock and civildate rules registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(ClockLayout, fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("civildate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(DateLayout, fl.Field().String())
		return err == nil
	})
	return v
}

// ParseClock splits an HH:MM value into hour and minute.
func ParseClock(value string) (int, int, error) {
	t, err := time.Parse(ClockLayout, value)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

// CivilTime combines a YYYY-MM-DD date and an HH:MM time in loc.
func CivilTime(date, clock string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+ClockLayout, date+" "+clock, loc)
}
