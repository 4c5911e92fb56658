package dto

import (
	"bytes"
	"strconv"
	"strings"
)

// Minutes is a lesson length. Absent, unparseable or non-positive input decodes to zero, which
// the generator replaces with its default duration.
type Minutes int

// UnmarshalJSON accepts numbers and numeric strings and never fails.
func (m *Minutes) UnmarshalJSON(data []byte) error {
	*m = parseMinutes(string(bytes.Trim(data, `"`)))
	return nil
}

// UnmarshalParam decodes form and query values.
func (m *Minutes) UnmarshalParam(param string) error {
	*m = parseMinutes(param)
	return nil
}

func parseMinutes(raw string) Minutes {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0
	}
	return Minutes(n)
}

// GenerateScheduleRequest sets a student's fixed weekly slot and generates the lessons for it.
type GenerateScheduleRequest struct {
	DayOfWeek *int    `json:"dayOfWeek" form:"dayOfWeek" validate:"required,min=0,max=6"`
	Time      string  `json:"time" form:"time" validate:"required,clock"`
	Duration  Minutes `json:"duration" form:"duration" validate:"max=1440"`
	Subject   string  `json:"subject" form:"subject" validate:"max=120"`
}
