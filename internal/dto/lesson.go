package dto

// Course change actions.
const (
	LessonActionCancel     = "CANCEL"
	LessonActionReschedule = "RESCHEDULE"
)

// LessonRecordRequest creates or rewrites a lesson record. Date and time are civil values.
type LessonRecordRequest struct {
	StudentID     string `json:"studentId" form:"studentId" validate:"required"`
	Subject       string `json:"subject" form:"subject" validate:"max=120"`
	Date          string `json:"date" form:"date" validate:"required,civildate"`
	Time          string `json:"time" form:"time" validate:"required,clock"`
	Content       string `json:"content" form:"content"`
	Homework      string `json:"homework" form:"homework"`
	NextExamScope string `json:"nextExamScope" form:"nextExamScope"`
	Note          string `json:"note" form:"note"`
}

// LessonStatusRequest cancels or reschedules a lesson. NewDate and NewTime are required for RESCHEDULE.
type LessonStatusRequest struct {
	Action  string `json:"action" form:"actionType" validate:"required,oneof=CANCEL RESCHEDULE"`
	NewDate string `json:"newDate" form:"newDate" validate:"omitempty,civildate"`
	NewTime string `json:"newTime" form:"newTime" validate:"omitempty,clock"`
}

// PasswordConfirmation re-authenticates the tutor before a destructive operation.
type PasswordConfirmation struct {
	Password string `json:"password" form:"password" validate:"required"`
}

// LessonListQuery pages lesson records.
type LessonListQuery struct {
	StudentID string `form:"studentId"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
}
