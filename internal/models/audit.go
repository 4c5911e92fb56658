package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Audit actions written to audit_logs.
const (
	AuditActionLogin           = "LOGIN"
	AuditActionLogout          = "LOGOUT"
	AuditActionSecurityUpdate  = "SECURITY_UPDATE"
	AuditActionScheduleCreate  = "SCHEDULE_GENERATE"
	AuditActionLessonStatus    = "LESSON_STATUS"
	AuditActionLessonDelete    = "LESSON_DELETE"
	AuditActionLessonReset     = "LESSON_RESET_ALL"
	AuditActionStudentCreate   = "STUDENT_CREATE"
	AuditActionStudentUpdate   = "STUDENT_UPDATE"
	AuditActionStudentDelete   = "STUDENT_DELETE"
	AuditActionExamChange      = "EXAM_CHANGE"
	AuditActionSettingsUpdate  = "SETTINGS_UPDATE"
	AuditActionAgentExecute    = "AGENT_EXECUTE"
	AuditActionAgentAuthFailed = "AGENT_AUTH_FAILED"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string         `db:"id" json:"id"`
	UserID     *string        `db:"user_id" json:"user_id,omitempty"`
	Action     string         `db:"action" json:"action"`
	Resource   string         `db:"resource" json:"resource"`
	ResourceID *string        `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  types.JSONText `db:"old_values" json:"old_values,omitempty"`
	NewValues  types.JSONText `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string         `db:"ip_address" json:"ip_address"`
	UserAgent  string         `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}
