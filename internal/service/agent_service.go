package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-desk-api/internal/dto"
	"github.com/noah-isme/tutor-desk-api/internal/models"
	appErrors "github.com/noah-isme/tutor-desk-api/pkg/errors"
)

// Functions an agent command may invoke.
const (
	AgentDeleteStudent     = "deleteStudent"
	AgentHardDeleteLesson  = "hardDeleteLesson"
	AgentCancelLesson      = "cancelLesson"
	AgentClearLessonRecord = "clearLessonRecord"
	AgentResetAllLessons   = "resetAllLessons"
)

type agentStudentOperations interface {
	Delete(ctx context.Context, actorID, id string) error
}

type agentLessonOperations interface {
	Delete(ctx context.Context, actorID, id string) error
	ChangeStatus(ctx context.Context, actorID, id string, req dto.LessonStatusRequest) (*models.Lesson, error)
	ClearRecord(ctx context.Context, id string) error
	ResetAll(ctx context.Context, actorID, password string) (int64, error)
}

// AgentService executes privileged commands proposed by the assistant after the tutor re-enters
// the password.
type AgentService struct {
	students  agentStudentOperations
	lessons   agentLessonOperations
	passwords passwordVerifier
	audit     auditWriter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	enabled   bool
}

// NewAgentService constructs an AgentService.
func NewAgentService(
	students agentStudentOperations,
	lessons agentLessonOperations,
	passwords passwordVerifier,
	audit auditWriter,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	enabled bool,
) *AgentService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentService{
		students:  students,
		lessons:   lessons,
		passwords: passwords,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		enabled:   enabled,
	}
}

// ParseCommand extracts the command JSON from an assistant reply, tolerating markdown code fences.
func ParseCommand(reply string) (*models.AgentCommand, error) {
	clean := strings.TrimSpace(reply)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	if !strings.HasPrefix(clean, "{") || !strings.Contains(clean, models.AgentActionRequireAuth) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reply does not carry a command")
	}

	var cmd models.AgentCommand
	if err := json.Unmarshal([]byte(clean), &cmd); err != nil {
		return nil, appErrors.Invalid(err, "reply command is not valid JSON")
	}
	if cmd.Action != models.AgentActionRequireAuth {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reply does not request an authorised action")
	}
	if cmd.FunctionName == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "command has no function name")
	}
	return &cmd, nil
}

// Execute verifies the password and runs the whitelisted function.
func (s *AgentService) Execute(ctx context.Context, actorID string, req dto.AgentExecuteRequest) (*models.AgentResult, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrAgentDisabled, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid agent payload")
	}

	cmd := &models.AgentCommand{Action: models.AgentActionRequireAuth, FunctionName: req.FunctionName, Args: req.Args}
	if strings.TrimSpace(req.Reply) != "" {
		parsed, err := ParseCommand(req.Reply)
		if err != nil {
			return nil, err
		}
		cmd = parsed
	}
	if cmd.FunctionName == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "functionName or reply is required")
	}

	if err := s.passwords.VerifyPassword(ctx, actorID, req.Password); err != nil {
		s.metrics.RecordAgentExecution(cmd.FunctionName, "unauthorized")
		recordAudit(ctx, s.audit, s.logger, actorID, models.AuditActionAgentAuthFailed, "agent", "", map[string]string{"function": cmd.FunctionName})
		return nil, err
	}

	result, err := s.run(ctx, actorID, req.Password, cmd)
	if err != nil {
		s.metrics.RecordAgentExecution(cmd.FunctionName, "failed")
		return nil, err
	}

	s.metrics.RecordAgentExecution(cmd.FunctionName, "success")
	recordAudit(ctx, s.audit, s.logger, actorID, models.AuditActionAgentExecute, "agent", result.TargetID, map[string]interface{}{
		"function":  cmd.FunctionName,
		"operation": cmd.Operation,
		"affected":  result.Affected,
	})
	s.logger.Info("agent command executed", zap.String("function", cmd.FunctionName), zap.String("target_id", result.TargetID))
	return result, nil
}

func (s *AgentService) run(ctx context.Context, actorID, password string, cmd *models.AgentCommand) (*models.AgentResult, error) {
	result := &models.AgentResult{FunctionName: cmd.FunctionName}
	switch cmd.FunctionName {
	case AgentDeleteStudent:
		id, err := stringArg(cmd.Args, "studentId", "id")
		if err != nil {
			return nil, err
		}
		if err := s.students.Delete(ctx, actorID, id); err != nil {
			return nil, err
		}
		result.TargetID, result.Affected, result.Message = id, 1, "student deleted"
	case AgentHardDeleteLesson:
		id, err := stringArg(cmd.Args, "lessonId", "id")
		if err != nil {
			return nil, err
		}
		if err := s.lessons.Delete(ctx, actorID, id); err != nil {
			return nil, err
		}
		result.TargetID, result.Affected, result.Message = id, 1, "lesson deleted"
	case AgentCancelLesson:
		id, err := stringArg(cmd.Args, "lessonId", "id")
		if err != nil {
			return nil, err
		}
		if _, err := s.lessons.ChangeStatus(ctx, actorID, id, dto.LessonStatusRequest{Action: dto.LessonActionCancel}); err != nil {
			return nil, err
		}
		result.TargetID, result.Affected, result.Message = id, 1, "lesson cancelled"
	case AgentClearLessonRecord:
		id, err := stringArg(cmd.Args, "lessonId", "id")
		if err != nil {
			return nil, err
		}
		if err := s.lessons.ClearRecord(ctx, id); err != nil {
			return nil, err
		}
		result.TargetID, result.Affected, result.Message = id, 1, "lesson record cleared"
	case AgentResetAllLessons:
		removed, err := s.lessons.ResetAll(ctx, actorID, password)
		if err != nil {
			return nil, err
		}
		result.Affected, result.Message = removed, fmt.Sprintf("%d lessons deleted", removed)
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("function %q is not allowed", cmd.FunctionName))
	}
	return result, nil
}

// stringArg returns the first non-empty string argument among keys.
func stringArg(args map[string]interface{}, keys ...string) (string, error) {
	for _, key := range keys {
		if v, ok := args[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("argument %s is required", keys[0]))
}
