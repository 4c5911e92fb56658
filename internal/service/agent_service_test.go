package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-desk-api/internal/dto"
	"github.com/noah-isme/tutor-desk-api/internal/models"
	appErrors "github.com/noah-isme/tutor-desk-api/pkg/errors"
)

func TestParseCommand(t *testing.T) {
	reply := "```json\n{\"action\": \"REQUIRE_AUTH\", \"operation\": \"delete student Ana\", \"functionName\": \"deleteStudent\", \"args\": {\"studentId\": \"s1\"}}\n```"
	cmd, err := ParseCommand(reply)
	require.NoError(t, err)
	assert.Equal(t, AgentDeleteStudent, cmd.FunctionName)
	assert.Equal(t, "s1", cmd.Args["studentId"])
	assert.Equal(t, "delete student Ana", cmd.Operation)

	_, err = ParseCommand("Ana has three lessons this week.")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = ParseCommand(`{"action": "REQUIRE_AUTH"}`)
	require.Error(t, err)

	_, err = ParseCommand(`{"action": "REQUIRE_AUTH", "functionName": `)
	require.Error(t, err)
}

func TestAgentServiceExecuteDeletesStudent(t *testing.T) {
	fx := newAgentFixture(true)

	res, err := fx.service.Execute(context.Background(), "tutor-1", dto.AgentExecuteRequest{
		Password: "secret",
		Reply:    `{"action":"REQUIRE_AUTH","functionName":"deleteStudent","args":{"studentId":"s1"}}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "s1", res.TargetID)
	assert.Equal(t, int64(1), res.Affected)
	assert.Equal(t, []string{"s1"}, fx.students.deleted)
	require.Len(t, fx.audit.logs, 1)
	assert.Equal(t, models.AuditActionAgentExecute, fx.audit.logs[0].Action)
}

func TestAgentServiceExecuteWrongPassword(t *testing.T) {
	fx := newAgentFixture(true)

	_, err := fx.service.Execute(context.Background(), "tutor-1", dto.AgentExecuteRequest{
		Password:     "nope",
		FunctionName: AgentCancelLesson,
		Args:         map[string]interface{}{"lessonId": "l1"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
	assert.Empty(t, fx.lessons.calls)
	require.Len(t, fx.audit.logs, 1)
	assert.Equal(t, models.AuditActionAgentAuthFailed, fx.audit.logs[0].Action)
}

func TestAgentServiceExecuteRejectsUnknownFunction(t *testing.T) {
	fx := newAgentFixture(true)

	_, err := fx.service.Execute(context.Background(), "tutor-1", dto.AgentExecuteRequest{Password: "secret", FunctionName: "dropDatabase"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAgentServiceExecuteLessonFunctions(t *testing.T) {
	fx := newAgentFixture(true)
	ctx := context.Background()

	for _, fn := range []string{AgentCancelLesson, AgentHardDeleteLesson, AgentClearLessonRecord} {
		_, err := fx.service.Execute(ctx, "tutor-1", dto.AgentExecuteRequest{Password: "secret", FunctionName: fn, Args: map[string]interface{}{"lessonId": "l1"}})
		require.NoError(t, err, fn)
	}
	res, err := fx.service.Execute(ctx, "tutor-1", dto.AgentExecuteRequest{Password: "secret", FunctionName: AgentResetAllLessons})
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.Affected)
	assert.Equal(t, []string{"cancel:l1", "delete:l1", "clear:l1", "reset"}, fx.lessons.calls)

	_, err = fx.service.Execute(ctx, "tutor-1", dto.AgentExecuteRequest{Password: "secret", FunctionName: AgentCancelLesson})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAgentServiceDisabled(t *testing.T) {
	fx := newAgentFixture(false)
	_, err := fx.service.Execute(context.Background(), "tutor-1", dto.AgentExecuteRequest{Password: "secret", FunctionName: AgentResetAllLessons})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAgentDisabled.Code, appErrors.FromError(err).Code)
	assert.Empty(t, fx.lessons.calls)
}

type agentFixture struct {
	service  *AgentService
	students *agentStudentStub
	lessons  *agentLessonStub
	audit    *auditStub
}

func newAgentFixture(enabled bool) *agentFixture {
	fx := &agentFixture{students: &agentStudentStub{}, lessons: &agentLessonStub{}, audit: &auditStub{}}
	fx.service = NewAgentService(fx.students, fx.lessons, passwordStub{password: "secret"}, fx.audit, nil, nil, nil, enabled)
	return fx
}

type agentStudentStub struct {
	deleted []string
}

func (s *agentStudentStub) Delete(ctx context.Context, actorID, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type agentLessonStub struct {
	calls []string
}

func (s *agentLessonStub) Delete(ctx context.Context, actorID, id string) error {
	s.calls = append(s.calls, "delete:"+id)
	return nil
}

func (s *agentLessonStub) ChangeStatus(ctx context.Context, actorID, id string, req dto.LessonStatusRequest) (*models.Lesson, error) {
	s.calls = append(s.calls, "cancel:"+id)
	return &models.Lesson{ID: id, Status: models.LessonStatusCancelled}, nil
}

func (s *agentLessonStub) ClearRecord(ctx context.Context, id string) error {
	s.calls = append(s.calls, "clear:"+id)
	return nil
}

func (s *agentLessonStub) ResetAll(ctx context.Context, actorID, password string) (int64, error) {
	s.calls = append(s.calls, "reset")
	return 7, nil
}
