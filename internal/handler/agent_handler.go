package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-desk-api/internal/dto"
	"github.com/noah-isme/tutor-desk-api/internal/models"
	appErrors "github.com/noah-isme/tutor-desk-api/pkg/errors"
	"github.com/noah-isme/tutor-desk-api/pkg/response"
)

type agentExecutor interface {
	Execute(ctx context.Context, actorID string, req dto.AgentExecuteRequest) (*models.AgentResult, error)
}

// AgentHandler runs password-confirmed assistant commands.
type AgentHandler struct {
	service agentExecutor
}

// NewAgentHandler constructs the handler.
func NewAgentHandler(svc agentExecutor) *AgentHandler {
	return &AgentHandler{service: svc}
}

// Execute godoc
// @Summary Execute an assistant command
// @Description The command is taken from the assistant reply or from functionName and args.
// @Tags Agent
// @Accept json
// @Produce json
// @Param payload body dto.AgentExecuteRequest true "Command"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /agent/execute [post]
func (h *AgentHandler) Execute(c *gin.Context) {
	claims := actorFromContext(c)
	if claims == nil {
		return
	}
	var req dto.AgentExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid agent payload"))
		return
	}
	result, err := h.service.Execute(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
