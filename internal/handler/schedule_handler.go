package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-desk-api/internal/dto"
	"github.com/noah-isme/tutor-desk-api/internal/models"
	appErrors "github.com/noah-isme/tutor-desk-api/pkg/errors"
	"github.com/noah-isme/tutor-desk-api/pkg/response"
)

type scheduleGenerator interface {
	Generate(ctx context.Context, studentID string, req dto.GenerateScheduleRequest) ([]models.Lesson, error)
}

// ScheduleHandler exposes the recurring lesson generator.
type ScheduleHandler struct {
	service scheduleGenerator
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(svc scheduleGenerator) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// Generate godoc
// @Summary Set a student's fixed weekly slot and generate the lessons
// @Description Accepts JSON or form fields. A missing or invalid duration falls back to 60 minutes.
// @Tags Schedule
// @Accept json
// @Accept x-www-form-urlencoded
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.GenerateScheduleRequest true "Weekly slot"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /students/{id}/schedule [post]
func (h *ScheduleHandler) Generate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid schedule payload"))
		return
	}
	lessons, err := h.service.Generate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lessons)
}
