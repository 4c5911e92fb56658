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

type lessonService interface {
	Get(ctx context.Context, id string) (*models.Lesson, error)
	ListRecords(ctx context.Context, query dto.LessonListQuery) ([]models.Lesson, *models.Pagination, error)
	CreateRecord(ctx context.Context, req dto.LessonRecordRequest) (*models.Lesson, error)
	UpdateRecord(ctx context.Context, id string, req dto.LessonRecordRequest) (*models.Lesson, error)
	ClearRecord(ctx context.Context, id string) error
	Delete(ctx context.Context, actorID, id string) error
	ChangeStatus(ctx context.Context, actorID, id string, req dto.LessonStatusRequest) (*models.Lesson, error)
	ListCourseChanges(ctx context.Context) ([]models.Lesson, error)
	ResetAll(ctx context.Context, actorID, password string) (int64, error)
}

// LessonHandler exposes lesson records and course changes.
type LessonHandler struct {
	service lessonService
}

// NewLessonHandler constructs the handler.
func NewLessonHandler(svc lessonService) *LessonHandler {
	return &LessonHandler{service: svc}
}

// ListRecords godoc
// @Summary List completed lesson records, newest first
// @Tags Lessons
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /lessons [get]
func (h *LessonHandler) ListRecords(c *gin.Context) {
	query := dto.LessonListQuery{
		StudentID: c.Query("studentId"),
		Page:      queryInt(c, "page"),
		PageSize:  queryInt(c, "page_size"),
	}
	lessons, pagination, err := h.service.ListRecords(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, pagination)
}

// Get godoc
// @Summary Get lesson
// @Tags Lessons
// @Produce json
// @Param id path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lessons/{id} [get]
func (h *LessonHandler) Get(c *gin.Context) {
	lesson, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// CreateRecord godoc
// @Summary Record a completed lesson
// @Tags Lessons
// @Accept json
// @Produce json
// @Param payload body dto.LessonRecordRequest true "Lesson record"
// @Success 201 {object} response.Envelope
// @Router /lessons [post]
func (h *LessonHandler) CreateRecord(c *gin.Context) {
	var req dto.LessonRecordRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid lesson record payload"))
		return
	}
	lesson, err := h.service.CreateRecord(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lesson)
}

// UpdateRecord godoc
// @Summary Rewrite a lesson record
// @Tags Lessons
// @Accept json
// @Produce json
// @Param id path string true "Lesson ID"
// @Param payload body dto.LessonRecordRequest true "Lesson record"
// @Success 200 {object} response.Envelope
// @Router /lessons/{id} [put]
func (h *LessonHandler) UpdateRecord(c *gin.Context) {
	var req dto.LessonRecordRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid lesson record payload"))
		return
	}
	lesson, err := h.service.UpdateRecord(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// ClearRecord godoc
// @Summary Clear the record fields and mark the lesson not completed
// @Tags Lessons
// @Param id path string true "Lesson ID"
// @Success 204
// @Router /lessons/{id}/record [delete]
func (h *LessonHandler) ClearRecord(c *gin.Context) {
	if err := h.service.ClearRecord(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete lesson permanently
// @Tags Lessons
// @Param id path string true "Lesson ID"
// @Success 204
// @Router /lessons/{id} [delete]
func (h *LessonHandler) Delete(c *gin.Context) {
	claims := actorFromContext(c)
	if claims == nil {
		return
	}
	if err := h.service.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ChangeStatus godoc
// @Summary Cancel or reschedule a lesson
// @Tags Course changes
// @Accept json
// @Produce json
// @Param id path string true "Lesson ID"
// @Param payload body dto.LessonStatusRequest true "Status change"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /lessons/{id}/status [post]
func (h *LessonHandler) ChangeStatus(c *gin.Context) {
	claims := actorFromContext(c)
	if claims == nil {
		return
	}
	var req dto.LessonStatusRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid status payload"))
		return
	}
	lesson, err := h.service.ChangeStatus(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// CourseChanges godoc
// @Summary Lessons starting now or later, ascending
// @Tags Course changes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /course-changes [get]
func (h *LessonHandler) CourseChanges(c *gin.Context) {
	lessons, err := h.service.ListCourseChanges(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, nil)
}

// ResetAll godoc
// @Summary Delete every lesson of the tutor
// @Description Requires the current password.
// @Tags Lessons
// @Accept json
// @Produce json
// @Param payload body dto.PasswordConfirmation true "Password"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /lessons/reset [post]
func (h *LessonHandler) ResetAll(c *gin.Context) {
	claims := actorFromContext(c)
	if claims == nil {
		return
	}
	var req dto.PasswordConfirmation
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "password is required"))
		return
	}
	removed, err := h.service.ResetAll(c.Request.Context(), claims.UserID, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": removed}, nil)
}
