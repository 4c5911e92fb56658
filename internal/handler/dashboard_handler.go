package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-desk-api/internal/dto"
	"github.com/noah-isme/tutor-desk-api/internal/middleware"
	"github.com/noah-isme/tutor-desk-api/internal/models"
	appErrors "github.com/noah-isme/tutor-desk-api/pkg/errors"
	"github.com/noah-isme/tutor-desk-api/pkg/response"
)

type calendarService interface {
	Month(ctx context.Context, year, month int) (*models.CalendarMonth, bool, error)
}

type dashboardService interface {
	Summary(ctx context.Context) (*models.DashboardSummary, error)
}

// DashboardHandler serves the landing summary and the month calendar.
type DashboardHandler struct {
	calendar  calendarService
	dashboard dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(calendar calendarService, dashboard dashboardService) *DashboardHandler {
	return &DashboardHandler{calendar: calendar, dashboard: dashboard}
}

// Summary godoc
// @Summary Dashboard summary
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	if h.dashboard == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	summary, err := h.dashboard.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Calendar godoc
// @Summary Month calendar of lessons
// @Tags Dashboard
// @Produce json
// @Param year query int false "Year, defaults to the current one"
// @Param month query int false "Month 1-12, defaults to the current one"
// @Success 200 {object} response.Envelope
// @Router /calendar [get]
func (h *DashboardHandler) Calendar(c *gin.Context) {
	if h.calendar == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var query dto.CalendarQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Invalid(err, "year and month must be numbers"))
		return
	}
	start := time.Now()
	month, cacheHit, err := h.calendar.Month(c.Request.Context(), query.Year, query.Month)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	middleware.Since(c, start)
	response.JSON(c, http.StatusOK, month, nil, middleware.ExtractMeta(c))
}
