package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-desk-api/internal/middleware"
	"github.com/noah-isme/tutor-desk-api/internal/models"
	"github.com/noah-isme/tutor-desk-api/internal/service"
)

type calendarMock struct {
	year, month int
	hit         bool
}

func (m *calendarMock) Month(ctx context.Context, year, month int) (*models.CalendarMonth, bool, error) {
	m.year, m.month = year, month
	return &models.CalendarMonth{Year: 2024, Month: 3, TimeZone: "UTC+8", Days: []models.CalendarDay{}}, m.hit, nil
}

type reportMock struct{}

func (reportMock) StudentReport(ctx context.Context, studentID, format string) (*service.ReportFile, error) {
	return &service.ReportFile{Filename: "student-" + studentID + "-20240201.csv", ContentType: "text/csv; charset=utf-8", Payload: []byte("date,title\n")}, nil
}

func TestDashboardHandlerCalendarCacheMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &calendarMock{hit: true}
	router := gin.New()
	router.Use(middleware.WithResponseMeta())
	router.GET("/calendar", NewDashboardHandler(mock, nil).Calendar)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/calendar?year=2024&month=3", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2024, mock.year)
	assert.Equal(t, 3, mock.month)
	assert.Contains(t, w.Body.String(), `"cache_hit":true`)
}

func TestDashboardHandlerCalendarBadQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/calendar", NewDashboardHandler(&calendarMock{}, nil).Calendar)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/calendar?month=march", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerStreamsAttachment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/students/s1/report", nil)
	c.Params = gin.Params{{Key: "id", Value: "s1"}}

	NewReportHandler(reportMock{}).StudentReport(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="student-s1-20240201.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "date,title\n", w.Body.String())
}
