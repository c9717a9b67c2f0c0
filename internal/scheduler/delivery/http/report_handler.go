package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"stock-signal-engine/internal/scheduler/dto"
	"stock-signal-engine/internal/scheduler/service"
	"stock-signal-engine/pkg/logger"

	"github.com/labstack/echo/v4"
)

const defaultAccuracyWindow = 7 * 24 * time.Hour

// ReportHandler handles HTTP requests for predictions and accuracy reports.
type ReportHandler struct {
	reportService service.ReportService
	logger        *logger.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService service.ReportService, logger *logger.Logger) *ReportHandler {
	return &ReportHandler{reportService: reportService, logger: logger}
}

// RegisterRoutes registers the report routes to the Echo group.
func (h *ReportHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetPredictions)
	g.GET("/accuracy", h.GetAccuracySummary)
}

// GetPredictions returns predictions filtered by the query parameters:
// stock_codes (comma separated), statuses (comma separated), since (RFC3339)
// and limit.
func (h *ReportHandler) GetPredictions(c echo.Context) error {
	param := dto.GetPredictionsParam{}

	if codes := c.QueryParam("stock_codes"); codes != "" {
		param.StockCodes = strings.Split(codes, ",")
	}
	if statuses := c.QueryParam("statuses"); statuses != "" {
		param.Statuses = strings.Split(statuses, ",")
	}
	if since := c.QueryParam("since"); since != "" {
		parsed, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid since timestamp"})
		}
		param.Since = parsed
	}
	if limit := c.QueryParam("limit"); limit != "" {
		parsed, err := strconv.Atoi(limit)
		if err != nil || parsed < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid limit"})
		}
		param.Limit = parsed
	}

	predictions, err := h.reportService.GetPredictions(c.Request().Context(), param)
	if err != nil {
		h.logger.Error("Failed to get predictions", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get predictions"})
	}
	return c.JSON(http.StatusOK, predictions)
}

// GetAccuracySummary returns the aggregate accuracy report for the window
// given by the since query parameter (RFC3339, default last 7 days).
func (h *ReportHandler) GetAccuracySummary(c echo.Context) error {
	since := time.Now().Add(-defaultAccuracyWindow)
	if raw := c.QueryParam("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid since timestamp"})
		}
		since = parsed
	}

	summary, err := h.reportService.GetAccuracySummary(c.Request().Context(), since)
	if err != nil {
		h.logger.Error("Failed to get accuracy summary", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get accuracy summary"})
	}
	return c.JSON(http.StatusOK, summary)
}
