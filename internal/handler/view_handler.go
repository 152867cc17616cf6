// Package handler serves the dashboard views over HTTP.
package handler

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/naka-gawa/repostats/internal/domain"
	"github.com/naka-gawa/repostats/internal/usecase"
)

// ViewHandler handles the view requests of the dashboard.
type ViewHandler struct {
	dashboard *usecase.Dashboard
	logger    *log.Logger
}

// NewViewHandler creates a new view handler
func NewViewHandler(dashboard *usecase.Dashboard, logger *log.Logger) *ViewHandler {
	return &ViewHandler{dashboard: dashboard, logger: logger}
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Health handles GET /health
func (h *ViewHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Message: "Service is running",
	})
}

// Top handles GET /views/top?column=&n=&order=desc|asc
func (h *ViewHandler) Top(c *gin.Context) {
	column, ok := requireQuery(c, "column")
	if !ok {
		return
	}
	n, ok := intQuery(c, "n", 0)
	if !ok {
		return
	}
	descending := true
	switch order := c.DefaultQuery("order", "desc"); order {
	case "desc":
	case "asc":
		descending = false
	default:
		badRequest(c, fmt.Sprintf("order must be asc or desc, got %q", order))
		return
	}
	rows, err := h.dashboard.Top(c.Request.Context(), column, n, descending)
	h.respond(c, rows, err)
}

// Frequency handles GET /views/frequency?column=&sep=&top=
func (h *ViewHandler) Frequency(c *gin.Context) {
	column, ok := requireQuery(c, "column")
	if !ok {
		return
	}
	top, ok := intQuery(c, "top", 0)
	if !ok {
		return
	}
	counts, err := h.dashboard.Frequency(c.Request.Context(), column, c.Query("sep"), top)
	h.respond(c, counts, err)
}

// Coerce handles GET /views/coerce?column=
func (h *ViewHandler) Coerce(c *gin.Context) {
	column, ok := requireQuery(c, "column")
	if !ok {
		return
	}
	coercion, err := h.dashboard.Coerce(c.Request.Context(), column)
	h.respond(c, coercion, err)
}

// Log handles GET /views/log?column=
func (h *ViewHandler) Log(c *gin.Context) {
	column, ok := requireQuery(c, "column")
	if !ok {
		return
	}
	values, err := h.dashboard.Log(c.Request.Context(), column)
	h.respond(c, values, err)
}

// Ratio handles GET /views/ratio?numerator=&denominator=
func (h *ViewHandler) Ratio(c *gin.Context) {
	numerator, ok := requireQuery(c, "numerator")
	if !ok {
		return
	}
	denominator, ok := requireQuery(c, "denominator")
	if !ok {
		return
	}
	values, err := h.dashboard.Ratio(c.Request.Context(), numerator, denominator)
	h.respond(c, values, err)
}

// Trend handles GET /views/trend?x=&y=&log=true
func (h *ViewHandler) Trend(c *gin.Context) {
	x, ok := requireQuery(c, "x")
	if !ok {
		return
	}
	y, ok := requireQuery(c, "y")
	if !ok {
		return
	}
	logScale, ok := boolQuery(c, "log", true)
	if !ok {
		return
	}
	scatter, err := h.dashboard.Scatter(c.Request.Context(), x, y, logScale)
	h.respond(c, scatter, err)
}

// Correlation handles GET /views/correlation?columns=a,b,c
func (h *ViewHandler) Correlation(c *gin.Context) {
	var columns []string
	for _, col := range strings.Split(c.Query("columns"), ",") {
		if col = strings.TrimSpace(col); col != "" {
			columns = append(columns, col)
		}
	}
	matrix, err := h.dashboard.Correlation(c.Request.Context(), columns)
	h.respond(c, matrix, err)
}

// Histogram handles GET /views/histogram?column=&bins=&log=false
func (h *ViewHandler) Histogram(c *gin.Context) {
	column, ok := requireQuery(c, "column")
	if !ok {
		return
	}
	bins, ok := intQuery(c, "bins", 0)
	if !ok {
		return
	}
	logScale, ok := boolQuery(c, "log", false)
	if !ok {
		return
	}
	hist, err := h.dashboard.Histogram(c.Request.Context(), column, bins, logScale)
	h.respond(c, hist, err)
}

// Years handles GET /views/years
func (h *ViewHandler) Years(c *gin.Context) {
	years, err := h.dashboard.CreationByYear(c.Request.Context())
	h.respond(c, years, err)
}

// Languages handles GET /views/languages?top=&all=false
func (h *ViewHandler) Languages(c *gin.Context) {
	all, ok := boolQuery(c, "all", false)
	if !ok {
		return
	}
	if all {
		counts, err := h.dashboard.LanguageDistribution(c.Request.Context())
		h.respond(c, counts, err)
		return
	}
	top, ok := intQuery(c, "top", 0)
	if !ok {
		return
	}
	counts, err := h.dashboard.TopLanguages(c.Request.Context(), top)
	h.respond(c, counts, err)
}

// Raw handles GET /views/raw
func (h *ViewHandler) Raw(c *gin.Context) {
	repos, err := h.dashboard.Raw(c.Request.Context())
	h.respond(c, repos, err)
}

// Dashboard handles GET /views/dashboard
func (h *ViewHandler) Dashboard(c *gin.Context) {
	report, err := h.dashboard.Build(c.Request.Context())
	h.respond(c, report, err)
}

func (h *ViewHandler) respond(c *gin.Context, body interface{}, err error) {
	if err == nil {
		c.JSON(http.StatusOK, body)
		return
	}
	switch {
	case domain.IsUnknownColumn(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "unknown_column",
			Message: "The requested column is not in the dataset",
			Details: err.Error(),
		})
	case domain.IsDataLoad(err):
		h.logger.Printf("Handler: %s: %v", c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "data_load_failed",
			Message: "Failed to load the dataset",
			Details: err.Error(),
		})
	default:
		h.logger.Printf("Handler: %s: %v", c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to compute the view",
			Details: err.Error(),
		})
	}
}

func badRequest(c *gin.Context, details string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_request",
		Message: "Invalid query parameters",
		Details: details,
	})
}

func requireQuery(c *gin.Context, key string) (string, bool) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		badRequest(c, fmt.Sprintf("%s is required", key))
		return "", false
	}
	return v, true
}

func intQuery(c *gin.Context, key string, fallback int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(c, fmt.Sprintf("%s must be a non-negative integer, got %q", key, raw))
		return 0, false
	}
	return n, true
}

func boolQuery(c *gin.Context, key string, fallback bool) (bool, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		badRequest(c, fmt.Sprintf("%s must be a boolean, got %q", key, raw))
		return false, false
	}
	return b, true
}
