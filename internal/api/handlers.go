package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/forecastgrid/forecast-guard/internal/models"
	"github.com/forecastgrid/forecast-guard/internal/services"
	"github.com/forecastgrid/forecast-guard/internal/utils"
)

// Handlers exposes the guard service over HTTP.
type Handlers struct {
	logger  *slog.Logger
	service *services.GuardService
}

// NewHandlers constructs the HTTP handler set.
func NewHandlers(logger *slog.Logger, service *services.GuardService) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{logger: logger, service: service}
}

// RegisterRoutes attaches every endpoint to the router.
func (h *Handlers) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.health)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/queries/validate", h.validate)
		v1.POST("/queries/diagnose", h.diagnose)
		v1.GET("/filters/options", h.filterOptions)
		v1.POST("/events/ingest-complete", h.ingestComplete)
		v1.GET("/cache/stats", h.cacheStats)
		v1.GET("/diagnostics/insights", h.insights)
	}
}

func (h *Handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) validate(c *gin.Context) {
	var params models.QueryParameters
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome := h.service.Validate(c.Request.Context(), params)
	c.JSON(http.StatusOK, outcome)
}

func (h *Handlers) diagnose(c *gin.Context) {
	var params models.QueryParameters
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.service.Diagnose(c.Request.Context(), params)
	c.JSON(http.StatusOK, result)
}

func (h *Handlers) filterOptions(c *gin.Context) {
	month, year, err := periodParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	forceRefresh := c.Query("refresh") == "true"

	options, hasData, err := h.service.FilterOptions(c.Request.Context(), month, year, forceRefresh)
	if err != nil {
		h.logger.Error("filter options fetch failed", slog.Any("error", err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "filter options unavailable"})
		return
	}
	if !hasData {
		c.JSON(http.StatusOK, gin.H{"hasData": false, "month": month, "year": year})
		return
	}
	c.JSON(http.StatusOK, gin.H{"hasData": true, "options": options})
}

func (h *Handlers) ingestComplete(c *gin.Context) {
	h.service.HandleIngestComplete(c.Request.Context())
	c.JSON(http.StatusAccepted, gin.H{"status": "caches cleared"})
}

func (h *Handlers) cacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.CacheStats())
}

func (h *Handlers) insights(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Insights())
}

func periodParams(c *gin.Context) (month, year int, err error) {
	if period := c.Query("period"); period != "" {
		return utils.ParsePeriod(period)
	}
	month, err = strconv.Atoi(c.Query("month"))
	if err != nil {
		return 0, 0, err
	}
	year, err = strconv.Atoi(c.Query("year"))
	if err != nil {
		return 0, 0, err
	}
	if err := utils.ValidatePeriod(month, year); err != nil {
		return 0, 0, err
	}
	return month, year, nil
}
