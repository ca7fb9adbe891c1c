package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geobit/geobit/internal/llm"
	"github.com/geobit/geobit/internal/search"
	"github.com/geobit/geobit/internal/service"
	"github.com/geobit/geobit/pkg/models"
)

// CodeRateLimit is surfaced alongside a 429 so callers can apply their
// own backoff and messaging.
const CodeRateLimit = "RATE_LIMIT_EXCEEDED"

type Handler struct {
	svc *service.Service
	log *slog.Logger
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc, log: slog.Default()}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	v1 := r.Group("/v1")
	{
		v1.POST("/content/search", h.SearchContent)
		v1.POST("/content/process", h.ProcessContent)
		v1.POST("/content/collect", h.CollectContent)
		v1.GET("/content/collections/:id", h.GetCollection)
		v1.GET("/content", h.ListContent)
		v1.GET("/sources", h.ListSources)
		v1.POST("/sources", h.CreateSource)
		v1.DELETE("/sources/:id", h.DeleteSource)
	}
}

type dateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type searchRequest struct {
	Keywords  string     `json:"keywords"`
	DateRange *dateRange `json:"dateRange"`
	Sources   []string   `json:"sources"`
	Page      int        `json:"page"`
	Limit     int        `json:"limit"`
}

// SearchContent: POST /v1/content/search
func (h *Handler) SearchContent(c *gin.Context) {
	var req searchRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid json: " + err.Error()})
		return
	}

	dr, err := parseDateRange(req.DateRange)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	result, err := h.svc.Collect(c.Request.Context(), service.CollectRequest{
		Keywords:  req.Keywords,
		DateRange: dr,
		Sources:   req.Sources,
		Page:      req.Page,
		PageSize:  req.Limit,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"results":    result.Items,
		"pagination": result.Pagination,
		"searchId":   result.SearchID,
		"query":      result.Query,
	})
}

type processRequest struct {
	Content string `json:"content"`
	Title   string `json:"title"`
	URL     string `json:"url"`
}

// ProcessContent: POST /v1/content/process
func (h *Handler) ProcessContent(c *gin.Context) {
	var req processRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid json: " + err.Error()})
		return
	}

	analysis, id, err := h.svc.ProcessAndStore(c.Request.Context(), service.ProcessRequest{
		Content: req.Content,
		Title:   req.Title,
		URL:     req.URL,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  analysis,
		"id":      id,
	})
}

type collectRequest struct {
	SourceIDs []string `json:"sourceIds"`
}

// CollectContent: POST /v1/content/collect
func (h *Handler) CollectContent(c *gin.Context) {
	var req collectRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid json: " + err.Error()})
		return
	}
	if len(req.SourceIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "sourceIds must not be empty"})
		return
	}

	collection, err := h.svc.CollectSources(c.Request.Context(), req.SourceIDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "collection": collection})
}

// GetCollection: GET /v1/content/collections/:id
func (h *Handler) GetCollection(c *gin.Context) {
	collection, err := h.svc.Collection(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "collection not found"})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "collection": collection})
}

// ListContent: GET /v1/content?page=1&limit=20
func (h *Handler) ListContent(c *gin.Context) {
	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", 20)

	items, pg, err := h.svc.Recent(c.Request.Context(), page, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "results": items, "pagination": pg})
}

// ListSources: GET /v1/sources
func (h *Handler) ListSources(c *gin.Context) {
	sources, err := h.svc.Sources(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sources": sources})
}

// CreateSource: POST /v1/sources
func (h *Handler) CreateSource(c *gin.Context) {
	var src models.ContentSource
	if err := c.BindJSON(&src); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid json: " + err.Error()})
		return
	}
	if err := h.svc.AddSource(c.Request.Context(), &src); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "source": src})
}

// DeleteSource: DELETE /v1/sources/:id
func (h *Handler) DeleteSource(c *gin.Context) {
	if err := h.svc.RemoveSource(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "source not found"})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// fail converts service errors into the uniform failure envelope. No
// error escapes the API boundary as a panic or raw 500 page.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyKeywords),
		errors.Is(err, service.ErrEmptyContent),
		errors.Is(err, service.ErrEmptySourceName):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, service.ErrMissingAPIKey):
		// Configuration detail stays out of the response.
		h.log.Error("content API key missing")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "content search is temporarily unavailable"})
	case llm.IsRateLimit(err):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"success": false,
			"error":   "Rate limit exceeded. Please try again later.",
			"code":    CodeRateLimit,
		})
	default:
		var apiErr *llm.APIError
		if errors.As(err, &apiErr) {
			h.log.Error("external API failure", "status", apiErr.Status, "message", apiErr.Message)
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "external content search failed"})
			return
		}
		h.log.Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
	}
}

func parseDateRange(dr *dateRange) (search.DateRange, error) {
	var out search.DateRange
	if dr == nil {
		return out, nil
	}
	var err error
	if dr.Start != "" {
		if out.Start, err = time.Parse("2006-01-02", dr.Start); err != nil {
			return out, errors.New("dateRange.start must be YYYY-MM-DD")
		}
	}
	if dr.End != "" {
		if out.End, err = time.Parse("2006-01-02", dr.End); err != nil {
			return out, errors.New("dateRange.end must be YYYY-MM-DD")
		}
	}
	return out, nil
}

// intQuery ensures a sane positive integer query parameter.
func intQuery(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.DefaultQuery(key, ""))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
