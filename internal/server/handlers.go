package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/velikanov/hnjobs/internal/clients/hn"
	"github.com/velikanov/hnjobs/internal/entities"
	"github.com/velikanov/hnjobs/internal/logger"
	"github.com/velikanov/hnjobs/internal/repositories"
	"github.com/velikanov/hnjobs/internal/services"
)

const (
	defaultPageSize  = 30
	maxPageSize      = 100
	searchResultsCap = 50
)

type jobsRepository interface {
	Find(ctx context.Context, filter repositories.JobFilter, limit, offset int) ([]entities.JobPosting, int64, error)
	FindNew(ctx context.Context) ([]entities.JobPosting, error)
	SearchAny(ctx context.Context, q string, limit int) ([]entities.JobPosting, error)
	Stats(ctx context.Context) (repositories.JobStats, error)
	Ping(ctx context.Context) error
}

type scrapeService interface {
	RunOnce(ctx context.Context) (services.ScrapeResult, error)
	ScrapeListing(ctx context.Context, page int, useCache bool) ([]entities.ExtractedRecord, error)
	CacheAge() (time.Duration, bool)
}

type JobsHandler struct {
	jobs    jobsRepository
	scraper scrapeService
}

func NewJobsHandler(jobs jobsRepository, scraper scrapeService) *JobsHandler {
	return &JobsHandler{jobs: jobs, scraper: scraper}
}

func (h *JobsHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "API is Live",
		"endpoints": gin.H{
			"jobs":         "/jobs - Get all jobs",
			"jobs_new":     "/jobs/new - Get only new jobs",
			"jobs_search":  "/jobs/search?q=query - Search jobs",
			"jobs_refresh": "/jobs/refresh - Trigger a fresh scrape",
			"health":       "/health - Health check",
			"stats":        "/stats - API statistics",
		},
	})
}

func (h *JobsHandler) Health(c *gin.Context) {

	dbStatus := "healthy"
	if err := h.jobs.Ping(c.Request.Context()); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("health check db ping failed: %v", err)
		dbStatus = "unhealthy"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"database":          dbStatus,
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
		"cache_age_seconds": cacheAgeSeconds(h.scraper),
	})
}

func (h *JobsHandler) Stats(c *gin.Context) {

	stats, err := h.jobs.Stats(c.Request.Context())
	if err != nil {
		h.internalError(c, "failed to collect stats", err)
		return
	}

	_, cached := h.scraper.CacheAge()
	c.JSON(http.StatusOK, gin.H{
		"total_jobs":        stats.Total,
		"new_jobs":          stats.New,
		"oldest_job_date":   formatTimePtr(stats.OldestAt),
		"newest_job_date":   formatTimePtr(stats.NewestAt),
		"cache_enabled":     cached,
		"cache_age_seconds": cacheAgeSeconds(h.scraper),
	})
}

// ListJobs serves the persisted result set with filters and pagination. With
// use_db=false it scrapes the listing live instead, honoring use_cache.
func (h *JobsHandler) ListJobs(c *gin.Context) {

	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if page < 1 || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page and limit must be positive"})
		return
	}

	if !boolQuery(c, "use_db", true) {
		h.listScraped(c, page, limit)
		return
	}

	filter := repositories.JobFilter{
		Search:   c.Query("search"),
		Company:  c.Query("company"),
		Location: c.Query("location"),
		NewOnly:  boolQuery(c, "new_only", false),
	}

	postings, total, err := h.jobs.Find(c.Request.Context(), filter, limit, (page-1)*limit)
	if err != nil {
		h.internalError(c, "failed to query jobs", err)
		return
	}

	c.JSON(http.StatusOK, jobListResponse{
		Jobs:       lo.Map(postings, func(p entities.JobPosting, _ int) jobResponse { return toJobResponse(p) }),
		Pagination: newPagination(page, limit, total),
	})
}

func (h *JobsHandler) listScraped(c *gin.Context, page, limit int) {

	batch, err := h.scraper.ScrapeListing(c.Request.Context(), page, boolQuery(c, "use_cache", true))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch jobs: " + err.Error()})
		return
	}

	batch = filterRecords(batch, c.Query("search"), c.Query("company"), c.Query("location"))

	total := int64(len(batch))
	start := (page - 1) * limit
	if start > len(batch) {
		start = len(batch)
	}
	end := start + limit
	if end > len(batch) {
		end = len(batch)
	}

	c.JSON(http.StatusOK, jobListResponse{
		Jobs:       lo.Map(batch[start:end], func(r entities.ExtractedRecord, _ int) jobResponse { return toRecordResponse(r) }),
		Pagination: newPagination(page, limit, total),
	})
}

func (h *JobsHandler) ListNewJobs(c *gin.Context) {

	postings, err := h.jobs.FindNew(c.Request.Context())
	if err != nil {
		h.internalError(c, "failed to query new jobs", err)
		return
	}

	c.JSON(http.StatusOK, lo.Map(postings, func(p entities.JobPosting, _ int) jobResponse { return toJobResponse(p) }))
}

func (h *JobsHandler) SearchJobs(c *gin.Context) {

	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "search query parameter 'q' is required"})
		return
	}

	postings, err := h.jobs.SearchAny(c.Request.Context(), q, searchResultsCap)
	if err != nil {
		h.internalError(c, "failed to search jobs", err)
		return
	}

	c.JSON(http.StatusOK, lo.Map(postings, func(p entities.JobPosting, _ int) jobResponse { return toJobResponse(p) }))
}

// RefreshJobs triggers a full pipeline run synchronously. A run already in
// flight is reported as a conflict rather than queued.
func (h *JobsHandler) RefreshJobs(c *gin.Context) {

	result, err := h.scraper.RunOnce(c.Request.Context())

	switch {
	case errors.Is(err, services.ErrScrapeInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case isFetchError(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to refresh jobs: " + err.Error()})
		return
	case err != nil:
		h.internalError(c, "failed to refresh jobs", err)
		return
	}

	c.JSON(http.StatusOK, refreshResponse{
		Message:      "Jobs refreshed successfully",
		TotalScraped: result.TotalScraped,
		NewJobs:      result.NewCount,
	})
}

func (h *JobsHandler) internalError(c *gin.Context, message string, err error) {
	log.WithField(logger.ErrorTypeField, logger.ErrorTypeApi).Errorf("%s: %v", message, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": message})
}

func isFetchError(err error) bool {
	var fetchErr *hn.FetchError
	return errors.As(err, &fetchErr)
}

func filterRecords(batch []entities.ExtractedRecord, search, company, location string) []entities.ExtractedRecord {
	return lo.Filter(batch, func(r entities.ExtractedRecord, _ int) bool {
		if search != "" && !containsFold(r.Title, search) {
			return false
		}
		if company != "" && !containsFoldPtr(r.Company, company) {
			return false
		}
		if location != "" && !containsFoldPtr(r.Location, location) {
			return false
		}
		return true
	})
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func containsFoldPtr(s *string, substr string) bool {
	return s != nil && containsFold(*s, substr)
}

func cacheAgeSeconds(s scrapeService) *float64 {
	age, ok := s.CacheAge()
	if !ok {
		return nil
	}
	seconds := age.Seconds()
	return &seconds
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func boolQuery(c *gin.Context, name string, fallback bool) bool {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	return strings.EqualFold(raw, "true")
}
