package server

import (
	"time"

	"github.com/velikanov/hnjobs/internal/entities"
)

type jobResponse struct {
	ID         uint    `json:"id,omitempty"`
	HnID       string  `json:"hn_id"`
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Company    *string `json:"company"`
	Location   *string `json:"location"`
	PostedDate *string `json:"posted_date"`
	ScrapedAt  *string `json:"scraped_at,omitempty"`
	IsNew      bool    `json:"is_new"`
}

type paginationResponse struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

type jobListResponse struct {
	Jobs       []jobResponse      `json:"jobs"`
	Pagination paginationResponse `json:"pagination"`
}

type refreshResponse struct {
	Message      string `json:"message"`
	TotalScraped int    `json:"total_scraped"`
	NewJobs      int    `json:"new_jobs"`
}

func toJobResponse(posting entities.JobPosting) jobResponse {
	scrapedAt := formatTime(posting.ScrapedAt)
	return jobResponse{
		ID:         posting.ID,
		HnID:       posting.HnID,
		Title:      posting.Title,
		URL:        posting.URL,
		Company:    posting.Company,
		Location:   posting.Location,
		PostedDate: formatTimePtr(posting.PostedAt),
		ScrapedAt:  &scrapedAt,
		IsNew:      posting.IsNew,
	}
}

// toRecordResponse shapes a live-scraped, not yet persisted record. Such
// records have no database id or scrape timestamp and are always reported
// without the is_new flag set.
func toRecordResponse(record entities.ExtractedRecord) jobResponse {
	postedAt := formatTime(record.PostedAt)
	return jobResponse{
		HnID:       record.HnID,
		Title:      record.Title,
		URL:        record.URL,
		Company:    record.Company,
		Location:   record.Location,
		PostedDate: &postedAt,
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := formatTime(*t)
	return &formatted
}

func newPagination(page, limit int, total int64) paginationResponse {
	pages := (total + int64(limit) - 1) / int64(limit)
	return paginationResponse{Page: page, Limit: limit, Total: total, Pages: pages}
}
