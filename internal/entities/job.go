package entities

import "time"

// JobPosting is the persisted form of a scraped listing. HnID is the stable
// Hacker News item id; re-scraping the same id updates the row in place.
type JobPosting struct {
	ID        uint   `gorm:"primaryKey"`
	HnID      string `gorm:"uniqueIndex;not null"`
	Title     string `gorm:"not null"`
	URL       string `gorm:"not null"`
	Company   *string
	Location  *string
	PostedAt  *time.Time
	ScrapedAt time.Time
	IsNew     bool
}

// ExtractedRecord is one listing row as parsed out of the jobs page.
// It only lives between extraction and reconciliation.
type ExtractedRecord struct {
	HnID     string
	Title    string
	URL      string
	Company  *string
	Location *string
	PostedAt time.Time
}
