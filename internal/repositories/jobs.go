package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/velikanov/hnjobs/internal/entities"
	"gorm.io/gorm"
)

type Jobs struct {
	db *gorm.DB
}

func NewJobsRepository(db *gorm.DB) *Jobs {
	return &Jobs{db: db}
}

// Reconcile merges an extracted batch into storage, keyed by hn_id. A first
// sighting inserts the posting with is_new=true; every later sighting
// overwrites the mutable fields and clears the flag. The whole batch is
// applied in one transaction, so a mid-batch failure leaves the store
// untouched. Returns the subset that was newly inserted.
func (r *Jobs) Reconcile(ctx context.Context, batch []entities.ExtractedRecord) ([]entities.ExtractedRecord, error) {

	var inserted []entities.ExtractedRecord
	now := time.Now().UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, record := range batch {

			var existing entities.JobPosting
			err := tx.First(&existing, "hn_id = ?", record.HnID).Error

			if errors.Is(err, gorm.ErrRecordNotFound) {
				postedAt := record.PostedAt
				posting := entities.JobPosting{
					HnID:      record.HnID,
					Title:     record.Title,
					URL:       record.URL,
					Company:   record.Company,
					Location:  record.Location,
					PostedAt:  &postedAt,
					ScrapedAt: now,
					IsNew:     true,
				}
				if err := tx.Create(&posting).Error; err != nil {
					return err
				}
				inserted = append(inserted, record)
				continue
			}
			if err != nil {
				return err
			}

			updates := map[string]any{
				"title":      record.Title,
				"url":        record.URL,
				"company":    record.Company,
				"location":   record.Location,
				"posted_at":  record.PostedAt,
				"scraped_at": now,
				"is_new":     false,
			}
			if err := tx.Model(&entities.JobPosting{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, errors.Wrap(err, "reconcile batch")
	}
	return inserted, nil
}

type JobFilter struct {
	Search   string
	Company  string
	Location string
	NewOnly  bool
}

// Find returns a page of postings matching the filter, newest scrape first,
// along with the total match count before pagination.
func (r *Jobs) Find(ctx context.Context, filter JobFilter, limit, offset int) ([]entities.JobPosting, int64, error) {

	query := r.db.WithContext(ctx).Model(&entities.JobPosting{})

	if filter.NewOnly {
		query = query.Where("is_new = ?", true)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(title) LIKE ?", pattern(filter.Search))
	}
	if filter.Company != "" {
		query = query.Where("LOWER(company) LIKE ?", pattern(filter.Company))
	}
	if filter.Location != "" {
		query = query.Where("LOWER(location) LIKE ?", pattern(filter.Location))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var postings []entities.JobPosting
	if err := query.Order("scraped_at DESC").Limit(limit).Offset(offset).Find(&postings).Error; err != nil {
		return nil, 0, err
	}
	return postings, total, nil
}

// FindNew returns every posting not yet seen by a prior run.
func (r *Jobs) FindNew(ctx context.Context) ([]entities.JobPosting, error) {
	var postings []entities.JobPosting
	err := r.db.WithContext(ctx).
		Where("is_new = ?", true).
		Order("scraped_at DESC").
		Find(&postings).Error
	return postings, err
}

// SearchAny matches q against title, company and location.
func (r *Jobs) SearchAny(ctx context.Context, q string, limit int) ([]entities.JobPosting, error) {
	var postings []entities.JobPosting
	p := pattern(q)
	err := r.db.WithContext(ctx).
		Where("LOWER(title) LIKE ? OR LOWER(company) LIKE ? OR LOWER(location) LIKE ?", p, p, p).
		Order("scraped_at DESC").
		Limit(limit).
		Find(&postings).Error
	return postings, err
}

type JobStats struct {
	Total    int64
	New      int64
	OldestAt *time.Time
	NewestAt *time.Time
}

func (r *Jobs) Stats(ctx context.Context) (JobStats, error) {

	var stats JobStats
	db := r.db.WithContext(ctx)

	if err := db.Model(&entities.JobPosting{}).Count(&stats.Total).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&entities.JobPosting{}).Where("is_new = ?", true).Count(&stats.New).Error; err != nil {
		return stats, err
	}
	if stats.Total == 0 {
		return stats, nil
	}

	var oldest, newest entities.JobPosting
	if err := db.Order("scraped_at ASC").First(&oldest).Error; err != nil {
		return stats, err
	}
	if err := db.Order("scraped_at DESC").First(&newest).Error; err != nil {
		return stats, err
	}
	stats.OldestAt = &oldest.ScrapedAt
	stats.NewestAt = &newest.ScrapedAt
	return stats, nil
}

func (r *Jobs) Ping(ctx context.Context) error {
	return r.db.WithContext(ctx).Exec("SELECT 1").Error
}

func pattern(term string) string {
	return "%" + strings.ToLower(term) + "%"
}
