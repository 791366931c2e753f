package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/velikanov/hnjobs/internal/entities"
	"github.com/velikanov/hnjobs/internal/events"
	"github.com/velikanov/hnjobs/internal/logger"
	"github.com/velikanov/hnjobs/internal/metrics"
	"github.com/velikanov/hnjobs/internal/scraper"
)

// ErrScrapeInProgress is returned to a trigger that arrives while another
// pipeline run is active. The trigger is dropped, never queued.
var ErrScrapeInProgress = errors.New("a scrape is already in progress")

// initialScrapeDelay gives storage initialization a head start before the
// first run after process start.
const initialScrapeDelay = 10 * time.Second

type listingFetcher interface {
	FetchListing(ctx context.Context, page int) (string, error)
}

type jobsRepository interface {
	Reconcile(ctx context.Context, batch []entities.ExtractedRecord) ([]entities.ExtractedRecord, error)
}

type ScrapeResult struct {
	TotalScraped int
	NewCount     int
}

// ScrapeService runs the fetch -> extract -> reconcile pipeline, both on a
// fixed schedule and on demand. At most one run is active process-wide.
type ScrapeService struct {
	bus          EventBus.Bus
	fetcher      listingFetcher
	extractor    *scraper.Extractor
	cache        *scraper.BatchCache
	jobs         jobsRepository
	cron         *cron.Cron
	initialTimer *time.Timer
	inFlight     atomic.Bool
}

func NewScrapeService(bus EventBus.Bus, fetcher listingFetcher, extractor *scraper.Extractor,
	cache *scraper.BatchCache, jobs jobsRepository, interval time.Duration) (*ScrapeService, error) {

	if interval <= 0 {
		return nil, errors.New("scrape interval must be greater than zero")
	}

	s := &ScrapeService{
		bus:       bus,
		fetcher:   fetcher,
		extractor: extractor,
		cache:     cache,
		jobs:      jobs,
		cron:      cron.New(),
	}

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), s.runScheduled)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Start launches the periodic schedule plus one initial run shortly after
// process start.
func (s *ScrapeService) Start() {
	s.cron.Start()
	s.initialTimer = time.AfterFunc(initialScrapeDelay, s.runScheduled)
	log.Info("scrape scheduler started")
}

func (s *ScrapeService) Stop() {
	if s.initialTimer != nil {
		s.initialTimer.Stop()
	}
	s.cron.Stop()
}

func (s *ScrapeService) runScheduled() {

	result, err := s.RunOnce(context.Background())
	if errors.Is(err, ErrScrapeInProgress) {
		log.Warn("previous scrape still running, skipping scheduled run")
		return
	}
	if err != nil {
		log.Errorf("scheduled scrape failed: %v", err)
		return
	}

	log.Infof("scheduled scrape finished: %d scraped, %d new", result.TotalScraped, result.NewCount)
}

// RunOnce executes one full pipeline pass against the first listing page,
// bypassing the batch cache. A concurrent caller gets ErrScrapeInProgress.
func (s *ScrapeService) RunOnce(ctx context.Context) (ScrapeResult, error) {

	if !s.inFlight.CompareAndSwap(false, true) {
		metrics.SkippedRunsCounter.Inc()
		return ScrapeResult{}, ErrScrapeInProgress
	}
	defer s.inFlight.Store(false)

	start := time.Now()
	defer func() {
		metrics.ScrapeDuration.Observe(time.Since(start).Seconds())
	}()

	raw, err := s.fetcher.FetchListing(ctx, 1)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeHn).Errorf("failed to fetch listing: %v", err)
		return ScrapeResult{}, err
	}

	batch := s.extractor.Extract(raw)
	s.cache.Put(batch)
	metrics.ScrapedPostingsCounter.Add(float64(len(batch)))

	inserted, err := s.jobs.Reconcile(ctx, batch)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to reconcile batch: %v", err)
		return ScrapeResult{}, err
	}
	metrics.NewPostingsCounter.Add(float64(len(inserted)))

	for _, record := range inserted {
		s.bus.Publish(events.PostingDiscoveredTopic, events.PostingDiscovered{
			HnID:     record.HnID,
			Title:    record.Title,
			URL:      record.URL,
			Company:  record.Company,
			Location: record.Location,
		})
	}

	return ScrapeResult{TotalScraped: len(batch), NewCount: len(inserted)}, nil
}

// ScrapeListing serves the live-scrape read path. It returns the cached
// batch when it is still fresh and the caller opted in; otherwise it fetches
// and extracts the requested page and refreshes the cache. Nothing is
// persisted on this path.
func (s *ScrapeService) ScrapeListing(ctx context.Context, page int, useCache bool) ([]entities.ExtractedRecord, error) {

	if useCache {
		if batch, ok := s.cache.Get(); ok {
			log.Debug("serving cached batch")
			return batch, nil
		}
	}

	raw, err := s.fetcher.FetchListing(ctx, page)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeHn).Errorf("failed to fetch listing: %v", err)
		return nil, err
	}

	batch := s.extractor.Extract(raw)
	s.cache.Put(batch)
	return batch, nil
}

// CacheAge exposes the batch cache age for the health and stats endpoints.
func (s *ScrapeService) CacheAge() (time.Duration, bool) {
	return s.cache.Age()
}
