package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/velikanov/hnjobs/internal/events"
	"github.com/velikanov/hnjobs/internal/repositories"
	"github.com/velikanov/hnjobs/internal/scraper"
)

const listingHTML = `<table>
<tr class="athing" id="41001001"><td><span class="titleline"><a href="item?id=41001001">Acme is hiring a Backend Engineer (Berlin)</a></span></td></tr>
<tr class="athing" id="41001002"><td><span class="titleline"><a href="item?id=41001002">Globex - SRE</a></span></td></tr>
</table>`

type fakeFetcher struct {
	mu    sync.Mutex
	html  string
	err   error
	calls int
	gate  chan struct{}
}

func (f *fakeFetcher) FetchListing(ctx context.Context, page int) (string, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return f.html, f.err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestService(t *testing.T, fetcher *fakeFetcher) (*ScrapeService, *repositories.Jobs) {
	t.Helper()

	dbContext, err := repositories.NewDbContext(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbContext.Close() })
	require.NoError(t, dbContext.Migrate())

	jobs := repositories.NewJobsRepository(dbContext.DB)
	service, err := NewScrapeService(EventBus.New(), fetcher, scraper.NewExtractor(),
		scraper.NewBatchCache(time.Minute), jobs, time.Hour)
	require.NoError(t, err)

	return service, jobs
}

func Test_ScrapeService_RunOnce_ShouldScrapeAndReconcile(t *testing.T) {

	assert := assert.New(t)
	fetcher := &fakeFetcher{html: listingHTML}
	service, jobs := newTestService(t, fetcher)

	result, err := service.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(2, result.TotalScraped)
	assert.Equal(2, result.NewCount)

	postings, total, err := jobs.Find(context.Background(), repositories.JobFilter{}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(2, total)
	for _, posting := range postings {
		assert.True(posting.IsNew)
	}
}

func Test_ScrapeService_RunOnce_SecondPass_ShouldReportNothingNew(t *testing.T) {

	fetcher := &fakeFetcher{html: listingHTML}
	service, _ := newTestService(t, fetcher)

	_, err := service.RunOnce(context.Background())
	require.NoError(t, err)

	result, err := service.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalScraped)
	assert.Equal(t, 0, result.NewCount)
}

func Test_ScrapeService_RunOnce_ShouldPublishDiscoveryEvents(t *testing.T) {

	fetcher := &fakeFetcher{html: listingHTML}

	dbContext, err := repositories.NewDbContext(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbContext.Close() })
	require.NoError(t, dbContext.Migrate())

	bus := EventBus.New()
	var mu sync.Mutex
	var discovered []events.PostingDiscovered
	require.NoError(t, bus.Subscribe(events.PostingDiscoveredTopic, func(event events.PostingDiscovered) {
		mu.Lock()
		defer mu.Unlock()
		discovered = append(discovered, event)
	}))

	service, err := NewScrapeService(bus, fetcher, scraper.NewExtractor(),
		scraper.NewBatchCache(time.Minute), repositories.NewJobsRepository(dbContext.DB), time.Hour)
	require.NoError(t, err)

	_, err = service.RunOnce(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, discovered, 2)
	assert.Equal(t, "41001001", discovered[0].HnID)
	require.NotNil(t, discovered[1].Company)
	assert.Equal(t, "Globex", *discovered[1].Company)
}

func Test_ScrapeService_RunOnce_ConcurrentTriggers_ShouldRunExactlyOnce(t *testing.T) {

	assert := assert.New(t)
	fetcher := &fakeFetcher{html: listingHTML, gate: make(chan struct{})}
	service, jobs := newTestService(t, fetcher)

	const triggers = 8
	results := make(chan error, triggers)

	var started sync.WaitGroup
	for i := 0; i < triggers; i++ {
		started.Add(1)
		go func() {
			started.Done()
			_, err := service.RunOnce(context.Background())
			results <- err
		}()
	}
	started.Wait()
	time.Sleep(100 * time.Millisecond) // let every goroutine hit the gate or the in-flight flag
	close(fetcher.gate)

	succeeded, skipped := 0, 0
	for i := 0; i < triggers; i++ {
		if err := <-results; err == nil {
			succeeded++
		} else if errors.Is(err, ErrScrapeInProgress) {
			skipped++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(1, succeeded)
	assert.Equal(triggers-1, skipped)
	assert.Equal(1, fetcher.callCount())

	_, total, err := jobs.Find(context.Background(), repositories.JobFilter{}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(2, total)
}

func Test_ScrapeService_RunOnce_WhenFetchFails_ShouldLeaveStoreUntouched(t *testing.T) {

	fetcher := &fakeFetcher{err: errors.New("timeout")}
	service, jobs := newTestService(t, fetcher)

	_, err := service.RunOnce(context.Background())
	require.Error(t, err)

	_, total, err := jobs.Find(context.Background(), repositories.JobFilter{}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
}

func Test_ScrapeService_ScrapeListing_ShouldHonorCache(t *testing.T) {

	assert := assert.New(t)
	fetcher := &fakeFetcher{html: listingHTML}
	service, _ := newTestService(t, fetcher)

	batch, err := service.ScrapeListing(context.Background(), 1, true)
	require.NoError(t, err)
	assert.Len(batch, 2)
	assert.Equal(1, fetcher.callCount())

	// fresh cache, no second fetch
	_, err = service.ScrapeListing(context.Background(), 1, true)
	require.NoError(t, err)
	assert.Equal(1, fetcher.callCount())

	// opting out forces a live fetch
	_, err = service.ScrapeListing(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Equal(2, fetcher.callCount())
}

func Test_ScrapeService_RunOnce_ShouldBypassCache(t *testing.T) {

	fetcher := &fakeFetcher{html: listingHTML}
	service, _ := newTestService(t, fetcher)

	_, err := service.ScrapeListing(context.Background(), 1, true)
	require.NoError(t, err)

	_, err = service.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.callCount())
}

func Test_NewScrapeService_WithNonPositiveInterval_ShouldFail(t *testing.T) {

	_, err := NewScrapeService(EventBus.New(), &fakeFetcher{}, scraper.NewExtractor(),
		scraper.NewBatchCache(time.Minute), nil, 0)
	assert.Error(t, err)
}
