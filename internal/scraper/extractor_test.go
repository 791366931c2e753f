package scraper

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadJobsPage(t *testing.T) string {
	t.Helper()
	raw, err := os.ReadFile("testdata/jobs_page.html")
	require.NoError(t, err)
	return string(raw)
}

func Test_Extractor_Extract_ShouldParseListingRows(t *testing.T) {

	assert := assert.New(t)

	records := NewExtractor().Extract(loadJobsPage(t))
	assert.Len(records, 3)

	assert.Equal("41001001", records[0].HnID)
	assert.Equal("Acme Corp is hiring a backend engineer (Berlin)", records[0].Title)
	assert.Equal("https://example.com/careers/backend", records[0].URL)

	assert.Equal("41001002", records[1].HnID)
	assert.Equal("Globex - Senior SRE", records[1].Title)
	assert.Equal("https://news.ycombinator.com/item?id=41001002", records[1].URL)

	// the id query parameter of the title link wins over the row attribute
	assert.Equal("98765", records[2].HnID)
	assert.Equal("https://jobs.example.org/apply?id=98765&ref=hn", records[2].URL)
}

func Test_Extractor_Extract_ShouldSkipRowWithoutTitleLink(t *testing.T) {

	// the fixture holds 4 listing rows, one of them without a title link
	records := NewExtractor().Extract(loadJobsPage(t))
	assert.Len(t, records, 3)
}

func Test_Extractor_Extract_ShouldInferCompanyAndLocation(t *testing.T) {

	assert := assert.New(t)

	records := NewExtractor().Extract(loadJobsPage(t))

	require.NotNil(t, records[0].Company)
	assert.Equal("Acme Corp", *records[0].Company)
	require.NotNil(t, records[0].Location)
	assert.Equal("Berlin", *records[0].Location)

	require.NotNil(t, records[1].Company)
	assert.Equal("Globex", *records[1].Company)
	assert.Nil(records[1].Location)

	require.NotNil(t, records[2].Company)
	assert.Equal("Recruiter", *records[2].Company)
	require.NotNil(t, records[2].Location)
	assert.Equal("Remote", *records[2].Location)
}

func Test_Extractor_Extract_ShouldStampPostedAtWithExtractionTime(t *testing.T) {

	records := NewExtractor().Extract(loadJobsPage(t))
	for _, record := range records {
		assert.False(t, record.PostedAt.IsZero())
	}
}

func Test_Extractor_Extract_WhenDocumentHasNoRows_ShouldReturnEmptyBatch(t *testing.T) {

	records := NewExtractor().Extract("<html><body><p>rate limited</p></body></html>")
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func Test_Extractor_Extract_WhenIDMissing_ShouldSynthesizeUniqueIDs(t *testing.T) {

	assert := assert.New(t)

	page := `<table>
<tr class="athing"><td><span class="titleline"><a href="https://a.example.com/jobs">First role</a></span></td></tr>
<tr class="athing"><td><span class="titleline"><a href="https://b.example.com/jobs">Second role</a></span></td></tr>
</table>`

	records := NewExtractor().Extract(page)
	assert.Len(records, 2)
	assert.True(strings.HasPrefix(records[0].HnID, "unknown_"))
	assert.True(strings.HasPrefix(records[1].HnID, "unknown_"))
	assert.NotEqual(records[0].HnID, records[1].HnID)
}

func Test_Extractor_Extract_ShouldResolveRelativeURLs(t *testing.T) {

	page := `<table>
<tr class="athing" id="100"><td><span class="titleline"><a href="item?id=100">Internal posting</a></span></td></tr>
</table>`

	records := NewExtractor().Extract(page)
	assert.Len(t, records, 1)
	assert.Equal(t, "https://news.ycombinator.com/item?id=100", records[0].URL)
}
