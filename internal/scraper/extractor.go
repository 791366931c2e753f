package scraper

import (
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
	"github.com/velikanov/hnjobs/internal/clients/hn"
	"github.com/velikanov/hnjobs/internal/entities"
)

// Extractor turns the raw jobs-page HTML into structured records. A broken
// row never fails the batch: it is logged and skipped. A document that
// matches no rows at all yields an empty batch.
type Extractor struct {
	idSeq atomic.Int64
}

func NewExtractor() *Extractor {
	e := &Extractor{}
	e.idSeq.Store(time.Now().Unix())
	return e
}

func (e *Extractor) Extract(rawHTML string) []entities.ExtractedRecord {

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		log.Warnf("failed to parse listing document: %v", err)
		return []entities.ExtractedRecord{}
	}

	records := make([]entities.ExtractedRecord, 0)
	skipped := 0

	doc.Find("tr.athing").Each(func(_ int, row *goquery.Selection) {

		link := row.Find("span.titleline a").First()
		if link.Length() == 0 {
			skipped++
			return
		}

		title := strings.TrimSpace(link.Text())
		href := link.AttrOr("href", "")
		if title == "" || href == "" {
			skipped++
			return
		}

		records = append(records, entities.ExtractedRecord{
			HnID:     e.extractID(href, row),
			Title:    title,
			URL:      normalizeURL(href),
			Company:  InferCompany(title),
			Location: InferLocation(title),
			// HN only exposes a relative age ("2 days ago"), which is not
			// converted; the posting is stamped with the extraction time.
			PostedAt: time.Now().UTC(),
		})
	})

	if skipped > 0 {
		log.Warnf("skipped %d malformed listing rows", skipped)
	}

	return records
}

// extractID resolves the stable item id: the id query parameter of the title
// link, then the row's own id attribute, then a synthesized token. The
// synthesis uses an atomic sequence seeded with the startup timestamp, so
// ids cannot collide within one process.
func (e *Extractor) extractID(href string, row *goquery.Selection) string {

	if parsed, err := url.Parse(href); err == nil {
		if id := parsed.Query().Get("id"); id != "" {
			return id
		}
	}

	if id := strings.TrimSpace(row.AttrOr("id", "")); id != "" {
		return id
	}

	return "unknown_" + strconv.FormatInt(e.idSeq.Add(1), 10)
}

func normalizeURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return hn.BaseURL + "/" + strings.TrimPrefix(href, "/")
}
