package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	ErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hnjobs_errors_total",
			Help: "Total number of occurred errors.",
		},
		[]string{"type"},
	)
	ScrapeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hnjobs_scrape_duration_seconds",
			Help:    "Duration of each full scrape pipeline run in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 15},
		},
	)
	ScrapedPostingsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hnjobs_postings_scraped_total",
			Help: "Total number of postings extracted from listing pages.",
		},
	)
	NewPostingsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hnjobs_postings_new_total",
			Help: "Total number of postings seen for the first time.",
		},
	)
	SkippedRunsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hnjobs_scrape_runs_skipped_total",
			Help: "Total number of scrape triggers dropped because a run was in flight.",
		},
	)
)

func StartMetricsServer(port int) {

	prometheus.MustRegister(ErrorsCounter)
	prometheus.MustRegister(ScrapeDuration)
	prometheus.MustRegister(ScrapedPostingsCounter)
	prometheus.MustRegister(NewPostingsCounter)
	prometheus.MustRegister(SkippedRunsCounter)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Fatal(http.ListenAndServe(":"+strconv.Itoa(port), mux))
	}()
}
