package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/asaskevich/EventBus"
	log "github.com/sirupsen/logrus"
	"github.com/velikanov/hnjobs/internal/clients/hn"
	"github.com/velikanov/hnjobs/internal/config"
	"github.com/velikanov/hnjobs/internal/logger"
	"github.com/velikanov/hnjobs/internal/metrics"
	"github.com/velikanov/hnjobs/internal/repositories"
	"github.com/velikanov/hnjobs/internal/scraper"
	"github.com/velikanov/hnjobs/internal/server"
	"github.com/velikanov/hnjobs/internal/services"
)

const shutdownTimeout = 10 * time.Second

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Get()

	logger.Setup(cfg.Logger)
	defer logger.Cleanup()

	metrics.StartMetricsServer(cfg.Server.MetricsPort)

	dbContext, err := repositories.NewDbContext(cfg.DB.ConnectionString)
	if err != nil {
		log.Fatalf("can't create db context: %v", err)
	}
	defer dbContext.Close()

	if err = dbContext.Migrate(); err != nil {
		log.Fatalf("can't migrate db context: %v", err)
	}

	jobs := repositories.NewJobsRepository(dbContext.DB)
	bus := EventBus.New()

	notifier, err := services.NewDiscoveryNotifier(bus)
	if err != nil {
		log.Fatalf("can't create discovery notifier: %v", err)
	}
	defer notifier.Close()

	cache := scraper.NewBatchCache(cfg.Scraper.CacheTTL())
	scrapeService, err := services.NewScrapeService(bus, hn.NewClient(), scraper.NewExtractor(),
		cache, jobs, cfg.Scraper.Interval())
	if err != nil {
		log.Fatalf("can't create scrape service: %v", err)
	}
	scrapeService.Start()
	defer scrapeService.Stop()

	handler := server.NewJobsHandler(jobs, scrapeService)
	srv, err := server.New(cfg.Server, handler)
	if err != nil {
		log.Fatalf("can't create server: %v", err)
	}

	go func() {
		if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server stopped: %v", err)
		}
	}()
	log.Infof("server listening on port %d", cfg.Server.Port)

	<-ctx.Done()

	log.Info("Shutting down services...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server shutdown failed: %v", err)
	}
	log.Info("Services stopped.")
}
