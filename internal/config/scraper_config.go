package config

import (
	"time"

	"github.com/spf13/viper"
)

type ScraperConfig struct {
	// CacheTimeoutSeconds is the batch cache freshness window.
	CacheTimeoutSeconds int `mapstructure:"cache_timeout" validate:"gte=1"`
	// ScrapeIntervalMinutes is the period of the background schedule.
	ScrapeIntervalMinutes int `mapstructure:"scrape_interval" validate:"gte=1"`
}

func (config ScraperConfig) CacheTTL() time.Duration {
	return time.Duration(config.CacheTimeoutSeconds) * time.Second
}

func (config ScraperConfig) Interval() time.Duration {
	return time.Duration(config.ScrapeIntervalMinutes) * time.Minute
}

func (config ScraperConfig) bindEnvironmentVariables() error {

	if err := viper.BindEnv("scraper.cache_timeout", "CACHE_TIMEOUT"); err != nil {
		return err
	}

	return viper.BindEnv("scraper.scrape_interval", "SCRAPE_INTERVAL")
}
