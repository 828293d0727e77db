package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/i474232898/weather-widgets/internal/common"
	"github.com/i474232898/weather-widgets/internal/config"
	"github.com/i474232898/weather-widgets/internal/search"
	"github.com/i474232898/weather-widgets/internal/store"
	"github.com/i474232898/weather-widgets/internal/weather"
	"github.com/i474232898/weather-widgets/internal/weather/providers"
)

// Runner holds the wired dependencies shared by every command.
type Runner struct {
	cfg     *config.AppConfig
	logger  *log.Logger
	service *weather.Service
	search  *search.Service
	closers []io.Closer
}

// NewRunner loads configuration and wires the store, provider and services.
// Logs go to logOut; nil means stderr.
func NewRunner(ctx context.Context, logOut io.Writer) (*Runner, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	r := &Runner{cfg: cfg, logger: common.NewLogger(logOut, cfg.LogLevel)}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	persister, err := r.persister(ctx)
	if err != nil {
		return nil, err
	}
	widgetStore := store.NewMemoryStore(persister, r.logger.WithPrefix("store"))

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	provider := providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey,
		providers.WithBaseURL(cfg.OpenWeatherBaseURL),
		providers.WithRateLimit(cfg.ProviderRPS, cfg.ProviderBurst),
	)

	r.service = weather.NewService(widgetStore, provider, weather.ServiceConfig{
		StaleTime:    cfg.WeatherStaleTime,
		FetchTimeout: cfg.FetchTimeout,
		Formatter:    weather.NewFormatter(loc),
		Logger:       r.logger.WithPrefix("weather"),
	})
	r.search = search.NewService(provider, search.Config{
		StaleTime: cfg.SearchStaleTime,
		Timeout:   cfg.FetchTimeout,
		Logger:    r.logger.WithPrefix("search"),
	})

	r.logger.Debug("runner ready", "store", cfg.StoreBackend, "widgets", len(widgetStore.List()))
	return r, nil
}

func (r *Runner) persister(ctx context.Context) (store.Persister, error) {
	switch r.cfg.StoreBackend {
	case "file":
		return store.NewFilePersister(r.cfg.StorePath), nil
	case "redis":
		client, err := store.NewRedisClient(ctx, r.cfg.RedisAddr, r.cfg.RedisPassword, r.cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, client)
		return store.NewRedisPersister(client, ""), nil
	case "memory":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", r.cfg.StoreBackend)
	}
}

// Close releases external connections.
func (r *Runner) Close() {
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			r.logger.Warn("error closing resource", "err", err)
		}
	}
}
