package weather

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"

	"github.com/i474232898/weather-widgets/internal/cache"
	"github.com/i474232898/weather-widgets/internal/common"
)

var validate = validator.New()

// ServiceConfig tunes the weather data caches.
type ServiceConfig struct {
	// StaleTime is how long current/forecast results are served from cache.
	StaleTime time.Duration
	// FetchTimeout bounds every provider dispatch.
	FetchTimeout time.Duration
	Formatter    Formatter
	Logger       *log.Logger
	Now          func() time.Time
}

// View is the combined current + forecast read for one city.
type View struct {
	City        string             `json:"city"`
	WeatherData *CurrentConditions `json:"weatherData,omitempty"`
	Hourly      []HourlyEntry      `json:"hourlyForecast"`
	Daily       []DailyEntry       `json:"dailyForecast"`
	Loading     bool               `json:"isLoading"`
	IsError     bool               `json:"isError"`
	Err         error              `json:"-"`
}

// Service owns the weather data caches and the widget lifecycle.
type Service struct {
	store    Store
	provider Provider
	format   Formatter
	logger   *log.Logger
	now      func() time.Time

	current  *cache.Query[string, CurrentConditions]
	forecast *cache.Query[string, Forecast]
}

// NewService creates a new Service.
func NewService(store Store, provider Provider, cfg ServiceConfig) *Service {
	s := &Service{
		store:    store,
		provider: provider,
		format:   cfg.Formatter,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
	if s.logger == nil {
		s.logger = common.DiscardLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if cfg.StaleTime <= 0 {
		cfg.StaleTime = 5 * time.Minute
	}

	enabled := func(city string) bool { return city != "" }

	s.current = cache.New(cache.Config[string]{
		Name:      "current",
		StaleTime: cfg.StaleTime,
		Timeout:   cfg.FetchTimeout,
		Enabled:   enabled,
		Now:       cfg.Now,
		Logger:    s.logger,
	}, s.fetchCurrent)

	s.forecast = cache.New(cache.Config[string]{
		Name:      "forecast",
		StaleTime: cfg.StaleTime,
		Timeout:   cfg.FetchTimeout,
		Enabled:   enabled,
		Now:       cfg.Now,
		Logger:    s.logger,
	}, s.fetchForecast)

	return s
}

func (s *Service) fetchCurrent(ctx context.Context, city string) (CurrentConditions, error) {
	raw, err := s.provider.FetchCurrentConditions(ctx, city)
	if err != nil {
		return CurrentConditions{}, err
	}
	return TransformCurrent(raw, s.format), nil
}

func (s *Service) fetchForecast(ctx context.Context, city string) (Forecast, error) {
	raw, err := s.provider.FetchForecastSeries(ctx, city)
	if err != nil {
		return Forecast{}, err
	}
	return BuildForecast(raw, s.format), nil
}

// snapshot fetches current conditions and forecast concurrently. With force,
// both caches are bypassed and overwritten with the fresh results.
func (s *Service) snapshot(ctx context.Context, city string, force bool) (CurrentConditions, Forecast, error) {
	var (
		wg            sync.WaitGroup
		cur           CurrentConditions
		fc            Forecast
		errCur, errFc error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		if force {
			cur, errCur = s.current.Refetch(ctx, city)
		} else {
			cur, errCur = s.current.Get(ctx, city)
		}
	}()
	go func() {
		defer wg.Done()
		if force {
			fc, errFc = s.forecast.Refetch(ctx, city)
		} else {
			fc, errFc = s.forecast.Get(ctx, city)
		}
	}()
	wg.Wait()

	if err := errors.Join(errCur, errFc); err != nil {
		return CurrentConditions{}, Forecast{}, fmt.Errorf("fetch weather for %s: %w", city, err)
	}
	return cur, fc, nil
}

// WeatherData waits for both caches and returns the combined view for city.
func (s *Service) WeatherData(ctx context.Context, city string) View {
	v := View{City: city}
	if city == "" {
		return v
	}

	cur, fc, err := s.snapshot(ctx, city, false)
	if err != nil {
		s.logger.Warn("weather data unavailable", "city", city, "err", err)
		v.IsError = true
		v.Err = err
	}

	// after a failed revalidation the last good data is still shown
	if curEntry := s.current.Peek(city); hasData(curEntry) {
		cur = curEntry.Data
		v.WeatherData = &cur
	}
	if fcEntry := s.forecast.Peek(city); hasData(fcEntry) {
		fc = fcEntry.Data
	}
	v.Hourly = nonNil(fc.Hourly)
	v.Daily = nonNil(fc.Daily)
	return v
}

// WeatherState composes the current cache state for city without dispatching.
func (s *Service) WeatherState(city string) View {
	cur := s.current.Peek(city)
	fc := s.forecast.Peek(city)

	v := View{
		City:    city,
		Hourly:  nonNil(fc.Data.Hourly),
		Daily:   nonNil(fc.Data.Daily),
		Loading: cur.Loading() || fc.Loading(),
		IsError: cur.IsError() || fc.IsError(),
		Err:     errors.Join(cur.Err, fc.Err),
	}
	if hasData(cur) {
		data := cur.Data
		v.WeatherData = &data
	}
	return v
}

func hasData[V any](e cache.Entry[V]) bool {
	return !e.UpdatedAt.IsZero()
}

// Refetch triggers fresh current and forecast dispatches for city concurrently
// and returns without waiting; each cache settles on its own.
func (s *Service) Refetch(city string) {
	s.current.Trigger(city)
	s.forecast.Trigger(city)
}

// AddWidget fetches weather for city and stores a new widget. On failure the
// store is left untouched.
func (s *Service) AddWidget(ctx context.Context, city string) (Widget, error) {
	if city == "" {
		return Widget{}, ErrEmptyCity
	}

	cur, fc, err := s.snapshot(ctx, city, false)
	if err != nil {
		s.logger.Error("failed to add widget", "city", city, "err", err)
		return Widget{}, err
	}

	w := Widget{
		ID:             common.GenerateID(),
		City:           city,
		WeatherData:    cur,
		HourlyForecast: nonNil(fc.Hourly),
		DailyForecast:  nonNil(fc.Daily),
		LastUpdated:    s.now(),
		ForecastDays:   DefaultForecastDays,
	}
	if err := s.store.Add(w); err != nil {
		return Widget{}, fmt.Errorf("store widget: %w", err)
	}

	s.logger.Info("widget added", "id", w.ID, "city", city)
	return w, nil
}

// RefreshWidget refetches both series for the widget's city, bypassing
// staleness, and replaces the stored widget with the new snapshot. If either
// fetch fails the stored widget is unchanged.
func (s *Service) RefreshWidget(ctx context.Context, id string) (Widget, error) {
	w, err := s.store.Get(id)
	if err != nil {
		return Widget{}, err
	}

	cur, fc, err := s.snapshot(ctx, w.City, true)
	if err != nil {
		s.logger.Error("failed to refresh widget", "id", id, "city", w.City, "err", err)
		return Widget{}, err
	}

	// settings changed while the fetch was outstanding are kept
	next, err := s.store.Update(id, func(latest Widget) Widget {
		latest.WeatherData = cur
		latest.HourlyForecast = nonNil(fc.Hourly)
		latest.DailyForecast = nonNil(fc.Daily)
		latest.LastUpdated = s.now()
		return latest
	})
	if err != nil {
		return Widget{}, err
	}
	s.logger.Debug("widget refreshed", "id", id, "city", w.City)
	return next, nil
}

// RefreshAll refreshes every stored widget concurrently. Failures are logged
// and joined into the returned error; successful refreshes are kept.
func (s *Service) RefreshAll(ctx context.Context) error {
	widgets := s.store.List()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, w := range widgets {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := s.RefreshWidget(ctx, id); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(w.ID)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// SetForecastDays changes how many daily entries the widget displays.
func (s *Service) SetForecastDays(id string, days int) (Widget, error) {
	if err := validate.Var(days, "min=1,max=6"); err != nil {
		return Widget{}, fmt.Errorf("%w: got %d", ErrInvalidForecastDays, days)
	}

	return s.store.Update(id, func(w Widget) Widget {
		w.ForecastDays = days
		return w
	})
}

// DeleteWidget removes a widget.
func (s *Service) DeleteWidget(id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.logger.Info("widget deleted", "id", id)
	return nil
}

// GetWidget delegates to the underlying store.
func (s *Service) GetWidget(id string) (Widget, error) {
	return s.store.Get(id)
}

// ListWidgets delegates to the underlying store.
func (s *Service) ListWidgets() []Widget {
	return s.store.List()
}

// SweepCaches drops expired cache entries and reports how many were removed.
func (s *Service) SweepCaches() int {
	return s.current.Sweep() + s.forecast.Sweep()
}

// Formatter returns the formatter used for display strings.
func (s *Service) Formatter() Formatter {
	return s.format
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
