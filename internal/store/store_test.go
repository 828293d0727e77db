package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-widgets/internal/weather"
)

func sampleWidget(id, city string) weather.Widget {
	return weather.Widget{
		ID:   id,
		City: city,
		WeatherData: weather.CurrentConditions{
			City: city, Country: "FR", Temperature: 12, Description: "clear sky", Icon: "01d",
			Humidity: 60, WindSpeed: 14, FeelsLike: 11, Pressure: 1015, Visibility: 10,
			Sunrise: "07:45 AM", Sunset: "05:10 PM",
		},
		HourlyForecast: []weather.HourlyEntry{{Time: "3 PM", Temperature: 12, Description: "clear sky", Icon: "01d", Humidity: 60, WindSpeed: 14}},
		DailyForecast:  []weather.DailyEntry{{Date: "2024-01-15", Day: "Mon", TempHigh: 13, TempLow: 4, Description: "clear sky", Icon: "01d", Humidity: 62, WindSpeed: 12}},
		LastUpdated:    time.Date(2024, 1, 15, 14, 30, 5, 123456789, time.FixedZone("CET", 3600)),
		ForecastDays:   5,
	}
}

// fakeRedis is a map-backed RedisClient.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	fail error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return redis.NewStatusResult("", f.fail)
	}
	f.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func assertSameWidget(t *testing.T, want, got weather.Widget) {
	t.Helper()
	assert.True(t, want.LastUpdated.Equal(got.LastUpdated), "lastUpdated %v != %v", want.LastUpdated, got.LastUpdated)
	want.LastUpdated, got.LastUpdated = time.Time{}, time.Time{}
	assert.Equal(t, want, got)
}

func TestMemoryStoreLifecycle(t *testing.T) {
	s := NewMemoryStore(nil, nil)

	require.NoError(t, s.Add(sampleWidget("a", "Paris")))
	require.NoError(t, s.Add(sampleWidget("b", "Tokyo")))
	require.ErrorIs(t, s.Add(sampleWidget("a", "Paris")), ErrDuplicateID)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "Paris", list[0].City)
	assert.Equal(t, "Tokyo", list[1].City)

	updated, err := s.Update("b", func(w weather.Widget) weather.Widget {
		w.ForecastDays = 3
		w.ID = "ignored"
		return w
	})
	require.NoError(t, err)
	assert.Equal(t, "b", updated.ID)
	got, err := s.Get("b")
	require.NoError(t, err)
	assert.Equal(t, 3, got.ForecastDays)

	_, err = s.Update("zzz", func(w weather.Widget) weather.Widget { return w })
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete("a"))
	_, err = s.Get("a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete("a"), ErrNotFound)
	assert.Len(t, s.List(), 1)
}

func TestFilePersisterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "widgets.json")
	w := sampleWidget("a", "Paris")

	s := NewMemoryStore(NewFilePersister(path), nil)
	require.NoError(t, s.Add(w))

	reloaded := NewMemoryStore(NewFilePersister(path), nil)
	got, err := reloaded.Get("a")
	require.NoError(t, err)
	assertSameWidget(t, w, got)
}

func TestFilePersisterClearsOnLastDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "widgets.json")
	s := NewMemoryStore(NewFilePersister(path), nil)

	require.NoError(t, s.Add(sampleWidget("a", "Paris")))
	_, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, s.Delete("a"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.Empty(t, NewMemoryStore(NewFilePersister(path), nil).List())
}

func TestCorruptStateStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "widgets.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := NewMemoryStore(NewFilePersister(path), nil)
	assert.Empty(t, s.List())
}

func TestRedisPersisterRoundTrip(t *testing.T) {
	client := newFakeRedis()
	w1 := sampleWidget("a", "Paris")
	w2 := sampleWidget("b", "Berlin")

	s := NewMemoryStore(NewRedisPersister(client, ""), nil)
	require.NoError(t, s.Add(w1))
	require.NoError(t, s.Add(w2))
	assert.Contains(t, client.data, WIDGETS_KEY_V1)

	reloaded := NewMemoryStore(NewRedisPersister(client, ""), nil)
	list := reloaded.List()
	require.Len(t, list, 2)
	assertSameWidget(t, w1, list[0])
	assertSameWidget(t, w2, list[1])

	require.NoError(t, reloaded.Delete("a"))
	require.NoError(t, reloaded.Delete("b"))
	assert.NotContains(t, client.data, WIDGETS_KEY_V1)
}

func TestFailedPersistRollsBack(t *testing.T) {
	client := newFakeRedis()
	s := NewMemoryStore(NewRedisPersister(client, ""), nil)
	original := sampleWidget("a", "Paris")
	require.NoError(t, s.Add(original))

	client.fail = errors.New("connection refused")

	_, err := s.Update("a", func(w weather.Widget) weather.Widget {
		w.ForecastDays = 2
		return w
	})
	require.Error(t, err)
	require.Error(t, s.Add(sampleWidget("b", "Rome")))

	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 5, got.ForecastDays)
	assert.Len(t, s.List(), 1)
	assertSameWidget(t, original, got)
}
