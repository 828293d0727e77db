package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// ErrMissingAPIKey is returned when no OpenWeather API key is configured.
var ErrMissingAPIKey = errors.New("OPENWEATHER_API_KEY is required")

const defaultConfigFile = "config.toml"

type AppConfig struct {
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string `validate:"omitempty,url"`

	Port        string `validate:"required"`
	HTTPTimeout time.Duration

	// FetchTimeout bounds a single provider dispatch, independent of callers.
	FetchTimeout time.Duration

	SearchDebounce   time.Duration `validate:"gte=0"`
	SearchStaleTime  time.Duration `validate:"gt=0"`
	WeatherStaleTime time.Duration `validate:"gt=0"`

	// RefreshInterval drives background widget refresh; 0 disables it.
	RefreshInterval time.Duration `validate:"gte=0"`

	ProviderRPS   float64 `validate:"gte=0"`
	ProviderBurst int     `validate:"gte=0"`

	StoreBackend  string `validate:"oneof=memory file redis"`
	StorePath     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int `validate:"gte=0"`

	LogLevel string `validate:"oneof=debug info warn error"`
	// Timezone is an IANA name used for display strings; empty means local time.
	Timezone string
}

// Location resolves Timezone.
func (c *AppConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// fileConfig mirrors the optional TOML file.
type fileConfig struct {
	OpenWeather struct {
		APIKey  string  `toml:"api_key"`
		BaseURL string  `toml:"base_url"`
		RPS     float64 `toml:"rps"`
		Burst   int     `toml:"burst"`
	} `toml:"openweather"`
	Server struct {
		Port        string   `toml:"port"`
		HTTPTimeout duration `toml:"http_timeout"`
	} `toml:"server"`
	Cache struct {
		FetchTimeout     duration `toml:"fetch_timeout"`
		SearchDebounce   duration `toml:"search_debounce"`
		SearchStaleTime  duration `toml:"search_stale_time"`
		WeatherStaleTime duration `toml:"weather_stale_time"`
		RefreshInterval  duration `toml:"refresh_interval"`
	} `toml:"cache"`
	Store struct {
		Backend       string `toml:"backend"`
		Path          string `toml:"path"`
		RedisAddr     string `toml:"redis_addr"`
		RedisPassword string `toml:"redis_password"`
		RedisDB       int    `toml:"redis_db"`
	} `toml:"store"`
	Log struct {
		Level    string `toml:"level"`
		Timezone string `toml:"timezone"`
	} `toml:"log"`
}

// duration decodes TOML strings such as "5m".
type duration struct {
	time.Duration
	set bool
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration, d.set = v, true
	return nil
}

func defaults() *AppConfig {
	return &AppConfig{
		Port:             "8080",
		HTTPTimeout:      10 * time.Second,
		FetchTimeout:     15 * time.Second,
		SearchDebounce:   300 * time.Millisecond,
		SearchStaleTime:  10 * time.Minute,
		WeatherStaleTime: 5 * time.Minute,
		ProviderRPS:      5,
		ProviderBurst:    5,
		StoreBackend:     "memory",
		StorePath:        "widgets.json",
		RedisAddr:        "localhost:6379",
		LogLevel:         "info",
	}
}

// Load reads configuration from an optional TOML file and the environment,
// environment winning, with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file loaded", "err", err)
	}
	cfg := defaults()

	path := getenvDefault("WEATHER_CONFIG", defaultConfigFile)
	if err := applyFile(cfg, path, os.Getenv("WEATHER_CONFIG") != ""); err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.OpenWeatherAPIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFile overlays the TOML file at path. A missing file is only an error
// when it was asked for explicitly.
func applyFile(cfg *AppConfig, path string, required bool) error {
	var fc fileConfig
	_, err := toml.DecodeFile(path, &fc)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}

	setString(&cfg.OpenWeatherAPIKey, fc.OpenWeather.APIKey)
	setString(&cfg.OpenWeatherBaseURL, fc.OpenWeather.BaseURL)
	if fc.OpenWeather.RPS > 0 {
		cfg.ProviderRPS = fc.OpenWeather.RPS
	}
	if fc.OpenWeather.Burst > 0 {
		cfg.ProviderBurst = fc.OpenWeather.Burst
	}

	setString(&cfg.Port, fc.Server.Port)
	setDuration(&cfg.HTTPTimeout, fc.Server.HTTPTimeout)

	setDuration(&cfg.FetchTimeout, fc.Cache.FetchTimeout)
	setDuration(&cfg.SearchDebounce, fc.Cache.SearchDebounce)
	setDuration(&cfg.SearchStaleTime, fc.Cache.SearchStaleTime)
	setDuration(&cfg.WeatherStaleTime, fc.Cache.WeatherStaleTime)
	setDuration(&cfg.RefreshInterval, fc.Cache.RefreshInterval)

	setString(&cfg.StoreBackend, fc.Store.Backend)
	setString(&cfg.StorePath, fc.Store.Path)
	setString(&cfg.RedisAddr, fc.Store.RedisAddr)
	setString(&cfg.RedisPassword, fc.Store.RedisPassword)
	if fc.Store.RedisDB > 0 {
		cfg.RedisDB = fc.Store.RedisDB
	}

	setString(&cfg.LogLevel, fc.Log.Level)
	setString(&cfg.Timezone, fc.Log.Timezone)
	return nil
}

func applyEnv(cfg *AppConfig) error {
	var err error

	cfg.OpenWeatherAPIKey = getenvDefault("OPENWEATHER_API_KEY", cfg.OpenWeatherAPIKey)
	cfg.OpenWeatherBaseURL = getenvDefault("OPENWEATHER_BASE_URL", cfg.OpenWeatherBaseURL)
	cfg.Port = getenvDefault("PORT", cfg.Port)

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"HTTP_TIMEOUT", &cfg.HTTPTimeout},
		{"FETCH_TIMEOUT", &cfg.FetchTimeout},
		{"SEARCH_DEBOUNCE", &cfg.SearchDebounce},
		{"SEARCH_STALE_TIME", &cfg.SearchStaleTime},
		{"WEATHER_STALE_TIME", &cfg.WeatherStaleTime},
		{"REFRESH_INTERVAL", &cfg.RefreshInterval},
	}
	for _, d := range durations {
		if *d.dst, err = getenvDuration(d.key, *d.dst); err != nil {
			return err
		}
	}

	if cfg.ProviderRPS, err = getenvFloat("PROVIDER_RPS", cfg.ProviderRPS); err != nil {
		return err
	}
	cfg.ProviderBurst = getenvInt("PROVIDER_BURST", cfg.ProviderBurst)

	cfg.StoreBackend = getenvDefault("STORE_BACKEND", cfg.StoreBackend)
	cfg.StorePath = getenvDefault("STORE_PATH", cfg.StorePath)
	cfg.RedisAddr = getenvDefault("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getenvDefault("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getenvInt("REDIS_DB", cfg.RedisDB)

	cfg.LogLevel = getenvDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.Timezone = getenvDefault("TIMEZONE", cfg.Timezone)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v duration) {
	if v.set {
		*dst = v.Duration
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
