package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// StaticDir is the absolute path to the directory served at /static/.
	// Set via STATIC_DIR (relative paths are resolved against the process working directory at startup).
	StaticDir string

	Driver          string
	DSN             string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	SlowQuery       time.Duration

	TrainAPIURL          string
	TrainLine            string
	TrainStation         string
	TrainLang            string
	TrainRefreshInterval time.Duration

	WeatherAPIURL          string
	WeatherLang            string
	WeatherPlace           string
	WeatherRefreshInterval time.Duration

	FetchTimeout  time.Duration
	UpstreamRPS   float64
	UpstreamBurst int

	// Location is the zone the transit API timestamps are expressed in.
	Location *time.Location

	MQTTEnabled     bool
	MQTTBroker      string
	MQTTPort        int
	MQTTClientID    string
	MQTTTopicPrefix string

	ZipkinURL string
}

// StationKey is the key the transit API uses for the configured line/station pair, e.g. "ISL-HFC".
func (c Config) StationKey() string {
	return c.TrainLine + "-" + c.TrainStation
}

// LoadFromEnv reads configuration from the process environment. A .env file in
// the working directory is loaded first when present; real environment
// variables take precedence over it.
func LoadFromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	httpAddr := envOr("HTTP_ADDR", ":8080")

	staticDir := envOr("STATIC_DIR", "static")
	staticDir, err = filepath.Abs(staticDir)
	if err != nil {
		return Config{}, fmt.Errorf("STATIC_DIR %q: %w", staticDir, err)
	}

	driver := envOr("DB_DRIVER", "sqlite3")
	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	path := envOr("SQLITE_PATH", "data/board.db")

	maxOpenConns, err := envInt("DB_MAX_OPEN_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := envInt("DB_MAX_IDLE_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := envDuration("DB_CONN_MAX_LIFETIME", 0)
	if err != nil {
		return Config{}, err
	}
	// 0 turns slow-statement warnings off.
	slowQuery, err := envDuration("DB_SLOW_QUERY", 250*time.Millisecond)
	if err != nil {
		return Config{}, err
	}

	trainAPIURL, err := envURL("TRAIN_API_URL", "https://rt.data.gov.hk/v1/transport/mtr/getSchedule.php")
	if err != nil {
		return Config{}, err
	}
	trainLine := strings.ToUpper(envOr("TRAIN_LINE", "ISL"))
	trainStation := strings.ToUpper(envOr("TRAIN_STATION", "HFC"))
	trainLang := envOr("TRAIN_LANG", "TC")
	trainRefresh, err := envPositiveDuration("TRAIN_REFRESH_INTERVAL", 30*time.Second)
	if err != nil {
		return Config{}, err
	}

	weatherAPIURL, err := envURL("WEATHER_API_URL", "https://data.weather.gov.hk/weatherAPI/opendata/weather.php")
	if err != nil {
		return Config{}, err
	}
	weatherLang := envOr("WEATHER_LANG", "tc")
	weatherPlace := strings.TrimSpace(os.Getenv("WEATHER_PLACE"))
	weatherRefresh, err := envPositiveDuration("WEATHER_REFRESH_INTERVAL", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}

	fetchTimeout, err := envPositiveDuration("FETCH_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}

	rpsStr := envOr("UPSTREAM_RPS", "1")
	rps, err := strconv.ParseFloat(rpsStr, 64)
	if err != nil {
		return Config{}, fmt.Errorf("invalid UPSTREAM_RPS %q: %w", rpsStr, err)
	}
	if rps <= 0 {
		return Config{}, fmt.Errorf("UPSTREAM_RPS must be positive, got %v", rps)
	}
	burst, err := envInt("UPSTREAM_BURST", 2)
	if err != nil {
		return Config{}, err
	}
	if burst < 1 {
		return Config{}, fmt.Errorf("UPSTREAM_BURST must be >= 1, got %d", burst)
	}

	loc, err := parseOffset(envOr("TIMEZONE_OFFSET", "+08:00"))
	if err != nil {
		return Config{}, err
	}

	mqttEnabled, err := envBool("MQTT_ENABLED", false)
	if err != nil {
		return Config{}, err
	}
	mqttBroker := envOr("MQTT_BROKER", "localhost")
	mqttPort, err := envInt("MQTT_PORT", 1883)
	if err != nil {
		return Config{}, err
	}
	mqttClientID := envOr("MQTT_CLIENT_ID", "station-board")
	mqttTopicPrefix := strings.TrimSuffix(envOr("MQTT_TOPIC_PREFIX", "board"), "/")

	zipkinURL := strings.TrimSpace(os.Getenv("ZIPKIN_URL"))

	return Config{
		AppEnv:                 appEnv,
		LogLevel:               level,
		HTTPAddr:               httpAddr,
		StaticDir:              staticDir,
		Driver:                 driver,
		DSN:                    dsn,
		Path:                   path,
		MaxOpenConns:           maxOpenConns,
		MaxIdleConns:           maxIdleConns,
		ConnMaxLifetime:        connMaxLifetime,
		SlowQuery:              slowQuery,
		TrainAPIURL:            trainAPIURL,
		TrainLine:              trainLine,
		TrainStation:           trainStation,
		TrainLang:              trainLang,
		TrainRefreshInterval:   trainRefresh,
		WeatherAPIURL:          weatherAPIURL,
		WeatherLang:            weatherLang,
		WeatherPlace:           weatherPlace,
		WeatherRefreshInterval: weatherRefresh,
		FetchTimeout:           fetchTimeout,
		UpstreamRPS:            rps,
		UpstreamBurst:          burst,
		Location:               loc,
		MQTTEnabled:            mqttEnabled,
		MQTTBroker:             mqttBroker,
		MQTTPort:               mqttPort,
		MQTTClientID:           mqttClientID,
		MQTTTopicPrefix:        mqttTopicPrefix,
		ZipkinURL:              zipkinURL,
	}, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

// parseOffset turns "+08:00" / "-05:30" into a fixed zone.
func parseOffset(s string) (*time.Location, error) {
	t, err := time.Parse("-07:00", s)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE_OFFSET %q (expected ±hh:mm): %w", s, err)
	}
	_, offset := t.Zone()
	return time.FixedZone("UTC"+s, offset), nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func envPositiveDuration(key string, def time.Duration) (time.Duration, error) {
	d, err := envDuration(key, def)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", key, d)
	}
	return d, nil
}

func envURL(key, def string) (string, error) {
	s := envOr(key, def)
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid %s %q (scheme must be http or https)", key, s)
	}
	return s, nil
}
