package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/azaan/internal/praytime"
)

const (
	BackendBolt  = "bolt"
	BackendRedis = "redis"
)

// Config holds environment-based settings
type Config struct {
	Environment    string
	ServerAddress  string
	JWTSecret      string
	DatabaseURL    string
	MigrationsPath string

	Latitude     float64
	Longitude    float64
	Timezone     string
	Method       praytime.Method
	Asr          praytime.AsrMethod
	HighLatitude praytime.HighLatitudeRule

	StateBackend  string
	StateFile     string
	RedisAddress  string
	RedisUsername string
	RedisPassword string

	MQTTBrokerURL   string
	MQTTTopicPrefix string

	AzaanAsset      string
	AssetDir        string
	UseSpaces       bool
	SpacesEndpoint  string
	SpacesRegion    string
	SpacesBucket    string
	SpacesCDNURL    string
	SpacesAccessKey string
	SpacesSecretKey string

	FallbackSchedule     string
	LockTTL              time.Duration
	NotificationsEnabled bool
	AudioEnabled         bool

	LogLevel string
	LogFile  string
}

// Geo is the prayer time configuration derived from the environment.
func (c *Config) Geo() praytime.Config {
	return praytime.Config{
		Latitude:     c.Latitude,
		Longitude:    c.Longitude,
		Timezone:     c.Timezone,
		Method:       c.Method,
		Asr:          c.Asr,
		HighLatitude: c.HighLatitude,
	}
}

func (c *Config) Development() bool {
	return c.Environment == "" || c.Environment == "development"
}

// Load reads .env when present, then configuration from environment
// variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to read .env")
	}
	return FromEnv()
}

// FromEnv reads configuration from environment variables only.
func FromEnv() (*Config, error) {
	jwt := os.Getenv("JWT_SECRET")
	if jwt == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	tz := os.Getenv("TIMEZONE")
	if tz == "" {
		return nil, fmt.Errorf("TIMEZONE is required")
	}

	lat, err := requiredFloat("LATITUDE")
	if err != nil {
		return nil, err
	}
	lng, err := requiredFloat("LONGITUDE")
	if err != nil {
		return nil, err
	}
	method, err := praytime.ParseMethod(getenv("CALC_METHOD", string(praytime.MethodMWL)))
	if err != nil {
		return nil, err
	}
	asr, err := praytime.ParseAsrMethod(os.Getenv("ASR_METHOD"))
	if err != nil {
		return nil, err
	}
	rule, err := praytime.ParseHighLatitudeRule(os.Getenv("HIGH_LAT_RULE"))
	if err != nil {
		return nil, err
	}

	backend := strings.ToLower(getenv("STATE_BACKEND", BackendBolt))
	if backend != BackendBolt && backend != BackendRedis {
		return nil, fmt.Errorf("STATE_BACKEND must be %q or %q, got %q", BackendBolt, BackendRedis, backend)
	}
	if backend == BackendRedis && os.Getenv("REDIS_ADDRESS") == "" {
		return nil, fmt.Errorf("REDIS_ADDRESS is required when STATE_BACKEND=redis")
	}

	lockTTL, err := time.ParseDuration(getenv("LOCK_TTL", "2m"))
	if err != nil || lockTTL <= 0 {
		return nil, fmt.Errorf("invalid LOCK_TTL %q", os.Getenv("LOCK_TTL"))
	}
	notifications, err := boolean("NOTIFICATIONS_ENABLED", true)
	if err != nil {
		return nil, err
	}
	audio, err := boolean("AUDIO_ENABLED", true)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment:    os.Getenv("APP_ENV"),
		ServerAddress:  getenv("SERVER_ADDRESS", ":8080"),
		JWTSecret:      jwt,
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		MigrationsPath: getenv("MIGRATIONS_PATH", "./migrations"),

		Latitude:     lat,
		Longitude:    lng,
		Timezone:     tz,
		Method:       method,
		Asr:          asr,
		HighLatitude: rule,

		StateBackend:  backend,
		StateFile:     getenv("STATE_FILE", "./azaan.db"),
		RedisAddress:  os.Getenv("REDIS_ADDRESS"),
		RedisUsername: os.Getenv("REDIS_USERNAME"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		MQTTBrokerURL:   os.Getenv("MQTT_BROKER_URL"),
		MQTTTopicPrefix: getenv("MQTT_TOPIC_PREFIX", "azaan"),

		AzaanAsset:      getenv("AZAAN_ASSET", "azaan.wav"),
		AssetDir:        getenv("ASSET_DIR", "./assets"),
		UseSpaces:       os.Getenv("USE_SPACES") == "true",
		SpacesEndpoint:  os.Getenv("SPACES_ENDPOINT"),
		SpacesRegion:    os.Getenv("SPACES_REGION"),
		SpacesBucket:    os.Getenv("SPACES_BUCKET"),
		SpacesCDNURL:    os.Getenv("SPACES_CDN_URL"),
		SpacesAccessKey: os.Getenv("SPACES_ACCESS_KEY"),
		SpacesSecretKey: os.Getenv("SPACES_SECRET_KEY"),

		FallbackSchedule:     getenv("FALLBACK_SCHEDULE", "@every 15m"),
		LockTTL:              lockTTL,
		NotificationsEnabled: notifications,
		AudioEnabled:         audio,

		LogLevel: getenv("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),
	}

	if err := cfg.Geo().Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func requiredFloat(key string) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func boolean(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
