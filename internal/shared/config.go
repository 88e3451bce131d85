package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string // separate metrics listener; empty disables it
	SQLitePath  string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	CacheTTL    time.Duration

	CORSOrigins    []string
	RequestTimeout time.Duration

	// SHOP_SOURCE: json | sqlite | places
	ShopSource      string
	SnapshotPlaces  string
	SnapshotReviews string
	DefaultLocation string
	LexiconPath     string

	PlacesBase string
	PlacesKey  string
	PlacesRPS  int
	Workers    int
	Locations  []string

	LLMProvider    string
	LLMModel       string
	LLMBaseURL     string
	AnthropicKey   string
	OpenAIKey      string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTopP        float64
	MaxShops       int
}

// LLMKey is the API key of the configured provider.
func (c Config) LLMKey() string {
	if strings.EqualFold(c.LLMProvider, "openai") {
		return c.OpenAIKey
	}
	return c.AnthropicKey
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real env vars win.
func Load() Config {
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-integer setting")
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
			log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-numeric setting")
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),
		SQLitePath:  env("SQLITE_PATH", "cofind.db"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,

		CORSOrigins:    splitList(env("CORS_ORIGINS", "http://localhost:5173")),
		RequestTimeout: time.Duration(atoi("REQUEST_TIMEOUT_SECONDS", 60)) * time.Second,

		ShopSource:      strings.ToLower(env("SHOP_SOURCE", "sqlite")),
		SnapshotPlaces:  env("SNAPSHOT_PLACES", "data/places.json"),
		SnapshotReviews: env("SNAPSHOT_REVIEWS", "data/reviews.json"),
		DefaultLocation: env("DEFAULT_LOCATION", "Pontianak"),
		LexiconPath:     env("LEXICON_PATH", ""),

		PlacesBase: env("GOOGLE_PLACES_BASE_URL", "https://maps.googleapis.com/maps/api/place"),
		PlacesKey:  env("GOOGLE_PLACES_API_KEY", ""),
		PlacesRPS:  atoi("PLACES_RPS", 5),
		Workers:    atoi("INGEST_WORKERS", 4),
		Locations:  splitList(env("INGEST_LOCATIONS", "Pontianak")),

		LLMProvider:    strings.ToLower(env("LLM_PROVIDER", "anthropic")),
		LLMModel:       env("LLM_MODEL", ""),
		LLMBaseURL:     env("LLM_BASE_URL", ""),
		AnthropicKey:   env("ANTHROPIC_API_KEY", ""),
		OpenAIKey:      env("OPENAI_API_KEY", ""),
		LLMMaxTokens:   atoi("LLM_MAX_TOKENS", 1024),
		LLMTemperature: atof("LLM_TEMPERATURE", 0.3),
		LLMTopP:        atof("LLM_TOP_P", 0), // 0 = unset; temperature sampling
		MaxShops:       atoi("MAX_SHOPS", 10),
	}
	if c.LLMKey() == "" {
		log.Warn().Str("provider", c.LLMProvider).Msg("LLM API key is empty")
	}
	if c.ShopSource == "places" && c.PlacesKey == "" {
		log.Warn().Msg("GOOGLE_PLACES_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
