// Package app loads the process-level configuration: the engine's
// domain.Config plus the simulator's own HTTP/Mongo/logging surface.
// Env var loading follows the same getEnv/getEnvInt64 pattern used
// throughout this codebase's other services.
package app

import (
	"os"
	"strconv"
	"strings"

	"llhlsabr/internal/abr/domain"
)

// Config is the simulator process's full configuration: the engine's
// read-only domain.Config plus everything needed to run the HTTP/WS
// dashboard and optional Mongo history sink.
type Config struct {
	Engine domain.Config

	HTTPAddr  string
	LogLevel  string
	LogFormat string

	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	CORSAllowedOrigins []string
}

// LoadConfig builds a Config from the environment, falling back to
// domain.DefaultConfig() and conservative process defaults.
func LoadConfig() Config {
	def := domain.DefaultConfig()

	return Config{
		Engine: domain.Config{
			ABRRule: domain.RuleTag(getEnv("ABR_RULE", string(def.ABRRule))),

			AbrEwmaSlowVoD:         getEnvFloat64("ABR_EWMA_SLOW_VOD", def.AbrEwmaSlowVoD),
			AbrEwmaFastVoD:         getEnvFloat64("ABR_EWMA_FAST_VOD", def.AbrEwmaFastVoD),
			AbrEwmaSlowLive:        getEnvFloat64("ABR_EWMA_SLOW_LIVE", def.AbrEwmaSlowLive),
			AbrEwmaFastLive:        getEnvFloat64("ABR_EWMA_FAST_LIVE", def.AbrEwmaFastLive),
			AbrEwmaDefaultEstimate: getEnvFloat64("ABR_EWMA_DEFAULT_ESTIMATE", def.AbrEwmaDefaultEstimate),

			AbrBandWidthFactor:    getEnvFloat64("ABR_BANDWIDTH_FACTOR", def.AbrBandWidthFactor),
			AbrBandWidthUpFactor:  getEnvFloat64("ABR_BANDWIDTH_UP_FACTOR", def.AbrBandWidthUpFactor),
			AbrMaxWithRealBitrate: getEnvBool("ABR_MAX_WITH_REAL_BITRATE", def.AbrMaxWithRealBitrate),

			MaxBufferHole:      getEnvFloat64("ABR_MAX_BUFFER_HOLE", def.MaxBufferHole),
			MaxStarvationDelay: getEnvFloat64("ABR_MAX_STARVATION_DELAY", def.MaxStarvationDelay),
			MaxLoadingDelay:    getEnvFloat64("ABR_MAX_LOADING_DELAY", def.MaxLoadingDelay),

			Seed: getEnvInt64("ABR_SEED", def.Seed),

			UseLoLpPlayback:             getEnvBool("ABR_USE_CATCHUP", def.UseLoLpPlayback),
			LiveCatchupLatencyThreshold: getEnvFloat64("ABR_CATCHUP_LATENCY_THRESHOLD", def.LiveCatchupLatencyThreshold),
			MinDrift:                    getEnvFloat64("ABR_CATCHUP_MIN_DRIFT", def.MinDrift),
			PlaybackBufferMin:           getEnvFloat64("ABR_CATCHUP_BUFFER_MIN", def.PlaybackBufferMin),
			LiveCatchupPlaybackRate:     getEnvFloat64("ABR_CATCHUP_RATE", def.LiveCatchupPlaybackRate),
			IsSafari:                    getEnvBool("ABR_IS_SAFARI", def.IsSafari),
		},

		HTTPAddr:  getEnv("HTTP_ADDR", ":8080"),
		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),

		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnv("MONGO_DB", "abrsim"),
		MongoCollection: getEnv("MONGO_COLLECTION", "decisions"),

		CORSAllowedOrigins: parseCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}
}

func parseCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat64(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
