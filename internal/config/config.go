package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	// Server
	HTTPAddr string
	LogLevel string

	// Access gate: bcrypt hash of a shared token. Empty disables the gate.
	AccessTokenHash string

	// Gemini API
	GeminiAPIKey       string
	GeminiAPIEndpoint  string // if set, overrides default Gemini API base URL
	GeminiModelSegment string // e.g. gemini-2.5-flash

	// Segmentation
	SegmentBackend      string        // genai, generativeai, langchain
	SegmentTemperature  float64       // sampling temperature for segmentation calls
	SegmentTimeout      time.Duration // per-submit deadline; 0 disables
	SegmentRateInterval time.Duration // min interval between outbound calls
	SegmentRateBurst    int
	SegmentCacheTTL     time.Duration // 0 disables the result cache
	MaxInputLength      int           // in grapheme clusters
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AccessTokenHash: getEnv("ACCESS_TOKEN_HASH", ""),

		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiAPIEndpoint:  getEnv("GEMINI_API_ENDPOINT", ""),
		GeminiModelSegment: getEnv("GEMINI_MODEL_SEGMENT", "gemini-2.5-flash"),

		SegmentBackend:      getEnv("SEGMENT_BACKEND", "genai"),
		SegmentTemperature:  getEnvFloat("SEGMENT_TEMPERATURE", 0.2),
		SegmentTimeout:      getEnvDuration("SEGMENT_TIMEOUT", 60*time.Second),
		SegmentRateInterval: getEnvDuration("SEGMENT_RATE_INTERVAL", 500*time.Millisecond),
		SegmentRateBurst:    clampMin(getEnvInt("SEGMENT_RATE_BURST", 2), 1),
		SegmentCacheTTL:     getEnvDuration("SEGMENT_CACHE_TTL", 30*time.Minute),
		MaxInputLength:      clampMin(getEnvInt("MAX_INPUT_LENGTH", 5000), 1),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// clampMin returns v if v >= min, otherwise min. Used to ensure config values are in valid range.
func clampMin(v, min int) int {
	if v < min {
		return min
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
