package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	LogFormat          string
	Timezone           string
	MaxUploadBytes     int64
	CORSAllowedOrigins []string
	MasterDataPath     string

	// Extraction service
	ExtractionProvider     string
	ExtractionTimeout      time.Duration
	GeminiAPIKey           string
	GeminiModel            string
	GeminiInlineLimitBytes int
	BedrockModelID         string
	ExtractionRatePerMin   int
	ExtractionRateBurst    int

	// Kintone CRM
	KintoneBaseURL        string
	KintoneAppID          int
	KintoneAPIToken       string
	KintoneClientAppID    int
	KintoneClientAPIToken string
	CRMTimeout            time.Duration

	// Recording storage
	RecordingStore  string
	RecordingDir    string
	RecordingBucket string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Client search cache
	RedisAddr       string
	RedisPassword   string
	RedisTLS        bool
	ClientSearchTTL time.Duration

	// Submission log
	DatabaseURL string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		Timezone:           getEnv("APP_TIMEZONE", "Asia/Tokyo"),
		MaxUploadBytes:     int64(getEnvAsInt("MAX_UPLOAD_BYTES", 50<<20)),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		MasterDataPath:     getEnv("MASTER_DATA_PATH", ""),

		ExtractionProvider:     strings.ToLower(strings.TrimSpace(getEnv("EXTRACTION_PROVIDER", "gemini"))),
		ExtractionTimeout:      getEnvAsDuration("EXTRACTION_TIMEOUT", 120*time.Second),
		GeminiAPIKey:           getEnv("GEMINI_API_KEY", ""),
		GeminiModel:            getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiInlineLimitBytes: getEnvAsInt("GEMINI_INLINE_LIMIT_BYTES", 15<<20),
		BedrockModelID:         getEnv("BEDROCK_MODEL_ID", ""),
		ExtractionRatePerMin:   getEnvAsInt("EXTRACTION_RATE_PER_MINUTE", 10),
		ExtractionRateBurst:    getEnvAsInt("EXTRACTION_RATE_BURST", 5),

		KintoneBaseURL:        kintoneBaseURL(getEnv("KINTONE_BASE_URL", ""), getEnv("KINTONE_SUBDOMAIN", "")),
		KintoneAppID:          getEnvAsInt("KINTONE_APP_ID", 0),
		KintoneAPIToken:       getEnv("KINTONE_API_TOKEN", ""),
		KintoneClientAppID:    getEnvAsInt("KINTONE_CLIENT_APP_ID", 0),
		KintoneClientAPIToken: getEnv("KINTONE_CLIENT_API_TOKEN", ""),
		CRMTimeout:            getEnvAsDuration("CRM_TIMEOUT", 30*time.Second),

		RecordingStore:  strings.ToLower(strings.TrimSpace(getEnv("RECORDING_STORE", "local"))),
		RecordingDir:    getEnv("RECORDING_DIR", "saved_audio"),
		RecordingBucket: getEnv("RECORDING_BUCKET", ""),

		AWSRegion:           getEnv("AWS_REGION", "ap-northeast-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisTLS:        getEnvAsBool("REDIS_TLS", false),
		ClientSearchTTL: getEnvAsDuration("CLIENT_SEARCH_TTL", 10*time.Minute),

		DatabaseURL: getEnv("DATABASE_URL", ""),
	}
}

// KintoneSubmitToken returns the token header value for record submission.
// Kintone accepts several app tokens joined by commas when a record refers to
// another app (here: the client app through a lookup field).
func (c *Config) KintoneSubmitToken() string {
	if strings.TrimSpace(c.KintoneClientAPIToken) == "" {
		return c.KintoneAPIToken
	}
	return c.KintoneAPIToken + "," + c.KintoneClientAPIToken
}

// KintoneConfigured reports whether enough settings exist to talk to Kintone.
func (c *Config) KintoneConfigured() bool {
	return c.KintoneBaseURL != "" && c.KintoneAppID > 0 && c.KintoneAPIToken != ""
}

func kintoneBaseURL(explicit, subdomain string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return strings.TrimRight(explicit, "/")
	}
	if subdomain = strings.TrimSpace(subdomain); subdomain != "" {
		return fmt.Sprintf("https://%s.cybozu.com", subdomain)
	}
	return ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
