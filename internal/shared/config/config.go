package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Port            string `validate:"required"`
	Env             string `validate:"oneof=dev local staging production"`
	LogLevel        string `validate:"oneof=debug info warn error"`
	ObjectStoreType string `validate:"oneof=local s3"`
	LocalStoreDir   string `validate:"required_if=ObjectStoreType local"`
	S3Bucket        string `validate:"required_if=ObjectStoreType s3"`
	CORSAllowOrigin []string
	AWSRegion       string
	S3Prefix        string
	SSEKMSKeyID     string
	DatabaseURL     string

	LLMProvider  string `validate:"oneof=none openai gemini ollama"`
	OpenAIAPIKey string `validate:"required_if=LLMProvider openai"`
	GeminiAPIKey string `validate:"required_if=LLMProvider gemini"`
	LLMModel     string
	OllamaURL    string
	LLMTimeout   time.Duration

	LLMMaxContextTokens   int     `validate:"min=0"`
	MaxUploadBytes        int64   `validate:"min=1024"`
	RateLimitDefaultRPS   float64 `validate:"min=0"`
	RateLimitDefaultBurst int     `validate:"min=0"`
	RateLimitUploadRPS    float64 `validate:"min=0"`
	RateLimitUploadBurst  int     `validate:"min=0"`
	RateLimitChatRPS      float64 `validate:"min=0"`
	RateLimitChatBurst    int     `validate:"min=0"`

	ProcessingStaleAfter time.Duration
	RecoverOnStart       bool
	StatsCacheTTL        time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// Values from CONFIG_FILE act as defaults underneath the environment.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	fc, err := loadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Printf("config: ignoring CONFIG_FILE: %v", err)
	}

	env := normalizeEnv(getEnv("ENV", or(fc.Env, "dev")))
	dbURL := getEnv("DATABASE_URL", fc.Database.URL)

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", or(fc.Server.Port, "8080")),
		Env:             env,
		LogLevel:        normalizeLogLevel(getEnv("LOG_LEVEL", or(fc.LogLevel, "info"))),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", or(strings.Join(fc.Server.CORSAllowOrigins, ","), "http://localhost:5173"))),
		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", or(fc.Storage.Type, "local"))),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", or(fc.Storage.LocalDir, "./data")),
		AWSRegion:       getEnv("AWS_REGION", fc.Storage.S3.Region),
		S3Bucket:        getEnv("S3_BUCKET", fc.Storage.S3.Bucket),
		S3Prefix:        getEnv("S3_PREFIX", fc.Storage.S3.Prefix),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", fc.Storage.S3.KMSKeyID),
		DatabaseURL:     dbURL,

		LLMProvider:         normalizeProvider(getEnv("LLM_PROVIDER", or(fc.LLM.Provider, "none"))),
		LLMModel:            getEnv("LLM_MODEL", fc.LLM.Model),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		OllamaURL:           getEnv("OLLAMA_URL", or(fc.LLM.OllamaURL, "http://localhost:11434")),
		LLMTimeout:          getDuration("LLM_TIMEOUT", or(fc.LLM.Timeout, "60s")),
		LLMMaxContextTokens: getInt("LLM_MAX_CONTEXT_TOKENS", orInt(fc.LLM.MaxContextTokens, 6000)),

		MaxUploadBytes:       int64(getInt("MAX_UPLOAD_BYTES", orInt(fc.Processing.MaxUploadBytes, 20<<20))),
		ProcessingStaleAfter: getDuration("PROCESSING_STALE_AFTER", or(fc.Processing.StaleAfter, "10m")),
		RecoverOnStart:       getBool("RECOVER_ON_START", fc.Processing.RecoverOnStart == nil || *fc.Processing.RecoverOnStart),
		StatsCacheTTL:        getDuration("STATS_CACHE_TTL", or(fc.Processing.StatsCacheTTL, "30s")),

		RateLimitDefaultRPS:   getFloat("RATE_LIMIT_DEFAULT_RPS", 5),
		RateLimitDefaultBurst: getInt("RATE_LIMIT_DEFAULT_BURST", 20),
		RateLimitUploadRPS:    getFloat("RATE_LIMIT_UPLOAD_RPS", 0.2),
		RateLimitUploadBurst:  getInt("RATE_LIMIT_UPLOAD_BURST", 5),
		RateLimitChatRPS:      getFloat("RATE_LIMIT_CHAT_RPS", 1),
		RateLimitChatBurst:    getInt("RATE_LIMIT_CHAT_BURST", 10),
	}
}

// IsDevLike reports whether in-memory fallbacks are acceptable.
func (c Config) IsDevLike() bool {
	switch c.Env {
	case "dev", "local":
		return true
	default:
		return false
	}
}

// LLMEnabled reports whether a hosted model is configured.
func (c Config) LLMEnabled() bool {
	return c.LLMProvider != "" && c.LLMProvider != "none"
}

func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			log.Printf("config: skip %s: %v", path, err)
		}
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config: %s invalid int: %v", key, err)
		return def
	}
	return val
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config: %s invalid float: %v", key, err)
		return def
	}
	return val
}

func getBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("config: %s invalid bool: %v", key, err)
		return def
	}
	return val
}

func getDuration(key, def string) time.Duration {
	raw := getEnv(key, def)
	val, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		log.Printf("config: %s invalid duration: %v", key, err)
		val, _ = time.ParseDuration(def)
	}
	return val
}

func or(val, def string) string {
	if strings.TrimSpace(val) != "" {
		return val
	}
	return def
}

func orInt(val, def int) int {
	if val > 0 {
		return val
	}
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch p := strings.ToLower(strings.TrimSpace(raw)); p {
	case "openai", "gemini", "ollama":
		return p
	default:
		return "none"
	}
}

func normalizeLogLevel(raw string) string {
	switch l := strings.ToLower(strings.TrimSpace(raw)); l {
	case "debug", "warn", "error":
		return l
	default:
		return "info"
	}
}
