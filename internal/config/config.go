package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Ai       AIConfig
	Index    IndexConfig
	Pipeline PipelineConfig
	Session  SessionConfig
	Upstream UpstreamConfig
	Alert    AlertConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type AIConfig struct {
	EmbeddingProvider string // "tei" or "ollama"
	EmbedURL          string
	EmbeddingDim      int
	OllamaBaseURL     string
	OllamaEmbedModel  string

	RerankURL     string
	RerankEnabled bool

	LLMProvider string // "qwen" or "ollama"
	LLMModel    string
	LLMBaseURL  string
}

type IndexConfig struct {
	Provider   string // "milvus" or "pgvector"
	MilvusAddr string
	Collection string
	Metric     string
	Nprobe     int
}

type PipelineConfig struct {
	SimilarityThreshold float64
	DefaultLimit        int
	EmbedTimeout        time.Duration
	SearchTimeout       time.Duration
	RerankTimeout       time.Duration
	AugmentTimeout      time.Duration
}

type SessionConfig struct {
	SessionTTL time.Duration
	ResultTTL  time.Duration
}

type UpstreamConfig struct {
	BaseURL string
	APIKey  string
	UserID  string
}

type AlertConfig struct {
	Enabled   bool
	Recipient string
	Threshold int
	Window    time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "ServiceResolver"),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "tei"),
			EmbedURL:          getEnv("EMBED_URL", "http://localhost:12456/embed"),
			EmbeddingDim:      getEnvAsInt("EMBEDDING_DIM", 1024),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaEmbedModel:  getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			RerankURL:         getEnv("RERANK_URL", "http://localhost:12457/rerank"),
			RerankEnabled:     getEnvAsBool("RERANK_ENABLED", true),
			LLMProvider:       getEnv("LLM_PROVIDER", "qwen"),
			LLMModel:          getEnv("LLM_MODEL", "qwen"),
			LLMBaseURL:        getEnv("LLM_BASE_URL", "http://localhost:12455"),
		},
		Index: IndexConfig{
			Provider:   getEnv("INDEX_PROVIDER", "milvus"),
			MilvusAddr: getEnv("MILVUS_ADDR", "localhost:19530"),
			Collection: getEnv("INDEX_COLLECTION", "optimized_excel"),
			Metric:     getEnv("INDEX_METRIC", "COSINE"),
			Nprobe:     getEnvAsInt("INDEX_NPROBE", 16),
		},
		Pipeline: PipelineConfig{
			SimilarityThreshold: getEnvAsFloat("SIMILARITY_THRESHOLD", 0.5),
			DefaultLimit:        getEnvAsInt("DEFAULT_LIMIT", 5),
			EmbedTimeout:        getEnvAsDuration("EMBED_TIMEOUT", 10*time.Second),
			SearchTimeout:       getEnvAsDuration("SEARCH_TIMEOUT", 5*time.Second),
			RerankTimeout:       getEnvAsDuration("RERANK_TIMEOUT", 10*time.Second),
			AugmentTimeout:      getEnvAsDuration("AUGMENT_TIMEOUT", 15*time.Second),
		},
		Session: SessionConfig{
			SessionTTL: getEnvAsDuration("SESSION_TTL", time.Hour),
			ResultTTL:  getEnvAsDuration("RESULT_CACHE_TTL", 45*time.Second),
		},
		Upstream: UpstreamConfig{
			BaseURL: getEnv("UPSTREAM_BASE_URL", ""),
			APIKey:  getEnv("UPSTREAM_API_KEY", ""),
			UserID:  getEnv("UPSTREAM_USER_ID", "admin123"),
		},
		Alert: AlertConfig{
			Enabled:   getEnvAsBool("ALERT_ENABLED", false),
			Recipient: getEnv("ALERT_RECIPIENT", ""),
			Threshold: getEnvAsInt("ALERT_COUNT", 10),
			Window:    getEnvAsDuration("ALERT_WINDOW", 5*time.Minute),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
