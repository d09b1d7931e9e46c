package cfg

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string
	HTTPPort    string
	LogLevel    string

	MongoURI      string
	MongoDatabase string

	RabbitURL        string
	RabbitRetries    int
	RabbitRetryDelay time.Duration

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	MinioBucket    string

	RedisAddr     string
	RedisPassword string

	JWTSecret     string
	JWTTTLSeconds int64

	GeminiAPIKey string

	PublicBaseURL      string
	CORSAllowedOrigins []string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	MaxFileSizeBytes int64
	DownloadTimeout  time.Duration
	SummarizeTimeout time.Duration
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not found, using environment variables")
	}

	cfg := Config{
		ServiceName:    getEnv("SERVICE_NAME", "study-space"),
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		MongoURI:       os.Getenv("MONGODB_URI"),
		MongoDatabase:  getEnv("MONGODB_DATABASE", "study_space"),
		RabbitURL:      os.Getenv("RABBITMQ_URL"),
		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "study-space-files"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		SMTPHost:       os.Getenv("SMTP_HOST"),
		SMTPUser:       os.Getenv("SMTP_USER"),
		SMTPPass:       os.Getenv("SMTP_PASS"),
		MailFrom:       getEnv("MAIL_FROM", "no-reply@study-space.local"),
	}

	if os.Getenv("MINIO_USE_SSL") == "true" || os.Getenv("MINIO_USE_SSL") == "1" {
		cfg.MinioUseSSL = true
	}

	cfg.CORSAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"))
	cfg.SMTPPort = getEnvInt("SMTP_PORT", 587)
	cfg.RabbitRetries = getEnvInt("RABBITMQ_CONNECT_RETRIES", 10)
	cfg.RabbitRetryDelay = time.Duration(getEnvInt("RABBITMQ_RETRY_DELAY_SECONDS", 5)) * time.Second
	cfg.JWTTTLSeconds = int64(getEnvInt("JWT_TTL_SECONDS", 24*3600))
	cfg.DownloadTimeout = time.Duration(getEnvInt("DOWNLOAD_TIMEOUT_SECONDS", 120)) * time.Second
	cfg.SummarizeTimeout = time.Duration(getEnvInt("SUMMARIZE_TIMEOUT_SECONDS", 120)) * time.Second

	// MAX_FILE_SIZE optional, default 10MB
	if maxStr := os.Getenv("MAX_FILE_SIZE"); maxStr != "" {
		if v, err := strconv.ParseInt(maxStr, 10, 64); err == nil {
			cfg.MaxFileSizeBytes = v
		}
	}
	if cfg.MaxFileSizeBytes == 0 {
		cfg.MaxFileSizeBytes = 10 * 1024 * 1024
	}

	return cfg
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
