package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StoreMongo  = "mongo"
	StoreMemory = "memory"

	BlobS3    = "s3"
	BlobLocal = "local"
)

// Config holds every runtime setting of the server.
type Config struct {
	AppEnv   string
	Port     string
	LogLevel string

	StoreDriver string
	MongoURI    string
	MongoDB     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret       string
	TokenExpiry     time.Duration
	KeepAliveExpiry time.Duration

	BlobDriver    string
	UploadDir     string
	PublicBaseURL string

	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3PublicBaseURL string

	SMTPHost     string
	SMTPPort     string
	SMTPSender   string
	SMTPPassword string

	ResetContinueURL string
	AllowedOrigins   []string
}

// LoadConfig reads .env (when present) and the process environment.
// APP_ENV=development points every external service at its local emulator.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment only")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching .env.
func FromEnv() *Config {
	env := getEnv("APP_ENV", EnvDevelopment)
	dev := env == EnvDevelopment

	cfg := &Config{
		AppEnv:   env,
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreDriver: getEnv("STORE_DRIVER", StoreMongo),
		MongoURI:    getEnv("MONGO_URI", pick(dev, "mongodb://localhost:27017", "")),
		MongoDB:     getEnv("MONGO_DB", "chat_manager"),

		RedisAddr:     getEnv("REDIS_ADDR", pick(dev, "127.0.0.1:6379", "")),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret:       getEnv("JWT_SECRET", pick(dev, "dev-secret", "")),
		TokenExpiry:     getEnvDuration("TOKEN_EXPIRY", 24*time.Hour),
		KeepAliveExpiry: getEnvDuration("KEEP_CONNECTED_EXPIRY", 30*24*time.Hour),

		BlobDriver:    getEnv("BLOB_DRIVER", BlobS3),
		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),

		S3Bucket:        getEnv("S3_BUCKET", "avatars"),
		S3Region:        getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:      getEnv("S3_ENDPOINT", pick(dev, "http://127.0.0.1:9000", "")),
		S3AccessKey:     getEnv("S3_ACCESS_KEY", pick(dev, "admin", "")),
		S3SecretKey:     getEnv("S3_SECRET_KEY", pick(dev, "secretpassword", "")),
		S3PublicBaseURL: getEnv("S3_PUBLIC_BASE_URL", ""),

		SMTPHost:     getEnv("SMTP_HOST", pick(dev, "localhost", "")),
		SMTPPort:     getEnv("SMTP_PORT", pick(dev, "1025", "587")),
		SMTPSender:   getEnv("SMTP_SENDER", "no-reply@chat-manager.local"),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		ResetContinueURL: getEnv("RESET_CONTINUE_URL", "http://localhost:3000/reset-password"),
		AllowedOrigins:   splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	if cfg.S3PublicBaseURL == "" {
		cfg.S3PublicBaseURL = cfg.S3Endpoint
	}
	return cfg
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logrus.WithField("key", key).Warn("Invalid integer in environment, using default")
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logrus.WithField("key", key).Warn("Invalid duration in environment, using default")
		return fallback
	}
	return d
}

func pick(dev bool, devValue, prodValue string) string {
	if dev {
		return devValue
	}
	return prodValue
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
