package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	AI       AIConfig
	Upload   UploadConfig
	Parse    ParseConfig
	Queue    QueueConfig
	Logger   LoggerConfig
}

type LoggerConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int32
	AutoMigrate bool
}

// StorageConfig selects the blob backend. Driver is "s3" for any S3-compatible
// endpoint (Supabase storage, MinIO, AWS) or "badger" for an embedded store.
type StorageConfig struct {
	Driver    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	BadgerDir string
}

type AIConfig struct {
	Provider      string
	APIKey        string
	Model         string
	BaseURL       string
	Timeout       time.Duration
	MaxInputChars int

	// GigaChat only.
	Scope              string
	InsecureSkipVerify bool
}

type UploadConfig struct {
	MaxFileSize int64
}

type ParseConfig struct {
	MinFallbackFields int
}

type QueueConfig struct {
	Driver        string
	Workers       int
	MaxPending    int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
}

const (
	AIProviderNone     = "none"
	AIProviderGigaChat = "gigachat"
	AIProviderOpenAI   = "openai"
	AIProviderGemini   = "gemini"
)

func Load() (*Config, error) {
	// .env is optional; plain environment variables work too (Docker/K8s)
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     getEnvAsSeconds("SERVER_READ_TIMEOUT", 30),
			WriteTimeout:    getEnvAsSeconds("SERVER_WRITE_TIMEOUT", 30),
			ShutdownTimeout: getEnvAsSeconds("SERVER_SHUTDOWN_TIMEOUT", 30),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			DBName:      getEnv("DB_NAME", "trustbooks"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			MaxConns:    int32(getEnvAsInt("DB_MAX_CONNS", 10)),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Storage: StorageConfig{
			Driver:    strings.ToLower(getEnv("STORAGE_DRIVER", "s3")),
			Endpoint:  getEnv("STORAGE_ENDPOINT", ""),
			Region:    getEnv("STORAGE_REGION", "us-east-1"),
			AccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey: getEnv("STORAGE_SECRET_KEY", ""),
			Bucket:    getEnv("STORAGE_BUCKET", "trustbooks-files"),
			UseSSL:    getEnvAsBool("STORAGE_USE_SSL", true),
			BadgerDir: getEnv("STORAGE_BADGER_DIR", "data/blobs"),
		},
		AI: AIConfig{
			Provider:           strings.ToLower(getEnv("AI_PROVIDER", AIProviderNone)),
			APIKey:             getEnv("AI_API_KEY", ""),
			Model:              getEnv("AI_MODEL", ""),
			BaseURL:            getEnv("AI_BASE_URL", ""),
			Timeout:            getEnvAsSeconds("AI_TIMEOUT", 30),
			MaxInputChars:      getEnvAsInt("AI_MAX_INPUT_CHARS", 12000),
			Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			InsecureSkipVerify: getEnvAsBool("GIGACHAT_INSECURE_SKIP_VERIFY", false),
		},
		Upload: UploadConfig{
			MaxFileSize: int64(getEnvAsInt("UPLOAD_MAX_FILE_SIZE", 10*1024*1024)),
		},
		Parse: ParseConfig{
			MinFallbackFields: getEnvAsInt("PARSE_MIN_FALLBACK_FIELDS", 1),
		},
		Queue: QueueConfig{
			Driver:        strings.ToLower(getEnv("QUEUE_DRIVER", "memory")),
			Workers:       getEnvAsInt("QUEUE_WORKERS", 4),
			MaxPending:    getEnvAsInt("QUEUE_MAX_PENDING", 256),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			RedisKey:      getEnv("QUEUE_REDIS_KEY", "trustbooks:parse"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	var errs []error

	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, fmt.Errorf("UPLOAD_MAX_FILE_SIZE must be positive"))
	}
	if c.Parse.MinFallbackFields < 0 {
		errs = append(errs, fmt.Errorf("PARSE_MIN_FALLBACK_FIELDS must not be negative"))
	}
	if c.Queue.Workers <= 0 {
		errs = append(errs, fmt.Errorf("QUEUE_WORKERS must be positive"))
	}
	if c.Queue.MaxPending <= 0 {
		errs = append(errs, fmt.Errorf("QUEUE_MAX_PENDING must be positive"))
	}

	switch c.Storage.Driver {
	case "s3":
		if c.Storage.Bucket == "" {
			errs = append(errs, fmt.Errorf("STORAGE_BUCKET is required for the s3 driver"))
		}
	case "badger":
		if c.Storage.BadgerDir == "" {
			errs = append(errs, fmt.Errorf("STORAGE_BADGER_DIR is required for the badger driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}

	switch c.AI.Provider {
	case AIProviderNone:
	case AIProviderGigaChat, AIProviderOpenAI, AIProviderGemini:
		if c.AI.APIKey == "" {
			errs = append(errs, fmt.Errorf("AI_API_KEY is required for provider %q", c.AI.Provider))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AI_PROVIDER %q", c.AI.Provider))
	}

	switch c.Queue.Driver {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown QUEUE_DRIVER %q", c.Queue.Driver))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvAsBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvAsSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultSeconds)) * time.Second
}
