package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "badger")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "trustbooks", cfg.Database.DBName)
	assert.Equal(t, int64(10*1024*1024), cfg.Upload.MaxFileSize)
	assert.Equal(t, 1, cfg.Parse.MinFallbackFields)
	assert.Equal(t, AIProviderNone, cfg.AI.Provider)
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "memory", cfg.Queue.Driver)
	assert.Equal(t, 4, cfg.Queue.Workers)
	assert.Equal(t, "trustbooks:parse", cfg.Queue.RedisKey)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "S3")
	t.Setenv("STORAGE_BUCKET", "books")
	t.Setenv("AI_PROVIDER", "OpenAI")
	t.Setenv("AI_API_KEY", "sk-test")
	t.Setenv("AI_TIMEOUT", "5")
	t.Setenv("UPLOAD_MAX_FILE_SIZE", "2048")
	t.Setenv("DB_AUTO_MIGRATE", "true")
	t.Setenv("QUEUE_WORKERS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "s3", cfg.Storage.Driver)
	assert.Equal(t, "books", cfg.Storage.Bucket)
	assert.Equal(t, AIProviderOpenAI, cfg.AI.Provider)
	assert.Equal(t, 5*time.Second, cfg.AI.Timeout)
	assert.Equal(t, int64(2048), cfg.Upload.MaxFileSize)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, 4, cfg.Queue.Workers)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Storage: StorageConfig{Driver: "badger", BadgerDir: "data"},
			AI:      AIConfig{Provider: AIProviderNone},
			Upload:  UploadConfig{MaxFileSize: 1},
			Queue:   QueueConfig{Driver: "memory", Workers: 1, MaxPending: 1},
		}
	}
	require.NoError(t, valid().Validate())

	tests := map[string]func(c *Config){
		"missing api key":  func(c *Config) { c.AI.Provider = AIProviderGigaChat },
		"unknown provider": func(c *Config) { c.AI.Provider = "claude" },
		"unknown storage":  func(c *Config) { c.Storage.Driver = "ftp" },
		"s3 bucket":        func(c *Config) { c.Storage.Driver = "s3" },
		"zero file size":   func(c *Config) { c.Upload.MaxFileSize = 0 },
		"negative fields":  func(c *Config) { c.Parse.MinFallbackFields = -1 },
		"no workers":       func(c *Config) { c.Queue.Workers = 0 },
		"no backlog":       func(c *Config) { c.Queue.MaxPending = 0 },
		"unknown queue":    func(c *Config) { c.Queue.Driver = "kafka" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
