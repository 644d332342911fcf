package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	S3        S3Config        `mapstructure:"s3"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Prompts   PromptsConfig   `mapstructure:"prompts"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Log       LogConfig       `mapstructure:"log"`
	Otel      OtelConfig      `mapstructure:"otel"`
	Audio     AudioConfig     `mapstructure:"audio"`
}

type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	Mode         string        `mapstructure:"mode"` // gin mode: debug, release, test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig selects the document store. Driver "memory" keeps everything in process.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	URI    string `mapstructure:"uri"`
	Name   string `mapstructure:"name"`
}

// S3Config configures the audio clip archive. An empty bucket disables archiving.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// LLMConfig points at an OpenAI-compatible chat completions API.
type LLMConfig struct {
	APIKey             string        `mapstructure:"api_key"`
	BaseURL            string        `mapstructure:"base_url"`
	Model              string        `mapstructure:"model"`
	TranscriptionModel string        `mapstructure:"transcription_model"`
	Timeout            time.Duration `mapstructure:"timeout"`
	MaxRetries         int           `mapstructure:"max_retries"`
}

// PromptsConfig optionally overrides the embedded prompt templates from a directory.
type PromptsConfig struct {
	Dir string `mapstructure:"dir"`
}

// RedisConfig enables the distributed generation lock. Empty URL means in-process locking.
type RedisConfig struct {
	URL     string        `mapstructure:"url"`
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

type SchedulerConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	WeeklySummarySpec string `mapstructure:"weekly_summary_spec"`
	ReconcileSpec     string `mapstructure:"reconcile_spec"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode"`
}

type OtelConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Environment string  `mapstructure:"environment"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

type AudioConfig struct {
	MaxSizeMB int64 `mapstructure:"max_size_mb"`
}

// LoadConfig reads configuration from a .env file, config.yaml in path, and environment variables.
// Environment variables win; nested keys map with '.' -> '_' (jwt.secret -> JWT_SECRET).
func LoadConfig(path string) (config Config, err error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	err = v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		err = nil // env vars and defaults are enough
	} else if err != nil {
		return
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	return config, config.Validate()
}

// setDefaults registers every key so AutomaticEnv can resolve it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m") // streamed chat turns can be long
	v.SetDefault("database.driver", "mongo")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "fitness_coach")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.bucket_name", "")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration", "24h")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.transcription_model", "whisper-1")
	v.SetDefault("llm.timeout", "120s")
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("prompts.dir", "")
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.lock_ttl", "3m")
	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.weekly_summary_spec", "0 0 3 * * MON")
	v.SetDefault("scheduler.reconcile_spec", "0 30 4 * * *")
	v.SetDefault("log.mode", "development")
	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.service_name", "fitness-coach")
	v.SetDefault("otel.environment", "local")
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.insecure", false)
	v.SetDefault("otel.sample_ratio", 0.1)
	v.SetDefault("audio.max_size_mb", 25)
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required (JWT_SECRET)")
	}
	switch c.Database.Driver {
	case "mongo", "memory":
	default:
		return errors.New("database.driver must be mongo or memory")
	}
	if c.LLM.Model == "" {
		return errors.New("llm.model is required")
	}
	if c.Audio.MaxSizeMB <= 0 {
		return errors.New("audio.max_size_mb must be positive")
	}
	return nil
}
