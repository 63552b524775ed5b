package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Storage and session drivers
const (
	DriverMongo  = "mongo"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

const envConfigFilePath = "CONFIG_FILE_PATH"

type HTTPConfig struct {
	Port           string        `yaml:"port"`
	AllowedOrigins string        `yaml:"allowed_origins"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

type MongoConfig struct {
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type RedisConfig struct {
	// Addr accepts host:port or a redis:// URL
	Addr string `yaml:"addr"`
}

type InterviewConfig struct {
	SessionTTL   time.Duration `yaml:"session_ttl"`
	TokenSecret  string        `yaml:"token_secret"`
	SessionStore string        `yaml:"session_store"`
}

type StatsConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // text or json
	Filename   string `yaml:"filename"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxAgeDays int    `yaml:"max_age_days"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

// Config is the process configuration. Values come from an optional YAML file,
// then a .env file, then the environment, with the environment winning.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Storage   string          `yaml:"storage"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Redis     RedisConfig     `yaml:"redis"`
	AI        AIConfig        `yaml:"ai"`
	Interview InterviewConfig `yaml:"interview"`
	Stats     StatsConfig     `yaml:"stats"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:           "8080",
			AllowedOrigins: "*",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   90 * time.Second,
		},
		Storage: DriverMongo,
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "aisurvey",
			ConnectTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		AI:    DefaultAIConfig(),
		Interview: InterviewConfig{
			SessionTTL:   2 * time.Hour,
			TokenSecret:  "change-me-interview-secret",
			SessionStore: DriverRedis,
		},
		Stats: StatsConfig{CacheTTL: 10 * time.Minute},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  50,
			MaxAgeDays: 14,
			MaxBackups: 5,
		},
	}
}

// Load builds the configuration. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv(envConfigFilePath); path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.HTTP.Port = getEnv("PORT", c.HTTP.Port)
	c.HTTP.AllowedOrigins = getEnv("CORS_ALLOWED_ORIGINS", c.HTTP.AllowedOrigins)

	c.Storage = strings.ToLower(getEnv("STORAGE_DRIVER", c.Storage))
	c.Mongo.URI = getEnv("MONGO_URI", c.Mongo.URI)
	c.Mongo.Database = getEnv("MONGO_DATABASE", c.Mongo.Database)
	c.Redis.Addr = getEnv("REDIS_URI", c.Redis.Addr)

	c.AI.applyEnv()

	c.Interview.SessionTTL = getDurationEnv("INTERVIEW_SESSION_TTL", c.Interview.SessionTTL)
	c.Interview.TokenSecret = getEnv("INTERVIEW_TOKEN_SECRET", c.Interview.TokenSecret)
	c.Interview.SessionStore = strings.ToLower(getEnv("SESSION_STORE", c.Interview.SessionStore))

	c.Stats.CacheTTL = getDurationEnv("STATS_CACHE_TTL", c.Stats.CacheTTL)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
	c.Logging.Filename = getEnv("LOG_FILE", c.Logging.Filename)
}

// Validate checks the driver names. Missing AI credentials are not an error
// here: AI-backed requests report them when they are made.
func (c *Config) Validate() error {
	switch c.Storage {
	case DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage)
	}
	switch c.Interview.SessionStore {
	case DriverRedis, DriverMemory:
	default:
		return fmt.Errorf("unsupported session store %q", c.Interview.SessionStore)
	}
	if c.Interview.SessionTTL <= 0 {
		return fmt.Errorf("interview session TTL must be positive")
	}
	return c.AI.validate()
}

// UsesRedis reports whether any component needs a Redis connection
func (c *Config) UsesRedis() bool {
	return c.Interview.SessionStore == DriverRedis
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	// Bare numbers are seconds
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}
