package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// MinConfidenceThreshold is the lowest verdict confidence allowed to settle a market
const MinConfidenceThreshold = 95

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Log      LogConfig
	Resolver ResolverConfig
	AI       AIConfig
	Evidence EvidenceConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver   string // postgres, sqlite
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	Path     string // sqlite file
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port        string
	MetricsPort string
	FrontendURL string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret      string
	RefundFraction decimal.Decimal
}

// LogConfig controls the zap logger
type LogConfig struct {
	Env   string // local, dev, prod
	Level string
}

// ResolverConfig tunes the scheduled AI resolver. Values may be overridden by the
// YAML file named in RESOLVER_CONFIG.
type ResolverConfig struct {
	Enabled             bool          `yaml:"enabled"`
	ContinuousInterval  time.Duration `yaml:"continuous_interval"`
	DeadlineInterval    time.Duration `yaml:"deadline_interval"`
	ConfidenceThreshold int           `yaml:"confidence_threshold"`
	MaxMarketsPerRun    int           `yaml:"max_markets_per_run"`
	LockTTL             time.Duration `yaml:"lock_ttl"`
	UseEvidence         bool          `yaml:"use_evidence"`
}

// ProviderConfig describes one LLM endpoint
type ProviderConfig struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"-"`
	Model   string `yaml:"model"`
}

// AIConfig holds the provider chain used by the resolver
type AIConfig struct {
	Weather   ProviderConfig `yaml:"weather"`
	Primary   ProviderConfig `yaml:"primary"`
	Secondary ProviderConfig `yaml:"secondary"`
	Deadline  ProviderConfig `yaml:"deadline"`
	Timeout   time.Duration  `yaml:"timeout"`
}

// EvidenceConfig holds the advisory data feeds
type EvidenceConfig struct {
	NewsAPIURL     string
	NewsAPIKey     string
	EarthquakeURL  string
	PolymarketURL  string
	RequestsPerSec float64
}

// RedisConfig holds the resolver lock backend
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds the settlement event publisher settings
type KafkaConfig struct {
	Brokers           string
	TopicSettlements  string
	TopicNotification string
}

type resolverFile struct {
	Resolver *ResolverConfig `yaml:"resolver"`
	AI       *AIConfig       `yaml:"ai"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	refund, err := decimal.NewFromString(getEnv("REFUND_FRACTION", "0.95"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFUND_FRACTION: %w", err)
	}

	config := &Config{
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "binarybets"),
			Path:     getEnv("DB_PATH", "binarybets.db"),
		},
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			MetricsPort: getEnv("METRICS_PORT", "9095"),
			FrontendURL: getEnv("FRONTEND_URL", ""),
		},
		App: AppConfig{
			JWTSecret:      getEnv("JWT_SECRET", ""),
			RefundFraction: refund,
		},
		Log: LogConfig{
			Env:   getEnv("ENV", "local"),
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Resolver: ResolverConfig{
			Enabled:             getEnvBool("RESOLVER_ENABLED", true),
			ContinuousInterval:  getEnvDuration("RESOLVER_CONTINUOUS_INTERVAL", 24*time.Hour),
			DeadlineInterval:    getEnvDuration("RESOLVER_DEADLINE_INTERVAL", time.Hour),
			ConfidenceThreshold: getEnvInt("RESOLVER_CONFIDENCE_THRESHOLD", 95),
			MaxMarketsPerRun:    getEnvInt("RESOLVER_MAX_MARKETS", 200),
			LockTTL:             getEnvDuration("RESOLVER_LOCK_TTL", 5*time.Minute),
			UseEvidence:         getEnvBool("RESOLVER_USE_EVIDENCE", true),
		},
		AI: AIConfig{
			Weather: ProviderConfig{
				Name:    "weather",
				BaseURL: getEnv("WEATHER_AI_BASE_URL", "https://api.openai.com/v1"),
				APIKey:  getEnv("WEATHER_AI_API_KEY", ""),
				Model:   getEnv("WEATHER_AI_MODEL", ""),
			},
			Primary: ProviderConfig{
				Name:    "openai",
				BaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
				APIKey:  getEnv("OPENAI_API_KEY", ""),
				Model:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			},
			Secondary: ProviderConfig{
				Name:    "anthropic",
				BaseURL: getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1"),
				APIKey:  getEnv("ANTHROPIC_API_KEY", ""),
				Model:   getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
			},
			Deadline: ProviderConfig{
				Name:    "openai-deadline",
				BaseURL: getEnv("DEADLINE_AI_BASE_URL", "https://api.openai.com/v1"),
				APIKey:  getEnv("DEADLINE_AI_API_KEY", getEnv("OPENAI_API_KEY", "")),
				Model:   getEnv("DEADLINE_AI_MODEL", "gpt-4o"),
			},
			Timeout: getEnvDuration("AI_TIMEOUT", 60*time.Second),
		},
		Evidence: EvidenceConfig{
			NewsAPIURL:     getEnv("NEWSAPI_URL", "https://newsapi.org/v2"),
			NewsAPIKey:     getEnv("NEWSAPI_KEY", ""),
			EarthquakeURL:  getEnv("USGS_URL", "https://earthquake.usgs.gov/fdsnws/event/1"),
			PolymarketURL:  getEnv("POLYMARKET_GAMMA_URL", "https://gamma-api.polymarket.com"),
			RequestsPerSec: getEnvFloat("EVIDENCE_RPS", 2),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:           getEnv("KAFKA_BROKERS", ""),
			TopicSettlements:  getEnv("KAFKA_TOPIC_SETTLEMENTS", "market.settled"),
			TopicNotification: getEnv("KAFKA_TOPIC_BET_RESULTS", "bet.results"),
		},
	}

	if path := os.Getenv("RESOLVER_CONFIG"); path != "" {
		if err := config.applyResolverFile(path); err != nil {
			return nil, err
		}
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if config.Resolver.ConfidenceThreshold < MinConfidenceThreshold || config.Resolver.ConfidenceThreshold > 100 {
		return nil, fmt.Errorf("RESOLVER_CONFIDENCE_THRESHOLD must be between %d and 100", MinConfidenceThreshold)
	}

	if config.Resolver.ContinuousInterval <= 0 || config.Resolver.DeadlineInterval <= 0 {
		return nil, fmt.Errorf("resolver intervals must be positive")
	}
	if config.Resolver.LockTTL <= 0 {
		return nil, fmt.Errorf("RESOLVER_LOCK_TTL must be positive")
	}

	return config, nil
}

// applyResolverFile overlays resolver and provider tuning from a YAML file.
// API keys always come from the environment.
func (c *Config) applyResolverFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read resolver config %q: %w", path, err)
	}

	file := resolverFile{Resolver: &c.Resolver, AI: &c.AI}
	keys := []string{c.AI.Weather.APIKey, c.AI.Primary.APIKey, c.AI.Secondary.APIKey, c.AI.Deadline.APIKey}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse resolver config %q: %w", path, err)
	}
	c.AI.Weather.APIKey, c.AI.Primary.APIKey, c.AI.Secondary.APIKey, c.AI.Deadline.APIKey = keys[0], keys[1], keys[2], keys[3]
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// KafkaBrokerList splits the comma separated broker list
func (c *Config) KafkaBrokerList() []string {
	if c.Kafka.Brokers == "" {
		return nil
	}
	return strings.Split(c.Kafka.Brokers, ",")
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
