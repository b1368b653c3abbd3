package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"earnify/database"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds all application configuration
type Config struct {
	// Telegram WebApp configuration
	TelegramBotToken string
	AuthMaxAge       time.Duration // 0 disables the auth_date freshness check
	AdminTelegramIDs []int64

	// Database configuration
	DatabaseURL   string
	DatabaseName  string
	DBMaxConns    int32
	LedgerRetries uint64 // serialization-failure retries per ledger unit

	// HTTP configuration
	HTTPAddr        string
	AdRatePerMinute int // per-principal limit on /complete-ad
	ShutdownTimeout time.Duration

	// Trusted upstreams
	PostbackSecret string
	PayoutSecret   string

	// Reward rules
	AdReward              int64
	DailyReward           int64
	MinWithdrawal         int64
	ReferralCommissionBps int64 // basis points of the referee's earning

	// Referral bonus outbox sweep (robfig/cron spec)
	ReferralSweepSchedule string
	ReferralSweepBatch    int
	ReferralMaxAttempts   int

	// NATS configuration
	NATSEnabled bool
	NATSServers string // comma-separated

	// Image hosting credentials
	ImageKitPublicKey  string
	ImageKitPrivateKey string
	ImageKitURL        string

	// OpenTelemetry metrics
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	LogLevel    string
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL combines the base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsAdmin reports whether the Telegram user may call operator endpoints
func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminTelegramIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

// load reads configuration from the environment, after merging an optional .env file
func load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Failed to read .env file")
	}

	config := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		AuthMaxAge:       getDurationWithDefault("AUTH_MAX_AGE", 0),
		AdminTelegramIDs: parseIDList(os.Getenv("ADMIN_TELEGRAM_IDS")),

		DatabaseURL:   os.Getenv("DATABASE_URL"),
		DatabaseName:  os.Getenv("DATABASE_NAME"),
		DBMaxConns:    int32(getIntWithDefault("DB_MAX_CONNS", 20)),
		LedgerRetries: uint64(getIntWithDefault("LEDGER_MAX_RETRIES", 10)),

		HTTPAddr:        getEnvWithDefault("HTTP_ADDR", ":5000"),
		AdRatePerMinute: getIntWithDefault("AD_RATE_PER_MINUTE", 6),
		ShutdownTimeout: getDurationWithDefault("SHUTDOWN_TIMEOUT", 10*time.Second),

		PostbackSecret: os.Getenv("POSTBACK_SECRET"),
		PayoutSecret:   os.Getenv("PAYOUT_SECRET"),

		AdReward:              int64(getIntWithDefault("AD_REWARD", 5)),
		DailyReward:           int64(getIntWithDefault("DAILY_REWARD", 20)),
		MinWithdrawal:         int64(getIntWithDefault("MIN_WITHDRAWAL", 500)),
		ReferralCommissionBps: int64(getIntWithDefault("REFERRAL_COMMISSION_BPS", 1000)),

		ReferralSweepSchedule: getEnvWithDefault("REFERRAL_SWEEP_SCHEDULE", "@every 1m"),
		ReferralSweepBatch:    getIntWithDefault("REFERRAL_SWEEP_BATCH", 100),
		ReferralMaxAttempts:   getIntWithDefault("REFERRAL_MAX_ATTEMPTS", 10),

		NATSEnabled: getBoolWithDefault("NATS_ENABLED", true),
		NATSServers: getEnvWithDefault("NATS_SERVERS", "nats://nats:4222"),

		ImageKitPublicKey:  os.Getenv("IMAGEKIT_PUBLIC_KEY"),
		ImageKitPrivateKey: os.Getenv("IMAGEKIT_PRIVATE_KEY"),
		ImageKitURL:        os.Getenv("IMAGEKIT_URL_ENDPOINT"),

		OTelEnabled:              getBoolWithDefault("OTEL_ENABLED", false),
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "earnify"),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "none"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4317"),
		OTelExportIntervalMillis: getIntWithDefault("OTEL_EXPORT_INTERVAL_MILLIS", 30000),

		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
		Environment: os.Getenv("ENVIRONMENT"),
	}

	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if config.TelegramBotToken == "" {
			return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
		if config.ReferralCommissionBps < 0 || config.ReferralCommissionBps > 10000 {
			return nil, fmt.Errorf("REFERRAL_COMMISSION_BPS must be between 0 and 10000")
		}
	}

	return config, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntWithDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.WithFields(log.Fields{
			"key":   key,
			"value": value,
		}).Warn("Ignoring non-integer config value")
		return defaultValue
	}
	return parsed
}

func getBoolWithDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// parseIDList parses a comma-separated list of Telegram IDs, skipping malformed entries
func parseIDList(raw string) []int64 {
	var ids []int64
	for _, idStr := range strings.Split(raw, ",") {
		idStr = strings.TrimSpace(idStr)
		if idStr == "" {
			continue
		}
		if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:           "test",
		TelegramBotToken:      "test-bot-token",
		AdminTelegramIDs:      []int64{999999},
		LedgerRetries:         5,
		HTTPAddr:              ":0",
		AdRatePerMinute:       60,
		ShutdownTimeout:       time.Second,
		PostbackSecret:        "test-postback-secret",
		PayoutSecret:          "test-payout-secret",
		AdReward:              5,
		DailyReward:           20,
		MinWithdrawal:         500,
		ReferralCommissionBps: 1000,
		ReferralSweepSchedule: "@every 1m",
		ReferralSweepBatch:    100,
		ReferralMaxAttempts:   10,
		OTelServiceName:       "earnify-test",
		OTelExporterType:      "none",
		LogLevel:              "debug",
	}
}
