package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"

	"dicewager/database"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken string `env:"DISCORD_TOKEN"`
	GuildID      string `env:"GUILD_ID"` // Guild for command registration, empty registers globally

	// Database configuration
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseName string `env:"DATABASE_NAME"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "text" or "json"
	LogFile   string `env:"LOG_FILE"`                     // Rotated log file, stdout only when empty

	// Game rules
	StartingBalance int64 `env:"STARTING_BALANCE" envDefault:"1000"`
	StakeUnit       int64 `env:"STAKE_UNIT" envDefault:"100"`
	MinStake        int64 `env:"MIN_STAKE" envDefault:"100"`
	MaxStake        int64 `env:"MAX_STAKE" envDefault:"1000"`

	// House account receiving the project fee
	HouseAccountID  int64  `env:"HOUSE_ACCOUNT_ID" envDefault:"1"`
	HouseInviteCode string `env:"HOUSE_INVITE_CODE" envDefault:"HOUSE1"`

	// Settlement recovery
	SettlementRetryInterval time.Duration `env:"SETTLEMENT_RETRY_INTERVAL" envDefault:"30s"`

	// Event forwarding: "nats", "kafka" or "none"
	EventSink    string `env:"EVENT_SINK" envDefault:"none"`
	NATSServers  string `env:"NATS_SERVERS" envDefault:"nats://nats:4222"`
	KafkaBrokers string `env:"KAFKA_BROKERS" envDefault:"kafka:9092"`
	KafkaTopic   string `env:"KAFKA_TOPIC" envDefault:"dicewager.events"`

	// Exchange rate cache
	RedisAddr       string        `env:"REDIS_ADDR"`
	ExchangeRateTTL time.Duration `env:"EXCHANGE_RATE_TTL" envDefault:"1m"`

	// HTTP API, metrics and health
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// Chat command throttling
	CommandRatePerMinute float64 `env:"COMMAND_RATE_PER_MINUTE" envDefault:"30"`
	CommandBurst         int     `env:"COMMAND_BURST" envDefault:"5"`

	// Token bridge
	EthRPCURL            string `env:"ETH_RPC_URL"`
	EthChainID           int64  `env:"ETH_CHAIN_ID" envDefault:"1"`
	TokenContract        string `env:"TOKEN_CONTRACT"`
	BridgeContract       string `env:"BRIDGE_CONTRACT"`
	BridgePrivateKey     string `env:"BRIDGE_PRIVATE_KEY"`
	TokenDecimals        int32  `env:"TOKEN_DECIMALS" envDefault:"18"`
	DepositConfirmations uint64 `env:"DEPOSIT_CONFIRMATIONS" envDefault:"3"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // "development", "production" or "test"
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

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// BridgeEnabled reports whether the token bridge has enough configuration to start
func (c *Config) BridgeEnabled() bool {
	return c.EthRPCURL != "" && c.TokenContract != "" && c.BridgeContract != ""
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	config.HouseInviteCode = strings.ToUpper(strings.TrimSpace(config.HouseInviteCode))

	if err := config.validateRules(); err != nil {
		return nil, err
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DiscordToken == "" {
			return nil, fmt.Errorf("DISCORD_TOKEN is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	return &config, nil
}

// validateRules checks the game rule settings for consistency
func (c *Config) validateRules() error {
	if c.StakeUnit <= 0 {
		return fmt.Errorf("STAKE_UNIT must be positive")
	}
	if c.MinStake <= 0 || c.MaxStake < c.MinStake {
		return fmt.Errorf("stake bounds [%d, %d] are invalid", c.MinStake, c.MaxStake)
	}
	if c.StartingBalance < 0 {
		return fmt.Errorf("STARTING_BALANCE cannot be negative")
	}
	switch c.EventSink {
	case "nats", "kafka", "none":
	default:
		return fmt.Errorf("unknown EVENT_SINK %q", c.EventSink)
	}
	return nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:             "test",
		LogLevel:                "debug",
		LogFormat:               "text",
		StartingBalance:         1000,
		StakeUnit:               100,
		MinStake:                100,
		MaxStake:                1000,
		HouseAccountID:          1,
		HouseInviteCode:         "HOUSE1",
		SettlementRetryInterval: time.Second,
		EventSink:               "none",
		ExchangeRateTTL:         time.Minute,
		HTTPAddr:                ":0",
		CommandRatePerMinute:    60,
		CommandBurst:            5,
		TokenDecimals:           18,
	}
}
