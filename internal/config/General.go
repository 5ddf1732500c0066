package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// SubgraphAPIKey authenticates requests to The Graph gateway.
	SubgraphAPIKey string

	// CoinGeckoAPIKey is sent as the demo API key header when set.
	CoinGeckoAPIKey string

	// PriceCacheTTL bounds how long a current price stays cached. Zero disables expiry.
	PriceCacheTTL time.Duration
	// RedisAddr enables the shared price cache when set.
	RedisAddr string
	// PriceDateLocation is the time zone used to bucket historical lookups by calendar day.
	PriceDateLocation *time.Location

	// VaultTimeout bounds the valuation of a single vault.
	VaultTimeout time.Duration
	// HTTPTimeout bounds a single HTTP request to a price or subgraph API.
	HTTPTimeout time.Duration

	// VaultsFile optionally replaces the built-in vault registry.
	VaultsFile string
	// DefaultRewardPriority ranks gauge reward symbols for vaults that do not set their own.
	DefaultRewardPriority []string

	// RefreshInterval is the period of the serve-mode refresh loop.
	RefreshInterval time.Duration
	// WatchWallets are refreshed by the serve-mode loop.
	WatchWallets []string
	// WebPort is the HTTP API port.
	WebPort string

	// LogLevel and LogFile configure the global logger.
	LogLevel string
	LogFile  string

	// Postgres connection for the historical price store. An empty DBName disables it.
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	SubgraphAPIKey, err = getEnv("SUBGRAPH_API_KEY")
	if err != nil {
		return err
	}

	CoinGeckoAPIKey = getEnvOrDefault("COINGECKO_API_KEY", "")
	RedisAddr = getEnvOrDefault("REDIS_ADDR", "")
	VaultsFile = getEnvOrDefault("VAULTS_FILE", "")
	WebPort = getEnvOrDefault("WEB_PORT", "8080")
	LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	LogFile = getEnvOrDefault("LOG_FILE", "")
	DefaultRewardPriority = splitList(getEnvOrDefault("REWARD_PRIORITY", "beets"))
	WatchWallets = splitList(getEnvOrDefault("WATCH_WALLETS", ""))

	DBHost = getEnvOrDefault("DB_HOST", "localhost")
	DBUser = getEnvOrDefault("DB_USER", "")
	DBPassword = getEnvOrDefault("DB_PASSWORD", "")
	DBName = getEnvOrDefault("DB_NAME", "")
	DBSSLMode = getEnvOrDefault("DB_SSLMODE", "disable")
	if DBPort, err = getEnvAsInt("DB_PORT", 5432); err != nil {
		return err
	}

	if PriceCacheTTL, err = getEnvAsDuration("PRICE_CACHE_TTL", 0); err != nil {
		return err
	}
	if VaultTimeout, err = getEnvAsDuration("VAULT_TIMEOUT", 30*time.Second); err != nil {
		return err
	}
	if HTTPTimeout, err = getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second); err != nil {
		return err
	}
	if RefreshInterval, err = getEnvAsDuration("REFRESH_INTERVAL", 10*time.Minute); err != nil {
		return err
	}

	PriceDateLocation, err = time.LoadLocation(getEnvOrDefault("PRICE_DATE_TIMEZONE", "UTC"))
	if err != nil {
		return errors.New("environment variable PRICE_DATE_TIMEZONE must be a valid time zone: " + err.Error())
	}

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Dur("PriceCacheTTL", PriceCacheTTL).
		Bool("RedisEnabled", RedisAddr != "").
		Dur("VaultTimeout", VaultTimeout).
		Strs("RewardPriority", DefaultRewardPriority).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvOrDefault retrieves a string environment variable, falling back when unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration.
func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	valueStr := getEnvOrDefault(key, "")
	if valueStr == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid duration, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsInt retrieves an environment variable as an int.
func getEnvAsInt(key string, fallback int) (int, error) {
	valueStr := getEnvOrDefault(key, "")
	if valueStr == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int, got: " + valueStr)
	}
	return value, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
