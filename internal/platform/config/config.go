package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"
	StoreDriverBolt     = "bolt"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	LogLevel    string

	StoreDriver         string
	PostgresDSN         string
	PostgresAutoMigrate bool
	BoltPath            string

	KafkaBrokers []string
	OutboxTopic  string

	EscrowGracePeriod  time.Duration
	PlatformTreasuryID string
	VaultOperatorID    string
	SlashPolicy        string
	SettlementRate     string

	WorkerPollInterval     time.Duration
	SweepBatchSize         int
	EnableSlashSweeper     bool
	EnableHarvestScheduler bool
	EnableOutboxRelay      bool

	HTTPRateLimitRPS   float64
	HTTPRateLimitBurst int
}

// Load reads an optional .env file from the working directory, then the
// process environment. Values already set in the environment win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	var errs []error
	cfg := Config{
		ServiceName: envString("SERVICE_NAME", "commission-escrow"),
		HTTPPort:    envString("HTTP_PORT", "8080"),
		LogLevel:    envString("LOG_LEVEL", "info"),

		StoreDriver:         strings.ToLower(envString("STORE_DRIVER", StoreDriverMemory)),
		PostgresDSN:         os.Getenv("POSTGRES_DSN"),
		PostgresAutoMigrate: envBool("POSTGRES_AUTO_MIGRATE", false),
		BoltPath:            envString("BOLT_PATH", "data/escrow.db"),

		KafkaBrokers: brokers,
		OutboxTopic:  envString("OUTBOX_TOPIC", "escrow.events"),

		EscrowGracePeriod:  envDuration("ESCROW_GRACE_PERIOD", 72*time.Hour, &errs),
		PlatformTreasuryID: strings.TrimSpace(os.Getenv("PLATFORM_TREASURY_ID")),
		VaultOperatorID:    strings.TrimSpace(os.Getenv("VAULT_OPERATOR_ID")),
		SlashPolicy:        envString("SLASH_POLICY", "retain"),
		SettlementRate:     envString("SETTLEMENT_RATE", "1"),

		WorkerPollInterval:     envDuration("WORKER_POLL_INTERVAL", 5*time.Second, &errs),
		SweepBatchSize:         envInt("SWEEP_BATCH_SIZE", 100, &errs),
		EnableSlashSweeper:     envBool("ENABLE_SLASH_SWEEPER", true),
		EnableHarvestScheduler: envBool("ENABLE_HARVEST_SCHEDULER", true),
		EnableOutboxRelay:      envBool("ENABLE_OUTBOX_RELAY", true),

		HTTPRateLimitRPS:   envFloat("HTTP_RATE_LIMIT_RPS", 20, &errs),
		HTTPRateLimitBurst: envInt("HTTP_RATE_LIMIT_BURST", 40, &errs),
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case StoreDriverMemory, StoreDriverBolt:
	case StoreDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required when STORE_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.StoreDriver == StoreDriverBolt && strings.TrimSpace(c.BoltPath) == "" {
		errs = append(errs, errors.New("BOLT_PATH is required when STORE_DRIVER=bolt"))
	}
	switch c.SlashPolicy {
	case "retain", "compensate_distributor":
	default:
		errs = append(errs, fmt.Errorf("unknown SLASH_POLICY %q", c.SlashPolicy))
	}
	if rate, err := decimal.NewFromString(c.SettlementRate); err != nil || !rate.IsPositive() {
		errs = append(errs, fmt.Errorf("SETTLEMENT_RATE must be a positive decimal, got %q", c.SettlementRate))
	}
	if c.EscrowGracePeriod <= 0 {
		errs = append(errs, errors.New("ESCROW_GRACE_PERIOD must be positive"))
	}
	if c.WorkerPollInterval <= 0 {
		errs = append(errs, errors.New("WORKER_POLL_INTERVAL must be positive"))
	}
	if c.SweepBatchSize <= 0 {
		errs = append(errs, errors.New("SWEEP_BATCH_SIZE must be positive"))
	}
	if c.HTTPRateLimitRPS < 0 || c.HTTPRateLimitBurst < 0 {
		errs = append(errs, errors.New("HTTP rate limit values must not be negative"))
	}
	return errors.Join(errs...)
}

func envString(name string, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}
	return fallback
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envDuration(name string, fallback time.Duration, errs *[]error) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", name, err))
		return fallback
	}
	return value
}

func envInt(name string, fallback int, errs *[]error) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", name, err))
		return fallback
	}
	return value
}

func envFloat(name string, fallback float64, errs *[]error) float64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", name, err))
		return fallback
	}
	return value
}
