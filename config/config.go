package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Ethernal-Tech/iroha-explorer/indexer"
	"github.com/Ethernal-Tech/iroha-explorer/iroha"
	"github.com/Ethernal-Tech/iroha-explorer/logger"
	"github.com/Ethernal-Tech/iroha-explorer/secrets"
	"github.com/Ethernal-Tech/iroha-explorer/secrets/helper"
	"github.com/spf13/viper"
)

// Configuration keys. Each key is read from the environment variable with the
// dots replaced by underscores, upper cased: iroha.account_key is IROHA_ACCOUNT_KEY.
const (
	KeyLogLevel         = "log.level"
	KeyLogFile          = "log.file"
	KeyLogRotate        = "log.rotate"
	KeyLogJSON          = "log.json"
	KeyDataDir          = "data.dir"
	KeyDisableSync      = "disable.sync"
	KeyIrohaHost        = "iroha.host"
	KeyIrohaAccount     = "iroha.account"
	KeyIrohaAccountKey  = "iroha.account_key"
	KeySecretsType      = "secrets.type"
	KeySecretsPath      = "secrets.path"
	KeySyncFetchWorkers = "sync.fetch_workers"
	KeySyncFetchWindow  = "sync.fetch_window"
	KeySyncQueueSize    = "sync.queue_size"

	maskedKey = "***"
)

var (
	ErrMissingVariable = errors.New("missing environment variable")
	ErrInvalidKey      = errors.New("invalid account key")
	ErrInvalidValue    = errors.New("invalid environment variable")
)

type SyncConfig struct {
	Enabled   bool   `json:"enabled"`
	Host      string `json:"host"`
	AccountID string `json:"accountId"`
	// AccountKey is the hex encoded 32 byte ed25519 seed of the account. Keys
	// are derived the RFC 8032 way (SHA-512), so the account must be registered
	// with the matching ed0120 multihash public key. Keys of the legacy
	// iroha-ed25519 (SHA3) scheme are rejected by the node with error code 3.
	AccountKey string                           `json:"accountKey"`
	Syncer     indexer.BlockSyncerConfig        `json:"syncer"`
	Runner     indexer.BlockIndexerRunnerConfig `json:"runner"`
}

type Config struct {
	Logger  logger.LoggerConfig          `json:"logger"`
	DataDir string                       `json:"dataDir"`
	Secrets secrets.SecretsManagerConfig `json:"secrets"`
	Sync    SyncConfig                   `json:"sync"`
}

// NewViper returns a viper instance bound to the process environment with the
// defaults of every key.
func NewViper() *viper.Viper {
	v := viper.New()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogRotate, false)
	v.SetDefault(KeyLogJSON, false)
	v.SetDefault(KeyDataDir, ".")
	v.SetDefault(KeyDisableSync, false)
	v.SetDefault(KeySecretsType, string(secrets.Local))
	v.SetDefault(KeySyncFetchWorkers, 10)
	v.SetDefault(KeySyncFetchWindow, 30)
	v.SetDefault(KeySyncQueueSize, 64)

	return v
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	return LoadFrom(NewViper())
}

// LoadFrom reads the configuration from v. With SECRETS_PATH set and
// IROHA_ACCOUNT_KEY empty, the key is read from the local secrets manager.
func LoadFrom(v *viper.Viper) (*Config, error) {
	level, err := logger.ParseLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidValue, envName(KeyLogLevel), err)
	}

	config := &Config{
		Logger: logger.LoggerConfig{
			LogLevel:            level,
			JSONLogFormat:       v.GetBool(KeyLogJSON),
			AppendFile:          true,
			LogFilePath:         v.GetString(KeyLogFile),
			RotatingLogsEnabled: v.GetBool(KeyLogRotate),
			Name:                "iroha-explorer",
		},
		DataDir: v.GetString(KeyDataDir),
		Secrets: secrets.SecretsManagerConfig{
			Type: secrets.SecretsManagerType(v.GetString(KeySecretsType)),
			Path: v.GetString(KeySecretsPath),
		},
		Sync: SyncConfig{
			Enabled: !v.GetBool(KeyDisableSync),
		},
	}

	if !config.Sync.Enabled {
		return config, nil
	}

	sc := &config.Sync

	if sc.Host, err = required(v, KeyIrohaHost); err != nil {
		return nil, err
	}

	if sc.AccountID, err = required(v, KeyIrohaAccount); err != nil {
		return nil, err
	}

	if sc.Syncer.FetchWorkers, err = positive(v, KeySyncFetchWorkers); err != nil {
		return nil, err
	}

	if sc.Syncer.FetchWindow, err = positive(v, KeySyncFetchWindow); err != nil {
		return nil, err
	}

	if sc.Runner.QueueSize, err = positive(v, KeySyncQueueSize); err != nil {
		return nil, err
	}

	if sc.AccountKey, err = accountKey(v, &config.Secrets); err != nil {
		return nil, err
	}

	if _, err := iroha.NewKeypairFromHex(sc.AccountKey); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	return config, nil
}

// Keypair decodes the account key validated by Load.
func (c *Config) Keypair() (*iroha.Keypair, error) {
	key, err := iroha.NewKeypairFromHex(c.Sync.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	return key, nil
}

// String renders the configuration as JSON with the account key masked.
func (c Config) String() string {
	if c.Sync.AccountKey != "" {
		c.Sync.AccountKey = maskedKey
	}

	bytes, err := json.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}

	return string(bytes)
}

func accountKey(v *viper.Viper, secretsConfig *secrets.SecretsManagerConfig) (string, error) {
	if key := strings.TrimSpace(v.GetString(KeyIrohaAccountKey)); key != "" {
		return key, nil
	} else if secretsConfig.Path == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingVariable, envName(KeyIrohaAccountKey))
	}

	manager, err := helper.InitSecretsManager(secretsConfig)
	if err != nil {
		return "", fmt.Errorf("failed to open secrets: %w", err)
	}

	key, err := manager.GetSecret(secrets.IrohaAccountKey)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	return strings.TrimSpace(string(key)), nil
}

func required(v *viper.Viper, key string) (string, error) {
	value := strings.TrimSpace(v.GetString(key))
	if !v.IsSet(key) || value == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingVariable, envName(key))
	}

	return value, nil
}

func positive(v *viper.Viper, key string) (int, error) {
	n := v.GetInt(key)
	if n <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive number, got %q",
			ErrInvalidValue, envName(key), v.GetString(key))
	}

	return n, nil
}

func envName(key string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
}
