package config

import (
	"strings"
	"testing"

	"github.com/Ethernal-Tech/iroha-explorer/secrets"
	"github.com/Ethernal-Tech/iroha-explorer/secrets/helper"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"

func newTestViper(values map[string]any) *viper.Viper {
	v := NewViper()

	for key, value := range values {
		v.Set(key, value)
	}

	return v
}

func TestLoadFrom(t *testing.T) {
	t.Parallel()

	t.Run("sync disabled", func(t *testing.T) {
		t.Parallel()

		config, err := LoadFrom(newTestViper(map[string]any{
			KeyDisableSync: "1",
			KeyLogLevel:    "DEBUG",
			KeyDataDir:     ".",
		}))
		require.NoError(t, err)

		assert.False(t, config.Sync.Enabled)
		assert.Equal(t, hclog.Debug, config.Logger.LogLevel)
		assert.Equal(t, ".", config.DataDir)
		assert.Equal(t, secrets.Local, config.Secrets.Type)
	})

	t.Run("sync enabled", func(t *testing.T) {
		t.Parallel()

		config, err := LoadFrom(newTestViper(map[string]any{
			KeyDisableSync:      "false",
			KeyLogLevel:         "info",
			KeyLogJSON:          "true",
			KeyIrohaHost:        "localhost:50051",
			KeyIrohaAccount:     "explorer@test",
			KeyIrohaAccountKey:  testKey,
			KeyDataDir:          "/var/lib/explorer",
			KeySyncFetchWorkers: "4",
			KeySyncFetchWindow:  30,
			KeySyncQueueSize:    64,
		}))
		require.NoError(t, err)

		assert.True(t, config.Sync.Enabled)
		assert.True(t, config.Logger.JSONLogFormat)
		assert.Equal(t, hclog.Info, config.Logger.LogLevel)
		assert.Equal(t, "localhost:50051", config.Sync.Host)
		assert.Equal(t, "explorer@test", config.Sync.AccountID)
		assert.Equal(t, 4, config.Sync.Syncer.FetchWorkers)
		assert.Equal(t, 30, config.Sync.Syncer.FetchWindow)
		assert.Equal(t, 64, config.Sync.Runner.QueueSize)
		assert.Equal(t, "/var/lib/explorer", config.DataDir)

		key, err := config.Keypair()
		require.NoError(t, err)
		assert.Equal(t, "ed0120d75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511a", key.PublicKeyHex())

		assert.NotContains(t, config.String(), testKey)
		assert.Contains(t, config.String(), maskedKey)
		assert.Equal(t, testKey, config.Sync.AccountKey)
	})

	t.Run("key from secrets", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		manager, err := helper.SetupLocalSecretsManager(dir)
		require.NoError(t, err)
		require.NoError(t, manager.SetSecret(secrets.IrohaAccountKey, []byte(strings.ToUpper(testKey)+"\n")))

		config, err := LoadFrom(newTestViper(map[string]any{
			KeyDisableSync:     false,
			KeyIrohaHost:       "localhost:50051",
			KeyIrohaAccount:    "explorer@test",
			KeyIrohaAccountKey: "",
			KeySecretsPath:     dir,
		}))
		require.NoError(t, err)
		assert.Equal(t, strings.ToUpper(testKey), config.Sync.AccountKey)
		assert.Equal(t, dir, config.Secrets.Path)
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()

		base := map[string]any{
			KeyDisableSync:      false,
			KeyLogLevel:         "info",
			KeyIrohaHost:        "localhost:50051",
			KeyIrohaAccount:     "explorer@test",
			KeyIrohaAccountKey:  testKey,
			KeySecretsType:      "local",
			KeySecretsPath:      "",
			KeySyncFetchWorkers: 10,
			KeySyncFetchWindow:  30,
			KeySyncQueueSize:    64,
		}

		cases := []struct {
			name     string
			override map[string]any
			err      error
		}{
			{"missing host", map[string]any{KeyIrohaHost: ""}, ErrMissingVariable},
			{"missing account", map[string]any{KeyIrohaAccount: " "}, ErrMissingVariable},
			{"missing key", map[string]any{KeyIrohaAccountKey: ""}, ErrMissingVariable},
			{"short key", map[string]any{KeyIrohaAccountKey: "abcd"}, ErrInvalidKey},
			{"not hex key", map[string]any{KeyIrohaAccountKey: strings.Repeat("z", 64)}, ErrInvalidKey},
			{"missing secret", map[string]any{KeyIrohaAccountKey: "", KeySecretsPath: t.TempDir()}, ErrInvalidKey},
			{"log level", map[string]any{KeyLogLevel: "loud"}, ErrInvalidValue},
			{"workers", map[string]any{KeySyncFetchWorkers: "0"}, ErrInvalidValue},
			{"window", map[string]any{KeySyncFetchWindow: "many"}, ErrInvalidValue},
			{"queue", map[string]any{KeySyncQueueSize: -1}, ErrInvalidValue},
		}

		for _, tc := range cases {
			values := map[string]any{}
			for k, v := range base {
				values[k] = v
			}

			for k, v := range tc.override {
				values[k] = v
			}

			_, err := LoadFrom(newTestViper(values))
			require.ErrorIs(t, err, tc.err, tc.name)
		}

		_, err := LoadFrom(newTestViper(map[string]any{
			KeyDisableSync:     false,
			KeyIrohaHost:       "localhost:50051",
			KeyIrohaAccount:    "explorer@test",
			KeyIrohaAccountKey: "",
			KeySecretsType:     "vault",
			KeySecretsPath:     t.TempDir(),
		}))
		require.ErrorContains(t, err, "unsupported secrets manager")
	})
}

func TestEnvName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "IROHA_ACCOUNT_KEY", envName(KeyIrohaAccountKey))
	assert.Equal(t, "SYNC_FETCH_WORKERS", envName(KeySyncFetchWorkers))
	assert.Equal(t, "DATA_DIR", envName(KeyDataDir))
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("DISABLE_SYNC", "")
	t.Setenv("IROHA_HOST", "node:50051")
	t.Setenv("IROHA_ACCOUNT", "explorer@test")
	t.Setenv("IROHA_ACCOUNT_KEY", testKey)
	t.Setenv("SYNC_FETCH_WINDOW", "12")
	t.Setenv("LOG_ROTATE", "1")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("SYNC_FETCH_WORKERS", "")
	t.Setenv("SYNC_QUEUE_SIZE", "")
	t.Setenv("SECRETS_PATH", "")

	config, err := Load()
	require.NoError(t, err)

	assert.True(t, config.Sync.Enabled)
	assert.True(t, config.Logger.RotatingLogsEnabled)
	assert.Equal(t, hclog.Info, config.Logger.LogLevel)
	assert.Equal(t, "node:50051", config.Sync.Host)
	assert.Equal(t, 10, config.Sync.Syncer.FetchWorkers)
	assert.Equal(t, 12, config.Sync.Syncer.FetchWindow)
	assert.Equal(t, 64, config.Sync.Runner.QueueSize)
}
