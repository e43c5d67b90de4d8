package indexer

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Ethernal-Tech/iroha-explorer/iroha/irohatest"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockLog(t *testing.T) {
	t.Parallel()

	blocks := irohatest.Chain(3, 1_700_000_000_000, "admin@test")

	t.Run("append and reopen", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		log := NewBlockLog(dir, hclog.NewNullLogger())

		require.NoError(t, log.Open())

		for _, block := range blocks {
			require.NoError(t, log.Append(block))
		}

		require.NoError(t, log.Close())

		reopened := NewBlockLog(dir, hclog.NewNullLogger())
		require.NoError(t, reopened.Open())

		defer reopened.Close()

		require.Equal(t, 3, reopened.Len())

		for i, block := range blocks {
			assert.Equal(t, block, reopened.Get(i))
		}
	})

	t.Run("corrupt tail is cut off", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, BlockLogFileName)
		valid := bytes.Join(blocks, nil)

		require.NoError(t, os.WriteFile(path, append(append([]byte{}, valid...), 0x0a, 0x20, 1, 2, 3), 0o600))

		var output bytes.Buffer

		logger := hclog.New(&hclog.LoggerOptions{Output: &output, Level: hclog.Warn})
		log := NewBlockLog(dir, logger)

		require.NoError(t, log.Open())
		assert.Equal(t, 3, log.Len())
		assert.Contains(t, output.String(), "[WARN]")
		require.NoError(t, log.Close())

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, valid, content)

		output.Reset()

		reopened := NewBlockLog(dir, logger)
		require.NoError(t, reopened.Open())

		defer reopened.Close()

		assert.Equal(t, 3, reopened.Len())
		assert.NotContains(t, output.String(), "[WARN]")
	})

	t.Run("truncate and drop", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		log := NewBlockLog(dir, hclog.NewNullLogger())

		require.NoError(t, log.Open())

		for _, block := range blocks {
			require.NoError(t, log.Append(block))
		}

		require.NoError(t, log.Truncate(1))
		assert.Equal(t, 1, log.Len())
		assert.Equal(t, len(blocks[0]), log.SizeBytes())

		info, err := os.Stat(log.Path())
		require.NoError(t, err)
		assert.Equal(t, int64(len(blocks[0])), info.Size())

		require.NoError(t, log.Drop())
		assert.Equal(t, 1, log.Len())
		assert.Equal(t, blocks[0], log.Get(0))
		require.Error(t, log.Append(blocks[1]))

		_, err = os.Stat(log.Path())
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("append requires open", func(t *testing.T) {
		t.Parallel()

		log := NewBlockLog(t.TempDir(), hclog.NewNullLogger())

		require.Error(t, log.Append(blocks[0]))
	})
}
