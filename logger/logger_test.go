package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	testDir, err := os.MkdirTemp("", "new-logger-test")
	require.NoError(t, err)

	defer os.RemoveAll(testDir)

	filePath := filepath.Join(testDir, "dummy", "file.log")

	t.Run("rotating empty", func(t *testing.T) {
		_, _, err := NewLogger(LoggerConfig{
			RotatingLogsEnabled: true,
		})
		require.Error(t, err)
	})

	t.Run("rotating with file path", func(t *testing.T) {
		rotatingPath := filepath.Join(testDir, "rotating", "file.log")

		logger, closer, err := NewLogger(LoggerConfig{
			RotatingLogsEnabled: true,
			LogFilePath:         rotatingPath,
			LogLevel:            hclog.Info,
		})

		require.NoError(t, err)
		require.NotNil(t, logger)

		logger.Info("rotating line")
		require.NoError(t, closer.Close())

		content, err := os.ReadFile(rotatingPath)
		require.NoError(t, err)
		require.Contains(t, string(content), "rotating line")
	})

	t.Run("empty", func(t *testing.T) {
		logger, closer, err := NewLogger(LoggerConfig{
			RotatingLogsEnabled: false,
		})

		require.NoError(t, err)
		require.NotNil(t, logger)
		require.NoError(t, closer.Close())
	})

	t.Run("with file path", func(t *testing.T) {
		logger, closer, err := NewLogger(LoggerConfig{
			RotatingLogsEnabled: false,
			LogFilePath:         filePath,
			AppendFile:          true,
			LogLevel:            hclog.Info,
		})

		require.NoError(t, err)
		require.NotNil(t, logger)

		logger.Info("file line")
		require.NoError(t, closer.Close())
		require.Error(t, closer.Close())

		content, err := os.ReadFile(filePath)
		require.NoError(t, err)
		require.Contains(t, string(content), "file line")
	})
}

func TestGetLogFileWriter(t *testing.T) {
	testDir, err := os.MkdirTemp("", "logger-test")
	require.NoError(t, err)

	defer os.RemoveAll(testDir)

	filePathWithExtension := filepath.Join(testDir, "dummy1", "file.log")
	filePathWithoutExtension := filepath.Join(testDir, "dummy2", "file")

	t.Run("empty", func(t *testing.T) {
		f, err := getLogFileWriter(LoggerConfig{LogFilePath: " ", AppendFile: true})
		require.NoError(t, err)
		require.Nil(t, f)
	})

	t.Run("with append", func(t *testing.T) {
		f, err := getLogFileWriter(LoggerConfig{LogFilePath: filePathWithExtension, AppendFile: true})
		require.NoError(t, err)
		require.NotNil(t, f)

		defer f.Close()

		require.Equal(t, filePathWithExtension, f.Name())

		f, err = getLogFileWriter(LoggerConfig{LogFilePath: filePathWithoutExtension, AppendFile: true})
		require.NoError(t, err)
		require.NotNil(t, f)

		defer f.Close()

		require.Equal(t, filePathWithoutExtension, f.Name())
	})

	t.Run("without append", func(t *testing.T) {
		f, err := getLogFileWriter(LoggerConfig{LogFilePath: filePathWithExtension, AppendFile: false})
		require.NoError(t, err)
		require.NotNil(t, f)

		defer f.Close()

		require.Regexp(t, regexp.MustCompile(fmt.Sprintf("^%s/dummy1/file_.*\\.log$", testDir)), f.Name())

		f, err = getLogFileWriter(LoggerConfig{LogFilePath: filePathWithoutExtension, AppendFile: false})
		require.NoError(t, err)
		require.NotNil(t, f)

		defer f.Close()

		require.Regexp(t, regexp.MustCompile(fmt.Sprintf("^%s/dummy2/file_.*$", testDir)), f.Name())
	})
}

func TestParseLevel(t *testing.T) {
	for name, expected := range map[string]hclog.Level{
		"error": hclog.Error,
		"WARN":  hclog.Warn,
		" info": hclog.Info,
		"Debug": hclog.Debug,
		"trace": hclog.Trace,
	} {
		level, err := ParseLevel(name)
		require.NoError(t, err)
		require.Equal(t, expected, level, name)
	}

	_, err := ParseLevel("verbose")
	require.Error(t, err)
}
