package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type RotatingLoggerConfig struct {
	MaxSizeInMB  int  `json:"maxSizeInMB"`
	MaxBackups   int  `json:"maxBackups"`
	MaxAgeInDays int  `json:"maxAgeInDays"`
	Compress     bool `json:"compress"`
}

type LoggerConfig struct {
	LogLevel            hclog.Level          `json:"logLevel"`
	JSONLogFormat       bool                 `json:"jsonLogFormat"`
	AppendFile          bool                 `json:"appendFile"`
	LogFilePath         string               `json:"logFilePath"`
	Name                string               `json:"name"`
	RotatingLogsEnabled bool                 `json:"rotatingLogsEnabled"`
	RotatingLogger      RotatingLoggerConfig `json:"rotatingLogger"`
}

var DefaultRotatingLoggerConfig = RotatingLoggerConfig{
	MaxSizeInMB:  100,
	MaxBackups:   30,
	MaxAgeInDays: 30,
	Compress:     false,
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger writes to stderr when no log file is configured. The returned
// closer releases the log file and must be called once logging is done.
func NewLogger(config LoggerConfig) (hclog.Logger, io.Closer, error) {
	var (
		output io.Writer
		closer io.Closer = nopCloser{}
	)

	if config.RotatingLogsEnabled {
		writer, err := getRotatingLogWriter(config)
		if err != nil {
			return nil, nil, err
		}

		output, closer = writer, writer
	} else {
		file, err := getLogFileWriter(config)
		if err != nil {
			return nil, nil, err
		} else if file != nil {
			output, closer = file, file
		}
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       config.Name,
		Level:      config.LogLevel,
		Output:     output,
		JSONFormat: config.JSONLogFormat,
	}), closer, nil
}

// ParseLevel accepts hclog level names such as "info" or "DEBUG".
func ParseLevel(level string) (hclog.Level, error) {
	parsed := hclog.LevelFromString(strings.TrimSpace(level))
	if parsed == hclog.NoLevel {
		return hclog.NoLevel, fmt.Errorf("unknown log level: %q", level)
	}

	return parsed, nil
}

func getRotatingLogWriter(config LoggerConfig) (*lumberjack.Logger, error) {
	path := strings.TrimSpace(config.LogFilePath)
	if path == "" {
		return nil, errors.New("rotating logs require a log file path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o770); err != nil {
		return nil, fmt.Errorf("could not create log directory, %w", err)
	}

	rotating := config.RotatingLogger
	if rotating == (RotatingLoggerConfig{}) {
		rotating = DefaultRotatingLoggerConfig
	}

	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rotating.MaxSizeInMB,
		MaxBackups: rotating.MaxBackups,
		MaxAge:     rotating.MaxAgeInDays,
		Compress:   rotating.Compress,
	}, nil
}

// getLogFileWriter returns nil if no file is configured. Without AppendFile a
// timestamp is added to the file name, before the extension.
func getLogFileWriter(config LoggerConfig) (*os.File, error) {
	path := strings.TrimSpace(config.LogFilePath)
	if path == "" {
		return nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o770); err != nil {
		return nil, fmt.Errorf("could not create log directory, %w", err)
	}

	if !config.AppendFile {
		timestamp := strings.NewReplacer(":", "_", "-", "_").Replace(time.Now().UTC().Format(time.RFC3339))
		ext := filepath.Ext(path)
		path = strings.TrimSuffix(path, ext) + "_" + timestamp + ext
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("could not create or open log file, %w", err)
	}

	return file, nil
}
