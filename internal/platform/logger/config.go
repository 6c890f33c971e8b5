package logger

import (
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
)

const (
	formatJSON    = "json"
	formatConsole = "console"
)

// LoggerConfig selects the level, encoding and destination of the process logger.
type LoggerConfig struct {
	Level      string
	Format     string
	OutputFile string
}

func lookupLower(key, fallback string) string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	return strings.ToLower(strings.TrimSpace(v))
}

// DefaultConfig reads LOG_LEVEL, LOG_FORMAT and LOG_OUTPUT_FILE.
func DefaultConfig() *LoggerConfig {
	out := os.Getenv("LOG_OUTPUT_FILE")
	if out == "" {
		out = "stdout"
	}
	return &LoggerConfig{
		Level:      lookupLower("LOG_LEVEL", "info"),
		Format:     lookupLower("LOG_FORMAT", formatJSON),
		OutputFile: out,
	}
}

// ToZapLevel maps Level onto zap. "warning" is accepted; anything unparsable is info.
func (c *LoggerConfig) ToZapLevel() zapcore.Level {
	name := c.Level
	if name == "warning" {
		name = "warn"
	}
	lvl, err := zapcore.ParseLevel(name)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func (c *LoggerConfig) isConsole() bool {
	return c.Format == formatConsole || c.Format == "text"
}

func (c *LoggerConfig) isStdStream() bool {
	switch c.OutputFile {
	case "stdout", "stderr":
		return true
	}
	return false
}
