package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoadSettings_Defaults(t *testing.T) {
	settings, err := LoadSettings(NewConfig(nil))
	require.NoError(t, err)

	assert.Equal(t, "8080", settings.Port)
	assert.Equal(t, []string{"*"}, settings.CORSAllowedOrigins)
	assert.Equal(t, DriverSQLite, settings.DatabaseDriver)
	assert.Equal(t, ".chat_app_messages.sqlite", settings.DatabasePath)
	assert.Equal(t, "@hourly", settings.CheckpointSpec)
	assert.Equal(t, 60*time.Second, settings.LookupTimeout)
	assert.Equal(t, 0, settings.MaxParallel)
	assert.Equal(t, 10*time.Millisecond, settings.Debounce)
	assert.Equal(t, "gpt-4.1", settings.Model)
}

func TestLoadSettings_Overrides(t *testing.T) {
	settings, err := LoadSettings(NewConfig(map[string]string{
		"API_PORT":                "9000",
		"CORS_ALLOWED_ORIGINS":    "https://a.example,https://b.example",
		"DATABASE_DRIVER":         "MySQL",
		"MYSQL_USER":              "vuln",
		"MYSQL_PASSWORD":          "secret",
		"MYSQL_HOST":              "db",
		"MYSQL_PORT":              "3307",
		"MYSQL_DATABASE":          "vulnassist",
		"STORE_CHECKPOINT_CRON":   "none",
		"LOOKUP_TIMEOUT":          "5s",
		"AGGREGATOR_MAX_PARALLEL": "4",
		"CHAT_DEBOUNCE":           "0s",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9000", settings.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, settings.CORSAllowedOrigins)
	assert.Equal(t, DriverMySQL, settings.DatabaseDriver)
	assert.Empty(t, settings.CheckpointSpec)
	assert.Equal(t, 5*time.Second, settings.LookupTimeout)
	assert.Equal(t, 4, settings.MaxParallel)
	assert.Equal(t, time.Duration(0), settings.Debounce)
	assert.True(t, strings.HasPrefix(settings.DSN(), "vuln:secret@tcp(db:3307)/vulnassist?"))
	assert.Contains(t, settings.DSN(), "parseTime=true")
}

func TestLoadSettings_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{name: "unknown driver", values: map[string]string{"DATABASE_DRIVER": "oracle"}},
		{name: "mysql without database", values: map[string]string{"DATABASE_DRIVER": "mysql"}},
		{name: "zero timeout", values: map[string]string{"LOOKUP_TIMEOUT": "0s"}},
		{name: "negative parallelism", values: map[string]string{"AGGREGATOR_MAX_PARALLEL": "-1"}},
		{name: "negative debounce", values: map[string]string{"CHAT_DEBOUNCE": "-5ms"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSettings(NewConfig(tt.values))
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("defaults to info", func(t *testing.T) {
		logger, err := NewLogger(NewConfig(nil))
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("console debug", func(t *testing.T) {
		logger, err := NewLogger(NewConfig(map[string]string{"LOG_LEVEL": "debug", "LOG_FORMAT": "console"}))
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := NewLogger(NewConfig(map[string]string{"LOG_LEVEL": "loud"}))
		assert.Error(t, err)
	})
}
