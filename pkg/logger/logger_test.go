package logger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"four-presale/config"
	"four-presale/pkg/logger"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LoggerConfig
		wantErr bool
	}{
		{name: "console debug", cfg: config.LoggerConfig{Level: "debug", Format: "console"}},
		{name: "json warn", cfg: config.LoggerConfig{Level: "warn", Format: "json"}},
		{name: "empty format defaults to console", cfg: config.LoggerConfig{Level: "info"}},
		{name: "bad level", cfg: config.LoggerConfig{Level: "loud", Format: "json"}, wantErr: true},
		{name: "bad format", cfg: config.LoggerConfig{Level: "info", Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := logger.New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, log)
		})
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	log, err := logger.New(config.LoggerConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)

	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.ErrorLevel))
}
