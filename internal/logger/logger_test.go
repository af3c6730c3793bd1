package logger_test

import (
	"testing"

	"github.com/goran-ethernal/ethindex/internal/logger"
	"github.com/goran-ethernal/ethindex/pkg/config"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		t.Run(level, func(t *testing.T) {
			l, err := logger.NewLogger(level, level == "debug")
			require.NoError(t, err)
			require.Equal(t, level, l.GetLevel())
			require.Empty(t, l.GetComponent())
		})
	}

	_, err := logger.NewLogger("verbose", false)
	require.Error(t, err)

	require.Panics(t, func() { logger.NewComponentLogger("pipeline", "verbose", false) })
}

func TestNewComponentLoggerFromConfig(t *testing.T) {
	var nilConfig *config.LoggingConfig

	tests := []struct {
		name      string
		component string
		cfg       logger.LoggingConfig
		wantLevel string
	}{
		{
			name:      "component override",
			component: "reconciler",
			cfg: &config.LoggingConfig{
				DefaultLevel:    "warn",
				ComponentLevels: map[string]string{"reconciler": " DEBUG "},
			},
			wantLevel: "debug",
		},
		{
			name:      "default level",
			component: "log-fetcher",
			cfg:       &config.LoggingConfig{DefaultLevel: "error"},
			wantLevel: "error",
		},
		{
			name:      "empty config",
			component: "store",
			cfg:       &config.LoggingConfig{},
			wantLevel: "info",
		},
		{
			name:      "nil config",
			component: "pipeline",
			wantLevel: "info",
		},
		{
			name:      "typed nil config",
			component: "api",
			cfg:       nilConfig,
			wantLevel: "info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := logger.NewComponentLoggerFromConfig(tt.component, tt.cfg)
			require.Equal(t, tt.component, l.GetComponent())
			require.Equal(t, tt.wantLevel, l.GetLevel())
		})
	}
}

func TestLogger_WithComponent(t *testing.T) {
	base, err := logger.NewLogger("warn", false)
	require.NoError(t, err)

	child := base.WithComponent("registry")
	require.Equal(t, "registry", child.GetComponent())
	require.Equal(t, "warn", child.GetLevel())
	require.Empty(t, base.GetComponent())
}

func TestNewNopLogger(t *testing.T) {
	l := logger.NewNopLogger()
	require.NotPanics(t, func() {
		l.Infow("stored events", "count", 3)
		l.WithComponent("store").Warnf("busy pages: %d", 1)
	})
}
