// pkg/logging/logging_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test level resolution and per-writer filtering

package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestResolveConsoleLevel(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want zerolog.Level
	}{
		{
			name: "default_is_warn",
			opts: Options{},
			want: zerolog.WarnLevel,
		},
		{
			name: "quiet_is_error",
			opts: Options{Quiet: true, Verbosity: 0},
			want: zerolog.ErrorLevel,
		},
		{
			name: "single_v_is_info",
			opts: Options{Verbosity: 1},
			want: zerolog.InfoLevel,
		},
		{
			name: "double_v_is_debug",
			opts: Options{Verbosity: 2},
			want: zerolog.DebugLevel,
		},
		{
			name: "triple_v_is_trace",
			opts: Options{Verbosity: 3},
			want: zerolog.TraceLevel,
		},
		{
			name: "config_level_used_without_flags",
			opts: Options{ConsoleLevel: "info"},
			want: zerolog.InfoLevel,
		},
		{
			name: "flags_override_config_level",
			opts: Options{Verbosity: 2, ConsoleLevel: "error"},
			want: zerolog.DebugLevel,
		},
		{
			name: "dry_run_bumps_to_debug",
			opts: Options{DryRun: true},
			want: zerolog.DebugLevel,
		},
		{
			name: "dry_run_keeps_trace",
			opts: Options{DryRun: true, Verbosity: 3},
			want: zerolog.TraceLevel,
		},
		{
			name: "bogus_config_level_defaults_to_warn",
			opts: Options{ConsoleLevel: "loud"},
			want: zerolog.WarnLevel,
		},
		{
			name: "fatal_clamped_to_error",
			opts: Options{ConsoleLevel: "fatal"},
			want: zerolog.ErrorLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveConsoleLevel(tt.opts))
		})
	}
}

func TestLevelWriterFilters(t *testing.T) {
	var buf bytes.Buffer
	lw := &levelWriter{w: &buf, min: zerolog.WarnLevel}

	logger := zerolog.New(lw)

	logger.Info().Msg("below threshold")
	assert.Empty(t, buf.String(), "info should be filtered by a warn writer")

	logger.Error().Msg("above threshold")
	assert.Contains(t, buf.String(), "above threshold")
}

func TestGetLoggerAddsComponent(t *testing.T) {
	logger := GetLogger("subvol")

	var buf bytes.Buffer
	logger = logger.Output(&buf).Level(zerolog.InfoLevel)
	logger.Info().Msg("hello")

	assert.Contains(t, buf.String(), `"component":"subvol"`)
}
