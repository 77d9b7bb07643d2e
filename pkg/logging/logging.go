package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls logger setup. CLI flags take precedence over the
// [logging] section of the config file.
type Options struct {
	Verbosity    int    // -v count (-v info, -vv debug, -vvv trace)
	Quiet        bool   // -q: errors only
	DryRun       bool   // raises console level to at least debug
	ConsoleLevel string // config console_level, used when no CLI override
	File         string // log file path; empty uses the XDG state default
	FileLevel    string // config file_level
}

// SetupLogger configures the global logger with dual output to console
// and a log file, each filtered at its own level
func SetupLogger(opts Options) {
	consoleLevel := resolveConsoleLevel(opts)
	fileLevel := clampLevel(parseLevel(opts.FileLevel))

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.Kitchen,
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()),
	}

	writers := []zerolog.LevelWriter{
		&levelWriter{w: consoleWriter, min: consoleLevel},
	}

	logFile := opts.File
	if logFile == "" {
		logFile = defaultLogFilePath()
	}
	logFileHandle, err := setupLogFile(logFile)
	if err == nil {
		writers = append(writers, &levelWriter{w: logFileHandle, min: fileLevel})
	}

	multi := zerolog.MultiLevelWriter(toWriters(writers)...)
	log.Logger = zerolog.New(multi).Level(minLevel(consoleLevel, fileLevel)).
		With().Timestamp().Logger()

	// If the log file could not be opened, degrade to console only
	if err != nil {
		log.Warn().Err(err).Str("path", logFile).Msg("Failed to open log file, logging to console only")
	}

	log.Debug().
		Stringer("consoleLevel", consoleLevel).
		Stringer("fileLevel", fileLevel).
		Str("logFile", logFile).
		Msg("Logger initialized")
}

// GetLogger returns a contextualized logger with the given name
func GetLogger(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// resolveConsoleLevel maps CLI flags and config to a console level.
// Quiet wins, then counted -v flags, then the configured level name.
func resolveConsoleLevel(opts Options) zerolog.Level {
	var level zerolog.Level
	switch {
	case opts.Quiet:
		level = zerolog.ErrorLevel
	case opts.Verbosity == 1:
		level = zerolog.InfoLevel
	case opts.Verbosity == 2:
		level = zerolog.DebugLevel
	case opts.Verbosity > 2:
		level = zerolog.TraceLevel
	default:
		level = parseLevel(opts.ConsoleLevel)
	}

	// A dry run is only useful if the would-be commands are visible
	if opts.DryRun && level > zerolog.DebugLevel {
		level = zerolog.DebugLevel
	}

	return clampLevel(level)
}

// parseLevel resolves a level name from the config file, defaulting to warn
func parseLevel(name string) zerolog.Level {
	if name == "" {
		return zerolog.WarnLevel
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.WarnLevel
	}
	return level
}

// clampLevel keeps a writer from suppressing errors
func clampLevel(level zerolog.Level) zerolog.Level {
	if level > zerolog.ErrorLevel {
		return zerolog.ErrorLevel
	}
	return level
}

func minLevel(a, b zerolog.Level) zerolog.Level {
	if a < b {
		return a
	}
	return b
}

// levelWriter filters records below min before passing them through,
// giving each output destination its own reportable level
type levelWriter struct {
	w   io.Writer
	min zerolog.Level
}

func (lw *levelWriter) Write(p []byte) (n int, err error) {
	return lw.w.Write(p)
}

func (lw *levelWriter) WriteLevel(level zerolog.Level, p []byte) (n int, err error) {
	if level < lw.min {
		return len(p), nil
	}
	return lw.w.Write(p)
}

func toWriters(lws []zerolog.LevelWriter) []io.Writer {
	writers := make([]io.Writer, len(lws))
	for i, lw := range lws {
		writers[i] = lw
	}
	return writers
}

// defaultLogFilePath returns the log file location under the XDG state dir
func defaultLogFilePath() string {
	return filepath.Join(xdg.StateHome, "btrfs-snapraid", "btrfs-snapraid.log")
}

// setupLogFile creates the log file and its parent directories
func setupLogFile(logPath string) (*os.File, error) {
	logDir := filepath.Dir(logPath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Append mode; rotation is left to logrotate
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return file, nil
}
