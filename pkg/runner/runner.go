// Package runner executes external commands, streaming their output into
// the logging subsystem. It is the single choke point through which every
// mutation of the array flows, which is also where dry-run is enforced.
package runner

import (
	"bytes"
	stderrors "errors"
	"io"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/btrfs-snapraid/pkg/errors"
	"github.com/arthur-debert/btrfs-snapraid/pkg/logging"
)

// Options contains configuration for the runner
type Options struct {
	DryRun bool
	// Logger overrides the default component logger, mainly for tests
	Logger *zerolog.Logger
}

// Runner runs external commands sequentially. Every call blocks until the
// command finishes.
type Runner struct {
	dryRun bool
	logger zerolog.Logger
}

// New creates a new runner instance
func New(opts Options) *Runner {
	logger := logging.GetLogger("runner")
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Runner{
		dryRun: opts.DryRun,
		logger: logger,
	}
}

// DryRun reports whether the runner is in dry-run mode
func (r *Runner) DryRun() bool {
	return r.dryRun
}

type runOptions struct {
	capture   bool
	alwaysRun bool
	okCodes   []int
	degrade   *zerolog.Level
}

// Option modifies a single invocation
type Option func(*runOptions)

// Capture returns the command's stdout to the caller in addition to
// streaming it to the log
func Capture() Option {
	return func(o *runOptions) { o.capture = true }
}

// AlwaysRun marks a command safe to execute even during a dry run
func AlwaysRun() Option {
	return func(o *runOptions) { o.alwaysRun = true }
}

// OKCodes treats the given non-zero exit codes as success
func OKCodes(codes ...int) Option {
	return func(o *runOptions) { o.okCodes = codes }
}

// Degrade downgrades a command failure to a log record at the given level
// instead of an error. Used only for non-critical steps; the failure is
// never silently ignored.
func Degrade(level zerolog.Level) Option {
	return func(o *runOptions) { o.degrade = &level }
}

// Run executes name with args. Stdout is logged line by line at debug with
// stream=stdout, stderr at error with stream=stderr. On non-zero exit the
// returned error carries the full command line and exit code.
func (r *Runner) Run(name string, args []string, opts ...Option) (string, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}

	cmdline := strings.Join(append([]string{name}, args...), " ")

	if r.dryRun && !o.alwaysRun {
		r.logger.Info().Bool("dryRun", true).Msgf("(DRY-RUN): %q", cmdline)
		return "", nil
	}
	r.logger.Debug().Msgf("%q", cmdline)

	stdoutLog := &lineWriter{logger: r.logger, level: zerolog.DebugLevel, stream: "stdout"}
	stderrLog := &lineWriter{logger: r.logger, level: zerolog.ErrorLevel, stream: "stderr"}

	var captured bytes.Buffer

	cmd := exec.Command(name, args...)
	if o.capture {
		cmd.Stdout = io.MultiWriter(stdoutLog, &captured)
	} else {
		cmd.Stdout = stdoutLog
	}
	cmd.Stderr = stderrLog

	err := cmd.Run()
	stdoutLog.Flush()
	stderrLog.Flush()

	if err == nil {
		return captured.String(), nil
	}

	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		for _, code := range o.okCodes {
			if exitErr.ExitCode() == code {
				return captured.String(), nil
			}
		}
	}

	if o.degrade != nil {
		r.logger.WithLevel(*o.degrade).Err(err).Msgf("Command failed: %q", cmdline)
		return captured.String(), nil
	}

	if stderrors.Is(err, exec.ErrNotFound) {
		return captured.String(), errors.Wrapf(err, errors.ErrCommandNotFound,
			"unable to run %q: not found or not executable", name)
	}

	return captured.String(), errors.Wrapf(err, errors.ErrCommandRun,
		"command failed: %q", cmdline).WithDetail("command", cmdline)
}

// lineWriter splits a command output stream into lines and logs each one.
// Trailing newlines are stripped since the logger adds its own.
type lineWriter struct {
	logger zerolog.Logger
	level  zerolog.Level
	stream string
	buf    []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.logLine(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

// Flush logs any trailing output that did not end in a newline
func (w *lineWriter) Flush() {
	if len(w.buf) > 0 {
		w.logLine(w.buf)
		w.buf = nil
	}
}

func (w *lineWriter) logLine(line []byte) {
	w.logger.WithLevel(w.level).Str("stream", w.stream).Msg(strings.TrimRight(string(line), "\r"))
}
