// Package snapraid wraps the external SnapRAID executable: building its
// command lines, rewriting its configuration to point at live data, and
// parsing the output of its diff command.
package snapraid

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/btrfs-snapraid/pkg/config"
	"github.com/arthur-debert/btrfs-snapraid/pkg/logging"
	"github.com/arthur-debert/btrfs-snapraid/pkg/runner"
)

// CommandRunner executes an external command. Satisfied by *runner.Runner.
type CommandRunner interface {
	Run(name string, args []string, opts ...runner.Option) (string, error)
}

// Options contains configuration for the tool wrapper
type Options struct {
	Config *config.Config
	Runner CommandRunner
	// Logger overrides the default component logger, mainly for tests
	Logger *zerolog.Logger
}

// Tool invokes the SnapRAID executable
type Tool struct {
	cmd        string
	configPath string
	run        CommandRunner
	logger     zerolog.Logger
}

// New creates a new tool wrapper instance
func New(opts Options) *Tool {
	logger := logging.GetLogger("snapraid")
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Tool{
		cmd:        opts.Config.Snapraid.Cmd,
		configPath: opts.Config.Snapraid.Config,
		run:        opts.Runner,
		logger:     logger,
	}
}

// Invocation describes one SnapRAID action run
type Invocation struct {
	// Action is the SnapRAID command (touch, diff, sync, scrub)
	Action string

	// ExtraArgs are inserted between --quiet and the action
	ExtraArgs []string

	// ConfigOverride substitutes the configured SnapRAID config file,
	// used with the temporary live-data config
	ConfigOverride string

	// Capture returns the command's stdout to the caller
	Capture bool

	// OKCodes lists non-zero exit codes treated as success
	OKCodes []int
}

// Invoke runs `<cmd> --conf <config> --quiet [extra...] <action>` and
// returns captured output when requested
func (t *Tool) Invoke(inv Invocation) (string, error) {
	conf := t.configPath
	if inv.ConfigOverride != "" {
		conf = inv.ConfigOverride
	}

	args := append([]string{"--conf", conf, "--quiet"}, inv.ExtraArgs...)
	args = append(args, inv.Action)

	var opts []runner.Option
	if inv.Capture {
		opts = append(opts, runner.Capture())
	}
	if len(inv.OKCodes) > 0 {
		opts = append(opts, runner.OKCodes(inv.OKCodes...))
	}

	t.logger.Debug().Msg(separator)
	out, err := t.run.Run(t.cmd, args, opts...)
	t.logger.Debug().Msg(separator)

	return out, err
}

// Scrub runs the scrub action for the configured plan. Numeric plans are
// percentages and carry the older-than age; named plans do not.
func (t *Tool) Scrub(plan string, age int) error {
	extra := []string{"--plan", plan}
	if _, err := strconv.Atoi(plan); err == nil {
		extra = append(extra, "--older-than", strconv.Itoa(age))
	}

	_, err := t.Invoke(Invocation{Action: "scrub", ExtraArgs: extra})
	return err
}

var separator = strings.TrimRight(strings.Repeat("- ", 30), " ")
