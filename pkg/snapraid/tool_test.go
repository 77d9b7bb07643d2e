// pkg/snapraid/tool_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None (fake runner)
// PURPOSE: Test SnapRAID command-line construction and scrub plan handling

package snapraid

import (
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/btrfs-snapraid/pkg/config"
	"github.com/arthur-debert/btrfs-snapraid/pkg/runner"
)

type fakeRunner struct {
	calls []string
	out   string
	err   error
}

func (f *fakeRunner) Run(name string, args []string, opts ...runner.Option) (string, error) {
	f.calls = append(f.calls, strings.Join(append([]string{name}, args...), " "))
	return f.out, f.err
}

func toolConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Mounts.BtrfsMountDir = "/mnt/btrfs"
	cfg.Mounts.Drives = []string{"disk1"}
	cfg.Subvolumes.LiveData = "live"
	cfg.Subvolumes.SnapraidData = "data"
	cfg.Snapraid.Cmd = "/usr/bin/snapraid"
	cfg.Snapraid.Config = "/etc/snapraid.conf"
	return cfg
}

func newTestTool(f *fakeRunner) *Tool {
	logger := zerolog.Nop()
	return New(Options{Config: toolConfig(), Runner: f, Logger: &logger})
}

func TestInvokeArgumentOrder(t *testing.T) {
	f := &fakeRunner{}
	tool := newTestTool(f)

	_, err := tool.Invoke(Invocation{Action: "sync"})
	require.NoError(t, err)

	require.Len(t, f.calls, 1)
	assert.Equal(t, "/usr/bin/snapraid --conf /etc/snapraid.conf --quiet sync", f.calls[0])
}

func TestInvokeConfigOverride(t *testing.T) {
	f := &fakeRunner{}
	tool := newTestTool(f)

	_, err := tool.Invoke(Invocation{Action: "touch", ConfigOverride: "/tmp/live.conf"})
	require.NoError(t, err)

	assert.Equal(t, "/usr/bin/snapraid --conf /tmp/live.conf --quiet touch", f.calls[0])
}

func TestInvokeExtraArgsPrecedeAction(t *testing.T) {
	f := &fakeRunner{}
	tool := newTestTool(f)

	_, err := tool.Invoke(Invocation{Action: "scrub", ExtraArgs: []string{"--plan", "5"}})
	require.NoError(t, err)

	assert.Equal(t, "/usr/bin/snapraid --conf /etc/snapraid.conf --quiet --plan 5 scrub", f.calls[0])
}

func TestInvokePropagatesFailure(t *testing.T) {
	f := &fakeRunner{err: fmt.Errorf("exit status 1")}
	tool := newTestTool(f)

	_, err := tool.Invoke(Invocation{Action: "sync"})
	assert.Error(t, err)
}

func TestScrubPlans(t *testing.T) {
	tests := []struct {
		name string
		plan string
		age  int
		want string
	}{
		{
			name: "numeric_plan_gets_age",
			plan: "12",
			age:  10,
			want: "/usr/bin/snapraid --conf /etc/snapraid.conf --quiet --plan 12 --older-than 10 scrub",
		},
		{
			name: "named_plan_without_age",
			plan: "bad",
			age:  10,
			want: "/usr/bin/snapraid --conf /etc/snapraid.conf --quiet --plan bad scrub",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeRunner{}
			tool := newTestTool(f)

			require.NoError(t, tool.Scrub(tt.plan, tt.age))
			require.Len(t, f.calls, 1)
			assert.Equal(t, tt.want, f.calls[0])
		})
	}
}
