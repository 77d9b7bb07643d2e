// pkg/snapraid/liveconfig_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: Filesystem (t.TempDir)
// PURPOSE: Test data-directive rewriting and verbatim pass-through

package snapraid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/btrfs-snapraid/pkg/config"
	"github.com/arthur-debert/btrfs-snapraid/pkg/errors"
)

func liveConfigFixture(t *testing.T, snapraidConf string) *config.Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "snapraid.conf")
	require.NoError(t, os.WriteFile(path, []byte(snapraidConf), 0644))

	cfg := &config.Config{}
	cfg.Mounts.BtrfsMountDir = "/mnt/btrfs"
	cfg.Mounts.Drives = []string{"disk1", "disk2"}
	cfg.Subvolumes.LiveData = "live"
	cfg.Subvolumes.SnapraidData = "data"
	cfg.Subvolumes.SnapraidSubdir = "snapraid"
	cfg.Snapraid.Cmd = "snapraid"
	cfg.Snapraid.Config = path
	return cfg
}

func generate(t *testing.T, cfg *config.Config) string {
	t.Helper()

	tmpPath, err := WriteLiveConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { RemoveLiveConfig(tmpPath) })

	content, err := os.ReadFile(tmpPath)
	require.NoError(t, err)
	return string(content)
}

func TestWriteLiveConfigRewritesDataDirectives(t *testing.T) {
	cfg := liveConfigFixture(t, `# SnapRAID configuration
parity /mnt/parity/snapraid.parity
content /var/snapraid.content

data disk1   /mnt/btrfs/disk1/snapraid/data
data disk2   /mnt/btrfs/disk2/snapraid/data
`)

	got := generate(t, cfg)

	assert.Contains(t, got, "data disk1 /mnt/btrfs/disk1/live\n")
	assert.Contains(t, got, "data disk2 /mnt/btrfs/disk2/live\n")
	assert.NotContains(t, got, "/snapraid/data")
}

func TestWriteLiveConfigPreservesOtherLines(t *testing.T) {
	cfg := liveConfigFixture(t, `# data disk2 commented out, copied unchanged
parity /mnt/parity/snapraid.parity

exclude *.tmp
data disk1   /mnt/btrfs/disk1/snapraid/data
`)

	got := generate(t, cfg)

	assert.Contains(t, got, "# data disk2 commented out, copied unchanged\n")
	assert.Contains(t, got, "parity /mnt/parity/snapraid.parity\n")
	assert.Contains(t, got, "\n\n")
	assert.Contains(t, got, "exclude *.tmp\n")
	assert.Contains(t, got, "data disk1 /mnt/btrfs/disk1/live\n")
}

func TestWriteLiveConfigUnrelatedDataPathUntouched(t *testing.T) {
	// A data directive pointing somewhere else entirely is not ours to rewrite
	cfg := liveConfigFixture(t, "data other /srv/storage/other\n")

	got := generate(t, cfg)

	assert.Equal(t, "data other /srv/storage/other\n", got)
}

func TestWriteLiveConfigDedicatedMountDir(t *testing.T) {
	cfg := liveConfigFixture(t, "data disk1   /mnt/snapraid/disk1\n")
	cfg.Mounts.SnapraidMountDir = "/mnt/snapraid"

	got := generate(t, cfg)

	assert.Equal(t, "data disk1 /mnt/btrfs/disk1/live\n", got)
}

func TestWriteLiveConfigNoSubdir(t *testing.T) {
	cfg := liveConfigFixture(t, "data disk1   /mnt/btrfs/disk1/data\n")
	cfg.Subvolumes.SnapraidSubdir = ""

	got := generate(t, cfg)

	assert.Equal(t, "data disk1 /mnt/btrfs/disk1/live\n", got)
}

func TestWriteLiveConfigMissingSource(t *testing.T) {
	cfg := liveConfigFixture(t, "")
	cfg.Snapraid.Config = filepath.Join(t.TempDir(), "missing.conf")

	_, err := WriteLiveConfig(cfg)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrLiveConfigRead))
}

func TestRemoveLiveConfig(t *testing.T) {
	cfg := liveConfigFixture(t, "data disk1   /mnt/btrfs/disk1/snapraid/data\n")

	tmpPath, err := WriteLiveConfig(cfg)
	require.NoError(t, err)

	RemoveLiveConfig(tmpPath)
	_, statErr := os.Stat(tmpPath)
	assert.True(t, os.IsNotExist(statErr))

	// Removing a missing or empty path must not panic
	RemoveLiveConfig(tmpPath)
	RemoveLiveConfig("")
}
