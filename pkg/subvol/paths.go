// Package subvol manages the per-drive btrfs subvolumes backing the
// parity array: refreshing the snapraid snapshot from live data before a
// sync, and rotating the retained read-only snapshots after one.
package subvol

import (
	"fmt"
	"path/filepath"

	"github.com/arthur-debert/btrfs-snapraid/pkg/config"
)

// Paths holds the concrete subvolume locations for one drive
type Paths struct {
	// Live is the live-data subvolume
	Live string

	// Snapshot is the snapraid snapshot subvolume, the one the parity
	// tool reads during sync
	Snapshot string
}

// Numbered returns the path of the n-th retained read-only snapshot.
// Slot 1 is the most recent; n must be >= 1.
func (p Paths) Numbered(n int) string {
	return fmt.Sprintf("%s.%d", p.Snapshot, n)
}

// For derives the subvolume paths for a drive from the configuration
func For(cfg *config.Config, drive string) Paths {
	return Paths{
		Live: filepath.Join(cfg.Mounts.BtrfsMountDir, drive, cfg.Subvolumes.LiveData),
		Snapshot: filepath.Join(cfg.Mounts.BtrfsMountDir, drive,
			cfg.Subvolumes.SnapraidSubdir, cfg.Subvolumes.SnapraidData),
	}
}

// MountPoint returns the dedicated snapraid mount point for a drive.
// Only meaningful when snapraid_mount_dir is configured.
func MountPoint(cfg *config.Config, drive string) string {
	return filepath.Join(cfg.Mounts.SnapraidMountDir, drive)
}
