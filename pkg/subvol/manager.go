package subvol

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/btrfs-snapraid/pkg/config"
	"github.com/arthur-debert/btrfs-snapraid/pkg/errors"
	"github.com/arthur-debert/btrfs-snapraid/pkg/logging"
	"github.com/arthur-debert/btrfs-snapraid/pkg/runner"
)

// CommandRunner executes an external command. Satisfied by *runner.Runner.
type CommandRunner interface {
	Run(name string, args []string, opts ...runner.Option) (string, error)
}

// Options contains configuration for the manager
type Options struct {
	Runner CommandRunner
	Config *config.Config
	// Logger overrides the default component logger, mainly for tests
	Logger *zerolog.Logger
	// Stat overrides os.Stat, mainly for tests
	Stat func(string) (os.FileInfo, error)
}

// Manager sequences the subvolume operations for all drives. It performs
// no rollback: a failed step leaves the drive in an indeterminate state
// and the operation must be re-run once the underlying problem is fixed.
type Manager struct {
	run    CommandRunner
	cfg    *config.Config
	logger zerolog.Logger
	stat   func(string) (os.FileInfo, error)
}

// New creates a new manager instance
func New(opts Options) *Manager {
	logger := logging.GetLogger("subvol")
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	stat := opts.Stat
	if stat == nil {
		stat = os.Stat
	}

	return &Manager{
		run:    opts.Runner,
		cfg:    opts.Config,
		logger: logger,
		stat:   stat,
	}
}

// Refresh replaces the drive's snapraid snapshot with a fresh snapshot of
// the live subvolume. When a dedicated snapraid mount is configured it is
// unmounted before the delete and remounted after the new snapshot exists,
// so the mount point never points at a deleted subvolume.
func (m *Manager) Refresh(drive string) error {
	m.logger.Info().Str("drive", drive).
		Msg("Refreshing snapraid snapshot from the live subvolume")

	paths := For(m.cfg, drive)
	mounted := m.cfg.Mounts.SnapraidMountDir != ""

	if mounted {
		mount := MountPoint(m.cfg, drive)
		m.logger.Debug().Str("path", mount).Msg("Unmounting")
		if _, err := m.run.Run("umount", []string{mount}); err != nil {
			return errors.Wrapf(err, errors.ErrMount, "failed to unmount %q", mount)
		}
	}

	// The default subvolume delete is lazy: it does not force an on-disk
	// commit before returning
	m.logger.Debug().Str("path", paths.Snapshot).Msg("Deleting snapshot subvolume")
	if _, err := m.run.Run("btrfs", []string{"subvolume", "delete", paths.Snapshot}); err != nil {
		return errors.Wrapf(err, errors.ErrSubvolume,
			"failed to delete subvolume %q", paths.Snapshot).WithDetail("drive", drive)
	}

	m.logger.Debug().Str("from", paths.Live).Str("to", paths.Snapshot).
		Msg("Snapshotting live subvolume")
	if _, err := m.run.Run("btrfs", []string{"subvolume", "snapshot", paths.Live, paths.Snapshot}); err != nil {
		return errors.Wrapf(err, errors.ErrSubvolume,
			"failed to snapshot %q to %q", paths.Live, paths.Snapshot).WithDetail("drive", drive)
	}

	if mounted {
		mount := MountPoint(m.cfg, drive)
		m.logger.Debug().Str("path", mount).Msg("Remounting")
		if _, err := m.run.Run("mount", []string{mount}); err != nil {
			return errors.Wrapf(err, errors.ErrMount, "failed to mount %q", mount)
		}
	}

	return nil
}

// Save rotates the retained snapshots and records the current snapraid
// snapshot as generation 1. The oldest generation is evicted when the
// chain is at capacity; missing generations are skipped, not repaired.
// Must run only after a successful sync.
func (m *Manager) Save(drive string) error {
	m.logger.Info().Str("drive", drive).
		Msg("Rotating saved snapshots and saving current snapraid snapshot")

	paths := For(m.cfg, drive)
	keep := m.cfg.Subvolumes.SnapsToKeep

	for n := keep; n >= 1; n-- {
		snap := paths.Numbered(n)
		if _, err := m.stat(snap); err != nil {
			continue
		}

		if n == keep {
			m.logger.Debug().Str("path", snap).Msg("Evicting oldest snapshot")
			if _, err := m.run.Run("btrfs", []string{"subvolume", "delete", snap}); err != nil {
				return errors.Wrapf(err, errors.ErrSubvolume,
					"failed to delete snapshot %q", snap).WithDetail("drive", drive)
			}
			continue
		}

		next := paths.Numbered(n + 1)
		m.logger.Debug().Str("from", snap).Str("to", next).Msg("Rotating snapshot")
		// -v makes mv produce output that lands in the log like the
		// btrfs commands do
		if _, err := m.run.Run("mv", []string{"-v", snap, next}); err != nil {
			return errors.Wrapf(err, errors.ErrSubvolume,
				"failed to rotate snapshot %q to %q", snap, next).WithDetail("drive", drive)
		}
	}

	first := paths.Numbered(1)
	m.logger.Debug().Str("from", paths.Snapshot).Str("to", first).
		Msg("Creating read-only snapshot")
	if _, err := m.run.Run("btrfs", []string{"subvolume", "snapshot", "-r", paths.Snapshot, first}); err != nil {
		return errors.Wrapf(err, errors.ErrSubvolume,
			"failed to create read-only snapshot %q", first).WithDetail("drive", drive)
	}

	return nil
}

// RefreshAll refreshes every drive in configuration order, stopping at
// the first failure
func (m *Manager) RefreshAll() error {
	for _, drive := range m.cfg.Mounts.Drives {
		if err := m.Refresh(drive); err != nil {
			return err
		}
	}
	return nil
}

// SaveAll saves every drive in configuration order, stopping at the
// first failure
func (m *Manager) SaveAll() error {
	for _, drive := range m.cfg.Mounts.Drives {
		if err := m.Save(drive); err != nil {
			return err
		}
	}
	return nil
}
