// Package config loads and validates the btrfs-snapraid configuration.
//
// The configuration is a TOML file with one table per concern ([mounts],
// [subvolumes], [snapraid], [maintenance], [logging]). Values can be
// overridden through BTRFS_SNAPRAID_* environment variables, with "__"
// separating the table from the option name.
package config

// Config is the validated, strongly-typed configuration. It is built once
// at load time and never mutated afterwards.
type Config struct {
	Mounts      Mounts      `koanf:"mounts"`
	Subvolumes  Subvolumes  `koanf:"subvolumes"`
	Snapraid    Snapraid    `koanf:"snapraid"`
	Maintenance Maintenance `koanf:"maintenance"`
	Logging     Logging     `koanf:"logging"`
}

// Mounts names the filesystem roots and the array members
type Mounts struct {
	// BtrfsMountDir is the directory under which each drive's btrfs
	// filesystem root is mounted
	BtrfsMountDir string `koanf:"btrfs_mount_dir"`

	// Drives are the array members, processed in declaration order.
	// Accepts a TOML array or a comma-separated string.
	Drives []string `koanf:"drives"`

	// SnapraidMountDir, when set, is a dedicated mount directory for the
	// snapraid subvolumes; refresh brackets its work with umount/mount
	SnapraidMountDir string `koanf:"snapraid_mount_dir"`
}

// Subvolumes names the per-drive subvolumes and the snapshot retention
type Subvolumes struct {
	LiveData       string `koanf:"live_data"`
	SnapraidData   string `koanf:"snapraid_data"`
	SnapraidSubdir string `koanf:"snapraid_subdir"`

	// SnapsToKeep is how many historical read-only snapshots to retain
	// per drive. Values below 1 are clamped to 1 with a warning.
	SnapsToKeep int `koanf:"snapraid_snaps_to_keep"`
}

// Snapraid locates the external parity tool
type Snapraid struct {
	Cmd    string `koanf:"cmd"`
	Config string `koanf:"config"`
}

// Maintenance tunes the maintenance sequence. A nil threshold means
// "no limit" and the corresponding check is skipped.
type Maintenance struct {
	DeleteThreshold *int   `koanf:"delete_threshold"`
	UpdateThreshold *int   `koanf:"update_threshold"`
	Touch           bool   `koanf:"touch"`
	ScrubPlan       string `koanf:"scrub_plan"`
	ScrubAge        int    `koanf:"scrub_age"`
}

// Logging mirrors the [logging] config table
type Logging struct {
	ConsoleLevel string `koanf:"console_level"`
	File         string `koanf:"file"`
	FileLevel    string `koanf:"file_level"`
}
