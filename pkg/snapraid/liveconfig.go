package snapraid

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/arthur-debert/btrfs-snapraid/pkg/config"
	"github.com/arthur-debert/btrfs-snapraid/pkg/errors"
	"github.com/arthur-debert/btrfs-snapraid/pkg/logging"
)

// WriteLiveConfig generates a temporary SnapRAID config whose data
// directives point at the live-data subvolumes instead of the snapraid
// snapshots. Touch, and diff when run in isolation, need the live data to
// produce meaningful results.
//
// Every data directive matching the current on-disk drive path is
// rewritten with the drive name preserved; blank lines, comments, and all
// other lines are copied through verbatim. The caller owns the returned
// file and must remove it on every code path (see RemoveLiveConfig).
func WriteLiveConfig(cfg *config.Config) (string, error) {
	logger := logging.GetLogger("snapraid")

	directive := regexp.MustCompile(`^[\t ]*data[\t ]+(\w+)[\t ]+` + currentDataPathPattern(cfg))

	src, err := os.Open(cfg.Snapraid.Config)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrLiveConfigRead,
			"snapraid configuration file not found at %q", cfg.Snapraid.Config)
	}
	defer func() { _ = src.Close() }()

	tmp, err := os.CreateTemp("", "btrfs-snapraid-*.conf")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrLiveConfigWrite,
			"problem creating a temporary configuration file")
	}
	logger.Debug().Str("path", tmp.Name()).Msg("Creating a temporary snapraid config")

	out := bufio.NewWriter(tmp)
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		line := scanner.Text()

		// Blank and comment lines are copied through but never matched
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			if m := directive.FindStringSubmatch(line); m != nil {
				livePath := filepath.Join(cfg.Mounts.BtrfsMountDir, m[2], cfg.Subvolumes.LiveData)
				line = fmt.Sprintf("data %s %s", m[1], livePath)
			}
		}

		if _, err := fmt.Fprintln(out, line); err != nil {
			return "", cleanupWriteError(tmp, err)
		}
	}
	if err := scanner.Err(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", errors.Wrapf(err, errors.ErrLiveConfigRead,
			"unable to read snapraid configuration from %q", cfg.Snapraid.Config)
	}

	if err := out.Flush(); err != nil {
		return "", cleanupWriteError(tmp, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", errors.Wrap(err, errors.ErrLiveConfigWrite,
			"problem writing the temporary configuration file")
	}

	return tmp.Name(), nil
}

// RemoveLiveConfig deletes a temporary config created by WriteLiveConfig.
// Failure does not threaten array integrity, so it is logged rather than
// returned.
func RemoveLiveConfig(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil {
		logger := logging.GetLogger("snapraid")
		logger.Warn().Err(err).Str("path", path).
			Msg("Failed to remove temporary snapraid config")
	}
}

// currentDataPathPattern builds the regex fragment matching the on-disk
// form of a drive's data path, capturing the drive name from it. With a
// dedicated snapraid mount the path is the mount point; otherwise it is
// the snapshot subvolume under the btrfs root.
func currentDataPathPattern(cfg *config.Config) string {
	if cfg.Mounts.SnapraidMountDir != "" {
		return regexp.QuoteMeta(cfg.Mounts.SnapraidMountDir) + `/(.+)`
	}

	tail := cfg.Subvolumes.SnapraidData
	if cfg.Subvolumes.SnapraidSubdir != "" {
		tail = cfg.Subvolumes.SnapraidSubdir + "/" + tail
	}
	return regexp.QuoteMeta(cfg.Mounts.BtrfsMountDir) + `/(.+)/` + regexp.QuoteMeta(tail)
}

func cleanupWriteError(tmp *os.File, err error) error {
	_ = tmp.Close()
	_ = os.Remove(tmp.Name())
	return errors.Wrap(err, errors.ErrLiveConfigWrite,
		"problem writing the temporary configuration file")
}
