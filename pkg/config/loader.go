package config

import (
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"

	"github.com/arthur-debert/btrfs-snapraid/pkg/errors"
	"github.com/arthur-debert/btrfs-snapraid/pkg/logging"
)

const envPrefix = "BTRFS_SNAPRAID_"

// Default locations searched when no config file is specified
var configSearchPaths = []string{
	"btrfs-snapraid.toml",
	"/usr/local/etc/btrfs-snapraid.toml",
	"/etc/btrfs-snapraid.toml",
}

// requiredOptions is the table-driven validation pass: every key listed
// here must have a non-empty value after all providers are merged.
var requiredOptions = []string{
	"mounts.btrfs_mount_dir",
	"mounts.drives",
	"subvolumes.live_data",
	"subvolumes.snapraid_data",
	"snapraid.cmd",
	"snapraid.config",
}

// systemDefaults seeds optional settings before the file and environment
// providers are layered on top
func systemDefaults() map[string]interface{} {
	return map[string]interface{}{
		"subvolumes.snapraid_subdir":        "",
		"subvolumes.snapraid_snaps_to_keep": 1,
		"maintenance.touch":                 true,
		"maintenance.scrub_age":             10,
	}
}

// Load reads the configuration from path, or from the first default
// location that exists when path is empty, and validates it.
func Load(path string) (*Config, error) {
	logger := logging.GetLogger("config")

	configPath, err := findConfigFile(path, logger)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(systemDefaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load defaults")
	}

	// 2. Config file
	if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse,
			"problem parsing config file %q", configPath)
	}

	// 3. Environment overrides
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment overrides")
	}

	// 4. Required options
	for _, key := range requiredOptions {
		if !k.Exists(key) || isEmpty(k.Get(key)) {
			section, option, _ := strings.Cut(key, ".")
			return nil, errors.Newf(errors.ErrConfigValid,
				"option %q in section [%s] is required", option, section)
		}
	}

	// 5. Unmarshal
	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook:       mapstructure.StringToSliceHookFunc(","),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "invalid value or type in configuration")
	}

	// 6. Post-process
	if err := postProcess(&cfg, logger); err != nil {
		return nil, err
	}

	logger.Debug().Interface("config", cfg).Str("path", configPath).Msg("Configuration loaded")

	return &cfg, nil
}

// findConfigFile resolves the config file location. An explicit path must
// exist; otherwise the default locations are searched in order.
func findConfigFile(path string, logger zerolog.Logger) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", errors.Wrapf(err, errors.ErrConfigNotFound, "file not found: %q", path)
		}
		return path, nil
	}

	logger.Debug().Msg("No config file specified, searching default locations")
	for _, candidate := range configSearchPaths {
		if _, err := os.Stat(candidate); err == nil {
			logger.Debug().Str("path", candidate).Msg("Found config file")
			return candidate, nil
		}
	}

	return "", errors.New(errors.ErrConfigNotFound,
		"a configuration file is required; either specify a path with --config"+
			" or place a file in one of the default locations")
}

// postProcess applies the fixups that cannot be expressed in the schema:
// drive list normalization and the retention floor.
func postProcess(cfg *Config, logger zerolog.Logger) error {
	drives := cfg.Mounts.Drives[:0]
	for _, d := range cfg.Mounts.Drives {
		if d = strings.TrimSpace(d); d != "" {
			drives = append(drives, d)
		}
	}
	cfg.Mounts.Drives = drives

	if len(cfg.Mounts.Drives) == 0 {
		return errors.New(errors.ErrConfigValid,
			`option "drives" in section [mounts] must name at least one drive`)
	}

	if cfg.Subvolumes.SnapsToKeep < 1 {
		logger.Warn().Int("snapraid_snaps_to_keep", cfg.Subvolumes.SnapsToKeep).
			Msg("Option \"snapraid_snaps_to_keep\" in section [subvolumes] cannot be less than 1, using 1")
		cfg.Subvolumes.SnapsToKeep = 1
	}

	return nil
}

func isEmpty(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []interface{}:
		return len(val) == 0
	case []string:
		return len(val) == 0
	default:
		return false
	}
}
