package config

import (
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/pkg/errors"
)

const (
	// EnvPrefix selects environment variables that override the config file,
	// e.g. DUPEFIND__SCAN__MIN_SIZE=4096.
	EnvPrefix = "DUPEFIND__"
)

type Configuration struct {
	Scan          ScanConfig          `koanf:"scan"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Metrics       MetricsConfig       `koanf:"metrics"`
}

type ScanConfig struct {
	Roots          []string `koanf:"roots"`
	MinSize        int64    `koanf:"min_size"`
	Include        []string `koanf:"include"`
	Exclude        []string `koanf:"exclude"`
	ExcludeRegex   []string `koanf:"exclude_regex"`
	Filter         string   `koanf:"filter"`
	FollowSymlinks bool     `koanf:"follow_symlinks"`
	FoldCase       bool     `koanf:"fold_case"`
	Keep           string   `koanf:"keep"`
}

type MetricsConfig struct {
	// Textfile is written in the prometheus text format after every scan.
	Textfile string `koanf:"textfile"`
}

var (
	Config *Configuration
	K      = koanf.New(".")
)

// Defaults returns the built-in configuration values.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"scan.roots":                   []string{"."},
		"scan.min_size":                1,
		"scan.exclude":                 []string{".git", "node_modules"},
		"scan.follow_symlinks":         false,
		"scan.fold_case":               DefaultFoldCase(),
		"scan.keep":                    "first",
		"notifications.detailed":       true,
		"notifications.skip_empty_run": true,
	}
}

// DefaultFoldCase reports whether paths are compared case-insensitively on this platform.
func DefaultFoldCase() bool {
	return goruntime.GOOS == "windows" || goruntime.GOOS == "darwin"
}

// Init loads defaults, the optional config file at path and environment overrides.
func Init(path string) error {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return errors.Wrap(err, "load defaults")
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return errors.Wrapf(err, "load config file %q", path)
			}
		} else if !os.IsNotExist(err) {
			return errors.Wrapf(err, "stat config file %q", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return errors.Wrap(err, "load environment")
	}

	cfg := &Configuration{}
	if err := k.Unmarshal("", cfg); err != nil {
		return errors.Wrap(err, "unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	K = k
	Config = cfg
	return nil
}

func (c *Configuration) Validate() error {
	if c.Scan.MinSize < 0 {
		return errors.Errorf("scan.min_size must not be negative: %d", c.Scan.MinSize)
	}

	switch strings.ToLower(c.Scan.Keep) {
	case "", "first", "shortest", "longest", "oldest", "newest":
	default:
		return errors.Errorf("scan.keep has unknown strategy: %q", c.Scan.Keep)
	}

	return nil
}

// GetDefaultConfigDirectory prefers a config file next to the executable,
// falling back to the user's config directory.
func GetDefaultConfigDirectory(app string, filename string) string {
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		if _, err := os.Stat(filepath.Join(dir, filename)); err == nil {
			return dir
		}
	}

	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, app)
	}

	return "."
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}
