package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/joe/syncdeck/internal/progress"
)

// EnvPrefix prefixes environment overrides, e.g. SYNCDECK_RSYNC_BINARY.
const EnvPrefix = "SYNCDECK"

// DialectAuto asks for the rsync dialect to be probed at startup.
const DialectAuto = "auto"

// Settings holds everything read from the settings file and environment.
type Settings struct {
	Rsync   RsyncSettings   `mapstructure:"rsync"`
	Run     RunSettings     `mapstructure:"run"`
	Store   StoreSettings   `mapstructure:"store"`
	Logging LoggingSettings `mapstructure:"logging"`
}

// RsyncSettings selects the binary and how its output is read.
type RsyncSettings struct {
	Binary  string `mapstructure:"binary"`
	Dialect string `mapstructure:"dialect"` // auto, structured or fallback
}

// RunSettings tunes job sequencing.
type RunSettings struct {
	SettleDelay time.Duration `mapstructure:"settle_delay"`
}

// StoreSettings locates the job database.
type StoreSettings struct {
	Path string `mapstructure:"path"`
}

// LoggingSettings holds logging configuration
type LoggingSettings struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() *Settings {
	dataDir := DefaultDataDir()

	return &Settings{
		Rsync: RsyncSettings{
			Binary:  "rsync",
			Dialect: DialectAuto,
		},
		Run: RunSettings{
			SettleDelay: 500 * time.Millisecond,
		},
		Store: StoreSettings{
			Path: filepath.Join(dataDir, "syncdeck.db"),
		},
		Logging: LoggingSettings{
			File:  filepath.Join(dataDir, "syncdeck.log"),
			Level: "INFO",
		},
	}
}

// DefaultConfigDir returns the directory searched for config.yaml.
func DefaultConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), Program)
	}

	home, _ := os.UserHomeDir()

	return filepath.Join(home, ".config", Program)
}

// DefaultDataDir returns where the database and log live.
func DefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), Program)
	}

	home, _ := os.UserHomeDir()

	return filepath.Join(home, ".local", "share", Program)
}

// LoadSettings reads the settings file and environment. An explicit path
// must exist; the default location may be absent.
func LoadSettings(path string) (*Settings, error) {
	defaults := DefaultSettings()

	v := viper.New()
	v.SetDefault("rsync.binary", defaults.Rsync.Binary)
	v.SetDefault("rsync.dialect", defaults.Rsync.Dialect)
	v.SetDefault("run.settle_delay", defaults.Run.SettleDelay)
	v.SetDefault("store.path", defaults.Store.Path)
	v.SetDefault("logging.file", defaults.Logging.File)
	v.SetDefault("logging.level", defaults.Logging.Level)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultConfigDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	settings.Store.Path = ExpandHome(settings.Store.Path)
	settings.Logging.File = ExpandHome(settings.Logging.File)

	return settings, settings.Validate()
}

// Merge applies command-line overrides. Flags win over file and environment.
func (s *Settings) Merge(args *Args) {
	if args == nil {
		return
	}

	if args.DB != "" {
		s.Store.Path = ExpandHome(args.DB)
	}

	if args.Rsync != "" {
		s.Rsync.Binary = args.Rsync
	}

	if args.LogLevel != "" {
		s.Logging.Level = args.LogLevel
	}

	if args.Settle > 0 {
		s.Run.SettleDelay = args.Settle
	}
}

// Validate rejects settings that cannot work.
func (s *Settings) Validate() error {
	if s.Rsync.Binary == "" {
		return errors.New("rsync.binary must not be empty")
	}

	if _, _, err := s.Dialect(); err != nil {
		return err
	}

	if s.Run.SettleDelay < 0 {
		return errors.New("run.settle_delay must not be negative")
	}

	return nil
}

// Dialect returns the configured dialect. ok is false for "auto", meaning
// the binary should be probed.
func (s *Settings) Dialect() (progress.Dialect, bool, error) {
	name := strings.ToLower(strings.TrimSpace(s.Rsync.Dialect))
	if name == "" || name == DialectAuto {
		return progress.DialectFallback, false, nil
	}

	dialect, err := progress.ParseDialect(name)
	if err != nil {
		return dialect, false, fmt.Errorf("rsync.dialect: %w", err)
	}

	return dialect, true, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}
