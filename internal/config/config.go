// Package config manages YAML-based configuration, environment and CLI
// overrides, and the watch roots served by fswatch.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/vistta-org/fs/internal/fs"
	"github.com/vistta-org/fs/internal/pathutil"
	"gopkg.in/yaml.v3"
)

// Supported change notification backends.
const (
	BackendPoll     = "poll"
	BackendFsnotify = "fsnotify"
)

// Root is a watched directory or git ref with an alias for display
type Root struct {
	Path    string `yaml:"path" json:"path"`
	Alias   string `yaml:"alias" json:"alias"`
	GitRef  string `yaml:"git_ref,omitempty" json:"git_ref,omitempty"`
	Exclude string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// Logger configures log output.
type Logger struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config holds all configuration options for fswatch
type Config struct {
	// Single path shorthand, turned into one root on load
	Path string `yaml:"path,omitempty"`

	Roots []Root `yaml:"roots,omitempty" json:"roots"`

	Port int `yaml:"port"`
	// Exclude applies to roots that do not set their own pattern.
	Exclude      string        `yaml:"exclude,omitempty"`
	Throttle     time.Duration `yaml:"throttle"`
	Rescan       time.Duration `yaml:"rescan,omitempty"`
	Backend      string        `yaml:"backend"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Buffer       int           `yaml:"buffer,omitempty"`
	Logger       Logger        `yaml:"logger"`

	// Internal: path to config file for saving
	configPath string
}

// environment lists the FSWATCH_* variables that override the file.
type environment struct {
	Path         string        `envconfig:"PATH"`
	Port         int           `envconfig:"PORT"`
	Exclude      string        `envconfig:"EXCLUDE"`
	Throttle     time.Duration `envconfig:"THROTTLE"`
	Backend      string        `envconfig:"BACKEND"`
	PollInterval time.Duration `envconfig:"POLL_INTERVAL"`
	LogLevel     string        `envconfig:"LOG_LEVEL"`
	LogFormat    string        `envconfig:"LOG_FORMAT"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Path:         ".",
		Port:         8080,
		Exclude:      `(^|/)(\.git|node_modules|\.svn)(/|$)`,
		Throttle:     time.Second,
		Backend:      BackendPoll,
		PollInterval: fs.DefaultPollInterval,
		Logger: Logger{
			Level:  "info",
			Format: "text",
		},
	}
}

// GetConfigDir returns the config directory path
func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/fswatch"
	}
	return filepath.Join(home, ".config", "fswatch")
}

// GetConfigPath returns the full path to the config file
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// Load reads the config file at path, or the first default location that
// exists when path is empty, then applies FSWATCH_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	cfgPath := path
	if cfgPath == "" {
		if _, err := os.Stat(GetConfigPath()); err == nil {
			cfgPath = GetConfigPath()
		} else if _, err := os.Stat("fswatch.yaml"); err == nil {
			cfgPath = "fswatch.yaml"
		}
	}

	if cfgPath != "" {
		if err := cfg.loadFromFile(cfgPath); err != nil && path != "" {
			// Only fail when the file was asked for explicitly
			return nil, err
		}
		cfg.configPath = cfgPath
	} else {
		cfg.configPath = GetConfigPath()
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.normalizeRoots()
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "unable to read config file")
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "unable to parse config file %s", path)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var env environment
	if err := envconfig.Process("fswatch", &env); err != nil {
		return errors.Wrap(err, "unable to read environment")
	}
	if env.Path != "" {
		c.Path = env.Path
		c.Roots = nil
	}
	if env.Port != 0 {
		c.Port = env.Port
	}
	if env.Exclude != "" {
		c.Exclude = env.Exclude
	}
	if env.Throttle != 0 {
		c.Throttle = env.Throttle
	}
	if env.Backend != "" {
		c.Backend = env.Backend
	}
	if env.PollInterval != 0 {
		c.PollInterval = env.PollInterval
	}
	if env.LogLevel != "" {
		c.Logger.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		c.Logger.Format = env.LogFormat
	}
	return nil
}

// RegisterFlags defines the flags ApplyFlags understands.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("path", "p", "", "root directory to watch, replaces configured roots")
	flags.Int("port", 0, "HTTP server port")
	flags.String("exclude", "", "regular expression of paths to ignore")
	flags.Duration("throttle", 0, "minimum spacing between tree scans")
	flags.String("backend", "", "change backend (poll or fsnotify)")
	flags.Duration("interval", 0, "poll interval for the poll backend and git roots")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
}

// ApplyFlags overrides the configuration with flags that were set
// explicitly. Flags missing from the set are ignored.
func (c *Config) ApplyFlags(flags *pflag.FlagSet) error {
	changed := func(name string) bool {
		return flags.Lookup(name) != nil && flags.Changed(name)
	}

	var err error
	if changed("path") {
		if c.Path, err = flags.GetString("path"); err != nil {
			return err
		}
		// An explicit path replaces saved roots
		c.Roots = nil
	}
	if changed("port") {
		if c.Port, err = flags.GetInt("port"); err != nil {
			return err
		}
	}
	if changed("exclude") {
		if c.Exclude, err = flags.GetString("exclude"); err != nil {
			return err
		}
	}
	if changed("throttle") {
		if c.Throttle, err = flags.GetDuration("throttle"); err != nil {
			return err
		}
	}
	if changed("backend") {
		if c.Backend, err = flags.GetString("backend"); err != nil {
			return err
		}
	}
	if changed("interval") {
		if c.PollInterval, err = flags.GetDuration("interval"); err != nil {
			return err
		}
	}
	if changed("log-level") {
		if c.Logger.Level, err = flags.GetString("log-level"); err != nil {
			return err
		}
	}
	c.normalizeRoots()
	return c.Validate()
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	switch c.Backend {
	case "", BackendPoll, BackendFsnotify:
	default:
		return errors.Errorf("unknown backend %q", c.Backend)
	}
	if c.Port < 0 || c.Port > 65535 {
		return errors.Errorf("invalid port %d", c.Port)
	}
	seen := make(map[string]bool)
	for _, r := range c.Roots {
		if seen[r.Alias] {
			return errors.Errorf("duplicate root alias %q", r.Alias)
		}
		seen[r.Alias] = true
	}
	return nil
}

// normalizeRoots converts Path to Roots if Roots is empty
func (c *Config) normalizeRoots() {
	if len(c.Roots) == 0 && c.Path != "" {
		absPath, err := filepath.Abs(c.Path)
		if err != nil {
			absPath = c.Path
		}
		c.Roots = []Root{{
			Path:  absPath,
			Alias: filepath.Base(absPath),
		}}
	}

	// Resolve all root paths to absolute
	for i := range c.Roots {
		absPath, err := filepath.Abs(c.Roots[i].Path)
		if err == nil {
			c.Roots[i].Path = absPath
		}
		if c.Roots[i].Alias == "" {
			c.Roots[i].Alias = defaultAlias(c.Roots[i].Path, c.Roots[i].GitRef)
		}
	}
}

func defaultAlias(path, gitRef string) string {
	alias := filepath.Base(path)
	if gitRef != "" {
		alias = alias + " (" + gitRef + ")"
	}
	return alias
}

// Save saves the current configuration to the config file
func (c *Config) Save() error {
	// Ensure config directory exists
	if err := fs.EnsureDir(filepath.Dir(c.configPath)); err != nil {
		return err
	}

	// Create a copy without internal fields for saving
	saveConfig := struct {
		Roots        []Root        `yaml:"roots,omitempty"`
		Port         int           `yaml:"port"`
		Exclude      string        `yaml:"exclude,omitempty"`
		Throttle     time.Duration `yaml:"throttle"`
		Rescan       time.Duration `yaml:"rescan,omitempty"`
		Backend      string        `yaml:"backend"`
		PollInterval time.Duration `yaml:"poll_interval"`
		Buffer       int           `yaml:"buffer,omitempty"`
		Logger       Logger        `yaml:"logger"`
	}{
		Roots:        c.Roots,
		Port:         c.Port,
		Exclude:      c.Exclude,
		Throttle:     c.Throttle,
		Rescan:       c.Rescan,
		Backend:      c.Backend,
		PollInterval: c.PollInterval,
		Buffer:       c.Buffer,
		Logger:       c.Logger,
	}

	data, err := yaml.Marshal(saveConfig)
	if err != nil {
		return errors.Wrap(err, "unable to encode config")
	}

	return errors.Wrap(os.WriteFile(c.configPath, data, 0644), "unable to write config file")
}

// AddRoot adds a new root with the given path, alias, git ref and exclude
// pattern. Adding a path and ref that are already configured does nothing.
func (c *Config) AddRoot(path, alias, gitRef, exclude string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, "unable to resolve root path")
	}

	for _, r := range c.Roots {
		if r.Path == absPath && r.GitRef == gitRef {
			return nil
		}
	}

	if alias == "" {
		alias = defaultAlias(absPath, gitRef)
	}
	alias = c.uniqueAlias(alias)
	c.Roots = append(c.Roots, Root{
		Path:    absPath,
		Alias:   alias,
		GitRef:  gitRef,
		Exclude: exclude,
	})
	return nil
}

// uniqueAlias appends a numeric suffix to alias until no root uses it.
func (c *Config) uniqueAlias(alias string) string {
	candidate := alias
	for n := 2; ; n++ {
		if _, taken := c.FindRoot(candidate); !taken {
			return candidate
		}
		candidate = alias + "-" + strconv.Itoa(n)
	}
}

// RemoveRootByIndex removes a root by its index
func (c *Config) RemoveRootByIndex(index int) {
	if index < 0 || index >= len(c.Roots) {
		return
	}
	c.Roots = append(c.Roots[:index], c.Roots[index+1:]...)
}

// FindRoot returns the root with the given alias.
func (c *Config) FindRoot(alias string) (Root, bool) {
	for _, r := range c.Roots {
		if r.Alias == alias {
			return r, true
		}
	}
	return Root{}, false
}

// ExcludeFor returns the exclude pattern that applies to r.
func (c *Config) ExcludeFor(r Root) string {
	if strings.TrimSpace(r.Exclude) != "" {
		return r.Exclude
	}
	return c.Exclude
}

// GetConfigFilePath returns the path to the config file
func (c *Config) GetConfigFilePath() string {
	return c.configPath
}

// Open builds the storage for r. It returns the storage, the resolver that
// matches its paths and the watch root inside it. The storage must be
// closed with CloseStorage.
func (c *Config) Open(r Root, logger *slog.Logger) (fs.Storage, pathutil.Resolver, string, error) {
	if r.GitRef != "" {
		return fs.NewGitFS(r.Path, r.GitRef, c.PollInterval), pathutil.Slash{}, "", nil
	}

	var subscriber fs.Subscriber
	switch c.Backend {
	case BackendFsnotify:
		n, err := fs.NewNotifySubscriber(logger)
		if err != nil {
			return nil, nil, "", err
		}
		subscriber = n
	default:
		subscriber = fs.NewPollSubscriber(c.PollInterval)
	}
	return fs.NewLocalFS(r.Path, fs.WithSubscriber(subscriber)), pathutil.Native{}, r.Path, nil
}

// CloseStorage releases a storage returned by Open.
func CloseStorage(s fs.Storage) error {
	if closer, ok := s.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
