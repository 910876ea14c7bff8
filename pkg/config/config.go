package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFilename = "config.yaml"
	DefaultHomeDirName    = ".adoptctl"

	// HomeEnvVar relocates the adoptctl home directory (pending records,
	// design catalog, persona database).
	HomeEnvVar = "ADOPTCTL_HOME"
)

// File is the optional adoptctl configuration. All durations are Go
// duration strings ("1.75s", "10m").
type File struct {
	PollInterval  string    `yaml:"poll_interval,omitempty"`
	PendingMaxAge string    `yaml:"pending_max_age,omitempty"`
	Generator     Generator `yaml:"generator,omitempty"`
	LineScript    string    `yaml:"line_script,omitempty"`
	Database      string    `yaml:"database,omitempty"`
}

// Generator configures the external AI CLI that runs generation jobs.
type Generator struct {
	Bin     string   `yaml:"bin,omitempty"`
	Args    []string `yaml:"args,omitempty"`
	Timeout string   `yaml:"timeout,omitempty"`
}

// DefaultHome resolves the adoptctl home directory: ADOPTCTL_HOME when set,
// otherwise ~/.adoptctl.
func DefaultHome() (string, error) {
	if env := os.Getenv(HomeEnvVar); env != "" {
		return env, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve user home")
	}
	return filepath.Join(userHome, DefaultHomeDirName), nil
}

func DefaultPath(home string) string {
	return filepath.Join(home, DefaultConfigFilename)
}

func LoadFromFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	var cfg File
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config yaml")
	}
	return &cfg, nil
}

// LoadOptional returns an empty config when the file does not exist.
func LoadOptional(path string) (*File, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, errors.Wrap(err, "stat config")
	}
	return LoadFromFile(path)
}

// PollIntervalOr parses the configured poll interval, falling back to def
// when unset or invalid.
func (f *File) PollIntervalOr(def time.Duration) time.Duration {
	return durationOr(f.PollInterval, def)
}

func (f *File) PendingMaxAgeOr(def time.Duration) time.Duration {
	return durationOr(f.PendingMaxAge, def)
}

func (f *File) GeneratorTimeoutOr(def time.Duration) time.Duration {
	return durationOr(f.Generator.Timeout, def)
}

// DatabasePath resolves the persona database location relative to home.
func (f *File) DatabasePath(home string) string {
	if f.Database == "" {
		return filepath.Join(home, "personas.db")
	}
	if filepath.IsAbs(f.Database) {
		return f.Database
	}
	return filepath.Join(home, f.Database)
}

func durationOr(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
