package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// MaxMusicRoots caps the number of configured music folders.
const MaxMusicRoots = 5

// Paths contains file and directory locations.
type Paths struct {
	Music  []string `toml:"music"`
	DB     string   `toml:"db"`
	Ignore string   `toml:"ignore"`
	LogDir string   `toml:"log_dir"`
}

// Analysis contains settings for the analyse command.
type Analysis struct {
	Workers       int    `toml:"workers"`
	KeepOld       bool   `toml:"keep_old"`
	DryRun        bool   `toml:"dry_run"`
	MaxTracks     int    `toml:"max_tracks"`
	JobTimeout    int    `toml:"job_timeout"`
	UseTagVectors bool   `toml:"use_tag_vectors"`
	FFmpeg        string `toml:"ffmpeg"`
	FFprobe       string `toml:"ffprobe"`
}

// LMS contains the location of the Lyrion Music Server running the mixer.
type LMS struct {
	// Host is "[user:pass@]host".
	Host     string `toml:"host"`
	JSONPort int    `toml:"json_port"`
	Timeout  int    `toml:"timeout"`
}

// Tags contains settings for the tags command.
type Tags struct {
	WriteVectors  bool   `toml:"write_vectors"`
	PreserveMTime bool   `toml:"preserve_mtime"`
	VectorTag     string `toml:"vector_tag"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Archive contains an optional S3-compatible destination that receives a copy
// of every uploaded database snapshot.
type Archive struct {
	Enabled   bool   `toml:"enabled"`
	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Region    string `toml:"region"`
	UseSSL    bool   `toml:"use_ssl"`
	Prefix    string `toml:"prefix"`
}

// Config encapsulates all configuration values.
//
// Configuration sections by subsystem:
//   - Paths: music roots, database, ignore file, log directory
//   - Analysis: worker pool and diff policy
//   - LMS: remote mixer host for upload/stopmixer
//   - Tags: tag synchronization behaviour
//   - Logging: log format, level, and rotation
//   - Archive: optional snapshot archive bucket
type Config struct {
	Paths    Paths    `toml:"paths"`
	Analysis Analysis `toml:"analysis"`
	LMS      LMS      `toml:"lms"`
	Tags     Tags     `toml:"tags"`
	Logging  Logging  `toml:"logging"`
	Archive  Archive  `toml:"archive"`
}

// Override adjusts a config before the file is applied. Command-line flags
// are expressed as overrides so that file values win.
type Override func(*Config)

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. Overrides are
// applied on top of the defaults and below the file. The returned config has
// all path fields expanded.
func Load(path string, overrides ...Override) (*Config, string, bool, error) {
	cfg := Default()
	for _, override := range overrides {
		if override != nil {
			override(&cfg)
		}
	}

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadDotEnv(resolvedPath); err != nil {
		return nil, "", false, err
	}
	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the database and log files live in.
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.Paths.DB)}
	if c.Paths.LogDir != "" {
		dirs = append(dirs, c.Paths.LogDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JobTimeout returns the per-track analysis timeout, zero when disabled.
func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.Analysis.JobTimeout) * time.Second
}

// LMSTimeout returns the HTTP timeout for mixer requests.
func (c *Config) LMSTimeout() time.Duration {
	return time.Duration(c.LMS.Timeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
