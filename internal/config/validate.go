package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateLMS(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if len(c.Paths.Music) == 0 {
		return errors.New("paths.music must list at least one music folder")
	}
	if len(c.Paths.Music) > MaxMusicRoots {
		return fmt.Errorf("paths.music lists %d folders, at most %d are supported", len(c.Paths.Music), MaxMusicRoots)
	}
	if c.Paths.DB == "" {
		return errors.New("paths.db must be set")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.Workers < 0 {
		return errors.New("analysis.workers must be zero (auto) or positive")
	}
	if c.Analysis.MaxTracks < 0 {
		return errors.New("analysis.max_tracks must be zero (unlimited) or positive")
	}
	if c.Analysis.JobTimeout < 0 {
		return errors.New("analysis.job_timeout must be zero (disabled) or positive")
	}
	return nil
}

func (c *Config) validateLMS() error {
	if c.LMS.JSONPort < 1 || c.LMS.JSONPort > 65535 {
		return fmt.Errorf("lms.json_port %d is out of range", c.LMS.JSONPort)
	}
	if c.LMS.Timeout < 0 {
		return errors.New("lms.timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return errors.New("logging rotation settings must not be negative")
	}
	return nil
}

func (c *Config) validateArchive() error {
	if !c.Archive.Enabled {
		return nil
	}
	if c.Archive.Endpoint == "" {
		return errors.New("archive.endpoint must be set when archive.enabled is true")
	}
	if c.Archive.Bucket == "" {
		return errors.New("archive.bucket must be set when archive.enabled is true")
	}
	if c.Archive.AccessKey == "" || c.Archive.SecretKey == "" {
		return fmt.Errorf("archive credentials missing: set archive.access_key/secret_key or %s/%s", EnvArchiveAccessKey, EnvArchiveSecretKey)
	}
	return nil
}
