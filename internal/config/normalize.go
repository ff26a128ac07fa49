package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAnalysis()
	c.normalizeLMS()
	c.normalizeTags()
	c.normalizeLogging()
	c.normalizeArchive()
	return nil
}

func (c *Config) normalizePaths() error {
	roots := make([]string, 0, len(c.Paths.Music))
	seen := make(map[string]struct{}, len(c.Paths.Music))
	for i, root := range c.Paths.Music {
		if strings.TrimSpace(root) == "" {
			continue
		}
		expanded, err := expandPath(strings.TrimSpace(root))
		if err != nil {
			return fmt.Errorf("paths.music[%d]: %w", i, err)
		}
		if _, dup := seen[expanded]; dup {
			continue
		}
		seen[expanded] = struct{}{}
		roots = append(roots, expanded)
	}
	c.Paths.Music = roots

	var err error
	if strings.TrimSpace(c.Paths.DB) == "" {
		c.Paths.DB = defaultDBPath
	}
	if c.Paths.DB, err = expandPath(strings.TrimSpace(c.Paths.DB)); err != nil {
		return fmt.Errorf("paths.db: %w", err)
	}
	if strings.TrimSpace(c.Paths.Ignore) == "" {
		c.Paths.Ignore = filepath.Join(filepath.Dir(c.Paths.DB), defaultIgnoreName)
	}
	if c.Paths.Ignore, err = expandPath(strings.TrimSpace(c.Paths.Ignore)); err != nil {
		return fmt.Errorf("paths.ignore: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAnalysis() {
	if c.Analysis.Workers == 0 {
		c.Analysis.Workers = runtime.NumCPU()
	}
	c.Analysis.FFmpeg = strings.TrimSpace(c.Analysis.FFmpeg)
	if c.Analysis.FFmpeg == "" {
		c.Analysis.FFmpeg = defaultFFmpeg
	}
	c.Analysis.FFprobe = strings.TrimSpace(c.Analysis.FFprobe)
	if c.Analysis.FFprobe == "" {
		c.Analysis.FFprobe = defaultFFprobe
	}
}

func (c *Config) normalizeLMS() {
	c.LMS.Host = strings.TrimSpace(c.LMS.Host)
	if c.LMS.Host == "" {
		c.LMS.Host = defaultLMSHost
	}
	if c.LMS.JSONPort == 0 {
		c.LMS.JSONPort = defaultLMSJSONPort
	}
	if c.LMS.Timeout == 0 {
		c.LMS.Timeout = defaultLMSTimeout
	}
}

func (c *Config) normalizeTags() {
	c.Tags.VectorTag = strings.ToUpper(strings.TrimSpace(c.Tags.VectorTag))
	if c.Tags.VectorTag == "" {
		c.Tags.VectorTag = defaultVectorTag
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Level == "warning" {
		c.Logging.Level = "warn"
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}

func (c *Config) normalizeArchive() {
	c.Archive.Endpoint = strings.TrimSpace(c.Archive.Endpoint)
	c.Archive.Bucket = strings.TrimSpace(c.Archive.Bucket)
	c.Archive.Prefix = strings.Trim(strings.TrimSpace(c.Archive.Prefix), "/")
}
