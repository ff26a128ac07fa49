package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables consulted for settings the file leaves empty.
const (
	EnvLMSHost          = "BLISS_LMS_HOST"
	EnvDB               = "BLISS_DB"
	EnvArchiveAccessKey = "BLISS_ARCHIVE_ACCESS_KEY"
	EnvArchiveSecretKey = "BLISS_ARCHIVE_SECRET_KEY"
)

// loadDotEnv reads .env files beside the config file and in the working
// directory. Variables already present in the environment are left alone.
func loadDotEnv(configPath string) error {
	candidates := []string{".env"}
	if configPath != "" {
		candidates = append([]string{filepath.Join(filepath.Dir(configPath), ".env")}, candidates...)
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		if _, err := os.Stat(abs); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("stat %s: %w", abs, err)
		}
		if err := godotenv.Load(abs); err != nil {
			return fmt.Errorf("load %s: %w", abs, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	if value, ok := lookupEnv(EnvLMSHost); ok && (c.LMS.Host == "" || c.LMS.Host == defaultLMSHost) {
		c.LMS.Host = value
	}
	if value, ok := lookupEnv(EnvDB); ok && (c.Paths.DB == "" || c.Paths.DB == defaultDBPath) {
		c.Paths.DB = value
	}
	if value, ok := lookupEnv(EnvArchiveAccessKey); ok && c.Archive.AccessKey == "" {
		c.Archive.AccessKey = value
	}
	if value, ok := lookupEnv(EnvArchiveSecretKey); ok && c.Archive.SecretKey == "" {
		c.Archive.SecretKey = value
	}
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
