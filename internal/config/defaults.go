package config

const (
	defaultConfigPath     = "~/.config/bliss-analyser/config.toml"
	projectConfigName     = "bliss-analyser.toml"
	defaultMusicDir       = "~/Music"
	defaultDBPath         = "~/.local/share/bliss-analyser/bliss.db"
	defaultIgnoreName     = "ignore.txt"
	defaultFFmpeg         = "ffmpeg"
	defaultFFprobe        = "ffprobe"
	defaultLMSHost        = "127.0.0.1"
	defaultLMSJSONPort    = 9000
	defaultLMSTimeout     = 30
	defaultVectorTag      = "BLISS_ANALYSIS"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultLogMaxSizeMB   = 10
	defaultLogMaxBackups  = 3
	defaultLogMaxAgeDays  = 30
	defaultArchivePrefix  = "bliss"
	defaultArchiveUseSSL  = true
	defaultPreserveMTime  = true
	defaultAnalysisWorker = 0
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			Music: []string{defaultMusicDir},
			DB:    defaultDBPath,
		},
		Analysis: Analysis{
			Workers: defaultAnalysisWorker,
			FFmpeg:  defaultFFmpeg,
			FFprobe: defaultFFprobe,
		},
		LMS: LMS{
			Host:     defaultLMSHost,
			JSONPort: defaultLMSJSONPort,
			Timeout:  defaultLMSTimeout,
		},
		Tags: Tags{
			PreserveMTime: defaultPreserveMTime,
			VectorTag:     defaultVectorTag,
		},
		Logging: Logging{
			Level:      defaultLogLevel,
			Format:     defaultLogFormat,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
		Archive: Archive{
			UseSSL: defaultArchiveUseSSL,
			Prefix: defaultArchivePrefix,
		},
	}
}
