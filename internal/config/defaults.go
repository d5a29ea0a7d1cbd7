package config

const (
	defaultConfigPath    = "~/.config/subforge/config.toml"
	defaultWorkDir       = "~/.local/share/subforge/work"
	defaultLogDir        = "~/.local/share/subforge/logs"
	defaultStateDir      = "~/.local/state/subforge"
	defaultMkvmerge      = "mkvmerge"
	defaultFFprobe       = "ffprobe"
	defaultProber        = ProberMkvmerge
	defaultToolTimeout   = 600
	defaultParallelism   = 2
	defaultChapterOrder  = "strict"
	defaultCompression   = "zlib"
	defaultMinFreeGiB    = 5
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultLogMaxSizeMB  = 20
	defaultLogMaxBackups = 5
	defaultLogMaxAgeDays = 60
	envLogLevel          = "SUBFORGE_LOG_LEVEL"
)

// Prober kinds.
const (
	ProberMkvmerge = "mkvmerge"
	ProberFFprobe  = "ffprobe"
)

// Default returns a Config populated with defaults. Paths are unexpanded.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir,
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Tools: Tools{
			Mkvmerge:       defaultMkvmerge,
			FFprobe:        defaultFFprobe,
			Prober:         defaultProber,
			TimeoutSeconds: defaultToolTimeout,
		},
		Build: Build{
			Parallelism:  defaultParallelism,
			ChapterOrder: defaultChapterOrder,
			Compression:  defaultCompression,
			MinFreeGiB:   defaultMinFreeGiB,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
	}
}
