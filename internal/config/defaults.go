package config

const (
	defaultDataDir          = "~/.local/share/vectra"
	defaultLogDir           = "~/.local/share/vectra/logs"
	defaultAPIBind          = "127.0.0.1:8187"
	defaultWorkers          = 4
	defaultQueueDepth       = 256
	defaultJobTTLSeconds    = 3600
	defaultMaxUploadBytes   = 100 << 20
	defaultSubscriberBuffer = 32
	defaultMode             = "auto"
	defaultColors           = 0 // 0 = choose from image statistics
	defaultDetail           = 3
	defaultSmoothing        = 50
	defaultDespeckle        = 4
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Jobs: Jobs{
			Workers:          defaultWorkers,
			QueueDepth:       defaultQueueDepth,
			TTLSeconds:       defaultJobTTLSeconds,
			MaxUploadBytes:   defaultMaxUploadBytes,
			SubscriberBuffer: defaultSubscriberBuffer,
		},
		Defaults: Defaults{
			Mode:      defaultMode,
			Colors:    defaultColors,
			Detail:    defaultDetail,
			Smoothing: defaultSmoothing,
			Despeckle: defaultDespeckle,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
