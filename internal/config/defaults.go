package config

const (
	// BuiltinPrefix marks hook references implemented in Go.
	BuiltinPrefix = "builtin:"

	defaultTreeFile    = "~/.local/share/publisher/tree.json"
	defaultHooksDir    = "~/.config/publisher/hooks"
	defaultLogDir      = "~/.local/share/publisher/logs"
	defaultPublishRoot = "~/.local/share/publisher/published"
	defaultTrackingDB  = "~/.local/share/publisher/tracking.db"
	defaultLogFormat   = "console"
	defaultLogLevel    = "info"
	defaultRunLogDays  = 30
	defaultEngine      = "shell"
	defaultCollector   = BuiltinPrefix + "basic_collector"
	defaultPostPhase   = BuiltinPrefix + "post_phase"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			TreeFile:    defaultTreeFile,
			HooksDir:    defaultHooksDir,
			LogDir:      defaultLogDir,
			PublishRoot: defaultPublishRoot,
			TrackingDB:  defaultTrackingDB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,

			RunLogRetentionDays: defaultRunLogDays,
		},
		Session: Session{
			Engine: defaultEngine,
		},
		Collector: Hook{Hook: defaultCollector},
		PublishPlugins: []Plugin{
			{Name: "Publish to Tracking", Hook: BuiltinPrefix + "publish_file"},
			{Name: "Upload for review", Hook: BuiltinPrefix + "upload_version"},
		},
		PostPhase: Hook{Hook: defaultPostPhase},
	}
}
