package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// FlavorChanged is true when any llm.* field changed. Rebuilding
	// the LLM backend needs a restart; the app only logs a notice.
	FlavorChanged bool

	// ClipsChanged is true when the cooldown or attachment budget
	// changed. Retention is excluded: resizing the capture window
	// requires a restart.
	ClipsChanged bool
}

// Any reports whether the diff carries at least one reloadable change.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.FlavorChanged || d.ClipsChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.LLM != new.LLM {
		d.FlavorChanged = true
	}

	if old.Clips.CooldownSeconds != new.Clips.CooldownSeconds ||
		old.Clips.MaxUploadMB != new.Clips.MaxUploadMB {
		d.ClipsChanged = true
	}

	return d
}
