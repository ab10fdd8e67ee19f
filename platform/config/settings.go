package config

// Settings are the engine defaults read from the environment. Embedding
// applications parse them once at startup and thread the values into export
// and telemetry setup; nothing in the engine reads the environment on its
// own.
type Settings struct {
	// ExportDir is the directory batch exports are written to.
	ExportDir string `env:"TRACENGINE_EXPORT_DIR" envDefault:"exports"`

	// ExportFormat is the fallback export format for pipeline configs that
	// do not set one: csv, json, or sqlite.
	ExportFormat string `env:"TRACENGINE_EXPORT_FORMAT" envDefault:"csv"`

	// OTELEndpoint mirrors the endpoint consumed by otel.Setup, exposed
	// here so callers can report the effective configuration.
	OTELEndpoint string `env:"TRACENGINE_OTEL_ENDPOINT"`
}

// LoadSettings parses engine settings from the environment.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := ParseEnv(&s); err != nil {
		return Settings{}, err
	}
	return s, nil
}
