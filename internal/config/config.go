// Package config provides the configuration schema and loader for the
// cicerone voice guide server.
package config

// LogLevel controls log verbosity for the cicerone server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// DeviceKind selects an audio device implementation.
type DeviceKind string

const (
	// DeviceNull is a silent input and discarding output, for development
	// and soak testing without hardware.
	DeviceNull DeviceKind = "null"
)

// IsValid reports whether d is a recognised device kind.
func (d DeviceKind) IsValid() bool {
	return d == DeviceNull
}

// Config is the root configuration structure for cicerone.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Live     LiveConfig     `yaml:"live"`
	Guide    GuideConfig    `yaml:"guide"`
	Personas PersonasConfig `yaml:"personas"`
	Audio    AudioConfig    `yaml:"audio"`
	Geo      *GeoConfig     `yaml:"geo"`
}

// ServerConfig holds network and logging settings for the cicerone server.
type ServerConfig struct {
	// ListenAddr is the TCP address the control and metrics server listens on
	// (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// LiveConfig selects and authenticates the live speech agent backend.
type LiveConfig struct {
	// APIKey authenticates against the agent API.
	APIKey string `yaml:"api_key"`

	// Model overrides the default agent model.
	Model string `yaml:"model"`

	// BaseURL overrides the agent's default WebSocket endpoint. Leave empty
	// to use the built-in default.
	BaseURL string `yaml:"base_url"`
}

// GuideConfig describes the tour context.
type GuideConfig struct {
	// City is the city being toured. Appended to map queries and fed into
	// the agent's instructions.
	City string `yaml:"city"`

	// Persona is the ID of the active guide persona.
	Persona string `yaml:"persona"`

	// Preferences are the user's tour constraints.
	Preferences PreferencesConfig `yaml:"preferences"`
}

// PreferencesConfig mirrors persona.Preferences in YAML form.
type PreferencesConfig struct {
	// TimeBudget is one of "1h", "2-3h", "half-day", "full-day".
	TimeBudget string `yaml:"time_budget"`

	// Mobility is one of "low", "medium", "high".
	Mobility string `yaml:"mobility"`

	// Budget is one of "low", "medium", "high".
	Budget string `yaml:"budget"`
}

// PersonasConfig points at additional persona definitions.
type PersonasConfig struct {
	// File is a YAML file of personas merged over the built-ins. Optional.
	File string `yaml:"file"`
}

// AudioConfig selects the audio devices.
type AudioConfig struct {
	// Device selects the device implementation for both input and output.
	Device DeviceKind `yaml:"device"`

	// FrameSize is the capture frame length in samples. Defaults to 4096.
	FrameSize int `yaml:"frame_size"`
}

// GeoConfig pins the user's position for origin defaulting in directions.
// When absent, directions fall back to the configured city.
type GeoConfig struct {
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
}
