// Package config provides the configuration schema and loader for the
// voicevox client tooling.
package config

// LogLevel controls log verbosity.
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

// Config is the root configuration structure, typically loaded from a YAML
// file using [Load] or [LoadFromReader].
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Output  OutputConfig  `yaml:"output"`
	Observe ObserveConfig `yaml:"observe"`

	// LogLevel controls verbosity. Empty means "info".
	LogLevel LogLevel `yaml:"log_level"`
}

// EngineConfig holds the native engine bring-up settings.
type EngineConfig struct {
	// DictDir is the OpenJTalk dictionary directory. Required. The
	// directory is validated when the engine initialises, not when the
	// config is loaded.
	DictDir string `yaml:"dict_dir"`

	// CPUNumThreads is the inference thread-count hint; 0 lets the runtime
	// decide.
	CPUNumThreads int `yaml:"cpu_num_threads"`

	// RuntimePath locates the ONNX runtime shared library on platforms
	// where it is not bundled. Empty uses the default search path.
	RuntimePath string `yaml:"runtime_path"`

	// VoiceModels lists model files to load at startup. The -model flag
	// appends to this list.
	VoiceModels []string `yaml:"voice_models"`
}

// OutputConfig controls where synthesized audio is written.
type OutputConfig struct {
	// Dir is the directory WAV files are written to. Default ".".
	Dir string `yaml:"dir"`
}

// ObserveConfig controls the optional observability listener.
type ObserveConfig struct {
	// ListenAddr is the TCP address serving /metrics, /healthz and /readyz
	// (e.g., ":9090"). Empty disables the listener.
	ListenAddr string `yaml:"listen_addr"`
}
