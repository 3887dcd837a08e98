// Package config provides the configuration schema, loader, and the change
// reducer for the PhenoGraph screening tools.
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

// ReasoningDepth selects how verbose analysis rationales are.
type ReasoningDepth string

const (
	DepthConcise  ReasoningDepth = "concise"
	DepthDetailed ReasoningDepth = "detailed"
)

// IsValid reports whether d is a recognised reasoning depth.
func (d ReasoningDepth) IsValid() bool {
	return d == DepthConcise || d == DepthDetailed
}

// Config is the root configuration structure. It is loaded once from a YAML
// file and treated as immutable afterwards; runtime adjustments go through
// [Apply], which returns a fresh value.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Audio    AudioConfig    `yaml:"audio"`
	Analysis AnalysisConfig `yaml:"analysis"`
	History  HistoryConfig  `yaml:"history"`
	Training TrainingConfig `yaml:"training"`
}

// ServerConfig holds the observability endpoint and logging settings.
type ServerConfig struct {
	// MetricsAddr is the TCP address the metrics/health listener binds to
	// (e.g., ":9090"). Empty disables the listener.
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// GeminiConfig selects the inference models and endpoint.
type GeminiConfig struct {
	// APIKey authenticates against the inference service. Usually left
	// empty here and supplied via the GEMINI_API_KEY environment variable.
	APIKey string `yaml:"api_key"`

	// AnalysisModel is the model used for one-shot screening.
	AnalysisModel string `yaml:"analysis_model"`

	// LiveModel is the native-audio realtime model.
	LiveModel string `yaml:"live_model"`

	// Voice is the prebuilt voice for synthesised replies.
	Voice string `yaml:"voice"`

	// BaseURL overrides the REST endpoint. Leave empty for the default.
	BaseURL string `yaml:"base_url"`
}

// AudioConfig tunes the capture pipeline.
type AudioConfig struct {
	// FrameSize is the capture frame length in samples. Zero selects the
	// built-in default.
	FrameSize int `yaml:"frame_size"`
}

// AnalysisConfig tunes report generation.
type AnalysisConfig struct {
	// ReasoningDepth is "concise" or "detailed".
	ReasoningDepth ReasoningDepth `yaml:"reasoning_depth"`

	// ReportLanguage is the target language for generated reports. Empty
	// means English.
	ReportLanguage string `yaml:"report_language"`

	// CustomInstruction replaces the default system instruction. Failures
	// under a custom instruction are retried once with the default.
	CustomInstruction string `yaml:"custom_instruction"`
}

// HistoryConfig controls the local session archive.
type HistoryConfig struct {
	// Dir is the directory holding the archive and related state.
	Dir string `yaml:"dir"`

	// Limit is the retention cap. Zero selects the built-in default.
	Limit int `yaml:"limit"`

	// Retain controls whether finished analyses are archived. When false,
	// prior records stay readable but nothing new is written.
	Retain bool `yaml:"retain"`
}

// TrainingConfig controls the background self-training job.
type TrainingConfig struct {
	// Enabled turns the daily self-training job on.
	Enabled bool `yaml:"enabled"`
}

// Default returns the baseline configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			MetricsAddr: ":9090",
			LogLevel:    LogInfo,
		},
		Gemini: GeminiConfig{
			AnalysisModel: "gemini-3-pro-preview",
			LiveModel:     "gemini-2.5-flash-native-audio-preview-09-2025",
			Voice:         "Kore",
		},
		Analysis: AnalysisConfig{
			ReasoningDepth: DepthDetailed,
		},
		History: HistoryConfig{
			Dir:    "data",
			Retain: true,
		},
	}
}
