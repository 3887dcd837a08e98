package config

import "fmt"

// Change describes a runtime adjustment to the effective configuration.
// Nil fields are left untouched.
type Change struct {
	LogLevel          *LogLevel
	ReasoningDepth    *ReasoningDepth
	ReportLanguage    *string
	CustomInstruction *string
	Voice             *string
	TrainingEnabled   *bool
}

// Apply returns a new Config with the change applied. The input is never
// mutated; an invalid change returns the input unchanged alongside the
// validation error, so a bad update can be rejected without losing the
// running configuration.
func Apply(cfg Config, ch Change) (Config, error) {
	next := cfg

	if ch.LogLevel != nil {
		if !ch.LogLevel.IsValid() {
			return cfg, fmt.Errorf("config: log level %q is invalid", *ch.LogLevel)
		}
		next.Server.LogLevel = *ch.LogLevel
	}
	if ch.ReasoningDepth != nil {
		if !ch.ReasoningDepth.IsValid() {
			return cfg, fmt.Errorf("config: reasoning depth %q is invalid", *ch.ReasoningDepth)
		}
		next.Analysis.ReasoningDepth = *ch.ReasoningDepth
	}
	if ch.ReportLanguage != nil {
		next.Analysis.ReportLanguage = *ch.ReportLanguage
	}
	if ch.CustomInstruction != nil {
		next.Analysis.CustomInstruction = *ch.CustomInstruction
	}
	if ch.Voice != nil {
		if *ch.Voice == "" {
			return cfg, fmt.Errorf("config: voice must not be empty")
		}
		next.Gemini.Voice = *ch.Voice
	}
	if ch.TrainingEnabled != nil {
		next.Training.Enabled = *ch.TrainingEnabled
	}

	return next, nil
}
