package config

import (
	"strings"
	"testing"
)

func TestLoadFromReader_LayersOverDefaults(t *testing.T) {
	t.Parallel()

	yml := `
server:
  log_level: debug
analysis:
  reasoning_depth: concise
  report_language: German
history:
  limit: 5
`
	cfg, err := LoadFromReader(strings.NewReader(yml))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.LogLevel != LogDebug {
		t.Errorf("log level: %q", cfg.Server.LogLevel)
	}
	if cfg.Analysis.ReasoningDepth != DepthConcise {
		t.Errorf("reasoning depth: %q", cfg.Analysis.ReasoningDepth)
	}
	if cfg.Analysis.ReportLanguage != "German" {
		t.Errorf("report language: %q", cfg.Analysis.ReportLanguage)
	}
	if cfg.History.Limit != 5 {
		t.Errorf("history limit: %d", cfg.History.Limit)
	}
	// Untouched fields keep their defaults.
	if cfg.Gemini.Voice != "Kore" {
		t.Errorf("voice default lost: %q", cfg.Gemini.Voice)
	}
	if cfg.Server.MetricsAddr != ":9090" {
		t.Errorf("metrics addr default lost: %q", cfg.Server.MetricsAddr)
	}
}

func TestLoadFromReader_RejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	_, err := LoadFromReader(strings.NewReader("server:\n  metricsaddr: ':1'\n"))
	if err == nil {
		t.Fatal("unknown key must be rejected")
	}
}

func TestValidate_JoinsAllFailures(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Server.LogLevel = "loud"
	cfg.Analysis.ReasoningDepth = "deep"
	cfg.Audio.FrameSize = -1
	cfg.Gemini.AnalysisModel = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"log_level", "reasoning_depth", "frame_size", "analysis_model"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestApply_ReturnsFreshConfig(t *testing.T) {
	t.Parallel()

	orig := Default()
	depth := DepthConcise
	lang := "Spanish"
	enabled := true

	next, err := Apply(orig, Change{
		ReasoningDepth:  &depth,
		ReportLanguage:  &lang,
		TrainingEnabled: &enabled,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if next.Analysis.ReasoningDepth != DepthConcise || next.Analysis.ReportLanguage != "Spanish" || !next.Training.Enabled {
		t.Errorf("change not applied: %+v", next.Analysis)
	}
	if orig.Analysis.ReasoningDepth != DepthDetailed || orig.Analysis.ReportLanguage != "" || orig.Training.Enabled {
		t.Errorf("input mutated: %+v", orig.Analysis)
	}
}

func TestApply_InvalidChangeLeavesConfigUntouched(t *testing.T) {
	t.Parallel()

	orig := Default()
	bad := LogLevel("loud")

	got, err := Apply(orig, Change{LogLevel: &bad})
	if err == nil {
		t.Fatal("invalid log level must be rejected")
	}
	if got != orig {
		t.Errorf("rejected change must return the input unchanged")
	}

	empty := ""
	if _, err := Apply(orig, Change{Voice: &empty}); err == nil {
		t.Error("empty voice must be rejected")
	}
}

func TestApply_NilChangeIsIdentity(t *testing.T) {
	t.Parallel()

	orig := Default()
	got, err := Apply(orig, Change{})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got != orig {
		t.Errorf("empty change must be identity")
	}
}
