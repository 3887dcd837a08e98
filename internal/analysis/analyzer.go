package analysis

import (
	"context"
	"log/slog"
	"strings"

	"github.com/openpheno/phenograph/internal/gemini"
)

// temperature keeps the clinical output conservative.
const temperature = 0.2

// Options tune one analysis invocation.
type Options struct {
	// ReasoningDepth is "concise" or "detailed". Concise asks the model to
	// keep rationales brief.
	ReasoningDepth string

	// CustomInstruction replaces the default system instruction. A failing
	// custom instruction triggers one recovery retry with the default.
	CustomInstruction string

	// LearnedKnowledge is appended to the instruction as verified recent
	// clinical findings from the self-training job.
	LearnedKnowledge []string

	// History is passed along for progression analysis, most recent first.
	History []HistoryContext
}

// Analyzer runs one-shot screening calls against the inference service.
type Analyzer struct {
	client *gemini.Client
	log    *slog.Logger
}

// NewAnalyzer builds an Analyzer on top of an existing client.
func NewAnalyzer(client *gemini.Client, log *slog.Logger) *Analyzer {
	return &Analyzer{client: client, log: log}
}

// buildInstruction assembles the effective system instruction from the
// options.
func buildInstruction(opts Options) string {
	instruction := opts.CustomInstruction
	if instruction == "" {
		instruction = DefaultInstruction
	}
	if opts.ReasoningDepth == "concise" {
		instruction += " KEEP RATIONALE BRIEF."
	}
	if len(opts.LearnedKnowledge) > 0 {
		instruction += "\n\n*** UPDATED CLINICAL KNOWLEDGE (VERIFIED) ***\n" +
			strings.Join(opts.LearnedKnowledge, "\n") +
			"\nUse this recent knowledge to inform your analysis."
	}
	return instruction
}

// Analyze performs one screening call: assemble the multipart request, invoke
// the model with search grounding, parse the JSON reply, and attach the
// deduplicated grounding sources. When a custom instruction is configured a
// failure is retried once with the default instruction.
func (a *Analyzer) Analyze(ctx context.Context, in Input, opts Options) (Report, error) {
	content, err := BuildRequest(in, opts.History)
	if err != nil {
		return Report{}, err
	}

	call := func(ctx context.Context, instruction string) (Report, error) {
		return a.call(ctx, content, instruction)
	}

	instruction := buildInstruction(opts)
	if opts.CustomInstruction != "" {
		return WithFallback(ctx, a.log, instruction, call)
	}
	return call(ctx, instruction)
}

func (a *Analyzer) call(ctx context.Context, content gemini.Content, instruction string) (Report, error) {
	resp, err := a.client.GenerateContent(ctx, gemini.GenerateRequest{
		Contents:          []gemini.Content{content},
		SystemInstruction: gemini.SystemInstruction(instruction),
		Tools:             []gemini.Tool{{GoogleSearch: &gemini.GoogleSearch{}}},
		GenerationConfig:  &gemini.GenerationConfig{Temperature: gemini.Temp(temperature)},
	})
	if err != nil {
		return Report{}, err
	}

	report, err := ParseReport(resp.Text())
	if err != nil {
		return Report{}, err
	}
	report.WebSources = dedupeSources(resp.WebSources())
	return report, nil
}

// dedupeSources keeps the first occurrence of each URI, preserving order.
// Untitled sources get a generic label.
func dedupeSources(sources []gemini.WebSource) []WebSource {
	seen := make(map[string]struct{}, len(sources))
	var out []WebSource
	for _, s := range sources {
		if _, ok := seen[s.URI]; ok {
			continue
		}
		seen[s.URI] = struct{}{}
		title := s.Title
		if title == "" {
			title = "Web Source"
		}
		out = append(out, WebSource{Title: title, URI: s.URI})
	}
	return out
}
