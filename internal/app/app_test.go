package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/openpheno/phenograph/internal/analysis"
	"github.com/openpheno/phenograph/internal/config"
	"github.com/openpheno/phenograph/internal/history"
)

type stubAnalyzer struct {
	gotInput analysis.Input
	gotOpts  analysis.Options
	report   analysis.Report
	err      error
}

func (s *stubAnalyzer) Analyze(_ context.Context, in analysis.Input, opts analysis.Options) (analysis.Report, error) {
	s.gotInput = in
	s.gotOpts = opts
	return s.report, s.err
}

func newTestApp(t *testing.T, stub *stubAnalyzer, mutate func(*config.Config), opts ...Option) (*App, *history.Store) {
	t.Helper()

	cfg := config.Default()
	cfg.Server.MetricsAddr = ""
	cfg.History.Dir = t.TempDir()
	cfg.Analysis.CustomInstruction = "focus on pediatric presentations"
	if mutate != nil {
		mutate(&cfg)
	}

	store, err := history.NewStore(cfg.History.Dir, 0)
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	opts = append([]Option{WithAnalyzer(stub), WithStore(store)}, opts...)
	a, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a, store
}

func TestAnalyze_MergesAndSaves(t *testing.T) {
	t.Parallel()

	stub := &stubAnalyzer{report: analysis.Report{
		PatientSummary: "Findings consistent with hypotonia.",
		ExtractedTraits: analysis.Of([]analysis.TraitCandidate{
			{Term: "Hypotonia", Code: "HP:0001252", Probability: 0.8},
		}),
	}}
	a, store := newTestApp(t, stub, nil)

	in := analysis.Input{Patient: analysis.Patient{Note: "infant, floppy posture on video"}}
	report, merged, err := a.Analyze(context.Background(), in)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if report.PatientSummary != "Findings consistent with hypotonia." {
		t.Errorf("summary = %q", report.PatientSummary)
	}
	if len(merged.TraitCandidates) != 1 || merged.TraitCandidates[0].Code != "HP:0001252" {
		t.Errorf("extracted traits not merged: %+v", merged.TraitCandidates)
	}

	records, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if len(records[0].Input.TraitCandidates) != 1 {
		t.Error("saved record must carry the merged input")
	}

	if stub.gotOpts.CustomInstruction != "focus on pediatric presentations" {
		t.Errorf("custom instruction not forwarded: %q", stub.gotOpts.CustomInstruction)
	}
}

func TestAnalyze_ForwardsHistoryAndKnowledge(t *testing.T) {
	t.Parallel()

	stub := &stubAnalyzer{report: analysis.Report{PatientSummary: "second pass"}}
	a, store := newTestApp(t, stub, nil)

	seed := analysis.Input{Patient: analysis.Patient{Note: "first visit"}}
	if _, err := store.Save(seed, analysis.Report{PatientSummary: "baseline"}); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	if err := history.SaveKnowledge(a.cfg.History.Dir, history.Knowledge{
		UpdatedAt: time.Now(),
		Entries:   []string{"- New hypotonia guideline."},
	}); err != nil {
		t.Fatalf("seed knowledge: %v", err)
	}

	followUp := analysis.Input{Patient: analysis.Patient{Note: "follow-up"}}
	if _, _, err := a.Analyze(context.Background(), followUp); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(stub.gotOpts.History) != 1 || stub.gotOpts.History[0].Output.PatientSummary != "baseline" {
		t.Errorf("history context not forwarded: %+v", stub.gotOpts.History)
	}
	if len(stub.gotOpts.LearnedKnowledge) != 1 {
		t.Errorf("learned knowledge not forwarded: %v", stub.gotOpts.LearnedKnowledge)
	}
}

func TestAnalyze_ErrorSavesNothing(t *testing.T) {
	t.Parallel()

	stub := &stubAnalyzer{err: errors.New("model unavailable")}
	a, store := newTestApp(t, stub, nil)

	in := analysis.Input{Patient: analysis.Patient{Note: "note"}}
	_, merged, err := a.Analyze(context.Background(), in)
	if err == nil {
		t.Fatal("expected error")
	}
	if merged.Patient.Note != in.Patient.Note || merged.TraitCandidates != nil {
		t.Errorf("failed analyze must return the input unchanged: %+v", merged)
	}

	records, _ := store.List()
	if len(records) != 0 {
		t.Errorf("failed analyze must not persist a record: %d", len(records))
	}
}

func TestAnalyze_RetentionDisabledSkipsSave(t *testing.T) {
	t.Parallel()

	stub := &stubAnalyzer{report: analysis.Report{PatientSummary: "not archived"}}
	a, store := newTestApp(t, stub, func(cfg *config.Config) {
		cfg.History.Retain = false
	})

	in := analysis.Input{Patient: analysis.Patient{Note: "note"}}
	report, _, err := a.Analyze(context.Background(), in)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if report.PatientSummary != "not archived" {
		t.Errorf("summary = %q", report.PatientSummary)
	}

	records, _ := store.List()
	if len(records) != 0 {
		t.Errorf("retention off must not persist a record: %d", len(records))
	}
}

func TestAnalyze_DefaultsReportLanguageFromConfig(t *testing.T) {
	t.Parallel()

	stub := &stubAnalyzer{}
	a, _ := newTestApp(t, stub, func(cfg *config.Config) {
		cfg.Analysis.ReportLanguage = "Spanish"
	})

	if _, _, err := a.Analyze(context.Background(), analysis.Input{}); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if stub.gotInput.ReportLanguage != "Spanish" {
		t.Errorf("configured language not applied: %q", stub.gotInput.ReportLanguage)
	}

	// An explicit input language wins over the configured default.
	in := analysis.Input{ReportLanguage: "French"}
	if _, _, err := a.Analyze(context.Background(), in); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if stub.gotInput.ReportLanguage != "French" {
		t.Errorf("explicit language overridden: %q", stub.gotInput.ReportLanguage)
	}
}

type stubChat struct {
	gotReport   analysis.Report
	gotQuestion string
	gotQuery    string
	reply       string
}

func (s *stubChat) ChatAboutReport(_ context.Context, report analysis.Report, question string) (string, error) {
	s.gotReport = report
	s.gotQuestion = question
	return s.reply, nil
}

func (s *stubChat) AskHelpCenter(_ context.Context, query string) (string, error) {
	s.gotQuery = query
	return s.reply, nil
}

func TestChatLatest_UsesNewestReport(t *testing.T) {
	t.Parallel()

	chat := &stubChat{reply: "the tremor finding is the key signal"}
	a, store := newTestApp(t, &stubAnalyzer{}, nil, WithChat(chat))

	if _, err := store.Save(analysis.Input{}, analysis.Report{PatientSummary: "older"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.Save(analysis.Input{}, analysis.Report{PatientSummary: "newest"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	reply, err := a.ChatLatest(context.Background(), "what matters most?")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply != chat.reply {
		t.Errorf("reply = %q", reply)
	}
	if chat.gotReport.PatientSummary != "newest" {
		t.Errorf("chat must use the newest report, got %q", chat.gotReport.PatientSummary)
	}
	if chat.gotQuestion != "what matters most?" {
		t.Errorf("question = %q", chat.gotQuestion)
	}
}

func TestChatLatest_WithoutHistoryFails(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, &stubAnalyzer{}, nil, WithChat(&stubChat{}))
	if _, err := a.ChatLatest(context.Background(), "anything"); err == nil {
		t.Fatal("chat without a stored report must fail")
	}
}

func TestHelpCenter_ForwardsQuery(t *testing.T) {
	t.Parallel()

	chat := &stubChat{reply: "use the analyze command"}
	a, _ := newTestApp(t, &stubAnalyzer{}, nil, WithChat(chat))

	reply, err := a.HelpCenter(context.Background(), "how do I run a screening?")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	if reply != chat.reply || chat.gotQuery != "how do I run a screening?" {
		t.Errorf("reply %q, query %q", reply, chat.gotQuery)
	}
}

func TestFirstRun_MarksOnboardingDone(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, &stubAnalyzer{}, nil)

	if !a.FirstRun() {
		t.Fatal("first launch must report true")
	}
	if a.FirstRun() {
		t.Error("second launch must report false")
	}

	flags, err := history.LoadFlags(a.cfg.History.Dir)
	if err != nil {
		t.Fatalf("flags: %v", err)
	}
	if !flags.OnboardingDone {
		t.Error("onboarding flag not persisted")
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, &stubAnalyzer{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("run error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
