// Package app wires the PhenoGraph subsystems into a running application.
//
// The App struct owns the shared lifetime: New connects the inference client,
// analyzer, history store, and self-training job; Run serves the optional
// metrics/health listener and background jobs until the context is cancelled.
// Live screening sessions are driven through the [SessionManager].
//
// For testing, inject mock implementations via functional options
// (WithAnalyzer, WithStore, etc.). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/openpheno/phenograph/internal/analysis"
	"github.com/openpheno/phenograph/internal/config"
	"github.com/openpheno/phenograph/internal/gemini"
	"github.com/openpheno/phenograph/internal/history"
	"github.com/openpheno/phenograph/internal/observe"
	"github.com/openpheno/phenograph/internal/trainer"
)

// ReportAnalyzer runs one screening call. *analysis.Analyzer satisfies this.
type ReportAnalyzer interface {
	Analyze(ctx context.Context, in analysis.Input, opts analysis.Options) (analysis.Report, error)
}

// Conversationalist answers free-form questions about a report or about the
// application itself. *analysis.Analyzer satisfies this.
type Conversationalist interface {
	ChatAboutReport(ctx context.Context, report analysis.Report, question string) (string, error)
	AskHelpCenter(ctx context.Context, query string) (string, error)
}

// App owns the shared subsystems of one PhenoGraph process.
type App struct {
	cfg     config.Config
	log     *slog.Logger
	metrics *observe.Metrics

	analyzer ReportAnalyzer
	chat     Conversationalist
	store    *history.Store
	trainer  *trainer.Trainer
	sessions *SessionManager
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithAnalyzer injects an analyzer instead of creating one from config.
func WithAnalyzer(a ReportAnalyzer) Option {
	return func(app *App) { app.analyzer = a }
}

// WithChat injects a conversational backend instead of the real analyzer.
func WithChat(c Conversationalist) Option {
	return func(app *App) { app.chat = c }
}

// WithStore injects a history store instead of creating one from config.
func WithStore(s *history.Store) Option {
	return func(app *App) { app.store = s }
}

// WithMetrics injects a metrics instance instead of the process default.
func WithMetrics(m *observe.Metrics) Option {
	return func(app *App) { app.metrics = m }
}

// WithSessionManager injects a session manager instead of creating one from
// config.
func WithSessionManager(sm *SessionManager) Option {
	return func(app *App) { app.sessions = sm }
}

// New creates an App by wiring the subsystems together. Use Option functions
// to inject test doubles for any subsystem.
func New(cfg config.Config, log *slog.Logger, opts ...Option) (*App, error) {
	a := &App{cfg: cfg, log: log}
	for _, o := range opts {
		o(a)
	}

	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	client := newGeminiClient(cfg)

	if a.analyzer == nil || a.chat == nil {
		an := analysis.NewAnalyzer(client, log)
		if a.analyzer == nil {
			a.analyzer = an
		}
		if a.chat == nil {
			a.chat = an
		}
	}

	if a.store == nil {
		store, err := history.NewStore(cfg.History.Dir, cfg.History.Limit)
		if err != nil {
			return nil, fmt.Errorf("app: init history: %w", err)
		}
		a.store = store
	}

	if cfg.Training.Enabled {
		a.trainer = trainer.New(client, cfg.History.Dir, log)
	}

	if a.sessions == nil {
		a.sessions = NewSessionManager(cfg, log, a.metrics)
	}

	return a, nil
}

// newGeminiClient builds the REST client from config.
func newGeminiClient(cfg config.Config) *gemini.Client {
	opts := []gemini.Option{gemini.WithModel(cfg.Gemini.AnalysisModel)}
	if cfg.Gemini.BaseURL != "" {
		opts = append(opts, gemini.WithBaseURL(cfg.Gemini.BaseURL))
	}
	return gemini.New(cfg.Gemini.APIKey, opts...)
}

// Sessions returns the live session manager.
func (a *App) Sessions() *SessionManager {
	return a.sessions
}

// History returns the local record store.
func (a *App) History() *history.Store {
	return a.store
}

// Analyze runs one screening pass: assemble progression context and learned
// knowledge, invoke the analyzer, merge extracted fields back into the input,
// and persist the result. It returns the report together with the merged
// input so follow-up runs start from the enriched baseline.
func (a *App) Analyze(ctx context.Context, in analysis.Input) (analysis.Report, analysis.Input, error) {
	if in.ReportLanguage == "" {
		in.ReportLanguage = a.cfg.Analysis.ReportLanguage
	}

	histCtx, err := a.store.Context(history.DefaultLimit)
	if err != nil {
		a.log.Warn("app: history context unavailable", "error", err)
	}

	knowledge, err := history.LoadKnowledge(a.cfg.History.Dir)
	if err != nil {
		a.log.Warn("app: learned knowledge unavailable", "error", err)
	}

	opts := analysis.Options{
		ReasoningDepth:    string(a.cfg.Analysis.ReasoningDepth),
		CustomInstruction: a.cfg.Analysis.CustomInstruction,
		LearnedKnowledge:  knowledge.Entries,
		History:           histCtx,
	}

	start := time.Now()
	report, err := a.analyzer.Analyze(ctx, in, opts)
	a.metrics.AnalysisDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		a.metrics.RecordModelError(ctx, a.cfg.Gemini.AnalysisModel, "analysis")
		a.metrics.RecordModelRequest(ctx, a.cfg.Gemini.AnalysisModel, "analysis", "error")
		return analysis.Report{}, in, err
	}
	a.metrics.RecordModelRequest(ctx, a.cfg.Gemini.AnalysisModel, "analysis", "ok")

	merged := analysis.MergeExtracted(in, report)

	if a.cfg.History.Retain {
		if _, err := a.store.Save(merged, report); err != nil {
			a.log.Warn("app: save record failed", "error", err)
		}
	} else {
		a.log.Debug("app: retention disabled, result not archived")
	}

	return report, merged, nil
}

// ChatLatest answers a free-form question about the most recent stored
// report.
func (a *App) ChatLatest(ctx context.Context, question string) (string, error) {
	records, err := a.store.List()
	if err != nil {
		return "", fmt.Errorf("app: load history: %w", err)
	}
	if len(records) == 0 {
		return "", fmt.Errorf("app: no stored report to discuss")
	}
	return a.chat.ChatAboutReport(ctx, records[0].Output, question)
}

// HelpCenter answers a usage question about the application.
func (a *App) HelpCenter(ctx context.Context, query string) (string, error) {
	return a.chat.AskHelpCenter(ctx, query)
}

// FirstRun reports whether this launch is the first on this state directory
// and records the walkthrough as completed.
func (a *App) FirstRun() bool {
	flags, err := history.LoadFlags(a.cfg.History.Dir)
	if err != nil {
		a.log.Warn("app: load flags failed", "error", err)
		return false
	}
	if flags.OnboardingDone {
		return false
	}
	flags.OnboardingDone = true
	if err := history.SaveFlags(a.cfg.History.Dir, flags); err != nil {
		a.log.Warn("app: save flags failed", "error", err)
	}
	return true
}

// Run serves the metrics/health listener and background jobs until ctx is
// cancelled. It returns the first non-context error from any component.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.trainer != nil {
		g.Go(func() error {
			a.trainer.Run(ctx)
			return nil
		})
	}

	if addr := a.cfg.Server.MetricsAddr; addr != "" {
		srv := a.newMetricsServer(addr)
		g.Go(func() error {
			a.log.Info("app: metrics listener started", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: metrics listener: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		return ctx.Err()
	})

	return g.Wait()
}

// newMetricsServer builds the /metrics and /healthz listener with the
// observability middleware attached.
func (a *App) newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(a.metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Shutdown stops any active live session.
func (a *App) Shutdown(ctx context.Context) error {
	return a.sessions.Stop(ctx)
}
