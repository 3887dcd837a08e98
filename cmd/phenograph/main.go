// Command phenograph runs the PhenoGraph screening tools: a realtime
// coaching session over microphone audio, or a one-shot multimodal analysis
// of recorded media and clinical notes.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/openpheno/phenograph/internal/analysis"
	"github.com/openpheno/phenograph/internal/app"
	"github.com/openpheno/phenograph/internal/config"
	"github.com/openpheno/phenograph/internal/live"
	"github.com/openpheno/phenograph/internal/observe"
)

func main() {
	os.Exit(run())
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: phenograph [flags] <command> [command flags]

Commands:
  live      start a realtime screening session (Ctrl+C to stop)
  analyze   run a one-shot analysis of notes and media files
  chat      discuss the most recent report with the model
  ask       ask the help desk a usage question

Flags:
`)
	flag.PrintDefaults()
}

func run() int {
	// .env is optional; explicit environment always wins.
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	logLevel := flag.String("log-level", "", "override the configured log level")
	depth := flag.String("depth", "", "override the reasoning depth (concise or detailed)")
	flag.Usage = usage
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "phenograph: %v\n", err)
		return 1
	}

	// Flag overrides go through the config reducer so an invalid value is
	// rejected without touching the loaded configuration.
	var change config.Change
	if *logLevel != "" {
		l := config.LogLevel(*logLevel)
		change.LogLevel = &l
	}
	if *depth != "" {
		d := config.ReasoningDepth(*depth)
		change.ReasoningDepth = &d
	}
	cfg, err = config.Apply(cfg, change)
	if err != nil {
		fmt.Fprintf(os.Stderr, "phenograph: %v\n", err)
		return 1
	}
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Gemini.APIKey == "" {
		fmt.Fprintln(os.Stderr, "phenograph: no API key — set GEMINI_API_KEY or gemini.api_key")
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOtel, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "phenograph"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	application, err := app.New(cfg, logger)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	switch flag.Arg(0) {
	case "live":
		return runLive(ctx, application)
	case "analyze":
		return runAnalyze(ctx, application, flag.Args()[1:])
	case "chat":
		return runChat(ctx, application, flag.Args()[1:])
	case "ask":
		return runAsk(ctx, application, flag.Args()[1:])
	case "":
		usage()
		return 2
	default:
		fmt.Fprintf(os.Stderr, "phenograph: unknown command %q\n", flag.Arg(0))
		usage()
		return 2
	}
}

// loadConfig reads the config file, falling back to the built-in defaults
// when the default path does not exist.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

// runLive starts a realtime session and blocks until the signal context is
// cancelled. Background jobs (metrics listener, self-training) run
// alongside.
func runLive(ctx context.Context, application *app.App) int {
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	if application.FirstRun() {
		slog.Info("welcome to PhenoGraph: a screening aid, not a diagnostic device; consult a clinician for medical decisions")
	}

	if err := application.Sessions().Start(ctx, live.Config{}); err != nil {
		slog.Error("failed to start live session", "err", err)
		return 1
	}
	slog.Info("live session running — press Ctrl+C to stop")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}

	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// fileList collects repeated -file flags.
type fileList []string

func (f *fileList) String() string     { return strings.Join(*f, ",") }
func (f *fileList) Set(v string) error { *f = append(*f, v); return nil }

// runAnalyze performs one screening call and prints the report as JSON.
func runAnalyze(ctx context.Context, application *app.App, args []string) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	note := fs.String("note", "", "free-text clinical note")
	age := fs.Int("age", 0, "patient age")
	ageUnit := fs.String("age-unit", "years", "age unit (years, months)")
	sex := fs.String("sex", "", "patient sex")
	lang := fs.String("lang", "", "report language (empty for English)")
	var files fileList
	fs.Var(&files, "file", "media or document attachment (repeatable)")
	var urls fileList
	fs.Var(&urls, "url", "external media URL (repeatable)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	in := analysis.Input{
		Patient: analysis.Patient{
			Age:     *age,
			AgeUnit: *ageUnit,
			Sex:     *sex,
			Note:    *note,
		},
		SpeechFeatures: analysis.CleanSpeechFeatures,
		SourceURLs:     urls,
		ReportLanguage: *lang,
	}

	for _, path := range files {
		att, err := loadAttachment(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "phenograph: %v\n", err)
			return 1
		}
		in.Attachments = append(in.Attachments, att)
	}

	slog.Info("running analysis", "attachments", len(in.Attachments), "urls", len(in.SourceURLs))
	report, _, err := application.Analyze(ctx, in)
	if err != nil {
		slog.Error("analysis failed", "err", err)
		return 1
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		slog.Error("encode report", "err", err)
		return 1
	}
	fmt.Println(string(out))
	return 0
}

// runChat answers a free-form question about the most recent stored report.
func runChat(ctx context.Context, application *app.App, args []string) int {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		fmt.Fprintln(os.Stderr, "usage: phenograph chat <question about the latest report>")
		return 2
	}
	reply, err := application.ChatLatest(ctx, question)
	if err != nil {
		slog.Error("chat failed", "err", err)
		return 1
	}
	fmt.Println(reply)
	return 0
}

// runAsk answers a usage question about the application itself.
func runAsk(ctx context.Context, application *app.App, args []string) int {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		fmt.Fprintln(os.Stderr, "usage: phenograph ask <usage question>")
		return 2
	}
	reply, err := application.HelpCenter(ctx, query)
	if err != nil {
		slog.Error("help desk query failed", "err", err)
		return 1
	}
	fmt.Println(reply)
	return 0
}

// loadAttachment reads a file and infers its MIME type from the extension.
func loadAttachment(path string) (analysis.Attachment, error) {
	mimeType, err := analysis.InferMIMEType(path)
	if err != nil {
		return analysis.Attachment{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return analysis.Attachment{}, fmt.Errorf("read attachment: %w", err)
	}
	return analysis.Attachment{
		Name:     filepath.Base(path),
		MIMEType: mimeType,
		Data:     data,
	}, nil
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
