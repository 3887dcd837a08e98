// Package trainer runs the background self-training job: a periodic
// search-grounded query for verified recent clinical findings, folded into
// the learned-knowledge list that analysis instructions carry.
package trainer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/openpheno/phenograph/internal/gemini"
	"github.com/openpheno/phenograph/internal/history"
)

const (
	// updateInterval is the minimum spacing between successful runs.
	updateInterval = 24 * time.Hour

	// quotaCooldown suppresses retries after a rate-limited run.
	quotaCooldown = time.Hour

	// checkInterval is how often the pacing conditions are re-evaluated.
	checkInterval = 15 * time.Minute
)

// noUpdates is the model's agreed-upon reply when nothing significant was
// found; it is not stored.
const noUpdates = "No significant updates."

const trainingPrompt = `Use Google Search to find significant, verified medical updates, new guidelines, or newly discovered phenotypes in Neurology or Psychiatry from the last 24-48 hours.
Verify that the sources are reputable (e.g., PubMed, major medical journals, CDC, WHO).
Summarize any *confirmed* new findings in 2-3 bullet points. If nothing significant, say "No significant updates."`

// Generator issues one generateContent call. *gemini.Client satisfies this.
type Generator interface {
	GenerateContent(ctx context.Context, req gemini.GenerateRequest) (*gemini.GenerateResponse, error)
}

// Option is a functional option for configuring a Trainer.
type Option func(*Trainer)

// WithQuotaBackoffHook registers a callback invoked when a run is deferred
// by rate limiting, used to feed the quota backoff counter.
func WithQuotaBackoffHook(fn func()) Option {
	return func(t *Trainer) { t.onQuota = fn }
}

// Trainer paces and runs the self-training job against a knowledge
// directory.
type Trainer struct {
	client  Generator
	dir     string
	log     *slog.Logger
	now     func() time.Time
	onQuota func()
}

// New creates a Trainer storing learned knowledge under dir.
func New(client Generator, dir string, log *slog.Logger, opts ...Option) *Trainer {
	t := &Trainer{client: client, dir: dir, log: log, now: time.Now}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Run re-evaluates the pacing conditions periodically until ctx is
// cancelled, training at most once per update interval.
func (t *Trainer) Run(ctx context.Context) {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	// One immediate check so a long-stopped installation catches up at
	// startup instead of waiting a tick.
	t.check(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.check(ctx)
		}
	}
}

// check runs one training pass if the knowledge is stale and no quota
// cooldown is active.
func (t *Trainer) check(ctx context.Context) {
	k, err := history.LoadKnowledge(t.dir)
	if err != nil {
		t.log.Warn("trainer: load knowledge failed", "error", err)
		return
	}

	now := t.now()
	if now.Sub(k.FailureAt) < quotaCooldown {
		return
	}
	if now.Sub(k.UpdatedAt) < updateInterval {
		return
	}

	t.log.Info("trainer: running self-training")
	finding, err := t.train(ctx)
	if err != nil {
		if gemini.IsQuota(err) {
			t.log.Warn("trainer: paused on quota, will retry after cooldown")
			if t.onQuota != nil {
				t.onQuota()
			}
			k.FailureAt = now
			if saveErr := history.SaveKnowledge(t.dir, k); saveErr != nil {
				t.log.Warn("trainer: save cooldown failed", "error", saveErr)
			}
			return
		}
		t.log.Error("trainer: self-training failed", "error", err)
		return
	}

	k.UpdatedAt = now
	k.FailureAt = time.Time{}
	if finding != "" {
		k.Add(finding)
	}
	if err := history.SaveKnowledge(t.dir, k); err != nil {
		t.log.Warn("trainer: save knowledge failed", "error", err)
		return
	}
	t.log.Info("trainer: knowledge updated", "entries", len(k.Entries))
}

// train issues the search-grounded query and normalises the reply. An
// explicit "no updates" reply yields an empty finding.
func (t *Trainer) train(ctx context.Context) (string, error) {
	resp, err := t.client.GenerateContent(ctx, gemini.GenerateRequest{
		Contents: []gemini.Content{gemini.TextContent(trainingPrompt)},
		Tools:    []gemini.Tool{{GoogleSearch: &gemini.GoogleSearch{}}},
	})
	if err != nil {
		return "", err
	}

	finding := strings.TrimSpace(resp.Text())
	if finding == "" || strings.Contains(finding, noUpdates) {
		return "", nil
	}
	return finding, nil
}
