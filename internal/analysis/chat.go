package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openpheno/phenograph/internal/gemini"
)

// reportContextLimit caps the serialized report embedded into a chat prompt.
const reportContextLimit = 5000

// ChatAboutReport answers a free-form question about a finished report. The
// report JSON is embedded into the prompt, truncated to keep the context
// small; no system instruction or tools are attached.
func (a *Analyzer) ChatAboutReport(ctx context.Context, report Report, question string) (string, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("analysis: marshal report for chat: %w", err)
	}
	snippet := string(data)
	if len(snippet) > reportContextLimit {
		snippet = snippet[:reportContextLimit] + "... (truncated)"
	}

	prompt := fmt.Sprintf(`You are an expert clinical assistant discussing a phenotype report.
REPORT: %s
QUESTION: %s
Answer briefly and helpfully.`, snippet, question)

	return a.plainText(ctx, prompt)
}

// AskHelpCenter answers a usage question about the application itself.
func (a *Analyzer) AskHelpCenter(ctx context.Context, query string) (string, error) {
	prompt := fmt.Sprintf("Help Desk for PhenoGraph. User Query: %s. Explain briefly.", query)
	return a.plainText(ctx, prompt)
}

func (a *Analyzer) plainText(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.GenerateContent(ctx, gemini.GenerateRequest{
		Contents: []gemini.Content{gemini.TextContent(prompt)},
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
