package gemini_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openpheno/phenograph/internal/gemini"
)

// startServer launches a mock generateContent endpoint and returns a client
// pointed at it.
func startServer(t *testing.T, handler http.HandlerFunc) *gemini.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return gemini.New("test-key", gemini.WithBaseURL(srv.URL))
}

func TestGenerateContent_RoundTrip(t *testing.T) {
	t.Parallel()

	var gotReq gemini.GenerateRequest
	client := startServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key in query: %s", r.URL.RawQuery)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(gemini.GenerateResponse{
			Candidates: []gemini.Candidate{{
				Content: &gemini.Content{Parts: []gemini.Part{{Text: "hello "}, {Text: "world"}}},
				GroundingMetadata: &gemini.GroundingMetadata{
					GroundingChunks: []gemini.GroundingChunk{
						{Web: &gemini.WebSource{URI: "https://example.org", Title: "Example"}},
						{}, // non-web chunk is skipped
					},
				},
			}},
		})
	})

	req := gemini.GenerateRequest{
		Contents:          []gemini.Content{gemini.TextContent("hi")},
		SystemInstruction: gemini.SystemInstruction("be brief"),
		Tools:             []gemini.Tool{{GoogleSearch: &gemini.GoogleSearch{}}},
		GenerationConfig:  &gemini.GenerationConfig{Temperature: gemini.Temp(0.2)},
	}
	resp, err := client.GenerateContent(context.Background(), req)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if got := resp.Text(); got != "hello world" {
		t.Errorf("text: got %q", got)
	}
	sources := resp.WebSources()
	if len(sources) != 1 || sources[0].URI != "https://example.org" {
		t.Errorf("web sources: got %+v", sources)
	}
	if gotReq.SystemInstruction == nil || gotReq.SystemInstruction.Parts[0].Text != "be brief" {
		t.Errorf("system instruction not sent: %+v", gotReq.SystemInstruction)
	}
	if len(gotReq.Tools) != 1 || gotReq.Tools[0].GoogleSearch == nil {
		t.Errorf("googleSearch tool not sent: %+v", gotReq.Tools)
	}
}

func TestGenerateContent_QuotaError(t *testing.T) {
	t.Parallel()

	client := startServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`))
	})

	_, err := client.GenerateContent(context.Background(), gemini.GenerateRequest{})
	if !gemini.IsQuota(err) {
		t.Fatalf("expected quota error, got %v", err)
	}
}

func TestGenerateContent_StatusError(t *testing.T) {
	t.Parallel()

	client := startServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad instruction","status":"INVALID_ARGUMENT"}}`))
	})

	_, err := client.GenerateContent(context.Background(), gemini.GenerateRequest{})
	var se *gemini.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected status error, got %v", err)
	}
	if se.Code != 400 || se.Status != "INVALID_ARGUMENT" {
		t.Errorf("status error fields: %+v", se)
	}
	if gemini.IsQuota(err) {
		t.Error("400 must not classify as quota")
	}
}

func TestResponseText_Empty(t *testing.T) {
	t.Parallel()

	var r *gemini.GenerateResponse
	if got := r.Text(); got != "" {
		t.Errorf("nil response text: got %q", got)
	}
	if got := (&gemini.GenerateResponse{}).Text(); got != "" {
		t.Errorf("empty response text: got %q", got)
	}
}
