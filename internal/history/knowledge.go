package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const knowledgeFile = "knowledge.json"

// maxKnowledgeEntries bounds the learned-knowledge list injected into
// analysis instructions.
const maxKnowledgeEntries = 6

// Knowledge is the self-training state: the learned findings plus the
// timestamps the trainer uses to pace itself.
type Knowledge struct {
	// UpdatedAt is when the last successful training run finished.
	UpdatedAt time.Time `json:"updatedAt"`

	// FailureAt is when the last quota failure occurred. The trainer backs
	// off for a cooldown window after it.
	FailureAt time.Time `json:"failureAt"`

	// Entries are the verified findings, newest first.
	Entries []string `json:"entries"`
}

// Add prepends entries and trims the list to its cap.
func (k *Knowledge) Add(entries ...string) {
	k.Entries = append(entries, k.Entries...)
	if len(k.Entries) > maxKnowledgeEntries {
		k.Entries = k.Entries[:maxKnowledgeEntries]
	}
}

// LoadKnowledge reads the training state from dir. A missing file yields the
// zero state.
func LoadKnowledge(dir string) (Knowledge, error) {
	data, err := os.ReadFile(filepath.Join(dir, knowledgeFile))
	if errors.Is(err, fs.ErrNotExist) {
		return Knowledge{}, nil
	}
	if err != nil {
		return Knowledge{}, fmt.Errorf("history: read knowledge: %w", err)
	}

	var k Knowledge
	if err := json.Unmarshal(data, &k); err != nil {
		return Knowledge{}, fmt.Errorf("history: decode knowledge: %w", err)
	}
	return k, nil
}

// SaveKnowledge writes the training state to dir, creating it if needed.
func SaveKnowledge(dir string, k Knowledge) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("history: create dir: %w", err)
	}
	data, err := json.MarshalIndent(k, "", "  ")
	if err != nil {
		return fmt.Errorf("history: encode knowledge: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, knowledgeFile), data, 0o644); err != nil {
		return fmt.Errorf("history: write knowledge: %w", err)
	}
	return nil
}
