package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const flagsFile = "flags.json"

// Flags holds small persistent application toggles.
type Flags struct {
	// OnboardingDone records that the first-run walkthrough was completed.
	OnboardingDone bool `json:"onboardingDone"`
}

// LoadFlags reads the flags from dir. A missing file yields zero flags.
func LoadFlags(dir string) (Flags, error) {
	data, err := os.ReadFile(filepath.Join(dir, flagsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return Flags{}, nil
	}
	if err != nil {
		return Flags{}, fmt.Errorf("history: read flags: %w", err)
	}

	var f Flags
	if err := json.Unmarshal(data, &f); err != nil {
		return Flags{}, fmt.Errorf("history: decode flags: %w", err)
	}
	return f, nil
}

// SaveFlags writes the flags to dir, creating it if needed.
func SaveFlags(dir string, f Flags) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("history: create dir: %w", err)
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("history: encode flags: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, flagsFile), data, 0o644); err != nil {
		return fmt.Errorf("history: write flags: %w", err)
	}
	return nil
}
