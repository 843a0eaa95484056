package rubric

import (
	"encoding/json"
	"fmt"
	"strings"

	_ "embed"

	"github.com/spigell/hirelytics/internal/ai"
)

//go:embed prompt.md
var systemTemplate string

const fallbackSystem = "You are an expert HR analyst. Score each candidate 0-100 and return JSON with one entry per candidate."

// SystemInstruction describes the scoring rubric for generative providers.
func SystemInstruction() string {
	if s := strings.TrimSpace(systemTemplate); s != "" {
		return s
	}
	return fallbackSystem
}

// UserMessage serializes the candidate batch.
func UserMessage(candidates []ai.Candidate) (string, error) {
	if len(candidates) == 0 {
		return "", fmt.Errorf("candidate batch must not be empty")
	}

	payload, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal candidate batch: %w", err)
	}

	return fmt.Sprintf("Analyze these %d candidates:\n%s", len(candidates), payload), nil
}

// Prompt joins the rubric and the batch into a single prompt string.
func Prompt(candidates []ai.Candidate) (string, error) {
	msg, err := UserMessage(candidates)
	if err != nil {
		return "", err
	}
	return SystemInstruction() + "\n\n" + msg + "\n\nJSON Response:", nil
}
