package config

import (
	"fmt"
	"os"
	"strings"
)

// DefaultPrompt is used when a profile has no readable prompt file.
const DefaultPrompt = "Please summarize the following chat transcript in concise bullet points, " +
	"grouped by topic, keeping who said what clear. Skip greetings and small talk."

// LoadPrompt reads the prompt template at path. A missing or unreadable file
// falls back to DefaultPrompt with a non-nil error so callers can warn.
func LoadPrompt(path string) (string, error) {
	if path == "" {
		return DefaultPrompt, fmt.Errorf("no prompt file configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultPrompt, fmt.Errorf("cannot read prompt file %s: %w", path, err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return DefaultPrompt, fmt.Errorf("prompt file %s is empty", path)
	}
	return prompt, nil
}
