package utils

import (
	"fmt"
	"os"
	"strings"
)

// LoadPrompt reads prompt instructions from a file, trimming surrounding
// whitespace. A missing or blank file is an error.
func LoadPrompt(filePath string) (string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt %s: %w", filePath, err)
	}

	prompt := strings.TrimSpace(string(content))
	if prompt == "" {
		return "", fmt.Errorf("prompt %s is empty", filePath)
	}

	return prompt, nil
}

// LoadPromptWithFallback loads prompt instructions from filePath, returning
// fallback when no path is configured or the file cannot be used. The error
// explains why a configured file was not used and is nil otherwise.
func LoadPromptWithFallback(filePath, fallback string) (string, error) {
	if filePath == "" {
		return fallback, nil
	}

	prompt, err := LoadPrompt(filePath)
	if err != nil {
		return fallback, err
	}
	return prompt, nil
}
