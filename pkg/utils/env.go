package utils

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv loads the given .env files into the process environment and returns
// a snapshot of the whole environment. Values already present in the
// environment win over the files, and earlier files win over later ones.
// Missing files are skipped silently.
func LoadEnv(files ...string) map[string]string {
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			fmt.Fprintf(os.Stderr, "[UTILS]: could not load %s: %v\n", file, err)
		}
	}

	config := make(map[string]string)
	for _, env := range os.Environ() {
		if key, value, ok := strings.Cut(env, "="); ok && key != "" {
			config[key] = value
		}
	}

	return config
}

// EnvFile returns the .env file to load, honoring ENV_FILE
func EnvFile() string {
	if file := os.Getenv("ENV_FILE"); file != "" {
		return file
	}
	return ".env"
}
