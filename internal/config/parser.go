package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/joho/godotenv"

	"github.com/adamancini/nudge/internal/manifest"
	"github.com/adamancini/nudge/internal/types"
)

// detectFormat determines the file format based on extension or content.
func detectFormat(path string, content []byte) types.Format {
	return manifest.DetectFormat(path, content)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns in content.
func expandEnvVars(content []byte) []byte {
	result := envVarPattern.ReplaceAllFunc(content, func(match []byte) []byte {
		parts := envVarPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := string(parts[1])
		value := os.Getenv(varName)

		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			// Use default value
			value = string(parts[2])
		}

		return []byte(value)
	})

	return result
}

// loadDotEnv loads dir/.env into the environment without overriding
// variables that are already set. A missing file is not an error.
func loadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// parse parses the content according to the specified format.
func parse(content []byte, format types.Format) (*Nudgefile, error) {
	// Expand environment variables first
	content = expandEnvVars(content)

	var nudgefile Nudgefile
	if err := manifest.Decode(content, format, &nudgefile); err != nil {
		return nil, err
	}

	nudgefile.applyDefaults()
	return &nudgefile, nil
}

// Parse parses Nudgefile content without reading a file. It is used for
// templates and tests.
func Parse(content []byte, format types.Format) (*Nudgefile, error) {
	nudgefile, err := parse(content, format)
	if err != nil {
		return nil, err
	}
	if err := Validate(nudgefile); err != nil {
		return nil, err
	}
	return nudgefile, nil
}
