package manifest

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/adamancini/nudge/internal/types"
)

// DetectFormat determines the document format based on extension or content.
func DetectFormat(path string, content []byte) types.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return types.FormatYAML
	case ".toml":
		return types.FormatTOML
	case ".json":
		return types.FormatJSON
	}

	// Content sniffing for extensionless files
	return SniffFormat(content)
}

// SniffFormat guesses the format from content alone.
func SniffFormat(content []byte) types.Format {
	trimmed := strings.TrimSpace(string(content))

	if strings.HasPrefix(trimmed, "{") {
		return types.FormatJSON
	}

	// TOML uses [tables] and key = value; YAML uses key: value.
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") || strings.Contains(line, " = ") {
			return types.FormatTOML
		}
		if strings.Contains(line, ":") {
			return types.FormatYAML
		}
	}

	return types.FormatUnknown
}

// Decode unmarshals content in the given format into v.
func Decode(content []byte, format types.Format, v any) error {
	switch format {
	case types.FormatYAML:
		if err := yaml.Unmarshal(content, v); err != nil {
			return fmt.Errorf("YAML parse error: %w", err)
		}
	case types.FormatTOML:
		if err := toml.Unmarshal(content, v); err != nil {
			return fmt.Errorf("TOML parse error: %w", err)
		}
	case types.FormatJSON:
		if err := json.Unmarshal(content, v); err != nil {
			return fmt.Errorf("JSON parse error: %w", err)
		}
	default:
		return fmt.Errorf("unknown file format")
	}
	return nil
}

// Encode marshals v in the given format.
func Encode(v any, format types.Format) ([]byte, error) {
	switch format {
	case types.FormatYAML:
		return yaml.Marshal(v)
	case types.FormatTOML:
		return toml.Marshal(v)
	case types.FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unknown file format")
	}
}
