package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/upb/intent-chatbot/services"
	"gopkg.in/yaml.v3"
)

// rawRecord distinguishes absent fields from empty ones while decoding.
type rawRecord struct {
	Intent   *string  `json:"intent" yaml:"intent"`
	Examples []string `json:"examples" yaml:"examples"`
	Response *string  `json:"response" yaml:"response"`
}

// Load reads the dataset at path and returns its records in file order.
// Files ending in .yaml or .yml are decoded as YAML, everything else as JSON.
func Load(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}
	return Parse(data, formatFor(path))
}

// Format identifies the dataset encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func formatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse decodes a dataset held in memory
func Parse(data []byte, format Format) ([]Record, error) {
	var raw []rawRecord

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, services.NewDataFormatError("dataset is not a YAML sequence of records", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, services.NewDataFormatError("dataset is not a JSON array of records", err)
		}
	default:
		return nil, services.NewDataFormatError(fmt.Sprintf("unsupported dataset format %q", format), nil)
	}

	records := make([]Record, 0, len(raw))
	for i, r := range raw {
		if r.Intent == nil || strings.TrimSpace(*r.Intent) == "" {
			return nil, services.NewDataFormatError("record is missing intent", nil).
				WithDetail("record", i)
		}
		if r.Response == nil {
			return nil, services.NewDataFormatError("record is missing response", nil).
				WithDetail("record", i).
				WithDetail("intent", *r.Intent)
		}
		records = append(records, Record{
			Intent:   *r.Intent,
			Examples: r.Examples,
			Response: *r.Response,
		})
	}

	return records, nil
}
