package ingest

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// LoadCandidates reads a YAML (or JSON) file holding one candidate or a list of them.
func LoadCandidates(path string) ([]CandidateInput, error) {
	var out []CandidateInput
	if err := loadRecords(path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadJobs reads a YAML (or JSON) file holding one job or a list of them.
func LoadJobs(path string) ([]JobInput, error) {
	var out []JobInput
	if err := loadRecords(path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func loadRecords(path string, result any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return decodeRecords(data, result)
}

func decodeRecords(data []byte, result any) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing records: %w", err)
	}

	var items []any
	switch v := doc.(type) {
	case nil:
	case []any:
		items = v
	case map[string]any:
		items = []any{v}
	default:
		return fmt.Errorf("expected a record or a list of records, got %T", doc)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           result,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(items); err != nil {
		return fmt.Errorf("decoding records: %w", err)
	}
	return nil
}
