package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c0deZ3R0/readsync/record"
)

// loadRecords reads a platform export. JSON and YAML files hold either a
// list of records or an object with a "records" list.
func loadRecords(path string) ([]record.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records file %s: %w", path, err)
	}

	var export struct {
		Records []record.Record `json:"records" yaml:"records"`
	}
	var list []record.Record

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, &list); err != nil {
			if err := json.Unmarshal(data, &export); err != nil {
				return nil, fmt.Errorf("failed to parse records file %s: %w", path, err)
			}
			list = export.Records
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &list); err != nil {
			if err := yaml.Unmarshal(data, &export); err != nil {
				return nil, fmt.Errorf("failed to parse records file %s: %w", path, err)
			}
			list = export.Records
		}
	default:
		return nil, fmt.Errorf("unsupported records format: %s", ext)
	}

	if list == nil {
		list = []record.Record{}
	}
	return list, nil
}
