package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"longrun/internal/spec"
)

const SupportedSchema = "v1"

// LoadWatchFile parses a watch YAML, validates schema_version, fills
// per-entry types from defaults and rejects unnamed or duplicate entries.
func LoadWatchFile(path string) (spec.File, error) {
	var f spec.File
	raw, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return f, err
	}
	if f.SchemaVersion == "" {
		f.SchemaVersion = SupportedSchema
	}
	if f.SchemaVersion != SupportedSchema {
		return f, fmt.Errorf("watch schema_version %q not supported (want %q)", f.SchemaVersion, SupportedSchema)
	}

	seen := make(map[string]bool, len(f.Operations))
	for i := range f.Operations {
		w := &f.Operations[i]
		w.Name = strings.TrimSpace(w.Name)
		if w.Name == "" {
			return f, fmt.Errorf("watch entry %d: name is required", i)
		}
		if seen[w.Name] {
			return f, fmt.Errorf("watch entry %d: duplicate operation %q", i, w.Name)
		}
		seen[w.Name] = true
		if w.ResponseType == "" {
			w.ResponseType = f.Defaults.ResponseType
		}
		if w.MetadataType == "" {
			w.MetadataType = f.Defaults.MetadataType
		}
	}
	return f, nil
}
