package pricing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"meterr-hq/io/pkg/costs"
)

// entryFile is the YAML document shape of a pricing file.
type entryFile struct {
	Entries []entryYAML `yaml:"entries"`
}

// entryYAML is one pricing row as written in YAML. Rates are decimal dollar
// strings so they survive YAML parsing without float conversion.
type entryYAML struct {
	Provider      string `yaml:"provider"`
	Model         string `yaml:"model"`
	InputPer1K    string `yaml:"input_per_1k"`
	OutputPer1K   string `yaml:"output_per_1k"`
	EffectiveFrom string `yaml:"effective_from"`
}

// LoadFile parses a single YAML pricing file into entries.
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing file %q: %w", path, err)
	}
	entries, err := parseEntries(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pricing file %q: %w", path, err)
	}
	return entries, nil
}

// LoadDir loads every .yaml/.yml file in a directory and returns the merged
// entries plus a content-derived version string. Files are read in sorted
// order so the version is stable for identical content.
func LoadDir(dir string) ([]Entry, string, error) {
	names, err := os.ReadDir(dir)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read pricing directory %q: %w", dir, err)
	}

	var files []string
	for _, de := range names {
		if de.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(de.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(dir, de.Name()))
		}
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, "", fmt.Errorf("pricing directory %q contains no YAML files", dir)
	}

	hash := sha256.New()
	var entries []Entry
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read pricing file %q: %w", path, err)
		}
		hash.Write(data)
		parsed, err := parseEntries(data)
		if err != nil {
			return nil, "", fmt.Errorf("failed to parse pricing file %q: %w", path, err)
		}
		entries = append(entries, parsed...)
	}

	version := hex.EncodeToString(hash.Sum(nil))[:12]
	return entries, version, nil
}

func parseEntries(data []byte) ([]Entry, error) {
	var doc entryFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(doc.Entries))
	for i, e := range doc.Entries {
		if e.Provider == "" || e.Model == "" {
			return nil, fmt.Errorf("entry %d: provider and model are required", i)
		}

		in, err := costs.ParseUSD(e.InputPer1K)
		if err != nil {
			return nil, fmt.Errorf("entry %d (%s/%s): invalid input_per_1k: %w", i, e.Provider, e.Model, err)
		}
		out, err := costs.ParseUSD(e.OutputPer1K)
		if err != nil {
			return nil, fmt.Errorf("entry %d (%s/%s): invalid output_per_1k: %w", i, e.Provider, e.Model, err)
		}
		if in < 0 || out < 0 {
			return nil, fmt.Errorf("entry %d (%s/%s): rates must be non-negative", i, e.Provider, e.Model)
		}

		var from time.Time
		if e.EffectiveFrom != "" {
			from, err = parseEffectiveFrom(e.EffectiveFrom)
			if err != nil {
				return nil, fmt.Errorf("entry %d (%s/%s): invalid effective_from: %w", i, e.Provider, e.Model, err)
			}
		}

		entries = append(entries, Entry{
			Provider:      e.Provider,
			Model:         e.Model,
			InputPer1K:    in,
			OutputPer1K:   out,
			EffectiveFrom: from,
		})
	}

	return entries, nil
}

func parseEffectiveFrom(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp %q is not RFC3339 or YYYY-MM-DD", s)
}
