// Package catalog seeds the repository from the bundled preset catalog and
// generates that catalog from preset directories.
package catalog

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/hpungsan/presetvault/internal/preset"
)

// Entry describes one bundled preset.
type Entry struct {
	ID         string      `json:"id" validate:"required"`
	Name       string      `json:"name" validate:"required"`
	Author     string      `json:"author"`
	Category   string      `json:"category"`
	Type       preset.Type `json:"type" validate:"required,oneof=milk milk2"`
	Collection string      `json:"collection,omitempty"`
	AssetPath  string      `json:"assetPath" validate:"required"`
}

// Manifest is the bundled catalog file.
type Manifest struct {
	Version      string   `json:"version"`
	Generated    string   `json:"generated,omitempty"`
	TotalPresets int      `json:"totalPresets"`
	Collections  []string `json:"collections,omitempty"`
	Categories   []string `json:"categories"`
	Presets      []Entry  `json:"presets"`
}

// EntryError reports a manifest entry that failed validation.
type EntryError struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Err   string `json:"error"`
}

func (e EntryError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("entry %d (%s): %s", e.Index, e.ID, e.Err)
	}
	return fmt.Sprintf("entry %d: %s", e.Index, e.Err)
}

var validate = validator.New()

// Parse decodes a manifest. Invalid entries are dropped from Presets and
// returned as EntryErrors; only a malformed document is an error.
func Parse(data []byte) (*Manifest, []EntryError, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, nil, fmt.Errorf("invalid manifest: %w", err)
	}

	valid := make([]Entry, 0, len(m.Presets))
	var problems []EntryError
	for i, e := range m.Presets {
		if err := validate.Struct(e); err != nil {
			problems = append(problems, EntryError{Index: i, ID: e.ID, Err: describe(err)})
			continue
		}
		valid = append(valid, e)
	}
	m.Presets = valid
	return &m, problems, nil
}

// LoadFile reads and parses a manifest file.
func LoadFile(path string) (*Manifest, []EntryError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// describe flattens validator errors into "field: tag" pairs.
func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, ", ")
}

// ByCategory returns the entries in category, in manifest order.
func (m *Manifest) ByCategory(category string) []Entry {
	out := []Entry{}
	for _, e := range m.Presets {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

// CategoryNames returns the declared categories, or the sorted set used
// by entries when the manifest declares none.
func (m *Manifest) CategoryNames() []string {
	if len(m.Categories) > 0 {
		return m.Categories
	}
	seen := map[string]bool{}
	out := []string{}
	for _, e := range m.Presets {
		if e.Category != "" && !seen[e.Category] {
			seen[e.Category] = true
			out = append(out, e.Category)
		}
	}
	sort.Strings(out)
	return out
}
