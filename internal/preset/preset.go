// Package preset defines the visualizer preset model shared by every store.
package preset

import (
	"path/filepath"
	"strings"
	"time"
)

// Type is the content dialect of a preset. It determines the file extension.
type Type string

const (
	// TypeMilk is the classic MilkDrop dialect.
	TypeMilk Type = "milk"
	// TypeMilk2 is the MilkDrop 2 dialect.
	TypeMilk2 Type = "milk2"
)

// Valid reports whether t is a known dialect.
func (t Type) Valid() bool {
	return t == TypeMilk || t == TypeMilk2
}

// Extension returns the file extension for t, including the dot.
func (t Type) Extension() string {
	return "." + string(t)
}

// TypeFromPath infers the dialect from a file name.
// A ".milk2" suffix (any case) means milk2; everything else is milk.
func TypeFromPath(path string) Type {
	if strings.EqualFold(filepath.Ext(path), TypeMilk2.Extension()) {
		return TypeMilk2
	}
	return TypeMilk
}

// Metadata holds every preset attribute that is not content.
type Metadata struct {
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	IsFavorite bool      `json:"is_favorite"`

	// Tags has set semantics: order preserved, duplicates dropped on save
	Tags []string `json:"tags"`

	Version int `json:"version"`

	// CustomColors is optional; nil means the renderer default
	CustomColors *bool `json:"custom_colors,omitempty"`
}

// Preset is a named visual-effect document.
type Preset struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Author string `json:"author"`
	Type   Type   `json:"type"`

	// Content is only populated by Load; it is never kept in the metadata store
	Content string `json:"content,omitempty"`

	Metadata Metadata `json:"metadata"`
}

// Filename returns the blob file name for the preset: <id>.<ext>.
func (p *Preset) Filename() string {
	return p.ID + p.Type.Extension()
}

// Clone returns a deep copy of p.
func (p *Preset) Clone() *Preset {
	c := *p
	c.Metadata.Tags = append([]string(nil), p.Metadata.Tags...)
	if p.Metadata.CustomColors != nil {
		v := *p.Metadata.CustomColors
		c.Metadata.CustomColors = &v
	}
	return &c
}

// WithoutContent returns a copy of p with Content cleared.
func (p *Preset) WithoutContent() *Preset {
	c := p.Clone()
	c.Content = ""
	return c
}

// Collection is a named, ordered group of preset ids.
// PresetIDs are soft references: they may name presets that no longer exist.
type Collection struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	PresetIDs []string  `json:"preset_ids"`
	CreatedAt time.Time `json:"created_at"`
}
