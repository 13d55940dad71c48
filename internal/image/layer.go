// Package image provides the loaded source and target layers and renders
// placed regions onto a target.
package image

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"defect-synth/internal/codec"
	"defect-synth/internal/pixbuf"
	"defect-synth/pkg/geometry"
)

// Role indicates what a loaded image is used for.
type Role int

const (
	RoleUnknown Role = iota
	RoleSource       // Defective sample, polygons are cut from it
	RoleTarget       // Good sample, regions are placed on it
)

func (r Role) String() string {
	switch r {
	case RoleSource:
		return "Source (NG)"
	case RoleTarget:
		return "Target (OK)"
	default:
		return "Unknown"
	}
}

// Layer is a loaded image with its origin.
type Layer struct {
	Path   string         // Original file path, empty for in-memory data
	Buffer *pixbuf.Buffer // Decoded pixels, 3 channels
	Format codec.Format
	Role   Role
}

// NewLayer decodes data into a layer.
func NewLayer(data []byte, role Role) (*Layer, error) {
	buf, format, err := codec.Decode(data)
	if err != nil {
		return nil, err
	}
	return &Layer{Buffer: buf, Format: format, Role: role}, nil
}

// Load reads and decodes an image file. An unknown role is guessed from the
// file name.
func Load(path string, role Role) (*Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	layer, err := NewLayer(data, role)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	layer.Path = path
	if layer.Role == RoleUnknown {
		layer.Role = guessRoleFromFilename(path)
	}
	return layer, nil
}

// Width returns the image width in pixels.
func (l *Layer) Width() int {
	if l == nil || l.Buffer == nil {
		return 0
	}
	return l.Buffer.Width
}

// Height returns the image height in pixels.
func (l *Layer) Height() int {
	if l == nil || l.Buffer == nil {
		return 0
	}
	return l.Buffer.Height
}

// Size returns the image dimensions.
func (l *Layer) Size() geometry.Size {
	return geometry.Size{
		Width:  float64(l.Width()),
		Height: float64(l.Height()),
	}
}

// Name returns the file name, or the role when loaded from memory.
func (l *Layer) Name() string {
	if l.Path == "" {
		return l.Role.String()
	}
	return filepath.Base(l.Path)
}

// guessRoleFromFilename attempts to determine the role from the filename.
func guessRoleFromFilename(path string) Role {
	base := strings.ToLower(filepath.Base(path))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	words := strings.FieldsFunc(base, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})

	sourceKeywords := map[string]bool{"ng": true, "defect": true, "bad": true, "fail": true}
	targetKeywords := map[string]bool{"ok": true, "good": true, "pass": true, "golden": true}
	for _, w := range words {
		if sourceKeywords[w] {
			return RoleSource
		}
	}
	for _, w := range words {
		if targetKeywords[w] {
			return RoleTarget
		}
	}

	return RoleUnknown
}
