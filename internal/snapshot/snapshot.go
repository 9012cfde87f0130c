// Package snapshot reads and writes board exports: the stage list and
// transition log of one board together with the query parameters that were
// in effect, so a computation can be reproduced offline.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/blackwell-systems/flowwatch/internal/flow"
)

// CurrentVersion is the document version written by Encode.
const CurrentVersion = 1

// Format is a serialization format for a Document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrNoData is returned when a document carries no transition log.
var ErrNoData = errors.New("snapshot has no board data")

// Board identifies the exported board.
type Board struct {
	Host string `json:"host" yaml:"host"`
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Params are the query parameters in effect at export time.
type Params struct {
	Stages       []string `json:"stages,omitempty" yaml:"stages,omitempty"`
	From         string   `json:"from,omitempty" yaml:"from,omitempty"`
	To           string   `json:"to,omitempty" yaml:"to,omitempty"`
	Resolution   string   `json:"resolution,omitempty" yaml:"resolution,omitempty"`
	Completion   string   `json:"completion,omitempty" yaml:"completion,omitempty"`
	Percentiles  []int    `json:"percentiles,omitempty" yaml:"percentiles,omitempty"`
	Swimlanes    []string `json:"swimlanes,omitempty" yaml:"swimlanes,omitempty"`
	QuickFilters []string `json:"quickFilters,omitempty" yaml:"quickFilters,omitempty"`
}

// Document is one exported board.
type Document struct {
	Version    int       `json:"version" yaml:"version"`
	ExportedAt time.Time `json:"exportedAt" yaml:"exportedAt"`
	Board      Board     `json:"board" yaml:"board"`
	Params     Params    `json:"params" yaml:"params"`
	Data       *flow.Log `json:"cfdData" yaml:"cfdData"`
}

// FormatFromPath picks YAML for .yaml/.yml files and JSON otherwise.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ParseFormat validates a format name. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown snapshot format %q (want json or yaml)", s)
	}
}

// Encode writes doc to w. A zero Version or ExportedAt is filled in.
func Encode(w io.Writer, doc *Document, format Format) error {
	if doc.Data == nil {
		return ErrNoData
	}
	if doc.Version == 0 {
		doc.Version = CurrentVersion
	}
	if doc.ExportedAt.IsZero() {
		doc.ExportedAt = time.Now().UTC()
	}

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	}
}

// Decode reads a document from r.
func Decode(r io.Reader, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding yaml: %w", err)
		}
	default:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding json: %w", err)
		}
	}
	if doc.Data == nil {
		return nil, ErrNoData
	}
	if doc.Version > CurrentVersion {
		return nil, fmt.Errorf("snapshot version %d is newer than supported version %d", doc.Version, CurrentVersion)
	}
	return &doc, nil
}

// WriteFile encodes doc to path, choosing the format from the extension.
func WriteFile(path string, doc *Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := Encode(f, doc, FormatFromPath(path)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadFile decodes the document at path, choosing the format from the
// extension.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	doc, err := Decode(f, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return doc, nil
}
