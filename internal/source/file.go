package source

import (
	"context"
	"fmt"

	"github.com/blackwell-systems/flowwatch/internal/flow"
	"github.com/blackwell-systems/flowwatch/internal/snapshot"
)

// File reads a board from an exported snapshot.
type File struct {
	Path string
}

// NewFile returns a source backed by the snapshot at path.
func NewFile(path string) *File {
	return &File{Path: path}
}

// Host implements Source.
func (f *File) Host() string { return "file" }

// Fetch implements Source. When board is set it must match the exported
// board id.
func (f *File) Fetch(ctx context.Context, board string) (*flow.Log, error) {
	doc, err := f.Load(ctx)
	if err != nil {
		return nil, err
	}
	if board != "" && doc.Board.ID != "" && doc.Board.ID != board {
		return nil, fmt.Errorf("%s holds board %s, not %s", f.Path, doc.Board.ID, board)
	}
	return doc.Data, nil
}

// Load returns the whole snapshot document, including its saved parameters.
func (f *File) Load(ctx context.Context) (*snapshot.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return snapshot.ReadFile(f.Path)
}
