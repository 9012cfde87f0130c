// Package source fetches a board's transition log from where it lives: an
// exported snapshot file or a Jira instance.
package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blackwell-systems/flowwatch/internal/flow"
)

// Source produces the transition log of a board.
type Source interface {
	// Host names where boards come from; together with the board id it keys
	// stored settings.
	Host() string

	Fetch(ctx context.Context, board string) (*flow.Log, error)
}

// Options configure Open.
type Options struct {
	Token        string
	Timeout      time.Duration
	Swimlanes    []string
	QuickFilters []string
}

// Open returns a Jira source for http(s) locations and a file source for
// anything else.
func Open(location string, opts Options) (Source, error) {
	if location == "" {
		return nil, fmt.Errorf("no source configured: pass --source or set jira.base_url")
	}
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewJira(location, opts)
	}
	return NewFile(location), nil
}
