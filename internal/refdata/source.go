// Package refdata reads the reference tables (routes, tariffs, baseline
// margins, scenarios) from a directory, an S3 bucket or a SQLite file and
// loads them into a knowledge base.
package refdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrNotFound is returned when a source has no object with the given name.
var ErrNotFound = errors.New("reference object not found")

// Source yields reference files by name.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Describe names the source for logs, e.g. "dir:data".
	Describe() string
}

// Layout names the four reference objects inside a Source.
type Layout struct {
	Routes    string `yaml:"routes"`
	Tariffs   string `yaml:"tariffs"`
	Margins   string `yaml:"margins"`
	Scenarios string `yaml:"scenarios"`
}

// DefaultLayout is the file naming used by the bundled data directory.
func DefaultLayout() Layout {
	return Layout{
		Routes:    "outbound_routes.csv",
		Tariffs:   "tariffs.csv",
		Margins:   "market_baseline_margins.csv",
		Scenarios: "scenarios.json",
	}
}

// DirSource reads reference files from a local directory.
type DirSource struct {
	Dir string
}

// NewDirSource returns a Source rooted at dir.
func NewDirSource(dir string) *DirSource { return &DirSource{Dir: dir} }

func (d *DirSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(d.Dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filepath.Join(d.Dir, name))
		}
		return nil, err
	}
	return f, nil
}

func (d *DirSource) Describe() string { return "dir:" + d.Dir }
