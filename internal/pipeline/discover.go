package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/storm-grid-etl/internal/domain"
)

// DayDir returns the directory holding the raw files for day: root/YYYY/MM/DD.
func DayDir(root string, day time.Time) string {
	return filepath.Join(root, day.Format("2006"), day.Format("01"), day.Format("02"))
}

// FSDiscoverer lists raw grid files in the day directories under a root.
type FSDiscoverer struct {
	root    string
	pattern string
}

// NewFSDiscoverer returns a discoverer matching file names against pattern
// (filepath.Match syntax) directly inside each day directory.
func NewFSDiscoverer(root, pattern string) (*FSDiscoverer, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("file pattern %q: %w", pattern, err)
	}
	return &FSDiscoverer{root: root, pattern: pattern}, nil
}

// Discover returns the matching regular files for day in lexical order.
// A missing day directory is reported as domain.ErrMissingInput.
func (d *FSDiscoverer) Discover(ctx context.Context, day time.Time) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := DayDir(d.root, day)

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("day directory %s: %w", dir, domain.ErrMissingInput)
	}
	if err != nil {
		return nil, fmt.Errorf("stat day directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("day directory %s is not a directory: %w", dir, domain.ErrMissingInput)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read day directory: %w", err)
	}

	// os.ReadDir sorts by name.
	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		ok, _ := filepath.Match(d.pattern, e.Name())
		if ok {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}
