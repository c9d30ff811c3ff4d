package storage

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Local reads files from the local filesystem.
type Local struct{}

var _ Store = Local{}

// Open opens a plain path or a file:// URI.
func (Local) Open(_ context.Context, path string) (File, error) {
	p := strings.TrimPrefix(path, "file://")
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open local file: %w", err)
	}
	return f, nil
}
