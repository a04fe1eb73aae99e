package scheduler

import (
	"fmt"
	"os"
)

// Workspace provides scratch directories for tasks.
type Workspace interface {
	// Create returns a fresh directory for t and a function releasing it.
	Create(t Task) (dir string, release func() error, err error)
}

// TempWorkspace creates directories under Root (os.TempDir when empty).
// With Keep set, directories are left in place for inspection.
type TempWorkspace struct {
	Root string
	Keep bool
}

func (w TempWorkspace) Create(t Task) (string, func() error, error) {
	if w.Root != "" {
		if err := os.MkdirAll(w.Root, 0o755); err != nil {
			return "", nil, fmt.Errorf("create workspace root: %w", err)
		}
	}
	dir, err := os.MkdirTemp(w.Root, fmt.Sprintf("metrix_v%d_c%d_", t.Version, t.Chunk))
	if err != nil {
		return "", nil, fmt.Errorf("create scratch directory: %w", err)
	}
	if w.Keep {
		return dir, func() error { return nil }, nil
	}
	return dir, func() error { return os.RemoveAll(dir) }, nil
}
