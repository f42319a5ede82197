package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"reelsmith/internal/textutil"
)

// Workspace is the scoped temporary directory owned by one job.
type Workspace struct {
	JobID string
	Dir   string

	closeOnce sync.Once
	closeErr  error
}

// OpenWorkspace creates root/job-<id>-<random>.
func OpenWorkspace(root, jobID string) (*Workspace, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("workspace root is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	dir, err := os.MkdirTemp(root, "job-"+textutil.SanitizeToken(jobID)+"-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{JobID: jobID, Dir: dir}, nil
}

// Path joins name onto the workspace directory. The name is cleaned so it
// cannot escape the workspace.
func (w *Workspace) Path(name string) string {
	clean := filepath.Clean("/" + name)
	return filepath.Join(w.Dir, strings.TrimPrefix(clean, "/"))
}

// WriteFile writes an auxiliary file into the workspace.
func (w *Workspace) WriteFile(name, content string) (string, error) {
	path := w.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Close removes the workspace and everything in it. It is safe to call more
// than once.
func (w *Workspace) Close() error {
	if w == nil {
		return nil
	}
	w.closeOnce.Do(func() {
		w.closeErr = os.RemoveAll(w.Dir)
	})
	return w.closeErr
}
