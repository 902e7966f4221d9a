package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Workspace is a job's private temp directory. Every intermediate artifact the pipeline
// creates lives inside it, so removing it is the whole of intermediate cleanup.
type Workspace struct {
	dir string
}

// WorkspaceDir returns the workspace path for id under root without creating it.
func WorkspaceDir(root string, id uuid.UUID) string {
	return filepath.Join(root, id.String())
}

// NewWorkspace creates the workspace for id under root.
func NewWorkspace(root string, id uuid.UUID) (*Workspace, error) {
	dir := WorkspaceDir(root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

func (w *Workspace) Dir() string { return w.dir }

// Path returns name joined onto the workspace directory.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// Remove deletes the workspace and everything in it. A missing workspace is not an error.
func (w *Workspace) Remove() error {
	return os.RemoveAll(w.dir)
}
