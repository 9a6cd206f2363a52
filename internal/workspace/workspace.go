// Package workspace owns the temporary directories that hold one request's files.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/keagan/shotlist/pkg/util"
)

// Workspace is the isolated directory of a single analysis request
type Workspace struct {
	ID  string
	Dir string

	once sync.Once
}

// Path joins elem onto the workspace directory
func (w *Workspace) Path(elem ...string) string {
	return filepath.Join(append([]string{w.Dir}, elem...)...)
}

// Manager allocates and releases workspaces under a root directory
type Manager struct {
	logger    zerolog.Logger
	root      string
	removeAll func(string) error
}

// NewManager creates a manager rooted at root, creating it if needed
func NewManager(logger zerolog.Logger, root string) (*Manager, error) {
	if root == "" {
		return nil, fmt.Errorf("workspace root is required")
	}
	if err := util.EnsureDir(root); err != nil {
		return nil, fmt.Errorf("failed to create workspace root: %w", err)
	}

	return &Manager{
		logger:    logger.With().Str("component", "workspace").Logger(),
		root:      root,
		removeAll: os.RemoveAll,
	}, nil
}

// Acquire creates a fresh directory for requestID. It fails rather than reuse
// an existing directory.
func (m *Manager) Acquire(requestID string) (*Workspace, error) {
	if requestID == "" {
		return nil, fmt.Errorf("request id is required")
	}

	dir := filepath.Join(m.root, "req-"+requestID)
	if err := os.Mkdir(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create workspace %s: %w", dir, err)
	}

	m.logger.Debug().Str("request_id", requestID).Str("dir", dir).Msg("workspace acquired")
	return &Workspace{ID: requestID, Dir: dir}, nil
}

// Release deletes the workspace recursively. Calling it more than once is a
// no-op and deletion errors are only logged.
func (m *Manager) Release(ws *Workspace) {
	if ws == nil {
		return
	}

	ws.once.Do(func() {
		if err := m.removeAll(ws.Dir); err != nil {
			m.logger.Error().Err(err).Str("dir", ws.Dir).Msg("failed to remove workspace")
			return
		}
		m.logger.Debug().Str("request_id", ws.ID).Str("dir", ws.Dir).Msg("workspace released")
	})
}
