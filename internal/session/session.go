package session

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/hohoca/brachyplan/internal/config"
	"github.com/hohoca/brachyplan/internal/types"
)

const maxRecentTemplates = 10

// Manager handles the persisted session state
type Manager struct {
	session *types.Session
	path    string
	runID   string
}

// NewManager creates a session manager using the session file from config
func NewManager() *Manager {
	return NewManagerAt("")
}

// NewManagerAt creates a session manager backed by path. An empty path
// resolves to the local or global session file on each load and save.
func NewManagerAt(path string) *Manager {
	return &Manager{
		session: &types.Session{},
		path:    path,
		runID:   uuid.NewString(),
	}
}

func (m *Manager) filePath() string {
	if m.path != "" {
		return m.path
	}
	return config.GetSessionFilePath()
}

// RunID identifies this run of the program in the change history
func (m *Manager) RunID() string {
	return m.runID
}

// Load loads the session file
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.filePath())
	if err != nil {
		// If file doesn't exist, use default session
		m.session = &types.Session{}
		return nil
	}

	var session types.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return fmt.Errorf("failed to parse session file: %w", err)
	}

	m.session = &session
	return nil
}

// Save saves the session to disk
func (m *Manager) Save() error {
	data, err := json.MarshalIndent(m.session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.WriteFile(m.filePath(), data, config.FilePermissions); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// GetSession returns the current session
func (m *Manager) GetSession() *types.Session {
	return m.session
}

// AddRecentTemplate adds a template to the MRU (Most Recently Used) list
// and remembers it as the last opened template.
// The template is added to the front of the list, and duplicates are removed
// The list is limited to 10 entries
func (m *Manager) AddRecentTemplate(path string) error {
	newRecent := []string{path}
	for _, f := range m.session.RecentTemplates {
		if f != path {
			newRecent = append(newRecent, f)
		}
	}

	if len(newRecent) > maxRecentTemplates {
		newRecent = newRecent[:maxRecentTemplates]
	}

	m.session.RecentTemplates = newRecent
	m.session.LastTemplate = path
	return m.Save()
}

// GetRecentTemplates returns the MRU template list
func (m *Manager) GetRecentTemplates() []string {
	if m.session.RecentTemplates == nil {
		return []string{}
	}
	return m.session.RecentTemplates
}

// RemoveRecentTemplate drops a template that no longer exists from the MRU list
func (m *Manager) RemoveRecentTemplate(path string) error {
	kept := m.session.RecentTemplates[:0]
	for _, f := range m.session.RecentTemplates {
		if f != path {
			kept = append(kept, f)
		}
	}
	m.session.RecentTemplates = kept
	if m.session.LastTemplate == path {
		m.session.LastTemplate = ""
	}
	return m.Save()
}

// SetCatalogFile remembers the catalog chosen by the user
func (m *Manager) SetCatalogFile(path string) error {
	m.session.CatalogFile = path
	return m.Save()
}
