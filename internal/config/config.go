package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// FilePermissions is the default permission mode for regular files (read/write for owner, read for others)
	FilePermissions = 0644
	// DirPermissions is the default permission mode for directories (rwxr-xr-x)
	DirPermissions = 0755
)

var (
	// ConfigDir is the global configuration directory (~/.brachyplan)
	ConfigDir string

	// TemplatesDir is the default directory for channel templates
	TemplatesDir string

	// DatabasePath is the SQLite database file for the channel change history
	DatabasePath string

	// SessionFile is the session state file
	SessionFile string

	// CatalogFile overrides the built-in model catalog when present
	CatalogFile string

	// KeybindsFile holds user key binding overrides
	KeybindsFile string

	// SettingsFile holds user settings
	SettingsFile string

	// LogFile receives the structured log; stdout belongs to the TUI
	LogFile string
)

// Initialize sets up the configuration directories and files
// It creates ~/.brachyplan/ if it doesn't exist
func Initialize() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	return InitializeAt(filepath.Join(homeDir, ".brachyplan"))
}

// InitializeAt sets up the configuration under dir
func InitializeAt(dir string) error {
	ConfigDir = dir
	TemplatesDir = filepath.Join(ConfigDir, "templates")
	DatabasePath = filepath.Join(ConfigDir, "brachyplan.db")
	SessionFile = filepath.Join(ConfigDir, ".session.json")
	CatalogFile = filepath.Join(ConfigDir, "catalog.yaml")
	KeybindsFile = filepath.Join(ConfigDir, "keybinds.json")
	SettingsFile = filepath.Join(ConfigDir, "settings.yaml")
	LogFile = filepath.Join(ConfigDir, "brachyplan.log")

	// Create directories if they don't exist
	dirs := []string{ConfigDir, TemplatesDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, DirPermissions); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// Create empty session file if it doesn't exist
	if _, err := os.Stat(SessionFile); os.IsNotExist(err) {
		if err := os.WriteFile(SessionFile, []byte(`{}`), FilePermissions); err != nil {
			return fmt.Errorf("failed to create session file: %w", err)
		}
	}

	return nil
}

// ResolveTemplatePath resolves a template name or path. Bare names without a
// directory are looked up in TemplatesDir; ~/ is expanded.
func ResolveTemplatePath(name string) (string, error) {
	if strings.HasPrefix(name, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(homeDir, name[2:]), nil
	}

	if filepath.IsAbs(name) || strings.ContainsRune(name, filepath.Separator) {
		return name, nil
	}

	// A file in the working directory wins over the templates directory
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}
	return filepath.Join(TemplatesDir, name), nil
}

// GetSessionFilePath returns the session file path (local or global)
func GetSessionFilePath() string {
	if _, err := os.Stat(".session.json"); err == nil {
		return ".session.json"
	}
	return SessionFile
}

// GetCatalogFilePath returns the catalog file path (local or global)
func GetCatalogFilePath() string {
	if _, err := os.Stat("catalog.yaml"); err == nil {
		return "catalog.yaml"
	}
	return CatalogFile
}
