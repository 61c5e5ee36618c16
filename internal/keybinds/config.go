package keybinds

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
)

// Config represents the user's keybinding configuration.
// Each section maps an action name to a comma-separated key list, and
// replaces the default keys of that action in the section's context.
type Config struct {
	Version     string                       `json:"version"`
	Global      map[string]string            `json:"global,omitempty"`
	Normal      map[string]string            `json:"normal,omitempty"`
	Dwell       map[string]string            `json:"dwell,omitempty"`
	Parameters  map[string]string            `json:"parameters,omitempty"`
	ModelPicker map[string]string            `json:"model_picker,omitempty"`
	SubTubes    map[string]string            `json:"sub_tubes,omitempty"`
	Recent      map[string]string            `json:"recent,omitempty"`
	History     map[string]string            `json:"history,omitempty"`
	Help        map[string]string            `json:"help,omitempty"`
	Modal       map[string]string            `json:"modal,omitempty"`
	TextInput   map[string]string            `json:"text_input,omitempty"`
	Confirm     map[string]string            `json:"confirm,omitempty"`
	Custom      map[string]map[string]string `json:"custom,omitempty"`
}

// LoadConfig loads keybinding configuration from a JSON file.
// Comments and trailing commas are allowed.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(jsonc.ToJSON(data), &config); err != nil {
		return nil, fmt.Errorf("invalid keybinds.json format: %w", err)
	}

	return &config, nil
}

// SaveConfig saves keybinding configuration to a JSON file
func SaveConfig(config *Config, path string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func (c *Config) sections() map[Context]map[string]string {
	sections := map[Context]map[string]string{
		ContextGlobal:      c.Global,
		ContextNormal:      c.Normal,
		ContextDwell:       c.Dwell,
		ContextParameters:  c.Parameters,
		ContextModelPicker: c.ModelPicker,
		ContextSubTubes:    c.SubTubes,
		ContextRecent:      c.Recent,
		ContextHistory:     c.History,
		ContextHelp:        c.Help,
		ContextModal:       c.Modal,
		ContextTextInput:   c.TextInput,
		ContextConfirm:     c.Confirm,
	}
	for name, bindings := range c.Custom {
		sections[Context(name)] = bindings
	}
	return sections
}

// splitKeys parses "up,k" into its keys. "space" names the space bar and a
// lone "," binds the comma key.
func splitKeys(spec string) []string {
	if spec == "," {
		return []string{","}
	}
	var keys []string
	for _, k := range strings.Split(spec, ",") {
		k = strings.TrimSpace(k)
		switch k {
		case "":
			continue
		case "space":
			k = " "
		}
		keys = append(keys, k)
	}
	return keys
}

func joinKeys(keys []string) string {
	out := make([]string, len(keys))
	for i, k := range keys {
		if k == " " {
			k = "space"
		}
		out[i] = k
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

// ApplyConfig applies user configuration to a registry
// User bindings override default bindings
func ApplyConfig(registry *Registry, config *Config) error {
	for context, bindings := range config.sections() {
		for actionStr, keySpec := range bindings {
			if err := ValidateAction(actionStr); err != nil {
				return fmt.Errorf("context '%s': %w", context, err)
			}
			keys := splitKeys(keySpec)
			for _, key := range keys {
				if err := ValidateKey(key); err != nil {
					return fmt.Errorf("context '%s', action '%s': %w", context, actionStr, err)
				}
			}

			action := Action(actionStr)
			registry.Unbind(context, action)
			registry.RegisterMultiple(context, keys, action)
		}
	}

	return nil
}

// LoadOrDefault loads user config if it exists, otherwise returns default registry.
// A config that unbinds a required action or takes ctrl+c is rejected.
func LoadOrDefault(configPath string) (*Registry, error) {
	// Start with defaults
	registry := NewDefaultRegistry()

	// Try to load user config
	if _, err := os.Stat(configPath); err == nil {
		config, err := LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load keybinds.json: %w", err)
		}

		// Apply user config over defaults
		if err := ApplyConfig(registry, config); err != nil {
			return nil, fmt.Errorf("failed to apply keybinds config: %w", err)
		}
		if err := Errors(Check(registry)); err != nil {
			return nil, fmt.Errorf("keybinds.json leaves the planner unusable: %w", err)
		}
	}
	// If config doesn't exist, that's fine - use defaults

	return registry, nil
}

// ExportConfig turns a registry back into a config file.
// Keys of each action are sorted so the output is stable.
func ExportConfig(registry *Registry) *Config {
	byContext := make(map[Context]map[string]string)
	for context, bindings := range registry.bindings {
		grouped := make(map[Action][]string)
		for key, action := range bindings {
			grouped[action] = append(grouped[action], key)
		}
		section := make(map[string]string, len(grouped))
		for action, keys := range grouped {
			section[string(action)] = joinKeys(keys)
		}
		byContext[context] = section
	}

	config := &Config{Version: "1.0"}
	for context, section := range byContext {
		switch context {
		case ContextGlobal:
			config.Global = section
		case ContextNormal:
			config.Normal = section
		case ContextDwell:
			config.Dwell = section
		case ContextParameters:
			config.Parameters = section
		case ContextModelPicker:
			config.ModelPicker = section
		case ContextSubTubes:
			config.SubTubes = section
		case ContextRecent:
			config.Recent = section
		case ContextHistory:
			config.History = section
		case ContextHelp:
			config.Help = section
		case ContextModal:
			config.Modal = section
		case ContextTextInput:
			config.TextInput = section
		case ContextConfirm:
			config.Confirm = section
		default:
			if config.Custom == nil {
				config.Custom = make(map[string]map[string]string)
			}
			config.Custom[string(context)] = section
		}
	}
	return config
}

// CreateExampleConfig writes the default keybindings to path so users can edit them
func CreateExampleConfig(path string) error {
	return SaveConfig(ExportConfig(NewDefaultRegistry()), path)
}
