package template

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const yamlTemplate = `name: ring-and-tandem
dwellStep: 5
channels:
  - name: tandem
    modelId: model2
    activePositions: [1130, 1125]
  - name: ring
    modelId: model6
    selectedChannels: [1, 3]
  - name: ring
    parent: 2
    subTube: 3
    visible: false
`

func TestLoadFormats(t *testing.T) {
	dir := t.TempDir()

	jsoncData := `{
  // commented template
  "name": "jsonc",
  "channels": [
    {"name": "a"}, // trailing comment
    {"name": "b", "locked": true},
  ]
}`

	tests := []struct {
		file     string
		content  string
		wantName string
		wantLen  int
	}{
		{"plan.yaml", yamlTemplate, "ring-and-tandem", 3},
		{"plan.jsonc", jsoncData, "jsonc", 2},
		{"unnamed.json", `{"channels":[{}]}`, "unnamed", 1},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			tmpl, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if tmpl.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", tmpl.Name, tt.wantName)
			}
			if len(tmpl.Channels) != tt.wantLen {
				t.Errorf("len(Channels) = %d, want %d", len(tmpl.Channels), tt.wantLen)
			}
		})
	}
}

func TestLoadYAMLFields(t *testing.T) {
	tmpl, err := Parse([]byte(yamlTemplate), ".yml")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if tmpl.DwellStep != 5 {
		t.Errorf("DwellStep = %v, want 5", tmpl.DwellStep)
	}
	child := tmpl.Channels[2]
	if !child.IsSubTube() || child.Parent != 2 || child.SubTube != 3 {
		t.Errorf("child spec = %+v", child)
	}
	if child.IsVisible() {
		t.Error("child should be hidden")
	}
	if !tmpl.Channels[0].IsVisible() {
		t.Error("visibility should default to true")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tmpl    Template
		wantErr string
	}{
		{
			name: "valid",
			tmpl: Template{Channels: []ChannelSpec{{}, {Parent: 1, SubTube: 2}}},
		},
		{
			name:    "negative step",
			tmpl:    Template{DwellStep: -1},
			wantErr: "dwellStep",
		},
		{
			name:    "missing parent",
			tmpl:    Template{Channels: []ChannelSpec{{Parent: 4, SubTube: 2}}},
			wantErr: "does not exist",
		},
		{
			name:    "nested sub-tube",
			tmpl:    Template{Channels: []ChannelSpec{{}, {Parent: 1, SubTube: 2}, {Parent: 2, SubTube: 3}}},
			wantErr: "itself a sub-tube",
		},
		{
			name:    "centre tube child",
			tmpl:    Template{Channels: []ChannelSpec{{}, {Parent: 1, SubTube: 1}}},
			wantErr: "subTube must be",
		},
		{
			name:    "duplicate sub-tube",
			tmpl:    Template{Channels: []ChannelSpec{{}, {Parent: 1, SubTube: 2}, {Parent: 1, SubTube: 2}}},
			wantErr: "duplicate",
		},
		{
			name:    "selection out of range",
			tmpl:    Template{Channels: []ChannelSpec{{SelectedChannels: []int{7}}}},
			wantErr: "out of range",
		},
		{
			name:    "orphan sub-tube number",
			tmpl:    Template{Channels: []ChannelSpec{{SubTube: 2}}},
			wantErr: "requires a parent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.tmpl)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	tmpl := New("three", 3, 2.5)

	for _, file := range []string{"three.yaml", "nested/three.json"} {
		path := filepath.Join(dir, file)
		if err := Save(&tmpl, path); err != nil {
			t.Fatalf("Save(%s) error = %v", file, err)
		}
		loaded, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s) error = %v", file, err)
		}
		if loaded.Name != "three" || len(loaded.Channels) != 3 || loaded.DwellStep != 2.5 {
			t.Errorf("Load(%s) = %+v", file, loaded)
		}
	}

	if err := Save(&tmpl, filepath.Join(dir, "three.txt")); err == nil {
		t.Error("Expected error for unsupported extension")
	}
}

func TestQuery(t *testing.T) {
	tmpl, err := Parse([]byte(yamlTemplate), ".yaml")
	if err != nil {
		t.Fatal(err)
	}

	out, err := Query(tmpl, "channels[?modelId=='model6'].selectedChannels[]")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	compact := strings.Join(strings.Fields(out), "")
	if compact != "[1,3]" {
		t.Errorf("Query() = %s, want [1,3]", compact)
	}
}
