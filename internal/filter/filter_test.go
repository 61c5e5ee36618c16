package filter

import (
	"strings"
	"testing"

	"github.com/hohoca/brachyplan/internal/types"
)

func testChannels() []types.Channel {
	return []types.Channel{
		{ID: "a", Number: 1, Name: "left", Visible: true, ActivePositions: []float64{1130}},
		{ID: "b", Number: 2, Name: "right", Locked: true, ModelID: "model6"},
		{ID: "c", Number: 3, Name: "center", Visible: true, ModelID: "model6", Locked: true},
	}
}

func TestMatchChannels(t *testing.T) {
	tests := []struct {
		name      string
		predicate string
		want      []string
	}{
		{name: "empty keeps all", predicate: "", want: []string{"a", "b", "c"}},
		{name: "boolean field", predicate: "locked", want: []string{"b", "c"}},
		{name: "comparison", predicate: "modelId=='model6' && visible", want: []string{"c"}},
		{name: "function", predicate: "length(activePositions) > `0`", want: []string{"a"}},
		{name: "no match", predicate: "name=='nothing'", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MatchChannels(testChannels(), tt.predicate)
			if err != nil {
				t.Fatalf("MatchChannels() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("MatchChannels() returned %d channels, want %d", len(got), len(tt.want))
			}
			for i, ch := range got {
				if ch.ID != tt.want[i] {
					t.Errorf("channel %d = %s, want %s", i, ch.ID, tt.want[i])
				}
			}
		})
	}
}

func TestMatchChannels_InvalidExpression(t *testing.T) {
	if _, err := MatchChannels(testChannels(), "[?"); err == nil {
		t.Error("Expected error for invalid expression")
	}
}

func TestApply(t *testing.T) {
	doc := map[string]any{
		"name":     "plan",
		"channels": testChannels(),
	}

	out, err := Apply(doc, "channels[?locked].name")
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !strings.Contains(out, `"right"`) || !strings.Contains(out, `"center"`) || strings.Contains(out, `"left"`) {
		t.Errorf("Apply() = %s, want locked channel names only", out)
	}

	out, err = Apply(doc, "missing")
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if out != "null" {
		t.Errorf("Apply() = %s, want null", out)
	}

	out, err = Apply(map[string]int{"a": 1}, "")
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !strings.Contains(out, `"a": 1`) {
		t.Errorf("Apply() without query = %s, want indented document", out)
	}
}

func TestIsShellCommand(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"$(jq .)", true},
		{"channels[0]", false},
		{"$(", false},
	}
	for _, tt := range tests {
		if got := IsShellCommand(tt.query); got != tt.want {
			t.Errorf("IsShellCommand(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestIsValidJMESPath(t *testing.T) {
	if !IsValidJMESPath("channels[*].name") {
		t.Error("Expected valid expression")
	}
	if IsValidJMESPath("channels[") {
		t.Error("Expected invalid expression")
	}
}
