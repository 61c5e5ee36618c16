package filter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/hohoca/brachyplan/internal/types"
	"github.com/jmespath/go-jmespath"
)

const (
	// QueryShellTimeout is the maximum time allowed for query shell command execution
	QueryShellTimeout = 30 * time.Second
)

var (
	// Shell command pattern: $(command)
	shellPattern = regexp.MustCompile(`^\$\((.+)\)$`)
)

// Apply runs a query against any JSON-serialisable document and returns the
// result as indented JSON. A query of the form $(command) pipes the document
// to a shell command instead (e.g. $(jq '.channels | length')).
func Apply(doc any, query string) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}

	if query == "" {
		return indent(data)
	}

	if matches := shellPattern.FindStringSubmatch(query); len(matches) > 1 {
		out, err := executeShellCommand(string(data), matches[1])
		if err != nil {
			return "", fmt.Errorf("failed to execute query shell command: %w", err)
		}
		return out, nil
	}

	result, err := search(data, query)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "null", nil
	}

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}
	return string(output), nil
}

// MatchChannels keeps the channels for which a JMESPath predicate is truthy,
// e.g. "locked", "modelId=='model6' && length(activePositions) > `0`".
// An empty predicate keeps every channel.
func MatchChannels(channels []types.Channel, predicate string) ([]types.Channel, error) {
	if strings.TrimSpace(predicate) == "" {
		return channels, nil
	}

	jp, err := jmespath.Compile(predicate)
	if err != nil {
		return nil, fmt.Errorf("invalid JMESPath expression '%s': %w", predicate, err)
	}

	var matched []types.Channel
	for _, ch := range channels {
		data, err := json.Marshal(ch)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal channel %d: %w", ch.Number, err)
		}
		var obj any
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, fmt.Errorf("failed to decode channel %d: %w", ch.Number, err)
		}
		result, err := jp.Search(obj)
		if err != nil {
			return nil, fmt.Errorf("JMESPath search failed: %w", err)
		}
		if truthy(result) {
			matched = append(matched, ch)
		}
	}
	return matched, nil
}

// search applies a JMESPath expression to JSON bytes
func search(data []byte, expression string) (any, error) {
	var obj any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	jp, err := jmespath.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid JMESPath expression '%s': %w", expression, err)
	}

	result, err := jp.Search(obj)
	if err != nil {
		return nil, fmt.Errorf("JMESPath search failed: %w", err)
	}
	return result, nil
}

// truthy follows JMESPath truthiness: false, null, empty strings, arrays and objects are false
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}

func indent(data []byte) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return "", fmt.Errorf("failed to format JSON: %w", err)
	}
	return buf.String(), nil
}

// executeShellCommand executes a shell command with the body piped to stdin
func executeShellCommand(body string, command string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), QueryShellTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stdin = strings.NewReader(body)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		errMsg := err.Error()
		if stderr.Len() > 0 {
			errMsg = strings.TrimSpace(stderr.String())
		}
		return "", fmt.Errorf("command '%s' failed: %s", command, errMsg)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// IsValidJMESPath checks if an expression is valid JMESPath syntax
func IsValidJMESPath(expression string) bool {
	_, err := jmespath.Compile(expression)
	return err == nil
}

// IsShellCommand checks if a query is a shell command (starts with $(...))
func IsShellCommand(query string) bool {
	return shellPattern.MatchString(query)
}
