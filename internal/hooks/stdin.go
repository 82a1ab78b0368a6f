// Package hooks defines the wire types for session gate hooks: the
// stdin JSON each hook event carries and the decision types the engine
// answers with.
package hooks

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/nicsuzor/aops/pkg/models"
)

// ToolUseInput is the stdin JSON for PreToolUse hooks.
type ToolUseInput struct {
	SessionID string         `json:"session_id"`
	ToolName  string         `json:"tool_name"`
	ToolInput map[string]any `json:"tool_input"`
}

// FilePath returns the file_path from tool_input, or empty string if
// absent or non-string.
func (p ToolUseInput) FilePath() string {
	if p.ToolInput == nil {
		return ""
	}
	fp, ok := p.ToolInput["file_path"].(string)
	if !ok {
		return ""
	}
	return fp
}

// ToolResultInput is the stdin JSON for PostToolUse hooks.
type ToolResultInput struct {
	SessionID string         `json:"session_id"`
	ToolName  string         `json:"tool_name"`
	ToolInput map[string]any `json:"tool_input"`
	Success   bool           `json:"success"`
}

// StopInput is the stdin JSON for Stop hooks. Handover carries the
// structured session-end reflection; a missing or malformed handover
// leaves handover_complete unset.
type StopInput struct {
	SessionID string           `json:"session_id"`
	Handover  *models.Handover `json:"handover,omitempty"`
}

// ParseStdin reads JSON from the given reader into a new instance of T.
// Empty input yields a zero value rather than an error.
func ParseStdin[T any](r io.Reader) (*T, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	if len(data) == 0 {
		var zero T
		return &zero, nil
	}
	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parsing stdin JSON: %w", err)
	}
	return &result, nil
}
