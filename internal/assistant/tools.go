// Package assistant connects the conversational model to the lead repository.
//
// The model never touches storage directly. It requests one of a closed set of
// tools, the Bridge runs the matching repository call, and every result is sent
// back to the model correlated by the call id it came with.
package assistant

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	ToolGetLeads               = "get_leads"
	ToolGetLeadDetails         = "get_lead_details"
	ToolUpdateLeadIntelligence = "update_lead_intelligence"
)

// ToolDefinition describes a tool the model may invoke. Parameters is a JSON
// Schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall is one structured request emitted by the model.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`

	// Opaque model state that has to travel back with the call on the follow-up.
	ThoughtSignature []byte `json:"-"`
}

// ToolResult answers exactly one ToolCall. Error holds a message meant for the
// model to read; a result with Error set is still forwarded.
type ToolResult struct {
	CallID  string         `json:"call_id"`
	Name    string         `json:"name"`
	Content map[string]any `json:"content,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Payload is what the model sees for this result.
func (r ToolResult) Payload() map[string]any {
	if r.Error != "" {
		return map[string]any{"error": r.Error}
	}
	if r.Content == nil {
		return map[string]any{}
	}
	return r.Content
}

// Definitions lists the closed tool set.
func Definitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        ToolGetLeads,
			Description: "List the scouted business leads currently in the command center, newest first.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"filter_saved": map[string]any{
						"type":        "boolean",
						"description": "Only return leads the user has saved to their pipeline.",
					},
				},
			},
		},
		{
			Name:        ToolGetLeadDetails,
			Description: "Get the full record of one lead, including market gaps, pitch angle, notes and proposal.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":        "string",
						"description": "The lead id.",
					},
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        ToolUpdateLeadIntelligence,
			Description: "Record strategy for a lead. Only the fields provided are changed.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":        "string",
						"description": "The lead id.",
					},
					"notes": map[string]any{
						"type":        "string",
						"description": "Free-form notes about the lead.",
					},
					"proposal": map[string]any{
						"type":        "string",
						"description": "A drafted proposal for the lead.",
					},
					"pitchAngle": map[string]any{
						"type":        "string",
						"description": "The tactical pitch angle to lead with.",
					},
				},
				"required": []string{"id"},
			},
		},
	}
}

func knownTool(name string) bool {
	switch name {
	case ToolGetLeads, ToolGetLeadDetails, ToolUpdateLeadIntelligence:
		return true
	}
	return false
}

// argString reads a tool argument as text. Numbers decoded from JSON are
// formatted back without a trailing exponent.
func argString(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case fmt.Stringer:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return fmt.Sprint(t), true
	}
}

// argBool reads a flag argument. Model arguments arrive as decoded JSON, so a
// boolean may show up as a string or a number.
func argBool(args map[string]any, key string) bool {
	switch t := args[key].(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	case float64:
		return t != 0
	default:
		return false
	}
}

func requiredID(args map[string]any) (string, error) {
	id, _ := argString(args, "id")
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("missing required argument: id")
	}
	return id, nil
}
