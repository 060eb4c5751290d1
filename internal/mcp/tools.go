package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shohag/cimonitor/internal/events"
)

// tool is one callable operation. call returns an error only for bad
// arguments; failures while running the tool are reported in the result.
type tool struct {
	name        string
	title       string
	description string
	inputSchema map[string]any
	annotations *toolAnnotations
	call        func(ctx context.Context, args json.RawMessage) (toolsCallResult, error)
}

func (t *tool) describe() toolDescription {
	return toolDescription{
		Name:        t.name,
		Title:       t.title,
		Description: t.description,
		InputSchema: t.inputSchema,
		Annotations: t.annotations,
	}
}

func (s *Server) buildTools() []tool {
	readOnly := &toolAnnotations{
		ReadOnlyHint:    boolPtr(true),
		DestructiveHint: boolPtr(false),
		IdempotentHint:  boolPtr(true),
		OpenWorldHint:   boolPtr(false),
	}

	return []tool{
		{
			name:        "get_recent_actions_events",
			title:       "Recent GitHub events",
			description: "Return the most recent GitHub webhook events, oldest first.",
			inputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"limit": map[string]any{
						"type":        "integer",
						"description": "number of events to return",
						"default":     events.DefaultRecentLimit,
					},
				},
			},
			annotations: readOnly,
			call:        s.callRecentEvents,
		},
		{
			name:        "get_workflow_status",
			title:       "Workflow status",
			description: "Summarize the latest conclusion of every GitHub Actions workflow seen in workflow_run events.",
			inputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
			annotations: readOnly,
			call:        s.callWorkflowStatus,
		},
		{
			name:        "send_slack_notification",
			title:       "Send Slack notification",
			description: "Post a markdown message to the configured Slack incoming webhook and report the outcome.",
			inputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"message": map[string]any{
						"type":        "string",
						"description": "message text, Slack mrkdwn is supported",
					},
				},
				"required": []string{"message"},
			},
			annotations: &toolAnnotations{
				ReadOnlyHint:    boolPtr(false),
				DestructiveHint: boolPtr(false),
				IdempotentHint:  boolPtr(false),
				OpenWorldHint:   boolPtr(true),
			},
			call: s.callSendNotification,
		},
	}
}

func (s *Server) callRecentEvents(ctx context.Context, args json.RawMessage) (toolsCallResult, error) {
	var params struct {
		Limit *int `json:"limit"`
	}
	if err := decodeArguments(args, &params); err != nil {
		return toolsCallResult{}, err
	}
	limit := events.DefaultRecentLimit
	if params.Limit != nil {
		limit = *params.Limit
	}

	recent, err := s.events.Recent(ctx, limit)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to read events: %v", err)), nil
	}
	return jsonResult(recent)
}

func (s *Server) callWorkflowStatus(ctx context.Context, args json.RawMessage) (toolsCallResult, error) {
	var params struct{}
	if err := decodeArguments(args, &params); err != nil {
		return toolsCallResult{}, err
	}

	status, err := s.events.WorkflowStatus(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to read events: %v", err)), nil
	}
	return jsonResult(status)
}

func (s *Server) callSendNotification(ctx context.Context, args json.RawMessage) (toolsCallResult, error) {
	var params struct {
		Message *string `json:"message"`
	}
	if err := decodeArguments(args, &params); err != nil {
		return toolsCallResult{}, err
	}
	if params.Message == nil {
		return toolsCallResult{}, errors.New("message is required")
	}

	// The outcome is text either way; the agent reads it rather than an
	// error flag.
	result := s.notifier.Send(ctx, *params.Message)
	return textResult(result.String()), nil
}

// decodeArguments unmarshals tool arguments; absent or null arguments leave
// dst untouched.
func decodeArguments(args json.RawMessage, dst any) error {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return json.Unmarshal(trimmed, dst)
}

func jsonResult(v any) (toolsCallResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return textResult(string(data)), nil
}

func textResult(text string) toolsCallResult {
	return toolsCallResult{Content: []contentBlock{{Type: "text", Text: text}}}
}

func errorResult(text string) toolsCallResult {
	r := textResult(text)
	r.IsError = true
	return r
}

func boolPtr(value bool) *bool {
	return &value
}
