// Package mcp serves the CI monitor's tools and prompts to agents over the
// Model Context Protocol: JSON-RPC 2.0, one message per line on stdio.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/shohag/cimonitor/internal/events"
	"github.com/shohag/cimonitor/internal/notify"
	"github.com/shohag/cimonitor/internal/prompts"
)

const serverName = "github-ci-monitor"

// Notifier delivers a message and describes the outcome.
type Notifier interface {
	Send(ctx context.Context, message string) notify.Result
}

type Server struct {
	events      *events.Service
	notifier    Notifier
	version     string
	log         zerolog.Logger
	tools       []tool
	toolsByName map[string]*tool
	initialized bool
}

func NewServer(svc *events.Service, notifier Notifier, version string, log zerolog.Logger) *Server {
	s := &Server{
		events:   svc,
		notifier: notifier,
		version:  version,
		log:      log,
	}
	s.tools = s.buildTools()
	s.toolsByName = make(map[string]*tool, len(s.tools))
	for i := range s.tools {
		s.toolsByName[s.tools[i].name] = &s.tools[i]
	}
	return s
}

// Run processes requests from input and writes responses to output until
// input reaches EOF.
func (s *Server) Run(ctx context.Context, input io.Reader, output io.Writer) error {
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	encoder := json.NewEncoder(output)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			if writeErr := writeError(encoder, json.RawMessage("null"), codeParseError, "parse error: "+err.Error()); writeErr != nil {
				return fmt.Errorf("writing parse error response: %w", writeErr)
			}
			continue
		}

		if req.JSONRPC != "2.0" {
			if !req.isNotification() {
				if writeErr := writeError(encoder, req.ID, codeInvalidRequest, "unsupported JSON-RPC version"); writeErr != nil {
					return fmt.Errorf("writing version error response: %w", writeErr)
				}
			}
			continue
		}

		if req.isNotification() {
			s.log.Debug().Str("method", req.Method).Msg("mcp notification")
			continue
		}

		if err := s.dispatch(ctx, encoder, &req); err != nil {
			return err
		}
	}

	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, encoder *json.Encoder, req *request) error {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(encoder, req)
	case "ping":
		return writeResult(encoder, req.ID, map[string]any{})
	case "tools/list", "tools/call", "prompts/list", "prompts/get":
		if !s.initialized {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
	default:
		return writeError(encoder, req.ID, codeMethodNotFound, "unknown method: "+req.Method)
	}

	switch req.Method {
	case "tools/list":
		return s.handleToolsList(encoder, req)
	case "tools/call":
		return s.handleToolsCall(ctx, encoder, req)
	case "prompts/list":
		return s.handlePromptsList(encoder, req)
	default:
		return s.handlePromptsGet(encoder, req)
	}
}

func (s *Server) handleInitialize(encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for initialize")
	}

	var params initializeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid initialize params: "+err.Error())
	}

	s.initialized = true
	s.log.Info().
		Str("client", params.ClientInfo.Name).
		Str("client_version", params.ClientInfo.Version).
		Str("requested_protocol", params.ProtocolVersion).
		Msg("mcp session initialized")

	return writeResult(encoder, req.ID, initializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: serverCapabilities{
			Tools:   &listCapability{},
			Prompts: &listCapability{},
		},
		ServerInfo: serverInfo{
			Name:    serverName,
			Version: s.version,
		},
	})
}

func (s *Server) handleToolsList(encoder *json.Encoder, req *request) error {
	descriptions := make([]toolDescription, 0, len(s.tools))
	for _, t := range s.tools {
		descriptions = append(descriptions, t.describe())
	}
	return writeResult(encoder, req.ID, toolsListResult{Tools: descriptions})
}

func (s *Server) handleToolsCall(ctx context.Context, encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for tools/call")
	}

	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid tools/call params: "+err.Error())
	}

	t, ok := s.toolsByName[params.Name]
	if !ok {
		return writeError(encoder, req.ID, codeInvalidParams, "unknown tool: "+params.Name)
	}

	result, err := t.call(ctx, params.Arguments)
	if err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, fmt.Sprintf("invalid arguments for %s: %v", t.name, err))
	}

	s.log.Info().Str("tool", t.name).Bool("is_error", result.IsError).Msg("mcp tool call")
	return writeResult(encoder, req.ID, result)
}

func (s *Server) handlePromptsList(encoder *json.Encoder, req *request) error {
	all := prompts.All()
	descriptions := make([]promptDescription, 0, len(all))
	for _, p := range all {
		descriptions = append(descriptions, promptDescription{Name: p.Name, Description: p.Description})
	}
	return writeResult(encoder, req.ID, promptsListResult{Prompts: descriptions})
}

func (s *Server) handlePromptsGet(encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for prompts/get")
	}

	var params promptsGetParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid prompts/get params: "+err.Error())
	}

	for _, p := range prompts.All() {
		if p.Name != params.Name {
			continue
		}
		return writeResult(encoder, req.ID, promptsGetResult{
			Description: p.Description,
			Messages: []promptMessage{{
				Role:    "user",
				Content: contentBlock{Type: "text", Text: p.Text},
			}},
		})
	}
	return writeError(encoder, req.ID, codeInvalidParams, "unknown prompt: "+params.Name)
}

func writeResult(encoder *json.Encoder, id json.RawMessage, result any) error {
	return encoder.Encode(response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

func writeError(encoder *json.Encoder, id json.RawMessage, code int, message string) error {
	return encoder.Encode(response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &rpcError{Code: code, Message: message},
	})
}
