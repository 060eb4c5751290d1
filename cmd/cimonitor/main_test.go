package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/shohag/cimonitor/internal/models"
	"github.com/shohag/cimonitor/internal/storage"
)

// writeConfig points the JSON store into a temp dir and returns the config
// path and the log path.
func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "github_events.json")
	cfgPath := filepath.Join(dir, "cimonitor.yaml")
	cfg := "storage:\n  driver: json\n  json:\n    path: " + logPath + "\nlogging:\n  level: error\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath, logPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func seed(t *testing.T, logPath string, payloads ...string) {
	t.Helper()
	store := storage.NewJSONFile(afero.NewOsFs(), logPath)
	for i, p := range payloads {
		v, err := models.ParseValue([]byte(p))
		if err != nil {
			t.Fatalf("ParseValue: %v", err)
		}
		event := models.NewEvent(time.Date(2025, 5, 1, 0, 0, i, 0, time.UTC), nil, v)
		if err := store.Append(context.Background(), &event); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
}

func TestEventsCommand(t *testing.T) {
	cfgPath, logPath := writeConfig(t)

	out, err := run(t, "events", "--config", cfgPath)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Fatalf("events on missing log = %q", out)
	}

	seed(t, logPath, `{"n":1}`, `{"n":2}`, `{"n":3}`)
	out, err = run(t, "events", "--config", cfgPath, "--limit", "2")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	var got []models.Event
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
}

func TestStatusCommand(t *testing.T) {
	cfgPath, logPath := writeConfig(t)
	seed(t, logPath,
		`{"workflow_run":{"name":"CI","conclusion":"failure"}}`,
		`{"workflow_run":{"name":"CI","conclusion":"success"}}`,
	)

	out, err := run(t, "status", "-c", cfgPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var status map[string]any
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if status["CI"] != "success" {
		t.Fatalf("status = %v", status)
	}
}

func TestNotifyCommandWithoutURL(t *testing.T) {
	t.Setenv("SLACK_WEBHOOK_URL", "")
	t.Setenv("CIMONITOR_NOTIFY_SLACK_WEBHOOK_URL", "")
	cfgPath, logPath := writeConfig(t)

	out, err := run(t, "notify", "-c", cfgPath, "build finished")
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if !strings.Contains(out, "SLACK_WEBHOOK_URL is not configured") {
		t.Fatalf("output = %q", out)
	}
	if _, err := os.Stat(logPath); !os.IsNotExist(err) {
		t.Fatalf("notify touched the event log: %v", err)
	}
}

func TestPromptCommand(t *testing.T) {
	out, err := run(t, "prompt", "create_deployment_summary")
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if strings.TrimSpace(out) != "Create a team-friendly deployment summary based on recent CI/CD results." {
		t.Fatalf("output = %q", out)
	}

	out, err = run(t, "prompt")
	if err != nil {
		t.Fatalf("prompt list: %v", err)
	}
	if !strings.Contains(out, "troubleshoot_workflow_failure") {
		t.Fatalf("list output = %q", out)
	}

	if _, err := run(t, "prompt", "missing"); err == nil {
		t.Fatal("expected error for unknown prompt")
	}
}

func TestUnsupportedStorageDriver(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cimonitor.yaml")
	if err := os.WriteFile(cfgPath, []byte("storage:\n  driver: cassandra\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := run(t, "events", "-c", cfgPath); err == nil || !strings.Contains(err.Error(), "unsupported storage driver") {
		t.Fatalf("err = %v", err)
	}
}

func TestMCPCommandOnFreshSQLite(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cimonitor.db")
	cfgPath := filepath.Join(dir, "cimonitor.yaml")
	cfg := "storage:\n  driver: sqlite\n  sqlite:\n    path: " + dbPath + "\nlogging:\n  level: error\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"test","version":"0"}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"get_recent_actions_events","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"get_workflow_status","arguments":{}}}`,
	}, "\n") + "\n"

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"mcp", "-c", cfgPath})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("mcp: %v\n%s", err, errOut.String())
	}

	type toolResponse struct {
		ID     int `json:"id"`
		Result struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
	}
	want := map[int]string{2: "[]", 3: "{}"}
	dec := json.NewDecoder(&out)
	seen := 0
	for dec.More() {
		var resp toolResponse
		if err := dec.Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		expected, ok := want[resp.ID]
		if !ok {
			continue
		}
		seen++
		if resp.Result.IsError {
			t.Fatalf("id %d: tool error %+v", resp.ID, resp.Result.Content)
		}
		if len(resp.Result.Content) != 1 || resp.Result.Content[0].Text != expected {
			t.Fatalf("id %d: content = %+v, want %s", resp.ID, resp.Result.Content, expected)
		}
	}
	if seen != len(want) {
		t.Fatalf("got %d tool responses, want %d", seen, len(want))
	}
}
