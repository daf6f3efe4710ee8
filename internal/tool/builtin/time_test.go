package builtin

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestTimeTool_Interface(t *testing.T) {
	tl := NewTimeTool()
	if tl.Name() != "get_time" {
		t.Errorf("Name() = %q, want %q", tl.Name(), "get_time")
	}
	if tl.Description() == "" {
		t.Error("Description() should not be empty")
	}
	if len(tl.InputSchema()) == 0 {
		t.Error("InputSchema() should not be empty")
	}
	if err := tl.Init(context.Background()); err != nil {
		t.Errorf("Init() error: %v", err)
	}
	if err := tl.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestTimeTool_NoTimezone(t *testing.T) {
	tl := NewTimeTool()
	result, err := tl.Execute(context.Background(), []byte(`{}`), &testExecutorContext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Fatalf("unexpected error: %+v", result.Error)
	}
	m := result.Result.(map[string]any)
	if !strings.Contains(m["display"].(string), "-") {
		t.Errorf("display %q should contain date with dashes", m["display"])
	}
}

func TestTimeTool_ValidTimezone(t *testing.T) {
	tl := NewTimeTool()
	args, _ := json.Marshal(map[string]string{"timezone": "Asia/Shanghai"})
	result, err := tl.Execute(context.Background(), args, &testExecutorContext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Fatalf("unexpected error: %+v", result.Error)
	}
	m := result.Result.(map[string]any)
	if !strings.Contains(m["display"].(string), "CST") {
		t.Errorf("display %q should contain CST for Asia/Shanghai", m["display"])
	}
}

func TestTimeTool_InvalidTimezone(t *testing.T) {
	tl := NewTimeTool()
	args, _ := json.Marshal(map[string]string{"timezone": "Invalid/Zone"})
	result, err := tl.Execute(context.Background(), args, &testExecutorContext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK {
		t.Error("expected error for invalid timezone")
	}
	if result.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q, want VALIDATION_ERROR", result.Error.Code)
	}
}

func TestTimeTool_BadJSON(t *testing.T) {
	tl := NewTimeTool()
	result, err := tl.Execute(context.Background(), []byte(`not json`), &testExecutorContext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK {
		t.Error("expected error for invalid JSON")
	}
}

func TestTimeTool_NilArgs(t *testing.T) {
	tl := NewTimeTool()
	result, err := tl.Execute(context.Background(), nil, &testExecutorContext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Errorf("unexpected error for nil args: %+v", result.Error)
	}
}

func TestTimeTool_OutputFormat(t *testing.T) {
	tl := NewTimeTool()
	result, err := tl.Execute(context.Background(), []byte(`{}`), &testExecutorContext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := result.Result.(map[string]any)
	display := m["display"].(string)
	if !strings.Contains(display, "(") || !strings.Contains(display, ")") {
		t.Errorf("display %q should contain weekday in parentheses", display)
	}
}
