package builtin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestReadURLTool_Interface(t *testing.T) {
	rt := NewReadURLTool(true)
	if rt.Name() != "read_url" {
		t.Errorf("Name() = %q, want read_url", rt.Name())
	}
	if rt.Description() == "" {
		t.Error("Description() should not be empty")
	}
	if len(rt.InputSchema()) == 0 {
		t.Error("InputSchema() should not be empty")
	}
}

func TestReadURLTool_RejectsNonHTTP(t *testing.T) {
	rt := NewReadURLTool(true)
	args, _ := json.Marshal(map[string]string{"url": "file:///etc/passwd"})
	result, err := rt.Execute(context.Background(), args, &testExecutorContext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK {
		t.Error("expected rejection of non-http(s) URL")
	}
}

func TestReadURLTool_ExtractsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><title>Hello Page</title>
<meta name="description" content="A test page"></head>
<body><nav>skip me</nav><article><p>Main content here.</p></article></body></html>`))
	}))
	defer srv.Close()

	// allowInternal=true: httptest.Server listens on 127.0.0.1, which the
	// default SSRF guard would otherwise refuse to dial.
	rt := NewReadURLTool(true)
	args, _ := json.Marshal(map[string]string{"url": srv.URL})
	result, err := rt.Execute(context.Background(), args, &testExecutorContext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Fatalf("unexpected error: %+v", result.Error)
	}
	m := result.Result.(map[string]any)
	out := m["output"].(string)
	if !strings.Contains(out, "Hello Page") {
		t.Errorf("output %q should contain title", out)
	}
	if !strings.Contains(out, "Main content here") {
		t.Errorf("output %q should contain article body", out)
	}
	if strings.Contains(out, "skip me") {
		t.Errorf("output %q should not contain nav content", out)
	}
}

func TestReadURLTool_BlocksInternalByDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("should never be reached"))
	}))
	defer srv.Close()

	rt := NewReadURLTool(false)
	args, _ := json.Marshal(map[string]string{"url": srv.URL})
	result, err := rt.Execute(context.Background(), args, &testExecutorContext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK {
		t.Error("expected internal address to be blocked by default")
	}
}

func TestReadURLTool_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	rt := NewReadURLTool(true)
	args, _ := json.Marshal(map[string]string{"url": srv.URL})
	result, err := rt.Execute(context.Background(), args, &testExecutorContext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK {
		t.Error("expected failure for 404 response")
	}
}

func TestReadURLTool_PlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("just plain text"))
	}))
	defer srv.Close()

	rt := NewReadURLTool(true)
	args, _ := json.Marshal(map[string]string{"url": srv.URL})
	result, err := rt.Execute(context.Background(), args, &testExecutorContext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Fatalf("unexpected error: %+v", result.Error)
	}
	m := result.Result.(map[string]any)
	if m["output"].(string) != "just plain text" {
		t.Errorf("output = %q", m["output"])
	}
}

func TestCollapseBlankLines(t *testing.T) {
	in := "a\n\n\n\nb\nc"
	want := "a\n\nb\nc"
	if got := collapseBlankLines(in); got != want {
		t.Errorf("collapseBlankLines(%q) = %q, want %q", in, got, want)
	}
}

func TestIsBlockElement(t *testing.T) {
	if !isBlockElement("p") {
		t.Error("p should be a block element")
	}
	if isBlockElement("span") {
		t.Error("span should not be a block element")
	}
}
