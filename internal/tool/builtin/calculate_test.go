package builtin

import (
	"context"
	"encoding/json"
	"testing"
)

func TestCalculateTool_Basic(t *testing.T) {
	ct := NewCalculateTool()
	cases := []struct {
		expr string
		want float64
	}{
		{"2 + 3", 5},
		{"(2 + 3) * 4", 20},
		{"10 / 4", 2.5},
		{"-5 + 2", -3},
		{"2 * (3 + (4 - 1))", 12},
	}
	for _, c := range cases {
		args, _ := json.Marshal(map[string]string{"expression": c.expr})
		result, err := ct.Execute(context.Background(), args, &testExecutorContext)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", c.expr, err)
		}
		if !result.OK {
			t.Fatalf("%q: unexpected error: %+v", c.expr, result.Error)
		}
		got := result.Result.(map[string]any)["result"].(float64)
		if got != c.want {
			t.Errorf("%q = %v, want %v", c.expr, got, c.want)
		}
	}
}

func TestCalculateTool_DivisionByZero(t *testing.T) {
	ct := NewCalculateTool()
	args, _ := json.Marshal(map[string]string{"expression": "1 / 0"})
	result, err := ct.Execute(context.Background(), args, &testExecutorContext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK {
		t.Error("expected division by zero to fail")
	}
}

func TestCalculateTool_RejectsNonArithmetic(t *testing.T) {
	ct := NewCalculateTool()
	for _, expr := range []string{"foo()", "a + 1", "1 << 2", `"x"`} {
		args, _ := json.Marshal(map[string]string{"expression": expr})
		result, err := ct.Execute(context.Background(), args, &testExecutorContext)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", expr, err)
		}
		if result.OK {
			t.Errorf("%q: expected rejection, got %+v", expr, result.Result)
		}
	}
}

func TestCalculateTool_EmptyExpression(t *testing.T) {
	ct := NewCalculateTool()
	args, _ := json.Marshal(map[string]string{"expression": ""})
	result, err := ct.Execute(context.Background(), args, &testExecutorContext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK {
		t.Error("expected empty expression to be rejected")
	}
}
