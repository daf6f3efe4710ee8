package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/localcmd/assistant/internal/tool"
)

// CalculateTool evaluates a basic arithmetic expression (+ - * / ( ) and
// float literals). One of trust.SafeTools: it never touches a capability,
// so it's reachable even with no agent bound. Evaluation walks the AST
// go/parser produces, which already gives a correct expression grammar
// for this narrow subset of arithmetic.
type CalculateTool struct{}

func NewCalculateTool() *CalculateTool { return &CalculateTool{} }

func (t *CalculateTool) Name() string { return "calculate" }
func (t *CalculateTool) Description() string {
	return "Evaluate a basic arithmetic expression (+, -, *, /, parentheses, decimal numbers)."
}

func (t *CalculateTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "expression", Type: "string", Description: "arithmetic expression, e.g. (2 + 3) * 4", Required: true},
	)
}

func (t *CalculateTool) Init(_ context.Context) error { return nil }
func (t *CalculateTool) Close() error                 { return nil }

type calculateArgs struct {
	Expression string `json:"expression"`
}

func (t *CalculateTool) Execute(_ context.Context, args json.RawMessage, _ *tool.ExecutorContext) (tool.ToolResult, error) {
	var a calculateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Err(tool.CodeValidationError, fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	expr := strings.TrimSpace(a.Expression)
	if expr == "" {
		return tool.Err(tool.CodeValidationError, "expression must not be empty"), nil
	}

	result, err := evalArithmetic(expr)
	if err != nil {
		return tool.Err(tool.CodeValidationError, fmt.Sprintf("could not evaluate %q: %v", expr, err)), nil
	}
	return tool.Ok(map[string]any{"result": result}), nil
}

// evalArithmetic parses expr as a Go expression and walks the resulting
// AST, allowing only +, -, *, /, unary +/-, parentheses, and numeric
// literals — anything else (identifiers, calls, bitwise ops) is rejected
// before it can be evaluated.
func evalArithmetic(expr string) (float64, error) {
	node, err := parser.ParseExpr(expr)
	if err != nil {
		return 0, fmt.Errorf("not a valid arithmetic expression: %w", err)
	}
	return evalNode(node)
}

func evalNode(n ast.Expr) (float64, error) {
	switch e := n.(type) {
	case *ast.ParenExpr:
		return evalNode(e.X)
	case *ast.BasicLit:
		if e.Kind != token.INT && e.Kind != token.FLOAT {
			return 0, fmt.Errorf("unsupported literal %q", e.Value)
		}
		var v float64
		if _, err := fmt.Sscanf(e.Value, "%g", &v); err != nil {
			return 0, fmt.Errorf("could not parse number %q", e.Value)
		}
		return v, nil
	case *ast.UnaryExpr:
		v, err := evalNode(e.X)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case token.ADD:
			return v, nil
		case token.SUB:
			return -v, nil
		default:
			return 0, fmt.Errorf("unsupported unary operator %q", e.Op)
		}
	case *ast.BinaryExpr:
		left, err := evalNode(e.X)
		if err != nil {
			return 0, err
		}
		right, err := evalNode(e.Y)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case token.ADD:
			return left + right, nil
		case token.SUB:
			return left - right, nil
		case token.MUL:
			return left * right, nil
		case token.QUO:
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return left / right, nil
		default:
			return 0, fmt.Errorf("unsupported operator %q", e.Op)
		}
	default:
		return 0, fmt.Errorf("unsupported expression syntax")
	}
}
