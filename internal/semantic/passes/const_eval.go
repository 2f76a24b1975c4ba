package passes

import (
	"fmt"

	"github.com/thirawat27/QB-COM/internal/ast"
	"github.com/thirawat27/QB-COM/internal/semantic"
)

// EvalConstExpr folds a CONST initializer at compile time. Only literals,
// references to already-defined CONSTs, and +-*/  arithmetic (with unary
// -/+/NOT) are foldable; anything else — a variable reference, a function
// call — is rejected, matching this dialect's rule that CONST must be
// resolvable without running the program.
func EvalConstExpr(expr ast.Expression, ctx *semantic.PassContext) (any, semantic.ValueKind, error) {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return e.Value, semantic.KindInt32, nil
	case *ast.FloatLiteral:
		return e.Value, semantic.KindDouble, nil
	case *ast.StringLiteral:
		return e.Value, semantic.KindString, nil
	case *ast.Identifier:
		sym, ok := ctx.Global.Resolve(e.Value)
		if !ok || sym.Kind != semantic.SymConst {
			return nil, semantic.KindEmpty, fmt.Errorf("%q is not a constant", e.Value)
		}
		return sym.Value, sym.Type.Kind, nil
	case *ast.UnaryExpression:
		return evalConstUnary(e, ctx)
	case *ast.BinaryExpression:
		return evalConstBinary(e, ctx)
	case *ast.GroupedExpression:
		return EvalConstExpr(e.Inner, ctx)
	default:
		return nil, semantic.KindEmpty, fmt.Errorf("expression is not a compile-time constant")
	}
}

func evalConstUnary(e *ast.UnaryExpression, ctx *semantic.PassContext) (any, semantic.ValueKind, error) {
	val, kind, err := EvalConstExpr(e.Right, ctx)
	if err != nil {
		return nil, semantic.KindEmpty, err
	}
	switch e.Operator {
	case "-":
		switch v := val.(type) {
		case int64:
			return -v, kind, nil
		case float64:
			return -v, kind, nil
		}
	case "+":
		return val, kind, nil
	case "NOT":
		if v, ok := val.(int64); ok {
			return ^v, kind, nil
		}
	}
	return nil, semantic.KindEmpty, fmt.Errorf("operator %s is not valid in a constant expression", e.Operator)
}

func evalConstBinary(e *ast.BinaryExpression, ctx *semantic.PassContext) (any, semantic.ValueKind, error) {
	lv, lk, err := EvalConstExpr(e.Left, ctx)
	if err != nil {
		return nil, semantic.KindEmpty, err
	}
	rv, rk, err := EvalConstExpr(e.Right, ctx)
	if err != nil {
		return nil, semantic.KindEmpty, err
	}

	if ls, ok := lv.(string); ok {
		rs, ok2 := rv.(string)
		if !ok2 || e.Operator != "+" {
			return nil, semantic.KindEmpty, fmt.Errorf("invalid constant string expression")
		}
		return ls + rs, semantic.KindString, nil
	}

	kind := semantic.WidenNumeric(lk, rk)
	lf, rf := toFloat(lv), toFloat(rv)
	var result float64
	switch e.Operator {
	case "+":
		result = lf + rf
	case "-":
		result = lf - rf
	case "*":
		result = lf * rf
	case "/":
		if rf == 0 {
			return nil, semantic.KindEmpty, fmt.Errorf("division by zero in constant expression")
		}
		result = lf / rf
		kind = semantic.WidenNumeric(kind, semantic.KindSingle)
	default:
		return nil, semantic.KindEmpty, fmt.Errorf("operator %s is not valid in a constant expression", e.Operator)
	}

	if kind == semantic.KindSingle || kind == semantic.KindDouble {
		return result, kind, nil
	}
	return int64(result), kind, nil
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}
