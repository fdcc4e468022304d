// Package filter parses AIP-160 filter expressions over the turn ledger and
// renders them either as a SQL WHERE fragment or as an in-memory predicate.
package filter

import (
	"fmt"
	"strings"
	"time"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Turn ledger fields accepted in filters.
const (
	FieldParticipantID = "participant_id"
	FieldKind          = "kind"
	FieldPhase         = "phase"
	FieldCycle         = "cycle"
	FieldFaceID        = "face_id"
	FieldValue         = "value"
	FieldCreatedAt     = "created_at"
)

// TurnDeclarations returns the field declarations for turn filtering.
func TurnDeclarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent(FieldParticipantID, filtering.TypeString),
		filtering.DeclareIdent(FieldKind, filtering.TypeString),
		filtering.DeclareIdent(FieldPhase, filtering.TypeInt),
		filtering.DeclareIdent(FieldCycle, filtering.TypeInt),
		filtering.DeclareIdent(FieldFaceID, filtering.TypeInt),
		filtering.DeclareIdent(FieldValue, filtering.TypeInt),
		filtering.DeclareIdent(FieldCreatedAt, filtering.TypeTimestamp),
	)
}

// columns maps filter fields to turn table columns.
var columns = map[string]string{
	FieldParticipantID: "participant_id",
	FieldKind:          "prompt_kind",
	FieldPhase:         "phase",
	FieldCycle:         "cycle",
	FieldFaceID:        "face_id",
	FieldValue:         "card_value",
	FieldCreatedAt:     "created_at",
}

// SQLCondition represents a SQL WHERE clause fragment with parameters.
type SQLCondition struct {
	// Clause is the SQL WHERE clause (e.g., "phase = ?").
	Clause string
	// Params are the positional parameters for the clause.
	Params []any
}

// Condition is a parsed filter tree. A nil *Condition matches everything.
type Condition struct {
	op    string // AND, OR, NOT, or a comparison operator
	left  *Condition
	right *Condition
	field string
	value any // string or int64; timestamps are unix milliseconds
}

// ParseTurnFilter parses an AIP-160 filter. An empty filter returns nil.
func ParseTurnFilter(filterStr string) (*Condition, error) {
	if strings.TrimSpace(filterStr) == "" {
		return nil, nil
	}
	decls, err := TurnDeclarations()
	if err != nil {
		return nil, fmt.Errorf("create declarations: %w", err)
	}
	parsed, err := filtering.ParseFilterString(filterStr, decls)
	if err != nil {
		return nil, fmt.Errorf("parse filter: %w", err)
	}
	return translateExpr(parsed.CheckedExpr.GetExpr())
}

func translateExpr(e *expr.Expr) (*Condition, error) {
	if e == nil {
		return nil, nil
	}
	call, ok := e.ExprKind.(*expr.Expr_CallExpr)
	if !ok {
		return nil, fmt.Errorf("unsupported expression type: %T", e.ExprKind)
	}
	return translateCall(call.CallExpr)
}

func translateCall(call *expr.Expr_Call) (*Condition, error) {
	switch call.Function {
	case "_&&_", "AND":
		return translateBinary("AND", call.Args)
	case "_||_", "OR":
		return translateBinary("OR", call.Args)
	case "NOT", "-":
		if len(call.Args) != 1 {
			return nil, fmt.Errorf("NOT requires 1 argument")
		}
		inner, err := translateExpr(call.Args[0])
		if err != nil {
			return nil, err
		}
		return &Condition{op: "NOT", left: inner}, nil
	case "_==_", "=":
		return translateComparison(call.Args, "=")
	case "_!=_", "!=":
		return translateComparison(call.Args, "!=")
	case "_<_", "<":
		return translateComparison(call.Args, "<")
	case "_<=_", "<=":
		return translateComparison(call.Args, "<=")
	case "_>_", ">":
		return translateComparison(call.Args, ">")
	case "_>=_", ">=":
		return translateComparison(call.Args, ">=")
	default:
		return nil, fmt.Errorf("unsupported function: %s", call.Function)
	}
}

func translateBinary(op string, args []*expr.Expr) (*Condition, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%s requires 2 arguments", op)
	}
	left, err := translateExpr(args[0])
	if err != nil {
		return nil, err
	}
	right, err := translateExpr(args[1])
	if err != nil {
		return nil, err
	}
	return &Condition{op: op, left: left, right: right}, nil
}

func translateComparison(args []*expr.Expr, op string) (*Condition, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("comparison requires 2 arguments")
	}
	ident, ok := args[0].GetExprKind().(*expr.Expr_IdentExpr)
	if !ok {
		return nil, fmt.Errorf("expected identifier, got %T", args[0].GetExprKind())
	}
	field := ident.IdentExpr.GetName()
	if _, ok := columns[field]; !ok {
		return nil, fmt.Errorf("unknown field: %s", field)
	}
	value, err := extractValue(args[1])
	if err != nil {
		return nil, err
	}
	return &Condition{op: op, field: field, value: value}, nil
}

func extractValue(e *expr.Expr) (any, error) {
	switch kind := e.GetExprKind().(type) {
	case *expr.Expr_ConstExpr:
		switch c := kind.ConstExpr.GetConstantKind().(type) {
		case *expr.Constant_StringValue:
			return c.StringValue, nil
		case *expr.Constant_Int64Value:
			return c.Int64Value, nil
		default:
			return nil, fmt.Errorf("unsupported constant type: %T", c)
		}
	case *expr.Expr_CallExpr:
		if kind.CallExpr.GetFunction() == "timestamp" && len(kind.CallExpr.GetArgs()) == 1 {
			return extractTimestamp(kind.CallExpr.GetArgs()[0])
		}
		return nil, fmt.Errorf("unsupported function in value position: %s", kind.CallExpr.GetFunction())
	default:
		return nil, fmt.Errorf("expected constant or timestamp, got %T", kind)
	}
}

func extractTimestamp(e *expr.Expr) (int64, error) {
	str, ok := e.GetConstExpr().GetConstantKind().(*expr.Constant_StringValue)
	if !ok {
		return 0, fmt.Errorf("timestamp argument must be a constant string")
	}
	t, err := time.Parse(time.RFC3339Nano, str.StringValue)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp format: %s", str.StringValue)
	}
	return t.UTC().UnixMilli(), nil
}

// SQL renders the condition as a WHERE fragment. A nil condition renders
// an empty clause.
func (c *Condition) SQL() SQLCondition {
	if c == nil {
		return SQLCondition{}
	}
	switch c.op {
	case "AND", "OR":
		left, right := c.left.SQL(), c.right.SQL()
		return SQLCondition{
			Clause: fmt.Sprintf("(%s %s %s)", left.Clause, c.op, right.Clause),
			Params: append(append([]any{}, left.Params...), right.Params...),
		}
	case "NOT":
		inner := c.left.SQL()
		return SQLCondition{Clause: fmt.Sprintf("(NOT %s)", inner.Clause), Params: inner.Params}
	default:
		return SQLCondition{Clause: fmt.Sprintf("%s %s ?", columns[c.field], c.op), Params: []any{c.value}}
	}
}

// Match evaluates the condition against field values. Values must be
// strings or int64; timestamps are unix milliseconds.
func (c *Condition) Match(values map[string]any) bool {
	if c == nil {
		return true
	}
	switch c.op {
	case "AND":
		return c.left.Match(values) && c.right.Match(values)
	case "OR":
		return c.left.Match(values) || c.right.Match(values)
	case "NOT":
		return !c.left.Match(values)
	}
	cmp, ok := compare(values[c.field], c.value)
	if !ok {
		return false
	}
	switch c.op {
	case "=":
		return cmp == 0
	case "!=":
		return cmp != 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	}
	return false
}

func compare(a, b any) (int, bool) {
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case int64:
		y, ok := b.(int64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
