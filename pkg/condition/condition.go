package condition

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/values"
)

const computedPrefix = "computed."

// Context carries the values a rule reads. Identifiers resolve against Data
// with dot-path traversal; the `computed.` prefix reads from Computed.
type Context struct {
	Data     map[string]any
	Computed map[string]any
}

// FieldContext builds a Context for a single form.
func FieldContext(data model.FormData, computed model.ComputedData) Context {
	return Context{Data: map[string]any(data), Computed: map[string]any(computed)}
}

// StepContext builds a Context over every step partition, keyed by step id,
// so rules read `step1.field1` or `computed.step1.total`.
func StepContext(data map[string]model.FormData, computed map[string]model.ComputedData) Context {
	ctx := Context{
		Data:     make(map[string]any, len(data)),
		Computed: make(map[string]any, len(computed)),
	}
	for id, partition := range data {
		ctx.Data[id] = map[string]any(partition)
	}
	for id, partition := range computed {
		ctx.Computed[id] = map[string]any(partition)
	}
	return ctx
}

// Expression is a compiled rule such as `country == 'malawi' && !skip`.
//
// Supported syntax:
//   - truthiness checks: `enabled`, `!enabled`
//   - comparisons: `==`, `!=` against strings, numbers, booleans and null;
//     `<`, `<=`, `>`, `>=` against numbers
//   - composition: `&&`/`and`, `||`/`or`, `!`/`not`, parentheses
type Expression struct {
	rule string
	root node
}

// Compile parses rule. An empty rule compiles to an always-true expression.
func Compile(rule string) (*Expression, error) {
	trimmed := strings.TrimSpace(rule)
	expr := &Expression{rule: trimmed}
	if trimmed == "" {
		return expr, nil
	}
	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return expr, nil
	}
	p := &parser{tokens: tokens}
	root, err := p.or()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		return nil, fmt.Errorf("condition: unexpected token %s", describe(p.tokens[p.pos]))
	}
	expr.root = root
	return expr, nil
}

// MustCompile is Compile that panics on malformed rules. Use it for rules
// known at compile time.
func MustCompile(rule string) *Expression {
	expr, err := Compile(rule)
	if err != nil {
		panic(err)
	}
	return expr
}

// String returns the source rule.
func (e *Expression) String() string {
	if e == nil {
		return ""
	}
	return e.rule
}

// Eval evaluates the expression against ctx.
func (e *Expression) Eval(ctx Context) (bool, error) {
	if e == nil || e.root == nil {
		return true, nil
	}
	return e.root.eval(ctx)
}

// Field adapts the expression into a field condition. Evaluation errors hide
// the field.
func (e *Expression) Field() model.Condition {
	return func(data model.FormData, computed model.ComputedData) bool {
		ok, err := e.Eval(FieldContext(data, computed))
		return err == nil && ok
	}
}

// Step adapts the expression into a multi-step visibility condition that
// reads every step partition. Evaluation errors hide the step.
func (e *Expression) Step() func(map[string]model.FormData, map[string]model.ComputedData) bool {
	return func(data map[string]model.FormData, computed map[string]model.ComputedData) bool {
		ok, err := e.Eval(StepContext(data, computed))
		return err == nil && ok
	}
}

type node interface {
	eval(ctx Context) (bool, error)
}

type orNode struct{ left, right node }

func (n orNode) eval(ctx Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(ctx)
}

type andNode struct{ left, right node }

func (n andNode) eval(ctx Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(ctx)
}

type notNode struct{ inner node }

func (n notNode) eval(ctx Context) (bool, error) {
	ok, err := n.inner.eval(ctx)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

type truthyNode struct{ path string }

func (n truthyNode) eval(ctx Context) (bool, error) {
	value, ok := lookup(ctx, n.path)
	if !ok {
		return false, nil
	}
	return values.Truthy(value), nil
}

type compareNode struct {
	path    string
	op      tokenKind
	literal token
}

func (n compareNode) eval(ctx Context) (bool, error) {
	value, _ := lookup(ctx, n.path)
	value = scalar(value)

	switch n.literal.kind {
	case tokenNull:
		return n.equality(values.IsUnset(value), "null")
	case tokenBool:
		want := n.literal.raw == "true"
		got, ok := toBool(value)
		return n.equality(ok && got == want, "bool")
	case tokenNumber:
		want, err := strconv.ParseFloat(n.literal.raw, 64)
		if err != nil {
			return false, fmt.Errorf("condition: invalid number literal %q", n.literal.raw)
		}
		got, ok := toNumber(value)
		if !ok {
			if n.op == tokenNeq {
				return true, nil
			}
			return false, nil
		}
		return compareNumbers(n.op, got, want), nil
	default:
		return n.equality(values.String(value) == n.literal.raw, "string")
	}
}

func (n compareNode) equality(equal bool, literal string) (bool, error) {
	switch n.op {
	case tokenEq:
		return equal, nil
	case tokenNeq:
		return !equal, nil
	default:
		return false, fmt.Errorf("condition: operator %s is not supported for %s literals", n.op, literal)
	}
}

func compareNumbers(op tokenKind, got, want float64) bool {
	switch op {
	case tokenEq:
		return got == want
	case tokenNeq:
		return got != want
	case tokenLt:
		return got < want
	case tokenLte:
		return got <= want
	case tokenGt:
		return got > want
	case tokenGte:
		return got >= want
	}
	return false
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) or() (node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.match(tokenOr) {
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) and() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.match(tokenAnd) {
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) unary() (node, error) {
	if p.match(tokenNot) {
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	if p.match(tokenLParen) {
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if !p.match(tokenRParen) {
			return nil, errors.New("condition: missing closing ')'")
		}
		return inner, nil
	}

	if p.pos >= len(p.tokens) {
		return nil, errors.New("condition: unexpected end of expression")
	}
	ident := p.tokens[p.pos]
	if ident.kind != tokenIdentifier {
		return nil, fmt.Errorf("condition: expected identifier, got %s", describe(ident))
	}
	p.pos++

	for _, op := range []tokenKind{tokenEq, tokenNeq, tokenLte, tokenGte, tokenLt, tokenGt} {
		if !p.match(op) {
			continue
		}
		lit, err := p.literal()
		if err != nil {
			return nil, err
		}
		if isOrdering(op) && lit.kind != tokenNumber {
			return nil, fmt.Errorf("condition: operator %s requires a number literal", op)
		}
		return compareNode{path: ident.raw, op: op, literal: lit}, nil
	}
	return truthyNode{path: ident.raw}, nil
}

func isOrdering(op tokenKind) bool {
	return op == tokenLt || op == tokenLte || op == tokenGt || op == tokenGte
}

func (p *parser) match(kind tokenKind) bool {
	if p.pos >= len(p.tokens) || p.tokens[p.pos].kind != kind {
		return false
	}
	p.pos++
	return true
}

func (p *parser) literal() (token, error) {
	if p.pos >= len(p.tokens) {
		return token{}, errors.New("condition: missing literal")
	}
	tok := p.tokens[p.pos]
	p.pos++
	switch tok.kind {
	case tokenString, tokenNumber, tokenBool, tokenNull:
		return tok, nil
	case tokenIdentifier:
		// Bare words compare as strings: `country == malawi`.
		return token{kind: tokenString, raw: tok.raw}, nil
	default:
		return token{}, fmt.Errorf("condition: expected literal, got %s", describe(tok))
	}
}

func lookup(ctx Context, path string) (any, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, false
	}
	if strings.HasPrefix(strings.ToLower(path), computedPrefix) {
		return walk(ctx.Computed, path[len(computedPrefix):])
	}
	return walk(ctx.Data, path)
}

func walk(root map[string]any, path string) (any, bool) {
	if len(root) == 0 || path == "" {
		return nil, false
	}
	if v, ok := root[path]; ok {
		return v, true
	}

	var current any = root
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			return nil, false
		}
		next, ok := child(current, part)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func child(current any, key string) (any, bool) {
	switch typed := current.(type) {
	case map[string]any:
		v, ok := typed[key]
		return v, ok
	case model.FormData:
		v, ok := typed[key]
		return v, ok
	case model.ComputedData:
		v, ok := typed[key]
		return v, ok
	case map[string]string:
		v, ok := typed[key]
		return v, ok
	case model.Option:
		switch key {
		case "value":
			return typed.Value, true
		case "label":
			return typed.Label, true
		default:
			v, ok := typed.Other[key]
			return v, ok
		}
	case []model.Option:
		return length(key, len(typed))
	case []any:
		return length(key, len(typed))
	}
	return nil, false
}

func length(key string, n int) (any, bool) {
	if key == "length" {
		return n, true
	}
	return nil, false
}

// scalar reduces a selected option to its value so `district == 'lilongwe'`
// works for both raw strings and option objects.
func scalar(value any) any {
	switch v := value.(type) {
	case model.Option:
		return v.Value
	case *model.Option:
		if v == nil {
			return nil
		}
		return v.Value
	}
	return value
}

// toBool accepts only bools and strings strconv.ParseBool understands.
func toBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		return parsed, err == nil
	}
	return false, false
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}
