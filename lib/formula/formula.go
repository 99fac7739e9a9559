// Package formula implements the constrained arithmetic expression language
// used by spell, ability and status-tick definitions. Expressions are parsed
// into a small AST once and evaluated against a flat variable scope; there is
// no general-purpose interpreter behind them. Supported syntax: float/integer
// literals, identifiers, + - * / %, parentheses, comparison operators
// (< <= > >= == !=), the boolean keywords and/or/not, and the function set
// min/max/abs/int/float. Boolean results evaluate to 1 or 0.
package formula

import (
	"fmt"
	"math"
	"strings"
	"sync"
)

// Scope is the closed set of variables an expression may read.
type Scope map[string]float64

// forbidden substrings rejected at parse time, case-insensitively. These
// mirror the validation applied to stored content before it ever reaches
// the evaluator.
var forbidden = []string{
	"__", "import", "exec", "eval", "compile", "open", "file", "input", "os.", "sys.",
}

// Compiled is a parsed, reusable expression.
type Compiled struct {
	src  string
	root node
}

// Source returns the original expression text.
func (c *Compiled) Source() string { return c.src }

var (
	cacheMu sync.RWMutex
	cache   = make(map[string]*Compiled)
)

// Parse compiles an expression, consulting a process-wide cache so each
// distinct formula string is parsed once.
func Parse(expr string) (*Compiled, error) {
	cacheMu.RLock()
	compiled, ok := cache[expr]
	cacheMu.RUnlock()
	if ok {
		return compiled, nil
	}

	if err := Validate(expr); err != nil {
		return nil, err
	}

	tokens, err := lex(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, fmt.Errorf("formula %q: unexpected token %q", expr, p.peek().text)
	}

	compiled = &Compiled{src: expr, root: root}
	cacheMu.Lock()
	cache[expr] = compiled
	cacheMu.Unlock()
	return compiled, nil
}

// Validate rejects expressions containing forbidden tokens without
// evaluating them.
func Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return fmt.Errorf("empty formula")
	}
	lower := strings.ToLower(expr)
	for _, bad := range forbidden {
		if strings.Contains(lower, bad) {
			return fmt.Errorf("formula %q: forbidden token %q", expr, bad)
		}
	}
	return nil
}

// Eval evaluates the compiled expression against a scope. Unknown
// identifiers are an error; callers decide whether that is fatal.
func (c *Compiled) Eval(scope Scope) (float64, error) {
	value, err := c.root.eval(scope)
	if err != nil {
		return 0, fmt.Errorf("formula %q: %w", c.src, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("formula %q: non-finite result", c.src)
	}
	return value, nil
}

// Eval is the convenience parse-and-evaluate entry point.
func Eval(expr string, scope Scope) (float64, error) {
	compiled, err := Parse(expr)
	if err != nil {
		return 0, err
	}
	return compiled.Eval(scope)
}

// Truthy converts an evaluated value to a predicate result.
func Truthy(value float64) bool { return value != 0 }
