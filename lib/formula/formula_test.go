package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEval_Arithmetic(t *testing.T) {
	scope := Scope{"AD": 20, "AP": 50}

	tests := []struct {
		name string
		expr string
		want float64
	}{
		{"plain number", "42", 42},
		{"variable", "AD", 20},
		{"multiply", "AD * 1.5", 30},
		{"precedence", "AD + AP * 2", 120},
		{"parentheses", "(AD + AP) * 2", 140},
		{"division", "AP / 2", 25},
		{"modulo", "AP % 7", 1},
		{"unary minus", "-AD + 30", 10},
		{"mixed", "AD * 1.5 + 50", 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Eval(tt.expr, scope)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestEval_Functions(t *testing.T) {
	scope := Scope{"AD": 20, "AP": 50}

	tests := []struct {
		expr string
		want float64
	}{
		{"max(AD, AP)", 50},
		{"min(AD, AP)", 20},
		{"abs(-5)", 5},
		{"int(7.9)", 7},
		{"float(3)", 3},
		{"100 + max(AD, AP) * 0.5", 125},
		{"max(1, 2, 3)", 3},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Eval(tt.expr, scope)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestEval_Predicates(t *testing.T) {
	scope := Scope{"T_HP_PERCENT": 0.25, "S_STACKS_BURN": 3}

	tests := []struct {
		expr string
		want bool
	}{
		{"T_HP_PERCENT < 0.3", true},
		{"T_HP_PERCENT >= 0.3", false},
		{"T_HP_PERCENT == 0.25", true},
		{"T_HP_PERCENT != 0.25", false},
		{"T_HP_PERCENT < 0.3 and S_STACKS_BURN >= 3", true},
		{"T_HP_PERCENT > 0.3 or S_STACKS_BURN >= 3", true},
		{"not T_HP_PERCENT < 0.3", false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Eval(tt.expr, scope)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Truthy(got))
		})
	}
}

func TestEval_Errors(t *testing.T) {
	scope := Scope{"AD": 20}

	for _, expr := range []string{
		"UNKNOWN_VAR * 2",
		"AD /",
		"AD )",
		"foo(1)",
		"AD / 0",
		"min()",
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := Eval(expr, scope)
			assert.Error(t, err)
		})
	}
}

func TestValidate_RejectsForbiddenTokens(t *testing.T) {
	for _, expr := range []string{
		"__class__",
		"import os",
		"exec(1)",
		"eval(1)",
		"compile(1)",
		"open(1)",
		"os.system",
		"sys.exit",
		"IMPORT X",
	} {
		t.Run(expr, func(t *testing.T) {
			assert.Error(t, Validate(expr))
			_, err := Parse(expr)
			assert.Error(t, err)
		})
	}

	assert.NoError(t, Validate("AD * 1.5 + max(AP, 10)"))
	assert.Error(t, Validate("   "))
}

func TestParse_Cache(t *testing.T) {
	first, err := Parse("AD * 2 + 1")
	require.NoError(t, err)
	second, err := Parse("AD * 2 + 1")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestCompiled_EvalDeterministic(t *testing.T) {
	compiled, err := Parse("AD * CRIT_DAMAGE")
	require.NoError(t, err)

	scope := Scope{"AD": 10, "CRIT_DAMAGE": 1.5}
	for i := 0; i < 3; i++ {
		got, err := compiled.Eval(scope)
		require.NoError(t, err)
		assert.InDelta(t, 15.0, got, 1e-9)
	}
}
