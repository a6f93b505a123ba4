package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simlin-go/core/internal/ast"
)

func parseOK(t *testing.T, src string) ast.Expr0 {
	t.Helper()
	expr, errs := ParseEquation(src)
	require.Empty(t, errs, "unexpected errors for %q", src)
	require.NotNil(t, expr)
	return expr
}

func TestParseNumber(t *testing.T) {
	expr := parseOK(t, "3.5")
	lit, ok := expr.(*ast.NumberLit0)
	require.True(t, ok)
	require.Equal(t, 3.5, lit.Value)
}

func TestParseIdentifier(t *testing.T) {
	expr := parseOK(t, "room_temperature")
	v, ok := expr.(*ast.Var0)
	require.True(t, ok)
	require.Equal(t, "room_temperature", string(v.Name.Canonical))
}

func TestParseTimeIsDistinct(t *testing.T) {
	expr := parseOK(t, "TIME")
	_, ok := expr.(*ast.Time0)
	require.True(t, ok)
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"2 ^ 3 ^ 2", "(2 ^ (3 ^ 2))"},
		{"-a + b", "((-a) + b)"},
		{"a < b and c > d", "((a < b) and (c > d))"},
		{"a or b and c", "(a or (b and c))"},
		{"not a < b", "(not (a < b))"},
		{"not a and b", "((not a) and b)"},
	}
	for _, tt := range tests {
		expr := parseOK(t, tt.src)
		require.Equal(t, tt.want, expr.String(), "for %q", tt.src)
	}
}

func TestParseIfThenElse(t *testing.T) {
	expr := parseOK(t, "if teacup_temperature > room_temperature then 1 else 0")
	ifExpr, ok := expr.(*ast.If0)
	require.True(t, ok)
	require.Equal(t, "if (teacup_temperature > room_temperature) then 1 else 0", ifExpr.String())
}

func TestParseCall(t *testing.T) {
	expr := parseOK(t, "SMTH1(x, 5)")
	call, ok := expr.(*ast.Call0)
	require.True(t, ok)
	require.Equal(t, "smth1", string(call.Builtin))
	require.Len(t, call.Args, 2)
}

func TestParseSubscriptWithWildcard(t *testing.T) {
	expr := parseOK(t, "population[region, *]")
	sub, ok := expr.(*ast.Subscript0)
	require.True(t, ok)
	require.Len(t, sub.Indices, 2)
	require.False(t, sub.Indices[0].Wildcard)
	require.True(t, sub.Indices[1].Wildcard)
}

func TestParseModuleRef(t *testing.T) {
	expr := parseOK(t, "births·output")
	ref, ok := expr.(*ast.ModuleRef0)
	require.True(t, ok)
	require.Equal(t, "births", string(ref.Instance.Canonical))
	require.Equal(t, "output", string(ref.Port.Canonical))
}

func TestParseQuotedIdentifier(t *testing.T) {
	expr := parseOK(t, `"net worth" + 1`)
	bin, ok := expr.(*ast.Binary0)
	require.True(t, ok)
	v, ok := bin.X.(*ast.Var0)
	require.True(t, ok)
	require.Equal(t, "net worth", v.Name.Original)
}

func TestEmptyEquationIsPAR008(t *testing.T) {
	_, errs := ParseEquation("   ")
	require.Len(t, errs, 1)
	require.Equal(t, "PAR008", errs[0].Code)
}

func TestUnexpectedTokenIsPAR001(t *testing.T) {
	_, errs := ParseEquation("1 + @")
	require.NotEmpty(t, errs)
	require.Equal(t, "PAR001", errs[0].Code)
}

func TestUnclosedParenIsError(t *testing.T) {
	_, errs := ParseEquation("(1 + 2")
	require.NotEmpty(t, errs)
}

func TestExtraInputIsPAR003(t *testing.T) {
	_, errs := ParseEquation("1 + 2 3")
	require.NotEmpty(t, errs)
	require.Equal(t, "PAR003", errs[0].Code)
}
