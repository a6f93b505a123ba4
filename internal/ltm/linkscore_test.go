package ltm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simlin-go/core/internal/ast"
	"github.com/simlin-go/core/internal/ident"
)

func TestQuoteIdentWrapsInDoubleQuotes(t *testing.T) {
	require.Equal(t, `"plain"`, quoteIdent("plain"))
	require.Equal(t, `"$⁚link→a→b"`, quoteIdent(string(ident.LinkScoreName("a", "b"))))
}

func TestRenderQuotesVariableReferences(t *testing.T) {
	got := render(varRef("growth rate"))
	require.Equal(t, `"growth rate"`, got)
}

func TestRenderLeavesNumbersAndTimeBare(t *testing.T) {
	require.Equal(t, "3", render(numLit(3)))
	require.Equal(t, "TIME", render(timeRef()))
}

func TestRenderBuildsCallWithQuotedArgs(t *testing.T) {
	got := render(callFn("abs", varRef("x")))
	require.Equal(t, `abs("x")`, got)
}

func TestWrapPreviousKeepsNamedVariableBare(t *testing.T) {
	expr := binary("*", varRef("level"), varRef("rate"))
	wrapped := wrapPrevious(expr, "level")
	rendered := render(wrapped)
	require.True(t, strings.Contains(rendered, `"level"`))
	require.True(t, strings.Contains(rendered, `previous("rate")`))
	require.False(t, strings.Contains(rendered, `previous("level")`))
}

func TestWrapPreviousLeavesConstantsAlone(t *testing.T) {
	wrapped := wrapPrevious(numLit(5), "level")
	require.Equal(t, "5", render(wrapped))
}

func TestInstantaneousLinkScoreGuardsAgainstZeroTimeDelta(t *testing.T) {
	targetExpr := binary("*", varRef("level"), numLit(0.1))
	expr := instantaneousLinkScore(targetExpr, varRef("growth"), varRef("level"), "level")
	rendered := render(expr)
	require.True(t, strings.Contains(rendered, "TIME"))
	require.True(t, strings.Contains(rendered, "abs("))
	require.True(t, strings.Contains(rendered, "sign("))
	require.True(t, strings.Contains(rendered, "safediv("))
}

func TestFlowToStockLinkScoreSignsByDirection(t *testing.T) {
	inflow := render(flowToStockLinkScore(varRef("growth"), varRef("level"), true))
	outflow := render(flowToStockLinkScore(varRef("growth"), varRef("level"), false))
	require.True(t, strings.Contains(inflow, "(1 *"))
	require.True(t, strings.Contains(outflow, "(-1 *"))
}

func TestBlackBoxLinkScoreIsRatioOfDeltas(t *testing.T) {
	rendered := render(blackBoxLinkScore(varRef("out"), varRef("in")))
	require.True(t, strings.Contains(rendered, "safediv("))
	require.True(t, strings.Contains(rendered, `"out"`))
	require.True(t, strings.Contains(rendered, `"in"`))
}

func TestRenderRoundTripsModuleOutputReference(t *testing.T) {
	ref := ast.NewModuleOutput2(ast.Span{}, "smth1_x_1", "output")
	rendered := render(ref)
	require.Equal(t, `"smth1_x_1"·"output"`, rendered)
}
