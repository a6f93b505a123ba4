package errors_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simlin-go/core/internal/ast"
	"github.com/simlin-go/core/internal/errors"
)

func TestNewFillsKindAndPhaseFromRegistry(t *testing.T) {
	r := errors.New(errors.MDL001, nil, "")
	require.Equal(t, errors.KindModel, r.Kind)
	require.Equal(t, "depgraph", r.Phase)
	require.Equal(t, "circular dependency", r.Message)
}

func TestWrapAndAsReportRoundTrip(t *testing.T) {
	sp := &ast.Span{Start: ast.Pos{Offset: 3, Line: 1, Column: 4}}
	r := errors.New(errors.PAR008, sp, "").WithVariable("net_births")

	err := errors.Wrap(r)
	require.Error(t, err)

	got, ok := errors.AsReport(err)
	require.True(t, ok)
	require.Equal(t, "net_births", got.VarName)
	require.Same(t, r, got)
}

func TestWrapNilIsNilError(t *testing.T) {
	require.NoError(t, errors.Wrap(nil))
}

func TestPrettyIncludesCodeAndMessage(t *testing.T) {
	r := errors.New(errors.MDL001, nil, "")
	pretty := r.Pretty()
	require.Contains(t, pretty, errors.MDL001)
	require.Contains(t, pretty, "circular dependency")
}
