package errors

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fatih/color"

	"github.com/simlin-go/core/internal/ast"
)

// Report is the canonical structured error type for this module. Every
// error builder across internal/lexer, internal/parser, internal/elaborate,
// internal/depgraph, internal/layout, internal/bytecode, internal/vm, and
// internal/ltm returns a *Report, never a bare fmt.Errorf, so that callers
// can always recover Code/Kind/Span programmatically (spec.md §7).
type Report struct {
	Schema    string         `json:"schema"` // always "simlin.error/v1"
	Code      string         `json:"code"`
	Kind      Kind           `json:"kind"`
	Phase     string         `json:"phase"`
	Message   string         `json:"message"`
	Span      *ast.Span      `json:"span,omitempty"`
	ModelName string         `json:"model,omitempty"`
	VarName   string         `json:"variable,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// ReportError wraps a Report as an error, so structured reports survive
// errors.As() unwrapping through ordinary Go error-handling code.
type ReportError struct {
	Rep *Report
}

func (e *ReportError) Error() string {
	if e.Rep == nil {
		return "unknown error"
	}
	return e.Rep.Code + ": " + e.Rep.Message
}

// AsReport extracts a Report from an error chain, if one is present.
func AsReport(err error) (*Report, bool) {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Rep, true
	}
	return nil, false
}

// Wrap wraps r as an error (nil-safe: Wrap(nil) returns nil).
func Wrap(r *Report) error {
	if r == nil {
		return nil
	}
	return &ReportError{Rep: r}
}

// New builds a Report from a registered code, filling Kind/Phase from the
// registry and Message from msg (falling back to the registry description
// when msg is empty).
func New(code string, span *ast.Span, msg string) *Report {
	info, _ := Lookup(code)
	if msg == "" {
		msg = info.Description
	}
	return &Report{
		Schema:  "simlin.error/v1",
		Code:    code,
		Kind:    info.Kind,
		Phase:   info.Phase,
		Message: msg,
		Span:    span,
	}
}

// WithModel and WithVariable attach optional context and return the same
// *Report for chaining: errors.New(...).WithModel(m).WithVariable(v).
func (r *Report) WithModel(name string) *Report {
	r.ModelName = name
	return r
}

func (r *Report) WithVariable(name string) *Report {
	r.VarName = name
	return r
}

func (r *Report) WithData(key string, value any) *Report {
	if r.Data == nil {
		r.Data = map[string]any{}
	}
	r.Data[key] = value
	return r
}

// ToJSON renders the report as JSON, indented unless compact is requested.
func (r *Report) ToJSON(compact bool) (string, error) {
	var data []byte
	var err error
	if compact {
		data, err = json.Marshal(r)
	} else {
		data, err = json.MarshalIndent(r, "", "  ")
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Pretty renders a one-line, color-coded message for terminal callers (the
// web app and CLI this core plugs into are expected to prefer Pretty() over
// building their own formatter from the JSON fields). Color is advisory
// only — nothing in the core depends on terminal output, and Pretty never
// runs on the compiler/VM hot path.
func (r *Report) Pretty() string {
	kindColor := color.New(color.FgYellow)
	switch r.Kind {
	case KindModel, KindSimulation:
		kindColor = color.New(color.FgRed)
	case KindImport:
		kindColor = color.New(color.FgMagenta)
	}
	loc := ""
	if r.Span != nil {
		loc = fmt.Sprintf(" at %s", r.Span.Start)
	}
	where := ""
	if r.VarName != "" {
		where = fmt.Sprintf(" [%s]", r.VarName)
	} else if r.ModelName != "" {
		where = fmt.Sprintf(" [%s]", r.ModelName)
	}
	return fmt.Sprintf("%s%s: %s%s", kindColor.Sprint(r.Code), where, r.Message, loc)
}
