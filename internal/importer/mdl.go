package importer

import (
	"strconv"
	"strings"

	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/errors"
	"github.com/simlin-go/core/internal/ident"
)

// OpenMDL reads a minimal subset of Vensim's ".mdl" text format: one
// variable definition per `|`-terminated record, each shaped
// `name = equation ~ units ~ documentation`, plus the `.Control` section's
// FINAL TIME/INITIAL TIME/TIME STEP/SAVEPER pseudo-variables. Spec.md §1
// explicitly scopes MDL import to "an input format that yields the same
// typed AST" without committing to full Vensim syntax coverage (macros,
// subscripted equations, and the `:SUPPLEMENTARY:`/group-tag comment
// syntax are out of scope). The first variable this reader cannot shape into
// a Stock/Flow/Auxiliary (IMP004, or IMP002 for a malformed INTEG call)
// fails the whole import: OpenMDL returns that report and no project.
func OpenMDL(data []byte) (*datamodel.Project, *errors.Report) {
	text := stripBOM(string(data))
	records := splitRecords(text)

	p := datamodel.NewProject()
	m := &datamodel.Model{Name: ident.New("main")}

	for _, rec := range records {
		rec = strings.TrimSpace(rec)
		if rec == "" || strings.HasPrefix(rec, "*") || strings.HasPrefix(rec, ".") {
			continue
		}
		parts := strings.Split(rec, "~")
		head := strings.TrimSpace(parts[0])
		if head == "" {
			continue
		}
		units, doc := "", ""
		if len(parts) > 1 {
			units = cleanUnits(parts[1])
		}
		if len(parts) > 2 {
			doc = strings.TrimSpace(parts[2])
		}

		eqIdx := strings.Index(head, "=")
		if eqIdx < 0 {
			continue
		}
		name := strings.TrimSpace(head[:eqIdx])
		eqn := strings.TrimSpace(head[eqIdx+1:])
		if name == "" {
			continue
		}

		switch strings.ToUpper(name) {
		case "FINAL TIME":
			p.SimSpecs.Stop = mustFloat(eqn)
			continue
		case "INITIAL TIME":
			p.SimSpecs.Start = mustFloat(eqn)
			continue
		case "TIME STEP":
			p.SimSpecs.Dt = mustFloat(eqn)
			continue
		case "SAVEPER":
			if v, ok := parseFloatLiteral(eqn); ok {
				p.SimSpecs.SaveStep = &v
			}
			continue
		}

		v, rep := mdlVariable(name, eqn, units, doc)
		if rep != nil {
			return nil, rep
		}
		m.AddVariable(v)
	}

	reclassifyFlows(m)
	p.AddModel(m)
	return p, nil
}

// reclassifyFlows promotes every auxiliary a stock's Inflows/Outflows
// names to FlowKind: Vensim has no separate flow keyword, so mdlVariable
// parses every non-INTEG record as an auxiliary and this pass corrects
// the ones that turn out to feed a stock.
func reclassifyFlows(m *datamodel.Model) {
	flows := map[string]bool{}
	for _, v := range m.Variables {
		if v.Kind != datamodel.StockKind {
			continue
		}
		for _, f := range v.Inflows {
			flows[string(f)] = true
		}
		for _, f := range v.Outflows {
			flows[string(f)] = true
		}
	}
	for _, v := range m.Variables {
		if v.Kind == datamodel.AuxiliaryKind && flows[string(v.Name.Canonical)] {
			v.Kind = datamodel.FlowKind
		}
	}
}

func stripBOM(s string) string {
	s = strings.TrimPrefix(s, "﻿")
	return strings.TrimPrefix(s, "{UTF-8}")
}

// splitRecords splits a Vensim MDL body on its `|` record terminator,
// which also closes out section headers like `********~ ... |` — those
// are filtered out by the caller's leading-`*`/`.` check.
func splitRecords(text string) []string {
	return strings.Split(text, "|")
}

func cleanUnits(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "["); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}

func mustFloat(s string) float64 {
	v, _ := parseFloatLiteral(s)
	return v
}

func parseFloatLiteral(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// mdlVariable classifies one MDL record by its equation shape: an
// `INTEG(net_flow, initial)` call makes a stock (Vensim's only stock
// syntax), everything else is an auxiliary. Vensim has no dedicated flow
// keyword — a flow is just an auxiliary referenced inside a stock's INTEG
// expression — so this reader retroactively promotes any variable named
// inside an INTEG's net-flow expression to FlowKind once every record has
// been scanned; see reclassifyFlows.
func mdlVariable(name, eqn, units, doc string) (*datamodel.Variable, *errors.Report) {
	if strings.HasPrefix(strings.ToUpper(eqn), "INTEG") {
		args, rep := splitIntegArgs(eqn, name)
		if rep != nil {
			return nil, rep
		}
		inflows, outflows, rep := netFlowTerms(args[0], name)
		if rep != nil {
			return nil, rep
		}
		return &datamodel.Variable{
			Name: ident.New(name), Kind: datamodel.StockKind,
			InitialEquation: strings.TrimSpace(args[1]),
			Inflows:         inflows, Outflows: outflows,
			Units: units, Documentation: doc,
		}, nil
	}
	return &datamodel.Variable{
		Name: ident.New(name), Kind: datamodel.AuxiliaryKind,
		Equation: eqn, Units: units, Documentation: doc,
	}, nil
}

// splitIntegArgs pulls INTEG(net_flow, initial)'s two top-level arguments
// apart, respecting nested parens so a flow expression like
// `max(0, inflow) - outflow` doesn't split on its own internal comma.
func splitIntegArgs(eqn, variable string) ([2]string, *errors.Report) {
	open := strings.Index(eqn, "(")
	close := strings.LastIndex(eqn, ")")
	if open < 0 || close < 0 || close < open {
		return [2]string{}, errors.New(errors.IMP002, nil, "malformed INTEG call").WithVariable(variable)
	}
	inner := eqn[open+1 : close]

	depth := 0
	splitAt := -1
	for i, ch := range inner {
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				splitAt = i
			}
		}
		if splitAt >= 0 {
			break
		}
	}
	if splitAt < 0 {
		return [2]string{}, errors.New(errors.IMP002, nil, "INTEG requires two arguments").WithVariable(variable)
	}
	return [2]string{inner[:splitAt], inner[splitAt+1:]}, nil
}

// netFlowTerms splits a net-flow expression into its top-level +/- terms,
// each of which must be a bare variable name — the common case Vensim
// models actually use (`inflow - outflow`). A term involving a nested
// expression instead of a single flow variable is IMP004: this reader does
// not synthesize an anonymous flow for it.
func netFlowTerms(expr, variable string) (inflows, outflows []ident.Canonical, rep *errors.Report) {
	expr = strings.TrimSpace(expr)
	depth := 0
	sign := 1
	var term strings.Builder
	flush := func() *errors.Report {
		t := strings.TrimSpace(term.String())
		term.Reset()
		if t == "" {
			return nil
		}
		if !isBareIdent(t) {
			return errors.New(errors.IMP004, nil, "unsupported net-flow term "+t).WithVariable(variable)
		}
		name := ident.New(t).Canonical
		if sign < 0 {
			outflows = append(outflows, name)
		} else {
			inflows = append(inflows, name)
		}
		return nil
	}

	for i := 0; i < len(expr); i++ {
		ch := expr[i]
		switch ch {
		case '(':
			depth++
			term.WriteByte(ch)
		case ')':
			depth--
			term.WriteByte(ch)
		case '+', '-':
			if depth == 0 {
				if rep := flush(); rep != nil {
					return nil, nil, rep
				}
				if ch == '-' {
					sign = -1
				} else {
					sign = 1
				}
				continue
			}
			term.WriteByte(ch)
		default:
			term.WriteByte(ch)
		}
	}
	if rep := flush(); rep != nil {
		return nil, nil, rep
	}
	return inflows, outflows, nil
}

func isBareIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || r == ' ' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		if i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}
