// Package errors provides the structured error taxonomy shared by every
// compiler stage, the VM, and the LTM analyzer (spec.md §7). All error
// builders return a *Report; callers that need to distinguish error kinds
// programmatically switch on Report.Kind, never on the human-readable
// Message.
package errors

// Kind groups error Codes into the four categories spec.md §7 names.
type Kind string

const (
	KindImport     Kind = "Import"
	KindModel      Kind = "Model"
	KindVariable   Kind = "Variable"
	KindSimulation Kind = "Simulation"
)

// Error code constants, grouped by the phase that raises them. Each
// constant is documented with the one-line description surfaced to callers
// by Lookup(code).
const (
	// Import errors (IMP###) — malformed source-format input.
	IMP001 = "IMP001" // malformed XML
	IMP002 = "IMP002" // malformed MDL
	IMP003 = "IMP003" // malformed protobuf
	IMP004 = "IMP004" // unsupported feature in source format

	// Parse errors (PAR###) — internal/lexer, internal/parser.
	PAR001 = "PAR001" // invalid token
	PAR002 = "PAR002" // unexpected EOF
	PAR003 = "PAR003" // extra input after a complete expression
	PAR004 = "PAR004" // unknown builtin
	PAR005 = "PAR005" // bad builtin argument count
	PAR006 = "PAR006" // unclosed string or comment
	PAR007 = "PAR007" // expected a number
	PAR008 = "PAR008" // empty equation

	// Model errors (MDL###) — internal/elaborate, internal/depgraph.
	MDL001 = "MDL001" // circular dependency
	MDL002 = "MDL002" // unknown dependency
	MDL003 = "MDL003" // bad module input source or destination
	MDL004 = "MDL004" // duplicate variable name
	MDL005 = "MDL005" // bad dimension name
	MDL006 = "MDL006" // mismatched dimensions
	MDL007 = "MDL007" // array reference needs explicit subscripts
	MDL008 = "MDL008" // no absolute ("::") references supported

	// Compile errors (CMP###) — internal/layout, internal/bytecode, internal/pipeline.
	CMP001 = "CMP001" // model is not simulatable
	CMP002 = "CMP002" // bad sim-specs
	CMP003 = "CMP003" // bad lookup table

	// Runtime errors (RUN###) — internal/vm.
	RUN001 = "RUN001" // variable not found at override or query time

	// LTM errors (LTM###) — internal/ltm.
	LTM001 = "LTM001" // arrays not supported by LTM
	LTM002 = "LTM002" // infrastructure module used as an analysis subject
	LTM003 = "LTM003" // RK4 integration is not supported with LTM augmentation
)

// Info describes one error code: its Kind, the phase ("parser", "elaborate",
// "depgraph", "layout", "bytecode", "vm", "ltm", "importer") that raises it,
// and a one-line human-readable description.
type Info struct {
	Code        string
	Kind        Kind
	Phase       string
	Description string
}

// registry is the canonical code -> Info table, the direct analogue of the
// teacher's ErrorRegistry in codes.go.
var registry = map[string]Info{
	IMP001: {IMP001, KindImport, "importer", "malformed XML"},
	IMP002: {IMP002, KindImport, "importer", "malformed MDL"},
	IMP003: {IMP003, KindImport, "importer", "malformed protobuf"},
	IMP004: {IMP004, KindImport, "importer", "unsupported feature in source format"},

	PAR001: {PAR001, KindVariable, "parser", "invalid token"},
	PAR002: {PAR002, KindVariable, "parser", "unexpected end of equation"},
	PAR003: {PAR003, KindVariable, "parser", "extra input after expression"},
	PAR004: {PAR004, KindVariable, "parser", "unknown builtin function"},
	PAR005: {PAR005, KindVariable, "parser", "wrong number of arguments to builtin"},
	PAR006: {PAR006, KindVariable, "parser", "unclosed string or comment"},
	PAR007: {PAR007, KindVariable, "parser", "expected a number"},
	PAR008: {PAR008, KindVariable, "parser", "empty equation"},

	MDL001: {MDL001, KindModel, "depgraph", "circular dependency"},
	MDL002: {MDL002, KindModel, "elaborate", "unknown dependency"},
	MDL003: {MDL003, KindModel, "elaborate", "bad module input binding"},
	MDL004: {MDL004, KindModel, "elaborate", "duplicate variable name"},
	MDL005: {MDL005, KindModel, "elaborate", "bad dimension name"},
	MDL006: {MDL006, KindModel, "elaborate", "mismatched dimensions"},
	MDL007: {MDL007, KindModel, "elaborate", "array reference needs explicit subscripts"},
	MDL008: {MDL008, KindModel, "elaborate", "absolute variable references are not supported"},

	CMP001: {CMP001, KindSimulation, "pipeline", "model is not simulatable"},
	CMP002: {CMP002, KindSimulation, "pipeline", "bad sim-specs"},
	CMP003: {CMP003, KindSimulation, "bytecode", "bad lookup table"},

	RUN001: {RUN001, KindSimulation, "vm", "variable not found"},

	LTM001: {LTM001, KindSimulation, "ltm", "arrays are not supported by LTM"},
	LTM002: {LTM002, KindSimulation, "ltm", "infrastructure module used as an analysis subject"},
	LTM003: {LTM003, KindSimulation, "ltm", "RK4 integration is not supported with LTM augmentation"},
}

// Lookup returns the Info for code.
func Lookup(code string) (Info, bool) {
	info, ok := registry[code]
	return info, ok
}
