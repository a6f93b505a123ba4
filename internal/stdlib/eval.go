package stdlib

import "math"

// Eval evaluates a pure (non-Stateful) builtin call against already-
// evaluated arguments. Stateful builtins never reach here: they are
// expanded into module instantiations during elaboration (spec.md §4.2)
// and evaluated by internal/vm as ordinary stock-flow structure.
func Eval(name string, args []float64) float64 {
	switch name {
	case "abs":
		return math.Abs(args[0])
	case "exp":
		return math.Exp(args[0])
	case "ln":
		return math.Log(args[0])
	case "log10":
		return math.Log10(args[0])
	case "sqrt":
		return math.Sqrt(args[0])
	case "sin":
		return math.Sin(args[0])
	case "cos":
		return math.Cos(args[0])
	case "tan":
		return math.Tan(args[0])
	case "arctan":
		return math.Atan(args[0])
	case "int":
		return math.Trunc(args[0])
	case "sign":
		switch {
		case args[0] > 0:
			return 1
		case args[0] < 0:
			return -1
		default:
			return 0
		}
	case "min":
		return math.Min(args[0], args[1])
	case "max":
		return math.Max(args[0], args[1])
	case "modulo":
		return math.Mod(args[0], args[1])
	case "safediv":
		if args[1] == 0 {
			if len(args) >= 3 {
				return args[2]
			}
			return 0
		}
		return args[0] / args[1]
	case "if_then_else":
		if args[0] != 0 {
			return args[1]
		}
		return args[2]
	case "step":
		height, start := args[0], args[1]
		// args[2] carries the current simulation time, injected by the VM
		// call site since STEP is a function of TIME (spec.md §4.2
		// "Builtin semantics").
		if args[2] >= start {
			return height
		}
		return 0
	case "pulse":
		return pulse(args)
	case "ramp":
		return ramp(args)
	default:
		return math.NaN()
	}
}

// pulse(height, start, width, time) — a single pulse of the given height
// lasting width time units starting at start; width 0 or omitted fires for
// exactly one simulation step, matching Vensim/XMILE PULSE semantics.
func pulse(args []float64) float64 {
	height, start := args[0], args[1]
	width := 0.0
	t := args[len(args)-1]
	if len(args) == 4 {
		width = args[2]
	}
	if t < start {
		return 0
	}
	if width <= 0 {
		return height
	}
	if t < start+width {
		return height
	}
	return 0
}

// ramp(slope, start, end, time) — 0 before start, slope*(t-start) between
// start and end, held constant after end (or forever if end is omitted).
func ramp(args []float64) float64 {
	slope := args[0]
	start := 0.0
	var end *float64
	t := args[len(args)-1]
	switch len(args) {
	case 2: // slope, time
	case 3: // slope, start, time
		start = args[1]
	case 4: // slope, start, end, time
		start = args[1]
		e := args[2]
		end = &e
	}
	if t < start {
		return 0
	}
	if end != nil && t > *end {
		return slope * (*end - start)
	}
	return slope * (t - start)
}
