package vm

import (
	"math"

	"github.com/simlin-go/core/internal/bytecode"
	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/ident"
	"github.com/simlin-go/core/internal/stdlib"
)

// instanceRef resolves one OpModuleCall operand to the instance's compiled
// form and live frame, so exec can read an arbitrary output port by name.
type instanceRef struct {
	sub *CompiledModule
	fs  *frameState
}

// execCtx is everything one instruction stream needs to run against.
type execCtx struct {
	frame     []float64
	time      float64
	lookups   []bytecode.LookupTable
	instances []instanceRef
}

// timeDependent builtins take the current simulation time as an implicit
// trailing argument (spec.md §4.5 "TIME returns current simulation time";
// stdlib/eval.go's pulse/ramp/step expect it appended by the call site).
var timeDependent = map[string]bool{"step": true, "pulse": true, "ramp": true}

// exec runs prog's instruction stream against ctx and returns the final
// value left on the stack (0 if the stream is empty). A Program compiled by
// bytecode.CompileModule ends in OpStoreVar, which both writes ctx.frame and
// leaves the stored value as the returned result; a Program compiled by
// bytecode.CompileExpr has no trailing store and simply returns the top of
// stack.
func exec(prog bytecode.Program, ctx *execCtx) float64 {
	var stack []float64
	pc := 0
	for pc < len(prog.Instrs) {
		in := prog.Instrs[pc]
		switch in.Op {
		case bytecode.OpLoadConst:
			stack = append(stack, in.Const)
		case bytecode.OpLoadVar:
			stack = append(stack, ctx.frame[in.Operand])
		case bytecode.OpLoadTime:
			stack = append(stack, ctx.time)
		case bytecode.OpAdd:
			b, a := pop(&stack), pop(&stack)
			stack = append(stack, a+b)
		case bytecode.OpSub:
			b, a := pop(&stack), pop(&stack)
			stack = append(stack, a-b)
		case bytecode.OpMul:
			b, a := pop(&stack), pop(&stack)
			stack = append(stack, a*b)
		case bytecode.OpDiv:
			b, a := pop(&stack), pop(&stack)
			stack = append(stack, a/b)
		case bytecode.OpPow:
			b, a := pop(&stack), pop(&stack)
			stack = append(stack, powFloat(a, b))
		case bytecode.OpNeg:
			a := pop(&stack)
			stack = append(stack, -a)
		case bytecode.OpEq:
			b, a := pop(&stack), pop(&stack)
			stack = append(stack, boolF(a == b))
		case bytecode.OpNeq:
			b, a := pop(&stack), pop(&stack)
			stack = append(stack, boolF(a != b))
		case bytecode.OpLt:
			b, a := pop(&stack), pop(&stack)
			stack = append(stack, boolF(a < b))
		case bytecode.OpLte:
			b, a := pop(&stack), pop(&stack)
			stack = append(stack, boolF(a <= b))
		case bytecode.OpGt:
			b, a := pop(&stack), pop(&stack)
			stack = append(stack, boolF(a > b))
		case bytecode.OpGte:
			b, a := pop(&stack), pop(&stack)
			stack = append(stack, boolF(a >= b))
		case bytecode.OpAnd:
			b, a := pop(&stack), pop(&stack)
			stack = append(stack, boolF(a != 0 && b != 0))
		case bytecode.OpOr:
			b, a := pop(&stack), pop(&stack)
			stack = append(stack, boolF(a != 0 || b != 0))
		case bytecode.OpNot:
			a := pop(&stack)
			stack = append(stack, boolF(a == 0))
		case bytecode.OpJumpIfFalse:
			a := pop(&stack)
			if a == 0 {
				pc = in.Operand
				continue
			}
		case bytecode.OpJump:
			pc = in.Operand
			continue
		case bytecode.OpCallBuiltin:
			args := popN(&stack, in.Operand)
			if timeDependent[in.Name] {
				args = append(args, ctx.time)
			}
			stack = append(stack, stdlib.Eval(in.Name, args))
		case bytecode.OpLookup:
			x := pop(&stack)
			stack = append(stack, evalLookup(ctx.lookups[in.Operand], x))
		case bytecode.OpModuleCall:
			ref := ctx.instances[in.Operand]
			slot, ok := ref.sub.Layout.Offset(ident.Canonical(in.Name))
			if !ok {
				stack = append(stack, 0)
			} else {
				stack = append(stack, ref.fs.slots[slot.Offset])
			}
		case bytecode.OpStoreVar:
			a := pop(&stack)
			ctx.frame[in.Operand] = a
			stack = append(stack, a)
		}
		pc++
	}
	if len(stack) == 0 {
		return 0
	}
	return stack[len(stack)-1]
}

func pop(stack *[]float64) float64 {
	n := len(*stack)
	if n == 0 {
		return 0
	}
	v := (*stack)[n-1]
	*stack = (*stack)[:n-1]
	return v
}

func popN(stack *[]float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	total := len(*stack)
	if n > total {
		n = total
	}
	args := append([]float64(nil), (*stack)[total-n:]...)
	*stack = (*stack)[:total-n]
	return args
}

func powFloat(a, b float64) float64 { return math.Pow(a, b) }

func boolF(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// evalLookup interpolates a graphical function (spec.md §4.4 "Lookup table
// encoding"): linear interpolation for Continuous, step-held-from-the-left
// for Discrete, linear extension of the endpoint slope for Extrapolate.
func evalLookup(t bytecode.LookupTable, x float64) float64 {
	n := len(t.X)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return t.Y[0]
	}
	if x <= t.X[0] {
		if t.Kind == datamodel.Extrapolate && t.X[1] != t.X[0] {
			slope := (t.Y[1] - t.Y[0]) / (t.X[1] - t.X[0])
			return t.Y[0] + slope*(x-t.X[0])
		}
		return t.Y[0]
	}
	if x >= t.X[n-1] {
		if t.Kind == datamodel.Extrapolate && t.X[n-1] != t.X[n-2] {
			slope := (t.Y[n-1] - t.Y[n-2]) / (t.X[n-1] - t.X[n-2])
			return t.Y[n-1] + slope*(x-t.X[n-1])
		}
		return t.Y[n-1]
	}
	for i := 0; i < n-1; i++ {
		if x < t.X[i] || x > t.X[i+1] {
			continue
		}
		if t.Kind == datamodel.Discrete {
			return t.Y[i]
		}
		span := t.X[i+1] - t.X[i]
		if span == 0 {
			return t.Y[i]
		}
		frac := (x - t.X[i]) / span
		return t.Y[i] + frac*(t.Y[i+1]-t.Y[i])
	}
	return t.Y[n-1]
}
