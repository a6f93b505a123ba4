package datamodel

// GFKind selects how a GraphicalFunction interpolates between its points
// (spec.md §3, §4.4).
type GFKind int

const (
	Continuous  GFKind = iota // linear interpolation between bracketing points
	Discrete                  // step function held from the left
	Extrapolate               // linear extension past the endpoints
)

// GraphicalFunction ("lookup table" / "graph") is used either as a flow/aux
// equation or as a standalone lookup invoked via the LOOKUP builtin
// (spec.md §3, §4.1).
type GraphicalFunction struct {
	X      []float64 // absent (nil) => implicit equal spacing over XScale
	Y      []float64 // required
	XScale [2]float64
	YScale [2]float64
	Kind   GFKind
}

// Points returns the resolved (x, y) pairs, filling in implicit x-coordinates
// when X is nil by spacing Y's points evenly across XScale.
func (g GraphicalFunction) Points() (xs, ys []float64) {
	ys = g.Y
	if g.X != nil {
		return g.X, ys
	}
	n := len(g.Y)
	xs = make([]float64, n)
	if n <= 1 {
		for i := range xs {
			xs[i] = g.XScale[0]
		}
		return xs, ys
	}
	span := g.XScale[1] - g.XScale[0]
	for i := 0; i < n; i++ {
		xs[i] = g.XScale[0] + span*float64(i)/float64(n-1)
	}
	return xs, ys
}

// Clone returns a deep copy.
func (g GraphicalFunction) Clone() GraphicalFunction {
	clone := g
	if g.X != nil {
		clone.X = append([]float64(nil), g.X...)
	}
	clone.Y = append([]float64(nil), g.Y...)
	return clone
}
