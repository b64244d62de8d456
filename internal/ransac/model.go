package ransac

// Dataset is an ordered sequence of points stored contiguously.
// Point i occupies Values[i*Dim : (i+1)*Dim].
type Dataset struct {
	Values []float64
	Dim    int
}

// NewDataset wraps a flat value slice as a data set of dim-sized points.
func NewDataset(values []float64, dim int) Dataset {
	return Dataset{Values: values, Dim: dim}
}

// Len returns the number of points.
func (d Dataset) Len() int {
	if d.Dim <= 0 {
		return 0
	}
	return len(d.Values) / d.Dim
}

// Point returns the fields of point i. The slice aliases the data set.
func (d Dataset) Point(i int) []float64 {
	return d.Values[i*d.Dim : (i+1)*d.Dim : (i+1)*d.Dim]
}

// Evaluator measures how far a point lies from a model.
type Evaluator interface {
	// Evaluate returns the non-negative fitting error of point under model.
	// It must not modify either slice.
	Evaluate(model, point []float64) float64
}

// Generator computes a model from a minimal sample.
type Generator interface {
	// Generate writes the model parameters computed from sample into model.
	// sample holds NFit points of the data set's dimension, back to back.
	Generate(model, sample []float64)
}

// Model is the capability set the engine needs from a model family.
type Model interface {
	Evaluator
	Generator
}

// Acceptor is implemented by models that can reject a generated candidate
// before it is scored, e.g. singular transforms.
type Acceptor interface {
	Accept(model []float64) bool
}

// EvaluateFunc, GenerateFunc and AcceptFunc are the function forms of the
// model capabilities.
type (
	EvaluateFunc func(model, point []float64) float64
	GenerateFunc func(model, sample []float64)
	AcceptFunc   func(model []float64) bool
)

// Funcs adapts plain functions to Model and Acceptor.
// A nil Accept accepts every model.
type Funcs struct {
	EvaluateFunc EvaluateFunc
	GenerateFunc GenerateFunc
	AcceptFunc   AcceptFunc
}

func (f Funcs) Evaluate(model, point []float64) float64 {
	return f.EvaluateFunc(model, point)
}

func (f Funcs) Generate(model, sample []float64) {
	f.GenerateFunc(model, sample)
}

func (f Funcs) Accept(model []float64) bool {
	if f.AcceptFunc == nil {
		return true
	}
	return f.AcceptFunc(model)
}

// accepts reports whether m accepts model. Models without an Acceptor
// accept everything.
func accepts(m Model, model []float64) bool {
	a, ok := m.(Acceptor)
	if !ok {
		return true
	}
	return a.Accept(model)
}
