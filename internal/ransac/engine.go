package ransac

import "math"

// Config holds the parameters of a consensus search.
type Config struct {
	ModelDim   int     // Number of model parameters
	NFit       int     // Points needed to generate one model
	Trials     int     // Number of models to try
	MinInliers int     // Minimum number of inliers for success
	MaxError   float64 // A point is an inlier iff its error is below this
}

// Validate checks the configuration against the data set.
// NFit larger than the data set is left to the sampler, which fails on it.
func (c Config) Validate(ds Dataset) error {
	switch {
	case ds.Dim < 1:
		return &ConfigError{Field: "Dim", Reason: "must be positive"}
	case len(ds.Values)%ds.Dim != 0:
		return &ConfigError{Field: "Values", Reason: "length must be a multiple of Dim"}
	case ds.Len() == 0:
		return &ConfigError{Field: "Values", Reason: "cannot be empty"}
	case c.ModelDim < 1:
		return &ConfigError{Field: "ModelDim", Reason: "must be positive"}
	case c.NFit < 1:
		return &ConfigError{Field: "NFit", Reason: "must be positive"}
	case c.Trials < 1:
		return &ConfigError{Field: "Trials", Reason: "must be positive"}
	case c.MinInliers < 0:
		return &ConfigError{Field: "MinInliers", Reason: "cannot be negative"}
	case math.IsNaN(c.MaxError) || c.MaxError <= 0:
		return &ConfigError{Field: "MaxError", Reason: "must be positive"}
	}
	return nil
}

// Result is the outcome of a consensus search.
type Result struct {
	Inliers   int       // Size of the consensus set, 0 when no model was found
	Model     []float64 // Best model, nil when no model was found
	Mask      []bool    // Consensus set, nil when no model was found
	Trials    int       // Trials performed
	Accepted  int       // Trials whose model passed the acceptance predicate
	BestTrial int       // Trial that produced Model, -1 when no model was found
}

// Found reports whether the search produced a model.
func (r *Result) Found() bool {
	return r != nil && r.Inliers > 0
}

// TrialEvent describes one finished trial.
type TrialEvent struct {
	Trial    int  // 0-based trial index
	Accepted bool // False when the acceptance predicate rejected the model
	Inliers  int  // Inliers of this trial's model
	Best     int  // Best inlier count so far
}

// Engine runs consensus searches for one model family.
type Engine struct {
	Model  Model
	Config Config
	Rand   Rand

	// OnTrial, if set, is called after every trial.
	OnTrial func(TrialEvent)
}

// New creates an engine.
func New(m Model, cfg Config, rng Rand) *Engine {
	return &Engine{Model: m, Config: cfg, Rand: rng}
}

// Run is a shorthand for New(m, cfg, rng).Run(ds).
func Run(ds Dataset, m Model, cfg Config, rng Rand) (*Result, error) {
	return New(m, cfg, rng).Run(ds)
}

// Run performs Config.Trials trials and returns the model with the most
// inliers. Ties keep the earlier model. A search whose best model has fewer
// than MinInliers inliers is not an error: the returned Result reports
// Found() == false.
func (e *Engine) Run(ds Dataset) (*Result, error) {
	if err := e.validate(ds); err != nil {
		return nil, err
	}
	if e.Rand == nil {
		return nil, &ConfigError{Field: "Rand", Reason: "cannot be nil"}
	}

	w := newWorker(ds, e.Model, e.Config, e.Rand)
	for t := 0; t < e.Config.Trials; t++ {
		ev, err := w.step(t)
		if err != nil {
			return nil, err
		}
		if e.OnTrial != nil {
			e.OnTrial(ev)
		}
	}
	return w.result(e.Config.MinInliers), nil
}

func (e *Engine) validate(ds Dataset) error {
	if e.Model == nil {
		return &ConfigError{Field: "Model", Reason: "cannot be nil"}
	}
	return e.Config.Validate(ds)
}

// worker owns the scratch buffers and best-so-far record of one trial loop.
type worker struct {
	ds      Dataset
	model   Model
	cfg     Config
	sampler *Sampler

	idx    []int
	sample []float64
	cand   []float64
	mask   []bool

	best      int
	bestTrial int
	bestModel []float64
	bestMask  []bool

	trials   int
	accepted int
}

func newWorker(ds Dataset, m Model, cfg Config, rng Rand) *worker {
	n := ds.Len()
	return &worker{
		ds:        ds,
		model:     m,
		cfg:       cfg,
		sampler:   NewSampler(rng, n),
		idx:       make([]int, cfg.NFit),
		sample:    make([]float64, cfg.NFit*ds.Dim),
		cand:      make([]float64, cfg.ModelDim),
		mask:      make([]bool, n),
		bestTrial: -1,
		bestModel: make([]float64, cfg.ModelDim),
		bestMask:  make([]bool, n),
	}
}

// step runs trial t.
func (w *worker) step(t int) (TrialEvent, error) {
	if err := w.sampler.Sample(w.idx); err != nil {
		return TrialEvent{}, err
	}
	d := w.ds.Dim
	for j, k := range w.idx {
		copy(w.sample[j*d:(j+1)*d], w.ds.Point(k))
	}

	clear(w.cand)
	w.model.Generate(w.cand, w.sample)
	w.trials++

	ev := TrialEvent{Trial: t, Best: w.best}
	if !accepts(w.model, w.cand) {
		return ev, nil
	}
	w.accepted++

	count, err := trial(w.mask, w.ds, w.cand, w.cfg.MaxError, w.model)
	if err != nil {
		return TrialEvent{}, err
	}
	ev.Accepted = true
	ev.Inliers = count

	if count > w.best {
		w.best = count
		w.bestTrial = t
		// The previous best buffers become scratch for the next trial.
		w.cand, w.bestModel = w.bestModel, w.cand
		w.mask, w.bestMask = w.bestMask, w.mask
		ev.Best = count
	}
	return ev, nil
}

// result applies the minimum-inlier gate to the best-so-far record.
func (w *worker) result(minInliers int) *Result {
	res := &Result{
		Trials:    w.trials,
		Accepted:  w.accepted,
		BestTrial: -1,
	}
	if w.best == 0 || w.best < minInliers {
		return res
	}
	res.Inliers = w.best
	res.Model = w.bestModel
	res.Mask = w.bestMask
	res.BestTrial = w.bestTrial
	return res
}
