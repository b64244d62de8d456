package fit

import (
	"log/slog"
	"math"
)

// ConvergenceConfig decides when refinement passes stop paying off.
type ConvergenceConfig struct {
	Enabled bool

	// Patience is the number of passes without significant improvement
	// tolerated before stopping.
	Patience int

	// Threshold is the minimum relative cost improvement, (old-new)/old,
	// that counts as progress.
	Threshold float64
}

// DefaultConvergenceConfig stops after two passes improving by less than 0.1%.
func DefaultConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled:   true,
		Patience:  2,
		Threshold: 0.001,
	}
}

// ConvergenceTracker records the cost after each refinement pass.
type ConvergenceTracker struct {
	config          ConvergenceConfig
	history         []float64
	bestCost        float64
	lastSignificant float64
	staleCount      int
}

// NewConvergenceTracker creates a tracker with the given config.
func NewConvergenceTracker(config ConvergenceConfig) *ConvergenceTracker {
	t := &ConvergenceTracker{config: config}
	t.Reset()
	return t
}

// Update records a cost and reports whether refinement has converged.
func (c *ConvergenceTracker) Update(cost float64) bool {
	if !c.config.Enabled {
		return false
	}

	c.history = append(c.history, cost)
	c.bestCost = math.Min(c.bestCost, cost)

	if len(c.history) == 1 {
		c.lastSignificant = cost
		return false
	}

	// A zero cost cannot improve any further.
	if c.lastSignificant == 0 {
		c.staleCount++
		return c.staleCount >= c.config.Patience
	}

	improvement := (c.lastSignificant - cost) / c.lastSignificant
	if improvement >= c.config.Threshold {
		c.lastSignificant = cost
		c.staleCount = 0
		return false
	}

	c.staleCount++
	slog.Debug("Refinement pass without significant improvement",
		"cost", cost,
		"relative_improvement", improvement,
		"stale_count", c.staleCount,
	)
	return c.staleCount >= c.config.Patience
}

// BestCost returns the lowest cost recorded.
func (c *ConvergenceTracker) BestCost() float64 {
	return c.bestCost
}

// History returns a copy of the recorded costs.
func (c *ConvergenceTracker) History() []float64 {
	return append([]float64{}, c.history...)
}

// StaleCount returns the number of passes since the last significant improvement.
func (c *ConvergenceTracker) StaleCount() int {
	return c.staleCount
}

// Reset clears the tracker.
func (c *ConvergenceTracker) Reset() {
	c.history = []float64{}
	c.bestCost = math.Inf(1)
	c.lastSignificant = math.Inf(1)
	c.staleCount = 0
}
