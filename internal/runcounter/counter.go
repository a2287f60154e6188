package runcounter

import (
	"fmt"
	"strconv"

	"bidsify/internal/protocol"
	"bidsify/internal/seqinfo"
	"bidsify/internal/services"
)

// Options configures per-study behavior.
type Options struct {
	// AllowUnpairedPhase increments the run for a phase series that does not
	// follow a magnitude series instead of failing.
	AllowUnpairedPhase bool
}

// AnomalyError reports a phase series that does not follow its magnitude.
type AnomalyError struct {
	SeriesID string
	Previous string
}

func (e *AnomalyError) Error() string {
	return fmt.Sprintf("series %s: expected phase image to follow magnitude image, previous data type was %q", e.SeriesID, e.Previous)
}

// Unwrap ties the error to the validation marker.
func (e *AnomalyError) Unwrap() error { return services.ErrValidation }

// Regression is reported when an explicit run number is lower than the run
// already reached. The explicit value is still used.
type Regression struct {
	SeriesID string
	Previous int
	Explicit int
}

// Step is the outcome of one series.
type Step struct {
	// Label is "run-NN", or empty when the series carried no run token.
	Label      string
	Run        int
	Regression *Regression
	// UnpairedPhase is set when a phase series without a preceding magnitude
	// was accepted because AllowUnpairedPhase is on.
	UnpairedPhase bool
}

// Counter is the run-numbering state for one pass over one study.
// It is not safe for concurrent use.
type Counter struct {
	opts     Options
	current  int
	prevType string
	started  bool
}

// New returns a counter with no run set.
func New(opts Options) *Counter {
	return &Counter{opts: opts}
}

// Current returns the run reached so far (0 when unset).
func (c *Counter) Current() int { return c.current }

// Observe records the data type of a series that carries no run token. Every
// non-derived series must pass through Observe or Next so fieldmap pairing
// sees the true predecessor.
func (c *Counter) Observe(dataType string) {
	c.prevType, c.started = dataType, true
}

// Next applies one run token for series seriesID with image data type dataType.
func (c *Counter) Next(seriesID, dataType, token string) (Step, error) {
	prev := c.prevType
	hadPrev := c.started
	c.Observe(dataType)

	var step Step
	switch {
	case token == protocol.SigilIncrement:
		if dataType == seqinfo.DataTypePhase {
			if !hadPrev || prev != seqinfo.DataTypeMagnitude {
				if !c.opts.AllowUnpairedPhase {
					return Step{}, &AnomalyError{SeriesID: seriesID, Previous: prev}
				}
				step.UnpairedPhase = true
				c.current++
			}
		} else {
			c.current++
		}
	case token == protocol.SigilReuse:
		if c.current == 0 {
			c.current = 1
		}
	case isDigits(token):
		explicit, err := strconv.Atoi(token)
		if err != nil {
			return Step{}, services.Wrap(services.ErrValidation, "classify", "run", fmt.Sprintf("series %s: run %q out of range", seriesID, token), err)
		}
		if explicit < c.current {
			step.Regression = &Regression{SeriesID: seriesID, Previous: c.current, Explicit: explicit}
		}
		c.current = explicit
	default:
		return Step{}, services.Wrap(services.ErrValidation, "classify", "run", fmt.Sprintf("series %s: unsupported run token %q", seriesID, token), nil)
	}

	step.Run = c.current
	step.Label = Render(c.current)
	return step, nil
}

// Render formats a run number as a BIDS run entity.
func Render(run int) string {
	return fmt.Sprintf("run-%02d", run)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
