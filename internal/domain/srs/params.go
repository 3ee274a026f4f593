package srs

import (
	"fmt"
	"time"
)

// WeightCount is the number of weights in the memory model.
const WeightCount = 21

// DefaultWeights are the published FSRS-6 default weights.
var DefaultWeights = [WeightCount]float64{
	0.212, 1.2931, 2.3065, 8.2956, // initial stability per rating
	6.4133, 0.8334, 3.0194, 0.001, // difficulty
	1.8722, 0.1666, 0.796, 1.4835, // recall stability
	0.0614, 0.2629, 1.6483, 0.6014, // forget stability, hard penalty
	1.8729, 0.5425, 0.0912, 0.0658, // easy bonus, short-term
	0.1542, // decay
}

// lowerBounds and upperBounds bracket each weight.
var lowerBounds = [WeightCount]float64{
	0.001, 0.001, 0.001, 0.001,
	1.0, 0.001, 0.001, 0.001,
	0.0, 0.0, 0.001, 0.001,
	0.001, 0.001, 0.0, 0.0,
	1.0, 0.0, 0.0, 0.0,
	0.1,
}

var upperBounds = [WeightCount]float64{
	100.0, 100.0, 100.0, 100.0,
	10.0, 4.0, 4.0, 0.75,
	4.5, 0.8, 3.5, 5.0,
	0.25, 0.9, 4.0, 1.0,
	6.0, 2.0, 2.0, 0.8,
	0.8,
}

// Stability limits in days.
const (
	MinStability = 0.001
	MaxStability = 36500.0
)

// Params defines all configurable parameters for the SRS algorithm
type Params struct {
	// Weights drive every formula of the memory model.
	Weights [WeightCount]float64

	// MinInterval is the shortest gap between a review and the next due date.
	MinInterval time.Duration
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance.
// A nil Weights slice keeps the defaults.
type ParamsConfig struct {
	Weights     []float64
	MinInterval time.Duration
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		Weights:     DefaultWeights,
		MinInterval: 5 * time.Minute,
	}
}

// NewParams creates a new Params instance with custom configuration.
// It returns ErrInvalidParams if any override is out of bounds.
func NewParams(config ParamsConfig) (*Params, error) {
	params := NewDefaultParams()

	if len(config.Weights) > 0 {
		if len(config.Weights) != WeightCount {
			return nil, fmt.Errorf("%w: expected %d weights, got %d",
				ErrInvalidParams, WeightCount, len(config.Weights))
		}
		copy(params.Weights[:], config.Weights)
	}

	if config.MinInterval > 0 {
		params.MinInterval = config.MinInterval
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}

// Validate checks every weight against its bounds.
func (p *Params) Validate() error {
	for i, w := range p.Weights {
		if w < lowerBounds[i] || w > upperBounds[i] {
			return fmt.Errorf("%w: w[%d] = %f, bounds [%f, %f]",
				ErrInvalidParams, i, w, lowerBounds[i], upperBounds[i])
		}
	}
	if p.MinInterval <= 0 {
		return fmt.Errorf("%w: min interval must be positive", ErrInvalidParams)
	}
	return nil
}
