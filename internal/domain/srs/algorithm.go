package srs

import (
	"math"
	"time"

	"github.com/phrazzld/revision-scheduler/internal/domain"
)

// maxRepresentableInterval keeps the interval inside time.Duration's range.
const maxRepresentableInterval = time.Duration(math.MaxInt64 / 2)

// curve holds the forgetting-curve constants derived from the weights.
type curve struct {
	w      [WeightCount]float64
	decay  float64 // -w[20]
	factor float64 // 0.9^(1/decay) - 1
}

func newCurve(p *Params) curve {
	decay := -p.Weights[20]
	return curve{
		w:      p.Weights,
		decay:  decay,
		factor: math.Pow(0.9, 1.0/decay) - 1.0,
	}
}

// retrievability computes the probability of recall after elapsedDays.
//
// R(t, S) = (1 + factor * t / S) ^ decay
//
// R is 1 at t = 0 and decreases monotonically towards 0 as t grows. With the
// factor chosen this way, R(S, S) = 0.9, so stability is the number of days
// until recall probability drops to 90%.
func (c curve) retrievability(elapsedDays, stability float64) float64 {
	if elapsedDays <= 0 {
		return 1
	}
	return math.Pow(1+c.factor*elapsedDays/stability, c.decay)
}

// initStability returns S0 for the first rating.
func (c curve) initStability(r domain.Rating) float64 {
	return clampStability(c.w[r-1])
}

// initDifficulty returns D0(G) = w4 - e^(w5 * (G - 1)) + 1.
// The unclamped value is used as the mean-reversion target.
func (c curve) initDifficulty(r domain.Rating, clamp bool) float64 {
	d := c.w[4] - math.Exp(c.w[5]*float64(r-1)) + 1
	if clamp {
		return clampDifficulty(d)
	}
	return d
}

// nextDifficulty adjusts difficulty towards the rating and then pulls it
// slightly back towards the Easy baseline.
//
// Parameters:
//   - d: the current difficulty, in [1, 10]
//   - r: the rating for this review
//
// Returns:
//   - The new difficulty, clamped to [1, 10]
//
// Algorithm behavior:
//   - Again and Hard raise difficulty, Easy lowers it, Good leaves the linear
//     step at zero
//   - The step shrinks as difficulty approaches 10 (linear damping)
//   - A w7-weighted mean reversion towards D0(Easy) is applied on every review
func (c curve) nextDifficulty(d float64, r domain.Rating) float64 {
	delta := -c.w[6] * (float64(r) - 3)
	damped := d + (10-d)*delta/9
	target := c.initDifficulty(domain.RatingEasy, false)
	return clampDifficulty(c.w[7]*target + (1-c.w[7])*damped)
}

// nextRecallStability grows stability after a successful review. Lower
// retrievability at review time yields a larger gain, and harder cards
// grow more slowly.
func (c curve) nextRecallStability(d, s, r float64, rating domain.Rating) float64 {
	hardPenalty := 1.0
	if rating == domain.RatingHard {
		hardPenalty = c.w[15]
	}
	easyBonus := 1.0
	if rating == domain.RatingEasy {
		easyBonus = c.w[16]
	}
	return clampStability(s * (1 + math.Exp(c.w[8])*
		(11-d)*
		math.Pow(s, -c.w[9])*
		(math.Exp((1-r)*c.w[10])-1)*
		hardPenalty*easyBonus))
}

// nextForgetStability shrinks stability after a lapse. The result never
// exceeds the short-term bound S / e^(w17 * w18).
func (c curve) nextForgetStability(d, s, r float64) float64 {
	long := c.w[11] *
		math.Pow(d, -c.w[12]) *
		(math.Pow(s+1, c.w[13]) - 1) *
		math.Exp((1-r)*c.w[14])
	short := s / math.Exp(c.w[17]*c.w[18])
	return clampStability(math.Min(long, short))
}

// intervalDays returns the number of days after which retrievability falls
// to target: I = S / factor * (target^(1/decay) - 1).
func (c curve) intervalDays(stability, target float64) float64 {
	return stability / c.factor * (math.Pow(target, 1.0/c.decay) - 1)
}

// dueAfter converts an interval in days to a due instant, honoring the
// minimum interval.
func dueAfter(reviewTime time.Time, days float64, minInterval time.Duration) time.Time {
	var ivl time.Duration
	if days*float64(24*time.Hour) >= float64(maxRepresentableInterval) {
		ivl = maxRepresentableInterval
	} else {
		ivl = time.Duration(days * float64(24*time.Hour))
	}
	if ivl < minInterval {
		ivl = minInterval
	}
	return domain.NormalizeTime(reviewTime.Add(ivl))
}

// elapsedDays returns the fractional number of days between two instants.
func elapsedDays(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24
}

func clampStability(s float64) float64 {
	return math.Min(math.Max(s, MinStability), MaxStability)
}

func clampDifficulty(d float64) float64 {
	return math.Min(math.Max(d, 1), 10)
}
