package estimation

import (
	"math"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Reading is one sensor's report of a scalar quantity (e.g. one axis of a
// redundant position source), weighted by a caller-assigned quality in
// [0, 1].
type Reading struct {
	SensorID int
	Value    float64
	Quality  float64
}

// Consensus is the outcome of voting across a set of Readings.
type Consensus struct {
	Value      float64
	Confidence float64
	Agreement  int
	Total      int
	Outliers   []int
}

// Voter reconciles redundant sensor readings into a single consensus value
// via quality-weighted median, flagging sensors that disagree beyond the
// configured relative threshold.
type Voter struct {
	mu        sync.Mutex
	threshold float64
	logger    *logrus.Logger
}

// NewVoter creates a Voter. threshold is the relative deviation from the
// weighted median beyond which a reading is flagged an outlier; 0 defaults
// to 10%.
func NewVoter(threshold float64, logger *logrus.Logger) *Voter {
	if threshold == 0 {
		threshold = 0.1
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Voter{threshold: threshold, logger: logger}
}

// Vote computes the consensus across readings.
func (v *Voter) Vote(readings []Reading) Consensus {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(readings) == 0 {
		return Consensus{}
	}
	if len(readings) == 1 {
		return Consensus{Value: readings[0].Value, Confidence: readings[0].Quality, Agreement: 1, Total: 1}
	}

	totalWeight := 0.0
	for _, r := range readings {
		totalWeight += r.Quality
	}
	if totalWeight == 0 {
		return Consensus{Total: len(readings)}
	}

	sorted := make([]Reading, len(readings))
	copy(sorted, readings)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Value < sorted[j].Value })
	median := sorted[len(sorted)-1].Value
	cumulative := 0.0
	for _, r := range sorted {
		cumulative += r.Quality
		if cumulative >= totalWeight/2 {
			median = r.Value
			break
		}
	}

	var outliers []int
	agreement := 0
	for _, r := range readings {
		denom := math.Abs(median)
		if denom == 0 {
			denom = 1
		}
		deviation := math.Abs(r.Value-median) / denom
		if deviation > v.threshold {
			outliers = append(outliers, r.SensorID)
			v.logger.WithFields(logrus.Fields{
				"sensor":    r.SensorID,
				"value":     r.Value,
				"median":    median,
				"deviation": deviation,
			}).Warn("sensor outlier detected")
		} else {
			agreement++
		}
	}

	confidence := float64(agreement) / float64(len(readings))
	if agreement < len(readings)/2+1 {
		v.logger.Warn("low agreement among redundant sensors")
		confidence *= 0.5
	}

	return Consensus{
		Value:      median,
		Confidence: confidence,
		Agreement:  agreement,
		Total:      len(readings),
		Outliers:   outliers,
	}
}
