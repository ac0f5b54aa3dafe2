package score

import "github.com/policyvoice/corroborate/internal/model"

// Weights are the heuristic increments behind every confidence score.
// They are tunable and are not calibrated probabilities.
type Weights struct {
	Baseline          int
	Strong            int
	Moderate          int
	Minor             int
	VerifiedThreshold int
	MaxConfidence     int
	NeutralConfidence int
	Baselines         map[string]int // per-adapter baseline override
}

// DefaultWeights returns the stock weights
func DefaultWeights() Weights {
	return WeightsFromConfig(model.DefaultConfig().Scoring)
}

// WeightsFromConfig builds weights from configuration, filling zero values
// from the stock defaults
func WeightsFromConfig(cfg model.ScoringConfig) Weights {
	w := Weights{
		Baseline:          orDefault(cfg.Baseline, 65),
		Strong:            orDefault(cfg.Strong, 15),
		Moderate:          orDefault(cfg.Moderate, 10),
		Minor:             orDefault(cfg.Minor, 5),
		VerifiedThreshold: orDefault(cfg.VerifiedThreshold, 60),
		MaxConfidence:     orDefault(cfg.MaxConfidence, 95),
		NeutralConfidence: orDefault(cfg.NeutralConfidence, 50),
		Baselines:         make(map[string]int, len(cfg.Baselines)),
	}
	if w.MaxConfidence > 100 {
		w.MaxConfidence = 100
	}
	for name, v := range cfg.Baselines {
		w.Baselines[name] = v
	}
	return w
}

// BaselineFor returns the starting confidence for an adapter
func (w Weights) BaselineFor(adapter string) int {
	if v, ok := w.Baselines[adapter]; ok && v > 0 {
		return v
	}
	return w.Baseline
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Percent derives a share as reported / (reported + unreported) × 100.
// A zero denominator yields 0.
func Percent(reported, unreported float64) float64 {
	return Ratio(reported, reported+unreported)
}

// Ratio returns part/total as a percentage; a zero total yields 0
func Ratio(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}

// Clamp bounds v to [lo, hi]
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
