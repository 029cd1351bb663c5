// Package engine wires the topology index, candidate retriever, scoring
// and decision engine, and journey builder together into one batch run:
// fan out scoring across a worker pool sized to the CPU count, arbitrate
// collisions on a single coordinator, then walk the accepted links into
// journeys and publish everything through the output sinks.
package engine

import (
	"runtime"

	"github.com/your-org/mallid/internal/candidates"
	"github.com/your-org/mallid/internal/config"
	"github.com/your-org/mallid/internal/scoring"
	"github.com/your-org/mallid/internal/topology"
)

// Config carries every tunable the batch run needs, translated once from
// config.MatchingConfig at startup.
type Config struct {
	WorkerCount int

	WalkSpeedMS  float64
	ToleranceSec float64

	RetrieverOptions candidates.Options
	DecisionConfig   scoring.DecisionConfig

	CooldownSec    float64
	IdleTimeoutSec float64

	FrequentOutfitRatePerSec float64
	FrequentOutfitBurst      int
}

func (c Config) topologyOptions() topology.BuildOptions {
	opts := topology.DefaultBuildOptions()
	if c.WalkSpeedMS > 0 {
		opts.WalkSpeedMS = c.WalkSpeedMS
	}
	if c.ToleranceSec > 0 {
		opts.ToleranceSec = c.ToleranceSec
	}
	return opts
}

func (c Config) workerCount() int {
	if c.WorkerCount > 0 {
		return c.WorkerCount
	}
	return runtime.NumCPU()
}

// ConfigFromMatching translates the YAML/env-driven matching configuration
// into the shape the batch run consumes internally.
func ConfigFromMatching(m config.MatchingConfig) Config {
	return Config{
		WorkerCount:  m.WorkerCount,
		WalkSpeedMS:  m.WalkSpeedMS,
		ToleranceSec: m.TimeToleranceSec,
		RetrieverOptions: candidates.Options{
			MaxCandidateWindowSec:   m.MaxCandidateWindowSec,
			EmbedFloor:              m.EmbedFloor,
			TopK:                    m.CandidateTopK,
			FrequentOutfitThreshold: m.FrequentOutfitThreshold,
			FrequentOutfitPenalty:   m.FrequentOutfitPenalty,
		},
		DecisionConfig: scoring.DecisionConfig{
			MatchThreshold:           m.MatchThreshold,
			OutfitMin:                m.OutfitMin,
			AmbiguityGap:             m.AmbiguityGap,
			RushHourCandidateTrigger: m.RushHourCandidateTrigger,
			RushHourThresholdBump:    m.RushHourThresholdBump,
		},
		CooldownSec:              m.CooldownSec,
		IdleTimeoutSec:           m.IdleTimeoutSec,
		FrequentOutfitRatePerSec: 2,
		FrequentOutfitBurst:      4,
	}
}
