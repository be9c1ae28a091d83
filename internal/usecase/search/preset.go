package search

import (
	"fmt"
	"sort"
)

// Preset bundles the RRF constant, list weights and additive boosts/penalty.
// Boost magnitudes are on the RRF scale (1/(60+1) ≈ 0.016).
type Preset struct {
	Name          string
	K             int
	KeywordWeight float64
	VectorWeight  float64

	BoostCard          float64
	BoostIntent        float64
	BoostPayment       float64
	BoostCategory      float64
	BoostWeak          float64
	BoostGuideCoverage float64
	CardTopBonus       float64
	PenaltyCardGuide   float64
}

// DefaultPreset is used when no preset is configured.
const DefaultPreset = "balanced"

var balanced = Preset{
	Name:               "balanced",
	K:                  60,
	KeywordWeight:      1.0,
	VectorWeight:       1.0,
	BoostCard:          0.020,
	BoostIntent:        0.010,
	BoostPayment:       0.010,
	BoostCategory:      0.005,
	BoostWeak:          0.003,
	BoostGuideCoverage: 0.002,
	CardTopBonus:       0.015,
	PenaltyCardGuide:   0.008,
}

var presets = map[string]Preset{
	"balanced": balanced,
	"precision": balanced.with("precision", 20, 1.2, 0.8, func(p *Preset) {
		p.BoostCard *= 1.5
		p.BoostIntent *= 1.5
		p.PenaltyCardGuide *= 1.5
	}),
	"recall": balanced.with("recall", 90, 1.0, 1.0, func(p *Preset) {
		p.scaleBoosts(0.6)
	}),
	"vector_heavy":  balanced.with("vector_heavy", 60, 0.6, 1.4, nil),
	"keyword_heavy": balanced.with("keyword_heavy", 60, 1.4, 0.6, nil),
	"aggressive": balanced.with("aggressive", 10, 1.3, 1.0, func(p *Preset) {
		p.scaleBoosts(2)
	}),
}

// LookupPreset returns the named preset. An empty name selects DefaultPreset.
func LookupPreset(name string) (Preset, error) {
	if name == "" {
		name = DefaultPreset
	}
	p, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown tuning preset %q (known: %v)", name, PresetNames())
	}
	return p, nil
}

// PresetNames lists the known presets in lexical order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (p Preset) with(name string, k int, kw, vec float64, adjust func(*Preset)) Preset {
	p.Name, p.K, p.KeywordWeight, p.VectorWeight = name, k, kw, vec
	if adjust != nil {
		adjust(&p)
	}
	return p
}

func (p *Preset) scaleBoosts(f float64) {
	p.BoostCard *= f
	p.BoostIntent *= f
	p.BoostPayment *= f
	p.BoostCategory *= f
	p.BoostWeak *= f
	p.BoostGuideCoverage *= f
	p.CardTopBonus *= f
}
