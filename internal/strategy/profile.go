package strategy

import "SwingScout/internal/model"

// VolatilityTier maps an annualized volatility floor to a base target range.
type VolatilityTier struct {
	Label  string
	MinVol float64
	MinPct float64
	MaxPct float64
}

// Profile is the per-market parameter set. Filter and target computation share
// one code path and differ only by these values.
type Profile struct {
	Market model.Market

	// EMAPeriods are computed for every bar. TrendEMAs must be ascending and
	// are used for trend alignment (close > e0 > e1 > e2).
	EMAPeriods  []int
	TrendEMAs   []int
	LongTermEMA int

	UseVWAP      bool
	UseMACD      bool
	UseBollinger bool
	UseWilliams  bool

	RSIMin         float64
	RSIMax         float64
	MinVolumeRatio float64
	MinStrength    float64

	// Tiers ordered from highest MinVol to lowest; the last tier has MinVol 0.
	Tiers []VolatilityTier

	TargetFloor   float64
	TargetCeiling float64
	SLFloor       float64
	SLCeiling     float64
}

// IndianProfile is tuned for NSE large caps.
var IndianProfile = Profile{
	Market:         model.MarketIndian,
	EMAPeriods:     []int{20, 50, 100, 200},
	TrendEMAs:      []int{20, 50, 100},
	LongTermEMA:    200,
	UseVWAP:        true,
	RSIMin:         45,
	RSIMax:         70,
	MinVolumeRatio: 1.5,
	MinStrength:    2,
	Tiers: []VolatilityTier{
		{Label: "high", MinVol: 0.40, MinPct: 0.07, MaxPct: 0.14},
		{Label: "medium", MinVol: 0.25, MinPct: 0.05, MaxPct: 0.10},
		{Label: "low", MinVol: 0, MinPct: 0.03, MaxPct: 0.07},
	},
	TargetFloor:   0.02,
	TargetCeiling: 0.15,
	SLFloor:       0.01,
	SLCeiling:     0.07,
}

// USProfile is tuned for S&P 500 / NASDAQ names.
var USProfile = Profile{
	Market:         model.MarketUS,
	EMAPeriods:     []int{9, 21, 50, 200},
	TrendEMAs:      []int{9, 21, 50},
	LongTermEMA:    200,
	UseMACD:        true,
	UseBollinger:   true,
	UseWilliams:    true,
	RSIMin:         40,
	RSIMax:         65,
	MinVolumeRatio: 1.3,
	MinStrength:    3,
	Tiers: []VolatilityTier{
		{Label: "high", MinVol: 0.35, MinPct: 0.05, MaxPct: 0.09},
		{Label: "medium", MinVol: 0.20, MinPct: 0.03, MaxPct: 0.07},
		{Label: "low", MinVol: 0, MinPct: 0.02, MaxPct: 0.05},
	},
	TargetFloor:   0.015,
	TargetCeiling: 0.10,
	SLFloor:       0.0075,
	SLCeiling:     0.05,
}

// ProfileFor returns the built-in profile of a market.
func ProfileFor(m model.Market) Profile {
	if m == model.MarketIndian {
		return IndianProfile
	}
	return USProfile
}

// tierFor maps an annualized volatility to its tier.
func (p Profile) tierFor(vol float64) VolatilityTier {
	for _, t := range p.Tiers {
		if vol >= t.MinVol {
			return t
		}
	}
	return p.Tiers[len(p.Tiers)-1]
}

// riskLevel maps a volatility tier label to the stored risk level.
func riskLevel(label string) string {
	switch label {
	case "high":
		return "High"
	case "medium":
		return "Medium"
	default:
		return "Low"
	}
}
