package rules

import "math"

// Equilibrium and risk classifications used by the analytical queries.
const (
	EquilibriumGrowing   = "growing"
	EquilibriumStable    = "stable"
	EquilibriumDeclining = "declining"

	RiskCritical = "critical"
	RiskHigh     = "high"
	RiskModerate = "moderate"
	RiskLow      = "low"
)

// TemperatureFactor is the species-specific piecewise temperature adjustment.
// Inside the optimal range [optMin, optMax] the factor is 1.0; outside it
// drops by 0.05 per degree, floored at 0.5.
func TemperatureFactor(optMin, optMax, temp float64) float64 {
	switch {
	case temp >= optMin && temp <= optMax:
		return 1.0
	case temp < optMin:
		return math.Max(0.5, 1.0-(optMin-temp)*0.05)
	default:
		return math.Max(0.5, 1.0-(temp-optMax)*0.05)
	}
}

// HumidityFactor is 1.0 at or above the species' optimal humidity and decays
// proportionally below it, floored at 0.5.
func HumidityFactor(optHumidity, humidity float64) float64 {
	if humidity >= optHumidity {
		return 1.0
	}
	return math.Max(0.5, humidity/optHumidity)
}

// EffectiveSurvival combines the base survival rate multiplicatively with the
// environmental adjustment factors, clamped to [0, 1].
func EffectiveSurvival(base, tempFactor, humFactor float64) float64 {
	r := base * tempFactor * humFactor
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// HollingConsumption is the Type II functional response:
//
//	consumed = (predators × attackRate × prey) / (1 + attackRate × handlingTime × prey)
//
// The result never exceeds the available prey, and when perPredatorCap > 0 it
// is additionally clamped to predators × perPredatorCap.
func HollingConsumption(predators, attackRate, handlingTime, prey, perPredatorCap float64) float64 {
	if predators <= 0 || prey <= 0 || attackRate <= 0 {
		return 0
	}
	consumed := (predators * attackRate * prey) / (1 + attackRate*handlingTime*prey)
	if perPredatorCap > 0 {
		consumed = math.Min(consumed, predators*perPredatorCap)
	}
	return math.Min(consumed, prey)
}

// ClassifyEquilibrium classifies population against carrying capacity.
// Exactly 80% and 120% of capacity are both stable.
func ClassifyEquilibrium(population, carryingCapacity float64) string {
	if carryingCapacity <= 0 {
		return EquilibriumDeclining
	}
	ratio := population / carryingCapacity
	switch {
	case ratio < 0.8:
		return EquilibriumGrowing
	case ratio > 1.2:
		return EquilibriumDeclining
	default:
		return EquilibriumStable
	}
}

// ClassifyExtinctionRisk compares a population against the minimum viable
// population threshold at multipliers 0.5, 1.0, and 2.0.
func ClassifyExtinctionRisk(population, mvp float64) string {
	switch {
	case population < 0.5*mvp:
		return RiskCritical
	case population < mvp:
		return RiskHigh
	case population < 2*mvp:
		return RiskModerate
	default:
		return RiskLow
	}
}
