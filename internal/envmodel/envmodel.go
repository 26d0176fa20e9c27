// Package envmodel generates daily environmental conditions. Temperature and
// humidity follow smooth noise around configurable baselines, so runs with
// the same seed see the same weather.
package envmodel

import (
	"fmt"
	"log/slog"
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/biosim/internal/facts"
	"github.com/talgya/biosim/internal/rules"
	"github.com/talgya/biosim/internal/species"
)

// Config sets the climate baselines and how far the noise can push them.
type Config struct {
	Seed          int64
	BaseTemp      float64 // Celsius
	TempSwing     float64 // max deviation from BaseTemp
	BaseHumidity  float64 // percent
	HumiditySwing float64
	BaseCapacity  float64 // carrying capacity under optimal conditions
}

// DefaultConfig is a warm, humid climate suited to container-breeding
// mosquitoes.
func DefaultConfig(seed int64) Config {
	return Config{
		Seed:          seed,
		BaseTemp:      27,
		TempSwing:     6,
		BaseHumidity:  75,
		HumiditySwing: 20,
		BaseCapacity:  10000,
	}
}

// Humidity is clamped to this range; temperature to [5, 45].
const (
	minHumidity = 30.0
	maxHumidity = 100.0
	minTemp     = 5.0
	maxTemp     = 45.0
)

// noiseScale stretches day indices so consecutive days stay correlated.
const noiseScale = 0.08

// Model produces one condition reading per day.
type Model struct {
	cfg       Config
	tempNoise opensimplex.Noise
	humNoise  opensimplex.Noise
}

func New(cfg Config) *Model {
	return &Model{
		cfg:       cfg,
		tempNoise: opensimplex.NewNormalized(cfg.Seed),
		humNoise:  opensimplex.NewNormalized(cfg.Seed + 1),
	}
}

// Conditions returns the temperature and humidity for a day.
func (m *Model) Conditions(day int) (temp, humidity float64) {
	x := float64(day) * noiseScale

	// NewNormalized yields [0, 1]; center on the baseline.
	temp = m.cfg.BaseTemp + (m.tempNoise.Eval2(x, 0)-0.5)*2*m.cfg.TempSwing
	humidity = m.cfg.BaseHumidity + (m.humNoise.Eval2(x, 0)-0.5)*2*m.cfg.HumiditySwing

	temp = math.Min(maxTemp, math.Max(minTemp, temp))
	humidity = math.Min(maxHumidity, math.Max(minHumidity, humidity))
	return temp, humidity
}

// CarryingCapacity scales the base capacity by how far the day's conditions
// sit from a species' optimum.
func (m *Model) CarryingCapacity(p species.Params, day int) float64 {
	temp, hum := m.Conditions(day)
	tf := rules.TemperatureFactor(p.Sensitivity.OptTempMin, p.Sensitivity.OptTempMax, temp)
	hf := rules.HumidityFactor(p.Sensitivity.OptHumidity, hum)
	return m.cfg.BaseCapacity * tf * hf
}

// Apply asserts environmental state facts for days [from, to) and keeps the
// carrying_capacity parameter current for the last applied day.
func (m *Model) Apply(s *facts.Store, from, to int, ref species.Params) error {
	for day := from; day < to; day++ {
		temp, hum := m.Conditions(day)
		if err := s.Insert(facts.RelEnvironmentalState, day, temp, hum); err != nil {
			return fmt.Errorf("assert environment for day %d: %w", day, err)
		}
	}
	if to > from {
		last := to - 1
		capacity := m.CarryingCapacity(ref, last)
		if err := species.LoadEnvironmentalParam(s, "carrying_capacity", capacity); err != nil {
			return err
		}
		slog.Debug("environment applied", "throughDay", last, "carryingCapacity", capacity)
	}
	return nil
}
