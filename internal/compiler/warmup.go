package compiler

import "github.com/claude/zwoforge/internal/models"

// StandardWarmup returns the fixed standard_warmup sequence: a 10 minute
// ramp followed by two high-cadence spin-ups, each with a minute of easy
// recovery. A fresh copy is returned on every call.
func StandardWarmup() []models.Step {
	return []models.Step{
		{Kind: models.StepWarmup, Duration: 600, PowerLow: models.Float(0.50), PowerHigh: models.Float(0.77)},
		{Kind: models.StepFreeRide, Duration: 60, FlatRoad: models.Int(1), Cadence: models.Int(110)},
		{Kind: models.StepSteady, Duration: 60, Power: models.Float(0.50)},
		{Kind: models.StepFreeRide, Duration: 60, FlatRoad: models.Int(1), Cadence: models.Int(110)},
		{Kind: models.StepSteady, Duration: 60, Power: models.Float(0.50)},
	}
}
