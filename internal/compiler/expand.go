// Package compiler expands a plan's block tree into a flat, ordered list of
// workout steps.
package compiler

import (
	"errors"
	"fmt"
	"math"

	"github.com/claude/zwoforge/internal/models"
	"github.com/claude/zwoforge/internal/power"
)

// Context carries the plan-wide inputs of an expansion.
type Context struct {
	FTP            *float64
	StandardWarmup []models.Step
}

// NewContext returns a Context using the standard warmup macro.
func NewContext(ftp *float64) Context {
	return Context{FTP: ftp, StandardWarmup: StandardWarmup()}
}

// Compile expands all blocks of plan.
func Compile(plan *models.Plan) ([]models.Step, error) {
	return Expand(plan.Blocks, NewContext(plan.FTP))
}

// Expand flattens blocks in pre-order. Repeat blocks are unrolled into
// consecutive copies of their expanded children. Any malformed block fails
// the whole expansion with a *BlockError and no steps.
func Expand(blocks []models.Block, ctx Context) ([]models.Step, error) {
	var out []models.Step
	if err := expandList(&out, blocks, ctx, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func expandList(out *[]models.Step, blocks []models.Block, ctx Context, path []int) error {
	for i := range blocks {
		if err := expandBlock(out, &blocks[i], ctx, append(path, i)); err != nil {
			return err
		}
	}
	return nil
}

func expandBlock(out *[]models.Step, b *models.Block, ctx Context, path []int) error {
	kind := b.Type.Normalize()

	switch kind {
	case "":
		return blockErr(path, kind, "missing type")

	case models.KindStandardWarmup:
		*out = append(*out, ctx.StandardWarmup...)
		return nil

	case models.KindWarmup, models.KindCooldown, models.KindRamp:
		dur, err := duration(b.Minutes, b.Seconds)
		if err != nil {
			return blockErr(path, kind, "%w", err)
		}
		low, high, err := rampPower(b, ctx.FTP)
		if err != nil {
			return &BlockError{Path: clonePath(path), Kind: kind, Err: err}
		}
		if err := checkCadence(b.Cadence, "cadence"); err != nil {
			return blockErr(path, kind, "%w", err)
		}
		*out = append(*out, models.Step{
			Kind:      rampKinds[kind],
			Duration:  dur,
			PowerLow:  models.Float(low),
			PowerHigh: models.Float(high),
			Cadence:   b.Cadence,
		})
		return nil

	case models.KindSteady:
		dur, err := duration(b.Minutes, b.Seconds)
		if err != nil {
			return blockErr(path, kind, "%w", err)
		}
		if b.Power == nil {
			return blockErr(path, kind, "power is required")
		}
		t, err := power.Resolve(b.Power.Spec, ctx.FTP)
		if err != nil {
			return blockErr(path, kind, "power: %w", err)
		}
		if t.Ranged {
			return blockErr(path, kind, "power must be a single value, got %s", b.Power)
		}
		if err := checkCadence(b.Cadence, "cadence"); err != nil {
			return blockErr(path, kind, "%w", err)
		}
		*out = append(*out, models.Step{
			Kind:     models.StepSteady,
			Duration: dur,
			Power:    models.Float(t.Low),
			Cadence:  b.Cadence,
		})
		return nil

	case models.KindFreeRide:
		dur, err := duration(b.Minutes, b.Seconds)
		if err != nil {
			return blockErr(path, kind, "%w", err)
		}
		if err := checkCadence(b.Cadence, "cadence"); err != nil {
			return blockErr(path, kind, "%w", err)
		}
		*out = append(*out, models.Step{
			Kind:     models.StepFreeRide,
			Duration: dur,
			Cadence:  b.Cadence,
			FlatRoad: b.FlatRoad,
		})
		return nil

	case models.KindMaxEffort:
		dur, err := duration(b.Minutes, b.Seconds)
		if err != nil {
			return blockErr(path, kind, "%w", err)
		}
		*out = append(*out, models.Step{Kind: models.StepMaxEffort, Duration: dur})
		return nil

	case models.KindTextEvent:
		if b.Message == "" {
			return blockErr(path, kind, "message is required")
		}
		offset := 0
		if b.TimeOffset != nil {
			offset = *b.TimeOffset
		}
		if offset < 0 {
			return blockErr(path, kind, "time_offset must be >= 0, got %d", offset)
		}
		*out = append(*out, models.Step{
			Kind:       models.StepTextEvent,
			TimeOffset: offset,
			Message:    b.Message,
		})
		return nil

	case models.KindIntervals:
		return expandIntervals(out, b, ctx, path)

	case models.KindRepeat:
		if b.Times == nil || *b.Times <= 0 {
			return blockErr(path, kind, "times must be > 0")
		}
		if len(b.Blocks) == 0 {
			return blockErr(path, kind, "blocks is required")
		}
		var body []models.Step
		if err := expandList(&body, b.Blocks, ctx, path); err != nil {
			return err
		}
		for n := 0; n < *b.Times; n++ {
			*out = append(*out, body...)
		}
		return nil
	}

	return blockErr(path, kind, "unknown block type %q", string(b.Type))
}

var rampKinds = map[models.BlockKind]models.StepKind{
	models.KindWarmup:   models.StepWarmup,
	models.KindCooldown: models.StepCooldown,
	models.KindRamp:     models.StepRamp,
}

func expandIntervals(out *[]models.Step, b *models.Block, ctx Context, path []int) error {
	kind := models.KindIntervals
	if b.Repeat == nil || *b.Repeat <= 0 {
		return blockErr(path, kind, "repeat must be > 0")
	}
	onDur, err := duration(b.OnMinutes, b.OnSeconds)
	if err != nil {
		return blockErr(path, kind, "on: %w", err)
	}
	offDur, err := duration(b.OffMinutes, b.OffSeconds)
	if err != nil {
		return blockErr(path, kind, "off: %w", err)
	}
	if err := checkCadence(b.Cadence, "cadence"); err != nil {
		return blockErr(path, kind, "%w", err)
	}
	if err := checkCadence(b.CadenceRest, "cadence_rest"); err != nil {
		return blockErr(path, kind, "%w", err)
	}

	on := models.Step{Kind: models.StepIntervalOn, Duration: onDur, Cadence: b.Cadence}
	if b.OnPower != nil {
		t, err := power.Resolve(b.OnPower.Spec, ctx.FTP)
		if err != nil {
			return blockErr(path, kind, "on_power: %w", err)
		}
		setPower(&on, t)
	}
	off := models.Step{Kind: models.StepIntervalOff, Duration: offDur, Cadence: b.CadenceRest}
	if b.OffPower != nil {
		t, err := power.Resolve(b.OffPower.Spec, ctx.FTP)
		if err != nil {
			return blockErr(path, kind, "off_power: %w", err)
		}
		setPower(&off, t)
	}

	repeat := *b.Repeat
	for r := 0; r < repeat; r++ {
		on.Interval = &models.IntervalRef{Repeat: repeat, Rep: r}
		off.Interval = &models.IntervalRef{Repeat: repeat, Rep: r}
		*out = append(*out, on, off)
	}
	return nil
}

// rampPower resolves the start and end power of a warmup, cooldown or ramp.
// A ranged power gives both ends, a single power gives a flat segment, and
// otherwise power_low and power_high are both required.
func rampPower(b *models.Block, ftp *float64) (float64, float64, error) {
	if b.Power != nil {
		t, err := power.Resolve(b.Power.Spec, ftp)
		if err != nil {
			return 0, 0, fmt.Errorf("power: %w", err)
		}
		if t.Ranged {
			return t.Low, t.High, nil
		}
		return t.Low, t.Low, nil
	}

	if b.PowerLow == nil || b.PowerHigh == nil {
		return 0, 0, errors.New("power range or power_low/power_high is required")
	}
	low, err := resolveSingle(b.PowerLow, ftp, "power_low")
	if err != nil {
		return 0, 0, err
	}
	high, err := resolveSingle(b.PowerHigh, ftp, "power_high")
	if err != nil {
		return 0, 0, err
	}
	return low, high, nil
}

func resolveSingle(pv *models.PowerValue, ftp *float64, field string) (float64, error) {
	t, err := power.Resolve(pv.Spec, ftp)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if t.Ranged {
		return 0, fmt.Errorf("%s: must be a single value, got %s", field, pv)
	}
	return t.Low, nil
}

func setPower(s *models.Step, t power.Target) {
	if t.Ranged {
		s.PowerLow = models.Float(t.Low)
		s.PowerHigh = models.Float(t.High)
		return
	}
	s.Power = models.Float(t.Low)
}

// duration converts minutes (preferred) or seconds into whole seconds.
func duration(minutes *float64, seconds *int) (int, error) {
	var d int
	switch {
	case minutes != nil && (seconds == nil || math.Round(*minutes*60) != 0):
		d = int(math.Round(*minutes * 60))
	case seconds != nil:
		// a zero minutes value yields to an explicit seconds value
		d = *seconds
	default:
		return 0, errors.New("minutes or seconds is required")
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be > 0, got %ds", d)
	}
	return d, nil
}

func checkCadence(c *int, field string) error {
	if c != nil && *c <= 0 {
		return fmt.Errorf("%s must be > 0, got %d", field, *c)
	}
	return nil
}
