package compiler

import (
	"errors"
	"reflect"
	"testing"

	"github.com/claude/zwoforge/internal/models"
	"github.com/claude/zwoforge/internal/power"
	"gopkg.in/yaml.v3"
)

func parseBlocks(t *testing.T, src string) []models.Block {
	t.Helper()
	var p models.Plan
	if err := yaml.Unmarshal([]byte(src), &p); err != nil {
		t.Fatalf("unmarshal plan: %v", err)
	}
	return p.Blocks
}

func kinds(steps []models.Step) []models.StepKind {
	out := make([]models.StepKind, len(steps))
	for i, s := range steps {
		out[i] = s.Kind
	}
	return out
}

const examplePlan = `
blocks:
  - type: steady
    minutes: 30
    power: z2
  - type: intervals
    repeat: 3
    on_minutes: 2
    on_power: [1.05, 1.10]
    off_minutes: 2
    off_power: 0.5
  - type: cooldown
    minutes: 10
    power_low: 0.65
    power_high: 0.45
`

// TestExpandExample verifies the steady + 3x intervals + cooldown plan
// expands to eight steps in literal order.
func TestExpandExample(t *testing.T) {
	steps, err := Expand(parseBlocks(t, examplePlan), NewContext(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []models.StepKind{
		models.StepSteady,
		models.StepIntervalOn, models.StepIntervalOff,
		models.StepIntervalOn, models.StepIntervalOff,
		models.StepIntervalOn, models.StepIntervalOff,
		models.StepCooldown,
	}
	if got := kinds(steps); !reflect.DeepEqual(got, want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}

	if steps[0].Duration != 1800 || *steps[0].Power != 0.65 {
		t.Errorf("steady = %ds @ %v, want 1800s @ 0.65", steps[0].Duration, *steps[0].Power)
	}
	on := steps[1]
	if on.Duration != 120 || *on.PowerLow != 1.05 || *on.PowerHigh != 1.10 || on.Power != nil {
		t.Errorf("on step = %+v", on)
	}
	off := steps[2]
	if off.Duration != 120 || *off.Power != 0.5 {
		t.Errorf("off step = %+v", off)
	}
	if steps[5].Interval.Rep != 2 || steps[5].Interval.Repeat != 3 {
		t.Errorf("third on interval ref = %+v", steps[5].Interval)
	}
	cd := steps[7]
	if cd.Duration != 600 || *cd.PowerLow != 0.65 || *cd.PowerHigh != 0.45 {
		t.Errorf("cooldown = %+v", cd)
	}
}

// TestStandardWarmupStable verifies the macro ignores plan FTP, block fields
// and neighbouring blocks.
func TestStandardWarmupStable(t *testing.T) {
	ftp := 300.0
	a, err := Expand(parseBlocks(t, "blocks:\n  - type: standard_warmup\n"), NewContext(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Expand(parseBlocks(t, `
blocks:
  - type: steady
    minutes: 5
    power: z1
  - type: standard_warmup
    minutes: 99
    power: z6
`), NewContext(&ftp))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(a, StandardWarmup()) {
		t.Errorf("warmup = %+v, want macro", a)
	}
	if !reflect.DeepEqual(b[1:], a) {
		t.Errorf("warmup after steady differs: %+v", b[1:])
	}
	if len(a) != 5 || a[0].Kind != models.StepWarmup || a[0].Duration != 600 {
		t.Errorf("unexpected macro shape: %+v", a)
	}
}

// TestExpandRepeatCounts verifies a repeat of K leaves contributes N*K steps,
// including nested repeats, and that order is preserved inside each copy.
func TestExpandRepeatCounts(t *testing.T) {
	src := `
blocks:
  - type: freeride
    minutes: 5
  - type: repeat
    times: 2
    blocks:
      - type: steady
        minutes: 1
        power: 0.9
      - type: repeat
        times: 3
        blocks:
          - type: maxeffort
            seconds: 20
          - type: steady
            seconds: 40
            power: 0.5
  - type: ramp
    minutes: 3
    power: [0.6, 0.8]
`
	steps, err := Expand(parseBlocks(t, src), NewContext(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 1 + 2*(1 + 3*2) + 1
	if len(steps) != 16 {
		t.Fatalf("steps = %d, want 16", len(steps))
	}

	wantCopy := []models.StepKind{
		models.StepSteady,
		models.StepMaxEffort, models.StepSteady,
		models.StepMaxEffort, models.StepSteady,
		models.StepMaxEffort, models.StepSteady,
	}
	got := kinds(steps)
	if !reflect.DeepEqual(got[1:8], wantCopy) || !reflect.DeepEqual(got[8:15], wantCopy) {
		t.Errorf("repeat body = %v", got[1:15])
	}
	if got[0] != models.StepFreeRide || got[15] != models.StepRamp {
		t.Errorf("outer order = %v", got)
	}
}

// TestExpandIdempotentFlatPlan verifies expanding a repeat-free plan twice
// yields identical step sequences.
func TestExpandIdempotentFlatPlan(t *testing.T) {
	blocks := parseBlocks(t, examplePlan)
	first, err := Expand(blocks, NewContext(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Expand(blocks, NewContext(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("expansions differ")
	}
}

// TestExpandTextEvent verifies text events are zero-duration markers that
// keep their position in the sequence.
func TestExpandTextEvent(t *testing.T) {
	steps, err := Expand(parseBlocks(t, `
blocks:
  - type: steady
    minutes: 10
    power: z2
  - type: textevent
    time_offset: 30
    message: Settle in
  - type: freeride
    minutes: 1
    cadence: 100
    flat_road: 1
`), NewContext(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(steps))
	}
	ev := steps[1]
	if ev.Kind != models.StepTextEvent || ev.TimeOffset != 30 || ev.Message != "Settle in" || ev.Duration != 0 {
		t.Errorf("text event = %+v", ev)
	}
	if *steps[2].Cadence != 100 || *steps[2].FlatRoad != 1 {
		t.Errorf("freeride = %+v", steps[2])
	}
}

// TestExpandIntervalCadence verifies cadence goes to on steps and
// cadence_rest to off steps.
func TestExpandIntervalCadence(t *testing.T) {
	steps, err := Expand(parseBlocks(t, `
blocks:
  - type: intervals
    repeat: 2
    on_seconds: 30
    off_seconds: 30
    on_power: {pct: 120}
    cadence: 105
    cadence_rest: 85
`), NewContext(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 4 {
		t.Fatalf("steps = %d, want 4", len(steps))
	}
	if *steps[0].Cadence != 105 || *steps[1].Cadence != 85 {
		t.Errorf("cadence on/off = %d/%d", *steps[0].Cadence, *steps[1].Cadence)
	}
	if steps[1].Power != nil || steps[1].PowerLow != nil {
		t.Errorf("off step without off_power carries power: %+v", steps[1])
	}
}

// TestExpandWatts verifies wattage targets are divided by the plan FTP.
func TestExpandWatts(t *testing.T) {
	ftp := 250.0
	steps, err := Compile(&models.Plan{
		FTP: &ftp,
		Blocks: []models.Block{{
			Type:    models.KindSteady,
			Minutes: func() *float64 { v := 1.5; return &v }(),
			Power:   models.NewPowerValue(models.Watts(200)),
		}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if steps[0].Duration != 90 || *steps[0].Power != 0.8 {
		t.Errorf("step = %ds @ %v, want 90s @ 0.8", steps[0].Duration, *steps[0].Power)
	}
}

// TestExpandZeroMinutesUsesSeconds verifies seconds is used when minutes
// rounds to zero.
func TestExpandZeroMinutesUsesSeconds(t *testing.T) {
	src := "blocks:\n  - type: cooldown\n    minutes: 0\n    seconds: 300\n    power_low: 0.6\n    power_high: 0.4\n"
	steps, err := Expand(parseBlocks(t, src), NewContext(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 1 || steps[0].Duration != 300 {
		t.Errorf("steps = %+v, want one 300s step", steps)
	}

	src = "blocks:\n  - type: maxeffort\n    minutes: 0\n    seconds: 0\n"
	if _, err := Expand(parseBlocks(t, src), NewContext(nil)); !errors.Is(err, ErrInvalidBlock) {
		t.Errorf("err = %v, want ErrInvalidBlock", err)
	}
}

// TestExpandErrors verifies malformed blocks fail the whole expansion with a
// BlockError carrying the index path.
func TestExpandErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantPath string
		wantErr  error
	}{
		{
			name:     "unknown type",
			src:      "blocks:\n  - type: sprint\n    minutes: 1\n",
			wantPath: "blocks[0]",
		},
		{
			name:     "missing type",
			src:      "blocks:\n  - minutes: 1\n",
			wantPath: "blocks[0]",
		},
		{
			name:     "steady without power",
			src:      "blocks:\n  - type: freeride\n    minutes: 1\n  - type: steady\n    minutes: 1\n",
			wantPath: "blocks[1]",
		},
		{
			name:     "steady with range",
			src:      "blocks:\n  - type: steady\n    minutes: 1\n    power: [0.5, 0.6]\n",
			wantPath: "blocks[0]",
		},
		{
			name:     "zero duration",
			src:      "blocks:\n  - type: maxeffort\n    seconds: 0\n",
			wantPath: "blocks[0]",
		},
		{
			name:     "warmup missing power",
			src:      "blocks:\n  - type: warmup\n    minutes: 5\n    power_low: 0.4\n",
			wantPath: "blocks[0]",
		},
		{
			name:     "textevent without message",
			src:      "blocks:\n  - type: textevent\n    time_offset: 5\n",
			wantPath: "blocks[0]",
		},
		{
			name:     "intervals without repeat",
			src:      "blocks:\n  - type: intervals\n    on_minutes: 1\n    off_minutes: 1\n",
			wantPath: "blocks[0]",
		},
		{
			name:     "repeat without times",
			src:      "blocks:\n  - type: repeat\n    blocks:\n      - type: maxeffort\n        seconds: 10\n",
			wantPath: "blocks[0]",
		},
		{
			name: "nested unknown zone",
			src: `
blocks:
  - type: standard_warmup
  - type: repeat
    times: 2
    blocks:
      - type: maxeffort
        seconds: 10
      - type: repeat
        times: 2
        blocks:
          - type: steady
            minutes: 1
            power: z9
`,
			wantPath: "blocks[1].blocks[1].blocks[0]",
			wantErr:  power.ErrInvalidPowerSpec,
		},
		{
			name:     "watts without ftp",
			src:      "blocks:\n  - type: intervals\n    repeat: 2\n    on_minutes: 1\n    off_minutes: 1\n    on_power: {watts: 300}\n",
			wantPath: "blocks[0]",
			wantErr:  power.ErrMissingFTP,
		},
		{
			name:     "malformed power",
			src:      "blocks:\n  - type: ramp\n    minutes: 1\n    power: [1, 2, 3]\n",
			wantPath: "blocks[0]",
			wantErr:  power.ErrInvalidPowerSpec,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps, err := Expand(parseBlocks(t, tt.src), NewContext(nil))
			if err == nil {
				t.Fatalf("expected error, got %d steps", len(steps))
			}
			if steps != nil {
				t.Errorf("partial output returned: %d steps", len(steps))
			}
			if !errors.Is(err, ErrInvalidBlock) {
				t.Errorf("err = %v, want ErrInvalidBlock", err)
			}
			var be *BlockError
			if !errors.As(err, &be) {
				t.Fatalf("err = %T, want *BlockError", err)
			}
			if got := be.PathString(); got != tt.wantPath {
				t.Errorf("path = %q, want %q", got, tt.wantPath)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestSummarize verifies timeline totals and the TSS estimate.
func TestSummarize(t *testing.T) {
	steps, err := Expand(parseBlocks(t, examplePlan+`
  - type: textevent
    message: done
  - type: freeride
    minutes: 5
`), NewContext(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := Summarize(steps)
	if s.Steps != 10 || s.Segments != 9 || s.TextEvents != 1 {
		t.Errorf("counts = %+v", s)
	}
	if s.TotalSeconds != 1800+6*120+600+300 {
		t.Errorf("total = %d", s.TotalSeconds)
	}
	if s.IntervalSets != 1 {
		t.Errorf("interval sets = %d, want 1", s.IntervalSets)
	}
	if s.UntargetedSec != 300 {
		t.Errorf("untargeted = %d, want 300", s.UntargetedSec)
	}
	if s.EstimatedTSS <= 0 {
		t.Errorf("tss = %v, want > 0", s.EstimatedTSS)
	}
}
