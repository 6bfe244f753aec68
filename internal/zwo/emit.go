package zwo

import (
	"strconv"

	"github.com/claude/zwoforge/internal/models"
)

// EmitOptions controls how steps are written.
type EmitOptions struct {
	// UnrollIntervals writes every interval on/off step as its own
	// SteadyState instead of folding a group into one IntervalsT.
	UnrollIntervals bool
}

// Emit builds the workout_file document for plan and its compiled steps.
//
// Text events are attached as children of the segment element written just
// before them, so their timeoffset is relative to that segment. Events that
// precede every segment are attached to the first one; with no segments at
// all they are placed directly under <workout>.
func Emit(p *models.Plan, steps []models.Step, opts EmitOptions) *Node {
	root := NewNode("workout_file")
	root.Append(
		textNode("author", p.Author),
		textNode("name", p.Name),
		textNode("description", p.Description),
		textNode("sportType", string(p.Sport)),
	)
	tags := NewNode("tags")
	for _, t := range p.Tags {
		tags.Append(NewNode("tag", Attr{"name", t}))
	}
	root.Append(tags)

	workout := NewNode("workout")
	root.Append(workout)

	var last *Node
	var pending []*Node
	addSegment := func(el *Node) {
		el.Append(pending...)
		pending = nil
		workout.Append(el)
		last = el
	}

	for i := 0; i < len(steps); i++ {
		st := steps[i]
		switch {
		case st.Kind == models.StepTextEvent:
			ev := NewNode("textevent",
				Attr{"timeoffset", strconv.Itoa(st.TimeOffset)},
				Attr{"message", st.Message},
			)
			if last == nil {
				pending = append(pending, ev)
			} else {
				last.Append(ev)
			}

		case isIntervalStep(st) && !opts.UnrollIntervals:
			if n := groupLen(steps[i:]); n > 0 {
				addSegment(intervalsT(steps[i], steps[i+1]))
				i += n - 1
				continue
			}
			addSegment(segment(st))

		default:
			addSegment(segment(st))
		}
	}
	workout.Append(pending...)
	return root
}

func textNode(name, text string) *Node {
	return &Node{Name: name, Text: text}
}

func isIntervalStep(st models.Step) bool {
	return st.Kind == models.StepIntervalOn || st.Kind == models.StepIntervalOff
}

// groupLen returns the number of steps forming a complete interval group at
// the start of steps, or zero when steps does not start with one.
func groupLen(steps []models.Step) int {
	head := steps[0]
	if head.Kind != models.StepIntervalOn || head.Interval == nil || head.Interval.Rep != 0 {
		return 0
	}
	n := 2 * head.Interval.Repeat
	if n == 0 || len(steps) < n {
		return 0
	}
	for j := 0; j < n; j++ {
		st := steps[j]
		want := models.StepIntervalOn
		if j%2 == 1 {
			want = models.StepIntervalOff
		}
		if st.Kind != want || st.Interval == nil || st.Interval.Rep != j/2 || st.Interval.Repeat != head.Interval.Repeat {
			return 0
		}
	}
	return n
}

func intervalsT(on, off models.Step) *Node {
	el := NewNode("IntervalsT",
		Attr{"Repeat", strconv.Itoa(on.Interval.Repeat)},
		Attr{"OnDuration", strconv.Itoa(on.Duration)},
		Attr{"OffDuration", strconv.Itoa(off.Duration)},
	)
	switch {
	case on.Power != nil:
		el.Attrs = append(el.Attrs, Attr{"OnPower", formatPower(*on.Power)})
	case on.PowerLow != nil && on.PowerHigh != nil:
		el.Attrs = append(el.Attrs,
			Attr{"PowerOnLow", formatPower(*on.PowerLow)},
			Attr{"PowerOnHigh", formatPower(*on.PowerHigh)},
		)
	}
	switch {
	case off.Power != nil:
		el.Attrs = append(el.Attrs, Attr{"OffPower", formatPower(*off.Power)})
	case off.PowerLow != nil && off.PowerHigh != nil:
		el.Attrs = append(el.Attrs,
			Attr{"PowerOffLow", formatPower(*off.PowerLow)},
			Attr{"PowerOffHigh", formatPower(*off.PowerHigh)},
		)
	}
	if on.Cadence != nil {
		el.Attrs = append(el.Attrs, Attr{"Cadence", strconv.Itoa(*on.Cadence)})
	}
	if off.Cadence != nil {
		el.Attrs = append(el.Attrs, Attr{"CadenceResting", strconv.Itoa(*off.Cadence)})
	}
	return el
}

// segment writes a single non-grouped step.
func segment(st models.Step) *Node {
	name := string(st.Kind)
	if isIntervalStep(st) {
		name = string(models.StepSteady)
	}
	el := NewNode(name, Attr{"Duration", strconv.Itoa(st.Duration)})

	switch st.Kind {
	case models.StepWarmup, models.StepCooldown, models.StepRamp:
		el.Attrs = append(el.Attrs,
			Attr{"PowerLow", formatPower(deref(st.PowerLow))},
			Attr{"PowerHigh", formatPower(deref(st.PowerHigh))},
		)
	case models.StepSteady, models.StepIntervalOn, models.StepIntervalOff:
		switch {
		case st.Power != nil:
			el.Attrs = append(el.Attrs, Attr{"Power", formatPower(*st.Power)})
		case st.PowerLow != nil && st.PowerHigh != nil:
			el.Attrs = append(el.Attrs,
				Attr{"PowerLow", formatPower(*st.PowerLow)},
				Attr{"PowerHigh", formatPower(*st.PowerHigh)},
			)
		}
	case models.StepFreeRide:
		if st.FlatRoad != nil {
			el.Attrs = append(el.Attrs, Attr{"FlatRoad", strconv.Itoa(*st.FlatRoad)})
		}
	}
	if st.Cadence != nil && st.Kind != models.StepMaxEffort {
		el.Attrs = append(el.Attrs, Attr{"Cadence", strconv.Itoa(*st.Cadence)})
	}
	return el
}

func formatPower(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func itoa(n int) string { return strconv.Itoa(n) }
