package compiler

import "github.com/claude/zwoforge/internal/models"

// Summary describes a compiled step list.
type Summary struct {
	Steps         int     `json:"steps"`
	Segments      int     `json:"segments"`
	TextEvents    int     `json:"text_events"`
	TotalSeconds  int     `json:"total_seconds"`
	IntervalSets  int     `json:"interval_sets"`
	EstimatedTSS  float64 `json:"estimated_tss"`
	UntargetedSec int     `json:"untargeted_seconds"`
}

// Summarize totals the timeline of steps. The TSS estimate only counts
// steps with a power target; free rides and max efforts are reported as
// untargeted time instead.
func Summarize(steps []models.Step) Summary {
	var s Summary
	s.Steps = len(steps)
	for _, st := range steps {
		if !st.IsSegment() {
			s.TextEvents++
			continue
		}
		s.Segments++
		s.TotalSeconds += st.Duration
		if st.Kind == models.StepIntervalOn && st.Interval != nil && st.Interval.Rep == 0 {
			s.IntervalSets++
		}

		intensity, ok := meanPower(st)
		if !ok {
			s.UntargetedSec += st.Duration
			continue
		}
		// TSS = hours * IF^2 * 100
		s.EstimatedTSS += float64(st.Duration) * intensity * intensity / 36
	}
	return s
}

func meanPower(st models.Step) (float64, bool) {
	switch {
	case st.Power != nil:
		return *st.Power, true
	case st.PowerLow != nil && st.PowerHigh != nil:
		return (*st.PowerLow + *st.PowerHigh) / 2, true
	}
	return 0, false
}
