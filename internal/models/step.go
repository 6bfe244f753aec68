package models

// StepKind names a flattened workout step. Segment kinds match the .zwo
// element they are written as.
type StepKind string

const (
	StepWarmup      StepKind = "Warmup"
	StepCooldown    StepKind = "Cooldown"
	StepSteady      StepKind = "SteadyState"
	StepRamp        StepKind = "Ramp"
	StepFreeRide    StepKind = "FreeRide"
	StepMaxEffort   StepKind = "MaxEffort"
	StepIntervalOn  StepKind = "IntervalOn"
	StepIntervalOff StepKind = "IntervalOff"
	StepTextEvent   StepKind = "textevent"
)

// Step is one unit of a compiled workout. Durations are seconds and powers
// are fractions of FTP. Optional fields are nil when the source block did
// not set them.
type Step struct {
	Kind     StepKind `json:"kind"`
	Duration int      `json:"duration,omitempty"`

	Power     *float64 `json:"power,omitempty"`
	PowerLow  *float64 `json:"power_low,omitempty"`
	PowerHigh *float64 `json:"power_high,omitempty"`

	Cadence  *int `json:"cadence,omitempty"`
	FlatRoad *int `json:"flat_road,omitempty"`

	// Interval is set on IntervalOn/IntervalOff steps.
	Interval *IntervalRef `json:"interval,omitempty"`

	TimeOffset int    `json:"time_offset,omitempty"`
	Message    string `json:"message,omitempty"`
}

// IntervalRef ties an on/off step back to its intervals block: Repeat is the
// block's repeat count and Rep the zero-based repetition this step is in.
type IntervalRef struct {
	Repeat int `json:"repeat"`
	Rep    int `json:"rep"`
}

// IsSegment reports whether the step occupies time on the workout timeline.
func (s Step) IsSegment() bool {
	return s.Kind != StepTextEvent
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
