package models

import "strings"

// Sport is the workout sport written to <sportType>.
type Sport string

const (
	SportBike Sport = "bike"
	SportRun  Sport = "run"
)

// Valid reports whether s is a supported sport.
func (s Sport) Valid() bool {
	return s == SportBike || s == SportRun
}

// Plan is a declarative workout plan as read from a YAML or JSON document.
type Plan struct {
	Name        string   `yaml:"name"`
	Author      string   `yaml:"author"`
	Description string   `yaml:"description"`
	Sport       Sport    `yaml:"sport"`
	FTP         *float64 `yaml:"ftp"`
	Tags        []string `yaml:"tags"`
	Blocks      []Block  `yaml:"blocks"`
}

// BlockKind identifies the shape of a Block.
type BlockKind string

const (
	KindStandardWarmup BlockKind = "standard_warmup"
	KindWarmup         BlockKind = "warmup"
	KindCooldown       BlockKind = "cooldown"
	KindSteady         BlockKind = "steady"
	KindRamp           BlockKind = "ramp"
	KindFreeRide       BlockKind = "freeride"
	KindIntervals      BlockKind = "intervals"
	KindMaxEffort      BlockKind = "maxeffort"
	KindTextEvent      BlockKind = "textevent"
	KindRepeat         BlockKind = "repeat"
)

// Normalize maps accepted aliases onto their canonical kind.
func (k BlockKind) Normalize() BlockKind {
	switch strings.ToLower(strings.TrimSpace(string(k))) {
	case "steadystate", "steady_state", "steady":
		return KindSteady
	default:
		return BlockKind(strings.ToLower(strings.TrimSpace(string(k))))
	}
}

// Block is one node of a plan's block tree. Which fields are required
// depends on Type; absent fields are nil.
type Block struct {
	Type BlockKind `yaml:"type"`

	Minutes *float64 `yaml:"minutes"`
	Seconds *int     `yaml:"seconds"`

	Power     *PowerValue `yaml:"power"`
	PowerLow  *PowerValue `yaml:"power_low"`
	PowerHigh *PowerValue `yaml:"power_high"`

	Cadence     *int `yaml:"cadence"`
	CadenceRest *int `yaml:"cadence_rest"`
	FlatRoad    *int `yaml:"flat_road"`

	// intervals
	Repeat     *int        `yaml:"repeat"`
	OnMinutes  *float64    `yaml:"on_minutes"`
	OnSeconds  *int        `yaml:"on_seconds"`
	OffMinutes *float64    `yaml:"off_minutes"`
	OffSeconds *int        `yaml:"off_seconds"`
	OnPower    *PowerValue `yaml:"on_power"`
	OffPower   *PowerValue `yaml:"off_power"`

	// textevent
	TimeOffset *int   `yaml:"time_offset"`
	Message    string `yaml:"message"`

	// repeat
	Times  *int    `yaml:"times"`
	Blocks []Block `yaml:"blocks"`
}
