package models

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// PowerSpec is a power target before resolution against FTP. The concrete
// types below are the only implementations.
type PowerSpec interface {
	powerSpec()
}

// Fraction is a bare fraction of FTP, e.g. 0.65.
type Fraction float64

// Zone is a zone label such as "z2".
type Zone string

// Range is a two-element [low, high] target.
type Range struct {
	Low, High PowerSpec
}

// Percent is {pct: N}, a percentage of FTP.
type Percent float64

// Watts is {watts: N}, an absolute target that needs the plan FTP.
type Watts float64

// Malformed holds any input that matched none of the accepted shapes.
type Malformed struct {
	Reason string
}

func (Fraction) powerSpec()  {}
func (Zone) powerSpec()      {}
func (Range) powerSpec()     {}
func (Percent) powerSpec()   {}
func (Watts) powerSpec()     {}
func (Malformed) powerSpec() {}

// PowerValue wraps a PowerSpec so it can be decoded from YAML or JSON.
// Decoding never fails; unrecognized shapes become Malformed and are
// rejected when the owning block is expanded, where the block path is known.
type PowerValue struct {
	Spec PowerSpec
}

// NewPowerValue is a convenience for building plans in code.
func NewPowerValue(spec PowerSpec) *PowerValue {
	return &PowerValue{Spec: spec}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *PowerValue) UnmarshalYAML(node *yaml.Node) error {
	p.Spec = decodePowerNode(node)
	return nil
}

func decodePowerNode(node *yaml.Node) PowerSpec {
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}

	switch node.Kind {
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!int", "!!float":
			f, err := strconv.ParseFloat(node.Value, 64)
			if err != nil {
				return Malformed{Reason: fmt.Sprintf("line %d: bad number %q", node.Line, node.Value)}
			}
			return Fraction(f)
		case "!!str":
			return Zone(strings.ToLower(strings.TrimSpace(node.Value)))
		default:
			return Malformed{Reason: fmt.Sprintf("line %d: unsupported scalar %q", node.Line, node.Value)}
		}

	case yaml.SequenceNode:
		if len(node.Content) != 2 {
			return Malformed{Reason: fmt.Sprintf("line %d: range needs exactly 2 values, got %d", node.Line, len(node.Content))}
		}
		return Range{Low: decodePowerNode(node.Content[0]), High: decodePowerNode(node.Content[1])}

	case yaml.MappingNode:
		var m map[string]float64
		if err := node.Decode(&m); err != nil {
			return Malformed{Reason: fmt.Sprintf("line %d: power mapping must hold a number", node.Line)}
		}
		if len(m) != 1 {
			return Malformed{Reason: fmt.Sprintf("line %d: power mapping needs exactly one of pct or watts", node.Line)}
		}
		if v, ok := m["pct"]; ok {
			return Percent(v)
		}
		if v, ok := m["watts"]; ok {
			return Watts(v)
		}
		return Malformed{Reason: fmt.Sprintf("line %d: power mapping needs pct or watts", node.Line)}
	}

	return Malformed{Reason: fmt.Sprintf("line %d: unsupported power value", node.Line)}
}

// String renders the spec in plan syntax, used in error messages.
func (p *PowerValue) String() string {
	if p == nil || p.Spec == nil {
		return "<none>"
	}
	return formatSpec(p.Spec)
}

func formatSpec(s PowerSpec) string {
	switch v := s.(type) {
	case Fraction:
		return strconv.FormatFloat(float64(v), 'f', -1, 64)
	case Zone:
		return string(v)
	case Range:
		return "[" + formatSpec(v.Low) + ", " + formatSpec(v.High) + "]"
	case Percent:
		return "{pct: " + strconv.FormatFloat(float64(v), 'f', -1, 64) + "}"
	case Watts:
		return "{watts: " + strconv.FormatFloat(float64(v), 'f', -1, 64) + "}"
	case Malformed:
		return "malformed(" + v.Reason + ")"
	}
	return "<none>"
}
