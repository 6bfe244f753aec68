// Package power resolves plan power targets into fractions of FTP.
package power

import (
	"errors"
	"fmt"
	"sort"

	"github.com/claude/zwoforge/internal/models"
)

var (
	// ErrInvalidPowerSpec is returned for power values of an unsupported shape.
	ErrInvalidPowerSpec = errors.New("invalid power spec")
	// ErrMissingFTP is returned when a wattage target is used without an FTP.
	ErrMissingFTP = errors.New("ftp required for watts")
)

// Target is a resolved power. High is only meaningful when Ranged is true.
type Target struct {
	Low    float64
	High   float64
	Ranged bool
}

// Zone is one entry of the zone table. Zones with a single target have
// Low == High.
type Zone struct {
	Name string  `json:"name"`
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

var zoneTable = map[string]Zone{
	"z1": {Name: "z1", Low: 0.55, High: 0.55},
	"z2": {Name: "z2", Low: 0.65, High: 0.65},
	"z3": {Name: "z3", Low: 0.75, High: 0.75},
	"z4": {Name: "z4", Low: 0.90, High: 0.90},
	"z5": {Name: "z5", Low: 1.05, High: 1.05},
	"z6": {Name: "z6", Low: 1.20, High: 1.20},
}

// Zones returns the zone table ordered by name.
func Zones() []Zone {
	out := make([]Zone, 0, len(zoneTable))
	for _, z := range zoneTable {
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Resolve converts spec into a fraction (or fraction pair) of FTP. ftp may be
// nil when the plan does not declare one; only Watts needs it.
func Resolve(spec models.PowerSpec, ftp *float64) (Target, error) {
	switch v := spec.(type) {
	case models.Fraction:
		if v < 0 {
			return Target{}, fmt.Errorf("%w: negative fraction %g", ErrInvalidPowerSpec, float64(v))
		}
		return Target{Low: float64(v)}, nil

	case models.Zone:
		z, ok := zoneTable[string(v)]
		if !ok {
			return Target{}, fmt.Errorf("%w: unknown zone %q", ErrInvalidPowerSpec, string(v))
		}
		if z.Low == z.High {
			return Target{Low: z.Low}, nil
		}
		return Target{Low: z.Low, High: z.High, Ranged: true}, nil

	case models.Range:
		low, err := resolveSingle(v.Low, ftp)
		if err != nil {
			return Target{}, fmt.Errorf("range low: %w", err)
		}
		high, err := resolveSingle(v.High, ftp)
		if err != nil {
			return Target{}, fmt.Errorf("range high: %w", err)
		}
		if low > high {
			return Target{}, fmt.Errorf("%w: range low %.4f above high %.4f", ErrInvalidPowerSpec, low, high)
		}
		return Target{Low: low, High: high, Ranged: true}, nil

	case models.Percent:
		if v < 0 {
			return Target{}, fmt.Errorf("%w: negative pct %g", ErrInvalidPowerSpec, float64(v))
		}
		return Target{Low: float64(v) / 100}, nil

	case models.Watts:
		if ftp == nil || *ftp <= 0 {
			return Target{}, ErrMissingFTP
		}
		if v < 0 {
			return Target{}, fmt.Errorf("%w: negative watts %g", ErrInvalidPowerSpec, float64(v))
		}
		return Target{Low: float64(v) / *ftp}, nil

	case models.Malformed:
		return Target{}, fmt.Errorf("%w: %s", ErrInvalidPowerSpec, v.Reason)
	}

	return Target{}, fmt.Errorf("%w: missing value", ErrInvalidPowerSpec)
}

// resolveSingle resolves one end of a range, which must not itself be ranged.
func resolveSingle(spec models.PowerSpec, ftp *float64) (float64, error) {
	if _, ok := spec.(models.Range); ok {
		return 0, fmt.Errorf("%w: nested range", ErrInvalidPowerSpec)
	}
	t, err := Resolve(spec, ftp)
	if err != nil {
		return 0, err
	}
	if t.Ranged {
		return 0, fmt.Errorf("%w: ranged zone inside a range", ErrInvalidPowerSpec)
	}
	return t.Low, nil
}
