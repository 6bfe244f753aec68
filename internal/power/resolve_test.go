package power

import (
	"errors"
	"math"
	"testing"

	"github.com/claude/zwoforge/internal/models"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// TestResolve covers every accepted power shape.
func TestResolve(t *testing.T) {
	ftp := 260.0
	tests := []struct {
		name string
		spec models.PowerSpec
		ftp  *float64
		want Target
	}{
		{"fraction", models.Fraction(0.65), nil, Target{Low: 0.65}},
		{"zone z1", models.Zone("z1"), nil, Target{Low: 0.55}},
		{"zone z6", models.Zone("z6"), nil, Target{Low: 1.20}},
		{"range", models.Range{Low: models.Fraction(1.05), High: models.Fraction(1.10)}, nil, Target{Low: 1.05, High: 1.10, Ranged: true}},
		{"flat range", models.Range{Low: models.Fraction(0.7), High: models.Fraction(0.7)}, nil, Target{Low: 0.7, High: 0.7, Ranged: true}},
		{"zone range", models.Range{Low: models.Zone("z2"), High: models.Zone("z4")}, nil, Target{Low: 0.65, High: 0.90, Ranged: true}},
		{"pct", models.Percent(110), nil, Target{Low: 1.10}},
		{"watts", models.Watts(260), &ftp, Target{Low: 1.0}},
		{"watts range", models.Range{Low: models.Watts(130), High: models.Watts(195)}, &ftp, Target{Low: 0.5, High: 0.75, Ranged: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.spec, tt.ftp)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !approx(got.Low, tt.want.Low) || !approx(got.High, tt.want.High) || got.Ranged != tt.want.Ranged {
				t.Errorf("Resolve = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// TestResolveDeterministic verifies repeated resolution yields identical results.
func TestResolveDeterministic(t *testing.T) {
	spec := models.Range{Low: models.Percent(88), High: models.Zone("z4")}
	first, err := Resolve(spec, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		got, _ := Resolve(spec, nil)
		if got != first {
			t.Fatalf("run %d: %+v != %+v", i, got, first)
		}
	}
}

// TestResolveMissingFTP verifies wattage targets need a positive FTP.
func TestResolveMissingFTP(t *testing.T) {
	zero := 0.0
	for _, ftp := range []*float64{nil, &zero} {
		_, err := Resolve(models.Watts(260), ftp)
		if !errors.Is(err, ErrMissingFTP) {
			t.Errorf("ftp=%v: err = %v, want ErrMissingFTP", ftp, err)
		}
	}

	_, err := Resolve(models.Range{Low: models.Watts(100), High: models.Fraction(1)}, nil)
	if !errors.Is(err, ErrMissingFTP) {
		t.Errorf("range with watts: err = %v, want ErrMissingFTP", err)
	}
}

// TestResolveInvalid verifies malformed specs fail with ErrInvalidPowerSpec.
func TestResolveInvalid(t *testing.T) {
	tests := []struct {
		name string
		spec models.PowerSpec
	}{
		{"unknown zone", models.Zone("z9")},
		{"descending range", models.Range{Low: models.Fraction(0.8), High: models.Fraction(0.5)}},
		{"nested range", models.Range{Low: models.Range{Low: models.Fraction(0.1), High: models.Fraction(0.2)}, High: models.Fraction(0.5)}},
		{"malformed", models.Malformed{Reason: "bad"}},
		{"nil", nil},
		{"negative", models.Fraction(-0.1)},
		{"negative pct", models.Percent(-5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.spec, nil)
			if !errors.Is(err, ErrInvalidPowerSpec) {
				t.Errorf("err = %v, want ErrInvalidPowerSpec", err)
			}
		})
	}
}

// TestZonesSorted verifies the exported zone table is complete and ordered.
func TestZonesSorted(t *testing.T) {
	zones := Zones()
	if len(zones) != 6 {
		t.Fatalf("zones = %d, want 6", len(zones))
	}
	if zones[0].Name != "z1" || zones[5].Name != "z6" {
		t.Errorf("order = %s..%s, want z1..z6", zones[0].Name, zones[5].Name)
	}
}
