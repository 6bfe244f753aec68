package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const samplePlan = `name: Over Unders
ftp: 280
blocks:
  - type: standard_warmup
  - type: intervals
    repeat: 4
    on_minutes: 2
    off_minutes: 2
    on_power: 1.05
    off_power: 0.85
  - type: cooldown
    minutes: 5
    power_low: 0.6
    power_high: 0.4
`

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// TestRunUsage verifies usage errors exit with status 2.
func TestRunUsage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"frobnicate"}},
		{"compile without plan", []string{"compile"}},
		{"validate without path", []string{"validate"}},
		{"watch without dir", []string{"watch"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tt.args, &stdout, &stderr); code != 2 {
				t.Errorf("exit = %d, want 2 (stderr: %s)", code, stderr.String())
			}
		})
	}
}

// TestRunVersion verifies -version prints and exits cleanly.
func TestRunVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-version"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit = %d", code)
	}
	if !strings.HasPrefix(stdout.String(), "zwoforge ") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

// TestCompileThenValidate verifies a compiled plan passes validation and its
// output lands at <output>/<slug>.zwo.
func TestCompileThenValidate(t *testing.T) {
	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.yaml")
	outDir := filepath.Join(dir, "out")
	write(t, planPath, samplePlan)

	var stdout, stderr bytes.Buffer
	code := run([]string{"compile", "-plan", planPath, "-output", outDir, "-validate"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("compile exit = %d\nstderr: %s", code, stderr.String())
	}
	out := filepath.Join(outDir, "over_unders.zwo")
	if !strings.Contains(stdout.String(), "wrote "+out) {
		t.Errorf("stdout = %q", stdout.String())
	}
	if !strings.Contains(stdout.String(), "validation ok: 1 file(s)") {
		t.Errorf("stdout missing validation line: %q", stdout.String())
	}

	stdout.Reset()
	stderr.Reset()
	if code := run([]string{"validate", "-path", outDir}, &stdout, &stderr); code != 0 {
		t.Fatalf("validate exit = %d\nstderr: %s", code, stderr.String())
	}
	if got := stdout.String(); got != "validation ok: 1 file(s)\n" {
		t.Errorf("stdout = %q", got)
	}
}

// TestCompileInvalidPlan verifies a malformed block fails with status 1 and
// writes nothing.
func TestCompileInvalidPlan(t *testing.T) {
	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.yaml")
	outDir := filepath.Join(dir, "out")
	write(t, planPath, "name: Broken\nblocks:\n  - type: steady\n    minutes: 5\n    power: {watts: 200}\n")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"compile", "-plan", planPath, "-output", outDir}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "blocks[0]") {
		t.Errorf("stderr should name the block: %s", stderr.String())
	}
	if _, err := os.Stat(filepath.Join(outDir, "broken.zwo")); !os.IsNotExist(err) {
		t.Errorf("output written for a failed compile")
	}
}

// TestValidateBatch verifies every failing file is reported and the run
// exits non-zero.
func TestValidateBatch(t *testing.T) {
	dir := t.TempDir()
	good := `<workout_file><name>ok</name><workout><SteadyState Duration="60" Power="0.5"/></workout></workout_file>`
	write(t, filepath.Join(dir, "a.zwo"), good)
	write(t, filepath.Join(dir, "b.zwo"), strings.Replace(good, `Power="0.5"`, `Power="0.5" Wattage="200"`, 1))
	write(t, filepath.Join(dir, "nested", "c.zwo"), strings.Replace(good, "SteadyState", "Hover", 2))

	var stdout, stderr bytes.Buffer
	code := run([]string{"validate", "-path", dir, "-workers", "2"}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	got := stderr.String()
	for _, want := range []string{
		"b.zwo:1: unknown attribute 'Wattage' on <SteadyState>",
		"c.zwo:1: unknown element <Hover>",
		"validation failed: 2 error(s)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("stderr missing %q:\n%s", want, got)
		}
	}
}

// TestValidateMissingPath verifies an unreadable path is reported as a failed
// file while the other paths are still fully checked.
func TestValidateMissingPath(t *testing.T) {
	dir := t.TempDir()
	good := `<workout_file><name>ok</name><workout><SteadyState Duration="60" Power="0.5"/></workout></workout_file>`
	missing := filepath.Join(dir, "missing.zwo")
	a := filepath.Join(dir, "a.zwo")
	b := filepath.Join(dir, "b.zwo")
	write(t, a, good)
	write(t, b, strings.Replace(good, "SteadyState", "Hover", 2))

	var stdout, stderr bytes.Buffer
	if code := run([]string{"validate", missing, a, b}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit = %d, want 1\nstderr: %s", code, stderr.String())
	}
	got := stderr.String()
	for _, want := range []string{
		"missing.zwo",
		"b.zwo:1: unknown element <Hover>",
		"validation failed: 2 error(s)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("stderr missing %q:\n%s", want, got)
		}
	}
}
