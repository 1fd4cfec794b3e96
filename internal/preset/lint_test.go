package preset

import (
	"strings"
	"testing"
)

const validPreset = `[preset00]
fRating=3.000000
fDecay=0.980000
per_frame_1=wave_r = wave_r + 0.400*sin(time);
`

func TestLint_Valid(t *testing.T) {
	result := Lint(LintInput{Content: validPreset, MaxBytes: 1024})

	if !result.Valid {
		t.Error("expected Valid = true")
	}
	if result.TooLarge {
		t.Error("expected TooLarge = false")
	}
	if len(result.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", result.Warnings)
	}
	if result.ActualBytes != len(validPreset) {
		t.Errorf("ActualBytes = %d, want %d", result.ActualBytes, len(validPreset))
	}
}

func TestLint_TooLarge(t *testing.T) {
	result := Lint(LintInput{Content: validPreset, MaxBytes: 10})

	if result.Valid {
		t.Error("expected Valid = false")
	}
	if !result.TooLarge {
		t.Error("expected TooLarge = true")
	}
	if result.MaxBytes != 10 {
		t.Errorf("MaxBytes = %d, want 10", result.MaxBytes)
	}
}

func TestLint_Unlimited(t *testing.T) {
	result := Lint(LintInput{Content: strings.Repeat("x", 5000), MaxBytes: 0})
	if result.TooLarge {
		t.Error("MaxBytes 0 should mean unlimited")
	}
}

func TestLint_Warnings(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty", "  \n", "content is empty"},
		{"no header", "fRating=3\n", "no [preset00] section header"},
		{"wrong first section", "[other]\na=1\n", "first section is [other], expected [preset00]"},
		{"no params", "[preset00]\n", "first section has no parameters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Lint(LintInput{Content: tt.content})
			if !result.Valid {
				t.Error("warnings must not invalidate content")
			}
			found := false
			for _, w := range result.Warnings {
				if w == tt.want {
					found = true
				}
			}
			if !found {
				t.Errorf("Warnings = %v, want to contain %q", result.Warnings, tt.want)
			}
		})
	}
}

func TestParseSections(t *testing.T) {
	content := "ignored=1\r\n[preset00]\r\nfRating=3.0\r\nnot a param\r\n per_frame_1 = zoom = zoom + 1;\r\n[preset01]\nx=2\n"

	sections := ParseSections(content)
	if len(sections) != 2 {
		t.Fatalf("len(sections) = %d, want 2", len(sections))
	}
	if sections[0].Name != "preset00" {
		t.Errorf("sections[0].Name = %q, want %q", sections[0].Name, "preset00")
	}
	if len(sections[0].Params) != 2 {
		t.Fatalf("len(sections[0].Params) = %d, want 2", len(sections[0].Params))
	}

	// Only the first '=' splits key from value
	v, ok := sections[0].Lookup("per_frame_1")
	if !ok || v != "zoom = zoom + 1;" {
		t.Errorf("Lookup(per_frame_1) = %q, %v", v, ok)
	}
	if v, ok := sections[0].Lookup("FRATING"); !ok || v != "3.0" {
		t.Errorf("Lookup(FRATING) = %q, %v; want case-insensitive match", v, ok)
	}
	if _, ok := sections[1].Lookup("fRating"); ok {
		t.Error("Lookup should not cross sections")
	}
}
