package preset

import "strings"

// LintInput contains parameters for linting preset content.
type LintInput struct {
	Content  string
	MaxBytes int // 0 means unlimited
}

// LintResult contains the results of linting preset content.
type LintResult struct {
	Valid       bool
	TooLarge    bool
	ActualBytes int
	MaxBytes    int

	// Warnings never make content invalid; presets are stored as-is
	Warnings []string
}

// Lint checks preset content. Only size makes content invalid; a missing
// [preset00] header or an empty body produce warnings.
func Lint(input LintInput) *LintResult {
	result := &LintResult{
		Valid:       true,
		ActualBytes: len(input.Content),
		MaxBytes:    input.MaxBytes,
	}

	if input.MaxBytes > 0 && result.ActualBytes > input.MaxBytes {
		result.TooLarge = true
		result.Valid = false
	}

	if strings.TrimSpace(input.Content) == "" {
		result.Warnings = append(result.Warnings, "content is empty")
		return result
	}

	sections := ParseSections(input.Content)
	if len(sections) == 0 {
		result.Warnings = append(result.Warnings, "no [preset00] section header")
		return result
	}
	if !strings.EqualFold(sections[0].Name, "preset00") {
		result.Warnings = append(result.Warnings, "first section is ["+sections[0].Name+"], expected [preset00]")
	}
	if len(sections[0].Params) == 0 {
		result.Warnings = append(result.Warnings, "first section has no parameters")
	}
	return result
}
