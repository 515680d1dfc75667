// Package intake turns free-form textarea input into typed records.
// Everything here is pure string processing; persistence happens in the
// diagnostic package.
package intake

import "strings"

// FaultCode is one diagnostic trouble code (DTC) with an optional free-text
// description, e.g. "P0171 - Mélange trop pauvre".
type FaultCode struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// ParseFaultCodeLine parses a single "CODE - description" or bare "CODE"
// line. Returns ok=false for blank lines and for lines whose code portion is
// empty after trimming.
func ParseFaultCodeLine(line string) (FaultCode, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return FaultCode{}, false
	}

	code, description, _ := strings.Cut(trimmed, "-")
	code = strings.TrimSpace(code)
	if code == "" {
		return FaultCode{}, false
	}

	return FaultCode{
		Code:        code,
		Description: strings.TrimSpace(description),
	}, true
}

// ParseFaultCodes parses one fault code per line. Malformed lines are
// dropped rather than surfaced as errors: mechanics paste scanner output
// with stray separators and blank lines, and losing one annotation beats
// rejecting the whole form.
func ParseFaultCodes(text string) []FaultCode {
	var codes []FaultCode
	for _, line := range strings.Split(text, "\n") {
		if code, ok := ParseFaultCodeLine(line); ok {
			codes = append(codes, code)
		}
	}
	return codes
}

// ParseLines splits text into trimmed, non-empty lines, preserving order.
// Used for symptoms, prior tests and replaced parts alike.
func ParseLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
