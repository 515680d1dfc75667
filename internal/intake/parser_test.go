package intake

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFaultCodeLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected FaultCode
		ok       bool
	}{
		{
			name:     "code with description",
			line:     "P0171 - Mélange trop pauvre",
			expected: FaultCode{Code: "P0171", Description: "Mélange trop pauvre"},
			ok:       true,
		},
		{
			name:     "bare code",
			line:     "P0300",
			expected: FaultCode{Code: "P0300", Description: ""},
			ok:       true,
		},
		{
			name:     "extra whitespace",
			line:     "  P0420  -   Efficacité catalyseur faible  ",
			expected: FaultCode{Code: "P0420", Description: "Efficacité catalyseur faible"},
			ok:       true,
		},
		{
			name:     "description containing a dash keeps everything after the first",
			line:     "U0100 - Perte de communication - ECM",
			expected: FaultCode{Code: "U0100", Description: "Perte de communication - ECM"},
			ok:       true,
		},
		{
			name: "blank line",
			line: "   ",
			ok:   false,
		},
		{
			name: "separator with no code",
			line: " - description sans code",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := ParseFaultCodeLine(tt.line)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, code)
			}
		})
	}
}

func TestParseFaultCodes(t *testing.T) {
	codes := ParseFaultCodes("P0171 - Mélange trop pauvre\nP0300")
	require.Len(t, codes, 2)
	assert.Equal(t, FaultCode{Code: "P0171", Description: "Mélange trop pauvre"}, codes[0])
	assert.Equal(t, FaultCode{Code: "P0300", Description: ""}, codes[1])
}

func TestParseFaultCodesDropsMalformedLines(t *testing.T) {
	codes := ParseFaultCodes("P0101 - Débitmètre\n\n - ligne orpheline\n   \nP0102")
	require.Len(t, codes, 2)
	assert.Equal(t, "P0101", codes[0].Code)
	assert.Equal(t, "P0102", codes[1].Code)
}

func TestParseFaultCodesEmptyInput(t *testing.T) {
	assert.Empty(t, ParseFaultCodes(""))
	assert.Empty(t, ParseFaultCodes("\n\n\n"))
}

func TestParseLines(t *testing.T) {
	lines := ParseLines("  Ralenti instable \n\nPerte de puissance\n ")
	assert.Equal(t, []string{"Ralenti instable", "Perte de puissance"}, lines)
}

func TestParseLinesPreservesOrder(t *testing.T) {
	lines := ParseLines("premier\nsecond\ntroisième")
	assert.Equal(t, []string{"premier", "second", "troisième"}, lines)
}

func TestParseLinesIdempotent(t *testing.T) {
	// Parsing already-parsed output changes nothing.
	text := "  Ralenti instable \n\n  Perte de puissance\nVoyant moteur  \n\n"
	once := ParseLines(text)
	assert.Equal(t, once, ParseLines(strings.Join(once, "\n")))
}
