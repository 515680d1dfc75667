package analysis

import (
	"encoding/json"
	"strings"

	"github.com/garagelab/autodiag/internal/diagnostic"
)

// ParseAnalysis decodes the model output into the analysis structure. Models
// often wrap JSON in markdown fences despite instructions, so those are
// stripped before decoding. Nil slices are normalized so stored payloads
// always carry arrays.
func ParseAnalysis(raw string) (*diagnostic.AIAnalysis, error) {
	clean := strings.ReplaceAll(raw, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	var analysis diagnostic.AIAnalysis
	if err := json.Unmarshal([]byte(clean), &analysis); err != nil {
		return nil, err
	}

	if analysis.ProbableCauses == nil {
		analysis.ProbableCauses = []diagnostic.ProbableCause{}
	}
	if analysis.TestsToDo == nil {
		analysis.TestsToDo = []string{}
	}

	return &analysis, nil
}

// FallbackAnalysis builds a degraded result when the model output is not
// valid JSON. The raw text lands in the diagnostic logic field so nothing
// the model said is lost; the call still counts as a success.
func FallbackAnalysis(raw string) *diagnostic.AIAnalysis {
	return &diagnostic.AIAnalysis{
		ProblemSummary:  "Erreur lors de l'analyse de la réponse de l'IA",
		ProbableCauses:  []diagnostic.ProbableCause{},
		TestsToDo:       []string{},
		DiagnosticLogic: raw,
		Warning:         "",
	}
}
