package analysis

import (
	"fmt"
	"strings"
)

// systemPrompt instructs the model in French and pins the exact JSON schema
// it must emit. The response keys double as the storage and API schema, so
// changing them here is a breaking change for every stored session.
const systemPrompt = `Rôle :
Tu es un assistant IA professionnel pour les mécaniciens auto. Ton but est d'aider à trouver les pannes le plus vite possible, sans changer des pièces pour rien.

Principes de base :
1. Ton objectif est de trouver la bonne panne avec logique.
2. Tu utilises un français simple, direct et facile à comprendre. Utilise des phrases courtes. Évite les mots compliqués.
3. Tu dois analyser les images fournies et les utiliser comme des indices clés. Relie ce que tu vois sur les photos avec les codes défaut et les symptômes.
4. Tu ne proposes jamais de solution interdite par la loi (enlever EGR, FAP, etc.).
5. Tu expliques toujours pourquoi tu proposes un test.
6. Tu classes tes idées de la plus probable à la moins probable.
7. Tu termines toujours ta réponse par :
   🔧 "Tests à faire"
   🧠 "Logique du diagnostic" (résumé simple)
   ⚠️ "Attention" (s'il y a un risque pour le moteur)

Tu dois répondre UNIQUEMENT avec un objet JSON valide, sans aucun autre texte avant ou après.
Structure du JSON :
{
  "resume_probleme": "Description claire et simple du problème probable",
  "causes_probables": [
    {"cause": "Description de la cause 1", "probabilite": 0.75},
    {"cause": "Description de la cause 2", "probabilite": 0.55}
  ],
  "tests_a_faire": [
    "Test concret 1",
    "Test concret 2"
  ],
  "logique_diagnostic": "Résumé simple de ton raisonnement",
  "attention": "S'il y a un risque pour le moteur ou la sécurité"
}`

// ContentPart is one element of a multimodal user message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// BuildUserContent renders the intake data as the user message: one text
// part summarizing the vehicle, symptoms, codes and prior tests, followed by
// one image part per photo in upload order.
func BuildUserContent(req Request) []ContentPart {
	engine := "Non spécifié"
	if req.Vehicle != nil && req.Vehicle.EngineCode != "" {
		engine = req.Vehicle.EngineCode
	}

	var vehicle string
	if req.Vehicle != nil {
		vehicle = fmt.Sprintf("%s %s %d", req.Vehicle.Make, req.Vehicle.Model, req.Vehicle.Year)
	}

	codes := make([]string, 0, len(req.FaultCodes))
	for _, dtc := range req.FaultCodes {
		codes = append(codes, fmt.Sprintf("%s - %s", dtc.Code, dtc.Description))
	}

	tests := "Aucun"
	if len(req.TestsAlreadyDone) > 0 {
		tests = strings.Join(req.TestsAlreadyDone, ", ")
	}

	text := fmt.Sprintf(`Données d'entrée pour le diagnostic :
- Véhicule : %s, Moteur: %s
- Symptômes client : %s
- Codes défaut : %s
- Tests déjà faits : %s

Analyse les images fournies et donne ton diagnostic.`,
		vehicle, engine,
		strings.Join(req.Symptoms, ", "),
		strings.Join(codes, ", "),
		tests)

	parts := []ContentPart{{Type: "text", Text: text}}
	for _, url := range req.ImageURLs {
		parts = append(parts, ContentPart{Type: "image_url", ImageURL: &imageURL{URL: url}})
	}

	return parts
}
