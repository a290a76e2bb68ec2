package orchestrator

import "strings"

// languageMarkers are high-frequency function words per supported language.
// Detection counts marker hits over the tokenized message; accents or proper
// grammar are not required.
var languageMarkers = map[string][]string{
	"fr": {"le", "la", "les", "un", "une", "des", "je", "tu", "vous", "nous", "est", "bonjour", "merci", "pas", "mon", "ma", "avec", "pour", "quoi", "comment", "pourquoi", "où", "oui"},
	"en": {"the", "a", "an", "i", "you", "we", "is", "are", "hello", "hi", "thanks", "thank", "my", "with", "for", "what", "how", "why", "where", "yes", "please", "can"},
	"es": {"el", "los", "una", "unos", "yo", "usted", "nosotros", "es", "son", "hola", "gracias", "mi", "con", "para", "qué", "cómo", "por", "dónde", "sí", "quiero"},
	"de": {"der", "die", "das", "ein", "eine", "ich", "du", "sie", "wir", "ist", "sind", "hallo", "danke", "mein", "mit", "für", "was", "wie", "warum", "wo", "ja", "bitte"},
}

// DetectLanguage guesses the message language by counting function-word hits
// per language. Ties and unknown input default to English.
func DetectLanguage(message string) string {
	tokens := strings.Fields(strings.ToLower(message))
	if len(tokens) == 0 {
		return "en"
	}

	present := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		present[strings.Trim(tok, ".,!?;:'\"()")] = true
	}

	best, bestScore := "en", 0
	// Stable iteration order so ties resolve deterministically.
	for _, lang := range []string{"en", "fr", "es", "de"} {
		score := 0
		for _, marker := range languageMarkers[lang] {
			if present[marker] {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = lang, score
		}
	}
	return best
}

// languageDirective returns the system prompt line pinning the reply
// language.
func languageDirective(lang string) string {
	switch lang {
	case "fr":
		return "Always reply in French."
	case "es":
		return "Always reply in Spanish."
	case "de":
		return "Always reply in German."
	default:
		return "Always reply in English."
	}
}
