package orchestrator

import "strings"

// DefaultIntent is reported when no candidate intent matches.
const DefaultIntent = "general_inquiry"

// defaultIntentConfidence is the confidence attached to the fallback intent.
const defaultIntentConfidence = 0.55

// IntentCandidate pairs an intent name with the keywords that signal it.
type IntentCandidate struct {
	Name     string
	Keywords []string
}

// defaultIntentCandidates covers the support intents agents declare routing
// scopes for. Keyword sets are bilingual like the escalation signals.
var defaultIntentCandidates = []IntentCandidate{
	{Name: "order_status", Keywords: []string{"order", "tracking", "shipment", "delivery", "commande", "livraison", "suivi", "colis"}},
	{Name: "refund_request", Keywords: []string{"refund", "money back", "remboursement", "rembourser"}},
	{Name: "booking", Keywords: []string{"appointment", "booking", "schedule", "reservation", "rendez-vous", "réserver", "reserver"}},
	{Name: "technical_support", Keywords: []string{"error", "bug", "broken", "not working", "crash", "erreur", "panne", "marche pas", "fonctionne pas"}},
	{Name: "billing_question", Keywords: []string{"invoice", "billing", "charge", "payment", "facture", "facturation", "paiement", "prélèvement"}},
	{Name: "account_management", Keywords: []string{"password", "login", "account", "subscription", "mot de passe", "connexion", "compte", "abonnement"}},
	{Name: "product_question", Keywords: []string{"price", "pricing", "feature", "available", "stock", "prix", "tarif", "disponible"}},
}

// ClassifiedIntent is the outcome of intent classification: the winning
// intent plus a heuristic confidence.
type ClassifiedIntent struct {
	Name       string
	Confidence float64
}

// ClassifyIntent matches the message against the candidate keyword sets and
// returns the intent with the most hits. With no hits at all it reports the
// general inquiry fallback at its fixed confidence.
func ClassifyIntent(message string) ClassifiedIntent {
	return classifyIntent(message, defaultIntentCandidates)
}

func classifyIntent(message string, candidates []IntentCandidate) ClassifiedIntent {
	lower := strings.ToLower(message)

	best := ClassifiedIntent{Name: DefaultIntent, Confidence: defaultIntentConfidence}
	bestHits := 0
	for _, cand := range candidates {
		hits := 0
		for _, kw := range cand.Keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			best = ClassifiedIntent{Name: cand.Name, Confidence: matchConfidence(hits)}
		}
	}
	return best
}

// matchConfidence maps keyword hit counts to a confidence: one hit is a fair
// signal, two or more a strong one.
func matchConfidence(hits int) float64 {
	if hits >= 2 {
		return 0.9
	}
	return 0.75
}
