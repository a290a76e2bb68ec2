package handoff

import "regexp"

// The keyword and pattern sets below are bilingual (French and English),
// matching the markets the product ships in. Matching is done against the
// lowercased message, so all entries are lowercase.

var frustrationKeywordsFR = []string{
	"parler à un humain",
	"parler a un humain",
	"agent humain",
	"vrai personne",
	"responsable",
	"superviseur",
	"manager",
	"ça suffit",
	"ca suffit",
	"ras le bol",
	"insupportable",
	"inacceptable",
	"inadmissible",
	"ridicule",
	"incompétent",
	"incompetent",
	"nul",
	"inutile",
	"je veux un humain",
	"transférer",
	"transferer",
	"escalader",
}

var frustrationKeywordsEN = []string{
	"talk to a human",
	"speak to someone",
	"real person",
	"supervisor",
	"manager",
	"this is useless",
	"fed up",
	"unacceptable",
	"ridiculous",
	"incompetent",
	"transfer me",
	"escalate",
	"i want a human",
	"let me talk to",
}

// userRequestPatterns match explicit requests to reach a human. These take
// precedence over every other signal except a disabled agent.
var userRequestPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)parler?\s*(à|a)\s*(un|une)?\s*(humain|personne|agent|conseiller)`),
	regexp.MustCompile(`(?i)transf[ée]rer?\s*(moi|ma)`),
	regexp.MustCompile(`(?i)je\s+veux\s+(un|parler)`),
	regexp.MustCompile(`(?i)talk\s+to\s+(a\s+)?(human|person|agent|someone|representative)`),
	regexp.MustCompile(`(?i)transfer\s+me`),
	regexp.MustCompile(`(?i)i\s+want\s+(a\s+)?(human|person|real)`),
	regexp.MustCompile(`(?i)speak\s+(to|with)\s+(a\s+)?(human|person|someone)`),
}

// sensitiveTopics force an urgent handoff regardless of confidence: legal,
// privacy, financial and safety matters a bot must not handle alone.
var sensitiveTopics = []string{
	"remboursement", "refund",
	"litige", "dispute",
	"plainte", "complaint",
	"avocat", "lawyer", "juridique", "legal",
	"rgpd", "gdpr", "données personnelles", "personal data",
	"harcèlement", "harassment",
	"discrimination",
	"facturation", "billing",
	"fraude", "fraud",
	"sécurité", "security breach",
	"urgence", "emergency",
	"résiliation", "cancellation",
}
