package intent

import "strings"

// IsCrisis reports whether the query matches a mental-health crisis phrase.
func IsCrisis(query string) bool {
	return containsAny(strings.ToLower(query), crisisPhrases)
}

// IsEmergency reports whether the query matches a medical-emergency phrase.
func IsEmergency(query string) bool {
	return containsAny(strings.ToLower(query), emergencyPhrases)
}

// Phrase sets for the hardcoded safety overrides. Matching is
// case-insensitive substring containment; the two sets are disjoint so
// the crisis and emergency checks stay mutually exclusive.
var crisisPhrases = []string{
	"suicide",
	"suicidal",
	"kill myself",
	"end my life",
	"want to die",
	"hurt myself",
	"self harm",
	"self-harm",
	"no reason to live",
	"better off dead",
}

var emergencyPhrases = []string{
	"chest pain",
	"heart attack",
	"can't breathe",
	"cannot breathe",
	"difficulty breathing",
	"stroke",
	"unconscious",
	"severe bleeding",
	"seizure",
	"overdose",
}

// Keyword sets for the image-present heuristic and the collection
// fallback when the classifier returns nothing usable.
var medicineKeywords = []string{
	"medicine",
	"medication",
	"tablet",
	"pill",
	"capsule",
	"drug",
	"prescription",
	"dosage",
	"dose",
}

var conditionKeywords = []string{
	"rash",
	"skin",
	"wound",
	"swelling",
	"symptom",
	"infection",
	"pain",
	"fever",
	"disease",
}

var mentalKeywords = []string{
	"stress",
	"anxiety",
	"anxious",
	"depress",
	"sad",
	"lonely",
	"sleep",
	"mood",
}
