package domain

// Intent is the classified purpose of a user turn. It selects which
// agent handler runs.
type Intent string

const (
	IntentHealthInquiry    Intent = "health_inquiry"
	IntentMedicineInfo     Intent = "medicine_info"
	IntentMentalWellness   Intent = "mental_wellness"
	IntentImageDiagnosis   Intent = "image_diagnosis"
	IntentCareCoordination Intent = "care_coordination"
	IntentUnclear          Intent = "unclear"
)

// KnownIntent reports whether s is a member of the enumerated intent
// set. The classifier output is untrusted text, so every parsed intent
// passes through this check.
func KnownIntent(s string) bool {
	switch Intent(s) {
	case IntentHealthInquiry, IntentMedicineInfo, IntentMentalWellness,
		IntentImageDiagnosis, IntentCareCoordination, IntentUnclear:
		return true
	}
	return false
}

// EmergencyType labels a detected emergency. Only medical is produced
// by the phrase sets today.
type EmergencyType string

const (
	EmergencyNone    EmergencyType = ""
	EmergencyMedical EmergencyType = "medical"
)

// Decision is the intent router's per-turn output: which handler runs,
// which knowledge collections ground it, and the safety flags.
type Decision struct {
	Intent           Intent
	Collections      []string
	IsCrisis         bool
	NeedsAppointment bool
	RequiresVision   bool
	Emergency        EmergencyType
}
