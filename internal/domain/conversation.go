package domain

// Step is a position in the care-coordination flow.
type Step string

const (
	StepInitial                Step = "initial"
	StepSelectType             Step = "select_type"
	StepConfirmSpecialization  Step = "confirm_specialization"
	StepSpecializationSelected Step = "specialization_selected"
	StepDoctorSelected         Step = "doctor_selected"
	StepConfirmBooking         Step = "confirm_booking"
	StepCompleted              Step = "completed"
)

// AppointmentType distinguishes virtual from in-person flows.
type AppointmentType string

const (
	AppointmentVirtual  AppointmentType = "virtual"
	AppointmentInPerson AppointmentType = "in_person"
)

// Candidate is a professional offered to the user during discovery,
// with the availability slots already fetched for them.
type Candidate struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	Slots          []Slot `json:"slots"`
}

// Slot is one bookable availability window.
type Slot struct {
	ID    string `json:"id"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// StateSnapshot is the caller-carried checkpoint of the care flow. The
// service is stateless across requests: the caller must round-trip the
// snapshot, and it is only valid for interpreting the next message.
//
// Version increases by one on every emitted snapshot. A request carrying
// a snapshot whose version is below the one it claims to extend is a
// stale replay and is rejected without advancing; this closes the race
// where two concurrent requests both confirm the same slot.
type StateSnapshot struct {
	Version         int             `json:"version"`
	Step            Step            `json:"step"`
	AppointmentType AppointmentType `json:"appointment_type,omitempty"`
	Specialization  string          `json:"specialization,omitempty"`
	DoctorSelection string          `json:"doctor_selection,omitempty"`
	SlotID          string          `json:"slot_id,omitempty"`
	Candidates      []Candidate     `json:"candidates,omitempty"`
	OriginalQuery   string          `json:"original_query,omitempty"`
}

// Next returns a copy of s advanced to step with the version bumped.
func (s StateSnapshot) Next(step Step) StateSnapshot {
	out := s
	out.Step = step
	out.Version++
	return out
}
