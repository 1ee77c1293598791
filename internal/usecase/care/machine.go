package care

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/clinico-health/assist/internal/domain"
	"github.com/clinico-health/assist/internal/usecase/intent"
)

const agentName = "care_coordination"

// maxCandidates caps how many professionals are offered per discovery.
const maxCandidates = 5

// emergencyAnswer bypasses the state machine entirely. Safety pre-empts
// task progress at any step.
const emergencyAnswer = `This sounds like a medical emergency.

Please call your local emergency number (112 / 911) or go to the nearest
emergency room immediately. Do not wait for an online appointment.`

const defaultSpecialization = "General Physician"

// specializations is the fixed vocabulary for the constrained
// specialization prediction and the manual selection list.
var specializations = []string{
	"General Physician",
	"Cardiologist",
	"Dermatologist",
	"Pediatrician",
	"Psychiatrist",
	"Gynecologist",
	"Orthopedist",
	"Neurologist",
	"ENT Specialist",
	"Ophthalmologist",
}

var specializationSystem = `You classify a health complaint into exactly one
medical specialization from this list: ` + strings.Join(specializations, ", ") + `.
Respond with only the specialization name, nothing else.`

// Machine drives the multi-turn appointment-booking flow. State is
// caller-carried: every response that continues the flow attaches the
// snapshot the caller must send back with the next message.
type Machine struct {
	directory Directory
	gen       Generator
	guard     *versionGuard
	logger    *zap.Logger
}

// New creates the care-coordination state machine.
func New(directory Directory, gen Generator, logger *zap.Logger) *Machine {
	return &Machine{
		directory: directory,
		gen:       gen,
		guard:     newVersionGuard(),
		logger:    logger,
	}
}

// Handle advances the booking flow by one step. The emergency check runs
// first on every invocation regardless of the current step.
func (m *Machine) Handle(ctx context.Context, userID, query string, state *domain.StateSnapshot) domain.AgentResponse {
	if intent.IsEmergency(query) {
		return domain.AgentResponse{
			Agent:          agentName,
			Type:           domain.ResponseEmergency,
			Answer:         emergencyAnswer,
			CrisisDetected: true,
			CrisisType:     "medical",
		}
	}

	if state == nil || state.Step == "" {
		m.guard.reset(userID)
		state = &domain.StateSnapshot{Step: domain.StepInitial}
	}

	if !m.guard.accept(userID, state.Version) {
		return m.errorResponse(*state, "This conversation step was already processed. Please continue from your latest message.")
	}

	switch state.Step {
	case domain.StepInitial:
		return m.handleInitial(query, *state)
	case domain.StepSelectType:
		return m.handleSelectType(ctx, query, *state)
	case domain.StepConfirmSpecialization:
		return m.handleConfirmSpecialization(ctx, query, *state)
	case domain.StepSpecializationSelected:
		return m.discover(ctx, *state)
	case domain.StepDoctorSelected:
		return m.handleDoctorSelected(query, *state)
	case domain.StepConfirmBooking:
		return m.handleConfirmBooking(userID, query, *state)
	case domain.StepCompleted:
		m.guard.reset(userID)
		return domain.AgentResponse{
			Agent:  agentName,
			Type:   domain.ResponseConversation,
			Answer: "Your booking is already complete. Send a new message to start another request.",
		}
	default:
		return m.handleInitial(query, domain.StateSnapshot{Step: domain.StepInitial, Version: state.Version})
	}
}

func (m *Machine) handleInitial(query string, state domain.StateSnapshot) domain.AgentResponse {
	next := state.Next(domain.StepSelectType)
	next.OriginalQuery = query

	return domain.AgentResponse{
		Agent:  agentName,
		Type:   domain.ResponseConversation,
		Answer: "I can help you book an appointment. Would you prefer an in-person visit or a virtual consultation?",
		FollowUps: []domain.FollowUp{
			{Label: "In-person visit", Value: "in_person"},
			{Label: "Virtual consultation", Value: "virtual"},
		},
		State: &next,
	}
}

func (m *Machine) handleSelectType(ctx context.Context, query string, state domain.StateSnapshot) domain.AgentResponse {
	lower := strings.ToLower(query)

	appointmentType := domain.AppointmentVirtual
	if strings.Contains(lower, "in") && strings.Contains(lower, "person") {
		appointmentType = domain.AppointmentInPerson
	}

	specialization := m.predictSpecialization(ctx, state.OriginalQuery)

	next := state.Next(domain.StepConfirmSpecialization)
	next.AppointmentType = appointmentType
	next.Specialization = specialization

	return domain.AgentResponse{
		Agent: agentName,
		Type:  domain.ResponseConversation,
		Answer: fmt.Sprintf("Based on your concern, I suggest a %s. Shall I look for one, or would you like to choose a different specialization?",
			specialization),
		FollowUps: []domain.FollowUp{
			{Label: "Yes, continue", Value: "confirm"},
			{Label: "Choose different", Value: "choose_different"},
		},
		State: &next,
	}
}

func (m *Machine) handleConfirmSpecialization(ctx context.Context, query string, state domain.StateSnapshot) domain.AgentResponse {
	lower := strings.ToLower(query)

	if strings.Contains(lower, "different") || strings.Contains(lower, "choose") {
		next := state.Next(domain.StepConfirmSpecialization)
		followUps := make([]domain.FollowUp, 0, len(specializations))
		for _, s := range specializations {
			followUps = append(followUps, domain.FollowUp{Label: s, Value: s})
		}
		return domain.AgentResponse{
			Agent:     agentName,
			Type:      domain.ResponseConversation,
			Answer:    "Which specialization would you like?",
			FollowUps: followUps,
			State:     &next,
		}
	}

	if chosen, ok := matchSpecialization(query); ok {
		state.Specialization = chosen
	}

	next := state.Next(domain.StepSpecializationSelected)
	return m.discover(ctx, next)
}

// discover runs the professional discovery action for the selected
// specialization and appointment type.
func (m *Machine) discover(ctx context.Context, state domain.StateSnapshot) domain.AgentResponse {
	if state.AppointmentType == domain.AppointmentInPerson {
		next := state.Next(domain.StepCompleted)
		return domain.AgentResponse{
			Agent: agentName,
			Type:  domain.ResponseConversation,
			Answer: fmt.Sprintf("Please use the location map in the app to find %s clinics near you and book directly at the clinic.",
				state.Specialization),
			State: &next,
		}
	}

	candidates, err := m.directory.Professionals(ctx, state.Specialization)
	if err != nil {
		m.logger.Warn("directory lookup failed", zap.Error(err))
		candidates = nil
	}

	if len(candidates) == 0 {
		next := state.Next(domain.StepSelectType)
		return domain.AgentResponse{
			Agent: agentName,
			Type:  domain.ResponseConversation,
			Answer: fmt.Sprintf("I couldn't find any verified %s available right now. Would you like to try a different specialization or an in-person visit?",
				state.Specialization),
			FollowUps: []domain.FollowUp{
				{Label: "In-person visit", Value: "in_person"},
				{Label: "Virtual consultation", Value: "virtual"},
			},
			State: &next,
		}
	}

	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	for i := range candidates {
		slots, err := m.directory.Availability(ctx, candidates[i].ID)
		if err != nil {
			m.logger.Warn("availability lookup failed",
				zap.String("professional", candidates[i].ID), zap.Error(err))
			continue
		}
		candidates[i].Slots = slots
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Here are the available %s options:\n", state.Specialization))
	followUps := make([]domain.FollowUp, 0, len(candidates))
	for i, c := range candidates {
		sb.WriteString(fmt.Sprintf("%d. %s (%s) - %d open slots\n", i+1, c.Name, c.Specialization, len(c.Slots)))
		followUps = append(followUps, domain.FollowUp{
			Label: c.Name,
			Value: fmt.Sprintf("doctor_%d", i),
		})
	}
	sb.WriteString("Who would you like to see?")

	next := state.Next(domain.StepDoctorSelected)
	next.Candidates = candidates

	return domain.AgentResponse{
		Agent:     agentName,
		Type:      domain.ResponseConversation,
		Answer:    sb.String(),
		FollowUps: followUps,
		State:     &next,
	}
}

func (m *Machine) handleDoctorSelected(query string, state domain.StateSnapshot) domain.AgentResponse {
	token := strings.TrimSpace(strings.ToLower(query))
	idxStr, ok := strings.CutPrefix(token, "doctor_")
	if !ok {
		return m.errorResponse(state, "Please pick a professional from the list, for example doctor_0.")
	}
	idx, err := strconv.Atoi(idxStr)
	if err != nil || idx < 0 || idx >= len(state.Candidates) {
		return m.errorResponse(state, "That professional is not in the list. Please pick one of the offered options.")
	}

	chosen := state.Candidates[idx]
	next := state.Next(domain.StepConfirmBooking)
	next.DoctorSelection = chosen.ID

	if len(chosen.Slots) == 0 {
		return m.errorResponse(state, fmt.Sprintf("%s has no open slots right now. Please pick another professional.", chosen.Name))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s has these open slots:\n", chosen.Name))
	followUps := make([]domain.FollowUp, 0, len(chosen.Slots))
	for _, slot := range chosen.Slots {
		sb.WriteString(fmt.Sprintf("- %s to %s (slot_%s)\n", slot.Start, slot.End, slot.ID))
		followUps = append(followUps, domain.FollowUp{
			Label: slot.Start,
			Value: "slot_" + slot.ID,
		})
	}
	sb.WriteString("Which slot works for you?")

	return domain.AgentResponse{
		Agent:     agentName,
		Type:      domain.ResponseConversation,
		Answer:    sb.String(),
		FollowUps: followUps,
		State:     &next,
	}
}

func (m *Machine) handleConfirmBooking(userID, query string, state domain.StateSnapshot) domain.AgentResponse {
	token := strings.TrimSpace(strings.ToLower(query))
	slotID, ok := strings.CutPrefix(token, "slot_")
	if !ok || slotID == "" {
		return m.errorResponse(state, "Please pick a slot from the list, for example slot_12.")
	}

	var chosen *domain.Candidate
	for i := range state.Candidates {
		if state.Candidates[i].ID == state.DoctorSelection {
			chosen = &state.Candidates[i]
			break
		}
	}
	if chosen == nil {
		return m.errorResponse(state, "I lost track of the selected professional. Please pick one again.")
	}

	valid := false
	for _, slot := range chosen.Slots {
		if slot.ID == slotID {
			valid = true
			break
		}
	}
	if !valid {
		return m.errorResponse(state, "That slot is not available for the selected professional. Please pick one of the offered slots.")
	}

	next := state.Next(domain.StepCompleted)
	next.SlotID = slotID
	m.guard.reset(userID)

	return domain.AgentResponse{
		Agent: agentName,
		Type:  domain.ResponseConversation,
		Answer: fmt.Sprintf("Your appointment request is registered.\nProfessional: %s (id %s)\nSlot: slot_%s\nStatus: pending confirmation. You will be notified once the professional confirms.",
			chosen.Name, chosen.ID, slotID),
		State: &next,
	}
}

// errorResponse echoes the flow state without advancing the step. The
// version still bumps so the echoed snapshot stays the freshest one.
func (m *Machine) errorResponse(state domain.StateSnapshot, msg string) domain.AgentResponse {
	next := state.Next(state.Step)
	return domain.AgentResponse{
		Agent:  agentName,
		Type:   domain.ResponseError,
		Answer: msg,
		State:  &next,
	}
}

// predictSpecialization classifies the original complaint against the
// fixed vocabulary, defaulting on any failure.
func (m *Machine) predictSpecialization(ctx context.Context, complaint string) string {
	if complaint == "" {
		return defaultSpecialization
	}

	raw, err := m.gen.Generate(ctx, specializationSystem, "Complaint: "+complaint)
	if err != nil {
		m.logger.Warn("specialization prediction failed", zap.Error(err))
		return defaultSpecialization
	}

	if chosen, ok := matchSpecialization(raw); ok {
		return chosen
	}
	return defaultSpecialization
}

// matchSpecialization finds a vocabulary entry in free text, exact match
// first, then substring.
func matchSpecialization(text string) (string, bool) {
	cleaned := strings.TrimSpace(text)
	for _, s := range specializations {
		if strings.EqualFold(cleaned, s) {
			return s, true
		}
	}
	lower := strings.ToLower(text)
	for _, s := range specializations {
		if strings.Contains(lower, strings.ToLower(s)) {
			return s, true
		}
	}
	return "", false
}
