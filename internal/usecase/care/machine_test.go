package care

import (
	"context"
	"strings"
	"testing"

	"github.com/clinico-health/assist/internal/domain"
)

func TestFullBookingWalk(t *testing.T) {
	m := newTestMachine(fixtureDirectory(), &mockGenerator{response: "General Physician"})
	ctx := context.Background()
	const user = "user-1"

	// initial
	resp := m.Handle(ctx, user, "I need to see a doctor about my headaches", nil)
	if resp.State == nil || resp.State.Step != domain.StepSelectType {
		t.Fatalf("expected select_type, got %+v", resp.State)
	}
	if resp.State.OriginalQuery != "I need to see a doctor about my headaches" {
		t.Errorf("original query not preserved: %q", resp.State.OriginalQuery)
	}

	// select_type: virtual
	resp = m.Handle(ctx, user, "virtual", resp.State)
	if resp.State == nil || resp.State.Step != domain.StepConfirmSpecialization {
		t.Fatalf("expected confirm_specialization, got %+v", resp.State)
	}
	if resp.State.Specialization != "General Physician" {
		t.Errorf("expected predicted specialization, got %q", resp.State.Specialization)
	}
	if resp.State.AppointmentType != domain.AppointmentVirtual {
		t.Errorf("expected virtual, got %q", resp.State.AppointmentType)
	}

	// confirm: runs discovery against the directory fixtures
	resp = m.Handle(ctx, user, "yes", resp.State)
	if resp.State == nil || resp.State.Step != domain.StepDoctorSelected {
		t.Fatalf("expected doctor_selected, got %+v", resp.State)
	}
	if len(resp.State.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(resp.State.Candidates))
	}
	if !strings.Contains(resp.Answer, "Dr. Asha Rao") {
		t.Errorf("expected candidate summary, got %q", resp.Answer)
	}

	// pick the first professional
	resp = m.Handle(ctx, user, "doctor_0", resp.State)
	if resp.State == nil || resp.State.Step != domain.StepConfirmBooking {
		t.Fatalf("expected confirm_booking, got %+v", resp.State)
	}
	if resp.State.DoctorSelection != "7" {
		t.Errorf("expected professional 7 selected, got %q", resp.State.DoctorSelection)
	}
	if !strings.Contains(resp.Answer, "slot_3") {
		t.Errorf("expected slot listing, got %q", resp.Answer)
	}

	// pick a slot
	resp = m.Handle(ctx, user, "slot_3", resp.State)
	if resp.State == nil || resp.State.Step != domain.StepCompleted {
		t.Fatalf("expected completed, got %+v", resp.State)
	}
	if resp.State.SlotID != "3" {
		t.Errorf("expected slot 3, got %q", resp.State.SlotID)
	}
	if !strings.Contains(resp.Answer, "pending") {
		t.Errorf("expected pending status in confirmation, got %q", resp.Answer)
	}
}

func TestEmergencyPreemptsAnyStep(t *testing.T) {
	m := newTestMachine(fixtureDirectory(), &mockGenerator{response: "General Physician"})
	ctx := context.Background()

	states := []*domain.StateSnapshot{
		nil,
		{Step: domain.StepSelectType, Version: 1},
		{Step: domain.StepConfirmBooking, Version: 4, DoctorSelection: "7",
			Candidates: fixtureDirectory().professionals},
	}
	for _, state := range states {
		resp := m.Handle(ctx, "user-e", "I suddenly have chest pain", state)
		if resp.Type != domain.ResponseEmergency {
			t.Errorf("state %+v: expected emergency response, got %s", state, resp.Type)
		}
		if !resp.CrisisDetected || resp.CrisisType != "medical" {
			t.Errorf("state %+v: expected medical crisis metadata", state)
		}
		if resp.State != nil {
			t.Errorf("state %+v: emergency must not advance the flow", state)
		}
	}
}

func TestInvalidDoctorTokenDoesNotAdvance(t *testing.T) {
	m := newTestMachine(fixtureDirectory(), &mockGenerator{response: "General Physician"})
	ctx := context.Background()

	state := &domain.StateSnapshot{
		Step:    domain.StepDoctorSelected,
		Version: 3,
		Candidates: []domain.Candidate{
			{ID: "7", Name: "Dr. Asha Rao", Slots: []domain.Slot{{ID: "3"}}},
		},
	}

	for _, input := range []string{"doctor_9", "doctor_x", "the second one"} {
		resp := m.Handle(ctx, "user-d", input, state)
		if resp.Type != domain.ResponseError {
			t.Errorf("input %q: expected error response, got %s", input, resp.Type)
		}
		if resp.State == nil || resp.State.Step != domain.StepDoctorSelected {
			t.Errorf("input %q: step must not advance, got %+v", input, resp.State)
		}
		state = resp.State
	}
}

func TestInvalidSlotTokenDoesNotAdvance(t *testing.T) {
	m := newTestMachine(fixtureDirectory(), &mockGenerator{response: "General Physician"})
	ctx := context.Background()

	state := &domain.StateSnapshot{
		Step:            domain.StepConfirmBooking,
		Version:         4,
		DoctorSelection: "7",
		Candidates: []domain.Candidate{
			{ID: "7", Name: "Dr. Asha Rao", Slots: []domain.Slot{{ID: "3"}}},
		},
	}

	resp := m.Handle(ctx, "user-s", "slot_99", state)
	if resp.Type != domain.ResponseError {
		t.Errorf("expected error response, got %s", resp.Type)
	}
	if resp.State == nil || resp.State.Step != domain.StepConfirmBooking {
		t.Errorf("step must not advance, got %+v", resp.State)
	}
}

func TestStaleSnapshotRejected(t *testing.T) {
	m := newTestMachine(fixtureDirectory(), &mockGenerator{response: "General Physician"})
	ctx := context.Background()
	const user = "user-r"

	first := m.Handle(ctx, user, "book me a doctor", nil)
	second := m.Handle(ctx, user, "virtual", first.State)
	if second.State == nil || second.State.Step != domain.StepConfirmSpecialization {
		t.Fatalf("setup failed: %+v", second.State)
	}

	// Replaying the older snapshot must not fork the flow.
	replay := m.Handle(ctx, user, "in person", first.State)
	if replay.Type != domain.ResponseError {
		t.Errorf("expected stale replay rejected, got %s: %q", replay.Type, replay.Answer)
	}

	// The fresh snapshot still works.
	cont := m.Handle(ctx, user, "yes", second.State)
	if cont.State == nil || cont.State.Step != domain.StepDoctorSelected {
		t.Errorf("fresh snapshot must still advance, got %+v", cont.State)
	}
}

func TestNoProfessionalsReturnsToSelectType(t *testing.T) {
	dir := &mockDirectory{professionals: nil, slots: map[string][]domain.Slot{}}
	m := newTestMachine(dir, &mockGenerator{response: "Cardiologist"})
	ctx := context.Background()

	state := &domain.StateSnapshot{
		Step:            domain.StepConfirmSpecialization,
		Version:         2,
		AppointmentType: domain.AppointmentVirtual,
		Specialization:  "Cardiologist",
	}
	resp := m.Handle(ctx, "user-n", "yes", state)

	if resp.State == nil || resp.State.Step != domain.StepSelectType {
		t.Errorf("expected return to select_type, got %+v", resp.State)
	}
	if !strings.Contains(resp.Answer, "couldn't find") {
		t.Errorf("expected retry offer, got %q", resp.Answer)
	}
}

func TestInPersonSkipsDirectory(t *testing.T) {
	dir := &mockDirectory{listErr: context.DeadlineExceeded} // would fail if called
	m := newTestMachine(dir, &mockGenerator{response: "Dermatologist"})
	ctx := context.Background()
	const user = "user-p"

	resp := m.Handle(ctx, user, "I have a skin problem", nil)
	resp = m.Handle(ctx, user, "in person please", resp.State)
	if resp.State.AppointmentType != domain.AppointmentInPerson {
		t.Fatalf("expected in_person, got %q", resp.State.AppointmentType)
	}

	resp = m.Handle(ctx, user, "yes", resp.State)
	if !strings.Contains(resp.Answer, "location map") {
		t.Errorf("expected location map instruction, got %q", resp.Answer)
	}
	if resp.State == nil || resp.State.Step != domain.StepCompleted {
		t.Errorf("expected completed, got %+v", resp.State)
	}
}

func TestSpecializationPredictionDefaults(t *testing.T) {
	m := newTestMachine(fixtureDirectory(), &mockGenerator{err: context.DeadlineExceeded})

	got := m.predictSpecialization(context.Background(), "my knee hurts")
	if got != defaultSpecialization {
		t.Errorf("expected default on failure, got %q", got)
	}

	m2 := newTestMachine(fixtureDirectory(), &mockGenerator{response: "I believe a Cardiologist fits best."})
	if got := m2.predictSpecialization(context.Background(), "heart flutter"); got != "Cardiologist" {
		t.Errorf("expected Cardiologist, got %q", got)
	}
}

func TestChooseDifferentSpecialization(t *testing.T) {
	m := newTestMachine(fixtureDirectory(), &mockGenerator{response: "General Physician"})
	ctx := context.Background()
	const user = "user-c"

	resp := m.Handle(ctx, user, "I need an appointment", nil)
	resp = m.Handle(ctx, user, "virtual", resp.State)
	resp = m.Handle(ctx, user, "choose different", resp.State)

	if resp.State == nil || resp.State.Step != domain.StepConfirmSpecialization {
		t.Fatalf("expected to stay in confirm_specialization, got %+v", resp.State)
	}
	if len(resp.FollowUps) != len(specializations) {
		t.Errorf("expected full specialization list, got %d options", len(resp.FollowUps))
	}

	resp = m.Handle(ctx, user, "Dermatologist", resp.State)
	if resp.State == nil || resp.State.Step != domain.StepDoctorSelected {
		t.Fatalf("expected doctor_selected after manual pick, got %+v", resp.State)
	}
}

func TestVersionGuard(t *testing.T) {
	g := newVersionGuard()

	if !g.accept("u", 0) {
		t.Fatal("first transition must be accepted")
	}
	if g.accept("u", 0) {
		t.Error("replay of the same version must be rejected")
	}
	if !g.accept("u", 1) {
		t.Error("next version must be accepted")
	}

	g.reset("u")
	if !g.accept("u", 0) {
		t.Error("reset must allow a fresh flow")
	}
}
