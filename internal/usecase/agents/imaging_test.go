package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/clinico-health/assist/internal/domain"
)

var imageDecision = domain.Decision{
	Intent:         domain.IntentImageDiagnosis,
	Collections:    []string{"disease_symptoms"},
	RequiresVision: true,
}

func TestImaging_CombinedAnswer(t *testing.T) {
	ret := &mockRetriever{ret: retrievalOf(
		chunk("disease_symptoms", "eczema.txt", "Eczema presents as dry itchy patches.", 0.8),
	)}
	gen := &mockGenerator{response: "The image and context suggest a dry skin condition such as eczema."}
	vision := &mockVision{analysis: "Dry, red patches on the forearm."}
	h := NewImaging(ret, gen, vision, zap.NewNop())

	resp := h.Handle(context.Background(), "what is this rash", "aGVsbG8=", imageDecision)

	if resp.Type != domain.ResponseAnswer {
		t.Errorf("expected answer type, got %s", resp.Type)
	}
	if !strings.Contains(resp.Answer, ConsultRecommendation) {
		t.Error("expected consult recommendation appended")
	}
	if len(resp.FollowUps) != 2 || resp.FollowUps[0].Value != "book_appointment" {
		t.Errorf("unexpected follow-ups %+v", resp.FollowUps)
	}
	if !strings.Contains(gen.lastMsg, "Dry, red patches") {
		t.Errorf("prompt missing image analysis: %q", gen.lastMsg)
	}
	if !strings.Contains(gen.lastMsg, "Eczema presents") {
		t.Errorf("prompt missing retrieved context: %q", gen.lastMsg)
	}
	if len(resp.Sources) != 1 {
		t.Errorf("expected 1 source, got %d", len(resp.Sources))
	}
}

func TestImaging_VisionFailureFallsBack(t *testing.T) {
	vision := &mockVision{err: errors.New("vision model down")}
	h := NewImaging(&mockRetriever{}, &loudGenerator{t: t}, vision, zap.NewNop())

	resp := h.Handle(context.Background(), "what is this", "aGVsbG8=", imageDecision)

	if !strings.Contains(resp.Answer, fallbackAnswer) {
		t.Errorf("expected fallback answer, got %q", resp.Answer)
	}
	if !strings.Contains(resp.Answer, ConsultRecommendation) {
		t.Error("expected consult recommendation even on fallback")
	}
}

func TestImaging_RetrievalFailureStillAnswers(t *testing.T) {
	ret := &mockRetriever{err: errors.New("store down")}
	gen := &mockGenerator{response: "Based on the image alone, this looks like a mild rash."}
	vision := &mockVision{analysis: "Mild redness."}
	h := NewImaging(ret, gen, vision, zap.NewNop())

	resp := h.Handle(context.Background(), "what is this", "aGVsbG8=", imageDecision)

	if !strings.Contains(resp.Answer, "mild rash") {
		t.Errorf("expected generated answer, got %q", resp.Answer)
	}
	if len(resp.Sources) != 0 {
		t.Errorf("expected no sources, got %d", len(resp.Sources))
	}
}

func TestImageInstruction(t *testing.T) {
	if ImageInstruction("skin") == ImageInstruction("general") {
		t.Error("expected distinct skin template")
	}
	if ImageInstruction("bogus") != ImageInstruction("general") {
		t.Error("unknown type must default to general")
	}
	for _, typ := range []string{"general", "prescription", "skin", "xray", "lab_report"} {
		if !KnownAnalysisType(typ) {
			t.Errorf("expected %s to be known", typ)
		}
	}
	if KnownAnalysisType("bogus") {
		t.Error("bogus must not be known")
	}
}

func TestImaging_Analyze(t *testing.T) {
	vision := &mockVision{analysis: "**Two tablets** of paracetamol 500mg."}
	h := NewImaging(&mockRetriever{}, &mockGenerator{}, vision, zap.NewNop())

	analysis, err := h.Analyze(context.Background(), "prescription", "aGVsbG8=")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis != "Two tablets of paracetamol 500mg." {
		t.Errorf("unexpected analysis %q", analysis)
	}
	if vision.lastInst != imageInstructions["prescription"] {
		t.Errorf("expected prescription template, got %q", vision.lastInst)
	}
}
