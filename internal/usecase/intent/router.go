package intent

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/clinico-health/assist/internal/domain"
)

// Router classifies a user turn into an intent decision. The safety
// overrides run first and never consult the generation model, so the
// safety path cannot be delayed or broken by a model outage.
type Router struct {
	gen       Generator
	available []string
	logger    *zap.Logger
}

// New creates an intent router over the given available collections.
func New(gen Generator, available []string, logger *zap.Logger) *Router {
	return &Router{gen: gen, available: available, logger: logger}
}

const classifierSystem = `You are an intent classifier for a health assistant.
Respond with a single JSON object and nothing else:
{"intent": "<health_inquiry|medicine_info|mental_wellness|image_diagnosis|care_coordination|unclear>",
 "collections": ["<collection>", ...],
 "needs_appointment": <bool>,
 "requires_vision": <bool>}`

// Classify produces the decision for one turn. It never returns an
// error: every failure on the default path degrades to unclear with a
// default collection selection.
func (r *Router) Classify(ctx context.Context, query string, hasImage bool) domain.Decision {
	lower := strings.ToLower(query)

	if containsAny(lower, crisisPhrases) {
		return domain.Decision{
			Intent:      domain.IntentMentalWellness,
			Collections: []string{"mental_health"},
			IsCrisis:    true,
		}
	}

	if containsAny(lower, emergencyPhrases) {
		return domain.Decision{
			Intent:           domain.IntentCareCoordination,
			IsCrisis:         true,
			NeedsAppointment: true,
			Emergency:        domain.EmergencyMedical,
		}
	}

	if hasImage {
		return r.classifyImage(lower)
	}

	decision := r.classifyWithModel(ctx, query)
	decision.Collections = r.filterCollections(decision.Collections)
	if len(decision.Collections) == 0 && decision.Intent != domain.IntentCareCoordination {
		decision.Collections = r.fallbackCollections(lower)
	}
	return decision
}

// classifyImage picks collections by keyword without a model call.
func (r *Router) classifyImage(lower string) domain.Decision {
	medicine := containsAny(lower, medicineKeywords)
	condition := containsAny(lower, conditionKeywords)

	var collections []string
	switch {
	case medicine && !condition:
		collections = []string{"medicines"}
	case condition && !medicine:
		collections = []string{"disease_symptoms"}
	default:
		collections = []string{"disease_symptoms", "medicines"}
	}

	return domain.Decision{
		Intent:         domain.IntentImageDiagnosis,
		Collections:    r.filterCollections(collections),
		RequiresVision: true,
	}
}

// classifyWithModel asks the generation model for a structured decision
// and degrades to unclear on any call or parse failure.
func (r *Router) classifyWithModel(ctx context.Context, query string) domain.Decision {
	unclear := domain.Decision{
		Intent:      domain.IntentUnclear,
		Collections: r.defaultCollections(),
	}

	raw, err := r.gen.Generate(ctx, classifierSystem, "Classify this message: "+query)
	if err != nil {
		r.logger.Warn("intent classification call failed", zap.Error(err))
		return unclear
	}

	parsed, err := parseClassifierOutput(raw)
	if err != nil {
		r.logger.Warn("intent classification parse failed", zap.Error(err))
		return unclear
	}
	if !domain.KnownIntent(parsed.Intent) {
		r.logger.Warn("classifier returned unknown intent", zap.String("intent", parsed.Intent))
		return unclear
	}

	return domain.Decision{
		Intent:           domain.Intent(parsed.Intent),
		Collections:      parsed.Collections,
		NeedsAppointment: parsed.NeedsAppointment,
		RequiresVision:   parsed.RequiresVision,
	}
}

// filterCollections drops requested collections that are not loaded.
func (r *Router) filterCollections(requested []string) []string {
	var out []string
	for _, name := range requested {
		for _, avail := range r.available {
			if name == avail {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

// fallbackCollections picks collections by keyword, else the first two
// available.
func (r *Router) fallbackCollections(lower string) []string {
	if containsAny(lower, medicineKeywords) {
		if out := r.filterCollections([]string{"medicines"}); len(out) > 0 {
			return out
		}
	}
	if containsAny(lower, mentalKeywords) {
		if out := r.filterCollections([]string{"mental_health"}); len(out) > 0 {
			return out
		}
	}
	return r.defaultCollections()
}

func (r *Router) defaultCollections() []string {
	if len(r.available) > 2 {
		return r.available[:2]
	}
	return r.available
}

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
