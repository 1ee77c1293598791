package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/clinico-health/assist/internal/domain"
	"github.com/clinico-health/assist/internal/monitor"
)

// Service runs the per-request decision pipeline: resume the care flow
// when a snapshot is carried, otherwise classify and dispatch to the
// matching agent handler.
type Service struct {
	classifier    Classifier
	informational QueryHandler
	wellness      QueryHandler
	imaging       ImageHandler
	care          CareHandler
	collector     *monitor.Collector
	chatlog       ChatLogger
	logger        *zap.Logger
}

// Input is one user turn.
type Input struct {
	Query    string
	ImageB64 string
	State    *domain.StateSnapshot
}

// Output pairs the agent response with the routing that produced it.
type Output struct {
	Response    domain.AgentResponse
	Intent      domain.Intent
	Collections []string
	HasImage    bool
}

// New creates the orchestrator. chatlog may be nil to disable logging.
func New(
	classifier Classifier,
	informational, wellness QueryHandler,
	imaging ImageHandler,
	care CareHandler,
	collector *monitor.Collector,
	chatlog ChatLogger,
	logger *zap.Logger,
) *Service {
	return &Service{
		classifier:    classifier,
		informational: informational,
		wellness:      wellness,
		imaging:       imaging,
		care:          care,
		collector:     collector,
		chatlog:       chatlog,
		logger:        logger,
	}
}

// Orchestrate handles one turn end to end.
func (s *Service) Orchestrate(ctx context.Context, identity domain.Identity, in Input) Output {
	hasImage := in.ImageB64 != ""
	start := time.Now()

	var decision domain.Decision
	var resp domain.AgentResponse

	if resuming(in.State) {
		decision = domain.Decision{Intent: domain.IntentCareCoordination, NeedsAppointment: true}
		resp = s.care.Handle(ctx, identity.UserID, in.Query, in.State)
	} else {
		decision = s.classifier.Classify(ctx, in.Query, hasImage)
		resp = s.dispatch(ctx, identity, in, decision)
	}

	s.collector.RecordAgentResponse(resp.Agent, time.Since(start), string(decision.Intent))
	for _, collection := range decision.Collections {
		s.collector.RecordCollectionQuery(collection)
	}
	if resp.CrisisDetected {
		s.collector.RecordCrisisDetection(resp.CrisisType)
	}

	if s.chatlog != nil {
		s.chatlog.Log(ctx, identity.UserID, in.Query, decision.Intent, resp)
	}

	return Output{
		Response:    resp,
		Intent:      decision.Intent,
		Collections: decision.Collections,
		HasImage:    hasImage,
	}
}

func (s *Service) dispatch(ctx context.Context, identity domain.Identity, in Input, decision domain.Decision) domain.AgentResponse {
	switch {
	case decision.Intent == domain.IntentCareCoordination || decision.NeedsAppointment:
		return s.care.Handle(ctx, identity.UserID, in.Query, nil)
	case decision.RequiresVision && in.ImageB64 != "":
		return s.imaging.Handle(ctx, in.Query, in.ImageB64, decision)
	case decision.Intent == domain.IntentMentalWellness:
		return s.wellness.Handle(ctx, in.Query, decision)
	default:
		return s.informational.Handle(ctx, in.Query, decision)
	}
}

// resuming reports whether the carried snapshot puts this turn back
// into the care flow. A completed snapshot restarts from scratch via
// the default dispatch.
func resuming(state *domain.StateSnapshot) bool {
	return state != nil && state.Step != "" && state.Step != domain.StepCompleted
}
