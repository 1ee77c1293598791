package agents

import (
	"context"

	"go.uber.org/zap"

	"github.com/clinico-health/assist/internal/domain"
)

// ConsultRecommendation is always appended to image-grounded answers
// and returned alongside standalone image analyses.
const ConsultRecommendation = "Please consult a qualified healthcare professional for an accurate diagnosis. This analysis is informational only."

// imageInstructions are the fixed vision instruction templates, selected
// by analysis type on the analyze-image endpoint.
var imageInstructions = map[string]string{
	"general":      "Describe what is medically visible in this image in plain language.",
	"prescription": "Read this prescription image. List the medicines, dosages, and instructions you can identify.",
	"skin":         "Describe the visible skin condition in this image: appearance, color, texture, and spread.",
	"xray":         "Describe the visible structures and any notable findings in this X-ray image.",
	"lab_report":   "Read this lab report image. List the test names, values, and reference ranges you can identify.",
}

// ImageInstruction returns the vision instruction for an analysis type,
// defaulting to general.
func ImageInstruction(analysisType string) string {
	if instr, ok := imageInstructions[analysisType]; ok {
		return instr
	}
	return imageInstructions["general"]
}

// KnownAnalysisType reports whether t names a fixed instruction template.
func KnownAnalysisType(t string) bool {
	_, ok := imageInstructions[t]
	return ok
}

const imagingSystem = `You are a careful health assistant combining an image
analysis with reference knowledge. Answer the question using the image
analysis and ONLY the provided context. Be explicit about uncertainty and
never state a definitive diagnosis.`

// Imaging handles image-grounded diagnosis turns.
type Imaging struct {
	retriever Retriever
	gen       Generator
	vision    VisionGenerator
	logger    *zap.Logger
}

// NewImaging creates the image-grounded handler.
func NewImaging(retriever Retriever, gen Generator, vision VisionGenerator, logger *zap.Logger) *Imaging {
	return &Imaging{retriever: retriever, gen: gen, vision: vision, logger: logger}
}

// Handle analyzes the image, retrieves knowledge for the enhanced query,
// and generates a combined answer. The consult recommendation and the
// follow-up options are always attached.
func (h *Imaging) Handle(ctx context.Context, query, imageB64 string, decision domain.Decision) domain.AgentResponse {
	resp := domain.AgentResponse{
		Agent: "image_diagnosis",
		Type:  domain.ResponseAnswer,
		FollowUps: []domain.FollowUp{
			{Label: "Book an appointment", Value: "book_appointment"},
			{Label: "Ask another question", Value: "new_query"},
		},
	}

	analysis, err := h.vision.GenerateVision(ctx, ImageInstruction("general"), imageB64)
	if err != nil {
		h.logger.Warn("vision analysis failed", zap.Error(err))
		resp.Answer = fallbackAnswer + "\n\n" + ConsultRecommendation
		return resp
	}

	enhanced := query + "\n\nImage analysis: " + analysis

	var contextText string
	var results []domain.RetrievalResult
	ret, err := h.retriever.Retrieve(ctx, enhanced, decision.Collections, defaultTopK)
	if err != nil {
		h.logger.Warn("retrieval failed", zap.Error(err))
	} else {
		contextText = ret.Context
		results = ret.Results
	}

	prompt := "Image analysis:\n" + analysis + "\n\nContext:\n" + contextText + "\n\nQuestion: " + query
	answer, err := h.gen.Generate(ctx, imagingSystem, prompt)
	if err != nil {
		h.logger.Warn("generation failed", zap.Error(err))
		answer = fallbackAnswer
	}

	resp.Answer = normalizeAnswer(answer) + "\n\n" + ConsultRecommendation
	resp.Sources = sourcesOf(results)
	return resp
}

// Analyze runs a single vision analysis with a named instruction
// template, for the standalone analyze-image endpoint.
func (h *Imaging) Analyze(ctx context.Context, analysisType, imageB64 string) (string, error) {
	analysis, err := h.vision.GenerateVision(ctx, ImageInstruction(analysisType), imageB64)
	if err != nil {
		return "", err
	}
	return normalizeAnswer(analysis), nil
}
