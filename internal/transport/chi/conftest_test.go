package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/clinico-health/assist/internal/domain"
	"github.com/clinico-health/assist/internal/monitor"
	"github.com/clinico-health/assist/internal/ratelimit"
	"github.com/clinico-health/assist/internal/usecase/orchestrator"
)

const (
	testJWTSecret    = "test-secret"
	testServiceToken = "svc-token"
	testAdminToken   = "admin-token"
)

type stubOrchestrator struct {
	calls        int
	lastIdentity domain.Identity
	lastInput    orchestrator.Input
	output       orchestrator.Output
}

func (s *stubOrchestrator) Orchestrate(_ context.Context, id domain.Identity, in orchestrator.Input) orchestrator.Output {
	s.calls++
	s.lastIdentity = id
	s.lastInput = in
	return s.output
}

type stubAnalyzer struct {
	analysis string
	err      error
	lastType string
}

func (s *stubAnalyzer) Analyze(_ context.Context, analysisType, _ string) (string, error) {
	s.lastType = analysisType
	if s.err != nil {
		return "", s.err
	}
	return s.analysis, nil
}

type stubHealth struct {
	report monitor.Report
}

func (s *stubHealth) Check(_ context.Context) monitor.Report { return s.report }

type stubCollections struct {
	names  []string
	sizes  map[string]int
	broken map[string]bool
}

func (s *stubCollections) Collections() []string { return s.names }

func (s *stubCollections) Count(_ context.Context, name string) (int, error) {
	if s.broken[name] {
		return 0, errors.New("index gone")
	}
	return s.sizes[name], nil
}

func (s *stubCollections) Exists(_ context.Context, name string) (bool, error) {
	if s.broken[name] {
		return false, errors.New("index gone")
	}
	_, ok := s.sizes[name]
	return ok, nil
}

type fixture struct {
	orc       *stubOrchestrator
	analyzer  *stubAnalyzer
	health    *stubHealth
	cols      *stubCollections
	collector *monitor.Collector
	srv       *Server
	router    http.Handler
}

func newFixture(limiter ratelimit.Limiter) *fixture {
	f := &fixture{
		orc: &stubOrchestrator{output: orchestrator.Output{
			Response: domain.AgentResponse{
				Agent:  "informational",
				Type:   domain.ResponseAnswer,
				Answer: "rest and fluids",
			},
			Intent:      domain.IntentHealthInquiry,
			Collections: []string{"disease_symptoms"},
		}},
		analyzer: &stubAnalyzer{analysis: "no visible abnormality"},
		health:   &stubHealth{report: monitor.Report{Status: monitor.StatusHealthy, Checks: map[string]monitor.CheckResult{}}},
		cols: &stubCollections{
			names: []string{"medicines", "disease_symptoms", "mental_health"},
			sizes: map[string]int{"medicines": 120, "disease_symptoms": 85, "mental_health": 40},
		},
		collector: monitor.NewCollector(true),
	}
	if limiter == nil {
		limiter = ratelimit.NewMemory(false)
	}
	f.srv = NewServer(
		f.orc,
		f.analyzer,
		f.health,
		f.cols,
		limiter,
		f.collector,
		ServiceInfo{
			Version:           "test",
			GenerationBackend: "hosted",
			GenerationModel:   "gpt-4o-mini",
			VisionModel:       "gpt-4o",
			EmbeddingModel:    "text-embedding-3-small",
			RateLimitEnabled:  true,
			MonitoringEnabled: true,
		},
		Auth{JWTSecret: testJWTSecret, ServiceToken: testServiceToken, AdminToken: testAdminToken},
		zap.NewNop(),
	)
	f.router = f.srv.Router()
	return f
}

// signToken issues an HS256 token the way the identity service does.
func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func patientToken(t *testing.T) string {
	t.Helper()
	return signToken(t, testJWTSecret, jwt.MapClaims{
		"user_id": "user-1",
		"email":   "u@example.com",
		"role":    "Patient",
	})
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}
