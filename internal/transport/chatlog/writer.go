package chatlog

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Writer sends conversation turns to the chat-history service.
// Writes are best-effort: failures are logged and swallowed, they
// never affect the response path.
type Writer struct {
	baseURL      string
	serviceToken string
	client       *http.Client
	logger       *zap.Logger
}

// Config holds the chat-log writer settings.
type Config struct {
	BaseURL      string
	ServiceToken string
	Timeout      time.Duration
	Logger       *zap.Logger
}

// Entry is one logged conversation turn.
type Entry struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	Query          string `json:"query"`
	Answer         string `json:"answer"`
	Intent         string `json:"intent"`
	CrisisDetected bool   `json:"crisis_detected"`
	CrisisType     string `json:"crisis_type,omitempty"`
	Timestamp      string `json:"timestamp"`
}

// New creates a chat-log writer. An empty base URL disables writes.
func New(cfg *Config) *Writer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Writer{
		baseURL:      cfg.BaseURL,
		serviceToken: cfg.ServiceToken,
		client:       &http.Client{Timeout: timeout},
		logger:       cfg.Logger,
	}
}

// Write posts one entry. Always returns; never propagates failure.
func (w *Writer) Write(ctx context.Context, entry Entry) {
	if w == nil || w.baseURL == "" {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	body, err := json.Marshal(entry)
	if err != nil {
		w.logger.Warn("chat log marshal failed", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/api/ai/chat-logs", bytes.NewReader(body))
	if err != nil {
		w.logger.Warn("chat log request build failed", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.client.Do(req)
	if err != nil {
		w.logger.Warn("chat log write failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		w.logger.Warn("chat log write rejected", zap.Int("status", resp.StatusCode))
	}
}
