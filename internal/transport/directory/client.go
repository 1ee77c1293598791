package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/clinico-health/assist/internal/domain"
)

// Client talks to the external professional-directory service.
// Calls are authenticated with the service-to-service shared secret.
type Client struct {
	baseURL      string
	serviceToken string
	client       *http.Client
	logger       *zap.Logger
}

// Config holds the directory client settings.
type Config struct {
	BaseURL      string
	ServiceToken string
	Timeout      time.Duration
	Logger       *zap.Logger
}

// New creates a directory client.
func New(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:      cfg.BaseURL,
		serviceToken: cfg.ServiceToken,
		client:       &http.Client{Timeout: timeout},
		logger:       cfg.Logger,
	}
}

type professionalRecord struct {
	ProfessionalID json.Number `json:"professional_id"`
	FullName       string      `json:"full_name"`
	Specialty      string      `json:"specialty"`
}

type slotRecord struct {
	SlotID    json.Number `json:"slot_id"`
	StartTime string      `json:"start_time"`
	EndTime   string      `json:"end_time"`
}

// Professionals lists verified professionals for a specialization.
func (c *Client) Professionals(ctx context.Context, specialization string) ([]domain.Candidate, error) {
	endpoint := c.baseURL + "/api/professionals"
	if specialization != "" {
		endpoint += "?specialty=" + url.QueryEscape(specialization)
	}

	var records []professionalRecord
	if err := c.getJSON(ctx, endpoint, &records); err != nil {
		return nil, fmt.Errorf("list professionals: %w", err)
	}

	candidates := make([]domain.Candidate, 0, len(records))
	for _, rec := range records {
		candidates = append(candidates, domain.Candidate{
			ID:             rec.ProfessionalID.String(),
			Name:           rec.FullName,
			Specialization: rec.Specialty,
		})
	}
	return candidates, nil
}

// Availability returns open slots for one professional.
func (c *Client) Availability(ctx context.Context, professionalID string) ([]domain.Slot, error) {
	endpoint := c.baseURL + "/api/professionals/" + url.PathEscape(professionalID) + "/availability"

	var records []slotRecord
	if err := c.getJSON(ctx, endpoint, &records); err != nil {
		return nil, fmt.Errorf("fetch availability: %w", err)
	}

	slots := make([]domain.Slot, 0, len(records))
	for _, rec := range records {
		slots = append(slots, domain.Slot{
			ID:    rec.SlotID.String(),
			Start: rec.StartTime,
			End:   rec.EndTime,
		})
	}
	return slots, nil
}

// HealthCheck verifies the directory service is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}
	req.Header.Set("X-Service-Token", c.serviceToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("directory unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("directory returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Service-Token", c.serviceToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("call directory: %w", domain.ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("directory returned status %s: %w", strconv.Itoa(resp.StatusCode), domain.ErrUpstream)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode directory response: %w", domain.ErrUpstream)
	}
	return nil
}
