package monitor

import (
	"sync"
	"time"
)

// Ring buffer capacities per sample stream.
const (
	requestBufferCap = 10000
	agentBufferCap   = 1000
	imageBufferCap   = 1000
	errorBufferCap   = 100

	// summaryWindow is how many recent samples feed each average.
	summaryWindow = 100
)

type durationSample struct {
	Seconds float64
	At      time.Time
}

// ErrorRecord is one captured failure, kept in a bounded buffer.
type ErrorRecord struct {
	Type     string    `json:"type"`
	Message  string    `json:"message"`
	Endpoint string    `json:"endpoint,omitempty"`
	At       time.Time `json:"at"`
}

// Collector keeps in-process request/agent/error metrics under a single
// mutex. Every record method is safe on a nil receiver and tolerates
// absent optional fields, so callers never guard their bookkeeping.
type Collector struct {
	mu      sync.Mutex
	enabled bool
	started time.Time

	requestCount     int64
	errorCount       int64
	imageRequests    int64
	rateLimitHits    int64
	crisisDetections int64

	requestDurations *ring[durationSample]
	agentDurations   map[string]*ring[durationSample]
	imageDurations   *ring[durationSample]
	errors           *ring[ErrorRecord]

	intentCounts     map[string]int64
	collectionCounts map[string]int64
	endpointCounts   map[string]int64
	userCounts       map[string]int64
}

// NewCollector creates a collector. A disabled collector accepts all
// record calls and keeps nothing.
func NewCollector(enabled bool) *Collector {
	c := &Collector{enabled: enabled, started: time.Now()}
	c.initBuffers()
	return c
}

func (c *Collector) initBuffers() {
	c.requestDurations = newRing[durationSample](requestBufferCap)
	c.agentDurations = make(map[string]*ring[durationSample])
	c.imageDurations = newRing[durationSample](imageBufferCap)
	c.errors = newRing[ErrorRecord](errorBufferCap)
	c.intentCounts = make(map[string]int64)
	c.collectionCounts = make(map[string]int64)
	c.endpointCounts = make(map[string]int64)
	c.userCounts = make(map[string]int64)
}

func (c *Collector) active() bool { return c != nil && c.enabled }

// RecordRequest notes one handled HTTP request.
func (c *Collector) RecordRequest(endpoint string, duration time.Duration, userID string) {
	if !c.active() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requestCount++
	c.requestDurations.push(durationSample{Seconds: duration.Seconds(), At: time.Now()})
	if endpoint != "" {
		c.endpointCounts[endpoint]++
	}
	if userID != "" {
		c.userCounts[userID]++
	}
}

// RecordAgentResponse notes one agent dispatch.
func (c *Collector) RecordAgentResponse(agent string, duration time.Duration, intent string) {
	if !c.active() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if agent != "" {
		buf, ok := c.agentDurations[agent]
		if !ok {
			buf = newRing[durationSample](agentBufferCap)
			c.agentDurations[agent] = buf
		}
		buf.push(durationSample{Seconds: duration.Seconds(), At: time.Now()})
	}
	if intent != "" {
		c.intentCounts[intent]++
	}
}

// RecordCollectionQuery notes one knowledge-collection lookup.
func (c *Collector) RecordCollectionQuery(collection string) {
	if !c.active() || collection == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collectionCounts[collection]++
}

// RecordError captures a failure into the bounded error buffer.
func (c *Collector) RecordError(errType, message, endpoint string) {
	if !c.active() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.errorCount++
	c.errors.push(ErrorRecord{Type: errType, Message: message, Endpoint: endpoint, At: time.Now()})
}

// RecordImageProcessing notes one image analysis.
func (c *Collector) RecordImageProcessing(duration time.Duration) {
	if !c.active() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.imageRequests++
	c.imageDurations.push(durationSample{Seconds: duration.Seconds(), At: time.Now()})
}

// RecordRateLimitHit notes one rejected request.
func (c *Collector) RecordRateLimitHit(userID string) {
	if !c.active() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rateLimitHits++
	if userID != "" {
		c.userCounts[userID]++
	}
}

// RecordCrisisDetection notes one triggered safety override.
func (c *Collector) RecordCrisisDetection(crisisType string) {
	if !c.active() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.crisisDetections++
	if crisisType != "" {
		c.intentCounts["crisis:"+crisisType]++
	}
}

// Summary is the derived metrics snapshot for the JSON endpoint.
type Summary struct {
	UptimeSeconds    float64            `json:"uptime_seconds"`
	RequestCount     int64              `json:"request_count"`
	ErrorCount       int64              `json:"error_count"`
	ErrorRate        float64            `json:"error_rate"`
	ImageRequests    int64              `json:"image_requests"`
	RateLimitHits    int64              `json:"rate_limit_hits"`
	CrisisDetections int64              `json:"crisis_detections"`
	AvgRequestTime   float64            `json:"avg_request_time_seconds"`
	AvgAgentTime     map[string]float64 `json:"avg_agent_time_seconds"`
	AvgImageTime     float64            `json:"avg_image_time_seconds"`
	IntentCounts     map[string]int64   `json:"intent_distribution"`
	CollectionCounts map[string]int64   `json:"collection_usage"`
	EndpointCounts   map[string]int64   `json:"endpoint_counts"`
	UserCounts       map[string]int64   `json:"top_users"`
	RecentErrors     int                `json:"recent_errors"`
}

// Summarize derives statistics purely from current buffer contents, so
// counters and averages cannot drift apart.
func (c *Collector) Summarize() Summary {
	if !c.active() {
		return Summary{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	agentAvgs := make(map[string]float64, len(c.agentDurations))
	for agent, buf := range c.agentDurations {
		agentAvgs[agent] = avgSeconds(buf.last(summaryWindow))
	}

	return Summary{
		UptimeSeconds:    time.Since(c.started).Seconds(),
		RequestCount:     c.requestCount,
		ErrorCount:       c.errorCount,
		ErrorRate:        float64(c.errorCount) / float64(max64(c.requestCount, 1)),
		ImageRequests:    c.imageRequests,
		RateLimitHits:    c.rateLimitHits,
		CrisisDetections: c.crisisDetections,
		AvgRequestTime:   avgSeconds(c.requestDurations.last(summaryWindow)),
		AvgAgentTime:     agentAvgs,
		AvgImageTime:     avgSeconds(c.imageDurations.last(summaryWindow)),
		IntentCounts:     copyCounts(c.intentCounts),
		CollectionCounts: copyCounts(c.collectionCounts),
		EndpointCounts:   copyCounts(c.endpointCounts),
		UserCounts:       copyCounts(c.userCounts),
		RecentErrors:     c.errors.len(),
	}
}

// RecentErrors returns up to limit most recent error records, oldest
// first.
func (c *Collector) RecentErrors(limit int) []ErrorRecord {
	if !c.active() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if limit <= 0 || limit > errorBufferCap {
		limit = errorBufferCap
	}
	return c.errors.last(limit)
}

// Reset clears all counters and buffers.
func (c *Collector) Reset() {
	if !c.active() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requestCount = 0
	c.errorCount = 0
	c.imageRequests = 0
	c.rateLimitHits = 0
	c.crisisDetections = 0
	c.started = time.Now()
	c.initBuffers()
}

func avgSeconds(samples []durationSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s.Seconds
	}
	return sum / float64(len(samples))
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
