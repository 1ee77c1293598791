package domain

// ResponseType classifies an agent answer for the client UI.
type ResponseType string

const (
	ResponseAnswer        ResponseType = "answer"
	ResponseNoInformation ResponseType = "no_information"
	ResponseCrisis        ResponseType = "crisis"
	ResponseEmergency     ResponseType = "emergency"
	ResponseConversation  ResponseType = "conversation"
	ResponseError         ResponseType = "error"
)

// Source identifies a knowledge chunk that grounded an answer.
type Source struct {
	Label      string  `json:"source"`
	Collection string  `json:"collection"`
	Relevance  float64 `json:"relevance"`
}

// FollowUp is a structured option a client UI may render as a button;
// the Value token is accepted by the state machine in place of free text.
type FollowUp struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// AgentResponse is what every handler returns. Answer is always safe to
// show the user: upstream failures are replaced by fixed fallback text
// before a response is built.
type AgentResponse struct {
	Agent          string         `json:"agent"`
	Type           ResponseType   `json:"response_type"`
	Answer         string         `json:"answer"`
	Sources        []Source       `json:"sources"`
	FollowUps      []FollowUp     `json:"follow_ups,omitempty"`
	CrisisDetected bool           `json:"crisis_detected"`
	CrisisType     string         `json:"crisis_type,omitempty"`
	State          *StateSnapshot `json:"conversation_state,omitempty"`
}
