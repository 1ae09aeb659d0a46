package domain

import "time"

// ============================================================
// AI assistant
// ============================================================

// AIQueryRequest is the body for POST /ai/query.
type AIQueryRequest struct {
	Query   string   `json:"query"`
	Context []string `json:"context,omitempty"` // prior turns, oldest first
}

// AIResponse is the backend's answer. Data is opaque to the client.
type AIResponse struct {
	Response        string         `json:"response"`
	Data            map[string]any `json:"data,omitempty"`
	Confidence      *float64       `json:"confidence,omitempty"`
	Suggestions     []string       `json:"suggestions,omitempty"`
	NextAction      string         `json:"next_action,omitempty"`
	ExecutionStatus string         `json:"execution_status,omitempty"`
}

// ChatMessage is one turn of the conversation kept by the client.
type ChatMessage struct {
	Role      string    `json:"role"` // user, assistant
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
