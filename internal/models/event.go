// Package models defines the records persisted by the demo chat server.
package models

import (
	"encoding/json"
	"time"
)

// EventType categorizes events in the log.
type EventType string

const (
	EventTypeQuestionReceived EventType = "chat.question"
	EventTypeAnswerSent       EventType = "chat.answered"
	EventTypeInputRejected    EventType = "chat.rejected"
	EventTypeRateLimited      EventType = "chat.rate_limited"
)

// Event is an append-only log entry keyed by client.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`

	// ClientID is the rate-limit key of the caller, usually its IP.
	ClientID string `json:"client_id"`

	Payload  json.RawMessage   `json:"payload,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// QuestionPayload is recorded for chat.question events.
type QuestionPayload struct {
	Question string `json:"question"`
	Language string `json:"language,omitempty"`
}

// AnswerPayload is recorded for chat.answered events.
type AnswerPayload struct {
	Sources        []string `json:"sources,omitempty"`
	ProcessingTime float64  `json:"processing_time"`
	Warnings       []string `json:"warnings,omitempty"`
}

// RejectionPayload is recorded for chat.rejected events.
type RejectionPayload struct {
	Issues    []string `json:"issues"`
	RiskLevel string   `json:"risk_level"`
}
