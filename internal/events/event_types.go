package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCaseCreated     EventType = "case_created"
	EventCaseDeleted     EventType = "case_deleted"
	EventStageCompleted  EventType = "stage_completed"
	EventStageFailed     EventType = "stage_failed"
	EventLetterGenerated EventType = "letter_generated"
)

// Stage names used in stage events.
const (
	StageExtraction = "extraction"
	StageAnalysis   = "analysis"
	StageDrafting   = "drafting"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	CaseID    string      `json:"case_id"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// CaseCreatedPayload payload.
type CaseCreatedPayload struct {
	Language string `json:"language"`
}

// StageCompletedPayload payload.
type StageCompletedPayload struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// StageFailedPayload payload.
type StageFailedPayload struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error"`
}

// LetterGeneratedPayload payload.
type LetterGeneratedPayload struct {
	Language    string `json:"language"`
	LetterChars int    `json:"letter_chars"`
}
