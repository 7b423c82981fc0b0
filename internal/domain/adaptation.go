package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventSeverity string

const (
	SeverityInfo      EventSeverity = "info"
	SeverityWarning   EventSeverity = "warning"
	SeverityCritical  EventSeverity = "critical"
	SeverityEmergency EventSeverity = "emergency"
)

// AdaptationEvent classifies what kind of correction an expert needs. The
// engine only raises these; acting on them belongs to the prediction provider.
type AdaptationEvent struct {
	ID        uuid.UUID     `json:"id"`
	ExpertID  uuid.UUID     `json:"expert_id"`
	Category  string        `json:"category,omitempty"`
	Severity  EventSeverity `json:"severity"`
	Kind      string        `json:"kind"`
	Message   string        `json:"message"`
	CreatedAt time.Time     `json:"created_at"`
}
