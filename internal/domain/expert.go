package domain

import (
	"time"

	"github.com/google/uuid"
)

type ExpertStatus string

const (
	StatusProvisional   ExpertStatus = "provisional"
	StatusActive        ExpertStatus = "active"
	StatusCouncilMember ExpertStatus = "council_member"
	StatusSuspended     ExpertStatus = "suspended"
)

func ValidExpertStatus(s string) bool {
	switch ExpertStatus(s) {
	case StatusProvisional, StatusActive, StatusCouncilMember, StatusSuspended:
		return true
	}
	return false
}

// Eligible reports whether an expert in this status may hold a council seat
// outright. Provisional experts are only drafted into degraded councils.
func (s ExpertStatus) Eligible() bool {
	return s == StatusActive || s == StatusCouncilMember
}

type Expert struct {
	ID              uuid.UUID    `json:"id"`
	Name            string       `json:"name"`
	Specialties     []string     `json:"specialties,omitempty"`
	Status          ExpertStatus `json:"status"`
	CurrentRank     int          `json:"current_rank"`
	CouncilPosition *int         `json:"council_position,omitempty"`
	SuspendedAt     *time.Time   `json:"suspended_at,omitempty"`
	ReinstateAfter  *time.Time   `json:"reinstate_after,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// CategoryAccuracy is a per-category correctness counter pair.
type CategoryAccuracy struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

func (c CategoryAccuracy) Accuracy() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Correct) / float64(c.Total)
}

// Profile is the read-side view of an expert's performance. It is derived
// entirely from resolved prediction records; nothing mutates through it.
type Profile struct {
	ExpertID         uuid.UUID                   `json:"expert_id"`
	Status           ExpertStatus                `json:"status"`
	TotalResolved    int                         `json:"total_resolved"`
	OverallAccuracy  float64                     `json:"overall_accuracy"`
	RecentAccuracy   float64                     `json:"recent_accuracy"`
	CalibrationScore float64                     `json:"calibration_score"`
	ByCategory       map[string]CategoryAccuracy `json:"by_category"`
	Provisional      bool                        `json:"provisional"`
}
