package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActionItem is a task extracted from a meeting.
type ActionItem struct {
	Task       string `json:"task"`
	AssignedTo string `json:"assignedTo,omitempty"`
	DueDate    string `json:"dueDate,omitempty"`
	Status     string `json:"status,omitempty"`
}

// Notes is the stored result of an AI processing run.
type Notes struct {
	ID              uuid.UUID
	VideoID         uuid.UUID
	UserID          uuid.UUID
	Transcript      string
	Summary         string
	ActionItems     []ActionItem
	ReducedAccuracy bool
	CreatedAt       time.Time
}

// ProcessParams asks for one AI processing run.
type ProcessParams struct {
	UserID  uuid.UUID
	VideoID uuid.UUID
	// AcceptReducedAccuracy is the caller's consent to run in overdraft.
	AcceptReducedAccuracy bool
}
