package model

import (
	"time"

	"github.com/google/uuid"
)

// Plan is the complete result of one machining run, ready for a formatter.
type Plan struct {
	ID           string         `json:"id"`
	Board        string         `json:"board"`
	CreatedAt    time.Time      `json:"created_at"`
	What         MachiningWhat  `json:"what"`
	Assignment   ToolAssignment `json:"assignment"`
	RackCapacity int            `json:"rack_capacity"` // 0 = manual change
	Travel       float64        `json:"travel_um"`     // planned XY travel between plunges
	Warnings     []Warning      `json:"warnings,omitempty"`
}

// NewPlan returns an empty plan stamped with a fresh identifier.
func NewPlan(board string, what MachiningWhat) Plan {
	return Plan{
		ID:        uuid.New().String()[:8],
		Board:     board,
		CreatedAt: time.Now().UTC(),
		What:      what,
	}
}

// ToolChanges returns the number of tool loads the program needs.
func (p Plan) ToolChanges() int {
	return len(p.Assignment.Tools)
}
