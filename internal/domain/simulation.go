package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrSimulationNotFound is returned when no simulation exists for an ID.
var ErrSimulationNotFound = errors.New("simulation not found")

// Simulation is one independent what-if financing timeline: a loan engine
// together with its payment schedule, addressable by ID.
type Simulation struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	Loan      *Loan
}
