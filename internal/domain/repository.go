package domain

import (
	"context"

	"github.com/google/uuid"
)

// SimulationRepository defines the interface for the simulation registry
type SimulationRepository interface {
	// Create registers a new simulation
	Create(ctx context.Context, sim *Simulation) error

	// GetByID retrieves a simulation by its ID
	// Returns ErrSimulationNotFound if no simulation exists for the ID
	GetByID(ctx context.Context, id uuid.UUID) (*Simulation, error)

	// List retrieves all registered simulations in creation order
	List(ctx context.Context) ([]*Simulation, error)

	// Delete discards a simulation and its schedule
	// Returns ErrSimulationNotFound if no simulation exists for the ID
	Delete(ctx context.Context, id uuid.UUID) error
}
