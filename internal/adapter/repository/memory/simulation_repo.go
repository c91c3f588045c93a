// Package memory provides the in-memory SimulationRepository. Simulations
// are live in-process objects; there is no durable backend.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/simaogato/mortgageflow-backend/internal/domain"
)

// SimulationRepository keeps simulations in a mutex-guarded map. The lock
// covers only the registry; mutation of an individual loan timeline is
// serialized by the usecase layer.
type SimulationRepository struct {
	mu    sync.RWMutex
	sims  map[uuid.UUID]*domain.Simulation
	order []uuid.UUID
}

// NewSimulationRepository creates an empty in-memory repository.
func NewSimulationRepository() *SimulationRepository {
	return &SimulationRepository{
		sims: make(map[uuid.UUID]*domain.Simulation),
	}
}

func (r *SimulationRepository) Create(_ context.Context, sim *domain.Simulation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sims[sim.ID]; exists {
		return fmt.Errorf("simulation %s already exists", sim.ID)
	}
	r.sims[sim.ID] = sim
	r.order = append(r.order, sim.ID)
	return nil
}

func (r *SimulationRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Simulation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sim, ok := r.sims[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSimulationNotFound, id)
	}
	return sim, nil
}

func (r *SimulationRepository) List(_ context.Context) ([]*domain.Simulation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sims := make([]*domain.Simulation, 0, len(r.order))
	for _, id := range r.order {
		sims = append(sims, r.sims[id])
	}
	return sims, nil
}

func (r *SimulationRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sims[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrSimulationNotFound, id)
	}
	delete(r.sims, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
