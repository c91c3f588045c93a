package simulation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/mortgageflow-backend/internal/domain"
	"github.com/simaogato/mortgageflow-backend/internal/metrics"
)

// CreateSimulationInput represents the input for originating a simulation
type CreateSimulationInput struct {
	Name          string
	Principal     decimal.Decimal
	RatePerPeriod decimal.Decimal
	Periods       int
	OtherCosts    decimal.Decimal
}

// RefinanceInput represents the input for refinancing a simulation's loan
type RefinanceInput struct {
	Principal     decimal.Decimal
	RatePerPeriod decimal.Decimal
	Periods       int
	OtherCosts    decimal.Decimal
}

// SimulationState is an immutable snapshot of a simulation's loan state,
// taken under the service lock. Callers outside the service only ever see
// snapshots, never the live loan, so no read can observe a mutation in
// progress.
type SimulationState struct {
	ID             uuid.UUID
	Name           string
	CreatedAt      time.Time
	Period         int
	Principal      decimal.Decimal
	InterestRate   decimal.Decimal
	NominalPayment decimal.Decimal
	Payment        decimal.Decimal
	TotalPaid      decimal.Decimal
	Closed         bool
}

func snapshot(sim *domain.Simulation) SimulationState {
	return SimulationState{
		ID:             sim.ID,
		Name:           sim.Name,
		CreatedAt:      sim.CreatedAt,
		Period:         sim.Loan.Period,
		Principal:      sim.Loan.Principal,
		InterestRate:   sim.Loan.InterestRate,
		NominalPayment: sim.Loan.NominalPayment,
		Payment:        sim.Loan.Payment,
		TotalPaid:      sim.Loan.TotalPaid,
		Closed:         sim.Loan.Closed(),
	}
}

// SimulationService drives loan simulations by ID. A read-write mutex
// serializes every access to the underlying loans: mutations hold the
// write lock, reads hold the read lock, and results cross the boundary as
// SimulationState snapshots or copied schedule entries. Each simulation
// is a single sequential timeline and the engine itself is not safe for
// concurrent use.
type SimulationService struct {
	SimulationRepo domain.SimulationRepository

	mu sync.RWMutex
}

// NewSimulationService creates a new SimulationService instance
func NewSimulationService(repo domain.SimulationRepository) *SimulationService {
	return &SimulationService{
		SimulationRepo: repo,
	}
}

// CreateSimulation originates a new loan and registers it as a simulation.
// The origination event (including any closing costs) is the first record
// in the simulation's schedule.
func (s *SimulationService) CreateSimulation(ctx context.Context, input CreateSimulationInput) (SimulationState, error) {
	if input.Name == "" {
		return SimulationState{}, errors.New("simulation name cannot be empty")
	}
	if input.Principal.LessThanOrEqual(decimal.Zero) {
		return SimulationState{}, errors.New("principal must be positive")
	}
	if input.Periods <= 0 {
		return SimulationState{}, errors.New("periods must be positive")
	}
	if input.OtherCosts.IsNegative() {
		return SimulationState{}, errors.New("other costs cannot be negative")
	}

	loan, err := domain.NewLoan(domain.Terms{
		Principal:     input.Principal,
		RatePerPeriod: input.RatePerPeriod,
		Periods:       input.Periods,
		OtherCosts:    input.OtherCosts,
	})
	if err != nil {
		return SimulationState{}, err
	}

	sim := &domain.Simulation{
		ID:        uuid.New(),
		Name:      input.Name,
		CreatedAt: time.Now(),
		Loan:      loan,
	}

	// The simulation is shared as soon as it is registered, so the
	// snapshot is taken under the same lock.
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.SimulationRepo.Create(ctx, sim); err != nil {
		return SimulationState{}, err
	}

	metrics.SimulationsCreated.Inc()
	return snapshot(sim), nil
}

// GetSimulation retrieves a snapshot of a simulation by ID
func (s *SimulationService) GetSimulation(ctx context.Context, id uuid.UUID) (SimulationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sim, err := s.SimulationRepo.GetByID(ctx, id)
	if err != nil {
		return SimulationState{}, err
	}
	return snapshot(sim), nil
}

// ListSimulations retrieves snapshots of all simulations in creation order
func (s *SimulationService) ListSimulations(ctx context.Context) ([]SimulationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sims, err := s.SimulationRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	states := make([]SimulationState, 0, len(sims))
	for _, sim := range sims {
		states = append(states, snapshot(sim))
	}
	return states, nil
}

// DeleteSimulation discards a simulation and its schedule
func (s *SimulationService) DeleteSimulation(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.SimulationRepo.Delete(ctx, id)
}

// Advance runs a simulation's loan forward. With periods set, it advances
// exactly that many periods, stopping early if the loan closes. With
// periods nil, it runs until payoff; this fails with
// domain.ErrNonTerminatingSchedule when the standing payment cannot cover
// accruing interest.
func (s *SimulationService) Advance(ctx context.Context, id uuid.UUID, periods *int) (SimulationState, error) {
	if periods != nil && *periods < 0 {
		return SimulationState{}, errors.New("periods cannot be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sim, err := s.SimulationRepo.GetByID(ctx, id)
	if err != nil {
		return SimulationState{}, err
	}

	before := sim.Loan.Period
	if periods == nil {
		if err := sim.Loan.AdvanceToPayoff(); err != nil {
			return SimulationState{}, err
		}
	} else {
		sim.Loan.Advance(*periods)
	}

	metrics.PeriodsAdvanced.Add(float64(sim.Loan.Period - before))
	return snapshot(sim), nil
}

// Refinance replaces the simulation's loan terms in place, preserving the
// elapsed period count, the cumulative total paid, and the schedule.
func (s *SimulationService) Refinance(ctx context.Context, id uuid.UUID, input RefinanceInput) (SimulationState, error) {
	if input.Principal.LessThanOrEqual(decimal.Zero) {
		return SimulationState{}, errors.New("principal must be positive")
	}
	if input.Periods <= 0 {
		return SimulationState{}, errors.New("periods must be positive")
	}
	if input.OtherCosts.IsNegative() {
		return SimulationState{}, errors.New("other costs cannot be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sim, err := s.SimulationRepo.GetByID(ctx, id)
	if err != nil {
		return SimulationState{}, err
	}

	if err := sim.Loan.Refinance(domain.Terms{
		Principal:     input.Principal,
		RatePerPeriod: input.RatePerPeriod,
		Periods:       input.Periods,
		OtherCosts:    input.OtherCosts,
	}); err != nil {
		return SimulationState{}, err
	}

	metrics.Refinances.Inc()
	return snapshot(sim), nil
}

// PayExtraOnce applies a one-time extra principal payment in the current
// period. Amounts beyond the remaining balance are clamped, not rejected.
func (s *SimulationService) PayExtraOnce(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (SimulationState, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return SimulationState{}, errors.New("amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sim, err := s.SimulationRepo.GetByID(ctx, id)
	if err != nil {
		return SimulationState{}, err
	}

	sim.Loan.PayExtraOnce(amount)
	metrics.ExtraPayments.WithLabelValues("one_time").Inc()
	return snapshot(sim), nil
}

// SetRecurringExtra sets the standing extra principal paid each period on
// top of the nominal payment. The amount replaces any previous extra; zero
// restores the nominal payment.
func (s *SimulationService) SetRecurringExtra(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (SimulationState, error) {
	if amount.IsNegative() {
		return SimulationState{}, errors.New("amount cannot be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sim, err := s.SimulationRepo.GetByID(ctx, id)
	if err != nil {
		return SimulationState{}, err
	}

	sim.Loan.SetRecurringExtra(amount)
	metrics.ExtraPayments.WithLabelValues("recurring").Inc()
	return snapshot(sim), nil
}

// PayOtherCosts records a one-time fee in the current period without
// touching the principal.
func (s *SimulationService) PayOtherCosts(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (SimulationState, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return SimulationState{}, errors.New("amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sim, err := s.SimulationRepo.GetByID(ctx, id)
	if err != nil {
		return SimulationState{}, err
	}

	sim.Loan.PayOtherCosts(amount)
	metrics.ExtraPayments.WithLabelValues("other_costs").Inc()
	return snapshot(sim), nil
}

// GetSchedule returns a copy of the simulation's payment schedule, taken
// under the read lock.
func (s *SimulationService) GetSchedule(ctx context.Context, id uuid.UUID) ([]domain.ScheduleEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sim, err := s.SimulationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sim.Loan.Schedule().Entries(), nil
}

// RenderSchedule returns the simulation's payment schedule as a formatted
// plain-text table.
func (s *SimulationService) RenderSchedule(ctx context.Context, id uuid.UUID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sim, err := s.SimulationRepo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return sim.Loan.RenderSchedule(), nil
}
