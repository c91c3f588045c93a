package simulation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/mortgageflow-backend/internal/adapter/repository/memory"
	"github.com/simaogato/mortgageflow-backend/internal/domain"
)

// MockSimulationRepository is a mock implementation of SimulationRepository for testing
type MockSimulationRepository struct {
	mock.Mock
}

func (m *MockSimulationRepository) Create(ctx context.Context, sim *domain.Simulation) error {
	args := m.Called(ctx, sim)
	return args.Error(0)
}

func (m *MockSimulationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Simulation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Simulation), args.Error(1)
}

func (m *MockSimulationRepository) List(ctx context.Context) ([]*domain.Simulation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Simulation), args.Error(1)
}

func (m *MockSimulationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func monthlyRate(annual string) decimal.Decimal {
	return decimal.RequireFromString(annual).Div(decimal.NewFromInt(12))
}

func seededSimulation(t *testing.T) *domain.Simulation {
	t.Helper()
	loan, err := domain.NewLoan(domain.Terms{
		Principal:     decimal.NewFromInt(300_000),
		RatePerPeriod: monthlyRate("0.04"),
		Periods:       60,
	})
	require.NoError(t, err)
	return &domain.Simulation{
		ID:        uuid.New(),
		Name:      "baseline",
		CreatedAt: time.Now(),
		Loan:      loan,
	}
}

func TestCreateSimulation(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockSimulationRepository)
	service := NewSimulationService(mockRepo)

	mockRepo.On("Create", ctx, mock.MatchedBy(func(sim *domain.Simulation) bool {
		return sim.Name == "baseline" &&
			sim.Loan != nil &&
			sim.Loan.NominalPayment.StringFixed(2) == "5524.96" &&
			sim.Loan.Schedule().Len() == 1
	})).Return(nil)

	sim, err := service.CreateSimulation(ctx, CreateSimulationInput{
		Name:          "baseline",
		Principal:     decimal.NewFromInt(300_000),
		RatePerPeriod: monthlyRate("0.04"),
		Periods:       60,
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, sim.ID)
	assert.Equal(t, 0, sim.Period)
	assert.Equal(t, "5524.96", sim.NominalPayment.StringFixed(2))
	mockRepo.AssertExpectations(t)
}

func TestCreateSimulation_Validation(t *testing.T) {
	ctx := context.Background()
	service := NewSimulationService(new(MockSimulationRepository))

	tests := []struct {
		name   string
		input  CreateSimulationInput
		errMsg string
	}{
		{
			name: "empty name",
			input: CreateSimulationInput{
				Principal:     decimal.NewFromInt(1000),
				RatePerPeriod: decimal.RequireFromString("0.01"),
				Periods:       12,
			},
			errMsg: "simulation name cannot be empty",
		},
		{
			name: "non-positive principal",
			input: CreateSimulationInput{
				Name:          "bad",
				Principal:     decimal.Zero,
				RatePerPeriod: decimal.RequireFromString("0.01"),
				Periods:       12,
			},
			errMsg: "principal must be positive",
		},
		{
			name: "non-positive periods",
			input: CreateSimulationInput{
				Name:          "bad",
				Principal:     decimal.NewFromInt(1000),
				RatePerPeriod: decimal.RequireFromString("0.01"),
			},
			errMsg: "periods must be positive",
		},
		{
			name: "negative other costs",
			input: CreateSimulationInput{
				Name:          "bad",
				Principal:     decimal.NewFromInt(1000),
				RatePerPeriod: decimal.RequireFromString("0.01"),
				Periods:       12,
				OtherCosts:    decimal.NewFromInt(-1),
			},
			errMsg: "other costs cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.CreateSimulation(ctx, tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.errMsg, err.Error())
		})
	}
}

func TestCreateSimulation_ZeroRate(t *testing.T) {
	ctx := context.Background()
	service := NewSimulationService(new(MockSimulationRepository))

	_, err := service.CreateSimulation(ctx, CreateSimulationInput{
		Name:          "degenerate",
		Principal:     decimal.NewFromInt(1000),
		RatePerPeriod: decimal.Zero,
		Periods:       12,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTerms)
}

func TestAdvance_FixedPeriods(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockSimulationRepository)
	service := NewSimulationService(mockRepo)

	sim := seededSimulation(t)
	mockRepo.On("GetByID", ctx, sim.ID).Return(sim, nil)

	periods := 12
	got, err := service.Advance(ctx, sim.ID, &periods)

	require.NoError(t, err)
	assert.Equal(t, 12, got.Period)
	assert.Equal(t, "244693.85", got.Principal.StringFixed(2))
	mockRepo.AssertExpectations(t)
}

func TestAdvance_UntilPayoff(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockSimulationRepository)
	service := NewSimulationService(mockRepo)

	sim := seededSimulation(t)
	mockRepo.On("GetByID", ctx, sim.ID).Return(sim, nil)

	got, err := service.Advance(ctx, sim.ID, nil)

	require.NoError(t, err)
	assert.True(t, got.Closed)
	assert.Equal(t, 60, got.Period)
}

func TestAdvance_NegativePeriods(t *testing.T) {
	ctx := context.Background()
	service := NewSimulationService(new(MockSimulationRepository))

	periods := -1
	_, err := service.Advance(ctx, uuid.New(), &periods)
	require.Error(t, err)
	assert.Equal(t, "periods cannot be negative", err.Error())
}

func TestAdvance_NonTerminating(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockSimulationRepository)
	service := NewSimulationService(mockRepo)

	sim := seededSimulation(t)
	// Push the standing payment below the accruing interest.
	sim.Loan.SetRecurringExtra(decimal.NewFromInt(-5_000))
	mockRepo.On("GetByID", ctx, sim.ID).Return(sim, nil)

	_, err := service.Advance(ctx, sim.ID, nil)
	assert.ErrorIs(t, err, domain.ErrNonTerminatingSchedule)
}

func TestAdvance_NotFound(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockSimulationRepository)
	service := NewSimulationService(mockRepo)

	id := uuid.New()
	mockRepo.On("GetByID", ctx, id).Return(nil, domain.ErrSimulationNotFound)

	_, err := service.Advance(ctx, id, nil)
	assert.ErrorIs(t, err, domain.ErrSimulationNotFound)
}

func TestRefinance(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockSimulationRepository)
	service := NewSimulationService(mockRepo)

	sim := seededSimulation(t)
	sim.Loan.Advance(12)
	mockRepo.On("GetByID", ctx, sim.ID).Return(sim, nil)

	got, err := service.Refinance(ctx, sim.ID, RefinanceInput{
		Principal:     decimal.NewFromInt(245_000),
		RatePerPeriod: monthlyRate("0.03"),
		Periods:       60,
		OtherCosts:    decimal.NewFromInt(2_000),
	})

	require.NoError(t, err)
	assert.Equal(t, 12, got.Period)
	assert.Equal(t, "245000.00", got.Principal.StringFixed(2))
	assert.Equal(t, "4402.33", got.Payment.StringFixed(2))
}

func TestPayExtraOnce_Validation(t *testing.T) {
	ctx := context.Background()
	service := NewSimulationService(new(MockSimulationRepository))

	_, err := service.PayExtraOnce(ctx, uuid.New(), decimal.Zero)
	require.Error(t, err)
	assert.Equal(t, "amount must be positive", err.Error())
}

func TestSetRecurringExtra_ZeroClearsExtra(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockSimulationRepository)
	service := NewSimulationService(mockRepo)

	sim := seededSimulation(t)
	mockRepo.On("GetByID", ctx, sim.ID).Return(sim, nil)

	got, err := service.SetRecurringExtra(ctx, sim.ID, decimal.NewFromInt(3_000))
	require.NoError(t, err)
	assert.Equal(t, "8524.96", got.Payment.StringFixed(2))

	got, err = service.SetRecurringExtra(ctx, sim.ID, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "5524.96", got.Payment.StringFixed(2))

	_, err = service.SetRecurringExtra(ctx, sim.ID, decimal.NewFromInt(-1))
	require.Error(t, err)
	assert.Equal(t, "amount cannot be negative", err.Error())
}

func TestRenderSchedule(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockSimulationRepository)
	service := NewSimulationService(mockRepo)

	sim := seededSimulation(t)
	sim.Loan.Advance(1)
	mockRepo.On("GetByID", ctx, sim.ID).Return(sim, nil)

	table, err := service.RenderSchedule(ctx, sim.ID)
	require.NoError(t, err)
	assert.Contains(t, table, "period | principal | principal paid")
	assert.Contains(t, table, "4524.96")
}

func TestGetSchedule(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockSimulationRepository)
	service := NewSimulationService(mockRepo)

	sim := seededSimulation(t)
	sim.Loan.Advance(2)
	mockRepo.On("GetByID", ctx, sim.ID).Return(sim, nil)

	entries, err := service.GetSchedule(ctx, sim.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "4524.96", entries[1].Record.PrincipalPaid.StringFixed(2))
}

// TestConcurrentAdvanceAndRead advances a simulation while other goroutines
// read its state, schedule, and rendered table through the service. Every
// read must observe a consistent snapshot; run with -race.
func TestConcurrentAdvanceAndRead(t *testing.T) {
	ctx := context.Background()
	service := NewSimulationService(memory.NewSimulationRepository())

	sim, err := service.CreateSimulation(ctx, CreateSimulationInput{
		Name:          "baseline",
		Principal:     decimal.NewFromInt(300_000),
		RatePerPeriod: monthlyRate("0.04"),
		Periods:       60,
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 60; i++ {
			periods := 1
			_, err := service.Advance(ctx, sim.ID, &periods)
			assert.NoError(t, err)
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 60; i++ {
			st, err := service.GetSimulation(ctx, sim.ID)
			assert.NoError(t, err)
			// TotalPaid only ever grows.
			assert.False(t, st.TotalPaid.IsNegative())

			entries, err := service.GetSchedule(ctx, sim.ID)
			assert.NoError(t, err)
			assert.NotEmpty(t, entries)

			_, err = service.RenderSchedule(ctx, sim.ID)
			assert.NoError(t, err)
		}
	}()

	wg.Wait()

	final, err := service.GetSimulation(ctx, sim.ID)
	require.NoError(t, err)
	assert.True(t, final.Closed)
	assert.Equal(t, 60, final.Period)
	assert.Equal(t, "331497.40", final.TotalPaid.StringFixed(2))
}
