// Package http exposes the simulation service over a JSON REST API.
//
// Monetary fields use shopspring/decimal end to end: request bodies may
// carry amounts as JSON numbers or strings, and both are parsed as decimal
// text, so binary floating point never enters the system.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/mortgageflow-backend/internal/domain"
	"github.com/simaogato/mortgageflow-backend/internal/usecase/simulation"
)

// Server holds the HTTP handlers for the simulation API
type Server struct {
	SimulationService *simulation.SimulationService
}

// NewServer creates a new HTTP server instance
func NewServer(simulationService *simulation.SimulationService) *Server {
	return &Server{
		SimulationService: simulationService,
	}
}

// RegisterRoutes mounts the simulation API on the given router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/simulations", func(r chi.Router) {
		r.Post("/", s.CreateSimulation)
		r.Get("/", s.ListSimulations)

		r.Route("/{simulationID}", func(r chi.Router) {
			r.Get("/", s.GetSimulation)
			r.Delete("/", s.DeleteSimulation)
			r.Get("/schedule", s.GetSchedule)
			r.Post("/advance", s.Advance)
			r.Post("/refinance", s.Refinance)
			r.Post("/payments/extra", s.PayExtraOnce)
			r.Put("/payments/recurring-extra", s.SetRecurringExtra)
			r.Post("/payments/other-costs", s.PayOtherCosts)
		})
	})
}

// --- Request/Response types ---

// CreateSimulationRequest is the JSON body for POST /simulations.
type CreateSimulationRequest struct {
	Name          string          `json:"name"`
	Principal     decimal.Decimal `json:"principal"`
	RatePerPeriod decimal.Decimal `json:"rate_per_period"`
	Periods       int             `json:"periods"`
	OtherCosts    decimal.Decimal `json:"other_costs"`
}

// RefinanceRequest is the JSON body for POST /simulations/{id}/refinance.
type RefinanceRequest struct {
	Principal     decimal.Decimal `json:"principal"`
	RatePerPeriod decimal.Decimal `json:"rate_per_period"`
	Periods       int             `json:"periods"`
	OtherCosts    decimal.Decimal `json:"other_costs"`
}

// AdvanceRequest is the JSON body for POST /simulations/{id}/advance.
// A nil Periods means "run until the loan closes".
type AdvanceRequest struct {
	Periods *int `json:"periods"`
}

// AmountRequest is the JSON body for the payment adjustment endpoints.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// SimulationResponse is the JSON view of a simulation's loan state.
type SimulationResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Period         int             `json:"period"`
	Principal      decimal.Decimal `json:"principal"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	NominalPayment decimal.Decimal `json:"nominal_payment"`
	Payment        decimal.Decimal `json:"payment"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	Closed         bool            `json:"closed"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ScheduleEntryResponse is the JSON view of one payment record.
type ScheduleEntryResponse struct {
	Period        int             `json:"period"`
	Principal     decimal.Decimal `json:"principal"`
	PrincipalPaid decimal.Decimal `json:"principal_paid"`
	InterestPaid  decimal.Decimal `json:"interest_paid"`
	OtherCosts    decimal.Decimal `json:"other_costs"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
}

// ScheduleResponse is the JSON body for GET /simulations/{id}/schedule.
type ScheduleResponse struct {
	SimulationID string                  `json:"simulation_id"`
	Entries      []ScheduleEntryResponse `json:"entries"`
}

func simulationToResponse(sim simulation.SimulationState) SimulationResponse {
	return SimulationResponse{
		ID:             sim.ID.String(),
		Name:           sim.Name,
		Period:         sim.Period,
		Principal:      sim.Principal,
		InterestRate:   sim.InterestRate,
		NominalPayment: sim.NominalPayment,
		Payment:        sim.Payment,
		TotalPaid:      sim.TotalPaid,
		Closed:         sim.Closed,
		CreatedAt:      sim.CreatedAt,
	}
}

// --- Handlers ---

// CreateSimulation handles POST /simulations
func (s *Server) CreateSimulation(w http.ResponseWriter, r *http.Request) {
	var req CreateSimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sim, err := s.SimulationService.CreateSimulation(r.Context(), simulation.CreateSimulationInput{
		Name:          req.Name,
		Principal:     req.Principal,
		RatePerPeriod: req.RatePerPeriod,
		Periods:       req.Periods,
		OtherCosts:    req.OtherCosts,
	})
	if err != nil {
		mapServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, simulationToResponse(sim))
}

// ListSimulations handles GET /simulations
func (s *Server) ListSimulations(w http.ResponseWriter, r *http.Request) {
	sims, err := s.SimulationService.ListSimulations(r.Context())
	if err != nil {
		mapServiceError(w, err)
		return
	}

	resp := make([]SimulationResponse, 0, len(sims))
	for _, sim := range sims {
		resp = append(resp, simulationToResponse(sim))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetSimulation handles GET /simulations/{simulationID}
func (s *Server) GetSimulation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSimulationID(w, r)
	if !ok {
		return
	}

	sim, err := s.SimulationService.GetSimulation(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, simulationToResponse(sim))
}

// DeleteSimulation handles DELETE /simulations/{simulationID}
func (s *Server) DeleteSimulation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSimulationID(w, r)
	if !ok {
		return
	}

	if err := s.SimulationService.DeleteSimulation(r.Context(), id); err != nil {
		mapServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSchedule handles GET /simulations/{simulationID}/schedule
// With ?format=table (or an Accept: text/plain header) it returns the
// rendered plain-text table instead of JSON.
func (s *Server) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSimulationID(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("format") == "table" || r.Header.Get("Accept") == "text/plain" {
		table, err := s.SimulationService.RenderSchedule(r.Context(), id)
		if err != nil {
			mapServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(table + "\n"))
		return
	}

	entries, err := s.SimulationService.GetSchedule(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}

	resp := ScheduleResponse{
		SimulationID: id.String(),
		Entries:      make([]ScheduleEntryResponse, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, ScheduleEntryResponse{
			Period:        e.Period,
			Principal:     e.Record.PrincipalRemaining,
			PrincipalPaid: e.Record.PrincipalPaid,
			InterestPaid:  e.Record.InterestPaid,
			OtherCosts:    e.Record.OtherCosts,
			TotalPaid:     e.Record.TotalPaidCumulative,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Advance handles POST /simulations/{simulationID}/advance
func (s *Server) Advance(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSimulationID(w, r)
	if !ok {
		return
	}

	// An empty body means "advance until payoff".
	req := AdvanceRequest{}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	sim, err := s.SimulationService.Advance(r.Context(), id, req.Periods)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, simulationToResponse(sim))
}

// Refinance handles POST /simulations/{simulationID}/refinance
func (s *Server) Refinance(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSimulationID(w, r)
	if !ok {
		return
	}

	var req RefinanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sim, err := s.SimulationService.Refinance(r.Context(), id, simulation.RefinanceInput{
		Principal:     req.Principal,
		RatePerPeriod: req.RatePerPeriod,
		Periods:       req.Periods,
		OtherCosts:    req.OtherCosts,
	})
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, simulationToResponse(sim))
}

// PayExtraOnce handles POST /simulations/{simulationID}/payments/extra
func (s *Server) PayExtraOnce(w http.ResponseWriter, r *http.Request) {
	s.amountOperation(w, r, s.SimulationService.PayExtraOnce)
}

// SetRecurringExtra handles PUT /simulations/{simulationID}/payments/recurring-extra
func (s *Server) SetRecurringExtra(w http.ResponseWriter, r *http.Request) {
	s.amountOperation(w, r, s.SimulationService.SetRecurringExtra)
}

// PayOtherCosts handles POST /simulations/{simulationID}/payments/other-costs
func (s *Server) PayOtherCosts(w http.ResponseWriter, r *http.Request) {
	s.amountOperation(w, r, s.SimulationService.PayOtherCosts)
}

// amountOperation decodes an AmountRequest and applies one of the
// single-amount service operations.
func (s *Server) amountOperation(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (simulation.SimulationState, error),
) {
	id, ok := parseSimulationID(w, r)
	if !ok {
		return
	}

	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sim, err := op(r.Context(), id, req.Amount)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, simulationToResponse(sim))
}

// --- Helpers ---

func parseSimulationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "simulationID"))
	if err != nil {
		writeError(w, "invalid simulation ID", http.StatusBadRequest)
		return uuid.UUID{}, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// mapServiceError converts service and domain errors to HTTP status codes
func mapServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSimulationNotFound):
		writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidTerms):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNonTerminatingSchedule):
		writeError(w, err.Error(), http.StatusConflict)
	case strings.Contains(err.Error(), "must be") ||
		strings.Contains(err.Error(), "cannot be"):
		writeError(w, err.Error(), http.StatusBadRequest)
	default:
		writeError(w, err.Error(), http.StatusInternalServerError)
	}
}
