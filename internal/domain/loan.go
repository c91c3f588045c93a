package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidTerms is returned when loan terms make the amortization
	// formula's denominator zero (e.g. a zero interest rate).
	ErrInvalidTerms = errors.New("invalid loan terms: amortization denominator is zero")

	// ErrNonTerminatingSchedule is returned by AdvanceToPayoff when the
	// standing payment cannot cover the interest accruing each period, so
	// the principal would never reach zero.
	ErrNonTerminatingSchedule = errors.New("payment does not cover accruing interest: schedule never closes")
)

// Terms are the parameters of a loan: the amount borrowed, the interest
// rate charged per period, the number of periods the fixed payment is
// computed over, and any one-time fee (e.g. closing costs) due at setup.
type Terms struct {
	Principal     decimal.Decimal
	RatePerPeriod decimal.Decimal
	Periods       int
	OtherCosts    decimal.Decimal
}

// Loan is a stateful mortgage engine. It owns the current loan state and
// the payment Schedule; every mutating operation appends records there.
//
// A loan is "closed" once Principal reaches exactly zero. All operations
// remain callable on a closed loan; payments clamp to the remaining
// balance, so their financial effect is nil.
//
// A Loan is a single sequential timeline and is not safe for concurrent
// use; callers own serialization.
type Loan struct {
	Period         int             // periods elapsed since original origination; never reset
	Principal      decimal.Decimal // outstanding balance, cent-rounded, >= 0
	InterestRate   decimal.Decimal // rate charged per period under current terms
	NominalPayment decimal.Decimal // fixed payment from current terms
	Payment        decimal.Decimal // actual per-period payment (nominal + recurring extra)
	TotalPaid      decimal.Decimal // everything paid since origination, across refinances

	schedule *Schedule
}

// NewLoan originates a loan with the given terms and records the
// origination event in a fresh schedule. Returns ErrInvalidTerms for
// degenerate terms (zero-rate loans are not supported).
func NewLoan(terms Terms) (*Loan, error) {
	l := &Loan{schedule: NewSchedule()}
	if err := l.setup(terms); err != nil {
		return nil, err
	}
	return l, nil
}

// setup installs new loan terms. Shared by NewLoan and Refinance.
// Validate-then-commit: the nominal payment is computed before any state
// is touched, so a failed setup leaves the loan unchanged.
func (l *Loan) setup(terms Terms) error {
	principal := terms.Principal.Round(2)
	nominal, err := PaymentPerPeriod(principal, terms.RatePerPeriod, terms.Periods)
	if err != nil {
		return err
	}

	l.Principal = principal
	l.InterestRate = terms.RatePerPeriod
	l.NominalPayment = nominal
	l.Payment = nominal
	// Fees add to the running total but never reduce principal.
	l.TotalPaid = l.TotalPaid.Add(terms.OtherCosts)
	l.record(decimal.Zero, decimal.Zero, terms.OtherCosts)
	return nil
}

// PaymentPerPeriod computes the fixed payment that fully amortizes
// principal p at rate r over n periods:
//
//	p * r * (1+r)^n / ((1+r)^n - 1)
//
// The result is rounded to cents. Returns ErrInvalidTerms when the
// denominator is zero (r == 0 or n == 0).
func PaymentPerPeriod(p, r decimal.Decimal, n int) (decimal.Decimal, error) {
	compound, err := decimal.NewFromInt(1).Add(r).PowInt32(int32(n))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidTerms, err)
	}
	denom := compound.Sub(decimal.NewFromInt(1))
	if denom.IsZero() {
		return decimal.Zero, ErrInvalidTerms
	}
	return p.Mul(r).Mul(compound).Div(denom).Round(2), nil
}

// record appends one entry to the schedule at the current period, with the
// current balance and running total.
func (l *Loan) record(principalPaid, interestPaid, otherCosts decimal.Decimal) {
	l.schedule.Append(l.Period, PaymentRecord{
		PrincipalRemaining:  l.Principal,
		PrincipalPaid:       principalPaid,
		InterestPaid:        interestPaid,
		OtherCosts:          otherCosts,
		TotalPaidCumulative: l.TotalPaid,
	})
}

// step advances the loan by one period, splitting the standing payment
// into interest and principal and recording the result.
func (l *Loan) step() {
	l.Period++
	interest := l.Principal.Mul(l.InterestRate).Round(2)
	// Interest is capped by the payment; a shortfall is not capitalized.
	interestPaid := decimal.Min(interest, l.Payment)
	// Principal is capped by the remaining balance, so the final payment
	// never drives the balance negative.
	principalPaid := decimal.Min(l.Principal, l.Payment.Sub(interestPaid))
	l.Principal = l.Principal.Sub(principalPaid)
	l.TotalPaid = l.TotalPaid.Add(principalPaid).Add(interestPaid)
	l.record(principalPaid, interestPaid, decimal.Zero)
}

// Advance runs the loan for n periods, stopping early if it closes.
// Advance(0) is a no-op. Each period advanced appends one record.
func (l *Loan) Advance(n int) {
	for i := 0; i < n && l.Principal.IsPositive(); i++ {
		l.step()
	}
}

// AdvanceToPayoff runs the loan until the principal reaches exactly zero.
// Before entering the unbounded loop it checks that the standing payment
// exceeds the interest accruing on the current balance; otherwise the
// balance would never shrink and it returns ErrNonTerminatingSchedule.
// Calling this on an already-closed loan is a no-op.
func (l *Loan) AdvanceToPayoff() error {
	if !l.Principal.IsPositive() {
		return nil
	}
	if l.Payment.LessThanOrEqual(l.Principal.Mul(l.InterestRate).Round(2)) {
		return ErrNonTerminatingSchedule
	}
	for l.Principal.IsPositive() {
		l.step()
	}
	return nil
}

// Refinance replaces the remaining loan with a brand-new loan of the given
// terms. Period and TotalPaid carry forward for reporting; the new
// amortization schedule is independent of the old terms. Any recurring
// extra payment is cleared. Returns ErrInvalidTerms with state unchanged
// for degenerate terms.
func (l *Loan) Refinance(terms Terms) error {
	return l.setup(terms)
}

// PayExtraOnce applies a one-time extra principal payment within the
// current period. The amount is clamped to the remaining balance, so
// overpaying closes the loan rather than going negative.
func (l *Loan) PayExtraOnce(amount decimal.Decimal) {
	amount = decimal.Min(amount, l.Principal)
	l.Principal = l.Principal.Sub(amount)
	l.TotalPaid = l.TotalPaid.Add(amount)
	l.record(amount, decimal.Zero, decimal.Zero)
}

// SetRecurringExtra sets the extra principal paid on top of the nominal
// payment from the next period onward. The amount is an absolute override
// of any previously set extra, not an addition to it. Zero restores the
// nominal payment. No schedule record is appended.
func (l *Loan) SetRecurringExtra(amount decimal.Decimal) {
	l.Payment = l.NominalPayment.Add(amount)
}

// PayOtherCosts records a one-time fee in the current period. Fees add to
// the running total but do not touch the principal.
func (l *Loan) PayOtherCosts(amount decimal.Decimal) {
	l.TotalPaid = l.TotalPaid.Add(amount)
	l.record(decimal.Zero, decimal.Zero, amount)
}

// Closed reports whether the principal has been fully paid off.
func (l *Loan) Closed() bool {
	return l.Principal.IsZero()
}

// Schedule returns the loan's payment ledger.
func (l *Loan) Schedule() *Schedule {
	return l.schedule
}

// RenderSchedule formats the payment ledger as a plain-text table.
func (l *Loan) RenderSchedule() string {
	return l.schedule.Render()
}
