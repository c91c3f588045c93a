package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentRecord is an immutable snapshot of one payment event.
// All amounts are cent-rounded decimals.
type PaymentRecord struct {
	PrincipalRemaining  decimal.Decimal // loan balance as of this record
	PrincipalPaid       decimal.Decimal // applied to principal this period
	InterestPaid        decimal.Decimal // applied to interest this period
	OtherCosts          decimal.Decimal // one-time fee applied at this record
	TotalPaidCumulative decimal.Decimal // running sum of everything paid since origination
}

// ScheduleEntry pairs a payment record with the period it was recorded in.
// Period numbers are non-decreasing but may repeat: a refinance and an
// extra payment can both land in the same period.
type ScheduleEntry struct {
	Period int
	Record PaymentRecord
}

// Schedule is the append-only chronological ledger of payment events.
// Insertion order is chronological order.
type Schedule struct {
	entries []ScheduleEntry
}

// NewSchedule creates an empty Schedule.
func NewSchedule() *Schedule {
	return &Schedule{}
}

// Append adds a record timestamped by the period number. Ordering of period
// values is the caller's responsibility; it is not validated here.
func (s *Schedule) Append(period int, record PaymentRecord) {
	s.entries = append(s.entries, ScheduleEntry{Period: period, Record: record})
}

// Entries returns a copy of the ledger contents in chronological order.
func (s *Schedule) Entries() []ScheduleEntry {
	out := make([]ScheduleEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of recorded payment events.
func (s *Schedule) Len() int {
	return len(s.entries)
}

// Column order of the rendered table.
var scheduleColumns = [...]string{
	"period", "principal", "principal paid", "interest paid", "other costs", "total paid",
}

// Render formats the ledger as a plain-text table: a centered header row,
// a dashed separator, and one right-aligned row per record. Column widths
// are the maximum of the header label and every value in that column.
// Monetary values always carry two fractional digits, so re-parsing the
// table reproduces the stored decimals exactly.
func (s *Schedule) Render() string {
	rows := make([][6]string, len(s.entries))
	for i, e := range s.entries {
		rows[i] = [6]string{
			strconv.Itoa(e.Period),
			e.Record.PrincipalRemaining.StringFixed(2),
			e.Record.PrincipalPaid.StringFixed(2),
			e.Record.InterestPaid.StringFixed(2),
			e.Record.OtherCosts.StringFixed(2),
			e.Record.TotalPaidCumulative.StringFixed(2),
		}
	}

	var widths [6]int
	for i, h := range scheduleColumns {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	for i, h := range scheduleColumns {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(center(h, widths[i]))
	}
	b.WriteByte('\n')
	for i, w := range widths {
		if i > 0 {
			b.WriteString("-+-")
		}
		b.WriteString(strings.Repeat("-", w))
	}
	for _, row := range rows {
		b.WriteByte('\n')
		for i, cell := range row {
			if i > 0 {
				b.WriteString(" | ")
			}
			fmt.Fprintf(&b, "%*s", widths[i], cell)
		}
	}
	return b.String()
}

// center pads s to width. An odd leftover space goes left when the width
// is odd and right when it is even, matching Python's str.center.
func center(s string, width int) string {
	pad := width - len(s)
	if pad <= 0 {
		return s
	}
	left := pad / 2
	if pad%2 == 1 && width%2 == 1 {
		left++
	}
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}
