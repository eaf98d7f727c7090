/*
derive.go - Pure derivation functions over the domain model

PURPOSE:
  Every display-facing financial figure is computed here, on demand, from
  raw stored fields. Nothing in this file mutates state or reads the clock:
  callers pass "today" explicitly.

WHY CENTRALIZED?
  In the system this replaces, several views re-derived invoice balance and
  status inline with slightly different fallback logic, and drifted. Every
  consumer - reducer, statements, HTTP read models, exports - must go
  through these functions instead.

KEY DERIVATIONS:
  DeriveInvoiceView:      balance, overdue days, display status per invoice
  DeriveCustomerExposure: open receivables across the FULL invoice set
  DeriveDSO:              days sales outstanding over a lookback window

SEE ALSO:
  - statement.go: running-balance statement construction
  - reducer.go: uses the same status rules on RecordPayment
*/
package ledger

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// INVOICE VIEW
// =============================================================================

// DisplayStatus is the status shown to users. It is derived on demand from
// monetary fields, unlike the persisted Invoice.Status which is updated
// transactionally by RecordPayment.
type DisplayStatus string

const (
	DisplayPaid          DisplayStatus = "Paid"
	DisplayOverdue       DisplayStatus = "Overdue"
	DisplayPartiallyPaid DisplayStatus = "Partially paid"
	DisplayUnpaid        DisplayStatus = "Unpaid"
)

// InvoiceView is the fully derived read model for one invoice.
type InvoiceView struct {
	PaidAmount    decimal.Decimal
	Balance       decimal.Decimal // floored at zero for display
	OverdueDays   int
	DisplayStatus DisplayStatus
}

// DeriveInvoiceView computes the display view of an invoice as of today.
// Pure: same invoice + same today = same view.
//
// Status precedence: Paid (balance within tolerance) beats Overdue beats
// Partially paid beats Unpaid.
func DeriveInvoiceView(inv Invoice, today time.Time) InvoiceView {
	paid := effectivePaidAmount(inv)

	balance := inv.Amount.Sub(paid.Add(inv.Adjustments))
	if balance.IsNegative() {
		balance = decimal.Zero
	}

	overdueDays := 0
	if balance.IsPositive() {
		if d := daysOverdue(inv.DueDate, today); d > 0 {
			overdueDays = d
		}
	}

	var status DisplayStatus
	switch {
	case balance.LessThanOrEqual(PaidTolerance):
		status = DisplayPaid
	case overdueDays > 0:
		status = DisplayOverdue
	case paid.IsPositive() || inv.Adjustments.IsPositive():
		status = DisplayPartiallyPaid
	default:
		status = DisplayUnpaid
	}

	return InvoiceView{
		PaidAmount:    paid,
		Balance:       balance,
		OverdueDays:   overdueDays,
		DisplayStatus: status,
	}
}

// effectivePaidAmount returns the stored paid amount, or a seeded fallback
// when the record lacks one. The fallback exists ONLY to cope with
// incompletely seeded demo records; production data never takes this path.
func effectivePaidAmount(inv Invoice) decimal.Decimal {
	if inv.PaidAmount.Valid {
		return inv.PaidAmount.Decimal
	}
	switch inv.Status {
	case InvoicePaid:
		return inv.Amount
	case InvoicePartial:
		return roundMoney(inv.Amount.Div(decimal.NewFromInt(2)))
	default:
		return decimal.Zero
	}
}

// daysOverdue is ceil((today - dueDate) / 1 day). Zero or negative means
// not yet due.
func daysOverdue(dueDate, today time.Time) int {
	hours := today.Sub(dueDate).Hours()
	return int(math.Ceil(hours / 24))
}

// =============================================================================
// RECEIVABLES ANALYTICS
// =============================================================================

// DeriveCustomerExposure sums the open balance of every invoice in the set.
// Callers MUST pass the customer's complete invoice list
// (State.InvoicesForCustomer), never a display-filtered subset - exposure
// gates credit-limit warnings and a filtered set would understate it.
func DeriveCustomerExposure(invoices []Invoice) decimal.Decimal {
	exposure := decimal.Zero
	for _, inv := range invoices {
		open := inv.Amount.Sub(effectivePaidAmount(inv).Add(inv.Adjustments))
		if open.IsPositive() {
			exposure = exposure.Add(open)
		}
	}
	return exposure
}

// DefaultDSOLookbackDays is the sales window for DSO when callers have no
// reason to choose another.
const DefaultDSOLookbackDays = 90

// DeriveDSO estimates days sales outstanding: exposure divided by sales in
// the lookback window, scaled to the window length. Returns 0 when there
// were no sales in the window.
func DeriveDSO(invoices []Invoice, exposure decimal.Decimal, today time.Time, lookbackDays int) int {
	windowStart := today.AddDate(0, 0, -lookbackDays)

	sales := decimal.Zero
	for _, inv := range invoices {
		if !inv.IssueDate.Before(windowStart) && !inv.IssueDate.After(today) {
			sales = sales.Add(inv.Amount)
		}
	}
	if sales.IsZero() {
		return 0
	}

	dso := exposure.Div(sales).Mul(decimal.NewFromInt(int64(lookbackDays)))
	return int(roundMoney(dso).IntPart())
}
