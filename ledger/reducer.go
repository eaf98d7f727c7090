/*
reducer.go - The ledger state-transition function

PURPOSE:
  Reduce is the single place business rules execute. It takes the current
  State, one Action, and the wall-clock time, and returns the next State.
  Everything else in the system either constructs actions for it or reads
  the snapshots it produces.

CONTRACT:
  1. PURE: same (State, Action, now) in, equal State out. No I/O, no clock
     reads, no randomness - IDs come from State.Seq, time from the caller.
  2. TOTAL: unknown actions return the input unchanged. Reduce never
     panics and never returns an error.
  3. NON-MUTATING: the input State is never modified; changed collections
     are rebuilt copy-on-write.
  4. ATOMIC: audit entries and notifications are part of the same returned
     value as the data change - there is no window where one exists
     without the other.

FAILURE MODEL:
  - stale reference (id not found): silent no-op; callers validate before
    dispatch, the reducer just refuses to crash on their behalf
  - authorization denial / missing precondition / duplicate posting:
    unchanged data plus an error or warning notification

SEE ALSO:
  - payments.go: RecordPayment / RecordVendorPayment state machines
  - trips.go:    bookings, freight auto-posting, expense approval gate
  - audit.go:    the side-channel builders
*/
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Reducer carries the few configuration knobs a transition can honor.
// The zero value is the production default.
type Reducer struct {
	// AuditBookingMarking makes MarkBookingsInvoiced write an audit entry
	// like every other financial action. Off by default: the system this
	// replaces treated the marking as a mechanical side effect of invoice
	// creation and left it out of the trail.
	AuditBookingMarking bool
}

// Reduce applies one action with the default configuration.
func Reduce(s State, a Action, now time.Time) State {
	return Reducer{}.Reduce(s, a, now)
}

// Reduce applies one action and returns the next state.
func (r Reducer) Reduce(s State, a Action, now time.Time) State {
	switch act := a.(type) {
	case SetData:
		return r.setData(s, act)
	case AddInvoice:
		return r.addInvoice(s, act, now)
	case DeleteInvoice:
		return r.deleteInvoice(s, act, now)
	case RecordPayment:
		return r.recordPayment(s, act, now)
	case SendReminders:
		return r.sendReminders(s, act, now)
	case RecordVendorPayment:
		return r.recordVendorPayment(s, act, now)
	case AddVendor:
		return r.addVendor(s, act, now)
	case AddBooking:
		return r.addBooking(s, act, now)
	case CompleteTrip:
		return r.completeTrip(s, act, now)
	case MarkBookingsInvoiced:
		return r.markBookingsInvoiced(s, act, now)
	case AddExpense:
		return r.addExpense(s, act, now)
	case ApproveExpense:
		return r.approveExpense(s, act, now)
	case MatchBankTransaction:
		return r.matchBankTransaction(s, act, now)
	case AddCustomer:
		return r.addCustomer(s, act, now)
	case SetUser:
		return r.setUser(s, act)
	case SetSearchQuery:
		s.SearchQuery = act.Query
		return s
	case DismissNotification:
		return r.dismissNotification(s, act)
	default:
		// Total function: an action the reducer does not know is a no-op,
		// not a crash.
		return s
	}
}

// =============================================================================
// BULK LOAD
// =============================================================================

func (r Reducer) setData(s State, a SetData) State {
	s.Customers = a.Customers
	s.Invoices = a.Invoices
	s.Bookings = a.Bookings
	s.Vehicles = a.Vehicles
	s.Expenses = a.Expenses
	s.Transactions = a.Transactions
	s.Vendors = a.Vendors
	s.BankAccounts = a.BankAccounts
	s.BankFeed = a.BankFeed
	s.Users = a.Users
	s.Loading = false
	if a.Seq > s.Seq {
		s.Seq = a.Seq
	}
	if s.CurrentUser.ID == "" && len(a.Users) > 0 {
		s.CurrentUser = a.Users[0]
	}
	return s
}

// =============================================================================
// INVOICES
// =============================================================================

func (r Reducer) addInvoice(s State, a AddInvoice, now time.Time) State {
	inv := a.Invoice
	if inv.ID == "" {
		var id string
		s, id = s.nextID("inv")
		inv.ID = InvoiceID(id)
	}
	if !inv.PaidAmount.Valid {
		inv.PaidAmount = decimal.NullDecimal{Decimal: decimal.Zero, Valid: true}
	}
	if inv.Status == "" {
		inv.Status = InvoiceSent
	}

	s.Invoices = cloneAppend(s.Invoices, inv)
	s = s.withAudit(now, AddInvoice{}.Name(), "Invoice", string(inv.ID),
		fmt.Sprintf("Created invoice %s for %s", inv.Number, inv.Amount.StringFixed(2)), "", string(inv.Status))
	return s.withNotification(now, NotifySuccess, fmt.Sprintf("Invoice %s created", inv.Number))
}

func (r Reducer) deleteInvoice(s State, a DeleteInvoice, now time.Time) State {
	// The one hard authorization gate in the reducer. Every other action is
	// role-agnostic here; the UI may hide more, but deletion is enforced
	// at the source of truth.
	if s.CurrentUser.Role == RoleAccountant {
		return s.withNotification(now, NotifyError, "Accountants are not permitted to delete invoices")
	}

	inv, ok := s.FindInvoice(a.InvoiceID)
	if !ok {
		return s
	}

	remaining := make([]Invoice, 0, len(s.Invoices)-1)
	for _, existing := range s.Invoices {
		if existing.ID != a.InvoiceID {
			remaining = append(remaining, existing)
		}
	}
	s.Invoices = remaining

	s = s.withAudit(now, DeleteInvoice{}.Name(), "Invoice", string(inv.ID),
		fmt.Sprintf("Deleted invoice %s (%s)", inv.Number, inv.Amount.StringFixed(2)), string(inv.Status), "")
	return s.withNotification(now, NotifySuccess, fmt.Sprintf("Invoice %s deleted", inv.Number))
}

func (r Reducer) sendReminders(s State, a SendReminders, now time.Time) State {
	if len(a.InvoiceIDs) == 0 {
		return s
	}

	wanted := make(map[InvoiceID]bool, len(a.InvoiceIDs))
	for _, id := range a.InvoiceIDs {
		wanted[id] = true
	}

	note := fmt.Sprintf("[%s] Payment reminder sent", now.Format("2006-01-02"))

	sent := 0
	invoices := make([]Invoice, len(s.Invoices))
	for i, inv := range s.Invoices {
		if wanted[inv.ID] {
			if inv.Notes != "" {
				inv.Notes += "\n"
			}
			inv.Notes += note
			stamp := now
			inv.LastReminderSent = &stamp
			sent++
		}
		invoices[i] = inv
	}
	if sent == 0 {
		return s
	}
	s.Invoices = invoices

	s = s.withAudit(now, SendReminders{}.Name(), "Invoice", "",
		fmt.Sprintf("Sent payment reminders for %d invoice(s)", sent), "", "")
	return s.withNotification(now, NotifySuccess, fmt.Sprintf("Reminders sent for %d invoice(s)", sent))
}

// =============================================================================
// BANK RECONCILIATION
// =============================================================================

func (r Reducer) matchBankTransaction(s State, a MatchBankTransaction, now time.Time) State {
	idx := -1
	for i, bt := range s.BankFeed {
		if bt.ID == a.BankTransactionID {
			idx = i
			break
		}
	}
	if idx < 0 || s.BankFeed[idx].Status == BankMatched {
		return s
	}

	feed := make([]BankTransaction, len(s.BankFeed))
	copy(feed, s.BankFeed)
	feed[idx].Status = BankMatched
	s.BankFeed = feed

	bt := feed[idx]
	s = s.withAudit(now, MatchBankTransaction{}.Name(), "BankTransaction", string(bt.ID),
		fmt.Sprintf("Matched bank entry %s (%s)", bt.Description, bt.Amount.StringFixed(2)),
		string(BankUnmatched), string(BankMatched))
	return s.withNotification(now, NotifySuccess, "Bank transaction matched")
}

// =============================================================================
// MASTER DATA & UI-ADJACENT
// =============================================================================

func (r Reducer) addCustomer(s State, a AddCustomer, now time.Time) State {
	c := a.Customer
	if c.ID == "" {
		var id string
		s, id = s.nextID("cust")
		c.ID = CustomerID(id)
	}
	if c.CreditLimit.IsNegative() {
		c.CreditLimit = decimal.Zero
	}
	if c.Status == "" {
		c.Status = CustomerActive
	}

	s.Customers = cloneAppend(s.Customers, c)
	s = s.withAudit(now, AddCustomer{}.Name(), "Customer", string(c.ID),
		fmt.Sprintf("Created customer %s", c.Name), "", string(c.Status))
	return s.withNotification(now, NotifySuccess, fmt.Sprintf("Customer %s created", c.Name))
}

func (r Reducer) addVendor(s State, a AddVendor, now time.Time) State {
	v := a.Vendor
	if v.ID == "" {
		var id string
		s, id = s.nextID("vnd")
		v.ID = VendorID(id)
	}
	if v.Balance.IsNegative() {
		v.Balance = decimal.Zero
	}
	if v.LastActivity.IsZero() {
		v.LastActivity = now
	}

	s.Vendors = cloneAppend(s.Vendors, v)
	s = s.withAudit(now, AddVendor{}.Name(), "Vendor", string(v.ID),
		fmt.Sprintf("Created vendor %s (%s)", v.Name, v.Code), "", "")
	return s.withNotification(now, NotifySuccess, fmt.Sprintf("Vendor %s created", v.Name))
}

func (r Reducer) setUser(s State, a SetUser) State {
	u, ok := s.FindUser(a.UserID)
	if !ok {
		return s
	}
	s.CurrentUser = u
	return s
}

func (r Reducer) dismissNotification(s State, a DismissNotification) State {
	idx := -1
	for i, n := range s.Notifications {
		if n.ID == a.NotificationID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s
	}
	remaining := make([]Notification, 0, len(s.Notifications)-1)
	remaining = append(remaining, s.Notifications[:idx]...)
	remaining = append(remaining, s.Notifications[idx+1:]...)
	s.Notifications = remaining
	return s
}

// =============================================================================
// SHARED RECORD REPLACEMENT
// =============================================================================

// replaceInvoice rebuilds the invoice slice with one record swapped.
func replaceInvoice(invoices []Invoice, updated Invoice) []Invoice {
	out := make([]Invoice, len(invoices))
	for i, inv := range invoices {
		if inv.ID == updated.ID {
			out[i] = updated
		} else {
			out[i] = inv
		}
	}
	return out
}

// replaceVendor rebuilds the vendor slice with one record swapped.
func replaceVendor(vendors []Vendor, updated Vendor) []Vendor {
	out := make([]Vendor, len(vendors))
	for i, v := range vendors {
		if v.ID == updated.ID {
			out[i] = updated
		} else {
			out[i] = v
		}
	}
	return out
}
