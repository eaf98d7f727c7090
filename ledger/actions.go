/*
actions.go - The closed action vocabulary

PURPOSE:
  Every mutation of State happens through exactly one of the action types in
  this file. An Action is a tagged variant: the type IS the tag, the struct
  fields ARE the statically-known payload shape. There is no "any"-typed
  payload bag - a field typo is a compile error, not a silent runtime no-op.

CLOSED SET:
  The unexported marker method keeps the set closed to this package. New
  actions are added here, alongside their reducer branch, or not at all.

NAMING:
  Action names (Name) are the verbs the audit trail and dispatch log use.

SEE ALSO:
  - reducer.go: the transition each action triggers
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action is a dispatched intent. Implementations are the closed set below.
type Action interface {
	// Name is the action verb used in logs and audit entries.
	Name() string

	isAction()
}

// =============================================================================
// BULK LOAD
// =============================================================================

// SetData is the single bulk-population action. The data-loading
// collaborator (sqlite snapshot store, seed factory, any future backend)
// produces exactly one of these once its load completes.
type SetData struct {
	// Seq restores the ID sequence high-water mark when the payload comes
	// from a persisted snapshot, so regenerated IDs never collide with
	// loaded ones. Zero for fresh datasets.
	Seq uint64

	Customers    []Customer
	Invoices     []Invoice
	Bookings     []Booking
	Vehicles     []Vehicle
	Expenses     []Expense
	Transactions []Transaction
	Vendors      []Vendor
	BankAccounts []BankAccount
	BankFeed     []BankTransaction
	Users        []SystemUser
}

// =============================================================================
// INVOICES & PAYMENTS
// =============================================================================

// AddInvoice appends a new invoice. The collaborator constructing the
// action is responsible for ID/number generation and field validation.
type AddInvoice struct {
	Invoice Invoice
}

// DeleteInvoice removes an invoice. The reducer enforces the one hard
// authorization gate here: the Accountant role is rejected.
type DeleteInvoice struct {
	InvoiceID InvoiceID
}

// RecordPayment settles (part of) a customer invoice. Cash categories move
// PaidAmount; non-cash categories (TDS, Discount, Adjustment, Credit note)
// move Adjustments. With AutoTDS set on a cash credit, the supplied Amount
// is treated as the net bank receipt (98% of gross) and a 2% TDS adjustment
// split is generated alongside.
type RecordPayment struct {
	InvoiceID       InvoiceID
	Date            time.Time
	Reference       string
	Amount          decimal.Decimal // > 0
	Direction       Direction
	Category        string
	DebitNoteNumber string
	AutoTDS         bool
}

// SendReminders stamps a reminder note and timestamp on every listed
// invoice. Empty set is a no-op.
type SendReminders struct {
	InvoiceIDs []InvoiceID
}

// =============================================================================
// VENDORS
// =============================================================================

// RecordVendorPayment records a payment against each listed vendor
// independently (bulk). Vendor balance is floored at zero - overpayment is
// never carried as negative liability.
type RecordVendorPayment struct {
	VendorIDs []VendorID
	Date      time.Time
	Amount    decimal.Decimal
	Category  string
	Reference string
	AutoTDS   bool
	BookingID BookingID
}

// AddVendor registers a new vendor.
type AddVendor struct {
	Vendor Vendor
}

// =============================================================================
// BOOKINGS (trips)
// =============================================================================

// AddBooking appends a new trip booking.
type AddBooking struct {
	Booking Booking
}

// CompleteTrip posts the booking's freight cost to the vendor ledger:
// one pre-approved Auto expense plus a vendor balance increase, at most
// once per booking.
type CompleteTrip struct {
	BookingID BookingID
}

// MarkBookingsInvoiced flips each listed booking pending -> invoiced. A
// mechanical side effect of invoice creation, not an independent financial
// event; whether it is audited is a reducer option.
type MarkBookingsInvoiced struct {
	BookingIDs []BookingID
}

// =============================================================================
// EXPENSES
// =============================================================================

// AddExpense records a manual expense. Above the approval threshold it is
// created pending_approval and a warning is raised.
type AddExpense struct {
	Expense Expense
}

// ApproveExpense moves an expense pending_approval -> approved.
type ApproveExpense struct {
	ExpenseID ExpenseID
}

// =============================================================================
// BANK RECONCILIATION
// =============================================================================

// MatchBankTransaction flips a bank feed entry unmatched -> matched.
type MatchBankTransaction struct {
	BankTransactionID BankTransactionID
}

// =============================================================================
// MASTER DATA & UI-ADJACENT
// =============================================================================

// AddCustomer registers a new customer.
type AddCustomer struct {
	Customer Customer
}

// SetUser switches the acting user. No-op if the user is unknown.
type SetUser struct {
	UserID UserID
}

// SetSearchQuery updates the UI search field carried on State.
type SetSearchQuery struct {
	Query string
}

// DismissNotification drops an ephemeral notification by id.
type DismissNotification struct {
	NotificationID NotificationID
}

// =============================================================================
// MARKERS & NAMES
// =============================================================================

func (SetData) isAction()              {}
func (AddInvoice) isAction()           {}
func (DeleteInvoice) isAction()        {}
func (RecordPayment) isAction()        {}
func (SendReminders) isAction()        {}
func (RecordVendorPayment) isAction()  {}
func (AddVendor) isAction()            {}
func (AddBooking) isAction()           {}
func (CompleteTrip) isAction()         {}
func (MarkBookingsInvoiced) isAction() {}
func (AddExpense) isAction()           {}
func (ApproveExpense) isAction()       {}
func (MatchBankTransaction) isAction() {}
func (AddCustomer) isAction()          {}
func (SetUser) isAction()              {}
func (SetSearchQuery) isAction()       {}
func (DismissNotification) isAction()  {}

func (SetData) Name() string              { return "Set Data" }
func (AddInvoice) Name() string           { return "Create Invoice" }
func (DeleteInvoice) Name() string        { return "Delete Invoice" }
func (RecordPayment) Name() string        { return "Record Payment" }
func (SendReminders) Name() string        { return "Send Reminders" }
func (RecordVendorPayment) Name() string  { return "Record Vendor Payment" }
func (AddVendor) Name() string            { return "Create Vendor" }
func (AddBooking) Name() string           { return "Create Booking" }
func (CompleteTrip) Name() string         { return "Complete Trip" }
func (MarkBookingsInvoiced) Name() string { return "Mark Bookings Invoiced" }
func (AddExpense) Name() string           { return "Create Expense" }
func (ApproveExpense) Name() string       { return "Approve Expense" }
func (MatchBankTransaction) Name() string { return "Match Bank Transaction" }
func (AddCustomer) Name() string          { return "Create Customer" }
func (SetUser) Name() string              { return "Switch User" }
func (SetSearchQuery) Name() string       { return "Set Search Query" }
func (DismissNotification) Name() string  { return "Dismiss Notification" }
