/*
Package ledger is the core state-transition engine for the freight ledger.

PURPOSE:
  This package contains the domain model, the derivation functions, and the
  pure reducer that together define every financial rule in the system.
  Nothing in this package performs I/O, reads the clock, or touches a global:
  the same (State, Action, now) triple always produces the same next State.

KEY CONCEPTS IN THIS FILE (types.go):
  - State: the aggregate root; one value holds the entire ledger
  - Invoice/Transaction/Expense/Vendor: the financial records
  - Typed IDs: CustomerID, InvoiceID, ... prevent cross-entity mixups
  - AuditLog/Notification: the two side-channel outputs of a transition

DESIGN PRINCIPLES:
  1. Immutability: the reducer never edits a record in place; it builds a
     replacement and a new slice around it
  2. Precision: uses decimal.Decimal for all money, never float64
  3. Corrections by reversal: Transactions are append-only; mistakes are
     offset with new entries, never edited
  4. Derived values stay derived: invoice balance is always recomputed from
     Amount, PaidAmount and Adjustments; it is never stored

SEE ALSO:
  - actions.go: the closed action vocabulary
  - reducer.go: the state transition function
  - derive.go: invoice/receivables derivations
  - statement.go: customer and vendor running-balance statements
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type (
	CustomerID        string
	InvoiceID         string
	BookingID         string
	VehicleID         string
	ExpenseID         string
	TransactionID     string
	VendorID          string
	UserID            string
	BankAccountID     string
	BankTransactionID string
	AuditLogID        string
	NotificationID    string
)

// =============================================================================
// MONETARY CONSTANTS
// =============================================================================

var (
	// PaidTolerance is the residual balance below which an invoice counts as
	// settled. Absorbs rounding differences on bank receipts.
	PaidTolerance = decimal.NewFromInt(5)

	// ExpenseApprovalThreshold is the amount above which a manual expense
	// requires explicit approval before it is considered settled.
	ExpenseApprovalThreshold = decimal.NewFromInt(50000)

	// tdsRate and tdsNetFactor model the simulated 2% withholding: a bank
	// receipt of N is 98% of gross, so gross = N / 0.98 and TDS = gross * 0.02.
	tdsRate      = decimal.NewFromFloat(0.02)
	tdsNetFactor = decimal.NewFromFloat(0.98)
)

// roundMoney rounds to whole currency units, half away from zero. All TDS
// arithmetic in the system goes through this.
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// =============================================================================
// CUSTOMER
// =============================================================================

type CustomerStatus string

const (
	CustomerActive   CustomerStatus = "active"
	CustomerInactive CustomerStatus = "inactive"
	CustomerOnHold   CustomerStatus = "on_hold"
)

// Customer is a billed party. Read-mostly from the reducer's perspective:
// customers are seeded at startup and referenced by invoices and bookings.
type Customer struct {
	ID                  CustomerID
	Name                string
	TaxID               string
	CreditLimit         decimal.Decimal // invariant: >= 0
	Status              CustomerStatus
	PaymentTermsDays    int
	TDSRatePercent      decimal.Decimal
	RelationshipManager string
}

// =============================================================================
// INVOICE
// =============================================================================

// InvoiceStatus is the persisted status field. It is NOT authoritative for
// display: DeriveInvoiceView computes the effective status from the monetary
// fields. The stored status exists for consumers that filter on it (e.g. the
// payment modal excludes status "paid") and is updated transactionally by
// RecordPayment so the two never drift.
type InvoiceStatus string

const (
	InvoiceDraft   InvoiceStatus = "draft"
	InvoiceSent    InvoiceStatus = "sent"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOverdue InvoiceStatus = "overdue"
	InvoicePartial InvoiceStatus = "partial"
)

type LineItem struct {
	Description string
	Quantity    decimal.Decimal
	Rate        decimal.Decimal
	Amount      decimal.Decimal
}

// Invoice is a receivable. Balance is never stored: it is always
// Amount - (PaidAmount + Adjustments), recomputable from these three fields.
//
// PaidAmount is cumulative cash received; Adjustments is cumulative non-cash
// settlement (TDS, discount, credit note, adjustment). Both change only
// through RecordPayment.
//
// PaidAmount is a NullDecimal because incompletely seeded records may lack
// it; DeriveInvoiceView isolates the fallback for that case. Production data
// always carries a valid value.
type Invoice struct {
	ID               InvoiceID
	CustomerID       CustomerID
	Number           string // unique display key, e.g. "INV-2026-0042"
	Status           InvoiceStatus
	IssueDate        time.Time
	DueDate          time.Time
	Amount           decimal.Decimal
	PaidAmount       decimal.NullDecimal
	Adjustments      decimal.Decimal
	LineItems        []LineItem
	LastReminderSent *time.Time
	Notes            string
}

// =============================================================================
// BOOKING (trip)
// =============================================================================

type BookingStatus string

const (
	BookingPending  BookingStatus = "pending"
	BookingInvoiced BookingStatus = "invoiced"
)

// Booking is a trip: customer revenue on one side, vendor freight cost on
// the other. A booking moves pending -> invoiced exactly once, via the bulk
// MarkBookingsInvoiced action after invoice creation. Its freight expense is
// posted to the vendor ledger at most once (CompleteTrip rejects a repost).
type Booking struct {
	ID            BookingID
	CustomerID    CustomerID
	Origin        string
	Destination   string
	DistanceKM    decimal.Decimal
	VehicleID     VehicleID
	DriverName    string
	BookedDate    time.Time
	CompletedDate *time.Time
	Amount        decimal.Decimal // billable customer revenue
	Expense       decimal.Decimal // vendor freight cost
	Status        BookingStatus
	PODVerified   bool     // proof of delivery
	VendorID      VendorID // empty when the trip runs on own fleet
}

// =============================================================================
// VEHICLE
// =============================================================================

type VehicleStatus string

const (
	VehicleActive      VehicleStatus = "active"
	VehicleMaintenance VehicleStatus = "maintenance"
	VehicleRetired     VehicleStatus = "retired"
)

type Vehicle struct {
	ID           VehicleID
	Registration string
	Model        string
	Status       VehicleStatus
	MileageKM    decimal.Decimal // odometer baseline for cost-per-km
}

// =============================================================================
// EXPENSE
// =============================================================================

type ExpenseCategory string

const (
	ExpenseFuel        ExpenseCategory = "Fuel"
	ExpenseMaintenance ExpenseCategory = "Maintenance"
	ExpenseInsurance   ExpenseCategory = "Insurance"
	ExpenseToll        ExpenseCategory = "Toll"
	ExpenseFreight     ExpenseCategory = "Freight"
	ExpenseDriver      ExpenseCategory = "Driver"
	ExpenseEMI         ExpenseCategory = "EMI"
)

type EntryType string

const (
	EntryManual EntryType = "Manual"
	EntryAuto   EntryType = "Auto"
)

type ApprovalStatus string

const (
	ExpenseApproved        ApprovalStatus = "approved"
	ExpensePendingApproval ApprovalStatus = "pending_approval"
)

// Expense is a cost entry. Manual expenses above ExpenseApprovalThreshold
// are created pending_approval; auto-posted freight expenses are always
// pre-approved.
type Expense struct {
	ID          ExpenseID
	VehicleID   VehicleID
	Category    ExpenseCategory
	Amount      decimal.Decimal
	Date        time.Time
	VendorID    VendorID
	BookingID   BookingID // set for freight auto-postings
	EntryType   EntryType
	Status      ApprovalStatus
	Description string
}

// =============================================================================
// TRANSACTION (ledger movement)
// =============================================================================

type Direction string

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

// Payment categories understood by RecordPayment. The first four are cash
// movements; the NonCashCategory set are balance adjustments with no cash
// transfer behind them.
const (
	CategoryFullPayment    = "Full payment"
	CategoryPartialPayment = "Partial payment"
	CategoryAdvancePayment = "Advance payment"
	CategoryDebitNote      = "Debit note"
	CategoryCreditNote     = "Credit note"
	CategoryDiscount       = "Discount"
	CategoryTDS            = "TDS"
	CategoryAdjustment     = "Adjustment"

	// CategoryTDSDeduction tags the auto-generated 2% withholding split.
	CategoryTDSDeduction = "TDS Deduction (2%)"

	// Vendor dispute categories. Their presence on a booking-linked vendor
	// transaction flags the booking's statement rows as disputed.
	CategoryShortageDeduction = "Shortage Deduction"
	CategoryDamagePenalty     = "Damage Penalty"
)

// NonCashCategory reports whether a payment category is a non-cash
// adjustment (moves Adjustments) rather than a cash movement (moves
// PaidAmount).
func NonCashCategory(category string) bool {
	switch category {
	case CategoryTDS, CategoryDiscount, CategoryAdjustment, CategoryCreditNote:
		return true
	}
	return false
}

// Transaction is an immutable ledger movement. CustomerID and VendorID are
// mutually exclusive in practice. Corrections are made by offsetting
// entries, never by editing.
type Transaction struct {
	ID          TransactionID
	CustomerID  CustomerID
	VendorID    VendorID
	Date        time.Time
	Amount      decimal.Decimal
	Direction   Direction
	Description string
	InvoiceID   InvoiceID
	BookingID   BookingID
	Matched     bool // bank reconciliation flag
	Mode        string
	Reference   string
	Category    string
}

// =============================================================================
// VENDOR
// =============================================================================

// Vendor is a payable party. Balance is the amount the company owes: it
// increases when a liability is posted (freight expense) and decreases when
// a payment is recorded. Unlike invoice balances, it is floored at zero -
// overpayment is not represented as a negative liability.
type Vendor struct {
	ID               VendorID
	Name             string
	Code             string
	TaxID            string
	Category         string
	Rating           decimal.Decimal
	Balance          decimal.Decimal
	PaymentTermsDays int
	LastActivity     time.Time
}

// =============================================================================
// BANK RECONCILIATION
// =============================================================================

type BankAccount struct {
	ID            BankAccountID
	Name          string
	AccountNumber string
	Balance       decimal.Decimal
}

type MatchStatus string

const (
	BankMatched   MatchStatus = "matched"
	BankUnmatched MatchStatus = "unmatched"
)

// BankTransaction is an externally reported bank movement awaiting
// association with an internal record. Its status is flipped by exactly one
// action (MatchBankTransaction).
type BankTransaction struct {
	ID          BankTransactionID
	AccountID   BankAccountID
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Direction   Direction
	Status      MatchStatus
}

// =============================================================================
// USERS & ROLES
// =============================================================================

type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleManager    Role = "Manager"
	RoleOperations Role = "Operations"

	// RoleAccountant is the restricted role: it may record anything but may
	// not delete invoices. The reducer is the authoritative enforcement
	// point for that gate.
	RoleAccountant Role = "Accountant"
)

type SystemUser struct {
	ID    UserID
	Name  string
	Email string
	Role  Role
}

// =============================================================================
// AUDIT LOG & NOTIFICATIONS
// =============================================================================

// AuditLog is an immutable, attributed change record. Created exclusively by
// the reducer as part of a mutating transition; never for pure reads, never
// edited, never deleted.
type AuditLog struct {
	ID         AuditLogID
	Timestamp  time.Time
	UserID     UserID
	UserName   string
	Role       Role
	Action     string
	EntityType string
	EntityID   string
	Details    string
	OldValue   string
	NewValue   string
}

type NotificationType string

const (
	NotifySuccess NotificationType = "success"
	NotifyError   NotificationType = "error"
	NotifyInfo    NotificationType = "info"
	NotifyWarning NotificationType = "warning"
)

// Notification is an ephemeral UI-facing message. Unlike AuditLog it is not
// durable history: the UI dismisses it independently.
type Notification struct {
	ID        NotificationID
	Type      NotificationType
	Message   string
	CreatedAt time.Time
}

// =============================================================================
// STATE - the aggregate root
// =============================================================================

// State holds exactly one current value for every collection in the system.
// The dispatch container owns the only mutable reference; the reducer only
// ever returns a new value built by copy-on-write, so older snapshots stay
// valid for readers.
//
// Seq is the deterministic ID sequence: every entity the reducer generates
// (transactions, expenses, audit entries, notifications) draws from it.
// Keeping the counter inside State is what keeps Reduce a pure function.
type State struct {
	Customers        []Customer
	Invoices         []Invoice
	Bookings         []Booking
	Vehicles         []Vehicle
	Expenses         []Expense
	Transactions     []Transaction // invariant: most-recent-first
	Vendors          []Vendor
	BankAccounts     []BankAccount
	BankFeed         []BankTransaction
	Users            []SystemUser
	AuditLogs        []AuditLog
	Notifications    []Notification
	CurrentUser      SystemUser
	SearchQuery      string
	Loading          bool
	Seq              uint64
}

// =============================================================================
// LOOKUPS (read-only helpers on State)
// =============================================================================

func (s State) FindCustomer(id CustomerID) (Customer, bool) {
	for _, c := range s.Customers {
		if c.ID == id {
			return c, true
		}
	}
	return Customer{}, false
}

func (s State) FindInvoice(id InvoiceID) (Invoice, bool) {
	for _, inv := range s.Invoices {
		if inv.ID == id {
			return inv, true
		}
	}
	return Invoice{}, false
}

func (s State) FindBooking(id BookingID) (Booking, bool) {
	for _, b := range s.Bookings {
		if b.ID == id {
			return b, true
		}
	}
	return Booking{}, false
}

func (s State) FindVendor(id VendorID) (Vendor, bool) {
	for _, v := range s.Vendors {
		if v.ID == id {
			return v, true
		}
	}
	return Vendor{}, false
}

func (s State) FindVehicle(id VehicleID) (Vehicle, bool) {
	for _, v := range s.Vehicles {
		if v.ID == id {
			return v, true
		}
	}
	return Vehicle{}, false
}

func (s State) FindExpense(id ExpenseID) (Expense, bool) {
	for _, e := range s.Expenses {
		if e.ID == id {
			return e, true
		}
	}
	return Expense{}, false
}

func (s State) FindUser(id UserID) (SystemUser, bool) {
	for _, u := range s.Users {
		if u.ID == id {
			return u, true
		}
	}
	return SystemUser{}, false
}

// InvoicesForCustomer returns the customer's complete, unfiltered invoice
// set. Exposure and DSO must always be computed from this, never from a
// display-filtered subset.
func (s State) InvoicesForCustomer(id CustomerID) []Invoice {
	var out []Invoice
	for _, inv := range s.Invoices {
		if inv.CustomerID == id {
			out = append(out, inv)
		}
	}
	return out
}

// HasFreightExpense reports whether a freight expense already exists for the
// booking. This is the idempotency guard for CompleteTrip.
func (s State) HasFreightExpense(id BookingID) bool {
	for _, e := range s.Expenses {
		if e.BookingID == id && e.Category == ExpenseFreight {
			return true
		}
	}
	return false
}
