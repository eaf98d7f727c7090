/*
statement.go - Customer and vendor running-balance statements

PURPOSE:
  Reconstructs an account statement from the raw record streams: one dated
  debit/credit row per invoice/expense/transaction, with a running balance
  attached while walking in chronological order, presented newest-first.

ORDERING INVARIANT:
  Rows sort by date ascending. On equal dates the document row (invoice or
  expense) sorts before the settlement row, so a same-day invoice+payment
  pair reads "billed, then paid". Ties beyond that are stable on input
  order, which matters because the transaction list is most-recent-first
  and same-day TDS splits must land after their primary entry.

SHORT PAYMENT:
  A settlement row can carry the linked invoice's CURRENT open balance (not
  the delta at that point in time). After the newest-first reversal, only
  the first non-invoice row per invoice shows it - i.e. at most once per
  invoice, on its most recent related settlement.

SEE ALSO:
  - derive.go: the balance derivation the short-payment figure uses
  - reducer.go: writes the records this file reads
*/
package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATEMENT ROWS
// =============================================================================

type RowKind string

const (
	RowInvoice     RowKind = "invoice"
	RowExpense     RowKind = "expense"
	RowTransaction RowKind = "transaction"
)

// StatementRow is a single dated debit/credit entry with running balance.
type StatementRow struct {
	Date          time.Time
	Kind          RowKind
	InvoiceID     InvoiceID
	ExpenseID     ExpenseID
	TransactionID TransactionID
	BookingID     BookingID
	Description   string
	Reference     string
	Category      string
	Debit         decimal.Decimal
	Credit        decimal.Decimal

	// RunningBalance accumulates debit - credit in chronological order.
	RunningBalance decimal.Decimal

	// ShortPayment is the linked invoice's current open balance; shown only
	// where ShowShortPayment is set (at most once per invoice).
	ShortPayment     decimal.Decimal
	ShowShortPayment bool

	// Disputed marks booking-linked vendor rows that have a shortage
	// deduction or damage penalty recorded against the same booking.
	Disputed bool
}

// rowRank orders same-date rows: documents before settlements.
func rowRank(k RowKind) int {
	if k == RowTransaction {
		return 1
	}
	return 0
}

// =============================================================================
// CUSTOMER STATEMENT
// =============================================================================

// BuildCustomerLedger reconstructs the customer's statement. Invoices are
// debits, customer transactions are credits or debits per their direction.
// The result is newest-first with running balances computed chronologically.
func BuildCustomerLedger(invoices []Invoice, transactions []Transaction, customerID CustomerID, today time.Time) []StatementRow {
	byID := make(map[InvoiceID]Invoice, len(invoices))

	var rows []StatementRow
	for _, inv := range invoices {
		if inv.CustomerID != customerID {
			continue
		}
		byID[inv.ID] = inv
		rows = append(rows, StatementRow{
			Date:        inv.IssueDate,
			Kind:        RowInvoice,
			InvoiceID:   inv.ID,
			Description: "Invoice " + inv.Number,
			Debit:       inv.Amount,
			Credit:      decimal.Zero,
		})
	}

	for _, tx := range transactions {
		if tx.CustomerID != customerID {
			continue
		}
		row := StatementRow{
			Date:          tx.Date,
			Kind:          RowTransaction,
			InvoiceID:     tx.InvoiceID,
			TransactionID: tx.ID,
			BookingID:     tx.BookingID,
			Description:   tx.Description,
			Reference:     tx.Reference,
			Category:      tx.Category,
			Debit:         decimal.Zero,
			Credit:        decimal.Zero,
		}
		if tx.Direction == Credit {
			row.Credit = tx.Amount
		} else {
			row.Debit = tx.Amount
		}
		if tx.InvoiceID != "" && (tx.Direction == Credit || NonCashCategory(tx.Category)) {
			if inv, ok := byID[tx.InvoiceID]; ok {
				row.ShortPayment = DeriveInvoiceView(inv, today).Balance
			}
		}
		rows = append(rows, row)
	}

	accumulateAndReverse(rows)
	flagShortPayments(rows)
	return rows
}

// flagShortPayments marks, per invoice, the first non-invoice row in the
// newest-first output. The invoice row itself never shows the figure.
func flagShortPayments(rows []StatementRow) {
	seen := make(map[InvoiceID]bool)
	for i := range rows {
		r := &rows[i]
		if r.Kind == RowInvoice || r.InvoiceID == "" || seen[r.InvoiceID] {
			continue
		}
		r.ShowShortPayment = true
		seen[r.InvoiceID] = true
	}
}

// =============================================================================
// VENDOR STATEMENT
// =============================================================================

// BuildVendorLedger is the payable-side mirror: expenses are debits
// (liability up), credit transactions are credits (liability down).
// Booking-linked rows are flagged disputed when a shortage deduction or
// damage penalty transaction exists for the same vendor+booking.
func BuildVendorLedger(expenses []Expense, transactions []Transaction, vendorID VendorID) []StatementRow {
	disputed := make(map[BookingID]bool)
	for _, tx := range transactions {
		if tx.VendorID != vendorID || tx.BookingID == "" {
			continue
		}
		if tx.Category == CategoryShortageDeduction || tx.Category == CategoryDamagePenalty {
			disputed[tx.BookingID] = true
		}
	}

	var rows []StatementRow
	for _, e := range expenses {
		if e.VendorID != vendorID {
			continue
		}
		desc := e.Description
		if desc == "" {
			desc = string(e.Category) + " expense"
		}
		rows = append(rows, StatementRow{
			Date:        e.Date,
			Kind:        RowExpense,
			ExpenseID:   e.ID,
			BookingID:   e.BookingID,
			Description: desc,
			Category:    string(e.Category),
			Debit:       e.Amount,
			Credit:      decimal.Zero,
			Disputed:    e.BookingID != "" && disputed[e.BookingID],
		})
	}

	for _, tx := range transactions {
		if tx.VendorID != vendorID {
			continue
		}
		row := StatementRow{
			Date:          tx.Date,
			Kind:          RowTransaction,
			TransactionID: tx.ID,
			BookingID:     tx.BookingID,
			Description:   tx.Description,
			Reference:     tx.Reference,
			Category:      tx.Category,
			Debit:         decimal.Zero,
			Credit:        decimal.Zero,
			Disputed:      tx.BookingID != "" && disputed[tx.BookingID],
		}
		if tx.Direction == Credit {
			row.Credit = tx.Amount
		} else {
			row.Debit = tx.Amount
		}
		rows = append(rows, row)
	}

	accumulateAndReverse(rows)
	return rows
}

// =============================================================================
// SHARED WALK
// =============================================================================

// accumulateAndReverse sorts rows chronologically (documents before
// settlements on equal dates, stable otherwise), attaches the running
// balance, then reverses in place for newest-first display.
func accumulateAndReverse(rows []StatementRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rowRank(rows[i].Kind) < rowRank(rows[j].Kind)
	})

	running := decimal.Zero
	for i := range rows {
		running = running.Add(rows[i].Debit.Sub(rows[i].Credit))
		rows[i].RunningBalance = running
	}

	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
