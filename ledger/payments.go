/*
payments.go - Payment recording state machines

PURPOSE:
  The two most intricate transitions in the reducer:

    RecordPayment        customer invoice settlement (cash + non-cash)
    RecordVendorPayment  bulk vendor liability settlement

ARITHMETIC:
  A cash movement changes Invoice.PaidAmount; a non-cash adjustment (TDS,
  Discount, Adjustment, Credit note) changes Invoice.Adjustments. Balance is
  always Amount - (PaidAmount + Adjustments), recomputed after the change.

AUTO-TDS:
  When the payer withholds 2% at source, the bank receipt is the NET amount
  (98% of gross). gross = net / 0.98, tds = round(gross * 0.02). The split
  lands as a second same-dated transaction whose id sorts after the primary
  entry, and as an increase to Adjustments.

ASYMMETRY:
  An invoice balance may legitimately go negative (overpayment, advance);
  the display derivation floors it, the stored fields do not. A vendor
  balance may not: it is clamped at zero on payment.
*/
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CUSTOMER PAYMENT
// =============================================================================

func (r Reducer) recordPayment(s State, a RecordPayment, now time.Time) State {
	inv, ok := s.FindInvoice(a.InvoiceID)
	if !ok {
		return s
	}

	nonCash := NonCashCategory(a.Category)

	// A bank receipt with auto-TDS reads as a bank receipt whether the
	// payment is full or partial; everything else is labeled by category.
	var desc string
	if a.AutoTDS && (a.Category == CategoryFullPayment || a.Category == CategoryPartialPayment) {
		desc = "Bank Receipt - " + inv.Number
	} else {
		desc = a.Category + " - " + inv.Number
		if a.DebitNoteNumber != "" {
			desc += fmt.Sprintf(" (DN: %s)", a.DebitNoteNumber)
		}
	}

	paid := decimal.Zero
	if inv.PaidAmount.Valid {
		paid = inv.PaidAmount.Decimal
	}
	adjustments := inv.Adjustments

	switch {
	case nonCash && a.Direction == Credit:
		adjustments = adjustments.Add(a.Amount)
	case nonCash:
		adjustments = adjustments.Sub(a.Amount)
	case a.Direction == Credit:
		paid = paid.Add(a.Amount)
	default:
		paid = paid.Sub(a.Amount)
	}

	var primaryID string
	s, primaryID = s.nextID("txn")
	newTxns := []Transaction{{
		ID:          TransactionID(primaryID),
		CustomerID:  inv.CustomerID,
		Date:        a.Date,
		Amount:      a.Amount,
		Direction:   a.Direction,
		Description: desc,
		InvoiceID:   inv.ID,
		Matched:     true,
		Reference:   a.Reference,
		Category:    a.Category,
	}}

	// TDS split fires only on a cash credit: the receipt is net of the 2%
	// the payer withheld, and the withheld part settles the invoice as a
	// non-cash adjustment.
	tdsApplied := false
	if a.AutoTDS && a.Direction == Credit && !nonCash {
		tdsAmount := roundMoney(a.Amount.Div(tdsNetFactor).Mul(tdsRate))
		adjustments = adjustments.Add(tdsAmount)

		var tdsID string
		s, tdsID = s.nextID("txn")
		newTxns = append(newTxns, Transaction{
			ID:          TransactionID(tdsID), // later seq: sorts after the primary entry
			CustomerID:  inv.CustomerID,
			Date:        a.Date,
			Amount:      tdsAmount,
			Direction:   Credit,
			Description: CategoryTDSDeduction + " - " + inv.Number,
			InvoiceID:   inv.ID,
			Matched:     true,
			Reference:   a.Reference,
			Category:    CategoryTDSDeduction,
		})
		tdsApplied = true
	}

	inv.PaidAmount = decimal.NullDecimal{Decimal: paid, Valid: true}
	inv.Adjustments = adjustments

	// Balance is NOT floored here: overpayment stays representable on the
	// record. Only the display derivation floors it.
	balance := inv.Amount.Sub(paid.Add(adjustments))

	oldStatus := inv.Status
	switch {
	case balance.LessThanOrEqual(PaidTolerance):
		inv.Status = InvoicePaid
	case balance.LessThan(inv.Amount):
		inv.Status = InvoiceSent
	case inv.DueDate.Before(now):
		inv.Status = InvoiceOverdue
	default:
		inv.Status = InvoiceSent
	}

	s.Invoices = replaceInvoice(s.Invoices, inv)
	s.Transactions = clonePrepend(s.Transactions, newTxns...)

	detail := fmt.Sprintf("%s %s of %s against %s", a.Category, a.Direction, a.Amount.StringFixed(2), inv.Number)
	if tdsApplied {
		detail += " (TDS 2% applied)"
	}
	s = s.withAudit(now, a.Name(), "Invoice", string(inv.ID), detail, string(oldStatus), string(inv.Status))
	return s.withNotification(now, NotifySuccess, fmt.Sprintf("Payment recorded against %s", inv.Number))
}

// =============================================================================
// VENDOR PAYMENT (bulk)
// =============================================================================

func (r Reducer) recordVendorPayment(s State, a RecordVendorPayment, now time.Time) State {
	if len(a.VendorIDs) == 0 {
		return s
	}

	// Net-of-TDS arithmetic mirrors the customer side; the amount applies
	// to each vendor in the batch independently.
	tdsAmount := decimal.Zero
	if a.AutoTDS {
		tdsAmount = roundMoney(a.Amount.Div(tdsNetFactor).Mul(tdsRate))
	}

	var desc string
	if a.AutoTDS {
		desc = "Bank Payment - " + a.Reference
	} else {
		desc = a.Category + " - " + a.Reference
		if a.BookingID != "" {
			desc += fmt.Sprintf(" (Trip: %s)", a.BookingID)
		}
	}

	var newTxns []Transaction
	var paidIDs []string
	for _, vid := range a.VendorIDs {
		v, ok := s.FindVendor(vid)
		if !ok {
			continue
		}

		var primaryID string
		s, primaryID = s.nextID("txn")
		newTxns = append(newTxns, Transaction{
			ID:          TransactionID(primaryID),
			VendorID:    vid,
			Date:        a.Date,
			Amount:      a.Amount,
			Direction:   Credit, // credits always reduce vendor liability
			Description: desc,
			BookingID:   a.BookingID,
			Matched:     true,
			Reference:   a.Reference,
			Category:    a.Category,
		})

		if tdsAmount.IsPositive() {
			var tdsID string
			s, tdsID = s.nextID("txn")
			newTxns = append(newTxns, Transaction{
				ID:          TransactionID(tdsID),
				VendorID:    vid,
				Date:        a.Date,
				Amount:      tdsAmount,
				Direction:   Credit,
				Description: CategoryTDS + " - " + a.Reference,
				BookingID:   a.BookingID,
				Matched:     true,
				Reference:   a.Reference,
				Category:    CategoryTDS,
			})
		}

		// Floor at zero: the vendor ledger never shows the company as a
		// creditor of its own supplier.
		v.Balance = v.Balance.Sub(a.Amount.Add(tdsAmount))
		if v.Balance.IsNegative() {
			v.Balance = decimal.Zero
		}
		v.LastActivity = now
		s.Vendors = replaceVendor(s.Vendors, v)
		paidIDs = append(paidIDs, string(vid))
	}

	if len(newTxns) == 0 {
		return s
	}
	s.Transactions = clonePrepend(s.Transactions, newTxns...)

	detail := fmt.Sprintf("Paid %s to %d vendor(s)", a.Amount.StringFixed(2), len(paidIDs))
	if tdsAmount.IsPositive() {
		detail += fmt.Sprintf(" with TDS %s each", tdsAmount.StringFixed(2))
	}
	s = s.withAudit(now, a.Name(), "Vendor", strings.Join(paidIDs, ","), detail, "", "")
	return s.withNotification(now, NotifySuccess, fmt.Sprintf("Vendor payment recorded for %d vendor(s)", len(paidIDs)))
}
