package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/freight-ledger/ledger"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// paymentState seeds one customer with one open 10,000 invoice due the day
// before `now`.
func paymentState(now time.Time) ledger.State {
	return ledger.Reduce(ledger.State{}, ledger.SetData{
		Users: []ledger.SystemUser{
			{ID: "usr-1", Name: "Meera Nair", Role: ledger.RoleAdmin},
		},
		Customers: []ledger.Customer{
			{ID: "cust-1", Name: "Sunrise Agro", CreditLimit: inr(500000)},
		},
		Invoices: []ledger.Invoice{{
			ID:         "inv-1",
			CustomerID: "cust-1",
			Number:     "INV-2041",
			Status:     ledger.InvoiceSent,
			IssueDate:  now.AddDate(0, -1, 0),
			DueDate:    now.AddDate(0, 0, -1),
			Amount:     inr(10000),
			PaidAmount: paid(0),
		}},
	}, now)
}

func findTxnByCategory(txns []ledger.Transaction, category string) (ledger.Transaction, bool) {
	for _, tx := range txns {
		if tx.Category == category {
			return tx, true
		}
	}
	return ledger.Transaction{}, false
}

// =============================================================================
// CUSTOMER PAYMENTS
// =============================================================================

func TestRecordPayment_PartialCash(t *testing.T) {
	// GIVEN: An open 10,000 invoice, due yesterday
	// WHEN: Receiving 4,900 as a partial cash payment
	// THEN: paidAmount 4,900, balance 5,100; status is sent (the
	//       open-but-partially-settled case), not overdue

	now := day(2026, time.March, 15)
	s := paymentState(now)

	next := ledger.Reduce(s, ledger.RecordPayment{
		InvoiceID: "inv-1",
		Date:      now,
		Reference: "NEFT-881",
		Amount:    inr(4900),
		Direction: ledger.Credit,
		Category:  ledger.CategoryPartialPayment,
	}, now)

	inv, ok := next.FindInvoice("inv-1")
	require.True(t, ok)
	assert.True(t, inv.PaidAmount.Decimal.Equal(inr(4900)))
	assert.Equal(t, ledger.InvoiceSent, inv.Status)

	view := ledger.DeriveInvoiceView(inv, now)
	assert.True(t, view.Balance.Equal(inr(5100)))

	require.Len(t, next.Transactions, 1)
	tx := next.Transactions[0]
	assert.Equal(t, "Partial payment - INV-2041", tx.Description)
	assert.True(t, tx.Matched)
}

func TestRecordPayment_AutoTDSRoundTrip(t *testing.T) {
	// GIVEN: An open 10,000 invoice; the customer remits 9,800 net of the
	//        2% they withheld at source
	// WHEN: Recording the receipt with auto-TDS
	// THEN: TDS of 200 lands in adjustments, paid 9,800, balance exactly
	//       zero, status paid; two transactions, the TDS split second

	now := day(2026, time.March, 15)
	s := paymentState(now)

	next := ledger.Reduce(s, ledger.RecordPayment{
		InvoiceID: "inv-1",
		Date:      now,
		Reference: "NEFT-882",
		Amount:    inr(9800),
		Direction: ledger.Credit,
		Category:  ledger.CategoryFullPayment,
		AutoTDS:   true,
	}, now)

	inv, ok := next.FindInvoice("inv-1")
	require.True(t, ok)
	assert.True(t, inv.PaidAmount.Decimal.Equal(inr(9800)))
	assert.True(t, inv.Adjustments.Equal(inr(200)), "tds = 9800/0.98*0.02")
	assert.Equal(t, ledger.InvoicePaid, inv.Status)
	assert.True(t, inv.Amount.Sub(inv.PaidAmount.Decimal.Add(inv.Adjustments)).IsZero())

	require.Len(t, next.Transactions, 2)
	primary := next.Transactions[0]
	split := next.Transactions[1]
	assert.Equal(t, "Bank Receipt - INV-2041", primary.Description)
	assert.Equal(t, ledger.CategoryTDSDeduction, split.Category)
	assert.True(t, split.Amount.Equal(inr(200)))
	assert.True(t, string(primary.ID) < string(split.ID), "split id sorts after primary")
}

func TestRecordPayment_NonCashCreditMovesAdjustments(t *testing.T) {
	// GIVEN: An open invoice
	// WHEN: Recording a credit note of 500
	// THEN: Adjustments rise, cash paidAmount untouched, no TDS split even
	//       with the auto flag set

	now := day(2026, time.March, 15)
	s := paymentState(now)

	next := ledger.Reduce(s, ledger.RecordPayment{
		InvoiceID: "inv-1",
		Date:      now,
		Amount:    inr(500),
		Direction: ledger.Credit,
		Category:  ledger.CategoryCreditNote,
		AutoTDS:   true, // must be ignored on a non-cash category
	}, now)

	inv, _ := next.FindInvoice("inv-1")
	assert.True(t, inv.Adjustments.Equal(inr(500)))
	assert.True(t, inv.PaidAmount.Decimal.IsZero())
	assert.Len(t, next.Transactions, 1)
}

func TestRecordPayment_DebitRaisesBalance(t *testing.T) {
	// GIVEN: An invoice already fully settled
	// WHEN: Posting a 1,000 cash debit (refund / bounced receipt)
	// THEN: paidAmount drops and the invoice reopens; overdue because the
	//       due date is past and the balance is back at full exposure level

	now := day(2026, time.March, 15)
	s := paymentState(now)
	s = ledger.Reduce(s, ledger.RecordPayment{
		InvoiceID: "inv-1", Date: now, Amount: inr(10000),
		Direction: ledger.Credit, Category: ledger.CategoryFullPayment,
	}, now)

	next := ledger.Reduce(s, ledger.RecordPayment{
		InvoiceID:       "inv-1",
		Date:            now,
		Amount:          inr(10000),
		Direction:       ledger.Debit,
		Category:        ledger.CategoryDebitNote,
		DebitNoteNumber: "DN-7",
	}, now)

	inv, _ := next.FindInvoice("inv-1")
	assert.True(t, inv.PaidAmount.Decimal.IsZero())
	assert.Equal(t, ledger.InvoiceOverdue, inv.Status)

	tx := next.Transactions[0]
	assert.Equal(t, "Debit note - INV-2041 (DN: DN-7)", tx.Description)
}

func TestRecordPayment_UnknownInvoiceIsNoOp(t *testing.T) {
	// GIVEN: A state without the referenced invoice
	// WHEN: Recording a payment against it
	// THEN: The state comes back unchanged - no transaction, no audit entry

	now := day(2026, time.March, 15)
	s := paymentState(now)

	next := ledger.Reduce(s, ledger.RecordPayment{
		InvoiceID: "inv-missing",
		Date:      now,
		Amount:    inr(100),
		Direction: ledger.Credit,
		Category:  ledger.CategoryFullPayment,
	}, now)

	assert.Equal(t, s, next)
}

func TestRecordPayment_AuditEntryWritten(t *testing.T) {
	// GIVEN: An open invoice
	// WHEN: Recording a payment
	// THEN: Exactly one audit entry, attributed to the current user, with
	//       the before/after status pair

	now := day(2026, time.March, 15)
	s := paymentState(now)
	before := len(s.AuditLogs)

	next := ledger.Reduce(s, ledger.RecordPayment{
		InvoiceID: "inv-1", Date: now, Amount: inr(9800),
		Direction: ledger.Credit, Category: ledger.CategoryFullPayment, AutoTDS: true,
	}, now)

	require.Len(t, next.AuditLogs, before+1)
	entry := next.AuditLogs[len(next.AuditLogs)-1]
	assert.Equal(t, "Meera Nair", entry.UserName)
	assert.Equal(t, "Invoice", entry.EntityType)
	assert.Equal(t, string(ledger.InvoiceSent), entry.OldValue)
	assert.Equal(t, string(ledger.InvoicePaid), entry.NewValue)
	assert.Contains(t, entry.Details, "TDS 2% applied")
}

// =============================================================================
// VENDOR PAYMENTS
// =============================================================================

func vendorState(now time.Time) ledger.State {
	return ledger.Reduce(ledger.State{}, ledger.SetData{
		Users: []ledger.SystemUser{{ID: "usr-1", Name: "Meera Nair", Role: ledger.RoleAdmin}},
		Vendors: []ledger.Vendor{
			{ID: "vnd-1", Name: "Highway Star", Code: "VND-001", Balance: inr(10000)},
			{ID: "vnd-2", Name: "Gati Prime", Code: "VND-002", Balance: inr(1000)},
		},
	}, now)
}

func TestRecordVendorPayment_AutoTDS(t *testing.T) {
	// GIVEN: A vendor owed 10,000
	// WHEN: Paying 4,900 net with auto-TDS (withheld 100)
	// THEN: Balance drops by the 5,000 gross; one bank-payment transaction
	//       plus one TDS transaction, both credits

	now := day(2026, time.March, 15)
	s := vendorState(now)

	next := ledger.Reduce(s, ledger.RecordVendorPayment{
		VendorIDs: []ledger.VendorID{"vnd-1"},
		Date:      now,
		Amount:    inr(4900),
		Category:  ledger.CategoryFullPayment,
		Reference: "UTR-3321",
		AutoTDS:   true,
	}, now)

	v, _ := next.FindVendor("vnd-1")
	assert.True(t, v.Balance.Equal(inr(5000)), "10000 - (4900 + 100)")
	assert.Equal(t, now, v.LastActivity)

	require.Len(t, next.Transactions, 2)
	tds, ok := findTxnByCategory(next.Transactions, ledger.CategoryTDS)
	require.True(t, ok)
	assert.True(t, tds.Amount.Equal(inr(100)))
	for _, tx := range next.Transactions {
		assert.Equal(t, ledger.Credit, tx.Direction)
	}
}

func TestRecordVendorPayment_BalanceFlooredAtZero(t *testing.T) {
	// GIVEN: A vendor owed only 1,000
	// WHEN: Paying 4,900
	// THEN: The balance floors at zero rather than going negative

	now := day(2026, time.March, 15)
	s := vendorState(now)

	next := ledger.Reduce(s, ledger.RecordVendorPayment{
		VendorIDs: []ledger.VendorID{"vnd-2"},
		Date:      now,
		Amount:    inr(4900),
		Category:  ledger.CategoryFullPayment,
		Reference: "UTR-3322",
	}, now)

	v, _ := next.FindVendor("vnd-2")
	assert.True(t, v.Balance.IsZero())
}

func TestRecordVendorPayment_BulkAppliesAmountPerVendor(t *testing.T) {
	// GIVEN: Two vendors in one batch
	// WHEN: Paying 1,000 with no TDS
	// THEN: Each vendor's balance drops by 1,000 independently; one audit
	//       entry covers the whole batch

	now := day(2026, time.March, 15)
	s := vendorState(now)
	auditBefore := len(s.AuditLogs)

	next := ledger.Reduce(s, ledger.RecordVendorPayment{
		VendorIDs: []ledger.VendorID{"vnd-1", "vnd-2"},
		Date:      now,
		Amount:    inr(1000),
		Category:  ledger.CategoryFullPayment,
		Reference: "UTR-3323",
	}, now)

	v1, _ := next.FindVendor("vnd-1")
	v2, _ := next.FindVendor("vnd-2")
	assert.True(t, v1.Balance.Equal(inr(9000)))
	assert.True(t, v2.Balance.IsZero())

	assert.Len(t, next.Transactions, 2)
	assert.Len(t, next.AuditLogs, auditBefore+1, "one audit entry for the batch")
}

func TestRecordVendorPayment_TripDeductionDescription(t *testing.T) {
	// GIVEN: A shortage deduction tied to a booking
	// WHEN: Recording it without auto-TDS
	// THEN: The transaction description carries the category, reference
	//       and trip id

	now := day(2026, time.March, 15)
	s := vendorState(now)

	next := ledger.Reduce(s, ledger.RecordVendorPayment{
		VendorIDs: []ledger.VendorID{"vnd-1"},
		Date:      now,
		Amount:    inr(250),
		Category:  ledger.CategoryShortageDeduction,
		Reference: "CLAIM-9",
		BookingID: "bkg-7",
	}, now)

	require.Len(t, next.Transactions, 1)
	tx := next.Transactions[0]
	assert.Equal(t, "Shortage Deduction - CLAIM-9 (Trip: bkg-7)", tx.Description)
	assert.Equal(t, ledger.BookingID("bkg-7"), tx.BookingID)
}

func TestRecordVendorPayment_EmptyBatchIsNoOp(t *testing.T) {
	// GIVEN: No vendor ids
	// WHEN: Dispatching a vendor payment
	// THEN: Unchanged state

	now := day(2026, time.March, 15)
	s := vendorState(now)

	next := ledger.Reduce(s, ledger.RecordVendorPayment{Date: now, Amount: inr(100)}, now)
	assert.Equal(t, s, next)
}
