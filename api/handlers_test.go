package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/freight-ledger/api"
	"github.com/warp/freight-ledger/dispatch"
	"github.com/warp/freight-ledger/factory"
	"github.com/warp/freight-ledger/ledger"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	router    http.Handler
	container *dispatch.Container
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c := dispatch.New(factory.BuildState(time.Now()))
	h := api.NewHandler(c, zerolog.Nop())
	return &fixture{router: api.NewRouter(h, nil), container: c}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

// pendingVendorBooking finds the seeded booking that can complete a trip.
func pendingVendorBooking(t *testing.T, f *fixture) ledger.Booking {
	t.Helper()
	for _, b := range f.container.Snapshot().Bookings {
		if b.Status == ledger.BookingPending && b.VendorID != "" {
			return b
		}
	}
	t.Fatal("seed data has no pending vendor booking")
	return ledger.Booking{}
}

// =============================================================================
// INVOICES
// =============================================================================

func TestAPI_ListInvoices(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/invoices", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	invoices := decode[[]map[string]any](t, rec)
	assert.Len(t, invoices, 3)
	assert.NotEmpty(t, invoices[0]["display_status"])
}

func TestAPI_GetInvoice_NotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/invoices/nope", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "not_found", body["code"])
}

func TestAPI_CreateInvoice(t *testing.T) {
	// GIVEN: A seeded customer
	// WHEN: Posting a new invoice
	// THEN: 201 with the created record in sent status

	f := newFixture(t)
	customer := f.container.Snapshot().Customers[0]

	rec := f.do(t, http.MethodPost, "/api/invoices", map[string]any{
		"customer_id": string(customer.ID),
		"number":      "INV-2044",
		"issue_date":  "2026-03-15",
		"due_date":    "2026-04-14",
		"amount":      42000.0,
		"line_items": []map[string]any{
			{"description": "Freight Nashik -> Surat", "quantity": 1.0, "rate": 42000.0},
		},
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	assert.Equal(t, "INV-2044", created["number"])
	assert.Equal(t, "sent", created["status"])
	assert.Len(t, f.container.Snapshot().Invoices, 4)
}

func TestAPI_CreateInvoice_UnknownCustomer(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/invoices", map[string]any{
		"customer_id": "nope",
		"number":      "INV-2044",
		"issue_date":  "2026-03-15",
		"due_date":    "2026-04-14",
		"amount":      42000.0,
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_CreateInvoice_ValidationFailure(t *testing.T) {
	f := newFixture(t)

	// Missing amount and a malformed due date.
	rec := f.do(t, http.MethodPost, "/api/invoices", map[string]any{
		"customer_id": "cust-1",
		"number":      "INV-2044",
		"issue_date":  "2026-03-15",
		"due_date":    "someday",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "invalid_request", body["code"])
}

func TestAPI_RecordPayment(t *testing.T) {
	// GIVEN: The open seeded invoice
	// WHEN: Posting a full auto-TDS receipt
	// THEN: 200 with the invoice settled

	f := newFixture(t)
	var open ledger.Invoice
	for _, inv := range f.container.Snapshot().Invoices {
		if inv.Number == "INV-2041" {
			open = inv
		}
	}
	require.NotEmpty(t, open.ID)

	net := open.Amount.Mul(decimal.NewFromFloat(0.98))
	rec := f.do(t, http.MethodPost, fmt.Sprintf("/api/invoices/%s/payments", open.ID), map[string]any{
		"date":      "2026-03-15",
		"reference": "NEFT-90417",
		"amount":    net.InexactFloat64(),
		"direction": "credit",
		"category":  ledger.CategoryFullPayment,
		"auto_tds":  true,
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[map[string]any](t, rec)
	assert.Equal(t, "paid", updated["status"])
	assert.Equal(t, 0.0, updated["balance"])
}

func TestAPI_DeleteInvoice_ForbiddenForAccountant(t *testing.T) {
	// GIVEN: The acting user switched to the accountant
	// WHEN: Deleting an invoice
	// THEN: 403 and the invoice survives

	f := newFixture(t)
	snap := f.container.Snapshot()

	var accountant ledger.SystemUser
	for _, u := range snap.Users {
		if u.Role == ledger.RoleAccountant {
			accountant = u
		}
	}
	require.NotEmpty(t, accountant.ID)

	rec := f.do(t, http.MethodPost, "/api/users/current", map[string]any{"user_id": string(accountant.ID)})
	require.Equal(t, http.StatusNoContent, rec.Code)

	target := snap.Invoices[0].ID
	rec = f.do(t, http.MethodDelete, "/api/invoices/"+string(target), nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	_, stillThere := f.container.Snapshot().FindInvoice(target)
	assert.True(t, stillThere)
}

func TestAPI_DeleteInvoice_AdminAllowed(t *testing.T) {
	f := newFixture(t)
	target := f.container.Snapshot().Invoices[0].ID

	rec := f.do(t, http.MethodDelete, "/api/invoices/"+string(target), nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, stillThere := f.container.Snapshot().FindInvoice(target)
	assert.False(t, stillThere)
}

// =============================================================================
// CUSTOMERS
// =============================================================================

func TestAPI_CustomerStatement(t *testing.T) {
	// GIVEN: The customer with a seeded receipt and TDS split
	// WHEN: Fetching the statement
	// THEN: Rows come back newest-first with running balances

	f := newFixture(t)
	snap := f.container.Snapshot()

	var meridian ledger.Customer
	for _, c := range snap.Customers {
		if c.Name == "Meridian Steel Works" {
			meridian = c
		}
	}
	require.NotEmpty(t, meridian.ID)

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/api/customers/%s/statement", meridian.ID), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode[[]map[string]any](t, rec)
	require.Len(t, rows, 3, "invoice + receipt + tds split")
	assert.Equal(t, "invoice", rows[len(rows)-1]["kind"])
}

func TestAPI_CustomerReceivables(t *testing.T) {
	f := newFixture(t)
	customer := f.container.Snapshot().Customers[0]

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/api/customers/%s/receivables", customer.ID), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, string(customer.ID), body["customer_id"])
	assert.NotNil(t, body["current_exposure"])
	assert.NotNil(t, body["over_limit"])
}

// =============================================================================
// VENDORS, BOOKINGS, EXPENSES
// =============================================================================

func TestAPI_VendorPayment(t *testing.T) {
	f := newFixture(t)
	vendor := f.container.Snapshot().Vendors[0]

	rec := f.do(t, http.MethodPost, "/api/vendors/payments", map[string]any{
		"vendor_ids": []string{string(vendor.ID)},
		"date":       "2026-03-15",
		"amount":     4900.0,
		"category":   ledger.CategoryFullPayment,
		"reference":  "UTR-777",
		"auto_tds":   true,
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	vendors := decode[[]map[string]any](t, rec)
	require.Len(t, vendors, 1)

	want := vendor.Balance.Sub(decimal.NewFromInt(5000))
	assert.Equal(t, want.InexactFloat64(), vendors[0]["balance"])
}

func TestAPI_CompleteTrip_ThenConflictOnReplay(t *testing.T) {
	f := newFixture(t)
	booking := pendingVendorBooking(t, f)

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/api/bookings/%s/complete", booking.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/bookings/%s/complete", booking.ID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_CreateExpense_InvalidCategory(t *testing.T) {
	f := newFixture(t)
	vehicle := f.container.Snapshot().Vehicles[0]

	rec := f.do(t, http.MethodPost, "/api/expenses", map[string]any{
		"vehicle_id": string(vehicle.ID),
		"category":   "Snacks",
		"amount":     500.0,
		"date":       "2026-03-15",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_ApproveExpense_Flow(t *testing.T) {
	// GIVEN: The seeded pending-approval expense
	// WHEN: Approving it twice
	// THEN: 200 then 409

	f := newFixture(t)
	var pending ledger.Expense
	for _, e := range f.container.Snapshot().Expenses {
		if e.Status == ledger.ExpensePendingApproval {
			pending = e
		}
	}
	require.NotEmpty(t, pending.ID)

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/api/expenses/%s/approve", pending.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	approved := decode[map[string]any](t, rec)
	assert.Equal(t, string(ledger.ExpenseApproved), approved["status"])

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/expenses/%s/approve", pending.ID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// =============================================================================
// BANK, AUDIT, NOTIFICATIONS
// =============================================================================

func TestAPI_MatchBankTransaction(t *testing.T) {
	f := newFixture(t)

	var unmatched ledger.BankTransaction
	for _, bt := range f.container.Snapshot().BankFeed {
		if bt.Status == ledger.BankUnmatched {
			unmatched = bt
		}
	}
	require.NotEmpty(t, unmatched.ID)

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/api/bank/transactions/%s/match", unmatched.ID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/bank/transactions/%s/match", unmatched.ID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_AuditTrailGrowsWithActions(t *testing.T) {
	f := newFixture(t)

	before := decode[[]map[string]any](t, f.do(t, http.MethodGet, "/api/audit", nil))

	target := f.container.Snapshot().Invoices[0].ID
	f.do(t, http.MethodDelete, "/api/invoices/"+string(target), nil)

	after := decode[[]map[string]any](t, f.do(t, http.MethodGet, "/api/audit", nil))
	require.Len(t, after, len(before)+1)
	assert.Equal(t, "Delete Invoice", after[0]["action"], "newest entry first")
}

func TestAPI_NotificationsDismiss(t *testing.T) {
	f := newFixture(t)

	// Generate one notification.
	target := f.container.Snapshot().Invoices[0].ID
	f.do(t, http.MethodDelete, "/api/invoices/"+string(target), nil)

	list := decode[[]map[string]any](t, f.do(t, http.MethodGet, "/api/notifications", nil))
	require.NotEmpty(t, list)

	id := list[0]["id"].(string)
	rec := f.do(t, http.MethodDelete, "/api/notifications/"+id, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	remaining := decode[[]map[string]any](t, f.do(t, http.MethodGet, "/api/notifications", nil))
	assert.Len(t, remaining, len(list)-1)
}
