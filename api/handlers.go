/*
handlers.go - HTTP handlers over the dispatch container

PURPOSE:
  Each write handler validates its request, checks referenced entities
  exist in the current snapshot, constructs exactly one action, and
  dispatches it. Each read handler renders a snapshot through the ledger
  derivation functions - handlers never re-derive balances inline.

DIVISION OF LABOR WITH THE REDUCER:
  The reducer tolerates stale references by design (silent no-op); it is
  this layer's job to turn them into 404s before dispatch. Credit-limit
  checking is likewise advisory and lives here (the receivables endpoint),
  never in the reducer. The one rule enforced in BOTH places is the
  accountant deletion gate: the reducer is authoritative, this layer just
  reports it as 403 instead of a notification.

ERROR HANDLING:
  - 400: malformed JSON, validation failures
  - 403: role denial
  - 404: referenced entity absent
  - 409: duplicate posting / precondition conflicts
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/warp/freight-ledger/dispatch"
	"github.com/warp/freight-ledger/ledger"
)

// Handler holds the HTTP layer's dependencies.
type Handler struct {
	container *dispatch.Container
	validate  *validator.Validate
	log       zerolog.Logger
	clock     func() time.Time
}

// NewHandler creates a handler around a dispatch container.
func NewHandler(c *dispatch.Container, log zerolog.Logger) *Handler {
	return &Handler{
		container: c,
		validate:  validator.New(),
		log:       log,
		clock:     time.Now,
	}
}

// =============================================================================
// INVOICES
// =============================================================================

func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	snap := h.container.Snapshot()
	today := h.clock()

	dtos := make([]InvoiceDTO, len(snap.Invoices))
	for i, inv := range snap.Invoices {
		dtos[i] = toInvoiceDTO(inv, today)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	snap := h.container.Snapshot()
	inv, ok := snap.FindInvoice(ledger.InvoiceID(chi.URLParam(r, "id")))
	if !ok {
		writeError(w, http.StatusNotFound, &ledger.NotFoundError{EntityType: "invoice", EntityID: chi.URLParam(r, "id")})
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(inv, h.clock()))
}

func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	snap := h.container.Snapshot()
	if _, ok := snap.FindCustomer(ledger.CustomerID(req.CustomerID)); !ok {
		writeError(w, http.StatusNotFound, &ledger.NotFoundError{EntityType: "customer", EntityID: req.CustomerID})
		return
	}

	issue, _ := time.Parse(dateLayout, req.IssueDate)
	due, _ := time.Parse(dateLayout, req.DueDate)

	items := make([]ledger.LineItem, len(req.LineItems))
	for i, li := range req.LineItems {
		qty := decimal.NewFromFloat(li.Quantity)
		rate := decimal.NewFromFloat(li.Rate)
		items[i] = ledger.LineItem{
			Description: li.Description,
			Quantity:    qty,
			Rate:        rate,
			Amount:      qty.Mul(rate),
		}
	}

	inv := ledger.Invoice{
		ID:          ledger.InvoiceID(uuid.NewString()),
		CustomerID:  ledger.CustomerID(req.CustomerID),
		Number:      req.Number,
		IssueDate:   issue,
		DueDate:     due,
		Amount:      decimal.NewFromFloat(req.Amount),
		PaidAmount:  decimal.NullDecimal{Decimal: decimal.Zero, Valid: true},
		Adjustments: decimal.Zero,
		LineItems:   items,
		Notes:       req.Notes,
	}

	next := h.container.Dispatch(ledger.AddInvoice{Invoice: inv})
	created, _ := next.FindInvoice(inv.ID)
	writeJSON(w, http.StatusCreated, toInvoiceDTO(created, h.clock()))
}

func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	id := ledger.InvoiceID(chi.URLParam(r, "id"))
	snap := h.container.Snapshot()

	if _, ok := snap.FindInvoice(id); !ok {
		writeError(w, http.StatusNotFound, &ledger.NotFoundError{EntityType: "invoice", EntityID: string(id)})
		return
	}

	next := h.container.Dispatch(ledger.DeleteInvoice{InvoiceID: id})
	if _, still := next.FindInvoice(id); still {
		// The reducer refused: the acting role may not delete invoices.
		writeError(w, http.StatusForbidden, fmt.Errorf("%w: %s may not delete invoices", ledger.ErrForbidden, next.CurrentUser.Role))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id := ledger.InvoiceID(chi.URLParam(r, "id"))

	var req RecordPaymentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	snap := h.container.Snapshot()
	if _, ok := snap.FindInvoice(id); !ok {
		writeError(w, http.StatusNotFound, &ledger.NotFoundError{EntityType: "invoice", EntityID: string(id)})
		return
	}

	date, _ := time.Parse(dateLayout, req.Date)
	next := h.container.Dispatch(ledger.RecordPayment{
		InvoiceID:       id,
		Date:            date,
		Reference:       req.Reference,
		Amount:          decimal.NewFromFloat(req.Amount),
		Direction:       ledger.Direction(req.Direction),
		Category:        req.Category,
		DebitNoteNumber: req.DebitNoteNumber,
		AutoTDS:         req.AutoTDS,
	})

	updated, _ := next.FindInvoice(id)
	writeJSON(w, http.StatusOK, toInvoiceDTO(updated, h.clock()))
}

func (h *Handler) SendReminders(w http.ResponseWriter, r *http.Request) {
	var req RemindersRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	ids := make([]ledger.InvoiceID, len(req.InvoiceIDs))
	for i, id := range req.InvoiceIDs {
		ids[i] = ledger.InvoiceID(id)
	}
	h.container.Dispatch(ledger.SendReminders{InvoiceIDs: ids})
	w.WriteHeader(http.StatusAccepted)
}

// =============================================================================
// CUSTOMERS
// =============================================================================

func (h *Handler) CustomerStatement(w http.ResponseWriter, r *http.Request) {
	id := ledger.CustomerID(chi.URLParam(r, "id"))
	snap := h.container.Snapshot()
	if _, ok := snap.FindCustomer(id); !ok {
		writeError(w, http.StatusNotFound, &ledger.NotFoundError{EntityType: "customer", EntityID: string(id)})
		return
	}

	rows := ledger.BuildCustomerLedger(snap.Invoices, snap.Transactions, id, h.clock())
	dtos := make([]StatementRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toStatementRowDTO(row)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CustomerReceivables(w http.ResponseWriter, r *http.Request) {
	id := ledger.CustomerID(chi.URLParam(r, "id"))
	snap := h.container.Snapshot()
	customer, ok := snap.FindCustomer(id)
	if !ok {
		writeError(w, http.StatusNotFound, &ledger.NotFoundError{EntityType: "customer", EntityID: string(id)})
		return
	}

	// Exposure over the customer's FULL invoice set; a filtered list would
	// understate the credit risk.
	invoices := snap.InvoicesForCustomer(id)
	exposure := ledger.DeriveCustomerExposure(invoices)
	dso := ledger.DeriveDSO(invoices, exposure, h.clock(), ledger.DefaultDSOLookbackDays)

	writeJSON(w, http.StatusOK, ReceivablesDTO{
		CustomerID:      string(id),
		CurrentExposure: money(exposure),
		CreditLimit:     money(customer.CreditLimit),
		OverLimit:       exposure.GreaterThan(customer.CreditLimit),
		DSODays:         dso,
	})
}

// =============================================================================
// VENDORS
// =============================================================================

func (h *Handler) ListVendors(w http.ResponseWriter, r *http.Request) {
	snap := h.container.Snapshot()
	dtos := make([]VendorDTO, len(snap.Vendors))
	for i, v := range snap.Vendors {
		dtos[i] = toVendorDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) VendorStatement(w http.ResponseWriter, r *http.Request) {
	id := ledger.VendorID(chi.URLParam(r, "id"))
	snap := h.container.Snapshot()
	if _, ok := snap.FindVendor(id); !ok {
		writeError(w, http.StatusNotFound, &ledger.NotFoundError{EntityType: "vendor", EntityID: string(id)})
		return
	}

	rows := ledger.BuildVendorLedger(snap.Expenses, snap.Transactions, id)
	dtos := make([]StatementRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toStatementRowDTO(row)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) RecordVendorPayment(w http.ResponseWriter, r *http.Request) {
	var req VendorPaymentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	snap := h.container.Snapshot()
	ids := make([]ledger.VendorID, 0, len(req.VendorIDs))
	for _, raw := range req.VendorIDs {
		id := ledger.VendorID(raw)
		if _, ok := snap.FindVendor(id); !ok {
			writeError(w, http.StatusNotFound, &ledger.NotFoundError{EntityType: "vendor", EntityID: raw})
			return
		}
		ids = append(ids, id)
	}

	date, _ := time.Parse(dateLayout, req.Date)
	next := h.container.Dispatch(ledger.RecordVendorPayment{
		VendorIDs: ids,
		Date:      date,
		Amount:    decimal.NewFromFloat(req.Amount),
		Category:  req.Category,
		Reference: req.Reference,
		AutoTDS:   req.AutoTDS,
		BookingID: ledger.BookingID(req.BookingID),
	})

	dtos := make([]VendorDTO, 0, len(ids))
	for _, id := range ids {
		if v, ok := next.FindVendor(id); ok {
			dtos = append(dtos, toVendorDTO(v))
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// BOOKINGS
// =============================================================================

func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	snap := h.container.Snapshot()
	dtos := make([]BookingDTO, len(snap.Bookings))
	for i, b := range snap.Bookings {
		dtos[i] = toBookingDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	snap := h.container.Snapshot()
	if _, ok := snap.FindCustomer(ledger.CustomerID(req.CustomerID)); !ok {
		writeError(w, http.StatusNotFound, &ledger.NotFoundError{EntityType: "customer", EntityID: req.CustomerID})
		return
	}

	booked, _ := time.Parse(dateLayout, req.BookedDate)
	b := ledger.Booking{
		ID:          ledger.BookingID(uuid.NewString()),
		CustomerID:  ledger.CustomerID(req.CustomerID),
		Origin:      req.Origin,
		Destination: req.Destination,
		DistanceKM:  decimal.NewFromFloat(req.DistanceKM),
		VehicleID:   ledger.VehicleID(req.VehicleID),
		DriverName:  req.DriverName,
		BookedDate:  booked,
		Amount:      decimal.NewFromFloat(req.Amount),
		Expense:     decimal.NewFromFloat(req.Expense),
		VendorID:    ledger.VendorID(req.VendorID),
	}

	next := h.container.Dispatch(ledger.AddBooking{Booking: b})
	created, _ := next.FindBooking(b.ID)
	writeJSON(w, http.StatusCreated, toBookingDTO(created))
}

func (h *Handler) CompleteTrip(w http.ResponseWriter, r *http.Request) {
	id := ledger.BookingID(chi.URLParam(r, "id"))
	snap := h.container.Snapshot()

	b, ok := snap.FindBooking(id)
	if !ok {
		writeError(w, http.StatusNotFound, &ledger.NotFoundError{EntityType: "booking", EntityID: string(id)})
		return
	}
	if b.VendorID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: booking %s has no vendor assigned", ledger.ErrInvalidAction, id))
		return
	}
	if snap.HasFreightExpense(id) {
		writeError(w, http.StatusConflict, fmt.Errorf("freight already posted for booking %s", id))
		return
	}

	next := h.container.Dispatch(ledger.CompleteTrip{BookingID: id})
	completed, _ := next.FindBooking(id)
	writeJSON(w, http.StatusOK, toBookingDTO(completed))
}

func (h *Handler) MarkBookingsInvoiced(w http.ResponseWriter, r *http.Request) {
	var req MarkInvoicedRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	ids := make([]ledger.BookingID, len(req.BookingIDs))
	for i, id := range req.BookingIDs {
		ids[i] = ledger.BookingID(id)
	}
	h.container.Dispatch(ledger.MarkBookingsInvoiced{BookingIDs: ids})
	w.WriteHeader(http.StatusAccepted)
}

// =============================================================================
// EXPENSES
// =============================================================================

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	snap := h.container.Snapshot()
	dtos := make([]ExpenseDTO, len(snap.Expenses))
	for i, e := range snap.Expenses {
		dtos[i] = toExpenseDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req CreateExpenseRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	snap := h.container.Snapshot()
	if _, ok := snap.FindVehicle(ledger.VehicleID(req.VehicleID)); !ok {
		writeError(w, http.StatusNotFound, &ledger.NotFoundError{EntityType: "vehicle", EntityID: req.VehicleID})
		return
	}

	date, _ := time.Parse(dateLayout, req.Date)
	e := ledger.Expense{
		ID:          ledger.ExpenseID(uuid.NewString()),
		VehicleID:   ledger.VehicleID(req.VehicleID),
		Category:    ledger.ExpenseCategory(req.Category),
		Amount:      decimal.NewFromFloat(req.Amount),
		Date:        date,
		VendorID:    ledger.VendorID(req.VendorID),
		EntryType:   ledger.EntryManual,
		Description: req.Description,
	}

	next := h.container.Dispatch(ledger.AddExpense{Expense: e})
	created, _ := next.FindExpense(e.ID)
	writeJSON(w, http.StatusCreated, toExpenseDTO(created))
}

func (h *Handler) ApproveExpense(w http.ResponseWriter, r *http.Request) {
	id := ledger.ExpenseID(chi.URLParam(r, "id"))
	snap := h.container.Snapshot()

	e, ok := snap.FindExpense(id)
	if !ok {
		writeError(w, http.StatusNotFound, &ledger.NotFoundError{EntityType: "expense", EntityID: string(id)})
		return
	}
	if e.Status != ledger.ExpensePendingApproval {
		writeError(w, http.StatusConflict, fmt.Errorf("expense %s is not pending approval", id))
		return
	}

	next := h.container.Dispatch(ledger.ApproveExpense{ExpenseID: id})
	approved, _ := next.FindExpense(id)
	writeJSON(w, http.StatusOK, toExpenseDTO(approved))
}

// =============================================================================
// BANK RECONCILIATION
// =============================================================================

func (h *Handler) MatchBankTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.BankTransactionID(chi.URLParam(r, "id"))
	snap := h.container.Snapshot()

	var found *ledger.BankTransaction
	for i := range snap.BankFeed {
		if snap.BankFeed[i].ID == id {
			found = &snap.BankFeed[i]
			break
		}
	}
	if found == nil {
		writeError(w, http.StatusNotFound, &ledger.NotFoundError{EntityType: "bank transaction", EntityID: string(id)})
		return
	}
	if found.Status == ledger.BankMatched {
		writeError(w, http.StatusConflict, fmt.Errorf("bank transaction %s is already matched", id))
		return
	}

	h.container.Dispatch(ledger.MatchBankTransaction{BankTransactionID: id})
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// AUDIT, NOTIFICATIONS, USERS
// =============================================================================

func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	snap := h.container.Snapshot()

	limit := len(snap.AuditLogs)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n < limit {
			limit = n
		}
	}

	// Newest first; the trail itself is stored oldest first.
	dtos := make([]AuditLogDTO, 0, limit)
	for i := len(snap.AuditLogs) - 1; i >= 0 && len(dtos) < limit; i-- {
		dtos = append(dtos, toAuditLogDTO(snap.AuditLogs[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	snap := h.container.Snapshot()
	dtos := make([]NotificationDTO, len(snap.Notifications))
	for i, n := range snap.Notifications {
		dtos[i] = toNotificationDTO(n)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	id := ledger.NotificationID(chi.URLParam(r, "id"))
	h.container.Dispatch(ledger.DismissNotification{NotificationID: id})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetCurrentUser(w http.ResponseWriter, r *http.Request) {
	var req SetUserRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	snap := h.container.Snapshot()
	if _, ok := snap.FindUser(ledger.UserID(req.UserID)); !ok {
		writeError(w, http.StatusNotFound, &ledger.NotFoundError{EntityType: "user", EntityID: req.UserID})
		return
	}

	h.container.Dispatch(ledger.SetUser{UserID: ledger.UserID(req.UserID)})
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

// decodeAndValidate parses the body and runs struct validation, writing a
// 400 and returning false on failure.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", ledger.ErrInvalidAction, err))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", ledger.ErrInvalidAction, verrs))
			return false
		}
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	var code string
	switch {
	case ledger.IsNotFound(err):
		code = "not_found"
	case errors.Is(err, ledger.ErrForbidden):
		code = "forbidden"
	case errors.Is(err, ledger.ErrInvalidAction):
		code = "invalid_request"
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}
