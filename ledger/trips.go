/*
trips.go - Trip bookings, freight auto-posting, expense approval

PURPOSE:
  Links trip economics to the vendor ledger. Completing a trip with an
  assigned vendor posts the booking's freight cost exactly once: one
  pre-approved Auto expense plus a vendor liability increase. The guard is
  structural - the posting is rejected whenever a Freight expense for the
  booking already exists - so replays, double-clicks and stale dispatches
  cannot double-book the liability.

APPROVAL GATE:
  Manual expenses above ExpenseApprovalThreshold are created
  pending_approval and must be explicitly approved before they count as
  settled. Auto-posted freight is always pre-approved.
*/
package ledger

import (
	"fmt"
	"time"
)

// =============================================================================
// BOOKINGS
// =============================================================================

func (r Reducer) addBooking(s State, a AddBooking, now time.Time) State {
	b := a.Booking
	if b.ID == "" {
		var id string
		s, id = s.nextID("bkg")
		b.ID = BookingID(id)
	}
	if b.Status == "" {
		b.Status = BookingPending
	}

	s.Bookings = cloneAppend(s.Bookings, b)
	s = s.withAudit(now, AddBooking{}.Name(), "Booking", string(b.ID),
		fmt.Sprintf("Created booking %s -> %s", b.Origin, b.Destination), "", string(b.Status))
	return s.withNotification(now, NotifySuccess, fmt.Sprintf("Booking %s created", b.ID))
}

func (r Reducer) completeTrip(s State, a CompleteTrip, now time.Time) State {
	b, ok := s.FindBooking(a.BookingID)
	if !ok {
		return s.withNotification(now, NotifyError, "Booking not found")
	}
	if b.VendorID == "" {
		return s.withNotification(now, NotifyError, fmt.Sprintf("Booking %s has no vendor assigned", b.ID))
	}
	v, ok := s.FindVendor(b.VendorID)
	if !ok {
		return s.withNotification(now, NotifyError, fmt.Sprintf("Vendor %s not found for booking %s", b.VendorID, b.ID))
	}

	// Idempotency guard: the freight liability for a booking exists at most
	// once, no matter how often the trip is completed.
	if s.HasFreightExpense(b.ID) {
		return s.withNotification(now, NotifyWarning, fmt.Sprintf("Freight already posted for booking %s", b.ID))
	}

	var expID string
	s, expID = s.nextID("exp")
	expense := Expense{
		ID:          ExpenseID(expID),
		VehicleID:   b.VehicleID,
		Category:    ExpenseFreight,
		Amount:      b.Expense,
		Date:        now,
		VendorID:    b.VendorID,
		BookingID:   b.ID,
		EntryType:   EntryAuto,
		Status:      ExpenseApproved, // auto-posted freight is pre-approved
		Description: fmt.Sprintf("Freight charges %s -> %s", b.Origin, b.Destination),
	}
	s.Expenses = cloneAppend(s.Expenses, expense)

	v.Balance = v.Balance.Add(b.Expense)
	v.LastActivity = now
	s.Vendors = replaceVendor(s.Vendors, v)

	if b.CompletedDate == nil {
		completed := now
		b.CompletedDate = &completed
		s.Bookings = replaceBooking(s.Bookings, b)
	}

	s = s.withAudit(now, "Post Expense", "Expense", string(expense.ID),
		fmt.Sprintf("Auto-posted freight %s for booking %s to vendor %s", b.Expense.StringFixed(2), b.ID, v.Name),
		"Pending", "Posted")
	return s.withNotification(now, NotifySuccess, fmt.Sprintf("Freight posted for booking %s", b.ID))
}

func (r Reducer) markBookingsInvoiced(s State, a MarkBookingsInvoiced, now time.Time) State {
	if len(a.BookingIDs) == 0 {
		return s
	}

	wanted := make(map[BookingID]bool, len(a.BookingIDs))
	for _, id := range a.BookingIDs {
		wanted[id] = true
	}

	flipped := 0
	bookings := make([]Booking, len(s.Bookings))
	for i, b := range s.Bookings {
		if wanted[b.ID] && b.Status == BookingPending {
			b.Status = BookingInvoiced
			flipped++
		}
		bookings[i] = b
	}
	if flipped == 0 {
		return s
	}
	s.Bookings = bookings

	// Historically unaudited: the marking is a mechanical side effect of
	// invoice creation, not an independent financial event. The option
	// restores uniform logging for installations that want it.
	if r.AuditBookingMarking {
		s = s.withAudit(now, MarkBookingsInvoiced{}.Name(), "Booking", "",
			fmt.Sprintf("Marked %d booking(s) invoiced", flipped),
			string(BookingPending), string(BookingInvoiced))
	}
	return s
}

// =============================================================================
// EXPENSES
// =============================================================================

func (r Reducer) addExpense(s State, a AddExpense, now time.Time) State {
	e := a.Expense
	if e.ID == "" {
		var id string
		s, id = s.nextID("exp")
		e.ID = ExpenseID(id)
	}
	if e.EntryType == "" {
		e.EntryType = EntryManual
	}
	if e.Date.IsZero() {
		e.Date = now
	}

	highValue := e.Amount.GreaterThan(ExpenseApprovalThreshold)
	if highValue {
		e.Status = ExpensePendingApproval
	} else {
		e.Status = ExpenseApproved
	}

	s.Expenses = cloneAppend(s.Expenses, e)
	s = s.withAudit(now, AddExpense{}.Name(), "Expense", string(e.ID),
		fmt.Sprintf("Recorded %s expense of %s", e.Category, e.Amount.StringFixed(2)), "", string(e.Status))

	if highValue {
		return s.withNotification(now, NotifyWarning,
			fmt.Sprintf("Expense of %s exceeds %s and requires approval", e.Amount.StringFixed(2), ExpenseApprovalThreshold.StringFixed(0)))
	}
	return s.withNotification(now, NotifySuccess, fmt.Sprintf("%s expense recorded", e.Category))
}

func (r Reducer) approveExpense(s State, a ApproveExpense, now time.Time) State {
	e, ok := s.FindExpense(a.ExpenseID)
	if !ok || e.Status != ExpensePendingApproval {
		return s
	}

	e.Status = ExpenseApproved
	s.Expenses = replaceExpense(s.Expenses, e)

	s = s.withAudit(now, ApproveExpense{}.Name(), "Expense", string(e.ID),
		fmt.Sprintf("Approved %s expense of %s", e.Category, e.Amount.StringFixed(2)),
		string(ExpensePendingApproval), string(ExpenseApproved))
	return s.withNotification(now, NotifySuccess, "Expense approved")
}

// =============================================================================
// RECORD REPLACEMENT
// =============================================================================

func replaceBooking(bookings []Booking, updated Booking) []Booking {
	out := make([]Booking, len(bookings))
	for i, b := range bookings {
		if b.ID == updated.ID {
			out[i] = updated
		} else {
			out[i] = b
		}
	}
	return out
}

func replaceExpense(expenses []Expense, updated Expense) []Expense {
	out := make([]Expense, len(expenses))
	for i, e := range expenses {
		if e.ID == updated.ID {
			out[i] = updated
		} else {
			out[i] = e
		}
	}
	return out
}
