/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the HTTP boundary. These decouple the internal domain
  model from the external contract: monetary values cross the wire as
  float64 for client convenience while the core keeps decimals; derived
  figures (balance, display status, overdue days) are attached here so no
  client ever re-derives them.

NAMING CONVENTION:
  - *DTO:     response types
  - *Request: request body types

VALIDATION:
  Request structs carry go-playground/validator tags. Everything that
  belongs on the collaborator side - existence checks, positive amounts,
  well-formed dates - is enforced here, before dispatch; the reducer only
  sees well-formed actions.

SEE ALSO:
  - handlers.go: uses these types
  - ledger/derive.go: the derivations the DTOs surface
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/freight-ledger/ledger"
)

const dateLayout = "2006-01-02"

// =============================================================================
// REQUESTS
// =============================================================================

type CreateInvoiceRequest struct {
	CustomerID string            `json:"customer_id" validate:"required"`
	Number     string            `json:"number" validate:"required"`
	IssueDate  string            `json:"issue_date" validate:"required,datetime=2006-01-02"`
	DueDate    string            `json:"due_date" validate:"required,datetime=2006-01-02"`
	Amount     float64           `json:"amount" validate:"required,gt=0"`
	LineItems  []LineItemRequest `json:"line_items" validate:"dive"`
	Notes      string            `json:"notes"`
}

type LineItemRequest struct {
	Description string  `json:"description" validate:"required"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	Rate        float64 `json:"rate" validate:"gte=0"`
}

type RecordPaymentRequest struct {
	Date            string  `json:"date" validate:"required,datetime=2006-01-02"`
	Reference       string  `json:"reference"`
	Amount          float64 `json:"amount" validate:"required,gt=0"`
	Direction       string  `json:"direction" validate:"required,oneof=credit debit"`
	Category        string  `json:"category" validate:"required"`
	DebitNoteNumber string  `json:"debit_note_number"`
	AutoTDS         bool    `json:"auto_tds"`
}

type VendorPaymentRequest struct {
	VendorIDs []string `json:"vendor_ids" validate:"required,min=1,dive,required"`
	Date      string   `json:"date" validate:"required,datetime=2006-01-02"`
	Amount    float64  `json:"amount" validate:"required,gt=0"`
	Category  string   `json:"category" validate:"required"`
	Reference string   `json:"reference"`
	AutoTDS   bool     `json:"auto_tds"`
	BookingID string   `json:"booking_id"`
}

type CreateBookingRequest struct {
	CustomerID  string  `json:"customer_id" validate:"required"`
	Origin      string  `json:"origin" validate:"required"`
	Destination string  `json:"destination" validate:"required"`
	DistanceKM  float64 `json:"distance_km" validate:"gte=0"`
	VehicleID   string  `json:"vehicle_id" validate:"required"`
	DriverName  string  `json:"driver_name"`
	BookedDate  string  `json:"booked_date" validate:"required,datetime=2006-01-02"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Expense     float64 `json:"expense" validate:"gte=0"`
	VendorID    string  `json:"vendor_id"`
}

type CreateExpenseRequest struct {
	VehicleID   string  `json:"vehicle_id" validate:"required"`
	Category    string  `json:"category" validate:"required,oneof=Fuel Maintenance Insurance Toll Freight Driver EMI"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	VendorID    string  `json:"vendor_id"`
	Description string  `json:"description"`
}

type RemindersRequest struct {
	InvoiceIDs []string `json:"invoice_ids" validate:"required,min=1,dive,required"`
}

type MarkInvoicedRequest struct {
	BookingIDs []string `json:"booking_ids" validate:"required,min=1,dive,required"`
}

type SetUserRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type InvoiceDTO struct {
	ID         string  `json:"id"`
	CustomerID string  `json:"customer_id"`
	Number     string  `json:"number"`
	Status     string  `json:"status"`
	IssueDate  string  `json:"issue_date"`
	DueDate    string  `json:"due_date"`
	Amount     float64 `json:"amount"`
	Notes      string  `json:"notes,omitempty"`

	// Derived fields, via ledger.DeriveInvoiceView.
	PaidAmount    float64 `json:"paid_amount"`
	Balance       float64 `json:"balance"`
	OverdueDays   int     `json:"overdue_days"`
	DisplayStatus string  `json:"display_status"`

	LastReminderSent *string `json:"last_reminder_sent,omitempty"`
}

type StatementRowDTO struct {
	Date             string  `json:"date"`
	Kind             string  `json:"kind"`
	Description      string  `json:"description"`
	Reference        string  `json:"reference,omitempty"`
	Category         string  `json:"category,omitempty"`
	Debit            float64 `json:"debit"`
	Credit           float64 `json:"credit"`
	RunningBalance   float64 `json:"running_balance"`
	ShortPayment     float64 `json:"short_payment,omitempty"`
	ShowShortPayment bool    `json:"show_short_payment,omitempty"`
	Disputed         bool    `json:"disputed,omitempty"`
}

type ReceivablesDTO struct {
	CustomerID      string  `json:"customer_id"`
	CurrentExposure float64 `json:"current_exposure"`
	CreditLimit     float64 `json:"credit_limit"`
	OverLimit       bool    `json:"over_limit"`
	DSODays         int     `json:"dso_days"`
}

type VendorDTO struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Code         string  `json:"code"`
	Category     string  `json:"category"`
	Rating       float64 `json:"rating"`
	Balance      float64 `json:"balance"`
	LastActivity string  `json:"last_activity"`
}

type BookingDTO struct {
	ID            string  `json:"id"`
	CustomerID    string  `json:"customer_id"`
	Origin        string  `json:"origin"`
	Destination   string  `json:"destination"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	Expense       float64 `json:"expense"`
	VendorID      string  `json:"vendor_id,omitempty"`
	PODVerified   bool    `json:"pod_verified"`
	CompletedDate *string `json:"completed_date,omitempty"`
}

type ExpenseDTO struct {
	ID          string  `json:"id"`
	VehicleID   string  `json:"vehicle_id"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	VendorID    string  `json:"vendor_id,omitempty"`
	BookingID   string  `json:"booking_id,omitempty"`
	EntryType   string  `json:"entry_type"`
	Status      string  `json:"status"`
	Description string  `json:"description,omitempty"`
}

type AuditLogDTO struct {
	ID         string `json:"id"`
	Timestamp  string `json:"timestamp"`
	UserName   string `json:"user_name"`
	Role       string `json:"role"`
	Action     string `json:"action"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id,omitempty"`
	Details    string `json:"details"`
	OldValue   string `json:"old_value,omitempty"`
	NewValue   string `json:"new_value,omitempty"`
}

type NotificationDTO struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func money(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func toInvoiceDTO(inv ledger.Invoice, today time.Time) InvoiceDTO {
	view := ledger.DeriveInvoiceView(inv, today)
	dto := InvoiceDTO{
		ID:            string(inv.ID),
		CustomerID:    string(inv.CustomerID),
		Number:        inv.Number,
		Status:        string(inv.Status),
		IssueDate:     inv.IssueDate.Format(dateLayout),
		DueDate:       inv.DueDate.Format(dateLayout),
		Amount:        money(inv.Amount),
		Notes:         inv.Notes,
		PaidAmount:    money(view.PaidAmount),
		Balance:       money(view.Balance),
		OverdueDays:   view.OverdueDays,
		DisplayStatus: string(view.DisplayStatus),
	}
	if inv.LastReminderSent != nil {
		s := inv.LastReminderSent.Format(time.RFC3339)
		dto.LastReminderSent = &s
	}
	return dto
}

func toStatementRowDTO(row ledger.StatementRow) StatementRowDTO {
	return StatementRowDTO{
		Date:             row.Date.Format(dateLayout),
		Kind:             string(row.Kind),
		Description:      row.Description,
		Reference:        row.Reference,
		Category:         row.Category,
		Debit:            money(row.Debit),
		Credit:           money(row.Credit),
		RunningBalance:   money(row.RunningBalance),
		ShortPayment:     money(row.ShortPayment),
		ShowShortPayment: row.ShowShortPayment,
		Disputed:         row.Disputed,
	}
}

func toVendorDTO(v ledger.Vendor) VendorDTO {
	rating, _ := v.Rating.Float64()
	return VendorDTO{
		ID:           string(v.ID),
		Name:         v.Name,
		Code:         v.Code,
		Category:     v.Category,
		Rating:       rating,
		Balance:      money(v.Balance),
		LastActivity: v.LastActivity.Format(time.RFC3339),
	}
}

func toBookingDTO(b ledger.Booking) BookingDTO {
	dto := BookingDTO{
		ID:          string(b.ID),
		CustomerID:  string(b.CustomerID),
		Origin:      b.Origin,
		Destination: b.Destination,
		Status:      string(b.Status),
		Amount:      money(b.Amount),
		Expense:     money(b.Expense),
		VendorID:    string(b.VendorID),
		PODVerified: b.PODVerified,
	}
	if b.CompletedDate != nil {
		s := b.CompletedDate.Format(dateLayout)
		dto.CompletedDate = &s
	}
	return dto
}

func toExpenseDTO(e ledger.Expense) ExpenseDTO {
	return ExpenseDTO{
		ID:          string(e.ID),
		VehicleID:   string(e.VehicleID),
		Category:    string(e.Category),
		Amount:      money(e.Amount),
		Date:        e.Date.Format(dateLayout),
		VendorID:    string(e.VendorID),
		BookingID:   string(e.BookingID),
		EntryType:   string(e.EntryType),
		Status:      string(e.Status),
		Description: e.Description,
	}
}

func toAuditLogDTO(a ledger.AuditLog) AuditLogDTO {
	return AuditLogDTO{
		ID:         string(a.ID),
		Timestamp:  a.Timestamp.Format(time.RFC3339),
		UserName:   a.UserName,
		Role:       string(a.Role),
		Action:     a.Action,
		EntityType: a.EntityType,
		EntityID:   a.EntityID,
		Details:    a.Details,
		OldValue:   a.OldValue,
		NewValue:   a.NewValue,
	}
}

func toNotificationDTO(n ledger.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        string(n.ID),
		Type:      string(n.Type),
		Message:   n.Message,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
}
