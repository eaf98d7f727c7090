/*
Package factory builds deterministic demo datasets.

PURPOSE:
  The data-loading collaborator for development and tests. Build produces a
  fully formed SetData payload - customers, vendors, vehicles, bookings,
  invoices, expenses, transactions, bank feed, users - anchored on a caller
  supplied reference date so the same inputs always yield the same state.

DETERMINISM:
  Entity IDs are name-based UUIDs (SHA1 over a stable path), not random
  ones: building the dataset twice gives byte-identical identifiers, which
  keeps golden tests and repeated seeding stable.

SEE ALSO:
  - ledger/actions.go: the SetData action this feeds
  - cmd/server: the seed command that persists this dataset
*/
package factory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/freight-ledger/ledger"
)

// id derives a stable identifier from a seed path like "customer/acme".
func id(path string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("freight-ledger/"+path)).String()
}

func inr(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func paid(v int64) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.NewFromInt(v), Valid: true}
}

// Build assembles the demo dataset with all dates anchored on ref.
func Build(ref time.Time) ledger.SetData {
	day := func(offset int) time.Time { return ref.AddDate(0, 0, offset) }

	users := []ledger.SystemUser{
		{ID: ledger.UserID(id("user/admin")), Name: "Meera Nair", Email: "meera@translog.example", Role: ledger.RoleAdmin},
		{ID: ledger.UserID(id("user/accountant")), Name: "Arjun Pillai", Email: "arjun@translog.example", Role: ledger.RoleAccountant},
		{ID: ledger.UserID(id("user/manager")), Name: "Sana Qureshi", Email: "sana@translog.example", Role: ledger.RoleManager},
		{ID: ledger.UserID(id("user/ops")), Name: "Ravi Shetty", Email: "ravi@translog.example", Role: ledger.RoleOperations},
	}

	customers := []ledger.Customer{
		{
			ID: ledger.CustomerID(id("customer/sunrise")), Name: "Sunrise Agro Exports",
			TaxID: "27AAACS1234F1Z5", CreditLimit: inr(500000), Status: ledger.CustomerActive,
			PaymentTermsDays: 30, TDSRatePercent: decimal.NewFromInt(2), RelationshipManager: "Sana Qureshi",
		},
		{
			ID: ledger.CustomerID(id("customer/meridian")), Name: "Meridian Steel Works",
			TaxID: "29AABCM9876K1Z2", CreditLimit: inr(1200000), Status: ledger.CustomerActive,
			PaymentTermsDays: 45, TDSRatePercent: decimal.NewFromInt(2), RelationshipManager: "Sana Qureshi",
		},
		{
			ID: ledger.CustomerID(id("customer/kaveri")), Name: "Kaveri Textiles",
			TaxID: "33AABCK4321Q1Z8", CreditLimit: inr(300000), Status: ledger.CustomerOnHold,
			PaymentTermsDays: 15, TDSRatePercent: decimal.NewFromInt(2), RelationshipManager: "Meera Nair",
		},
	}

	vendors := []ledger.Vendor{
		{
			ID: ledger.VendorID(id("vendor/highway")), Name: "Highway Star Carriers", Code: "VND-001",
			TaxID: "27AAACH1111A1Z1", Category: "Fleet Partner", Rating: decimal.NewFromFloat(4.2),
			Balance: inr(85000), PaymentTermsDays: 15, LastActivity: day(-4),
		},
		{
			ID: ledger.VendorID(id("vendor/gati")), Name: "Gati Prime Logistics", Code: "VND-002",
			TaxID: "29AABCG2222B1Z2", Category: "Fleet Partner", Rating: decimal.NewFromFloat(3.8),
			Balance: inr(42000), PaymentTermsDays: 30, LastActivity: day(-11),
		},
		{
			ID: ledger.VendorID(id("vendor/apex")), Name: "Apex Fuel Stations", Code: "VND-003",
			TaxID: "33AABCA3333C1Z3", Category: "Fuel", Rating: decimal.NewFromFloat(4.7),
			Balance: inr(0), PaymentTermsDays: 7, LastActivity: day(-2),
		},
	}

	vehicles := []ledger.Vehicle{
		{ID: ledger.VehicleID(id("vehicle/ka01")), Registration: "KA-01-AB-4821", Model: "Tata LPT 3118", Status: ledger.VehicleActive, MileageKM: inr(148200)},
		{ID: ledger.VehicleID(id("vehicle/mh12")), Registration: "MH-12-CD-7730", Model: "Ashok Leyland 2820", Status: ledger.VehicleActive, MileageKM: inr(96500)},
		{ID: ledger.VehicleID(id("vehicle/tn09")), Registration: "TN-09-EF-1194", Model: "Eicher Pro 6028", Status: ledger.VehicleMaintenance, MileageKM: inr(203400)},
	}

	bookings := []ledger.Booking{
		{
			ID: ledger.BookingID(id("booking/bk-1001")), CustomerID: customers[0].ID,
			Origin: "Mumbai", Destination: "Bengaluru", DistanceKM: inr(981),
			VehicleID: vehicles[0].ID, DriverName: "Suresh Yadav", BookedDate: day(-12),
			Amount: inr(64000), Expense: inr(38000), Status: ledger.BookingInvoiced,
			PODVerified: true, VendorID: vendors[0].ID,
		},
		{
			ID: ledger.BookingID(id("booking/bk-1002")), CustomerID: customers[1].ID,
			Origin: "Pune", Destination: "Chennai", DistanceKM: inr(1189),
			VehicleID: vehicles[1].ID, DriverName: "Imran Khan", BookedDate: day(-7),
			Amount: inr(88000), Expense: inr(52500), Status: ledger.BookingPending,
			PODVerified: false, VendorID: vendors[1].ID,
		},
		{
			ID: ledger.BookingID(id("booking/bk-1003")), CustomerID: customers[2].ID,
			Origin: "Coimbatore", Destination: "Hyderabad", DistanceKM: inr(836),
			VehicleID: vehicles[2].ID, DriverName: "Mohan Das", BookedDate: day(-3),
			Amount: inr(51000), Expense: inr(30500), Status: ledger.BookingPending,
			PODVerified: false, // own-fleet trip: no vendor assigned
		},
	}

	invoices := []ledger.Invoice{
		{
			ID: ledger.InvoiceID(id("invoice/inv-2041")), CustomerID: customers[0].ID,
			Number: "INV-2041", Status: ledger.InvoiceSent,
			IssueDate: day(-11), DueDate: day(19), Amount: inr(64000),
			PaidAmount: paid(0), Adjustments: decimal.Zero,
			LineItems: []ledger.LineItem{{
				Description: "Freight Mumbai -> Bengaluru (BK-1001)",
				Quantity:    decimal.NewFromInt(1), Rate: inr(64000), Amount: inr(64000),
			}},
		},
		{
			ID: ledger.InvoiceID(id("invoice/inv-2042")), CustomerID: customers[1].ID,
			Number: "INV-2042", Status: ledger.InvoiceSent,
			IssueDate: day(-40), DueDate: day(-10), Amount: inr(150000),
			PaidAmount: paid(73500), Adjustments: inr(1500),
			LineItems: []ledger.LineItem{{
				Description: "Freight Pune -> Chennai, 3 trips",
				Quantity:    decimal.NewFromInt(3), Rate: inr(50000), Amount: inr(150000),
			}},
		},
		{
			ID: ledger.InvoiceID(id("invoice/inv-2043")), CustomerID: customers[2].ID,
			Number: "INV-2043", Status: ledger.InvoicePaid,
			IssueDate: day(-60), DueDate: day(-45), Amount: inr(51000),
			PaidAmount: paid(49980), Adjustments: inr(1020),
			LineItems: []ledger.LineItem{{
				Description: "Freight Coimbatore -> Hyderabad",
				Quantity:    decimal.NewFromInt(1), Rate: inr(51000), Amount: inr(51000),
			}},
		},
	}

	expenses := []ledger.Expense{
		{
			ID: ledger.ExpenseID(id("expense/freight-bk-1001")), VehicleID: vehicles[0].ID,
			Category: ledger.ExpenseFreight, Amount: inr(38000), Date: day(-9),
			VendorID: vendors[0].ID, BookingID: bookings[0].ID,
			EntryType: ledger.EntryAuto, Status: ledger.ExpenseApproved,
			Description: "Freight charges Mumbai -> Bengaluru",
		},
		{
			ID: ledger.ExpenseID(id("expense/fuel-1")), VehicleID: vehicles[1].ID,
			Category: ledger.ExpenseFuel, Amount: inr(18400), Date: day(-6),
			VendorID: vendors[2].ID, EntryType: ledger.EntryManual, Status: ledger.ExpenseApproved,
			Description: "Diesel top-up, Pune depot",
		},
		{
			ID: ledger.ExpenseID(id("expense/maint-1")), VehicleID: vehicles[2].ID,
			Category: ledger.ExpenseMaintenance, Amount: inr(72500), Date: day(-5),
			VendorID: vendors[1].ID, EntryType: ledger.EntryManual, Status: ledger.ExpensePendingApproval,
			Description: "Gearbox overhaul",
		},
	}

	transactions := []ledger.Transaction{
		{
			ID: ledger.TransactionID(id("txn/receipt-2042-tds")), CustomerID: customers[1].ID,
			Date: day(-15), Amount: inr(1500), Direction: ledger.Credit,
			Description: ledger.CategoryTDSDeduction + " - INV-2042", InvoiceID: invoices[1].ID,
			Matched: true, Category: ledger.CategoryTDSDeduction,
		},
		{
			ID: ledger.TransactionID(id("txn/receipt-2042")), CustomerID: customers[1].ID,
			Date: day(-15), Amount: inr(73500), Direction: ledger.Credit,
			Description: "Bank Receipt - INV-2042", InvoiceID: invoices[1].ID,
			Matched: true, Reference: "NEFT-88132", Category: ledger.CategoryPartialPayment,
		},
		{
			ID: ledger.TransactionID(id("txn/vendor-highway-1")), VendorID: vendors[0].ID,
			Date: day(-4), Amount: inr(25000), Direction: ledger.Credit,
			Description: "Full payment - UTR-55201", BookingID: bookings[0].ID,
			Matched: true, Reference: "UTR-55201", Category: ledger.CategoryFullPayment,
		},
	}

	bankAccounts := []ledger.BankAccount{
		{ID: ledger.BankAccountID(id("bank/current")), Name: "HDFC Current A/C", AccountNumber: "50200011112222", Balance: inr(934500)},
	}

	bankFeed := []ledger.BankTransaction{
		{
			ID: ledger.BankTransactionID(id("bankfeed/1")), AccountID: bankAccounts[0].ID,
			Date: day(-15), Description: "NEFT CR MERIDIAN STEEL 88132", Amount: inr(73500),
			Direction: ledger.Credit, Status: ledger.BankMatched,
		},
		{
			ID: ledger.BankTransactionID(id("bankfeed/2")), AccountID: bankAccounts[0].ID,
			Date: day(-1), Description: "IMPS CR SUNRISE AGRO 90417", Amount: inr(32000),
			Direction: ledger.Credit, Status: ledger.BankUnmatched,
		},
	}

	return ledger.SetData{
		Customers:    customers,
		Invoices:     invoices,
		Bookings:     bookings,
		Vehicles:     vehicles,
		Expenses:     expenses,
		Transactions: transactions,
		Vendors:      vendors,
		BankAccounts: bankAccounts,
		BankFeed:     bankFeed,
		Users:        users,
	}
}

// BuildState applies the demo dataset to an empty state, the same way a
// loading collaborator would: one SetData dispatch.
func BuildState(ref time.Time) ledger.State {
	return ledger.Reduce(ledger.State{Loading: true}, Build(ref), ref)
}

// InvoiceNumber formats the next invoice display key in the demo series.
func InvoiceNumber(n int) string {
	return fmt.Sprintf("INV-%04d", n)
}
