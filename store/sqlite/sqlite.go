/*
Package sqlite persists ledger snapshots and archives the audit trail.

PURPOSE:
  The storage collaborator at the boundary of the core. The core engine is
  process-resident and never touches a database; this package gives a
  deployment two things without leaking into the reducer:

    1. Snapshots: the full collection set serialized as one JSON payload
       per save. Loading the latest snapshot yields exactly one SetData
       action - the sole population interface the core exposes.
    2. Audit archive: every audit entry a transition produces, copied into
       an append-only table via the dispatch container's sink hook. The
       in-memory trail restarts with the process; this table does not.

APPEND-ONLY ENFORCEMENT:
  Neither table is ever UPDATEd or DELETEd by this package. Snapshots
  accumulate (latest wins on load); audit rows only grow.

WAL MODE:
  SQLite is opened with WAL so snapshot reads don't block audit writes.

USAGE:
  store, err := sqlite.New("./data/freight.db")
  ...
  snap, err := store.LoadLatest(ctx)
  if errors.Is(err, ledger.ErrNoSnapshot) {
      snap = factory.Build(time.Now())
  }
  state := container.Dispatch(snap)

SEE ALSO:
  - dispatch: the audit sink that feeds ArchiveAudit
  - ledger/actions.go: the SetData action LoadLatest produces
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/freight-ledger/ledger"
)

// Store persists snapshots and audit entries. Safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (and migrates) the database at path. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Full-state snapshots; the highest id is the current one.
	CREATE TABLE IF NOT EXISTS snapshots (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at TEXT NOT NULL,
		seq        INTEGER NOT NULL,
		payload    TEXT NOT NULL
	);

	-- Durable audit archive (append-only; entry ids repeat across process
	-- restarts, hence the surrogate key).
	CREATE TABLE IF NOT EXISTS audit_log (
		row_id      INTEGER PRIMARY KEY AUTOINCREMENT,
		entry_id    TEXT NOT NULL,
		ts          TEXT NOT NULL,
		user_id     TEXT,
		user_name   TEXT,
		role        TEXT,
		action      TEXT NOT NULL,
		entity_type TEXT,
		entity_id   TEXT,
		details     TEXT,
		old_value   TEXT,
		new_value   TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_log(ts);
	CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity_type, entity_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// snapshotPayload is the serialized collection set. It mirrors SetData
// field for field so a load IS a bulk-population action.
type snapshotPayload struct {
	Customers    []ledger.Customer
	Invoices     []ledger.Invoice
	Bookings     []ledger.Booking
	Vehicles     []ledger.Vehicle
	Expenses     []ledger.Expense
	Transactions []ledger.Transaction
	Vendors      []ledger.Vendor
	BankAccounts []ledger.BankAccount
	BankFeed     []ledger.BankTransaction
	Users        []ledger.SystemUser
}

// SaveSnapshot writes the current collection set as a new snapshot row.
func (s *Store) SaveSnapshot(ctx context.Context, state ledger.State, at time.Time) error {
	payload, err := json.Marshal(snapshotPayload{
		Customers:    state.Customers,
		Invoices:     state.Invoices,
		Bookings:     state.Bookings,
		Vehicles:     state.Vehicles,
		Expenses:     state.Expenses,
		Transactions: state.Transactions,
		Vendors:      state.Vendors,
		BankAccounts: state.BankAccounts,
		BankFeed:     state.BankFeed,
		Users:        state.Users,
	})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (created_at, seq, payload) VALUES (?, ?, ?)`,
		at.UTC().Format(time.RFC3339), state.Seq, string(payload))
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LoadLatest returns the most recent snapshot as a ready-to-dispatch
// SetData action. Returns ledger.ErrNoSnapshot when none exists.
func (s *Store) LoadLatest(ctx context.Context) (ledger.SetData, error) {
	var (
		seq     uint64
		payload string
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT seq, payload FROM snapshots ORDER BY id DESC LIMIT 1`)
	if err := row.Scan(&seq, &payload); err != nil {
		if err == sql.ErrNoRows {
			return ledger.SetData{}, ledger.ErrNoSnapshot
		}
		return ledger.SetData{}, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var p snapshotPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return ledger.SetData{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	return ledger.SetData{
		Seq:          seq,
		Customers:    p.Customers,
		Invoices:     p.Invoices,
		Bookings:     p.Bookings,
		Vehicles:     p.Vehicles,
		Expenses:     p.Expenses,
		Transactions: p.Transactions,
		Vendors:      p.Vendors,
		BankAccounts: p.BankAccounts,
		BankFeed:     p.BankFeed,
		Users:        p.Users,
	}, nil
}

// =============================================================================
// AUDIT ARCHIVE
// =============================================================================

// ArchiveAudit appends a batch of audit entries atomically. Intended as a
// dispatch.AuditSink target.
func (s *Store) ArchiveAudit(ctx context.Context, entries []ledger.AuditLog) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin audit write: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO audit_log (entry_id, ts, user_id, user_name, role, action,
		                       entity_type, entity_id, details, old_value, new_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare audit write: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err := stmt.ExecContext(ctx,
			string(e.ID), e.Timestamp.UTC().Format(time.RFC3339Nano),
			string(e.UserID), e.UserName, string(e.Role), e.Action,
			e.EntityType, e.EntityID, e.Details, e.OldValue, e.NewValue)
		if err != nil {
			return fmt.Errorf("failed to archive audit entry %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// ListAudit returns up to limit archived entries, newest first.
func (s *Store) ListAudit(ctx context.Context, limit int) ([]ledger.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_id, ts, user_id, user_name, role, action,
		       entity_type, entity_id, details, old_value, new_value
		FROM audit_log ORDER BY row_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit archive: %w", err)
	}
	defer rows.Close()

	var out []ledger.AuditLog
	for rows.Next() {
		var (
			e                 ledger.AuditLog
			id, uid, role, ts string
		)
		if err := rows.Scan(&id, &ts, &uid, &e.UserName, &role, &e.Action,
			&e.EntityType, &e.EntityID, &e.Details, &e.OldValue, &e.NewValue); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		e.ID = ledger.AuditLogID(id)
		e.UserID = ledger.UserID(uid)
		e.Role = ledger.Role(role)
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			e.Timestamp = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
