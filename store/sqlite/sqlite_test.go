package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/freight-ledger/factory"
	"github.com/warp/freight-ledger/ledger"
	"github.com/warp/freight-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

func TestStore_EmptyDatabaseHasNoSnapshot(t *testing.T) {
	// GIVEN: A freshly migrated database
	// WHEN: Loading the latest snapshot
	// THEN: The sentinel says to seed instead

	store := newTestStore(t)

	_, err := store.LoadLatest(context.Background())
	assert.ErrorIs(t, err, ledger.ErrNoSnapshot)
}

func TestStore_SnapshotRoundTrip(t *testing.T) {
	// GIVEN: A populated state with an advanced id sequence
	// WHEN: Saving a snapshot and loading it into an empty state
	// THEN: Collections and the sequence high-water mark both survive

	store := newTestStore(t)
	ctx := context.Background()

	ref := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	state := factory.BuildState(ref)
	state = ledger.Reduce(state, ledger.SetSearchQuery{Query: "transient"}, ref)
	state.Seq = 17

	require.NoError(t, store.SaveSnapshot(ctx, state, ref))

	loaded, err := store.LoadLatest(ctx)
	require.NoError(t, err)

	restored := ledger.Reduce(ledger.State{}, loaded, ref)
	assert.Equal(t, uint64(17), restored.Seq)
	assert.Len(t, restored.Invoices, len(state.Invoices))
	assert.Len(t, restored.Vendors, len(state.Vendors))
	assert.Len(t, restored.BankFeed, len(state.BankFeed))
	assert.Empty(t, restored.SearchQuery, "ephemeral UI state is not persisted")

	// Money fields survive the JSON round trip exactly.
	want, _ := state.FindInvoice(state.Invoices[1].ID)
	got, _ := restored.FindInvoice(state.Invoices[1].ID)
	assert.True(t, want.Amount.Equal(got.Amount))
	assert.True(t, want.PaidAmount.Decimal.Equal(got.PaidAmount.Decimal))
	assert.True(t, want.Adjustments.Equal(got.Adjustments))
}

func TestStore_LatestSnapshotWins(t *testing.T) {
	// GIVEN: Two snapshots saved in order
	// WHEN: Loading
	// THEN: The second one comes back

	store := newTestStore(t)
	ctx := context.Background()
	ref := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)

	first := factory.BuildState(ref)
	require.NoError(t, store.SaveSnapshot(ctx, first, ref))

	second := ledger.Reduce(first, ledger.AddVendor{Vendor: ledger.Vendor{Name: "Border Haulage", Code: "VND-004"}}, ref)
	require.NoError(t, store.SaveSnapshot(ctx, second, ref.Add(time.Hour)))

	loaded, err := store.LoadLatest(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.Vendors, len(second.Vendors))
}

// =============================================================================
// AUDIT ARCHIVE
// =============================================================================

func TestStore_AuditArchiveRoundTrip(t *testing.T) {
	// GIVEN: Two audit batches archived in dispatch order
	// WHEN: Listing the archive
	// THEN: Entries come back newest first with attribution intact

	store := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, time.March, 15, 9, 30, 0, 0, time.UTC)

	batch1 := []ledger.AuditLog{{
		ID: "aud_000001", Timestamp: ts, UserID: "usr-1", UserName: "Meera Nair",
		Role: ledger.RoleAdmin, Action: "Record Payment", EntityType: "Invoice",
		EntityID: "inv-1", Details: "Full payment credit of 9800.00 against INV-2041",
		OldValue: "sent", NewValue: "paid",
	}}
	batch2 := []ledger.AuditLog{{
		ID: "aud_000002", Timestamp: ts.Add(time.Minute), UserID: "usr-1", UserName: "Meera Nair",
		Role: ledger.RoleAdmin, Action: "Delete Invoice", EntityType: "Invoice",
		EntityID: "inv-1", Details: "Deleted invoice INV-2041 (10000.00)", OldValue: "paid",
	}}

	require.NoError(t, store.ArchiveAudit(ctx, batch1))
	require.NoError(t, store.ArchiveAudit(ctx, batch2))

	entries, err := store.ListAudit(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Delete Invoice", entries[0].Action)
	assert.Equal(t, "Record Payment", entries[1].Action)
	assert.Equal(t, "Meera Nair", entries[1].UserName)
	assert.Equal(t, ledger.RoleAdmin, entries[1].Role)
	assert.True(t, entries[1].Timestamp.Equal(ts))
}

func TestStore_ArchiveEmptyBatchIsNoOp(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.ArchiveAudit(context.Background(), nil))

	entries, err := store.ListAudit(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_ListAuditLimit(t *testing.T) {
	// GIVEN: Five archived entries
	// WHEN: Listing with limit 2
	// THEN: Only the two newest return

	store := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, time.March, 15, 9, 30, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.ArchiveAudit(ctx, []ledger.AuditLog{{
			ID:        ledger.AuditLogID(time.Duration(i).String()),
			Timestamp: ts.Add(time.Duration(i) * time.Minute),
			Action:    "Create Vendor",
		}}))
	}

	entries, err := store.ListAudit(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
