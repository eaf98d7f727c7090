/*
audit.go - Audit log builder and transition side-channels

PURPOSE:
  The reducer records two kinds of side output in the same atomic
  transition as the data change itself:

    AuditLog     - durable, attributed, append-only change history
    Notification - ephemeral UI message, dismissed independently

  This file holds the builders for both, plus the copy-on-write slice
  helpers and the deterministic ID sequence every generated entity draws
  from.

INVARIANTS:
  1. Audit entries are created ONLY by mutating reducer branches, never for
     pure reads, and are never edited or deleted.
  2. Every builder returns a NEW State; input slices are never grown in
     place, so snapshots held by readers stay frozen.
  3. IDs come from State.Seq, which makes a transition reproducible: same
     (State, Action, now) in, same IDs out.
*/
package ledger

import (
	"fmt"
	"time"
)

// =============================================================================
// COPY-ON-WRITE SLICE HELPERS
// =============================================================================

// cloneAppend returns a fresh slice with extra appended. Never reuses the
// input's backing array, so prior snapshots keep their view.
func cloneAppend[T any](xs []T, extra ...T) []T {
	out := make([]T, len(xs), len(xs)+len(extra))
	copy(out, xs)
	return append(out, extra...)
}

// clonePrepend returns a fresh slice with head in front. Used for the
// transaction list, whose invariant is most-recent-first.
func clonePrepend[T any](xs []T, head ...T) []T {
	out := make([]T, 0, len(xs)+len(head))
	out = append(out, head...)
	return append(out, xs...)
}

// =============================================================================
// ID SEQUENCE
// =============================================================================

// nextID advances the deterministic sequence and returns the updated state
// plus a fresh id. Later sequence numbers sort after earlier ones, which is
// what keeps a same-dated TDS split after its primary entry.
func (s State) nextID(prefix string) (State, string) {
	s.Seq++
	return s, fmt.Sprintf("%s_%06d", prefix, s.Seq)
}

// =============================================================================
// AUDIT LOG BUILDER
// =============================================================================

// withAudit appends one attributed audit entry for the acting user.
// oldValue/newValue may be empty when a before/after pair is not meaningful.
func (s State) withAudit(now time.Time, action, entityType, entityID, details, oldValue, newValue string) State {
	s, id := s.nextID("aud")
	entry := AuditLog{
		ID:         AuditLogID(id),
		Timestamp:  now,
		UserID:     s.CurrentUser.ID,
		UserName:   s.CurrentUser.Name,
		Role:       s.CurrentUser.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		OldValue:   oldValue,
		NewValue:   newValue,
	}
	s.AuditLogs = cloneAppend(s.AuditLogs, entry)
	return s
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func (s State) withNotification(now time.Time, typ NotificationType, message string) State {
	s, id := s.nextID("ntf")
	n := Notification{
		ID:        NotificationID(id),
		Type:      typ,
		Message:   message,
		CreatedAt: now,
	}
	s.Notifications = cloneAppend(s.Notifications, n)
	return s
}
