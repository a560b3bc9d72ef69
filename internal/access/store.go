package access

import (
	"context"
	"time"
)

// Store is the persistence contract the engine depends on. The remote
// store is the sole source of truth; implementations must honor the
// conditional-write contract: guarded mutations evaluate their predicate
// against the current row and report ErrPreconditionFailed when it no
// longer holds, ErrNotFound when the row is gone.
type Store interface {
	// ListRecords returns the most recent access records, newest entry
	// first, joined with subject and location data.
	ListRecords(ctx context.Context, limit int) ([]AccessRecord, error)
	GetRecord(ctx context.Context, id string) (AccessRecord, error)
	InsertRecord(ctx context.Context, rec AccessRecord) (AccessRecord, error)

	// ShiftEntry moves entry_timestamp forward by delta, only while the
	// record is still Granted.
	ShiftEntry(ctx context.Context, id string, delta time.Duration) error
	// MarkRevoked sets the status to Revoked from any non-terminal state.
	// Revoking an already revoked record succeeds.
	MarkRevoked(ctx context.Context, id string) error
	// MarkReinstated sets the status back to Granted, only from Denied or
	// Revoked. The entry timestamp is left untouched.
	MarkReinstated(ctx context.Context, id string) error
	// MarkCheckedOut records the exit and moves to the terminal state,
	// only while the record is Granted and has no exit yet.
	MarkCheckedOut(ctx context.Context, id string, exit time.Time) error

	ListPeople(ctx context.Context) ([]Person, error)
	InsertPerson(ctx context.Context, p Person) (Person, error)
	SetAccessState(ctx context.Context, id string, state AccessState, reason string) error

	ListSessions(ctx context.Context) ([]Session, error)
	InsertSession(ctx context.Context, s Session) (Session, error)

	InsertAlert(ctx context.Context, a Alert) error
}
