package access

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *MemStore) {
	t.Helper()
	store := NewMemStore()
	return NewService(store, DefaultWindow), store
}

func TestRecordEntry(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.RecordEntry(ctx, EntryRequest{SubjectID: "p1", LocationID: "loc1", Purpose: "Meeting"})
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	require.Equal(t, StatusGranted, rec.Status)
	require.False(t, rec.EntryTime.IsZero())

	denied, err := svc.RecordEntry(ctx, EntryRequest{SubjectID: "p2", LocationID: "loc1", Status: StatusDenied})
	require.NoError(t, err)
	require.Equal(t, StatusDenied, denied.Status)

	_, err = svc.RecordEntry(ctx, EntryRequest{LocationID: "loc1"})
	require.ErrorIs(t, err, ErrValidationFailed)

	_, err = svc.RecordEntry(ctx, EntryRequest{SubjectID: "p1", LocationID: "loc1", Status: StatusCheckedOut})
	require.ErrorIs(t, err, ErrValidationFailed)
}

func TestExtendShiftsEntryForward(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	entry := time.Now().UTC().Add(-3 * time.Hour)
	store.Seed(AccessRecord{ID: "r1", SubjectID: "p1", Status: StatusGranted, EntryTime: entry})

	delta, err := svc.Extend(ctx, "r1", 2, 0)
	require.NoError(t, err)
	require.Equal(t, 2*time.Hour, delta)

	rec, err := store.GetRecord(ctx, "r1")
	require.NoError(t, err)
	require.True(t, rec.EntryTime.Equal(entry.Add(2*time.Hour)))
}

func TestExtendRejectedAfterConcurrentRevoke(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	store.Seed(AccessRecord{ID: "r1", SubjectID: "p1", Status: StatusGranted, EntryTime: time.Now().UTC()})

	// Another operator revokes between our read and our write.
	require.NoError(t, svc.Revoke(ctx, "r1"))

	_, err := svc.Extend(ctx, "r1", 1, 0)
	require.ErrorIs(t, err, ErrPreconditionFailed)

	rec, err := store.GetRecord(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, StatusRevoked, rec.Status)
}

func TestExtendValidation(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	store.Seed(AccessRecord{ID: "r1", Status: StatusGranted, EntryTime: time.Now().UTC()})

	_, err := svc.Extend(ctx, "r1", 25, 0)
	require.ErrorIs(t, err, ErrValidationFailed)

	_, err = svc.Extend(ctx, "r1", 0, 60)
	require.ErrorIs(t, err, ErrValidationFailed)

	_, err = svc.Extend(ctx, "missing", 1, 0)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRevokeIsIdempotent(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	store.Seed(AccessRecord{ID: "r1", Status: StatusGranted, EntryTime: time.Now().UTC()})

	require.NoError(t, svc.Revoke(ctx, "r1"))
	require.NoError(t, svc.Revoke(ctx, "r1"))

	rec, err := store.GetRecord(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, StatusRevoked, rec.Status)
}

func TestRevokeCheckedOutRejected(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	exit := time.Now().UTC()
	store.Seed(AccessRecord{ID: "r1", Status: StatusCheckedOut, EntryTime: exit.Add(-time.Hour), ExitTime: &exit})

	require.ErrorIs(t, svc.Revoke(ctx, "r1"), ErrPreconditionFailed)
}

func TestReinstate(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	store.Seed(
		AccessRecord{ID: "revoked", Status: StatusRevoked, EntryTime: time.Now().UTC()},
		AccessRecord{ID: "denied", Status: StatusDenied, EntryTime: time.Now().UTC()},
		AccessRecord{ID: "granted", Status: StatusGranted, EntryTime: time.Now().UTC()},
	)

	require.NoError(t, svc.Reinstate(ctx, "revoked"))
	require.NoError(t, svc.Reinstate(ctx, "denied"))
	require.ErrorIs(t, svc.Reinstate(ctx, "granted"), ErrPreconditionFailed)

	for _, id := range []string{"revoked", "denied"} {
		rec, err := store.GetRecord(ctx, id)
		require.NoError(t, err)
		require.Equal(t, StatusGranted, rec.Status)
	}
}

func TestReinstateKeepsEntryTime(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	entry := time.Now().UTC().Add(-5 * time.Hour)
	store.Seed(AccessRecord{ID: "r1", Status: StatusRevoked, EntryTime: entry})

	require.NoError(t, svc.Reinstate(ctx, "r1"))

	rec, err := store.GetRecord(ctx, "r1")
	require.NoError(t, err)
	require.True(t, rec.EntryTime.Equal(entry), "reinstating must not reset the access window")
}

func TestCheckOutIsTerminal(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	store.Seed(AccessRecord{ID: "r1", Status: StatusGranted, EntryTime: time.Now().UTC().Add(-time.Hour)})

	require.NoError(t, svc.CheckOut(ctx, "r1"))

	rec, err := store.GetRecord(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, StatusCheckedOut, rec.Status)
	require.NotNil(t, rec.ExitTime)

	require.ErrorIs(t, svc.CheckOut(ctx, "r1"), ErrPreconditionFailed)
	require.ErrorIs(t, svc.Revoke(ctx, "r1"), ErrPreconditionFailed)
	require.ErrorIs(t, svc.Reinstate(ctx, "r1"), ErrPreconditionFailed)
}

func TestRegisterAndBlacklist(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	p, err := svc.Register(ctx, Person{Name: "Dana Reyes", Role: RoleContractor, Company: "Acme"})
	require.NoError(t, err)
	require.Equal(t, StateActive, p.AccessState)

	_, err = svc.Register(ctx, Person{Name: "No Role"})
	require.ErrorIs(t, err, ErrValidationFailed)

	require.ErrorIs(t, svc.Blacklist(ctx, p.ID, ""), ErrValidationFailed)
	require.NoError(t, svc.Blacklist(ctx, p.ID, "tailgating"))

	people, err := svc.People(ctx)
	require.NoError(t, err)
	require.Len(t, people, 1)
	require.Equal(t, StateBlacklisted, people[0].AccessState)
	require.Equal(t, "tailgating", people[0].BlacklistReason)

	require.NoError(t, svc.Unblacklist(ctx, p.ID))
	people, err = svc.People(ctx)
	require.NoError(t, err)
	require.Equal(t, StateActive, people[0].AccessState)
	require.Empty(t, people[0].BlacklistReason)

	// Suspicion is derived from the subject's current state.
	store.Seed(AccessRecord{ID: "r1", SubjectID: p.ID, Status: StatusGranted, EntryTime: time.Now().UTC()})
	require.NoError(t, svc.Blacklist(ctx, p.ID, "tailgating"))
	recs, err := svc.Records(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.True(t, recs[0].Suspicious)
}

func TestCreateSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, SessionRequest{
		HostID:      "h1",
		EventName:   "Vendor Day",
		Venue:       "Atrium",
		SessionDate: "2026-09-15",
	})
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(sess.QRPayload), &payload))
	require.NotEmpty(t, payload["reg_token"])
	require.Equal(t, "Vendor Day", payload["event"])
	require.Equal(t, "Atrium", payload["venue"])
	require.Equal(t, "2026-09-15", payload["date"])

	_, err = svc.CreateSession(ctx, SessionRequest{Venue: "Atrium"})
	require.ErrorIs(t, err, ErrValidationFailed)

	list, err := svc.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}
