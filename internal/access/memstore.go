package access

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store with the same conditional-write semantics
// as the Postgres repository. It backs tests and the dev queue-less setup.
type MemStore struct {
	mu       sync.RWMutex
	records  map[string]AccessRecord
	people   map[string]Person
	sessions []Session
	alerts   []Alert
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		records: make(map[string]AccessRecord),
		people:  make(map[string]Person),
	}
}

// Seed inserts records directly, bypassing lifecycle guards. Test helper.
func (m *MemStore) Seed(recs ...AccessRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range recs {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		m.records[rec.ID] = rec
	}
}

// SeedPeople inserts people directly. Test helper.
func (m *MemStore) SeedPeople(people ...Person) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range people {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		m.people[p.ID] = p
	}
}

// Alerts returns a copy of the recorded alerts. Test helper.
func (m *MemStore) Alerts() []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Alert, len(m.alerts))
	copy(out, m.alerts)
	return out
}

func (m *MemStore) ListRecords(_ context.Context, limit int) ([]AccessRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]AccessRecord, 0, len(m.records))
	for _, rec := range m.records {
		res = append(res, m.derived(rec))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].EntryTime.After(res[j].EntryTime) })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (m *MemStore) GetRecord(_ context.Context, id string) (AccessRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return AccessRecord{}, ErrNotFound
	}
	return m.derived(rec), nil
}

// derived fills the read-time suspicion flag. Callers hold m.mu.
func (m *MemStore) derived(rec AccessRecord) AccessRecord {
	rec.Suspicious = rec.Status == StatusDenied
	if p, ok := m.people[rec.SubjectID]; ok && p.AccessState == StateBlacklisted {
		rec.Suspicious = true
	}
	return rec
}

func (m *MemStore) InsertRecord(_ context.Context, rec AccessRecord) (AccessRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = uuid.NewString()
	if rec.EntryTime.IsZero() {
		rec.EntryTime = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = StatusGranted
	}
	m.records[rec.ID] = rec
	return rec, nil
}

// mutate applies fn under the guard predicate, mirroring the repository's
// zero-rows handling.
func (m *MemStore) mutate(id string, guard func(Status) bool, fn func(*AccessRecord)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	if !guard(rec.Status) {
		return ErrPreconditionFailed
	}
	fn(&rec)
	m.records[id] = rec
	return nil
}

func (m *MemStore) ShiftEntry(_ context.Context, id string, delta time.Duration) error {
	return m.mutate(id, CanExtend, func(rec *AccessRecord) {
		rec.EntryTime = rec.EntryTime.Add(delta)
	})
}

func (m *MemStore) MarkRevoked(_ context.Context, id string) error {
	return m.mutate(id, CanRevoke, func(rec *AccessRecord) {
		rec.Status = StatusRevoked
	})
}

func (m *MemStore) MarkReinstated(_ context.Context, id string) error {
	return m.mutate(id, CanReinstate, func(rec *AccessRecord) {
		rec.Status = StatusGranted
	})
}

func (m *MemStore) MarkCheckedOut(_ context.Context, id string, exit time.Time) error {
	return m.mutate(id, CanCheckOut, func(rec *AccessRecord) {
		rec.Status = StatusCheckedOut
		rec.ExitTime = &exit
	})
}

func (m *MemStore) ListPeople(_ context.Context) ([]Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]Person, 0, len(m.people))
	for _, p := range m.people {
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

func (m *MemStore) InsertPerson(_ context.Context, p Person) (Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.NewString()
	if p.AccessState == "" {
		p.AccessState = StateActive
	}
	p.CreatedAt = time.Now().UTC()
	m.people[p.ID] = p
	return p, nil
}

func (m *MemStore) SetAccessState(_ context.Context, id string, state AccessState, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.people[id]
	if !ok {
		return ErrNotFound
	}
	p.AccessState = state
	p.BlacklistReason = reason
	m.people[id] = p
	return nil
}

func (m *MemStore) ListSessions(_ context.Context) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Session, len(m.sessions))
	copy(out, m.sessions)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemStore) InsertSession(_ context.Context, s Session) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.NewString()
	s.CreatedAt = time.Now().UTC()
	m.sessions = append(m.sessions, s)
	return s, nil
}

func (m *MemStore) InsertAlert(_ context.Context, a Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.NotedAt.IsZero() {
		a.NotedAt = time.Now().UTC()
	}
	m.alerts = append(m.alerts, a)
	return nil
}
