package access

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service coordinates lifecycle operations against the backing store.
// Guards are validated locally for fast rejection, but the store re-checks
// every guard at write time; a concurrent status change surfaces as
// ErrPreconditionFailed even when the local check passed.
type Service struct {
	store  Store
	window time.Duration
}

// NewService creates a service with the given access window.
func NewService(store Store, window time.Duration) *Service {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Service{store: store, window: window}
}

// Window returns the configured access window.
func (s *Service) Window() time.Duration { return s.window }

// EntryRequest describes a new presence event.
type EntryRequest struct {
	SubjectID    string
	LocationID   string
	Purpose      string
	VehiclePlate string
	Status       Status
}

// RecordEntry creates a new access record. Status defaults to Granted;
// Denied and Pending entries may also be recorded (a turned-away person is
// still an event). Blacklist enforcement at grant time is the caller's
// concern.
func (s *Service) RecordEntry(ctx context.Context, req EntryRequest) (AccessRecord, error) {
	if req.SubjectID == "" || req.LocationID == "" {
		return AccessRecord{}, fmt.Errorf("%w: subject and location required", ErrValidationFailed)
	}
	status := req.Status
	if status == "" {
		status = StatusGranted
	}
	if status != StatusGranted && status != StatusDenied && status != StatusPending {
		return AccessRecord{}, fmt.Errorf("%w: %q is not a valid entry status", ErrValidationFailed, status)
	}
	return s.store.InsertRecord(ctx, AccessRecord{
		SubjectID:    req.SubjectID,
		LocationID:   req.LocationID,
		EntryTime:    time.Now().UTC(),
		Status:       status,
		Purpose:      req.Purpose,
		VehiclePlate: req.VehiclePlate,
	})
}

// Extend moves the entry timestamp forward, widening the remaining window.
// Legal only while the record is still Granted at the store.
func (s *Service) Extend(ctx context.Context, id string, hours, minutes int) (time.Duration, error) {
	delta, err := ExtendDelta(hours, minutes)
	if err != nil {
		return 0, fmt.Errorf("%w: extension must be 0-24h and 0-59m", err)
	}
	if err := s.store.ShiftEntry(ctx, id, delta); err != nil {
		return 0, err
	}
	return delta, nil
}

// Revoke marks the record Revoked. Idempotent: revoking an already revoked
// record is a success, not an error.
func (s *Service) Revoke(ctx context.Context, id string) error {
	return s.store.MarkRevoked(ctx, id)
}

// Reinstate restores a Denied or Revoked record to Granted. The entry
// timestamp is not reset, so the original access window keeps running; a
// subject needing a fresh window gets a new grant instead.
func (s *Service) Reinstate(ctx context.Context, id string) error {
	return s.store.MarkReinstated(ctx, id)
}

// CheckOut closes the record with the current instant as exit time.
func (s *Service) CheckOut(ctx context.Context, id string) error {
	return s.store.MarkCheckedOut(ctx, id, time.Now().UTC())
}

// Records fetches the newest records from the store.
func (s *Service) Records(ctx context.Context, limit int) ([]AccessRecord, error) {
	return s.store.ListRecords(ctx, limit)
}

// People returns all registered people.
func (s *Service) People(ctx context.Context) ([]Person, error) {
	return s.store.ListPeople(ctx)
}

// Register creates a person in the Active state.
func (s *Service) Register(ctx context.Context, p Person) (Person, error) {
	if p.Name == "" || p.Role == "" {
		return Person{}, fmt.Errorf("%w: name and role required", ErrValidationFailed)
	}
	p.AccessState = StateActive
	p.BlacklistReason = ""
	return s.store.InsertPerson(ctx, p)
}

// Blacklist marks a person Blacklisted with the given reason. Past records
// are untouched; only the derived suspicion flag and future grants change.
func (s *Service) Blacklist(ctx context.Context, personID, reason string) error {
	if reason == "" {
		return fmt.Errorf("%w: blacklist reason required", ErrValidationFailed)
	}
	return s.store.SetAccessState(ctx, personID, StateBlacklisted, reason)
}

// Unblacklist restores a person to Active and clears the reason.
func (s *Service) Unblacklist(ctx context.Context, personID string) error {
	return s.store.SetAccessState(ctx, personID, StateActive, "")
}

// Sessions returns sessions newest first.
func (s *Service) Sessions(ctx context.Context) ([]Session, error) {
	return s.store.ListSessions(ctx)
}

// SessionRequest describes a new pre-registration event.
type SessionRequest struct {
	HostID       string
	EventName    string
	Venue        string
	Participants string
	SessionDate  string
}

// CreateSession creates a session and its QR pre-registration payload.
// The payload is the JSON a QR encoder would render; image encoding is an
// external collaborator's job.
func (s *Service) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	if req.EventName == "" || req.Venue == "" {
		return Session{}, fmt.Errorf("%w: event name and venue required", ErrValidationFailed)
	}
	payload, err := json.Marshal(map[string]string{
		"reg_token": uuid.NewString(),
		"event":     req.EventName,
		"venue":     req.Venue,
		"date":      req.SessionDate,
	})
	if err != nil {
		return Session{}, err
	}
	return s.store.InsertSession(ctx, Session{
		HostID:       req.HostID,
		EventName:    req.EventName,
		Venue:        req.Venue,
		Participants: req.Participants,
		QRPayload:    string(payload),
		SessionDate:  req.SessionDate,
	})
}
