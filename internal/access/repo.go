package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Repository persists access data in Postgres. Record identifiers are
// store-assigned integers exposed as strings.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `
	a.id_logs, a.user_id, a.location_id, a.access_status,
	a.entry_timestamp, a.exit_timestamp, a.purpose, a.vehicle_plate,
	u.user_name, u.user_type, u.user_company, u.user_avatar, u.user_status,
	l.location_name`

const recordJoin = `
	FROM access_logs a
	JOIN users u ON u.user_id = a.user_id
	JOIN locations l ON l.location_id = a.location_id`

func scanRecord(row interface{ Scan(...any) error }) (AccessRecord, error) {
	var (
		rec         AccessRecord
		id, subject int64
		location    sql.NullInt64
		exit        sql.NullTime
		purpose     sql.NullString
		plate       sql.NullString
		company     sql.NullString
		avatar      sql.NullString
		userStatus  string
	)
	err := row.Scan(&id, &subject, &location, &rec.Status,
		&rec.EntryTime, &exit, &purpose, &plate,
		&rec.SubjectName, &rec.Role, &company, &avatar, &userStatus,
		&rec.LocationName)
	if err != nil {
		return AccessRecord{}, err
	}
	rec.ID = strconv.FormatInt(id, 10)
	rec.SubjectID = strconv.FormatInt(subject, 10)
	if location.Valid {
		rec.LocationID = strconv.FormatInt(location.Int64, 10)
	}
	if exit.Valid {
		t := exit.Time
		rec.ExitTime = &t
	}
	rec.Purpose = purpose.String
	rec.VehiclePlate = plate.String
	rec.Company = company.String
	rec.AvatarURL = avatar.String
	// Derived, never stored: suspicion reflects the subject's blacklist
	// state as of this read.
	rec.Suspicious = rec.Status == StatusDenied || AccessState(userStatus) == StateBlacklisted
	return rec, nil
}

// ListRecords returns the newest records with joined subject and location.
func (r *Repository) ListRecords(ctx context.Context, limit int) ([]AccessRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `SELECT`+recordColumns+recordJoin+`
		ORDER BY a.entry_timestamp DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()
	var res []AccessRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, storeErr(err)
		}
		res = append(res, rec)
	}
	return res, storeErr(rows.Err())
}

// GetRecord returns a single record by id.
func (r *Repository) GetRecord(ctx context.Context, id string) (AccessRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+recordColumns+recordJoin+`
		WHERE a.id_logs = $1
	`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return AccessRecord{}, ErrNotFound
	}
	if err != nil {
		return AccessRecord{}, storeErr(err)
	}
	return rec, nil
}

// InsertRecord writes a new access record; the store assigns the id.
func (r *Repository) InsertRecord(ctx context.Context, rec AccessRecord) (AccessRecord, error) {
	if rec.EntryTime.IsZero() {
		rec.EntryTime = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = StatusGranted
	}
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO access_logs (user_id, location_id, access_status, entry_timestamp, purpose, vehicle_plate)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id_logs
	`, rec.SubjectID, rec.LocationID, rec.Status, rec.EntryTime, rec.Purpose, rec.VehiclePlate).Scan(&id)
	if err != nil {
		return AccessRecord{}, storeErr(err)
	}
	rec.ID = strconv.FormatInt(id, 10)
	return rec, nil
}

// ShiftEntry rewrites entry_timestamp forward by delta. The Granted guard
// is evaluated server-side against the current row, not the caller's copy.
func (r *Repository) ShiftEntry(ctx context.Context, id string, delta time.Duration) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE access_logs
		SET entry_timestamp = entry_timestamp + ($2 * interval '1 second')
		WHERE id_logs = $1 AND access_status = $3
	`, id, delta.Seconds(), StatusGranted)
	return r.guarded(ctx, id, res, err)
}

// MarkRevoked sets status to Revoked unless the record is terminal.
// Updating an already-Revoked row still matches, so revoke is idempotent.
func (r *Repository) MarkRevoked(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE access_logs
		SET access_status = $2
		WHERE id_logs = $1 AND access_status <> $3
	`, id, StatusRevoked, StatusCheckedOut)
	return r.guarded(ctx, id, res, err)
}

// MarkReinstated restores Granted from Denied or Revoked. entry_timestamp
// is deliberately untouched: reinstatement withdraws the revocation, it
// does not extend the access window.
func (r *Repository) MarkReinstated(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE access_logs
		SET access_status = $2
		WHERE id_logs = $1 AND access_status IN ($3, $4)
	`, id, StatusGranted, StatusDenied, StatusRevoked)
	return r.guarded(ctx, id, res, err)
}

// MarkCheckedOut records the exit instant and moves to the terminal state.
func (r *Repository) MarkCheckedOut(ctx context.Context, id string, exit time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE access_logs
		SET access_status = $2, exit_timestamp = $3
		WHERE id_logs = $1 AND access_status = $4 AND exit_timestamp IS NULL
	`, id, StatusCheckedOut, exit, StatusGranted)
	return r.guarded(ctx, id, res, err)
}

// guarded maps the affected-row count of a conditional update onto the
// error taxonomy: zero rows means the guard failed concurrently unless the
// record is gone entirely.
func (r *Repository) guarded(ctx context.Context, id string, res sql.Result, err error) error {
	if err != nil {
		return storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if n > 0 {
		return nil
	}
	var exists bool
	err = r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM access_logs WHERE id_logs = $1)`, id).Scan(&exists)
	if err != nil {
		return storeErr(err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrPreconditionFailed
}

// ListPeople returns all registered people ordered by name.
func (r *Repository) ListPeople(ctx context.Context) ([]Person, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, user_name, user_type, user_company, user_phone, user_email,
		       user_avatar, user_status, blacklist_reason, created_at
		FROM users
		ORDER BY user_name
	`)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()
	var people []Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, storeErr(err)
		}
		people = append(people, p)
	}
	return people, storeErr(rows.Err())
}

func scanPerson(row interface{ Scan(...any) error }) (Person, error) {
	var (
		p                             Person
		id                            int64
		company, phone, email, avatar sql.NullString
		reason                        sql.NullString
		created                       sql.NullTime
	)
	err := row.Scan(&id, &p.Name, &p.Role, &company, &phone, &email,
		&avatar, &p.AccessState, &reason, &created)
	if err != nil {
		return Person{}, err
	}
	p.ID = strconv.FormatInt(id, 10)
	p.Company = company.String
	p.Phone = phone.String
	p.Email = email.String
	p.AvatarURL = avatar.String
	p.BlacklistReason = reason.String
	p.CreatedAt = created.Time
	return p, nil
}

// InsertPerson registers a new person in the Active state.
func (r *Repository) InsertPerson(ctx context.Context, p Person) (Person, error) {
	if p.AccessState == "" {
		p.AccessState = StateActive
	}
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (user_name, user_type, user_company, user_phone, user_email, user_avatar, user_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING user_id, created_at
	`, p.Name, p.Role, p.Company, p.Phone, p.Email, p.AvatarURL, p.AccessState).Scan(&id, &p.CreatedAt)
	if err != nil {
		return Person{}, storeErr(err)
	}
	p.ID = strconv.FormatInt(id, 10)
	return p, nil
}

// SetAccessState blacklists or reinstates a person. Past access records
// are untouched; only the derived suspicion flag and future grant
// decisions are affected.
func (r *Repository) SetAccessState(ctx context.Context, id string, state AccessState, reason string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET user_status = $2, blacklist_reason = $3
		WHERE user_id = $1
	`, id, state, nullable(reason))
	if err != nil {
		return storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSessions returns sessions newest first.
func (r *Repository) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, host_id, event_name, venue, participants, qr_code, session_date, created_at
		FROM sessions
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()
	var sessions []Session
	for rows.Next() {
		var (
			s                Session
			id, host         int64
			participants, qr sql.NullString
		)
		if err := rows.Scan(&id, &host, &s.EventName, &s.Venue, &participants, &qr, &s.SessionDate, &s.CreatedAt); err != nil {
			return nil, storeErr(err)
		}
		s.ID = strconv.FormatInt(id, 10)
		s.HostID = strconv.FormatInt(host, 10)
		s.Participants = participants.String
		s.QRPayload = qr.String
		sessions = append(sessions, s)
	}
	return sessions, storeErr(rows.Err())
}

// InsertSession creates a session row.
func (r *Repository) InsertSession(ctx context.Context, s Session) (Session, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sessions (host_id, event_name, venue, participants, qr_code, session_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING session_id, created_at
	`, s.HostID, s.EventName, s.Venue, s.Participants, s.QRPayload, s.SessionDate).Scan(&id, &s.CreatedAt)
	if err != nil {
		return Session{}, storeErr(err)
	}
	s.ID = strconv.FormatInt(id, 10)
	return s, nil
}

// InsertAlert appends to the security alert log.
func (r *Repository) InsertAlert(ctx context.Context, a Alert) error {
	if a.NotedAt.IsZero() {
		a.NotedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO security_alerts (log_id, reason, noted_at)
		VALUES ($1, $2, $3)
	`, a.RecordID, a.Reason, a.NotedAt)
	return storeErr(err)
}

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
