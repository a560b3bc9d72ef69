package access

import "time"

// Status is the lifecycle state of an access record. Values match the
// access_status column in the backing store.
type Status string

const (
	StatusGranted    Status = "Granted"
	StatusCheckedOut Status = "Checked Out"
	StatusDenied     Status = "Denied"
	StatusPending    Status = "Pending"
	StatusRevoked    Status = "Revoked"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusGranted, StatusCheckedOut, StatusDenied, StatusPending, StatusRevoked:
		return true
	}
	return false
}

// Role is a person's registered category. Values match the user_type column.
type Role string

const (
	RoleStaff      Role = "Staff"
	RoleVisitor    Role = "Visitor"
	RoleContractor Role = "Contractor"
	RoleVIP        Role = "VIP"
	RoleTransient  Role = "Transient"
	RoleDelivery   Role = "Delivery"
	RoleHost       Role = "Host"
)

// AccessState marks whether a person may be granted entry at all.
type AccessState string

const (
	StateActive      AccessState = "Active"
	StateBlacklisted AccessState = "Blacklisted"
)

// AccessRecord is one physical presence event: an entry, an optional exit,
// and the lifecycle status in between. Subject and location fields are
// denormalized from the joined users/locations rows on read.
type AccessRecord struct {
	ID           string     `json:"id"`
	SubjectID    string     `json:"subject_id"`
	SubjectName  string     `json:"subject_name"`
	Role         Role       `json:"role"`
	Company      string     `json:"company,omitempty"`
	AvatarURL    string     `json:"avatar_url,omitempty"`
	LocationID   string     `json:"location_id"`
	LocationName string     `json:"location_name"`
	EntryTime    time.Time  `json:"entry_time"`
	ExitTime     *time.Time `json:"exit_time,omitempty"`
	Status       Status     `json:"status"`
	Purpose      string     `json:"purpose,omitempty"`
	VehiclePlate string     `json:"vehicle_plate,omitempty"`

	// Suspicious is derived at read time from the record status and the
	// subject's current blacklist state. It is never persisted.
	Suspicious bool `json:"suspicious"`
}

// Person is a registered identity, independent of any single visit.
type Person struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Role            Role        `json:"role"`
	Company         string      `json:"company,omitempty"`
	Phone           string      `json:"phone,omitempty"`
	Email           string      `json:"email,omitempty"`
	AvatarURL       string      `json:"avatar_url,omitempty"`
	AccessState     AccessState `json:"access_state"`
	BlacklistReason string      `json:"blacklist_reason,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// Location is a zone on the premises.
type Location struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ZoneCode string `json:"zone_code,omitempty"`
}

// Session is a scheduled event with a pre-registration QR payload. It has
// no lifecycle beyond creation.
type Session struct {
	ID           string    `json:"id"`
	HostID       string    `json:"host_id"`
	EventName    string    `json:"event_name"`
	Venue        string    `json:"venue"`
	Participants string    `json:"participants,omitempty"`
	QRPayload    string    `json:"qr_payload,omitempty"`
	SessionDate  string    `json:"session_date"`
	CreatedAt    time.Time `json:"created_at"`
}

// DashboardStats is derived from the current record set on demand and is
// never the source of truth.
type DashboardStats struct {
	TotalEntriesToday int           `json:"total_entries_today"`
	ActiveOnSiteCount int           `json:"active_on_site"`
	AlertCount        int           `json:"alert_count"`
	AvgVisitDuration  time.Duration `json:"avg_visit_duration"`
}

// Alert is the payload published to the security alert queue when a
// lifecycle mutation warrants operator attention.
type Alert struct {
	RecordID string    `json:"record_id"`
	Reason   string    `json:"reason"`
	NotedAt  time.Time `json:"noted_at"`
}
