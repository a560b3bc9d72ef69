package access

import "strings"

// Filter narrows a record set for operator views. Query is a
// case-insensitive substring match over the text fields; Role, Status and
// Location match exactly; OnSite keeps only records still checked in.
// All populated criteria must hold (AND semantics).
type Filter struct {
	Query    string
	Role     Role
	Status   Status
	Location string
	OnSite   bool
}

// Match reports whether rec satisfies every populated criterion.
func (f Filter) Match(rec AccessRecord) bool {
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(rec.SubjectName), q) &&
			!strings.Contains(strings.ToLower(rec.Company), q) &&
			!strings.Contains(strings.ToLower(rec.VehiclePlate), q) &&
			!strings.Contains(strings.ToLower(rec.LocationName), q) {
			return false
		}
	}
	if f.Role != "" && rec.Role != f.Role {
		return false
	}
	if f.Status != "" && rec.Status != f.Status {
		return false
	}
	if f.Location != "" && rec.LocationID != f.Location && rec.LocationName != f.Location {
		return false
	}
	if f.OnSite && rec.Status != StatusGranted {
		return false
	}
	return true
}

// Apply returns the records matching f, preserving order.
func (f Filter) Apply(records []AccessRecord) []AccessRecord {
	out := make([]AccessRecord, 0, len(records))
	for _, rec := range records {
		if f.Match(rec) {
			out = append(out, rec)
		}
	}
	return out
}
