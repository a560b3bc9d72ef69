package access

import "time"

// ComputeStats folds the current record set into premise-wide statistics.
// Pure and order-independent; recomputed on demand, never accumulated.
// "Today" is the calendar day of now in now's location, matching the
// store-side day the timestamps were written under.
func ComputeStats(records []AccessRecord, now time.Time) DashboardStats {
	var stats DashboardStats
	var closedTotal time.Duration
	var closedCount int

	for _, rec := range records {
		today := sameDay(rec.EntryTime, now)
		if today {
			stats.TotalEntriesToday++
		}
		if rec.ExitTime == nil && rec.Role == RoleStaff {
			stats.ActiveOnSiteCount++
		}
		if rec.Status == StatusDenied && today {
			stats.AlertCount++
		}
		if rec.ExitTime != nil {
			if d := rec.ExitTime.Sub(rec.EntryTime); d >= 0 {
				closedTotal += d
				closedCount++
			}
		}
	}
	if closedCount > 0 {
		stats.AvgVisitDuration = (closedTotal / time.Duration(closedCount)).Truncate(time.Minute)
	}
	return stats
}

// ZoneOccupancy groups records that are currently on the premises by
// location id. A record counts while it is not checked out and its access
// window has not lapsed.
func ZoneOccupancy(records []AccessRecord, now time.Time, window time.Duration) map[string][]AccessRecord {
	zones := make(map[string][]AccessRecord)
	for _, rec := range records {
		if rec.Status == StatusCheckedOut {
			continue
		}
		if _, ok := RemainingTime(rec, now, window); !ok {
			continue
		}
		zones[rec.LocationID] = append(zones[rec.LocationID], rec)
	}
	return zones
}

func sameDay(t, ref time.Time) bool {
	y1, m1, d1 := t.In(ref.Location()).Date()
	y2, m2, d2 := ref.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
