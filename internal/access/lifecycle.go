package access

import "time"

// Lifecycle transitions:
//
//	Pending -> Granted
//	Granted <-> Revoked | Denied   (revoke / reinstate)
//	Granted -> Checked Out         (terminal)
//
// The predicates below describe when each operation is legal against a
// locally observed status. They drive UI affordances and the in-memory
// store; the authoritative check is always the guarded write in the
// repository, which re-evaluates the same predicate against the current
// row (a locally-legal operation can still fail with ErrPreconditionFailed).

// CanExtend reports whether an extension is legal from s.
func CanExtend(s Status) bool { return s == StatusGranted }

// CanRevoke reports whether revoking is legal from s. Revoking an already
// revoked record is a no-op success, so Revoked itself passes.
func CanRevoke(s Status) bool { return s != StatusCheckedOut }

// CanReinstate reports whether reinstating is legal from s.
func CanReinstate(s Status) bool { return s == StatusDenied || s == StatusRevoked }

// CanCheckOut reports whether checking out is legal from s.
func CanCheckOut(s Status) bool { return s == StatusGranted }

// ExtendDelta converts a bounded hours/minutes pair into a duration.
// Bounds per call: 0-24 hours, 0-59 minutes, non-negative.
func ExtendDelta(hours, minutes int) (time.Duration, error) {
	if hours < 0 || hours > 24 || minutes < 0 || minutes > 59 {
		return 0, ErrValidationFailed
	}
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute, nil
}
