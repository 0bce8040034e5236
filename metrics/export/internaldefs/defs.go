package internaldefs

import (
	"strconv"

	goTMDB "github.com/MrEthical07/goTMDB"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   goTMDB.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   goTMDB.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter in export order.
var CounterDefs = []CounterDef{
	{ID: goTMDB.MetricLoginAttempt, Name: "gotmdb_login_attempt_total", Help: "Login submissions."},
	{ID: goTMDB.MetricLoginSuccess, Name: "gotmdb_login_success_total", Help: "Logins that stored a session."},
	{ID: goTMDB.MetricLoginFailure, Name: "gotmdb_login_failure_total", Help: "Logins that failed at any step."},
	{ID: goTMDB.MetricLoginRateLimited, Name: "gotmdb_login_rate_limited_total", Help: "Logins rejected by the failed-login budget."},
	{ID: goTMDB.MetricLoginInFlight, Name: "gotmdb_login_in_flight_total", Help: "Logins rejected because another attempt for the user was running."},
	{ID: goTMDB.MetricInputRejected, Name: "gotmdb_input_rejected_total", Help: "Logins rejected for empty credentials."},
	{ID: goTMDB.MetricRequestTokenFailure, Name: "gotmdb_request_token_failure_total", Help: "Failures creating a request token."},
	{ID: goTMDB.MetricValidateLoginFailure, Name: "gotmdb_validate_login_failure_total", Help: "Failures validating credentials."},
	{ID: goTMDB.MetricCreateSessionFailure, Name: "gotmdb_create_session_failure_total", Help: "Failures exchanging the validated token for a session."},
	{ID: goTMDB.MetricResolveUserFailure, Name: "gotmdb_resolve_user_failure_total", Help: "Failures resolving the account id."},
	{ID: goTMDB.MetricSessionPersisted, Name: "gotmdb_session_persisted_total", Help: "Sessions written to the store."},
	{ID: goTMDB.MetricSessionPersistFailure, Name: "gotmdb_session_persist_failure_total", Help: "Session store write failures."},
	{ID: goTMDB.MetricLogout, Name: "gotmdb_logout_total", Help: "Local sessions removed by logout."},
	{ID: goTMDB.MetricLogoutRemoteFailure, Name: "gotmdb_logout_remote_failure_total", Help: "Logouts whose remote revoke failed."},
	{ID: goTMDB.MetricTicketIssued, Name: "gotmdb_ticket_issued_total", Help: "Handoff tickets issued."},
	{ID: goTMDB.MetricTicketRejected, Name: "gotmdb_ticket_rejected_total", Help: "Handoff tickets rejected."},
}

// HistogramDefs lists every histogram in export order.
var HistogramDefs = []HistogramDef{
	{ID: goTMDB.MetricLoginLatency, Name: "gotmdb_login_latency_seconds", Help: "Wall time of one login attempt."},
}

// AuditDroppedName is the counter for events dropped on a full audit buffer.
const AuditDroppedName = "gotmdb_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// BucketCount is the number of histogram buckets, +Inf included.
const BucketCount = 8

// HistogramBounds are the finite upper bounds in seconds. The last bucket is +Inf.
var HistogramBounds = [BucketCount - 1]float64{0.1, 0.25, 0.5, 1, 2, 5, 10}

// BucketLabel returns the "le" label of bucket i: the bound in seconds, or
// "+Inf" for the last bucket.
func BucketLabel(i int) string {
	if i < 0 || i >= len(HistogramBounds) {
		return "+Inf"
	}
	return strconv.FormatFloat(HistogramBounds[i], 'g', -1, 64)
}

// NormalizeBuckets copies raw into a fixed-size array, padding with zeros.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
