package internaldefs

import (
	"strconv"
	"strings"

	"github.com/MrEthical07/dualauth"
)

// BucketCount is the number of histogram buckets, including +Inf.
const BucketCount = len(dualauth.HistogramBounds) + 1

// AuditDroppedName is the counter for audit events dropped on backpressure.
const AuditDroppedName = "dualauth_audit_dropped_total"

type CounterDef struct {
	ID   dualauth.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   dualauth.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: dualauth.MetricAuthenticateSuccess, Name: "dualauth_authenticate_success_total", Help: "Successful authentications."},
	{ID: dualauth.MetricAuthenticateFailure, Name: "dualauth_authenticate_failure_total", Help: "Failed authentications."},
	{ID: dualauth.MetricAuthorizeSuccess, Name: "dualauth_authorize_success_total", Help: "Successful authorizations."},
	{ID: dualauth.MetricAuthorizeFailure, Name: "dualauth_authorize_failure_total", Help: "Failed authorizations."},
	{ID: dualauth.MetricRoleDenied, Name: "dualauth_role_denied_total", Help: "Authorizations rejected for insufficient role."},
	{ID: dualauth.MetricSchemeRejected, Name: "dualauth_scheme_rejected_total", Help: "Calls with an unknown scheme or missing credential."},
	{ID: dualauth.MetricSessionCreated, Name: "dualauth_session_created_total", Help: "Created sessions."},
	{ID: dualauth.MetricSessionDeleted, Name: "dualauth_session_deleted_total", Help: "Sessions deleted by logout."},
	{ID: dualauth.MetricTokenIssued, Name: "dualauth_token_issued_total", Help: "Issued tokens."},
	{ID: dualauth.MetricLogout, Name: "dualauth_logout_total", Help: "Successful logouts."},
	{ID: dualauth.MetricLoginThrottled, Name: "dualauth_login_throttled_total", Help: "Logins refused by the attempt limiter."},
}

var HistogramDefs = []HistogramDef{
	{ID: dualauth.MetricAuthorizeLatency, Name: "dualauth_authorize_latency_seconds", Help: "Authorize latency histogram."},
}

// UpperBounds returns the finite bucket bounds in seconds.
func UpperBounds() []float64 {
	out := make([]float64, len(dualauth.HistogramBounds))
	for i, d := range dualauth.HistogramBounds {
		out[i] = d.Seconds()
	}
	return out
}

// BoundSuffixes returns instrument-name-safe bucket labels: "0_005" ... "inf".
func BoundSuffixes() []string {
	out := make([]string, 0, BucketCount)
	for _, b := range UpperBounds() {
		out = append(out, strings.ReplaceAll(strconv.FormatFloat(b, 'f', -1, 64), ".", "_"))
	}
	return append(out, "inf")
}

// NormalizeBuckets pads or truncates raw to BucketCount entries.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := range raw {
		running += raw[i]
		out[i] = running
	}
	return out
}
