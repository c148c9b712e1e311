package internaldefs

import (
	"github.com/MrEthical07/jam"
)

// CounterDef names one jam counter for exporters. Module is exported as an
// attribute by the OTel exporter.
type CounterDef struct {
	ID     jam.MetricID
	Module string
	Name   string
	Help   string
}

// HistogramDef names one jam latency histogram.
type HistogramDef struct {
	ID   jam.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter in MetricID order.
var CounterDefs = []CounterDef{
	{ID: jam.MetricJWTIssued, Module: "jwt", Name: "jam_jwt_issued_total", Help: "JWTs created."},
	{ID: jam.MetricJWTVerified, Module: "jwt", Name: "jam_jwt_verified_total", Help: "JWTs accepted."},
	{ID: jam.MetricJWTRejected, Module: "jwt", Name: "jam_jwt_rejected_total", Help: "JWTs rejected for format, algorithm or signature."},
	{ID: jam.MetricJWTExpired, Module: "jwt", Name: "jam_jwt_expired_total", Help: "JWTs rejected as expired."},
	{ID: jam.MetricJWTListed, Module: "jwt", Name: "jam_jwt_listed_total", Help: "JWTs rejected by the black or white list."},
	{ID: jam.MetricPASETOIssued, Module: "paseto", Name: "jam_paseto_issued_total", Help: "PASETO tokens created."},
	{ID: jam.MetricPASETOVerified, Module: "paseto", Name: "jam_paseto_verified_total", Help: "PASETO tokens accepted."},
	{ID: jam.MetricPASETORejected, Module: "paseto", Name: "jam_paseto_rejected_total", Help: "PASETO tokens that failed to decode."},
	{ID: jam.MetricPASETOExpired, Module: "paseto", Name: "jam_paseto_expired_total", Help: "PASETO tokens rejected as expired."},
	{ID: jam.MetricSessionCreated, Module: "session", Name: "jam_session_created_total", Help: "Sessions created."},
	{ID: jam.MetricSessionHit, Module: "session", Name: "jam_session_hit_total", Help: "Session reads that found data."},
	{ID: jam.MetricSessionMiss, Module: "session", Name: "jam_session_miss_total", Help: "Session reads of unknown or expired IDs."},
	{ID: jam.MetricSessionUpdated, Module: "session", Name: "jam_session_updated_total", Help: "Session updates."},
	{ID: jam.MetricSessionDeleted, Module: "session", Name: "jam_session_deleted_total", Help: "Session deletions."},
	{ID: jam.MetricSessionReworked, Module: "session", Name: "jam_session_reworked_total", Help: "Session ID rotations."},
	{ID: jam.MetricSessionCleared, Module: "session", Name: "jam_session_cleared_total", Help: "Clear operations over a session key."},
	{ID: jam.MetricOTPSuccess, Module: "otp", Name: "jam_otp_success_total", Help: "Accepted OTP codes."},
	{ID: jam.MetricOTPFailure, Module: "otp", Name: "jam_otp_failure_total", Help: "Rejected OTP codes."},
	{ID: jam.MetricOAuth2Success, Module: "oauth2", Name: "jam_oauth2_success_total", Help: "Successful token endpoint calls."},
	{ID: jam.MetricOAuth2Failure, Module: "oauth2", Name: "jam_oauth2_failure_total", Help: "Failed token endpoint calls."},
}

// HistogramDefs lists the latency histograms.
var HistogramDefs = []HistogramDef{
	{ID: jam.MetricVerifyLatency, Name: "jam_verify_latency_seconds", Help: "JWT and PASETO verification latency."},
}

// AuditDroppedName is the counter exported for AuditDropped.
const AuditDroppedName = "jam_audit_dropped_total"

// HistogramBounds are the upper bounds of the jam latency buckets in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix renders HistogramBounds for use inside instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
