package internaldefs

import (
	studyauth "github.com/MrEthical07/goStudyAuth"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   studyauth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   studyauth.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exporters publish for Engine.AuditDropped.
const AuditDroppedName = "studyauth_audit_dropped_total"

// CounterDefs lists every counter in MetricID order.
var CounterDefs = []CounterDef{
	{ID: studyauth.MetricVerificationRequested, Name: "studyauth_verification_requested_total", Help: "Verification messages sent."},
	{ID: studyauth.MetricVerificationThrottled, Name: "studyauth_verification_throttled_total", Help: "Verification requests suppressed by the channel throttle."},
	{ID: studyauth.MetricVerificationSuccess, Name: "studyauth_verification_success_total", Help: "Addresses verified."},
	{ID: studyauth.MetricVerificationFailure, Name: "studyauth_verification_failure_total", Help: "Rejected verification tokens."},
	{ID: studyauth.MetricPasswordResetRequest, Name: "studyauth_password_reset_request_total", Help: "Password reset messages sent."},
	{ID: studyauth.MetricPasswordResetThrottled, Name: "studyauth_password_reset_throttled_total", Help: "Password reset requests suppressed by the channel throttle."},
	{ID: studyauth.MetricPasswordResetConfirmSuccess, Name: "studyauth_password_reset_confirm_success_total", Help: "Completed password resets."},
	{ID: studyauth.MetricPasswordResetConfirmFailure, Name: "studyauth_password_reset_confirm_failure_total", Help: "Rejected password reset tokens."},
	{ID: studyauth.MetricAccountExistsNotified, Name: "studyauth_account_exists_notified_total", Help: "Account exists notices sent."},
	{ID: studyauth.MetricSignInRequested, Name: "studyauth_signin_requested_total", Help: "Channel sign-in messages sent."},
	{ID: studyauth.MetricSignInThrottled, Name: "studyauth_signin_throttled_total", Help: "Channel sign-in requests suppressed by the channel throttle."},
	{ID: studyauth.MetricChannelSignInSuccess, Name: "studyauth_channel_signin_success_total", Help: "Successful channel sign-ins."},
	{ID: studyauth.MetricChannelSignInFailure, Name: "studyauth_channel_signin_failure_total", Help: "Failed channel sign-ins."},
	{ID: studyauth.MetricPasswordSignInSuccess, Name: "studyauth_password_signin_success_total", Help: "Successful password sign-ins."},
	{ID: studyauth.MetricPasswordSignInFailure, Name: "studyauth_password_signin_failure_total", Help: "Failed password sign-ins."},
	{ID: studyauth.MetricPasswordSignInRateLimited, Name: "studyauth_password_signin_rate_limited_total", Help: "Password sign-ins refused by the failure limit."},
	{ID: studyauth.MetricReauthSuccess, Name: "studyauth_reauth_success_total", Help: "Successful reauthentications."},
	{ID: studyauth.MetricReauthFailure, Name: "studyauth_reauth_failure_total", Help: "Failed reauthentications."},
	{ID: studyauth.MetricSignUpSuccess, Name: "studyauth_signup_success_total", Help: "Accounts created."},
	{ID: studyauth.MetricSignUpExisting, Name: "studyauth_signup_existing_total", Help: "Sign-ups for addresses that already had an account."},
	{ID: studyauth.MetricSignOut, Name: "studyauth_signout_total", Help: "Sign-outs."},
	{ID: studyauth.MetricSessionAssembled, Name: "studyauth_session_assembled_total", Help: "Sessions assembled and saved."},
	{ID: studyauth.MetricConsentRequired, Name: "studyauth_consent_required_total", Help: "Sessions returned with consent outstanding."},
}

// HistogramDefs lists every histogram.
var HistogramDefs = []HistogramDef{
	{ID: studyauth.MetricSessionAssemblyLatency, Name: "studyauth_session_assembly_latency_seconds", Help: "Session assembly latency."},
}

// HistogramUpperBounds are the bucket bounds in seconds, without +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters
// that publish buckets as separate instruments.
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

// NormalizeBuckets pads or truncates a snapshot histogram to eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
