package metrics

import "time"

// Quota check results.
const (
	QuotaAllowed   = "allowed"
	QuotaOverdraft = "overdraft"
	QuotaExhausted = "exhausted"
)

// QuotaChecked records a CheckAndReserve outcome.
func QuotaChecked(result string) {
	QuotaChecksTotal.WithLabelValues(result).Inc()
}

// QuotaReset records an allowance refill.
func QuotaReset(tier string) {
	QuotaResetsTotal.WithLabelValues(tier).Inc()
}

// UploadStored records a successful upload of size bytes.
func UploadStored(size int64) {
	UploadsTotal.WithLabelValues("stored").Inc()
	UploadBytesTotal.Add(float64(size))
}

// UploadRejected records an upload refused before storage.
func UploadRejected() {
	UploadsTotal.WithLabelValues("rejected").Inc()
}

// AICall records one AI processing call.
func AICall(err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	AICallsTotal.WithLabelValues(status).Inc()
	AICallDuration.Observe(d.Seconds())
}
