package httpserver

import (
	"github.com/shirou/gopsutil/v4/disk"
)

// minDiskSpace is the free-space floor below which the disk-space indicator
// reports unhealthy, carried forward from the original DiskSpaceHealthIndicator
// (MIN_DISK_SPACE = 10 * 1024 * 1024).
const minDiskSpace = 10 * 1024 * 1024

// indicator is one named health check contributing to the aggregate
// /health response, mirroring the original HealthIndicator interface
// (getName/check) the teacher's own healthz/readyz handlers never needed
// because lockd has no equivalent per-subsystem health breakdown.
type indicator struct {
	name    string
	healthy bool
	details interface{}
}

// diskSpaceIndicator reports the free/total bytes available on the
// filesystem backing root, unhealthy when free space drops at or below
// minDiskSpace.
func diskSpaceIndicator(root string) indicator {
	usage, err := disk.Usage(root)
	if err != nil {
		return indicator{
			name:    "diskSpace",
			healthy: false,
			details: map[string]string{"error": "unable to check disk space"},
		}
	}
	return indicator{
		name:    "diskSpace",
		healthy: usage.Free > minDiskSpace,
		details: map[string]interface{}{
			"free":      usage.Free,
			"total":     usage.Total,
			"threshold": uint64(minDiskSpace),
		},
	}
}

// healthReport aggregates every indicator into the status/details shape
// spec §4.5 requires for GET /health.
type healthReport struct {
	Status    string                 `json:"status"`
	Details   map[string]interface{} `json:"details"`
	RequestID string                 `json:"requestId"`
}

func buildHealthReport(root, requestID string) healthReport {
	indicators := []indicator{diskSpaceIndicator(root)}

	status := "UP"
	details := make(map[string]interface{}, len(indicators))
	for _, ind := range indicators {
		entry := map[string]interface{}{"details": ind.details}
		if ind.healthy {
			entry["status"] = "UP"
		} else {
			entry["status"] = "DOWN"
			status = "DOWN"
		}
		details[ind.name] = entry
	}

	return healthReport{Status: status, Details: details, RequestID: requestID}
}
