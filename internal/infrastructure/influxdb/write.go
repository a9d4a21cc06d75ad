package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementAdmission = "admission_rejection"
	MeasurementRateLimit = "ratelimit_check"
)

// WriteAdmissionDecision records one rejected request: the pipeline gate
// that stopped it (authn, role, ownership, csrf, ratelimit), the reason
// code and the HTTP status returned.
func (c *Client) WriteAdmissionDecision(gate, reason string, status int) {
	c.WritePoint(MeasurementAdmission,
		map[string]string{
			"gate":   gate,
			"reason": reason,
		},
		map[string]any{
			"status": status,
		},
	)
}

// WriteRateLimitCheck records one counted request for a policy.
func (c *Client) WriteRateLimitCheck(policy string, allowed bool, remaining int) {
	c.WritePoint(MeasurementRateLimit,
		map[string]string{
			"policy":  policy,
			"allowed": strconv.FormatBool(allowed),
		},
		map[string]any{
			"remaining": remaining,
		},
	)
}

// WritePoint writes a point stamped now. Tags must stay low cardinality:
// never tag with identity or tenant ids.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
