package telemetry

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteCommandOutcome records one command exchange with a controller.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Tags stay low-cardinality: MACs number in the dozens per site and the
// class/operation/outcome sets are fixed.
//
// Example:
//
//	client.WriteCommandOutcome("24:6F:28:AA:00:01", "light", "set", "acked", 42*time.Millisecond)
func (c *Client) WriteCommandOutcome(mac, class, operation, outcome string, latency time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"command_outcome",
		map[string]string{
			"mac":       mac,
			"class":     class,
			"operation": operation,
			"outcome":   outcome,
		},
		map[string]interface{}{
			"latency_ms": float64(latency) / float64(time.Millisecond),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteControllerPresence records a controller going online or offline.
//
// The numeric field makes presence plottable as a step series.
func (c *Client) WriteControllerPresence(mac string, online bool) {
	if !c.IsConnected() {
		return
	}

	state := 0
	if online {
		state = 1
	}

	point := write.NewPoint(
		"controller_presence",
		map[string]string{
			"mac": mac,
		},
		map[string]interface{}{
			"online": state,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods, such as
// periodic gateway counter snapshots.
//
// Example:
//
//	client.WritePoint("ack_stats",
//	    map[string]string{"gateway": "pbl-01"},
//	    map[string]interface{}{"pending": 3, "matched": 1042})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
