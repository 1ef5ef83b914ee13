// Package telemetry provides InfluxDB connectivity for PickLight Core.
//
// It wraps the official influxdb-client-go v2 library with this
// codebase's patterns for connection management, metric writing, and
// health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Command outcomes (acked / timeout / transport_error with latency)
//   - Controller presence transitions
//   - Gateway counters for dashboards
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "picklight",
//	    Bucket: "telemetry",
//	}
//
//	client, err := telemetry.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteCommandOutcome(mac, "light", "set", "acked", 42*time.Millisecond)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Telemetry is optional: a nil *Client is a valid no-op receiver for
// every write method, so callers never guard the disabled case. Write
// batch errors are reported via the SetOnError callback; connection and
// health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config (batch_size, flush_interval).
// A write never blocks a command path.
package telemetry
