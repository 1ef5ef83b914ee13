package telemetry

import (
	"context"
	"fmt"
	"time"
)

// CommandStats returns command counts grouped by outcome over the
// trailing window.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - window: How far back to aggregate (e.g. time.Hour)
//
// Returns:
//   - map[string]int64: Counts keyed by outcome (acked, timeout, transport_error)
//   - error: nil on success, otherwise the query error
func (c *Client) CommandStats(ctx context.Context, window time.Duration) (map[string]int64, error) {
	if c == nil || !c.IsConnected() {
		return nil, ErrNotConnected
	}
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive")
	}

	result, err := c.queryAPI.Query(ctx, commandStatsFlux(c.cfg.Bucket, window))
	if err != nil {
		return nil, fmt.Errorf("querying command stats: %w", err)
	}

	stats := make(map[string]int64)
	for result.Next() {
		record := result.Record()
		outcome, ok := record.ValueByKey("outcome").(string)
		if !ok {
			continue
		}
		if count, ok := record.Value().(int64); ok {
			stats[outcome] += count
		}
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("reading command stats: %w", err)
	}

	return stats, nil
}

// commandStatsFlux builds the Flux aggregation for CommandStats.
// The window is rendered in whole seconds; Flux rejects fractional
// duration literals.
func commandStatsFlux(bucket string, window time.Duration) string {
	seconds := int64(window.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return fmt.Sprintf(`from(bucket: %q)
  |> range(start: -%ds)
  |> filter(fn: (r) => r._measurement == "command_outcome")
  |> filter(fn: (r) => r._field == "latency_ms")
  |> group(columns: ["outcome"])
  |> count()`, bucket, seconds)
}
