package telemetry_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/picklight-core/internal/infrastructure/config"
	"github.com/nerrad567/picklight-core/internal/infrastructure/telemetry"
)

// testConfig returns a configuration for the local dev InfluxDB.
// These values match docker-compose.yml.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "picklight-dev-token",
		Org:           "picklight",
		Bucket:        "telemetry",
		BatchSize:     100,
		FlushInterval: 1, // 1 second for faster test feedback
	}
}

// skipIfNoInfluxDB skips the test if InfluxDB is not running.
func skipIfNoInfluxDB(t *testing.T) {
	t.Helper()
	client, err := telemetry.Connect(testConfig())
	if err != nil {
		t.Skip("InfluxDB not available, skipping integration test")
	}
	client.Close()
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := telemetry.Connect(cfg)
	if !errors.Is(err, telemetry.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := telemetry.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
}

func TestConnect_DefaultBatchSettings(t *testing.T) {
	skipIfNoInfluxDB(t)
	cfg := testConfig()
	cfg.BatchSize = 0
	cfg.FlushInterval = -1

	client, err := telemetry.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect() with default batch settings")
	}
}

func TestHealthCheck(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := telemetry.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestWriteCommandOutcome(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := telemetry.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	var writeErr error
	var mu sync.Mutex
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})

	client.WriteCommandOutcome("24:6F:28:AA:00:01", "light", "set", "acked", 42*time.Millisecond)
	client.WriteControllerPresence("24:6F:28:AA:00:01", true)
	client.Flush()

	// Give a moment for the error callback
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if writeErr != nil {
		t.Errorf("Write error = %v", writeErr)
	}
}

func TestCommandStats(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := telemetry.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	client.WriteCommandOutcome("24:6F:28:AA:00:09", "config", "create_Position", "timeout", 5*time.Second)
	client.Flush()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats, err := client.CommandStats(ctx, time.Hour)
	if err != nil {
		t.Fatalf("CommandStats() error = %v", err)
	}
	if stats["timeout"] < 1 {
		t.Errorf("stats[timeout] = %d, want >= 1", stats["timeout"])
	}
}

func TestClose(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := telemetry.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	client.WriteCommandOutcome("24:6F:28:AA:00:02", "light", "unset", "acked", time.Millisecond)

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}
