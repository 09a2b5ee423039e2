package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	configPath = filepath.Join(dir, "relayd.yaml")
	t.Cleanup(func() { configPath = "" })

	if err := os.WriteFile(configPath, []byte("version: 1\nhttp:\n  port: 8080\nrelay:\n  channels: 4\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := runCmd.Flags().Set("channels", "1"); err != nil {
		t.Fatal(err)
	}
	if err := runCmd.Flags().Set("device-id", "bench1"); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(runCmd)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("HTTP.Port = %d, want 8080 from file", cfg.HTTP.Port)
	}
	if cfg.Relay.Channels != 1 || cfg.DeviceID != "bench1" {
		t.Errorf("flags not applied: channels=%d id=%q", cfg.Relay.Channels, cfg.DeviceID)
	}

	if err := runCmd.Flags().Set("device-id", "not valid"); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(runCmd); err == nil || !strings.Contains(err.Error(), "device_id") {
		t.Errorf("loadConfig() error = %v, want device_id complaint", err)
	}
}

func TestFaultSignallerLogsPattern(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	faultSignaller{logger: zap.New(core)}.Signal(0b11101110)

	entries := logs.FilterMessage("Fault signal").All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	if got := entries[0].ContextMap()["pattern"]; got != "11101110" {
		t.Errorf("pattern = %v", got)
	}
}
