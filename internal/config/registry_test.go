package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry("x.yaml")
	if reg.Version != 1 || reg.Controllers == nil || reg.Preferences == nil {
		t.Fatalf("NewRegistry() = %+v", reg)
	}
	if reg.Preferences.DiscoverTimeout != 5 {
		t.Errorf("DiscoverTimeout = %d", reg.Preferences.DiscoverTimeout)
	}
}

func TestRegistryChannels(t *testing.T) {
	reg := NewRegistry("x.yaml")
	reg.SetChannelLabel("bench1", 1, "Pump")

	if got := reg.ChannelLabel("bench1", 1); got != "Pump" {
		t.Errorf("ChannelLabel(1) = %q", got)
	}
	if got := reg.ChannelLabel("bench1", 2); got != "channel 2" {
		t.Errorf("ChannelLabel(2) = %q", got)
	}
	if got := reg.ChannelLabel("other", 1); got != "channel 1" {
		t.Errorf("unknown controller label = %q", got)
	}

	reg.SetChannelLabel("bench1", 1, "")
	if _, ok := reg.Controllers["bench1"].Channels[1]; ok {
		t.Error("empty label did not remove the entry")
	}
}

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry("x.yaml")
	reg.Ensure("bench1").Nickname = "garage"
	reg.Ensure("bench2")

	if id, _, ok := reg.Resolve("garage"); !ok || id != "bench1" {
		t.Errorf("Resolve(nickname) = %q, %v", id, ok)
	}
	if id, _, ok := reg.Resolve("bench2"); !ok || id != "bench2" {
		t.Errorf("Resolve(id) = %q, %v", id, ok)
	}
	if _, _, ok := reg.Resolve("attic"); ok {
		t.Error("Resolve() found an unknown controller")
	}
	if ids := reg.IDs(); len(ids) != 2 || ids[0] != "bench1" {
		t.Errorf("IDs() = %v", ids)
	}
}

func TestRegistrySaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), RegistryFile)
	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry(missing) error = %v", err)
	}

	seen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reg.Seen("bench1", "192.168.1.40:80", seen)
	reg.SetChannelLabel("bench1", 2, "Heater")
	if err := reg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %v, want 0600", perm)
	}

	got, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry() error = %v", err)
	}
	c := got.Controllers["bench1"]
	if c == nil || c.LastAddr != "192.168.1.40:80" || !c.LastSeen.Equal(seen) || c.Channels[2] != "Heater" {
		t.Errorf("loaded controller = %+v", c)
	}
	if got.Path() != path {
		t.Errorf("Path() = %s", got.Path())
	}
}

func TestLoadRegistry_BadVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), RegistryFile)
	if err := os.WriteFile(path, []byte("version: 3\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRegistry(path); err == nil {
		t.Error("LoadRegistry() accepted version 3")
	}
}
