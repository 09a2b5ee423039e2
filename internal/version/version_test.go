package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

func withVersion(t *testing.T, v, c string) {
	t.Helper()
	oldV, oldC := Version, Commit
	Version, Commit = v, c
	t.Cleanup(func() { Version, Commit = oldV, oldC })
}

func TestFull(t *testing.T) {
	withVersion(t, "v1.2.3", "abc1234")

	want := "relayd v1.2.3 (commit abc1234, " + runtime.GOOS + "/" + runtime.GOARCH + ")"
	if got := Full("relayd"); got != want {
		t.Errorf("Full() = %q, want %q", got, want)
	}
}

func TestSerial(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    string
	}{
		{"tag", "v1.2.3", "v1.2.3"},
		{"spaces", "v1 beta  2", "v1-beta-2"},
		{"long", strings.Repeat("x", 40), strings.Repeat("x", 32)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withVersion(t, tt.version, "c")
			if got := Serial(); got != tt.want {
				t.Errorf("Serial() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromSettings(t *testing.T) {
	withVersion(t, "", "")

	fromSettings([]debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.modified", Value: "true"},
		{Key: "vcs.time", Value: "2024-05-01T12:00:00Z"},
	})

	if Commit != "0123456-dirty" {
		t.Errorf("Commit = %q, want 0123456-dirty", Commit)
	}
	if Version != "dev-20240501" {
		t.Errorf("Version = %q, want dev-20240501", Version)
	}
}

func TestFromSettingsKeepsLdflags(t *testing.T) {
	withVersion(t, "v2.0.0", "")

	fromSettings([]debug.BuildSetting{{Key: "vcs.time", Value: "2024-05-01T12:00:00Z"}})

	if Version != "v2.0.0" {
		t.Errorf("Version = %q, want the ldflags value", Version)
	}
}
