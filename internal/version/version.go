// Package version reports the build of relayd and relayctl.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/muurk/remoterelay/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/remoterelay/internal/version.Commit=abc123"
//
// Unset values come from the VCS stamp in the build info, else "dev".
var (
	Version = ""
	Commit  = ""
)

// serialLimit bounds the version token sent in the AT+GMR reply.
const serialLimit = 32

func init() {
	if Version == "" || Commit == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			fromSettings(info.Settings)
		}
	}
	if Version == "" {
		Version = "dev-" + time.Now().Format("20060102-150405")
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

func fromSettings(settings []debug.BuildSetting) {
	var revision, modified, stamp string
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value
		case "vcs.time":
			stamp = s.Value
		}
	}

	if Commit == "" && revision != "" {
		Commit = revision
		if len(Commit) > 7 {
			Commit = Commit[:7]
		}
		if modified == "true" {
			Commit += "-dirty"
		}
	}

	// Build info carries no tags.
	if Version == "" && stamp != "" {
		if t, err := time.Parse(time.RFC3339, stamp); err == nil {
			Version = "dev-" + t.Format("20060102")
		}
	}
}

// Full describes the named binary, e.g.
// "relayd v1.2.3 (commit abc123, linux/arm)".
func Full(binary string) string {
	return fmt.Sprintf("%s %s (commit %s, %s/%s)", binary, Version, Commit, runtime.GOOS, runtime.GOARCH)
}

// Serial is the version token answered to AT+GMR: no whitespace, at most
// 32 bytes, so the companion reads it as one field.
func Serial() string {
	v := strings.Join(strings.Fields(Version), "-")
	if len(v) > serialLimit {
		v = v[:serialLimit]
	}
	return v
}
