package buildinfo

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()
	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q", info.GoVersion)
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Platform = %q", info.Platform)
	}
	if info.Commit == "" || info.BuildTime == "" {
		t.Errorf("Commit/BuildTime should never be empty: %+v", info)
	}
}

func TestFillFromVCS(t *testing.T) {
	settings := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef0123"},
		{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
	}

	var info Info
	fillFromVCS(&info, settings)
	if info.Commit != "0123456789ab" {
		t.Errorf("Commit = %q, want truncated revision", info.Commit)
	}
	if info.BuildTime != "2026-01-02T03:04:05Z" {
		t.Errorf("BuildTime = %q", info.BuildTime)
	}

	// ldflags values win.
	info = Info{Commit: "release", BuildTime: "today"}
	fillFromVCS(&info, settings)
	if info.Commit != "release" || info.BuildTime != "today" {
		t.Errorf("ldflags values overwritten: %+v", info)
	}
}

func TestString(t *testing.T) {
	s := String()
	if !strings.HasPrefix(s, Version+" (") {
		t.Errorf("String() = %q", s)
	}
}
