// Package buildinfo exposes version information stamped in at build time.
package buildinfo

import "runtime"

// These vars are set at build time via ldflags:
// -X github.com/otherjamesbrown/agriclassify/pkg/buildinfo.Version=v0.3.0
// -X github.com/otherjamesbrown/agriclassify/pkg/buildinfo.Commit=4f1c2ab
// -X github.com/otherjamesbrown/agriclassify/pkg/buildinfo.BuildTime=2026-10-01T09:00:00Z
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info holds build information for a binary.
type Info struct {
	ServiceName string `json:"service_name"`
	Version     string `json:"version"`
	Commit      string `json:"commit"`
	BuildTime   string `json:"build_time"`
	GoVersion   string `json:"go_version"`
}

// Get returns build info for the named binary.
func Get(serviceName string) Info {
	return Info{
		ServiceName: serviceName,
		Version:     Version,
		Commit:      Commit,
		BuildTime:   BuildTime,
		GoVersion:   runtime.Version(),
	}
}

// String returns a human-readable one-liner like "v0.3.0 (4f1c2ab, 2026-10-01T09:00:00Z)"
func String() string {
	return Version + " (" + Commit + ", " + BuildTime + ")"
}
