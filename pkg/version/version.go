// Package version holds the build version of tripcast.
package version

// Version is overridden at build time with -ldflags "-X tripcast/pkg/version.Version=...".
var Version = "v0.3.1"
