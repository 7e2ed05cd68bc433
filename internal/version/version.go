// Package version exposes build version information.
package version

// Version is set at build time via -ldflags.
var Version = "dev"
