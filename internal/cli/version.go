package cli

// Version is the tool version, overridden at build time via
// -ldflags "-X github.com/regoguard/regoguard/internal/cli.Version=...".
var Version = "0.1.0"
