package main

// Defaults for CLI commands.
const (
	DefaultReplayLimit = 0
	MaxReplayLimit     = 500
)

// Valid import formats.
var validImportFormats = []string{"auto", "json", "csv"}
