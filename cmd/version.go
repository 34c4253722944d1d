package main

import "fmt"

// GetFullVersionInfo returns detailed version information
func GetFullVersionInfo() string {
	return fmt.Sprintf("Version: %s\nCommit: %s\nBuilt: %s", version, commit, date)
}

// GetVersionWithPrefix returns the version as printed by `cards version`.
func GetVersionWithPrefix() string {
	return fmt.Sprintf("cards client version: %s", version)
}
