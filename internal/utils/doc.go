// Package utils provides shared utility functions for the Kaitiaki CLI.
//
// # Filesystem Utilities
//
//   - FindProjectRoot: walks up directories to find .kaitiaki
//   - FormatPaths: formats file paths for human-readable output
//
// # System Utilities
//
//   - GetUsername: returns the current system username, recorded in audit entries
//
// # Project Utilities
//
//   - GetProjectName: returns the current project's directory name
//
// # I/O Utilities
//
//   - ReadStdin: reads piped data such as a secret key
//
// # Terminal Utilities
//
//   - ReadSecret: prompts for a secret key without echo
//   - IsTerminal: checks if stdin is a terminal
package utils
