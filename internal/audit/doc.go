// Package audit provides the audit trail for Kaitiaki operations.
//
// Issuance, verification, decryption and chain checks are recorded in a
// project-level log so a team can see which items were issued and when
// each one was first scanned.
//
// # Log Format
//
// The audit log is stored as JSON Lines (one JSON object per line) at:
//
//	.kaitiaki/audit.jsonl
//
// Each entry contains:
//   - Timestamp (RFC3339 with microseconds, UTC)
//   - Ledger UUID and the local username
//   - Operation name
//   - Operation-specific details (salt, signature, outcome, block height)
//
// # Usage
//
//	entry := audit.NewEntry("issue", cfg.Ledger.UUID)
//	entry.Salt = block.Salt
//	entry.Height = &block.Height
//	audit.Log(entry)
//
// # Failure Handling
//
// Audit logging is best-effort. If logging fails (permissions, disk full,
// etc.), the operation continues without error.
//
// # Reading Logs
//
// Use ReadEntries() to parse the audit log for display or analysis.
// Malformed entries are silently skipped to handle partial writes.
package audit
