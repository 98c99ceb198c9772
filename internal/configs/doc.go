// Package configs manages project configuration for Kaitiaki.
//
// Configuration lives in .kaitiaki/config.toml at the project root:
//
//	[ledger]
//	uuid = "6f1c..."            # identifies the chain in audit entries
//	name = "honey-exports"
//	backend = "sqlite"          # sqlite | postgres | memory
//	path = ".kaitiaki/ledger.db"
//	dsn = ""                    # postgres connection string
//	difficulty = 4
//	max_attempts = 10000000
//	mining_timeout = "5m"
//	append_retries = 3
//
//	[signature]
//	constant_time = false
//
//	[metrics]
//	textfile = ""               # node_exporter textfile collector output
//
// Keys missing from the file keep their defaults. KAITIAKI_LEDGER_DSN and
// KAITIAKI_DIFFICULTY override the file.
//
// # Settings
//
// ProjectKaitiakiSettings holds the current project's paths. Call
// InitProjectSettings() before using it; it walks up the directory tree to
// find the nearest .kaitiaki directory.
package configs
