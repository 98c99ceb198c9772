// Package ledger stores issued items as an append-only chain of
// proof-of-work sealed blocks.
//
// # Blocks
//
// Each block records the item's salt (its unique lookup key), signature,
// the hash of the serialized product record, the hash of the previous
// block, and the nonce found by mining. The first block links to
// GenesisHash, 64 '0' characters.
//
// # Stores
//
// A Store is the storage collaborator. It must provide three atomic
// operations:
//
//   - Lookup by salt
//   - MarkVerified: a single conditional update that flips is_verified from
//     false to true and records verified_at, reporting whether this call
//     performed the flip
//   - Append: insert a block only if its previous hash is still the chain
//     tip, rejecting duplicate salts and hashes with ErrDuplicateEntry
//
// Three backends are provided: MemoryStore for tests, SQLiteStore (the
// default for a project directory), and PostgresStore for shared
// deployments.
//
// # Ledger
//
// Ledger wraps a Store with the issuance and verification semantics:
//
//	block, err := l.Seal(ctx, ledger.SealRequest{...})   // mine + append
//	c, err := l.Consume(ctx, salt)                       // verify-once
//
// Seal holds a process-wide lock so two issuances never mine against the
// same tip. Across processes the store's append-if-tip check rejects the
// loser with ErrTipMoved and Seal re-mines it against the new tip.
package ledger
