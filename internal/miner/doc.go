// Package miner seals ledger blocks with proof of work.
//
// A block hash is the hex SHA-256 of the block's string fields concatenated
// without delimiters, followed by the decimal nonce:
//
//	SHA-256(timestamp + product_hash + salt + signature + previous_hash + nonce)
//
// Mining searches nonces from zero until the hash starts with the required
// number of '0' characters. The search is exposed as a lazy sequence of
// (nonce, hash) candidates so callers control how long to pull from it;
// Mine pulls under a context and an attempt bound.
//
// The missing field delimiters make two differently split field values hash
// identically. This is a known property of the block format and is kept for
// compatibility with existing chains.
package miner
