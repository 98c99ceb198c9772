package errors

import "errors"

// Validation errors indicate malformed input.
var (
	// ErrValidation indicates an encoded payload, product record, or option is malformed.
	ErrValidation = errors.New("validation failed")
)

// Cryptographic errors indicate failures during signing or decryption.
var (
	// ErrSignatureMismatch indicates the signature does not match the payload and key.
	ErrSignatureMismatch = errors.New("signature does not match payload")

	// ErrDecryptionFailed indicates an authentic payload could not be decoded into a product record.
	ErrDecryptionFailed = errors.New("failed to decrypt payload")
)

// Mining errors indicate the proof-of-work search did not produce a block.
var (
	// ErrMiningExhausted indicates no valid nonce was found within the attempt bound.
	ErrMiningExhausted = errors.New("mining exhausted attempt bound")
)

// Ledger errors indicate issues with the block store or chain state.
var (
	// ErrNotFound indicates no block exists for the requested salt.
	ErrNotFound = errors.New("block not found")

	// ErrDuplicateEntry indicates a block with the same salt or hash already exists.
	ErrDuplicateEntry = errors.New("duplicate ledger entry")

	// ErrTipMoved indicates the chain tip changed between mining and appending.
	ErrTipMoved = errors.New("chain tip moved during append")

	// ErrChainBroken indicates a block does not link to its predecessor or fails its hash check.
	ErrChainBroken = errors.New("ledger chain is broken")

	// ErrStorage indicates the storage backend failed.
	ErrStorage = errors.New("ledger storage error")

	// ErrStorageClosed indicates the store was used after Close.
	ErrStorageClosed = errors.New("ledger storage closed")
)

// Project state errors indicate issues with project configuration or initialization.
var (
	// ErrProjectNotInitialized indicates the project has not been set up with Kaitiaki.
	ErrProjectNotInitialized = errors.New("project has not been initialized")

	// ErrProjectAlreadyInitialized indicates the project has already been set up with Kaitiaki.
	ErrProjectAlreadyInitialized = errors.New("project has already been initialized")

	// ErrInvalidProjectConfig indicates the project configuration is malformed or corrupt.
	ErrInvalidProjectConfig = errors.New("project configuration is invalid")

	// ErrUnknownBackend indicates the configured ledger backend is not supported.
	ErrUnknownBackend = errors.New("unknown ledger backend")
)

// Audit log errors.
var (
	// ErrNoFilesFound indicates the audit log does not exist yet.
	ErrNoFilesFound = errors.New("no matching files found")

	// ErrInvalidDateFormat indicates a date filter is not in YYYY-MM-DD format.
	ErrInvalidDateFormat = errors.New("invalid date format")
)
