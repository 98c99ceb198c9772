package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS ledger_blocks (
	height               BIGINT      PRIMARY KEY,
	timestamp            TEXT        NOT NULL,
	product_details_hash TEXT        NOT NULL,
	salt                 TEXT        NOT NULL UNIQUE,
	signature            TEXT        NOT NULL,
	previous_block_hash  TEXT        NOT NULL,
	nonce                BIGINT      NOT NULL,
	current_block_hash   TEXT        NOT NULL UNIQUE,
	is_verified          BOOLEAN     NOT NULL DEFAULT FALSE,
	verified_at          TIMESTAMPTZ
)`

// appendLockKey serializes appends across every process sharing the database.
const appendLockKey int64 = 0x6b61697469616b69

// PostgresStore is a Store backed by a PostgreSQL database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and creates the ledger table if needed.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres dsn is required", kerrors.ErrInvalidProjectConfig)
	}
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidProjectConfig, err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrStorage, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", kerrors.ErrStorage, err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: create schema: %v", kerrors.ErrStorage, err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Tip implements Store.Tip.
func (s *PostgresStore) Tip(ctx context.Context) (*Block, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+blockColumns+` FROM ledger_blocks ORDER BY height DESC LIMIT 1`)
	b, err := scanPostgresBlock(row)
	if errNoRows(err) {
		return nil, kerrors.ErrNotFound
	}
	if err != nil {
		return nil, storageError(ctx, "tip", err)
	}
	return b, nil
}

// Lookup implements Store.Lookup.
func (s *PostgresStore) Lookup(ctx context.Context, salt string) (*Block, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+blockColumns+` FROM ledger_blocks WHERE salt = $1`, salt)
	b, err := scanPostgresBlock(row)
	if errNoRows(err) {
		return nil, kerrors.ErrNotFound
	}
	if err != nil {
		return nil, storageError(ctx, "lookup", err)
	}
	return b, nil
}

// MarkVerified implements Store.MarkVerified.
func (s *PostgresStore) MarkVerified(ctx context.Context, salt string, at time.Time) (*Block, bool, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE ledger_blocks SET is_verified = TRUE, verified_at = $2
		 WHERE salt = $1 AND NOT is_verified
		 RETURNING `+blockColumns, salt, at.UTC())
	b, err := scanPostgresBlock(row)
	if err == nil {
		return b, true, nil
	}
	if !errNoRows(err) {
		return nil, false, storageError(ctx, "mark verified", err)
	}

	// Nothing matched: either the salt is unknown or it was already verified.
	b, err = s.Lookup(ctx, salt)
	if err != nil {
		return nil, false, err
	}
	return b, false, nil
}

// Append implements Store.Append.
func (s *PostgresStore) Append(ctx context.Context, b *Block) error {
	if b == nil {
		return fmt.Errorf("%w: nil block", kerrors.ErrValidation)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storageError(ctx, "begin", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, appendLockKey); err != nil {
		return storageError(ctx, "lock", err)
	}

	tipHash, height := GenesisHash, int64(0)
	var tipHeight int64
	var hash string
	err = tx.QueryRow(ctx, `SELECT height, current_block_hash FROM ledger_blocks ORDER BY height DESC LIMIT 1`).
		Scan(&tipHeight, &hash)
	switch {
	case errNoRows(err):
	case err != nil:
		return storageError(ctx, "tip", err)
	default:
		tipHash, height = hash, tipHeight+1
	}
	if b.PreviousHash != tipHash {
		return fmt.Errorf("%w: block links to %s, tip is %s", kerrors.ErrTipMoved, b.PreviousHash, tipHash)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO ledger_blocks (`+blockColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, NULL)`,
		height, b.Timestamp, b.ProductHash, b.Salt, b.Signature,
		b.PreviousHash, int64(b.Nonce), b.Hash)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: salt %s: %v", kerrors.ErrDuplicateEntry, b.Salt, err)
		}
		return storageError(ctx, "insert", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return storageError(ctx, "commit", err)
	}
	b.Height = height
	return nil
}

// Blocks implements Store.Blocks.
func (s *PostgresStore) Blocks(ctx context.Context) ([]Block, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+blockColumns+` FROM ledger_blocks ORDER BY height`)
	if err != nil {
		return nil, storageError(ctx, "list blocks", err)
	}
	defer rows.Close()

	var blocks []Block
	for rows.Next() {
		b, err := scanPostgresBlock(rows)
		if err != nil {
			return nil, storageError(ctx, "list blocks", err)
		}
		blocks = append(blocks, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(ctx, "list blocks", err)
	}
	return blocks, nil
}

// Close implements Store.Close.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostgresBlock(row rowScanner) (*Block, error) {
	var (
		b          Block
		nonce      int64
		verifiedAt *time.Time
	)
	err := row.Scan(&b.Height, &b.Timestamp, &b.ProductHash, &b.Salt, &b.Signature,
		&b.PreviousHash, &nonce, &b.Hash, &b.IsVerified, &verifiedAt)
	if err != nil {
		return nil, err
	}
	b.Nonce = uint64(nonce)
	if verifiedAt != nil {
		at := verifiedAt.UTC()
		b.VerifiedAt = &at
	}
	return &b, nil
}

// storageError keeps context cancellation distinguishable from backend failures.
func storageError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %s: %v", kerrors.ErrStorage, op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func errNoRows(err error) bool {
	return err != nil && errors.Is(err, pgx.ErrNoRows)
}
