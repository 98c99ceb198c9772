package ledger

import (
	"context"
	"fmt"
	"runtime"
	"time"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ledger_blocks (
	height               INTEGER PRIMARY KEY,
	timestamp            TEXT    NOT NULL,
	product_details_hash TEXT    NOT NULL,
	salt                 TEXT    NOT NULL UNIQUE,
	signature            TEXT    NOT NULL,
	previous_block_hash  TEXT    NOT NULL,
	nonce                INTEGER NOT NULL,
	current_block_hash   TEXT    NOT NULL UNIQUE,
	is_verified          INTEGER NOT NULL DEFAULT 0,
	verified_at          TEXT
);
`

const blockColumns = `height, timestamp, product_details_hash, salt, signature,
	previous_block_hash, nonce, current_block_hash, is_verified, verified_at`

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	pool *sqlitex.Pool
	path string
}

// OpenSQLite opens (creating if necessary) the ledger database at path.
// A poolSize of zero or less picks max(runtime.NumCPU(), 4).
func OpenSQLite(path string, poolSize int) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", kerrors.ErrInvalidProjectConfig)
	}
	if poolSize <= 0 {
		poolSize = max(runtime.NumCPU(), 4)
	}

	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareSQLiteConn,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", kerrors.ErrStorage, path, err)
	}
	return &SQLiteStore{pool: pool, path: path}, nil
}

func prepareSQLiteConn(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return sqlitex.ExecuteScript(conn, sqliteSchema, nil)
}

func (s *SQLiteStore) take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", kerrors.ErrStorage, err)
	}
	return conn, nil
}

// Tip implements Store.Tip.
func (s *SQLiteStore) Tip(ctx context.Context) (*Block, error) {
	conn, err := s.take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	b, err := sqliteTip(conn)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, kerrors.ErrNotFound
	}
	return b, nil
}

// Lookup implements Store.Lookup.
func (s *SQLiteStore) Lookup(ctx context.Context, salt string) (*Block, error) {
	conn, err := s.take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	b, err := sqliteLookup(conn, salt)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, kerrors.ErrNotFound
	}
	return b, nil
}

// MarkVerified implements Store.MarkVerified.
func (s *SQLiteStore) MarkVerified(ctx context.Context, salt string, at time.Time) (block *Block, transitioned bool, err error) {
	conn, err := s.take(ctx)
	if err != nil {
		return nil, false, err
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return nil, false, fmt.Errorf("%w: begin: %v", kerrors.ErrStorage, err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn,
		`UPDATE ledger_blocks SET is_verified = 1, verified_at = ?
		 WHERE salt = ? AND is_verified = 0`,
		&sqlitex.ExecOptions{Args: []any{at.UTC().Format(TimestampFormat), salt}})
	if err != nil {
		return nil, false, fmt.Errorf("%w: mark verified: %v", kerrors.ErrStorage, err)
	}
	transitioned = conn.Changes() > 0

	block, err = sqliteLookup(conn, salt)
	if err != nil {
		return nil, false, err
	}
	if block == nil {
		return nil, false, kerrors.ErrNotFound
	}
	return block, transitioned, nil
}

// Append implements Store.Append.
func (s *SQLiteStore) Append(ctx context.Context, b *Block) (err error) {
	if b == nil {
		return fmt.Errorf("%w: nil block", kerrors.ErrValidation)
	}
	conn, err := s.take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", kerrors.ErrStorage, err)
	}
	defer endTransaction(&err)

	tip, err := sqliteTip(conn)
	if err != nil {
		return err
	}
	tipHash, height := GenesisHash, int64(0)
	if tip != nil {
		tipHash, height = tip.Hash, tip.Height+1
	}
	if b.PreviousHash != tipHash {
		return fmt.Errorf("%w: block links to %s, tip is %s", kerrors.ErrTipMoved, b.PreviousHash, tipHash)
	}

	err = sqlitex.Execute(conn,
		`INSERT INTO ledger_blocks (`+blockColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, NULL)`,
		&sqlitex.ExecOptions{Args: []any{
			height, b.Timestamp, b.ProductHash, b.Salt, b.Signature,
			b.PreviousHash, int64(b.Nonce), b.Hash,
		}})
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return fmt.Errorf("%w: salt %s: %v", kerrors.ErrDuplicateEntry, b.Salt, err)
		}
		return fmt.Errorf("%w: insert: %v", kerrors.ErrStorage, err)
	}
	b.Height = height
	return nil
}

// Blocks implements Store.Blocks.
func (s *SQLiteStore) Blocks(ctx context.Context) ([]Block, error) {
	conn, err := s.take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	var blocks []Block
	err = sqlitex.Execute(conn, `SELECT `+blockColumns+` FROM ledger_blocks ORDER BY height`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			b, err := scanSQLiteBlock(stmt)
			if err != nil {
				return err
			}
			blocks = append(blocks, *b)
			return nil
		}})
	if err != nil {
		return nil, fmt.Errorf("%w: list blocks: %v", kerrors.ErrStorage, err)
	}
	return blocks, nil
}

// Close implements Store.Close.
func (s *SQLiteStore) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %v", kerrors.ErrStorage, s.path, err)
	}
	return nil
}

func sqliteTip(conn *sqlite.Conn) (*Block, error) {
	return sqliteQueryOne(conn, `SELECT `+blockColumns+` FROM ledger_blocks ORDER BY height DESC LIMIT 1`)
}

func sqliteLookup(conn *sqlite.Conn, salt string) (*Block, error) {
	return sqliteQueryOne(conn, `SELECT `+blockColumns+` FROM ledger_blocks WHERE salt = ?`, salt)
}

// sqliteQueryOne returns nil without error when the query matches no rows.
func sqliteQueryOne(conn *sqlite.Conn, query string, args ...any) (*Block, error) {
	var found *Block
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			b, err := scanSQLiteBlock(stmt)
			if err != nil {
				return err
			}
			found = b
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrStorage, err)
	}
	return found, nil
}

func scanSQLiteBlock(stmt *sqlite.Stmt) (*Block, error) {
	b := &Block{
		Height:       stmt.ColumnInt64(0),
		Timestamp:    stmt.ColumnText(1),
		ProductHash:  stmt.ColumnText(2),
		Salt:         stmt.ColumnText(3),
		Signature:    stmt.ColumnText(4),
		PreviousHash: stmt.ColumnText(5),
		Nonce:        uint64(stmt.ColumnInt64(6)),
		Hash:         stmt.ColumnText(7),
		IsVerified:   stmt.ColumnInt64(8) != 0,
	}
	if !stmt.ColumnIsNull(9) {
		at, err := time.Parse(TimestampFormat, stmt.ColumnText(9))
		if err != nil {
			return nil, fmt.Errorf("block %d: verified_at: %w", b.Height, err)
		}
		b.VerifiedAt = &at
	}
	return b, nil
}

func isSQLiteUniqueViolation(err error) bool {
	switch sqlite.ErrCode(err) {
	case sqlite.ResultConstraintUnique, sqlite.ResultConstraintPrimaryKey:
		return true
	}
	return false
}
