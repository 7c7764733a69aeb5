package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/IsaacBoateng/Private-blockchain/pkg/block"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects placeholder syntax.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// rebind rewrites ? placeholders as $1..$n for Postgres.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

const blocksSchema = `
CREATE TABLE IF NOT EXISTS blocks (
	height BIGINT PRIMARY KEY,
	hash TEXT NOT NULL UNIQUE,
	previous_hash TEXT,
	time BIGINT NOT NULL,
	body TEXT NOT NULL
);
`

// SQLStore implements Store using database/sql.
// It supports both Postgres and SQLite via standard drivers.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

func (s *SQLStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, blocksSchema)
	return err
}

func (s *SQLStore) Save(ctx context.Context, b *block.Block) error {
	query := s.dialect.rebind(`INSERT INTO blocks (height, hash, previous_hash, time, body) VALUES (?, ?, ?, ?, ?)`)

	var prev sql.NullString
	if b.PreviousHash != nil {
		prev = sql.NullString{String: *b.PreviousHash, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, query, int64(b.Height), b.Hash, prev, b.Time, b.Body)
	if err != nil {
		return fmt.Errorf("failed to insert block %d: %w", b.Height, err)
	}
	return nil
}

func (s *SQLStore) Load(ctx context.Context) ([]*block.Block, error) {
	query := `SELECT height, hash, previous_hash, time, body FROM blocks ORDER BY height ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	blocks := make([]*block.Block, 0)
	for rows.Next() {
		var (
			height int64
			prev   sql.NullString
			b      block.Block
		)
		if err := rows.Scan(&height, &b.Hash, &prev, &b.Time, &b.Body); err != nil {
			return nil, err
		}
		if height < 0 {
			return nil, fmt.Errorf("%w: negative height %d", ErrCorrupt, height)
		}
		b.Height = uint64(height)
		if prev.Valid {
			p := prev.String
			b.PreviousHash = &p
		}
		blocks = append(blocks, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := checkContiguous(blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
