// Package store persists sealed blocks so a chain survives restarts.
//
// Every backend satisfies the chain's contract: Load returns the blocks in
// height order, and Save durably records one block before returning.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/IsaacBoateng/Private-blockchain/pkg/block"
)

var (
	ErrUnknownDriver = errors.New("unknown store driver")
	// ErrCorrupt means persisted blocks are not a contiguous run from height 0.
	ErrCorrupt = errors.New("persisted chain is corrupt")
)

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store is a durable block backend.
type Store interface {
	Load(ctx context.Context) ([]*block.Block, error)
	Save(ctx context.Context, b *block.Block) error
	Close() error
}

// Open builds the store named by driver. For file the dsn is a path; for the
// SQL drivers it is passed to database/sql.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverFile:
		return NewFileStore(dsn)
	case DriverSQLite, DriverPostgres:
		dialect := SQLite
		if driver == DriverPostgres {
			dialect = Postgres
		}
		db, err := sql.Open(driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", driver, err)
		}
		s := NewSQLStore(db, dialect)
		if err := s.Init(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate %s: %w", driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

func checkContiguous(blocks []*block.Block) error {
	for i, b := range blocks {
		if b.Height != uint64(i) {
			return fmt.Errorf("%w: position %d holds height %d", ErrCorrupt, i, b.Height)
		}
	}
	return nil
}

// MemoryStore keeps blocks for the life of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	blocks []*block.Block
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blocks: make([]*block.Block, 0)}
}

func (m *MemoryStore) Load(_ context.Context) ([]*block.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*block.Block, len(m.blocks))
	for i, b := range m.blocks {
		out[i] = b.Clone()
	}
	return out, nil
}

func (m *MemoryStore) Save(_ context.Context, b *block.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.Height != uint64(len(m.blocks)) {
		return fmt.Errorf("save block %d: store is at height %d", b.Height, len(m.blocks))
	}
	m.blocks = append(m.blocks, b.Clone())
	return nil
}

func (m *MemoryStore) Close() error { return nil }
