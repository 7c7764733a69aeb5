// Package chain maintains the ordered, append-only sequence of sealed
// blocks and the protocol that keeps it linked and auditable.
//
// A Chain is a single-writer ledger: Append is serialized under a write lock
// covering build, seal, audit and persistence, so concurrent callers always
// receive distinct, consecutive heights. Lookups and Audit take the read lock
// and return copies.
package chain

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IsaacBoateng/Private-blockchain/pkg/block"
)

// Store is the durable backend consulted at startup and on every append.
type Store interface {
	Load(ctx context.Context) ([]*block.Block, error)
	Save(ctx context.Context, b *block.Block) error
}

// Handler is called with a copy of every accepted block. Handlers run
// outside the chain lock, one block at a time, in height order. A handler
// may read the chain but must not append to it.
type Handler func(b *block.Block)

// Chain is the in-memory ledger.
type Chain struct {
	mu       sync.RWMutex
	blocks   []*block.Block
	height   int64
	clock    func() time.Time
	alg      block.Algorithm
	store    Store
	handlers []Handler
	logger   *slog.Logger

	// notifyMu guards nextNotify, the height whose handlers run next.
	notifyMu   sync.Mutex
	notifyTurn *sync.Cond
	nextNotify uint64
}

// Option configures a Chain.
type Option func(*Chain)

// WithClock overrides the clock used for block timestamps.
func WithClock(clock func() time.Time) Option {
	return func(c *Chain) { c.clock = clock }
}

// WithStore attaches a durable store.
func WithStore(s Store) Option {
	return func(c *Chain) { c.store = s }
}

// WithHashAlgorithm selects the sealing hash algorithm.
func WithHashAlgorithm(alg block.Algorithm) Option {
	return func(c *Chain) { c.alg = alg }
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Chain) { c.logger = l }
}

// WithHandler registers a handler for accepted blocks.
func WithHandler(h Handler) Option {
	return func(c *Chain) { c.handlers = append(c.handlers, h) }
}

// New creates an empty chain. Call Initialize to load persisted state and
// bootstrap the genesis block.
func New(opts ...Option) *Chain {
	c := &Chain{
		blocks: make([]*block.Block, 0),
		height: -1,
		clock:  time.Now,
		alg:    block.SHA256,
		logger: slog.Default().With("component", "chain"),
	}
	c.notifyTurn = sync.NewCond(&c.notifyMu)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Algorithm returns the hash algorithm the chain is sealed with.
func (c *Chain) Algorithm() block.Algorithm {
	return c.alg
}

// Initialize loads persisted blocks, audits them, and appends the genesis
// block if the chain is still empty. Calling it again is a no-op.
func (c *Chain) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if len(c.blocks) > 0 {
		c.mu.Unlock()
		return nil
	}

	if c.store != nil {
		loaded, err := c.store.Load(ctx)
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("load chain: %w", err)
		}
		if len(loaded) > 0 {
			c.blocks = loaded
			c.height = int64(len(loaded)) - 1
			if violations := c.audit(); len(violations) > 0 {
				c.blocks = make([]*block.Block, 0)
				c.height = -1
				c.mu.Unlock()
				return &ChainIntegrityError{Violations: violations}
			}
			c.notifyMu.Lock()
			c.nextNotify = uint64(len(loaded))
			c.notifyMu.Unlock()
			c.logger.InfoContext(ctx, "chain loaded", "height", c.height)
			c.mu.Unlock()
			return nil
		}
	}

	genesis, err := c.appendLocked(ctx, block.GenesisPayload)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("bootstrap genesis: %w", err)
	}
	c.logger.InfoContext(ctx, "genesis block created", "hash", genesis.Hash)
	c.notify(genesis)
	return nil
}

// Height returns the height of the last block, or -1 for an empty chain.
func (c *Chain) Height() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.height
}

// Append seals payload into a new block at the tip of the chain. The whole
// chain is audited before the block is acknowledged; on any violation the
// block is discarded and an *AppendError is returned.
func (c *Chain) Append(ctx context.Context, payload any) (*block.Block, error) {
	c.mu.Lock()
	b, err := c.appendLocked(ctx, payload)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	c.notify(b)
	return b, nil
}

func (c *Chain) appendLocked(ctx context.Context, payload any) (*block.Block, error) {
	b, err := block.New(payload)
	if err != nil {
		return nil, err
	}

	b.Height = uint64(len(c.blocks))
	b.Time = c.clock().Unix()
	if n := len(c.blocks); n > 0 {
		prev := c.blocks[n-1].Hash
		b.PreviousHash = &prev
	}
	if err := b.Seal(c.alg); err != nil {
		return nil, &AppendError{Height: b.Height, Err: err}
	}

	c.blocks = append(c.blocks, b)
	c.height++

	if violations := c.audit(); len(violations) > 0 {
		c.rollback()
		c.logger.ErrorContext(ctx, "append rejected by chain audit",
			"height", b.Height, "violations", len(violations))
		return nil, &AppendError{Height: b.Height, Violations: violations}
	}

	if c.store != nil {
		if err := c.store.Save(ctx, b.Clone()); err != nil {
			c.rollback()
			return nil, &AppendError{Height: b.Height, Err: fmt.Errorf("persist: %w", err)}
		}
	}

	c.logger.DebugContext(ctx, "block appended", "height", b.Height, "hash", b.Hash)
	return b.Clone(), nil
}

func (c *Chain) rollback() {
	c.blocks[len(c.blocks)-1] = nil
	c.blocks = c.blocks[:len(c.blocks)-1]
	c.height--
}

// notify runs the handlers for b once every lower height has been
// delivered, so observers never see the chain move backwards.
func (c *Chain) notify(b *block.Block) {
	c.notifyMu.Lock()
	for c.nextNotify != b.Height {
		c.notifyTurn.Wait()
	}
	c.notifyMu.Unlock()

	for _, h := range c.handlers {
		h(b.Clone())
	}

	c.notifyMu.Lock()
	c.nextNotify++
	c.notifyTurn.Broadcast()
	c.notifyMu.Unlock()
}

// Blocks returns a snapshot of the whole chain.
func (c *Chain) Blocks() []*block.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*block.Block, len(c.blocks))
	for i, b := range c.blocks {
		out[i] = b.Clone()
	}
	return out
}
