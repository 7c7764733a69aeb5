package chain

import (
	"fmt"

	"github.com/IsaacBoateng/Private-blockchain/pkg/block"
)

// OwnerField is the payload key GetByOwner matches against.
const OwnerField = "address"

// GetByHash returns every block whose stored hash equals hash. Hashes are
// unique by construction, but duplicates are reported rather than hidden.
func (c *Chain) GetByHash(hash string) []*block.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	found := make([]*block.Block, 0, 1)
	for _, b := range c.blocks {
		if b.Hash == hash {
			found = append(found, b.Clone())
		}
	}
	return found
}

// GetByHeight returns the block at height, or false when there is none.
func (c *Chain) GetByHeight(height uint64) (*block.Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if height >= uint64(len(c.blocks)) {
		return nil, false
	}
	return c.blocks[height].Clone(), true
}

// GetByOwner decodes every non-genesis payload and returns, in append order,
// those whose address field equals address.
//
// This is a linear scan; an index keyed by owner could replace it without
// changing the result.
func (c *Chain) GetByOwner(address string) ([]any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	owned := make([]any, 0)
	for _, b := range c.blocks {
		if b.IsGenesis() {
			continue
		}
		data, err := b.Data()
		if err != nil {
			return nil, fmt.Errorf("decode block %d: %w", b.Height, err)
		}
		m, ok := data.(map[string]any)
		if !ok {
			continue
		}
		if owner, ok := m[OwnerField].(string); ok && owner == address {
			owned = append(owned, m)
		}
	}
	return owned, nil
}
