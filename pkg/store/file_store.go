package store

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/IsaacBoateng/Private-blockchain/pkg/block"
)

const maxLineBytes = 16 << 20

// FileStore appends one JSON document per block to a local file and syncs
// after every write.
type FileStore struct {
	path string
	mu   sync.Mutex
	f    *os.File
	next uint64
	sync func(*os.File) error
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("file store: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("file store: %w", err)
	}
	fs := &FileStore{path: path, f: f, sync: (*os.File).Sync}
	existing, err := fs.Load(context.Background())
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	fs.next = uint64(len(existing))
	return fs, nil
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(_ context.Context) ([]*block.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("file store: %w", err)
	}
	defer func() { _ = r.Close() }()

	blocks := make([]*block.Block, 0)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var b block.Block
		if err := json.Unmarshal(sc.Bytes(), &b); err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrCorrupt, s.path, line, err)
		}
		blocks = append(blocks, &b)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("file store: %w", err)
	}
	if err := checkContiguous(blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

func (s *FileStore) Save(_ context.Context, b *block.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.Height != s.next {
		return fmt.Errorf("save block %d: store is at height %d", b.Height, s.next)
	}
	line, err := json.Marshal(b)
	if err != nil {
		return err
	}

	// A block is either fully durable or absent: on failure the file is cut
	// back to where this line started.
	end, err := s.f.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("file store seek: %w", err)
	}
	if _, err := s.f.Write(append(line, '\n')); err != nil {
		return s.undo(end, fmt.Errorf("file store write: %w", err))
	}
	if err := s.sync(s.f); err != nil {
		return s.undo(end, fmt.Errorf("file store sync: %w", err))
	}
	s.next++
	return nil
}

func (s *FileStore) undo(end int64, cause error) error {
	if err := s.f.Truncate(end); err != nil {
		return fmt.Errorf("%w; truncate to %d: %v", cause, end, err)
	}
	return cause
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
