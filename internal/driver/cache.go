package driver

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/geraldstanje/spl/internal/backend/memir"
)

// diskCacheSchemaVersion is bumped whenever DiskPayload's shape changes, so
// a stale on-disk payload from a previous build is rejected rather than
// decoded into the wrong fields.
const diskCacheSchemaVersion uint16 = 1

// DiskCache persists one memir.Program per source file, keyed by that
// file's content hash, so recompiling an unchanged file can skip straight
// to Emit's recorded output instead of re-running Parse through
// Monomorphize. Uses an atomic temp-file-then-rename Put, a
// msgpack.Decode Get, and a hex-encoded-digest subdirectory layout,
// keyed on a single file's own content hash rather than a whole-module
// dependency graph (ModuleHash, DependencyHash, import lists), since SPL
// has no cross-file import/module graph to invalidate against.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// DiskPayload is what one DiskCache entry stores on disk.
type DiskPayload struct {
	Schema      uint16
	Path        string
	ContentHash [32]byte
	Broken      bool
	Program     *memir.Program
}

// OpenDiskCache initializes and returns a disk cache rooted at dir,
// creating it if necessary.
func OpenDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(hash [32]byte) string {
	return filepath.Join(c.dir, "units", hex.EncodeToString(hash[:])+".mp")
}

// Put serializes and writes payload keyed by hash. A nil receiver is a
// silent no-op, so a caller can thread an optional *DiskCache through
// CompileUnit without a nil check at every call site.
func (c *DiskCache) Put(hash [32]byte, payload *DiskPayload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(hash)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads and deserializes the payload stored under hash, if any. A
// schema mismatch is treated the same as a miss — the caller recompiles —
// rather than as an error, since a format change should be invisible to
// CompileDir's callers.
func (c *DiskCache) Get(hash [32]byte) (*DiskPayload, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(hash))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var payload DiskPayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false, err
	}
	if payload.Schema != diskCacheSchemaVersion {
		return nil, false, nil
	}
	if payload.Program != nil {
		payload.Program.Reindex()
	}
	return &payload, true, nil
}

// DropAll removes every cached payload, e.g. after a schema bump.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(c.dir)
}
