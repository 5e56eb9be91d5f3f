package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "prayerd/pkg/logx"
)

// fileKV is a dependency-free persistence backend: one JSON snapshot
// holding every slot, rewritten atomically (tmp + rename) on each put.
// The slot count here is tiny and writes happen a handful of times per
// day, so there is no journal.
type fileKV struct {
	log  logx.Logger
	path string

	mu    sync.Mutex
	slots map[string]json.RawMessage
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	slots := map[string]json.RawMessage{}
	if b, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(b, &slots); err != nil {
			// Unreadable state file: start clean rather than refusing to boot.
			log.Warn("state file unreadable, starting empty", logx.String("path", path), logx.Err(err))
			slots = map[string]json.RawMessage{}
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	return &slotStore{kv: &fileKV{log: log, path: path, slots: slots}}, nil
}

func (f *fileKV) put(ctx context.Context, key string, val []byte) error {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.slots == nil {
		return errors.New("file store closed")
	}
	f.slots[key] = json.RawMessage(normalizeJSON(val))
	return f.flushLocked()
}

func (f *fileKV) get(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.slots[key]
	if !ok {
		return nil, false, nil
	}
	// Strings are stored JSON-quoted; unwrap them for the caller.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []byte(s), true, nil
	}
	return append([]byte(nil), raw...), true, nil
}

func (f *fileKV) del(ctx context.Context, key string) error {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.slots == nil {
		return nil
	}
	if _, ok := f.slots[key]; !ok {
		return nil
	}
	delete(f.slots, key)
	return f.flushLocked()
}

func (f *fileKV) close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slots = nil
	return nil
}

func (f *fileKV) flushLocked() error {
	tmp := f.path + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(out).Encode(f.slots); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

// normalizeJSON keeps the snapshot valid: values that are not already
// JSON (plain strings like a date marker) get quoted.
func normalizeJSON(val []byte) []byte {
	if json.Valid(val) {
		return val
	}
	q, _ := json.Marshal(string(val))
	return q
}
