package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"maps"
	"sync"

	"github.com/lotas/tabgroups/internal/storage"
)

// DBBackend stores settings in the SQLite settings table.
type DBBackend struct {
	DB *sql.DB
}

func (b DBBackend) Load(ctx context.Context) (map[string]json.RawMessage, error) {
	values, err := storage.LoadSettings(b.DB)
	if err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		out[k] = json.RawMessage(v)
	}
	return out, nil
}

func (b DBBackend) Save(ctx context.Context, values map[string]json.RawMessage) error {
	in := make(map[string]string, len(values))
	for k, v := range values {
		in[k] = string(v)
	}
	return storage.SaveSettings(b.DB, in)
}

// MemoryBackend keeps settings in memory. Err, when set, is returned from
// every call.
type MemoryBackend struct {
	mu     sync.Mutex
	values map[string]json.RawMessage
	Err    error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]json.RawMessage)}
}

func (b *MemoryBackend) Load(ctx context.Context) (map[string]json.RawMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return nil, b.Err
	}
	return maps.Clone(b.values), nil
}

func (b *MemoryBackend) Save(ctx context.Context, values map[string]json.RawMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return b.Err
	}
	if b.values == nil {
		b.values = make(map[string]json.RawMessage)
	}
	maps.Copy(b.values, values)
	return nil
}

// Put sets a raw stored value, as if written by another surface.
func (b *MemoryBackend) Put(key, raw string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.values == nil {
		b.values = make(map[string]json.RawMessage)
	}
	b.values[key] = json.RawMessage(raw)
}
