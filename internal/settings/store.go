package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/lotas/tabgroups/internal/applog"
)

// Backend persists settings as raw JSON values keyed by setting name.
type Backend interface {
	Load(ctx context.Context) (map[string]json.RawMessage, error)
	Save(ctx context.Context, values map[string]json.RawMessage) error
}

// Change describes a settings update delivered to subscribers.
type Change struct {
	Old  Settings
	New  Settings
	Keys []string
}

// Store is one surface's view of the settings. Each surface owns its own
// Store; surfaces stay in sync through the backend and ApplyRemote.
type Store struct {
	backend Backend
	now     func() time.Time

	mu      sync.Mutex
	current Settings
	subs    map[int]chan Change
	nextSub int
}

// NewStore returns a store holding the defaults until Load is called.
func NewStore(b Backend) *Store {
	return &Store{
		backend: b,
		now:     time.Now,
		current: Defaults(),
		subs:    make(map[int]chan Change),
	}
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Load reads stored values over the defaults. On a backend error the
// defaults are kept and the error is returned.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	stored, err := s.backend.Load(ctx)
	if err != nil {
		applog.Error("settings.load", err)
		return s.Get(), fmt.Errorf("load settings: %w", err)
	}

	next := Defaults()
	for _, key := range Keys {
		raw, ok := stored[key]
		if !ok {
			continue
		}
		if err := next.decodeKey(key, raw); err != nil {
			applog.Warn("settings.decode", "key", key, "error", err.Error())
		}
	}
	next.normalize()

	s.mu.Lock()
	old := s.current
	s.current = next
	s.mu.Unlock()

	if keys := diffKeys(old, next); len(keys) > 0 {
		s.notify(Change{Old: old, New: next.Clone(), Keys: keys})
	}
	return next.Clone(), nil
}

// Save persists every key of next, stamping lastBackup.
func (s *Store) Save(ctx context.Context, next Settings) error {
	next = next.Clone()
	next.normalize()
	next.LastBackup = s.now().UTC().Format(time.RFC3339)

	values, err := next.encode()
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	s.mu.Lock()
	if err := s.backend.Save(ctx, values); err != nil {
		s.mu.Unlock()
		applog.Error("settings.save", err)
		return fmt.Errorf("save settings: %w", err)
	}
	old := s.current
	s.current = next
	s.mu.Unlock()

	applog.Info("settings.saved")
	if keys := diffKeys(old, next); len(keys) > 0 {
		s.notify(Change{Old: old, New: next.Clone(), Keys: keys})
	}
	return nil
}

// Update applies fn to a copy of the current settings and saves the result.
func (s *Store) Update(ctx context.Context, fn func(*Settings) error) error {
	next := s.Get()
	if err := fn(&next); err != nil {
		return err
	}
	return s.Save(ctx, next)
}

// ApplyRemote merges values already persisted by another surface.
// Unrecognized keys are ignored. It returns the keys whose value changed.
func (s *Store) ApplyRemote(changes map[string]json.RawMessage) []string {
	s.mu.Lock()
	old := s.current
	next := old.Clone()
	for key, raw := range changes {
		if !slices.Contains(Keys, key) {
			continue
		}
		if err := next.decodeKey(key, raw); err != nil {
			applog.Warn("settings.remote_decode", "key", key, "error", err.Error())
		}
	}
	next.normalize()
	s.current = next
	s.mu.Unlock()

	keys := diffKeys(old, next)
	if len(keys) > 0 {
		s.notify(Change{Old: old, New: next.Clone(), Keys: keys})
	}
	return keys
}

// Watch reloads from the backend every interval until ctx is done, so
// values saved by another surface reach this store's subscribers.
func (s *Store) Watch(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Load(ctx)
		}
	}
}

// Subscribe returns a channel of changes and a function that ends the
// subscription. Changes are dropped for subscribers that are not keeping up.
func (s *Store) Subscribe() (<-chan Change, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Change, 8)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) notify(c Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- c:
		default:
			applog.Warn("settings.subscriber_full", "keys", fmt.Sprint(c.Keys))
		}
	}
}

// diffKeys lists the keys whose encoded value differs between a and b.
func diffKeys(a, b Settings) []string {
	ea, errA := a.encode()
	eb, errB := b.encode()
	if errA != nil || errB != nil {
		return slices.Clone(Keys)
	}
	var keys []string
	for _, k := range Keys {
		if string(ea[k]) != string(eb[k]) {
			keys = append(keys, k)
		}
	}
	return keys
}
