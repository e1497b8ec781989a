package routing

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"

	"hookrelay/internal/platform"
	"hookrelay/internal/storage"
	logx "hookrelay/pkg/logx"
)

// kvKeyConfigs is the single settings key the whole collection is
// serialized under, as one JSON array.
const kvKeyConfigs = "configs"

var (
	ErrNotFound       = errors.New("routing: config not found")
	ErrInvalidWebhook = errors.New("routing: webhook url must point at a known webhook service")
)

// Store is the shared, mutable collection of routing configs.
//
// One instance is constructed by the composition root and handed to
// both the dispatch path and the management surface; every mutation is
// serialized by an internal mutex and written through to the settings
// store as a whole, so concurrent CRUD and event-path reads never lose
// updates.
type Store struct {
	mu  sync.Mutex
	log logx.Logger
	kv  storage.Store

	configs []Config
}

// NewStore loads the persisted collection. Malformed entries are
// skipped with a warning rather than failing the load; a completely
// unreadable blob degrades to an empty collection. When no configs
// exist at all, legacy single-webhook settings are migrated once.
func NewStore(ctx context.Context, kv storage.Store, log logx.Logger) (*Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Store{log: log.With(logx.String("comp", "routing")), kv: kv}

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	if len(s.configs) == 0 {
		s.migrateLegacy(ctx)
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	raw, err := s.kv.GetString(ctx, kvKeyConfigs, "")
	if err != nil {
		return err
	}
	if raw == "" {
		return nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		s.log.Warn("config collection unreadable; starting empty", logx.Err(err))
		return nil
	}

	configs := make([]Config, 0, len(entries))
	for i, e := range entries {
		var c Config
		if err := json.Unmarshal(e, &c); err != nil {
			s.log.Warn("skipping malformed config entry", logx.Int("index", i), logx.Err(err))
			continue
		}
		c.normalize()
		configs = append(configs, c)
	}
	s.configs = configs
	s.log.Debug("configs loaded", logx.Int("count", len(configs)))
	return nil
}

// persistLocked writes the entire ordered collection under one key.
func (s *Store) persistLocked(ctx context.Context) error {
	b, err := json.Marshal(s.configs)
	if err != nil {
		return err
	}
	if err := s.kv.PutString(ctx, kvKeyConfigs, string(b)); err != nil {
		s.log.Error("persisting configs failed", logx.Err(err))
		return err
	}
	return nil
}

// List returns a copy of the collection in storage order.
func (s *Store) List() []Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Config, len(s.configs))
	copy(out, s.configs)
	return out
}

// Get returns the config with the given id.
func (s *Store) Get(id string) (Config, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.configs {
		if c.ID == id {
			return c, true
		}
	}
	return Config{}, false
}

// ListByPlatformEnabled returns the enabled configs for one platform,
// in storage order. The result is a snapshot taken under the lock.
func (s *Store) ListByPlatformEnabled(p platform.Platform) []Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Config
	for _, c := range s.configs {
		if c.Platform == p && c.Enabled {
			out = append(out, c)
		}
	}
	return out
}

// Add appends a config after validating its webhook URL and returns
// the stored form, with a generated id and defaults filled in. When
// persisting fails the in-memory collection is rolled back so it keeps
// matching what is on disk.
func (s *Store) Add(ctx context.Context, c Config) (Config, error) {
	if !ValidateWebhookURL(c.WebhookURL) {
		return Config{}, ErrInvalidWebhook
	}
	c.normalize()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs = append(s.configs, c)
	if err := s.persistLocked(ctx); err != nil {
		s.configs = s.configs[:len(s.configs)-1]
		return Config{}, err
	}
	s.log.Info("config added", logx.String("id", c.ID), logx.String("name", c.Name))
	return c, nil
}

// Update replaces the stored config with the same id and returns the
// stored form. Unknown ids are a no-op error so the caller can surface
// "edited a deleted config".
func (s *Store) Update(ctx context.Context, c Config) (Config, error) {
	if !ValidateWebhookURL(c.WebhookURL) {
		return Config{}, ErrInvalidWebhook
	}
	c.normalize()

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.configs {
		if s.configs[i].ID == c.ID {
			prev := s.configs[i]
			s.configs[i] = c
			if err := s.persistLocked(ctx); err != nil {
				s.configs[i] = prev
				return Config{}, err
			}
			s.log.Info("config updated", logx.String("id", c.ID), logx.String("name", c.Name))
			return c, nil
		}
	}
	return Config{}, ErrNotFound
}

// Delete removes the config with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.configs {
		if s.configs[i].ID == id {
			prev := s.configs
			name := prev[i].Name
			next := make([]Config, 0, len(prev)-1)
			next = append(next, prev[:i]...)
			next = append(next, prev[i+1:]...)
			s.configs = next
			if err := s.persistLocked(ctx); err != nil {
				s.configs = prev
				return err
			}
			s.log.Info("config deleted", logx.String("id", id), logx.String("name", name))
			return nil
		}
	}
	return ErrNotFound
}

// ToggleEnabled flips the enabled flag of one config.
func (s *Store) ToggleEnabled(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.configs {
		if s.configs[i].ID == id {
			s.configs[i].Enabled = !s.configs[i].Enabled
			if err := s.persistLocked(ctx); err != nil {
				s.configs[i].Enabled = !s.configs[i].Enabled
				return err
			}
			s.log.Info("config toggled", logx.String("id", id), logx.Bool("enabled", s.configs[i].Enabled))
			return nil
		}
	}
	return ErrNotFound
}

// Duplicate copies a config under a fresh id with a decorated name.
func (s *Store) Duplicate(ctx context.Context, id string) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.configs {
		if c.ID == id {
			dup := c
			dup.ID = uuid.NewString()
			dup.Name = c.Name + " (copy)"
			dup.Keywords = append([]string(nil), c.Keywords...)
			s.configs = append(s.configs, dup)
			if err := s.persistLocked(ctx); err != nil {
				s.configs = s.configs[:len(s.configs)-1]
				return Config{}, err
			}
			s.log.Info("config duplicated", logx.String("from", id), logx.String("id", dup.ID))
			return dup, nil
		}
	}
	return Config{}, ErrNotFound
}
