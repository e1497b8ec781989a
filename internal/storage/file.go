package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	logx "hookrelay/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.kv.json           (full snapshot, replaced atomically)
//   - <prefix>.deliveries.jsonl  (append-only JSON Lines)
//
// The whole key-value map is rewritten on every mutation; the data set
// (a handful of routing configs) is small enough that this is the
// simplest way to get atomic batches.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	kvPath string
	kv     map[string]string

	deliveryFile *os.File
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	kvPath := prefix + ".kv.json"
	deliveryPath := prefix + ".deliveries.jsonl"

	kv := map[string]string{}
	if err := loadKVSnapshot(kvPath, kv); err != nil && !errors.Is(err, os.ErrNotExist) {
		// A corrupt snapshot degrades to an empty store rather than
		// refusing to start.
		log.Warn("kv snapshot unreadable; starting empty", logx.String("path", kvPath), logx.Err(err))
		kv = map[string]string{}
	}

	df, err := os.OpenFile(deliveryPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	return &fileStore{
		log:          log,
		kvPath:       kvPath,
		kv:           kv,
		deliveryFile: df,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deliveryFile != nil {
		err := s.deliveryFile.Close()
		s.deliveryFile = nil
		s.kv = nil
		return err
	}
	s.kv = nil
	return nil
}

func (s *fileStore) GetString(ctx context.Context, key, def string) (string, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kv == nil {
		return def, ErrClosed
	}
	if v, ok := s.kv[key]; ok {
		return v, nil
	}
	return def, nil
}

func (s *fileStore) PutString(ctx context.Context, key, value string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kv == nil {
		return ErrClosed
	}
	s.kv[key] = value
	return s.persistLocked()
}

func (s *fileStore) GetBool(ctx context.Context, key string, def bool) (bool, error) {
	raw, err := s.GetString(ctx, key, "")
	if err != nil || raw == "" {
		return def, err
	}
	v, perr := strconv.ParseBool(raw)
	if perr != nil {
		return def, nil
	}
	return v, nil
}

func (s *fileStore) PutBool(ctx context.Context, key string, value bool) error {
	return s.PutString(ctx, key, strconv.FormatBool(value))
}

func (s *fileStore) Batch(ctx context.Context, fn func(b BatchWriter) error) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kv == nil {
		return ErrClosed
	}

	b := &mapBatch{writes: map[string]string{}}
	if err := fn(b); err != nil {
		return err
	}
	for k, v := range b.writes {
		s.kv[k] = v
	}
	return s.persistLocked()
}

func (s *fileStore) AppendDelivery(ctx context.Context, rec DeliveryRecord) error {
	_ = ctx
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deliveryFile == nil {
		return ErrClosed
	}
	return json.NewEncoder(s.deliveryFile).Encode(rec)
}

// persistLocked rewrites the snapshot via tmp+rename so readers never
// observe a partial file.
func (s *fileStore) persistLocked() error {
	tmp := s.kvPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(s.kv); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.kvPath)
}

func loadKVSnapshot(path string, out map[string]string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var m map[string]string
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return err
	}
	for k, v := range m {
		out[k] = v
	}
	return nil
}

type mapBatch struct {
	writes map[string]string
}

func (b *mapBatch) PutString(key, value string) { b.writes[key] = value }
func (b *mapBatch) PutBool(key string, value bool) {
	b.writes[key] = strconv.FormatBool(value)
}
